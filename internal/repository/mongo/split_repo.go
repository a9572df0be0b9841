package mongo

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const splitCollectionName = "split_definitions"

// mongoSplitRepository implements repository.SplitDefinitionRepository
type mongoSplitRepository struct {
	collection *mongo.Collection
}

// NewMongoSplitRepository creates a new SplitDefinition repository.
func NewMongoSplitRepository(db *mongo.Database) repository.SplitDefinitionRepository {
	return &mongoSplitRepository{
		collection: db.Collection(splitCollectionName),
	}
}

// Seed inserts the reference split definitions if the collection is empty.
// Definitions are immutable, so seeding is a one-time bootstrap.
func (r *mongoSplitRepository) Seed(ctx context.Context, defs []domain.SplitDefinition) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(defs))
	for i := range defs {
		defs[i].ID = primitive.NewObjectID()
		defs[i].CreatedAt = now
		docs = append(docs, defs[i])
	}
	_, err = r.collection.InsertMany(ctx, docs)
	return err
}

// GetByID retrieves a single split definition.
func (r *mongoSplitRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SplitDefinition, error) {
	var def domain.SplitDefinition
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&def)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &def, nil
}

// GetByType retrieves all rotation slots of a split family, in rotation order.
func (r *mongoSplitRepository) GetByType(ctx context.Context, splitType domain.SplitType) ([]domain.SplitDefinition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"splitType": splitType}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var defs []domain.SplitDefinition
	if err = cursor.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// GetAll retrieves every split definition, grouped by family then rotation order.
func (r *mongoSplitRepository) GetAll(ctx context.Context) ([]domain.SplitDefinition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "splitType", Value: 1}, {Key: "sequence", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var defs []domain.SplitDefinition
	if err = cursor.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// EnsureSplitIndexes creates necessary indexes. Call during startup.
func EnsureSplitIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "splitType", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
