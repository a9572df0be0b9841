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

const mesocycleCollectionName = "mesocycles"

// mongoMesocycleRepository implements repository.MesocycleRepository
type mongoMesocycleRepository struct {
	collection *mongo.Collection
}

// NewMongoMesocycleRepository creates a new Mesocycle repository.
func NewMongoMesocycleRepository(db *mongo.Database) repository.MesocycleRepository {
	return &mongoMesocycleRepository{
		collection: db.Collection(mesocycleCollectionName),
	}
}

// Create inserts a new mesocycle. The partial unique index on
// (userId, status=active) rejects a second active block for the same user,
// so callers must complete the old one first.
func (r *mongoMesocycleRepository) Create(ctx context.Context, m *domain.Mesocycle) (primitive.ObjectID, error) {
	if m.UserID == primitive.NilObjectID || !m.SplitType.IsValid() || !m.CurrentPhase.IsValid() {
		return primitive.NilObjectID, errors.New("mesocycle requires userId, a valid split type and a valid phase")
	}
	m.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted mesocycle ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single mesocycle.
func (r *mongoMesocycleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Mesocycle, error) {
	var m domain.Mesocycle
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetActiveByUser retrieves the user's single active mesocycle.
func (r *mongoMesocycleRepository) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
	var m domain.Mesocycle
	filter := bson.M{"userId": userID, "status": domain.MesocycleActive}
	err := r.collection.FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListActive retrieves every active mesocycle, for scheduler sweeps.
func (r *mongoMesocycleRepository) ListActive(ctx context.Context) ([]domain.Mesocycle, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"status": domain.MesocycleActive})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var cycles []domain.Mesocycle
	if err = cursor.All(ctx, &cycles); err != nil {
		return nil, err
	}
	return cycles, nil
}

// Complete transitions an active mesocycle to completed.
func (r *mongoMesocycleRepository) Complete(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id, "status": domain.MesocycleActive}
	update := bson.M{"$set": bson.M{"status": domain.MesocycleCompleted, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Update persists phase, weeks-in-phase and tick bookkeeping.
func (r *mongoMesocycleRepository) Update(ctx context.Context, m *domain.Mesocycle) error {
	if m.ID == primitive.NilObjectID {
		return errors.New("mesocycle ID is required for update")
	}
	filter := bson.M{"_id": m.ID}
	update := bson.M{
		"$set": bson.M{
			"currentPhase":  m.CurrentPhase,
			"weeksInPhase":  m.WeeksInPhase,
			"lastPhaseTick": m.LastPhaseTick,
			"endDate":       m.EndDate,
			"updatedAt":     time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureMesocycleIndexes creates necessary indexes. Call during startup.
func EnsureMesocycleIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(domain.MesocycleActive)}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "endDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
