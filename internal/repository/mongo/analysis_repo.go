package mongo

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const analysisCollectionName = "phase_analyses"

// mongoAnalysisRepository implements repository.PhaseAnalysisRepository
type mongoAnalysisRepository struct {
	collection *mongo.Collection
}

// NewMongoAnalysisRepository creates a new PhaseAnalysis repository.
func NewMongoAnalysisRepository(db *mongo.Database) repository.PhaseAnalysisRepository {
	return &mongoAnalysisRepository{
		collection: db.Collection(analysisCollectionName),
	}
}

// Create inserts a new analysis. The partial unique index on
// (mesocycleId, decision=pending) rejects a duplicate pending analysis.
func (r *mongoAnalysisRepository) Create(ctx context.Context, a *domain.PhaseAnalysis) (primitive.ObjectID, error) {
	if a.MesocycleID == primitive.NilObjectID || a.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("analysis requires mesocycleId and userId")
	}
	a.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted analysis ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single analysis.
func (r *mongoAnalysisRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PhaseAnalysis, error) {
	var a domain.PhaseAnalysis
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetPendingByMesocycle retrieves the mesocycle's pending analysis, if any.
func (r *mongoAnalysisRepository) GetPendingByMesocycle(ctx context.Context, mesocycleID primitive.ObjectID) (*domain.PhaseAnalysis, error) {
	var a domain.PhaseAnalysis
	filter := bson.M{"mesocycleId": mesocycleID, "decision": domain.DecisionPending}
	err := r.collection.FindOne(ctx, filter).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetPendingByUser retrieves the user's pending analysis, if any.
func (r *mongoAnalysisRepository) GetPendingByUser(ctx context.Context, userID primitive.ObjectID) (*domain.PhaseAnalysis, error) {
	var a domain.PhaseAnalysis
	filter := bson.M{"userId": userID, "decision": domain.DecisionPending}
	err := r.collection.FindOne(ctx, filter).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Update persists the decision fields. Analyses are never deleted; rejected
// ones stay for audit.
func (r *mongoAnalysisRepository) Update(ctx context.Context, a *domain.PhaseAnalysis) error {
	if a.ID == primitive.NilObjectID {
		return errors.New("analysis ID is required for update")
	}
	filter := bson.M{"_id": a.ID}
	update := bson.M{
		"$set": bson.M{
			"decision":  a.Decision,
			"feedback":  a.Feedback,
			"decidedAt": a.DecidedAt,
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

// EnsureAnalysisIndexes creates necessary indexes. Call during startup.
func EnsureAnalysisIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "mesocycleId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"decision": string(domain.DecisionPending)}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "decision", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
