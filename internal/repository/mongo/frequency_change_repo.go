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

const frequencyChangeCollectionName = "frequency_changes"

// mongoFrequencyChangeRepository implements repository.FrequencyChangeRepository
type mongoFrequencyChangeRepository struct {
	collection *mongo.Collection
}

// NewMongoFrequencyChangeRepository creates a new FrequencyChangeRecord repository.
func NewMongoFrequencyChangeRepository(db *mongo.Database) repository.FrequencyChangeRepository {
	return &mongoFrequencyChangeRepository{
		collection: db.Collection(frequencyChangeCollectionName),
	}
}

// Create inserts a new record. The partial unique index on
// (userId, decision=pending) rejects a second pending conflict per user.
func (r *mongoFrequencyChangeRepository) Create(ctx context.Context, rec *domain.FrequencyChangeRecord) (primitive.ObjectID, error) {
	if rec.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("frequency change requires userId")
	}
	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted frequency change ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single record.
func (r *mongoFrequencyChangeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.FrequencyChangeRecord, error) {
	var rec domain.FrequencyChangeRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// GetPendingByUser retrieves the user's pending record, if any.
func (r *mongoFrequencyChangeRepository) GetPendingByUser(ctx context.Context, userID primitive.ObjectID) (*domain.FrequencyChangeRecord, error) {
	var rec domain.FrequencyChangeRecord
	filter := bson.M{"userId": userID, "decision": domain.FrequencyPending}
	err := r.collection.FindOne(ctx, filter).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Update persists the decision fields. Records are kept for audit, never deleted.
func (r *mongoFrequencyChangeRepository) Update(ctx context.Context, rec *domain.FrequencyChangeRecord) error {
	if rec.ID == primitive.NilObjectID {
		return errors.New("frequency change ID is required for update")
	}
	filter := bson.M{"_id": rec.ID}
	update := bson.M{
		"$set": bson.M{
			"decision":  rec.Decision,
			"reason":    rec.Reason,
			"decidedAt": rec.DecidedAt,
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

// EnsureFrequencyChangeIndexes creates necessary indexes. Call during startup.
func EnsureFrequencyChangeIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"decision": string(domain.FrequencyPending)}),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
