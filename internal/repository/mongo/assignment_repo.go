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

const assignmentCollectionName = "split_assignments"

// mongoAssignmentRepository implements repository.SplitAssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new SplitAssignment repository.
func NewMongoAssignmentRepository(db *mongo.Database) repository.SplitAssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// ReplaceActive deactivates the user's current active assignments and
// inserts the new set. The old rows stay behind (active=false) as audit
// history. Callers serialize per user, so deactivate-then-insert cannot
// interleave with another writer for the same user.
func (r *mongoAssignmentRepository) ReplaceActive(ctx context.Context, userID primitive.ObjectID, assignments []domain.SplitAssignment) error {
	if userID == primitive.NilObjectID {
		return errors.New("user ID is required")
	}
	if err := r.DeactivateAll(ctx, userID); err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(assignments))
	for i := range assignments {
		assignments[i].ID = primitive.NewObjectID()
		assignments[i].UserID = userID
		assignments[i].Active = true
		assignments[i].CreatedAt = now
		assignments[i].UpdatedAt = now
		docs = append(docs, assignments[i])
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// GetActiveByUser retrieves the user's active weekly mapping, ordered by day.
func (r *mongoAssignmentRepository) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error) {
	filter := bson.M{"userId": userID, "active": true}
	opts := options.Find().SetSort(bson.D{{Key: "dayOfWeek", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assignments []domain.SplitAssignment
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// GetActiveByUserAndDay retrieves the single active assignment for one day
// of the week, or ErrNotFound for a rest day.
func (r *mongoAssignmentRepository) GetActiveByUserAndDay(ctx context.Context, userID primitive.ObjectID, dayOfWeek int) (*domain.SplitAssignment, error) {
	var assignment domain.SplitAssignment
	filter := bson.M{"userId": userID, "dayOfWeek": dayOfWeek, "active": true}
	err := r.collection.FindOne(ctx, filter).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// DeactivateAll marks every active assignment of the user superseded.
func (r *mongoAssignmentRepository) DeactivateAll(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{"userId": userID, "active": true}
	update := bson.M{"$set": bson.M{"active": false, "updatedAt": time.Now().UTC()}}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// DeleteInactiveBefore purges superseded assignments older than the cutoff.
// Active rows are never touched.
func (r *mongoAssignmentRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{"active": false, "updatedAt": bson.M{"$lt": cutoff}}
	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureAssignmentIndexes creates necessary indexes. The partial unique
// index backs the one-active-assignment-per-day invariant at the store
// level, the same way the users collection enforces unique emails.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "dayOfWeek", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
