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

const taskCollectionName = "scheduled_tasks"

// mongoTaskRepository implements repository.ScheduledTaskRepository
type mongoTaskRepository struct {
	collection *mongo.Collection
}

// NewMongoTaskRepository creates a new ScheduledTask repository.
func NewMongoTaskRepository(db *mongo.Database) repository.ScheduledTaskRepository {
	return &mongoTaskRepository{
		collection: db.Collection(taskCollectionName),
	}
}

// Create inserts a new task in pending status.
func (r *mongoTaskRepository) Create(ctx context.Context, t *domain.ScheduledTask) (primitive.ObjectID, error) {
	if t.Type == "" {
		return primitive.NilObjectID, errors.New("task requires a type")
	}
	t.ID = primitive.NewObjectID()
	t.Status = domain.TaskPending
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, t)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted task ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single task.
func (r *mongoTaskRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduledTask, error) {
	var t domain.ScheduledTask
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetDue retrieves pending tasks whose scheduledFor has passed, oldest first.
func (r *mongoTaskRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledTask, error) {
	filter := bson.M{
		"status":       domain.TaskPending,
		"scheduledFor": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduledFor", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []domain.ScheduledTask
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ClaimPending atomically transitions a pending task to running. A second
// worker racing on the same task gets ErrNotFound.
func (r *mongoTaskRepository) ClaimPending(ctx context.Context, id primitive.ObjectID, now time.Time) (*domain.ScheduledTask, error) {
	filter := bson.M{"_id": id, "status": domain.TaskPending}
	update := bson.M{
		"$set": bson.M{
			"status":    domain.TaskRunning,
			"startedAt": now,
			"updatedAt": now,
		},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var t domain.ScheduledTask
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Complete marks a running task completed.
func (r *mongoTaskRepository) Complete(ctx context.Context, id primitive.ObjectID, result string, now time.Time) error {
	filter := bson.M{"_id": id, "status": domain.TaskRunning}
	update := bson.M{
		"$set": bson.M{
			"status":     domain.TaskCompleted,
			"result":     result,
			"finishedAt": now,
			"updatedAt":  now,
		},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Fail records a failure. When retryAt is set the task goes back to pending
// at that time; otherwise it stays failed for good and only health
// reporting surfaces it.
func (r *mongoTaskRepository) Fail(ctx context.Context, id primitive.ObjectID, lastError string, retryAt *time.Time, now time.Time) error {
	set := bson.M{
		"lastError":  lastError,
		"finishedAt": now,
		"updatedAt":  now,
	}
	if retryAt != nil {
		set["status"] = domain.TaskPending
		set["scheduledFor"] = *retryAt
	} else {
		set["status"] = domain.TaskFailed
	}
	filter := bson.M{"_id": id, "status": domain.TaskRunning}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// NextPending retrieves the next task the scheduler would run.
func (r *mongoTaskRepository) NextPending(ctx context.Context) (*domain.ScheduledTask, error) {
	var t domain.ScheduledTask
	opts := options.FindOne().SetSort(bson.D{{Key: "scheduledFor", Value: 1}})
	err := r.collection.FindOne(ctx, bson.M{"status": domain.TaskPending}, opts).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CountByStatus aggregates task counts for the stats surface.
func (r *mongoTaskRepository) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status domain.TaskStatus `bson:"_id"`
		Count  int64             `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[domain.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Exists reports whether a non-terminal task of this type already exists
// for the user, scheduled at or after notBefore. Keeps the enqueue sweeps
// from piling up duplicates.
func (r *mongoTaskRepository) Exists(ctx context.Context, taskType domain.TaskType, userID primitive.ObjectID, notBefore time.Time) (bool, error) {
	filter := bson.M{
		"type":         taskType,
		"userId":       userID,
		"status":       bson.M{"$in": []domain.TaskStatus{domain.TaskPending, domain.TaskRunning}},
		"scheduledFor": bson.M{"$gte": notBefore},
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteTerminalBefore purges completed/failed tasks older than the cutoff.
func (r *mongoTaskRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"status":    bson.M{"$in": []domain.TaskStatus{domain.TaskCompleted, domain.TaskFailed}},
		"updatedAt": bson.M{"$lt": cutoff},
	}
	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureTaskIndexes creates necessary indexes. Call during startup.
func EnsureTaskIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduledFor", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "userId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
