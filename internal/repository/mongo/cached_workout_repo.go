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

const cachedWorkoutCollectionName = "cached_workouts"

// mongoCachedWorkoutRepository implements repository.CachedWorkoutRepository
type mongoCachedWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoCachedWorkoutRepository creates a new CachedWorkout repository.
func NewMongoCachedWorkoutRepository(db *mongo.Database) repository.CachedWorkoutRepository {
	return &mongoCachedWorkoutRepository{
		collection: db.Collection(cachedWorkoutCollectionName),
	}
}

// Upsert writes the cached workout for (user, date). A consumed row is
// history and is never overwritten; the filter excludes it, so the upsert
// silently leaves it alone.
func (r *mongoCachedWorkoutRepository) Upsert(ctx context.Context, w *domain.CachedWorkout) error {
	if w.UserID == primitive.NilObjectID || w.SplitID == primitive.NilObjectID {
		return errors.New("cached workout requires userId and splitId")
	}
	w.WorkoutDate = domain.WorkoutDay(w.WorkoutDate)

	filter := bson.M{
		"userId":      w.UserID,
		"workoutDate": w.WorkoutDate,
		"consumed":    false,
	}
	update := bson.M{
		"$set": bson.M{
			"splitId":      w.SplitID,
			"splitName":    w.SplitName,
			"muscleGroups": w.MuscleGroups,
			"consumed":     false,
		},
		"$setOnInsert": bson.M{
			"_id":         primitive.NewObjectID(),
			"userId":      w.UserID,
			"workoutDate": w.WorkoutDate,
			"createdAt":   time.Now().UTC(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// A consumed row already occupies this (user, date); keep it.
		return nil
	}
	return err
}

// GetByUserAndDate retrieves the cached workout for one calendar day.
func (r *mongoCachedWorkoutRepository) GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.CachedWorkout, error) {
	var w domain.CachedWorkout
	filter := bson.M{"userId": userID, "workoutDate": domain.WorkoutDay(date)}
	err := r.collection.FindOne(ctx, filter).Decode(&w)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// GetUnconsumedFrom retrieves unconsumed cached workouts dated on/after from.
func (r *mongoCachedWorkoutRepository) GetUnconsumedFrom(ctx context.Context, userID primitive.ObjectID, from time.Time) ([]domain.CachedWorkout, error) {
	filter := bson.M{
		"userId":      userID,
		"consumed":    false,
		"workoutDate": bson.M{"$gte": domain.WorkoutDay(from)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "workoutDate", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var workouts []domain.CachedWorkout
	if err = cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// DeleteUnconsumedFrom removes unconsumed cached workouts dated on/after
// from. Consumed workouts are never invalidated.
func (r *mongoCachedWorkoutRepository) DeleteUnconsumedFrom(ctx context.Context, userID primitive.ObjectID, from time.Time) (int64, error) {
	filter := bson.M{
		"userId":      userID,
		"consumed":    false,
		"workoutDate": bson.M{"$gte": domain.WorkoutDay(from)},
	}
	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteUnconsumedByID removes a single unconsumed cached workout.
func (r *mongoCachedWorkoutRepository) DeleteUnconsumedByID(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "consumed": false})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkConsumed flags the cached workout for (user, date) as acted upon.
func (r *mongoCachedWorkoutRepository) MarkConsumed(ctx context.Context, userID primitive.ObjectID, date time.Time) error {
	filter := bson.M{"userId": userID, "workoutDate": domain.WorkoutDay(date)}
	update := bson.M{"$set": bson.M{"consumed": true}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// LatestDate returns the date of the user's furthest-out cached workout,
// used to detect when the materialized horizon is running short.
func (r *mongoCachedWorkoutRepository) LatestDate(ctx context.Context, userID primitive.ObjectID) (time.Time, error) {
	var w domain.CachedWorkout
	opts := options.FindOne().SetSort(bson.D{{Key: "workoutDate", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&w)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, repository.ErrNotFound
		}
		return time.Time{}, err
	}
	return w.WorkoutDate, nil
}

// EnsureCachedWorkoutIndexes creates necessary indexes. The unique index
// backs the one-workout-per-day contract.
func EnsureCachedWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "workoutDate", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "consumed", Value: 1}, {Key: "workoutDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
