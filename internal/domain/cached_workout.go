package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CachedWorkout is a materialized concrete workout for one calendar day,
// unique per (user, workoutDate). Serving a workout is a lookup against
// this collection, never a recomputation. The muscle-group list must match
// the user's active SplitAssignment for that day-of-week; a mismatch is
// cache corruption and is repaired by the reconciliation pass.
type CachedWorkout struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	WorkoutDate  time.Time          `bson:"workoutDate" json:"workoutDate"` // Normalized to UTC midnight
	SplitID      primitive.ObjectID `bson:"splitId" json:"splitId"`
	SplitName    string             `bson:"splitName" json:"splitName"`
	MuscleGroups []MuscleGroup      `bson:"muscleGroups" json:"muscleGroups"`
	Consumed     bool               `bson:"consumed" json:"consumed"` // Set once the session is recorded; immutable after
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// WorkoutDay truncates t to its UTC calendar day. All cached-workout dates
// go through this so lookups by date are exact matches.
func WorkoutDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MuscleGroupsEqual compares two ordered muscle-group lists.
func MuscleGroupsEqual(a, b []MuscleGroup) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
