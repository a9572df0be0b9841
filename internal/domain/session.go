package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutSession is a completion event reported by the serving layer:
// the user actually trained these muscle groups on this date. Sessions feed
// recovery computation and mark the matching CachedWorkout consumed.
type WorkoutSession struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID  `bson:"userId" json:"userId"`
	Date         time.Time           `bson:"date" json:"date"` // Normalized to UTC midnight
	MuscleGroups []MuscleGroup       `bson:"muscleGroups" json:"muscleGroups"`
	SplitID      *primitive.ObjectID `bson:"splitId,omitempty" json:"splitId,omitempty"`
	Intensity    int                 `bson:"intensity" json:"intensity"` // 1-10, scales the recovery window
	RPE          float64             `bson:"rpe,omitempty" json:"rpe,omitempty"`
	CompletedAt  time.Time           `bson:"completedAt" json:"completedAt"`
}
