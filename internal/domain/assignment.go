package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SplitAssignment binds one day of the week to a split for a user. At most
// one active assignment exists per (user, dayOfWeek); superseded rows are
// deactivated rather than deleted so the schedule history stays auditable.
type SplitAssignment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	DayOfWeek    int                `bson:"dayOfWeek" json:"dayOfWeek"` // 0 (Sunday) - 6 (Saturday), matches time.Weekday
	SplitID      primitive.ObjectID `bson:"splitId" json:"splitId"`
	SplitName    string             `bson:"splitName" json:"splitName"`         // Denormalized for display
	MuscleGroups []MuscleGroup      `bson:"muscleGroups" json:"muscleGroups"`   // Denormalized from the split definition
	Active       bool               `bson:"active" json:"active"`
	AutoAssigned bool               `bson:"autoAssigned" json:"autoAssigned"`   // System-computed vs. user override
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
