package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User holds the account and the declared training preferences the
// scheduling subsystem reads at decision time. Profile management beyond
// this lives in the companion app; this service only needs the preference
// record and credentials for its own API surface.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Email           string             `bson:"email" json:"email"` // Should be unique
	PasswordHash    string             `bson:"passwordHash" json:"-"`
	WeeklyFrequency int                `bson:"weeklyFrequency" json:"weeklyFrequency"` // Declared sessions per week, 0 = no active schedule
	TrainingDays    []int              `bson:"trainingDays,omitempty" json:"trainingDays,omitempty"` // Preferred days, 0 (Sunday) - 6 (Saturday)
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
