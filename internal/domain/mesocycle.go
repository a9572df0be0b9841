package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Phase is a mesocycle's training emphasis.
type Phase string

const (
	PhaseStrength    Phase = "strength"
	PhaseHypertrophy Phase = "hypertrophy"
	PhaseDefinition  Phase = "definition"
	PhaseRecovery    Phase = "recovery"
)

// IsValid reports whether p is a known phase.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseStrength, PhaseHypertrophy, PhaseDefinition, PhaseRecovery:
		return true
	}
	return false
}

// MesocycleStatus type for the mesocycle lifecycle.
type MesocycleStatus string

const (
	MesocycleActive    MesocycleStatus = "active"
	MesocycleCompleted MesocycleStatus = "completed"
)

// Mesocycle is a multi-week training block under one split family and one
// phase. Exactly one active mesocycle exists per user at any time; that
// invariant is what the whole scheduling subsystem protects.
type Mesocycle struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	SplitType     SplitType          `bson:"splitType" json:"splitType"`
	Frequency     int                `bson:"frequency" json:"frequency"` // Weekly frequency the block was built for
	StartDate     time.Time          `bson:"startDate" json:"startDate"`
	EndDate       time.Time          `bson:"endDate" json:"endDate"`
	DurationWeeks int                `bson:"durationWeeks" json:"durationWeeks"`
	Status        MesocycleStatus    `bson:"status" json:"status"`
	CurrentPhase  Phase              `bson:"currentPhase" json:"currentPhase"`
	WeeksInPhase  int                `bson:"weeksInPhase" json:"weeksInPhase"`
	LastPhaseTick time.Time          `bson:"lastPhaseTick" json:"lastPhaseTick"` // When weeksInPhase last advanced
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// WeeksElapsed returns how many whole calendar weeks have passed since the
// mesocycle started, at the given instant.
func (m *Mesocycle) WeeksElapsed(now time.Time) int {
	if now.Before(m.StartDate) {
		return 0
	}
	return int(now.Sub(m.StartDate).Hours() / (24 * 7))
}

// RemainingWeeks returns duration minus elapsed weeks, floored at zero.
func (m *Mesocycle) RemainingWeeks(now time.Time) int {
	remaining := m.DurationWeeks - m.WeeksElapsed(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
