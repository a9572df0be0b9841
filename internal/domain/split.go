package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MuscleGroup identifies a trainable muscle group.
type MuscleGroup string

const (
	MuscleChest      MuscleGroup = "chest"
	MuscleBack       MuscleGroup = "back"
	MuscleShoulders  MuscleGroup = "shoulders"
	MuscleBiceps     MuscleGroup = "biceps"
	MuscleTriceps    MuscleGroup = "triceps"
	MuscleQuads      MuscleGroup = "quads"
	MuscleHamstrings MuscleGroup = "hamstrings"
	MuscleGlutes     MuscleGroup = "glutes"
	MuscleCalves     MuscleGroup = "calves"
	MuscleCore       MuscleGroup = "core"
)

// SplitType is the split-family tag. Kept as a closed enumeration so a new
// family is a compile-visible addition, not a stray string.
type SplitType string

const (
	SplitFullBody     SplitType = "full_body"
	SplitUpperLower   SplitType = "upper_lower"
	SplitPushPullLegs SplitType = "push_pull_legs"
	SplitBodyPart     SplitType = "body_part"
)

// IsValid reports whether t is one of the known split families.
func (t SplitType) IsValid() bool {
	switch t {
	case SplitFullBody, SplitUpperLower, SplitPushPullLegs, SplitBodyPart:
		return true
	}
	return false
}

// SplitDefinition is immutable reference data describing one rotation slot
// of a split family, e.g. "Push" within push/pull/legs.
type SplitDefinition struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	SplitType     SplitType          `bson:"splitType" json:"splitType"`
	MuscleGroups  []MuscleGroup      `bson:"muscleGroups" json:"muscleGroups"` // Ordered
	RecoveryHours int                `bson:"recoveryHours" json:"recoveryHours"`
	Difficulty    string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"` // e.g. "Novice", "Medium", "Advanced"
	Sequence      int                `bson:"sequence" json:"sequence"`                         // Rotation order within the family
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// Overlaps reports whether the two definitions share any muscle group.
func (d *SplitDefinition) Overlaps(other *SplitDefinition) bool {
	if other == nil {
		return false
	}
	for _, a := range d.MuscleGroups {
		for _, b := range other.MuscleGroups {
			if a == b {
				return true
			}
		}
	}
	return false
}
