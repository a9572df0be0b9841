package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FrequencyDecision resolves a frequency-change conflict.
type FrequencyDecision string

const (
	FrequencyPending     FrequencyDecision = "pending"
	FrequencyKeepCurrent FrequencyDecision = "keep_current"
	FrequencyCreateNew   FrequencyDecision = "create_new"
)

// FrequencyChangeRecord is created the moment a preference update implies a
// weekly frequency different from the active mesocycle's. Exactly one
// pending record exists per user; the cache is never regenerated until the
// user resolves it.
type FrequencyChangeRecord struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID  `bson:"userId" json:"userId"`
	OldFrequency       int                 `bson:"oldFrequency" json:"oldFrequency"`
	NewFrequency       int                 `bson:"newFrequency" json:"newFrequency"`
	OldSplitType       SplitType           `bson:"oldSplitType" json:"oldSplitType"`
	SuggestedSplitType SplitType           `bson:"suggestedSplitType" json:"suggestedSplitType"`
	RemainingWeeks     int                 `bson:"remainingWeeks" json:"remainingWeeks"`
	MesocycleID        *primitive.ObjectID `bson:"mesocycleId,omitempty" json:"mesocycleId,omitempty"`
	Decision           FrequencyDecision   `bson:"decision" json:"decision"`
	Reason             string              `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	DecidedAt          *time.Time          `bson:"decidedAt,omitempty" json:"decidedAt,omitempty"`
}
