package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressTrend classifies recent training progress.
type ProgressTrend string

const (
	TrendImproving ProgressTrend = "improving"
	TrendSteady    ProgressTrend = "steady"
	TrendDeclining ProgressTrend = "declining"
)

// RecommendedAction is what an analysis suggests the user do next.
type RecommendedAction string

const (
	ActionContinue        RecommendedAction = "continue"
	ActionChangePhase     RecommendedAction = "change_phase"
	ActionDeload          RecommendedAction = "deload"
	ActionRest            RecommendedAction = "rest"
	ActionChangeExercises RecommendedAction = "change_exercises"
)

// AnalysisDecision is the user's verdict on a recommendation.
type AnalysisDecision string

const (
	DecisionPending  AnalysisDecision = "pending"
	DecisionAccepted AnalysisDecision = "accepted"
	DecisionRejected AnalysisDecision = "rejected"
)

// StagnationSeverity grades a detected plateau.
type StagnationSeverity string

const (
	SeverityMild     StagnationSeverity = "mild"
	SeverityModerate StagnationSeverity = "moderate"
	SeveritySevere   StagnationSeverity = "severe"
)

// PhaseAnalysis records one run of the stagnation analysis against an
// active mesocycle, together with the user's accept/reject decision.
// At most one pending analysis exists per mesocycle; a new one may only be
// produced after the prior one is resolved.
type PhaseAnalysis struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	MesocycleID       primitive.ObjectID  `bson:"mesocycleId" json:"mesocycleId"`
	UserID            primitive.ObjectID  `bson:"userId" json:"userId"` // Denormalized for user-scoped queries
	ComputedAt        time.Time           `bson:"computedAt" json:"computedAt"`
	Trend             ProgressTrend       `bson:"trend" json:"trend"`
	Confidence        float64             `bson:"confidence" json:"confidence"` // 0..1
	Stagnation        bool                `bson:"stagnation" json:"stagnation"`
	StagnationType    string              `bson:"stagnationType,omitempty" json:"stagnationType,omitempty"`
	Severity          StagnationSeverity  `bson:"severity,omitempty" json:"severity,omitempty"`
	RecommendedAction RecommendedAction   `bson:"recommendedAction" json:"recommendedAction"`
	RecommendedPhase  *Phase              `bson:"recommendedPhase,omitempty" json:"recommendedPhase,omitempty"`
	Decision          AnalysisDecision    `bson:"decision" json:"decision"`
	Feedback          string              `bson:"feedback,omitempty" json:"feedback,omitempty"`
	DecidedAt         *time.Time          `bson:"decidedAt,omitempty" json:"decidedAt,omitempty"`
}
