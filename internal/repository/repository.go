package repository

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrConflict     = RepositoryError("conflict")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpdatePreferences(ctx context.Context, id primitive.ObjectID, weeklyFrequency int, trainingDays []int) error
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// SplitDefinitionRepository provides read access to the immutable split
// reference data, plus seeding for bootstrap.
type SplitDefinitionRepository interface {
	Seed(ctx context.Context, defs []domain.SplitDefinition) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SplitDefinition, error)
	GetByType(ctx context.Context, splitType domain.SplitType) ([]domain.SplitDefinition, error)
	GetAll(ctx context.Context) ([]domain.SplitDefinition, error)
}

// SplitAssignmentRepository defines the interface for day-of-week split
// assignments. ReplaceActive performs the atomic swap the resolver needs:
// deactivate the user's current active set, then insert the new one.
type SplitAssignmentRepository interface {
	ReplaceActive(ctx context.Context, userID primitive.ObjectID, assignments []domain.SplitAssignment) error
	GetActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error)
	GetActiveByUserAndDay(ctx context.Context, userID primitive.ObjectID, dayOfWeek int) (*domain.SplitAssignment, error)
	DeactivateAll(ctx context.Context, userID primitive.ObjectID) error
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MesocycleRepository defines the interface for mesocycle data.
type MesocycleRepository interface {
	Create(ctx context.Context, m *domain.Mesocycle) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Mesocycle, error)
	GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error)
	ListActive(ctx context.Context) ([]domain.Mesocycle, error)
	Complete(ctx context.Context, id primitive.ObjectID) error
	Update(ctx context.Context, m *domain.Mesocycle) error
}

// PhaseAnalysisRepository defines the interface for phase-analysis records.
type PhaseAnalysisRepository interface {
	Create(ctx context.Context, a *domain.PhaseAnalysis) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PhaseAnalysis, error)
	GetPendingByMesocycle(ctx context.Context, mesocycleID primitive.ObjectID) (*domain.PhaseAnalysis, error)
	GetPendingByUser(ctx context.Context, userID primitive.ObjectID) (*domain.PhaseAnalysis, error)
	Update(ctx context.Context, a *domain.PhaseAnalysis) error
}

// CachedWorkoutRepository defines the interface for the materialized
// workout cache. Upsert must never overwrite a consumed row.
type CachedWorkoutRepository interface {
	Upsert(ctx context.Context, w *domain.CachedWorkout) error
	GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.CachedWorkout, error)
	GetUnconsumedFrom(ctx context.Context, userID primitive.ObjectID, from time.Time) ([]domain.CachedWorkout, error)
	DeleteUnconsumedFrom(ctx context.Context, userID primitive.ObjectID, from time.Time) (int64, error)
	DeleteUnconsumedByID(ctx context.Context, id primitive.ObjectID) error
	MarkConsumed(ctx context.Context, userID primitive.ObjectID, date time.Time) error
	LatestDate(ctx context.Context, userID primitive.ObjectID) (time.Time, error)
}

// FrequencyChangeRepository defines the interface for frequency-change
// conflict records.
type FrequencyChangeRepository interface {
	Create(ctx context.Context, rec *domain.FrequencyChangeRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.FrequencyChangeRecord, error)
	GetPendingByUser(ctx context.Context, userID primitive.ObjectID) (*domain.FrequencyChangeRecord, error)
	Update(ctx context.Context, rec *domain.FrequencyChangeRecord) error
}

// ScheduledTaskRepository defines the interface for background tasks.
// ClaimPending performs the pending -> running transition atomically so two
// workers can never both pick up the same task.
type ScheduledTaskRepository interface {
	Create(ctx context.Context, t *domain.ScheduledTask) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduledTask, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledTask, error)
	ClaimPending(ctx context.Context, id primitive.ObjectID, now time.Time) (*domain.ScheduledTask, error)
	Complete(ctx context.Context, id primitive.ObjectID, result string, now time.Time) error
	Fail(ctx context.Context, id primitive.ObjectID, lastError string, retryAt *time.Time, now time.Time) error
	NextPending(ctx context.Context) (*domain.ScheduledTask, error)
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error)
	Exists(ctx context.Context, taskType domain.TaskType, userID primitive.ObjectID, notBefore time.Time) (bool, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// WorkoutSessionRepository defines the interface for completion events.
type WorkoutSessionRepository interface {
	Create(ctx context.Context, s *domain.WorkoutSession) (primitive.ObjectID, error)
	GetByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.WorkoutSession, error)
}
