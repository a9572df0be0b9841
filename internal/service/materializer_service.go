package service

import (
	"alcyxob/fitness-scheduler/internal/config"
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/logger"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrRestDay          = errors.New("no workout scheduled: rest day")
	ErrNoActiveSchedule = errors.New("user has no active split assignments")
)

// DateError records a single-date materialization failure. One bad date
// never aborts the rest of the horizon.
type DateError struct {
	Date time.Time `json:"date"`
	Err  string    `json:"error"`
}

// MaterializeResult summarizes one materialization pass.
type MaterializeResult struct {
	Created  int         `json:"created"`
	RestDays int         `json:"restDays"`
	Failed   []DateError `json:"failed,omitempty"`
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Removed  int `json:"removed"`
}

// MaterializerService owns the forward-looking workout cache: serving a
// workout is a lookup, never a recomputation. It is re-run behind every
// assignment swap, and its reconciliation pass is the automated repair for
// cache/assignment drift.
type MaterializerService interface {
	// Materialize ensures a CachedWorkout exists for every non-rest date
	// in [today, today+horizonDays) and matches the active assignment.
	// Idempotent: a second call without intervening changes is a no-op.
	Materialize(ctx context.Context, userID primitive.ObjectID, horizonDays int) (*MaterializeResult, error)

	// Invalidate removes unconsumed cached workouts dated on/after from.
	// Consumed workouts are history and are never touched.
	Invalidate(ctx context.Context, userID primitive.ObjectID, from time.Time) (int64, error)

	// Reconcile compares every unconsumed cached workout in the horizon
	// against the current active assignment and repairs mismatches,
	// then fills any gaps.
	Reconcile(ctx context.Context, userID primitive.ObjectID, horizonDays int) (*ReconcileResult, error)

	// GetWorkoutForDate is the serving-path lookup. On a cache miss it
	// falls back to materializing the single date on demand, and it
	// self-repairs a stale entry rather than serving it.
	GetWorkoutForDate(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.CachedWorkout, error)

	// HorizonShort reports whether the user's materialized horizon has
	// fewer than thresholdDays left, for the scheduler's top-up sweep.
	HorizonShort(ctx context.Context, userID primitive.ObjectID, thresholdDays int) (bool, error)
}

type materializerService struct {
	cachedRepo     repository.CachedWorkoutRepository
	assignmentRepo repository.SplitAssignmentRepository
	cfg            config.CacheConfig
	clock          Clock
	log            *logger.Logger
}

// NewMaterializerService creates a new instance of materializerService.
func NewMaterializerService(
	cachedRepo repository.CachedWorkoutRepository,
	assignmentRepo repository.SplitAssignmentRepository,
	cfg config.CacheConfig,
	clock Clock,
	log *logger.Logger,
) MaterializerService {
	return &materializerService{
		cachedRepo:     cachedRepo,
		assignmentRepo: assignmentRepo,
		cfg:            cfg,
		clock:          clock,
		log:            log,
	}
}

// activeWeek loads the user's active assignments keyed by day-of-week.
func (s *materializerService) activeWeek(ctx context.Context, userID primitive.ObjectID) (map[int]*domain.SplitAssignment, error) {
	assignments, err := s.assignmentRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	week := make(map[int]*domain.SplitAssignment, len(assignments))
	for i := range assignments {
		week[assignments[i].DayOfWeek] = &assignments[i]
	}
	return week, nil
}

func workoutFromAssignment(userID primitive.ObjectID, date time.Time, a *domain.SplitAssignment) *domain.CachedWorkout {
	return &domain.CachedWorkout{
		UserID:       userID,
		WorkoutDate:  domain.WorkoutDay(date),
		SplitID:      a.SplitID,
		SplitName:    a.SplitName,
		MuscleGroups: a.MuscleGroups,
	}
}

// Materialize walks the horizon date by date.
func (s *materializerService) Materialize(ctx context.Context, userID primitive.ObjectID, horizonDays int) (*MaterializeResult, error) {
	if userID == primitive.NilObjectID {
		return nil, errors.New("user ID is required")
	}
	if horizonDays <= 0 {
		horizonDays = s.cfg.HorizonDays
	}
	week, err := s.activeWeek(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &MaterializeResult{}
	today := domain.WorkoutDay(s.clock.Now())
	for i := 0; i < horizonDays; i++ {
		date := today.AddDate(0, 0, i)
		assignment, ok := week[int(date.Weekday())]
		if !ok {
			result.RestDays++
			continue
		}
		if err := s.cachedRepo.Upsert(ctx, workoutFromAssignment(userID, date, assignment)); err != nil {
			result.Failed = append(result.Failed, DateError{Date: date, Err: err.Error()})
			continue
		}
		result.Created++
	}
	if len(result.Failed) > 0 {
		s.log.Warn("materialization completed with failures",
			"user", userID.Hex(),
			"failed", len(result.Failed),
			"created", result.Created,
		)
	}
	return result, nil
}

// Invalidate removes the user's unconsumed cache from the given date on.
func (s *materializerService) Invalidate(ctx context.Context, userID primitive.ObjectID, from time.Time) (int64, error) {
	if userID == primitive.NilObjectID {
		return 0, errors.New("user ID is required")
	}
	return s.cachedRepo.DeleteUnconsumedFrom(ctx, userID, from)
}

// Reconcile is the corruption-repair pass: any unconsumed cached workout
// whose muscle-group list diverges from the active assignment for its
// day-of-week is regenerated (or removed if the day became a rest day),
// then missing horizon dates are filled in.
func (s *materializerService) Reconcile(ctx context.Context, userID primitive.ObjectID, horizonDays int) (*ReconcileResult, error) {
	if horizonDays <= 0 {
		horizonDays = s.cfg.HorizonDays
	}
	week, err := s.activeWeek(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := domain.WorkoutDay(s.clock.Now())
	cached, err := s.cachedRepo.GetUnconsumedFrom(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	for i := range cached {
		w := &cached[i]
		result.Checked++
		assignment, ok := week[int(w.WorkoutDate.Weekday())]
		if !ok {
			// The day became a rest day under the current assignment.
			if err := s.cachedRepo.DeleteUnconsumedByID(ctx, w.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return result, err
			}
			result.Removed++
			s.logRepair(userID, w.WorkoutDate, "stale entry on rest day removed")
			continue
		}
		if w.SplitID == assignment.SplitID && domain.MuscleGroupsEqual(w.MuscleGroups, assignment.MuscleGroups) {
			continue
		}
		if err := s.cachedRepo.Upsert(ctx, workoutFromAssignment(userID, w.WorkoutDate, assignment)); err != nil {
			return result, err
		}
		result.Repaired++
		s.logRepair(userID, w.WorkoutDate, "muscle-group mismatch regenerated")
	}

	// Fill gaps so the horizon is whole again after repairs.
	if _, err := s.Materialize(ctx, userID, horizonDays); err != nil {
		return result, err
	}
	return result, nil
}

func (s *materializerService) logRepair(userID primitive.ObjectID, date time.Time, detail string) {
	s.log.Warn("repaired cache corruption",
		"event", "repaired_corruption",
		"user", userID.Hex(),
		"date", date.Format("2006-01-02"),
		"detail", detail,
	)
}

// GetWorkoutForDate serves one day's workout.
func (s *materializerService) GetWorkoutForDate(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.CachedWorkout, error) {
	day := domain.WorkoutDay(date)
	cached, err := s.cachedRepo.GetByUserAndDate(ctx, userID, day)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if cached != nil && cached.Consumed {
		// Acted-upon history is served as-is regardless of later swaps.
		return cached, nil
	}

	assignment, aerr := s.assignmentRepo.GetActiveByUserAndDay(ctx, userID, int(day.Weekday()))
	if aerr != nil {
		if errors.Is(aerr, repository.ErrNotFound) {
			if cached != nil {
				// Stale entry on what is now a rest day.
				if derr := s.cachedRepo.DeleteUnconsumedByID(ctx, cached.ID); derr != nil && !errors.Is(derr, repository.ErrNotFound) {
					return nil, derr
				}
				s.logRepair(userID, day, "stale entry on rest day removed")
			}
			return nil, ErrRestDay
		}
		return nil, aerr
	}

	if cached != nil {
		if cached.SplitID == assignment.SplitID && domain.MuscleGroupsEqual(cached.MuscleGroups, assignment.MuscleGroups) {
			return cached, nil
		}
		s.logRepair(userID, day, "muscle-group mismatch regenerated on read")
	}

	// Cache miss or stale: materialize this single date on demand.
	w := workoutFromAssignment(userID, day, assignment)
	if err := s.cachedRepo.Upsert(ctx, w); err != nil {
		return nil, err
	}
	return s.cachedRepo.GetByUserAndDate(ctx, userID, day)
}

// HorizonShort checks the furthest materialized date against the threshold.
func (s *materializerService) HorizonShort(ctx context.Context, userID primitive.ObjectID, thresholdDays int) (bool, error) {
	if thresholdDays <= 0 {
		thresholdDays = s.cfg.TopUpThresholdDays
	}
	latest, err := s.cachedRepo.LatestDate(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	edge := domain.WorkoutDay(s.clock.Now()).AddDate(0, 0, thresholdDays)
	return latest.Before(edge), nil
}
