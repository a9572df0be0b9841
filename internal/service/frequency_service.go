package service

import (
	"alcyxob/fitness-scheduler/internal/config"
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/logger"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrPendingChangeExists = errors.New("a pending frequency change already exists for this user")
	ErrChangeNotFound      = errors.New("frequency change record not found")
	ErrChangeNotPending    = errors.New("frequency change record is already decided")
	ErrChangeNotOwned      = errors.New("frequency change record does not belong to this user")
	ErrInvalidChoice       = errors.New("decision must be keep_current or create_new")
)

// Default length of a training block when a new mesocycle starts.
const defaultDurationWeeks = 8

// FrequencyChangeService detects divergence between a user's declared
// weekly frequency and the frequency their active mesocycle was built for,
// and gates all cache regeneration behind an explicit user decision. It
// never decides automatically.
type FrequencyChangeService interface {
	// UpdatePreferences persists the declared preferences. When the new
	// frequency diverges from the active mesocycle's it creates and
	// returns a pending FrequencyChangeRecord instead of mutating
	// anything; with no active mesocycle it bootstraps one directly.
	// A nil record means no conflict.
	UpdatePreferences(ctx context.Context, userID primitive.ObjectID, weeklyFrequency int, trainingDays []int) (*domain.FrequencyChangeRecord, error)

	GetPending(ctx context.Context, userID primitive.ObjectID) (*domain.FrequencyChangeRecord, error)

	// Decide resolves the pending record: keep_current closes it and
	// leaves assignments and cache untouched; create_new replaces the
	// mesocycle and regenerates assignments and cache.
	Decide(ctx context.Context, userID, recordID primitive.ObjectID, decision domain.FrequencyDecision, reason string) (*domain.FrequencyChangeRecord, error)

	// StartNewMesocycle builds a fresh block at the given frequency:
	// resolve, swap assignments, invalidate, materialize. The caller must
	// have completed any previously active mesocycle.
	StartNewMesocycle(ctx context.Context, userID primitive.ObjectID, frequency int, phase domain.Phase) (*domain.Mesocycle, error)

	// RolloverExpired completes mesocycles past their end date and starts
	// replacements at each user's declared frequency. Driven by the
	// background scheduler.
	RolloverExpired(ctx context.Context) (int, error)
}

type frequencyService struct {
	userRepo      repository.UserRepository
	mesocycleRepo repository.MesocycleRepository
	changeRepo    repository.FrequencyChangeRepository
	mesocycles    MesocycleService
	resolver      SplitResolver
	materializer  MaterializerService
	assignmentRepo repository.SplitAssignmentRepository
	cacheCfg      config.CacheConfig
	locks         *UserLocks
	clock         Clock
	log           *logger.Logger
}

// NewFrequencyChangeService creates a new instance of frequencyService.
func NewFrequencyChangeService(
	userRepo repository.UserRepository,
	mesocycleRepo repository.MesocycleRepository,
	changeRepo repository.FrequencyChangeRepository,
	mesocycles MesocycleService,
	resolver SplitResolver,
	materializer MaterializerService,
	assignmentRepo repository.SplitAssignmentRepository,
	cacheCfg config.CacheConfig,
	locks *UserLocks,
	clock Clock,
	log *logger.Logger,
) FrequencyChangeService {
	return &frequencyService{
		userRepo:       userRepo,
		mesocycleRepo:  mesocycleRepo,
		changeRepo:     changeRepo,
		mesocycles:     mesocycles,
		resolver:       resolver,
		materializer:   materializer,
		assignmentRepo: assignmentRepo,
		cacheCfg:       cacheCfg,
		locks:          locks,
		clock:          clock,
		log:            log,
	}
}

func (s *frequencyService) UpdatePreferences(ctx context.Context, userID primitive.ObjectID, weeklyFrequency int, trainingDays []int) (*domain.FrequencyChangeRecord, error) {
	if weeklyFrequency < 0 || weeklyFrequency > 7 {
		return nil, ErrInvalidFrequency
	}
	defer s.locks.Lock(userID)()

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdatePreferences(ctx, userID, weeklyFrequency, trainingDays); err != nil {
		return nil, err
	}

	active, err := s.mesocycleRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// First configuration: no conflict possible, bootstrap directly.
		if weeklyFrequency >= 1 {
			if _, err := s.startNewLocked(ctx, userID, weeklyFrequency, domain.PhaseHypertrophy); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	if active.Frequency == weeklyFrequency {
		// Same frequency: only the preferred days moved. Re-resolve and
		// swap so the mapping follows the declared days.
		if len(trainingDays) == weeklyFrequency {
			if err := s.swapAssignmentsLocked(ctx, userID, weeklyFrequency); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	if existing, err := s.changeRepo.GetPendingByUser(ctx, userID); err == nil {
		return existing, ErrPendingChangeExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	mesoID := active.ID
	rec := &domain.FrequencyChangeRecord{
		UserID:             userID,
		OldFrequency:       active.Frequency,
		NewFrequency:       weeklyFrequency,
		OldSplitType:       active.SplitType,
		SuggestedSplitType: s.resolver.FamilyFor(weeklyFrequency),
		RemainingWeeks:     active.RemainingWeeks(now),
		MesocycleID:        &mesoID,
		Decision:           domain.FrequencyPending,
	}
	id, err := s.changeRepo.Create(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			if existing, gerr := s.changeRepo.GetPendingByUser(ctx, userID); gerr == nil {
				return existing, ErrPendingChangeExists
			}
		}
		return nil, err
	}
	rec.ID = id
	s.log.Info("frequency change detected",
		"user", userID.Hex(),
		"old", rec.OldFrequency,
		"new", rec.NewFrequency,
		"remainingWeeks", rec.RemainingWeeks,
	)
	return rec, nil
}

func (s *frequencyService) GetPending(ctx context.Context, userID primitive.ObjectID) (*domain.FrequencyChangeRecord, error) {
	rec, err := s.changeRepo.GetPendingByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChangeNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *frequencyService) Decide(ctx context.Context, userID, recordID primitive.ObjectID, decision domain.FrequencyDecision, reason string) (*domain.FrequencyChangeRecord, error) {
	if decision != domain.FrequencyKeepCurrent && decision != domain.FrequencyCreateNew {
		return nil, ErrInvalidChoice
	}
	defer s.locks.Lock(userID)()

	rec, err := s.changeRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChangeNotFound
		}
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrChangeNotOwned
	}
	if rec.Decision != domain.FrequencyPending {
		return nil, ErrChangeNotPending
	}

	if decision == domain.FrequencyCreateNew {
		// Complete the old block first: a crash after this point can only
		// leave the user without an active mesocycle, never with two, and
		// the rollover sweep rebuilds the missing state.
		active, err := s.mesocycleRepo.GetActiveByUser(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		phase := domain.PhaseHypertrophy
		if active != nil {
			phase = active.CurrentPhase
			if err := s.mesocycleRepo.Complete(ctx, active.ID); err != nil {
				return nil, err
			}
		}
		if _, err := s.startNewLocked(ctx, userID, rec.NewFrequency, phase); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	rec.Decision = decision
	rec.Reason = reason
	rec.DecidedAt = &now
	if err := s.changeRepo.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info("frequency change resolved",
		"user", userID.Hex(),
		"decision", decision,
	)
	return rec, nil
}

func (s *frequencyService) StartNewMesocycle(ctx context.Context, userID primitive.ObjectID, frequency int, phase domain.Phase) (*domain.Mesocycle, error) {
	defer s.locks.Lock(userID)()
	return s.startNewLocked(ctx, userID, frequency, phase)
}

// startNewLocked builds the new block. Callers hold the user lock.
// Frequency 0 tears the schedule down: no mesocycle, no assignments,
// no future cache.
func (s *frequencyService) startNewLocked(ctx context.Context, userID primitive.ObjectID, frequency int, phase domain.Phase) (*domain.Mesocycle, error) {
	schedule, err := s.resolver.Resolve(ctx, userID, frequency)
	if err != nil {
		return nil, err
	}
	for _, w := range schedule.Warnings {
		s.log.Warn("schedule resolved with warning", "user", userID.Hex(), "warning", w)
	}

	today := domain.WorkoutDay(s.clock.Now())
	if frequency == 0 {
		if err := s.assignmentRepo.DeactivateAll(ctx, userID); err != nil {
			return nil, err
		}
		if _, err := s.materializer.Invalidate(ctx, userID, today); err != nil {
			return nil, err
		}
		return nil, nil
	}

	m, err := s.mesocycles.Create(ctx, userID, schedule.SplitType, frequency, defaultDurationWeeks, phase)
	if err != nil {
		return nil, err
	}
	if err := s.assignmentRepo.ReplaceActive(ctx, userID, schedule.Assignments(userID)); err != nil {
		return nil, err
	}
	// Strictly ordered under the user lock: stale cache out, new cache in.
	if _, err := s.materializer.Invalidate(ctx, userID, today); err != nil {
		return nil, err
	}
	if _, err := s.materializer.Materialize(ctx, userID, s.cacheCfg.HorizonDays); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *frequencyService) RolloverExpired(ctx context.Context) (int, error) {
	cycles, err := s.mesocycleRepo.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	rolled := 0
	for i := range cycles {
		m := &cycles[i]
		if m.EndDate.After(now) {
			continue
		}
		if err := s.rolloverOne(ctx, m); err != nil {
			s.log.Error("mesocycle rollover failed", "user", m.UserID.Hex(), "mesocycle", m.ID.Hex(), "error", err)
			continue
		}
		rolled++
	}
	return rolled, nil
}

func (s *frequencyService) rolloverOne(ctx context.Context, m *domain.Mesocycle) error {
	defer s.locks.Lock(m.UserID)()

	user, err := s.userRepo.GetByID(ctx, m.UserID)
	if err != nil {
		return err
	}
	if err := s.mesocycleRepo.Complete(ctx, m.ID); err != nil {
		return err
	}

	// A conflict still pending when the block runs out resolves itself:
	// the old block was kept to its natural end, and the replacement is
	// built at the declared frequency.
	if rec, err := s.changeRepo.GetPendingByUser(ctx, m.UserID); err == nil {
		now := s.clock.Now()
		rec.Decision = domain.FrequencyKeepCurrent
		rec.Reason = "mesocycle completed before decision"
		rec.DecidedAt = &now
		if err := s.changeRepo.Update(ctx, rec); err != nil {
			return err
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if user.WeeklyFrequency < 1 {
		return nil
	}
	_, err = s.startNewLocked(ctx, m.UserID, user.WeeklyFrequency, m.CurrentPhase)
	if err == nil {
		s.log.Info("mesocycle rolled over",
			"user", m.UserID.Hex(),
			"frequency", user.WeeklyFrequency,
		)
	}
	return err
}

// swapAssignmentsLocked re-resolves the weekly mapping at an unchanged
// frequency (preferred-day moves, manual overrides) and rebuilds the cache.
func (s *frequencyService) swapAssignmentsLocked(ctx context.Context, userID primitive.ObjectID, frequency int) error {
	schedule, err := s.resolver.Resolve(ctx, userID, frequency)
	if err != nil {
		return err
	}
	if err := s.assignmentRepo.ReplaceActive(ctx, userID, schedule.Assignments(userID)); err != nil {
		return err
	}
	today := domain.WorkoutDay(s.clock.Now())
	if _, err := s.materializer.Invalidate(ctx, userID, today); err != nil {
		return err
	}
	_, err = s.materializer.Materialize(ctx, userID, s.cacheCfg.HorizonDays)
	return err
}
