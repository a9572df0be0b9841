package service

import (
	"alcyxob/fitness-scheduler/internal/config"
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecoveryState classifies a muscle group's readiness.
type RecoveryState string

const (
	RecoveryReady      RecoveryState = "ready"
	RecoveryRecovering RecoveryState = "recovering"
	RecoveryOverdue    RecoveryState = "overdue" // Past expected retraining with no new session; a scheduling gap, not a block
)

// MuscleRecovery is the computed recovery view for one muscle group.
type MuscleRecovery struct {
	MuscleGroup   domain.MuscleGroup `json:"muscleGroup"`
	State         RecoveryState      `json:"state"`
	LastTrained   *time.Time         `json:"lastTrained,omitempty"`
	NextAvailable *time.Time         `json:"nextAvailable,omitempty"`
}

// RecoveryService computes per-muscle-group recovery windows from workout
// history. Pure computation over stored facts: nothing here is persisted,
// so there is never a second source of truth to drift.
type RecoveryService interface {
	GetRecoveryStatus(ctx context.Context, userID primitive.ObjectID) ([]MuscleRecovery, error)
	StatusFor(ctx context.Context, userID primitive.ObjectID, group domain.MuscleGroup) (*MuscleRecovery, error)
}

type recoveryService struct {
	sessionRepo repository.WorkoutSessionRepository
	splitRepo   repository.SplitDefinitionRepository
	userRepo    repository.UserRepository
	cfg         config.RecoveryConfig
	clock       Clock
}

// NewRecoveryService creates a new instance of recoveryService.
func NewRecoveryService(
	sessionRepo repository.WorkoutSessionRepository,
	splitRepo repository.SplitDefinitionRepository,
	userRepo repository.UserRepository,
	cfg config.RecoveryConfig,
	clock Clock,
) RecoveryService {
	return &recoveryService{
		sessionRepo: sessionRepo,
		splitRepo:   splitRepo,
		userRepo:    userRepo,
		cfg:         cfg,
		clock:       clock,
	}
}

// allMuscleGroups is the canonical order for recovery reporting.
var allMuscleGroups = []domain.MuscleGroup{
	domain.MuscleChest, domain.MuscleBack, domain.MuscleShoulders,
	domain.MuscleBiceps, domain.MuscleTriceps, domain.MuscleQuads,
	domain.MuscleHamstrings, domain.MuscleGlutes, domain.MuscleCalves,
	domain.MuscleCore,
}

// GetRecoveryStatus computes the recovery state of every muscle group.
// With no history everything starts ready.
func (s *recoveryService) GetRecoveryStatus(ctx context.Context, userID primitive.ObjectID) ([]MuscleRecovery, error) {
	if userID == primitive.NilObjectID {
		return nil, errors.New("user ID is required")
	}
	now := s.clock.Now()
	since := now.AddDate(0, 0, -s.cfg.LookbackDays)
	sessions, err := s.sessionRepo.GetByUserSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	frequency := 0
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
		frequency = user.WeeklyFrequency
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	statuses := make([]MuscleRecovery, 0, len(allMuscleGroups))
	for _, group := range allMuscleGroups {
		statuses = append(statuses, s.computeStatus(ctx, group, sessions, frequency, now))
	}
	return statuses, nil
}

// StatusFor computes the recovery state of a single muscle group.
func (s *recoveryService) StatusFor(ctx context.Context, userID primitive.ObjectID, group domain.MuscleGroup) (*MuscleRecovery, error) {
	statuses, err := s.GetRecoveryStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range statuses {
		if statuses[i].MuscleGroup == group {
			return &statuses[i], nil
		}
	}
	return nil, errors.New("unknown muscle group")
}

func (s *recoveryService) computeStatus(ctx context.Context, group domain.MuscleGroup, sessions []domain.WorkoutSession, frequency int, now time.Time) MuscleRecovery {
	// Sessions arrive newest first; the first hit is the last training.
	for _, sess := range sessions {
		for _, g := range sess.MuscleGroups {
			if g != group {
				continue
			}
			lastTrained := sess.CompletedAt
			hours := s.recoveryHours(ctx, &sess)
			nextAvailable := lastTrained.Add(time.Duration(float64(hours)*s.intensityFactor(sess.Intensity)) * time.Hour)

			state := RecoveryRecovering
			if !now.Before(nextAvailable) {
				state = RecoveryReady
				if frequency > 0 {
					cycle := time.Duration(float64(7*24)/float64(frequency)) * time.Hour
					if now.After(nextAvailable.Add(cycle)) {
						state = RecoveryOverdue
					}
				}
			}
			return MuscleRecovery{
				MuscleGroup:   group,
				State:         state,
				LastTrained:   &lastTrained,
				NextAvailable: &nextAvailable,
			}
		}
	}
	// Never trained in the lookback window.
	return MuscleRecovery{MuscleGroup: group, State: RecoveryReady}
}

// recoveryHours resolves the base recovery window: the split's configured
// hours when the session references one, otherwise the default.
func (s *recoveryService) recoveryHours(ctx context.Context, sess *domain.WorkoutSession) int {
	if sess.SplitID != nil {
		if def, err := s.splitRepo.GetByID(ctx, *sess.SplitID); err == nil && def.RecoveryHours > 0 {
			return def.RecoveryHours
		}
	}
	return s.cfg.DefaultHours
}

// intensityFactor interpolates linearly between the configured bounds:
// intensity 1 maps to MinIntensityFactor, intensity 10 to
// MaxIntensityFactor. Unset intensity leaves the window unscaled.
func (s *recoveryService) intensityFactor(intensity int) float64 {
	if intensity < 1 || intensity > 10 {
		return 1.0
	}
	min, max := s.cfg.MinIntensityFactor, s.cfg.MaxIntensityFactor
	if min <= 0 || max <= 0 || max < min {
		return 1.0
	}
	return min + (max-min)*float64(intensity-1)/9.0
}
