package service

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/logger"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidSession = errors.New("session requires a date and at least one muscle group")

// SessionService ingests workout-completion events from the serving layer.
// Recording a session stamps the trained muscle groups for recovery
// computation and marks the matching cached workout consumed, freezing it
// as history.
type SessionService interface {
	RecordSession(ctx context.Context, userID primitive.ObjectID, date time.Time, groups []domain.MuscleGroup, intensity int, rpe float64) (*domain.WorkoutSession, error)
}

type sessionService struct {
	sessionRepo repository.WorkoutSessionRepository
	cachedRepo  repository.CachedWorkoutRepository
	clock       Clock
	log         *logger.Logger
}

// NewSessionService creates a new instance of sessionService.
func NewSessionService(
	sessionRepo repository.WorkoutSessionRepository,
	cachedRepo repository.CachedWorkoutRepository,
	clock Clock,
	log *logger.Logger,
) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		cachedRepo:  cachedRepo,
		clock:       clock,
		log:         log,
	}
}

func (s *sessionService) RecordSession(ctx context.Context, userID primitive.ObjectID, date time.Time, groups []domain.MuscleGroup, intensity int, rpe float64) (*domain.WorkoutSession, error) {
	if userID == primitive.NilObjectID || date.IsZero() || len(groups) == 0 {
		return nil, ErrInvalidSession
	}

	session := &domain.WorkoutSession{
		UserID:       userID,
		Date:         domain.WorkoutDay(date),
		MuscleGroups: groups,
		Intensity:    intensity,
		RPE:          rpe,
		CompletedAt:  s.clock.Now(),
	}

	// Carry the split reference when the day had a cached workout, so
	// recovery can use the split's configured window.
	cached, err := s.cachedRepo.GetByUserAndDate(ctx, userID, session.Date)
	if err == nil {
		splitID := cached.SplitID
		session.SplitID = &splitID
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	id, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	session.ID = id

	if cached != nil && !cached.Consumed {
		if err := s.cachedRepo.MarkConsumed(ctx, userID, session.Date); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("failed to mark cached workout consumed",
				"user", userID.Hex(),
				"date", session.Date.Format("2006-01-02"),
				"error", err,
			)
		}
	}
	return session, nil
}
