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
	ErrNoActiveMesocycle     = errors.New("user has no active mesocycle")
	ErrActiveMesocycleExists = errors.New("user already has an active mesocycle")
	ErrAnalysisNotFound      = errors.New("phase analysis not found")
	ErrAnalysisNotPending    = errors.New("phase analysis is already decided")
	ErrAnalysisNotOwned      = errors.New("phase analysis does not belong to this user")
	ErrInvalidDecision       = errors.New("decision must be accepted or rejected")
)

// MesocycleService owns the phase state machine. Phases only change through
// a pending analysis the user accepted; everything else leaves the phase
// and its weeks-in-phase counter untouched.
type MesocycleService interface {
	Create(ctx context.Context, userID primitive.ObjectID, splitType domain.SplitType, frequency, durationWeeks int, initialPhase domain.Phase) (*domain.Mesocycle, error)
	GetActive(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error)

	// RunAnalysis produces a new pending analysis for the user's active
	// mesocycle. Idempotent: when a pending analysis already exists the
	// call is a no-op and returns the existing record, preventing
	// duplicate prompts.
	RunAnalysis(ctx context.Context, userID primitive.ObjectID) (*domain.PhaseAnalysis, error)
	GetPendingAnalysis(ctx context.Context, userID primitive.ObjectID) (*domain.PhaseAnalysis, error)
	DecideAnalysis(ctx context.Context, userID, analysisID primitive.ObjectID, decision domain.AnalysisDecision, feedback string) (*domain.PhaseAnalysis, error)

	// TickWeeks advances weeks-in-phase one tick per elapsed calendar week
	// for every active mesocycle. Driven by the background scheduler.
	TickWeeks(ctx context.Context) (int, error)
}

type mesocycleService struct {
	mesocycleRepo repository.MesocycleRepository
	analysisRepo  repository.PhaseAnalysisRepository
	sessionRepo   repository.WorkoutSessionRepository
	cfg           config.AnalysisConfig
	clock         Clock
	log           *logger.Logger
}

// NewMesocycleService creates a new instance of mesocycleService.
func NewMesocycleService(
	mesocycleRepo repository.MesocycleRepository,
	analysisRepo repository.PhaseAnalysisRepository,
	sessionRepo repository.WorkoutSessionRepository,
	cfg config.AnalysisConfig,
	clock Clock,
	log *logger.Logger,
) MesocycleService {
	return &mesocycleService{
		mesocycleRepo: mesocycleRepo,
		analysisRepo:  analysisRepo,
		sessionRepo:   sessionRepo,
		cfg:           cfg,
		clock:         clock,
		log:           log,
	}
}

// Create starts a new mesocycle for the user. Fails with
// ErrActiveMesocycleExists if one is already active; callers that replace a
// block must complete the old one first.
func (s *mesocycleService) Create(ctx context.Context, userID primitive.ObjectID, splitType domain.SplitType, frequency, durationWeeks int, initialPhase domain.Phase) (*domain.Mesocycle, error) {
	if userID == primitive.NilObjectID || frequency < 1 || durationWeeks < 1 {
		return nil, errors.New("user ID, frequency and duration are required")
	}
	if initialPhase == "" {
		initialPhase = domain.PhaseHypertrophy
	}
	if !initialPhase.IsValid() || !splitType.IsValid() {
		return nil, errors.New("invalid phase or split type")
	}

	if _, err := s.mesocycleRepo.GetActiveByUser(ctx, userID); err == nil {
		return nil, ErrActiveMesocycleExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	m := &domain.Mesocycle{
		UserID:        userID,
		SplitType:     splitType,
		Frequency:     frequency,
		StartDate:     now,
		EndDate:       now.AddDate(0, 0, durationWeeks*7),
		DurationWeeks: durationWeeks,
		Status:        domain.MesocycleActive,
		CurrentPhase:  initialPhase,
		WeeksInPhase:  0,
		LastPhaseTick: now,
	}
	id, err := s.mesocycleRepo.Create(ctx, m)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrActiveMesocycleExists
		}
		return nil, err
	}
	m.ID = id
	return m, nil
}

// GetActive retrieves the user's active mesocycle.
func (s *mesocycleService) GetActive(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
	m, err := s.mesocycleRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveMesocycle
		}
		return nil, err
	}
	return m, nil
}

// RunAnalysis classifies recent training against the active mesocycle.
func (s *mesocycleService) RunAnalysis(ctx context.Context, userID primitive.ObjectID) (*domain.PhaseAnalysis, error) {
	m, err := s.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.analysisRepo.GetPendingByMesocycle(ctx, m.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	analysis := s.classify(ctx, m)
	id, err := s.analysisRepo.Create(ctx, analysis)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with another analysis run; defer to the winner.
			return s.analysisRepo.GetPendingByMesocycle(ctx, m.ID)
		}
		return nil, err
	}
	analysis.ID = id
	s.log.Info("phase analysis produced",
		"user", userID.Hex(),
		"mesocycle", m.ID.Hex(),
		"action", analysis.RecommendedAction,
		"confidence", analysis.Confidence,
		"stagnation", analysis.Stagnation,
	)
	return analysis, nil
}

// classify runs the stagnation heuristic over a four-week window.
// Completion rate below the configured floor or a phase held past its
// maximum weeks reads as stagnation. A confidence below the configured
// threshold always yields continue: low-confidence recommendations are
// never surfaced as if certain.
func (s *mesocycleService) classify(ctx context.Context, m *domain.Mesocycle) *domain.PhaseAnalysis {
	now := s.clock.Now()
	const windowWeeks = 4
	windowStart := now.AddDate(0, 0, -windowWeeks*7)
	if windowStart.Before(m.StartDate) {
		windowStart = m.StartDate
	}
	weeksObserved := now.Sub(windowStart).Hours() / (24 * 7)

	analysis := &domain.PhaseAnalysis{
		MesocycleID:       m.ID,
		UserID:            m.UserID,
		ComputedAt:        now,
		Trend:             domain.TrendSteady,
		RecommendedAction: domain.ActionContinue,
		Decision:          domain.DecisionPending,
	}

	sessions, err := s.sessionRepo.GetByUserSince(ctx, m.UserID, windowStart)
	if err != nil || weeksObserved < 1 {
		// Not enough signal; continue with zero confidence.
		analysis.Confidence = 0
		return analysis
	}

	expected := float64(m.Frequency) * weeksObserved
	completionRate := 1.0
	if expected > 0 {
		completionRate = float64(len(sessions)) / expected
		if completionRate > 1 {
			completionRate = 1
		}
	}

	// Confidence grows with the share of expected sessions observed.
	analysis.Confidence = completionRate
	if weeksObserved < windowWeeks {
		analysis.Confidence *= weeksObserved / windowWeeks
	}

	older, recent := splitWindow(sessions, windowStart, now)
	switch {
	case recent > older:
		analysis.Trend = domain.TrendImproving
	case recent < older:
		analysis.Trend = domain.TrendDeclining
	}

	if completionRate < s.cfg.StagnationCompletionRate {
		analysis.Stagnation = true
		analysis.StagnationType = "low_completion"
		analysis.Severity = domain.SeverityModerate
		if completionRate < s.cfg.StagnationCompletionRate/2 {
			analysis.Severity = domain.SeveritySevere
		}
	} else if m.WeeksInPhase >= s.cfg.MaxWeeksPerPhase {
		analysis.Stagnation = true
		analysis.StagnationType = "phase_fatigue"
		analysis.Severity = domain.SeverityMild
		if analysis.Trend == domain.TrendDeclining {
			analysis.Severity = domain.SeverityModerate
		}
	}

	if analysis.Confidence < s.cfg.MinConfidence {
		return analysis
	}
	if !analysis.Stagnation {
		return analysis
	}

	if analysis.Severity == domain.SeveritySevere {
		analysis.RecommendedAction = domain.ActionDeload
		return analysis
	}
	next := nextPhase(m.CurrentPhase)
	analysis.RecommendedAction = domain.ActionChangePhase
	analysis.RecommendedPhase = &next
	return analysis
}

// splitWindow counts sessions in the older and the more recent half of the
// window, the volume-trend input.
func splitWindow(sessions []domain.WorkoutSession, start, end time.Time) (older, recent int) {
	mid := start.Add(end.Sub(start) / 2)
	for _, sess := range sessions {
		if sess.CompletedAt.Before(mid) {
			older++
		} else {
			recent++
		}
	}
	return older, recent
}

// nextPhase is the canonical phase rotation.
func nextPhase(p domain.Phase) domain.Phase {
	switch p {
	case domain.PhaseStrength:
		return domain.PhaseHypertrophy
	case domain.PhaseHypertrophy:
		return domain.PhaseDefinition
	case domain.PhaseDefinition:
		return domain.PhaseRecovery
	default:
		return domain.PhaseStrength
	}
}

// GetPendingAnalysis retrieves the user's pending analysis, if any.
func (s *mesocycleService) GetPendingAnalysis(ctx context.Context, userID primitive.ObjectID) (*domain.PhaseAnalysis, error) {
	a, err := s.analysisRepo.GetPendingByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return a, nil
}

// DecideAnalysis applies the user's verdict. Accepting a change_phase
// recommendation transitions the mesocycle's phase and resets its
// weeks-in-phase counter; accepting deload/rest/change_exercises adjusts
// per-workout parameters downstream and leaves the phase alone. A rejected
// analysis is retained untouched for audit.
func (s *mesocycleService) DecideAnalysis(ctx context.Context, userID, analysisID primitive.ObjectID, decision domain.AnalysisDecision, feedback string) (*domain.PhaseAnalysis, error) {
	if decision != domain.DecisionAccepted && decision != domain.DecisionRejected {
		return nil, ErrInvalidDecision
	}
	analysis, err := s.analysisRepo.GetByID(ctx, analysisID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	if analysis.UserID != userID {
		return nil, ErrAnalysisNotOwned
	}
	if analysis.Decision != domain.DecisionPending {
		return nil, ErrAnalysisNotPending
	}

	now := s.clock.Now()
	analysis.Decision = decision
	analysis.Feedback = feedback
	analysis.DecidedAt = &now
	if err := s.analysisRepo.Update(ctx, analysis); err != nil {
		return nil, err
	}

	if decision == domain.DecisionAccepted &&
		analysis.RecommendedAction == domain.ActionChangePhase &&
		analysis.RecommendedPhase != nil {
		m, err := s.mesocycleRepo.GetByID(ctx, analysis.MesocycleID)
		if err != nil {
			return nil, err
		}
		m.CurrentPhase = *analysis.RecommendedPhase
		m.WeeksInPhase = 0
		m.LastPhaseTick = now
		if err := s.mesocycleRepo.Update(ctx, m); err != nil {
			return nil, err
		}
		s.log.Info("phase transition applied",
			"user", userID.Hex(),
			"mesocycle", m.ID.Hex(),
			"phase", m.CurrentPhase,
		)
	}
	return analysis, nil
}

// TickWeeks advances weeks-in-phase for every active mesocycle with one or
// more whole calendar weeks elapsed since its last tick.
func (s *mesocycleService) TickWeeks(ctx context.Context) (int, error) {
	cycles, err := s.mesocycleRepo.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	ticked := 0
	for i := range cycles {
		m := &cycles[i]
		advanced := false
		for now.Sub(m.LastPhaseTick) >= 7*24*time.Hour {
			m.WeeksInPhase++
			m.LastPhaseTick = m.LastPhaseTick.AddDate(0, 0, 7)
			advanced = true
		}
		if !advanced {
			continue
		}
		if err := s.mesocycleRepo.Update(ctx, m); err != nil {
			return ticked, err
		}
		ticked++
	}
	return ticked, nil
}
