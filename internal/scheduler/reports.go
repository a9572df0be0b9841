package scheduler

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"alcyxob/fitness-scheduler/internal/service"
	"alcyxob/fitness-scheduler/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Period selects the report lookback window.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func (p Period) days() int {
	if p == PeriodMonthly {
		return 30
	}
	return 7
}

// trainingReport is the JSON artifact uploaded to object storage. Only the
// object key is persisted (as the task result); the artifact itself is
// served via presigned URLs.
type trainingReport struct {
	UserID        string                        `json:"userId"`
	Period        Period                        `json:"period"`
	From          time.Time                     `json:"from"`
	To            time.Time                     `json:"to"`
	Sessions      int                           `json:"sessions"`
	SetsPerMuscle map[domain.MuscleGroup]int    `json:"sessionsPerMuscle"`
	AvgIntensity  float64                       `json:"avgIntensity"`
	AvgRPE        float64                       `json:"avgRpe"`
	Mesocycle     *reportMesocycle              `json:"mesocycle,omitempty"`
	GeneratedAt   time.Time                     `json:"generatedAt"`
}

type reportMesocycle struct {
	Phase          domain.Phase `json:"phase"`
	WeeksInPhase   int          `json:"weeksInPhase"`
	WeeksElapsed   int          `json:"weeksElapsed"`
	RemainingWeeks int          `json:"remainingWeeks"`
	Frequency      int          `json:"frequency"`
}

// ReportGenerator builds per-user training summaries and uploads them as
// JSON artifacts.
type ReportGenerator struct {
	sessionRepo   repository.WorkoutSessionRepository
	mesocycleRepo repository.MesocycleRepository
	files         storage.FileStorage
	clock         service.Clock
}

// NewReportGenerator creates a new instance of ReportGenerator.
func NewReportGenerator(
	sessionRepo repository.WorkoutSessionRepository,
	mesocycleRepo repository.MesocycleRepository,
	files storage.FileStorage,
	clock service.Clock,
) *ReportGenerator {
	return &ReportGenerator{
		sessionRepo:   sessionRepo,
		mesocycleRepo: mesocycleRepo,
		files:         files,
		clock:         clock,
	}
}

// Generate summarizes the user's training over the period, uploads the
// artifact, and returns its object key.
func (g *ReportGenerator) Generate(ctx context.Context, userID primitive.ObjectID, period Period) (string, error) {
	now := g.clock.Now()
	from := now.AddDate(0, 0, -period.days())

	sessions, err := g.sessionRepo.GetByUserSince(ctx, userID, from)
	if err != nil {
		return "", fmt.Errorf("loading sessions for report: %w", err)
	}

	report := trainingReport{
		UserID:        userID.Hex(),
		Period:        period,
		From:          from,
		To:            now,
		Sessions:      len(sessions),
		SetsPerMuscle: make(map[domain.MuscleGroup]int),
		GeneratedAt:   now,
	}
	var intensitySum, rpeSum float64
	for i := range sessions {
		sess := &sessions[i]
		for _, mg := range sess.MuscleGroups {
			report.SetsPerMuscle[mg]++
		}
		intensitySum += float64(sess.Intensity)
		rpeSum += sess.RPE
	}
	if len(sessions) > 0 {
		report.AvgIntensity = intensitySum / float64(len(sessions))
		report.AvgRPE = rpeSum / float64(len(sessions))
	}

	active, err := g.mesocycleRepo.GetActiveByUser(ctx, userID)
	if err == nil {
		report.Mesocycle = &reportMesocycle{
			Phase:          active.CurrentPhase,
			WeeksInPhase:   active.WeeksInPhase,
			WeeksElapsed:   active.WeeksElapsed(now),
			RemainingWeeks: active.RemainingWeeks(now),
			Frequency:      active.Frequency,
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("loading mesocycle for report: %w", err)
	}

	body, err := json.Marshal(report)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("reports/%s/%s/%s.json", userID.Hex(), period, uuid.New().String())
	if err := g.files.Upload(ctx, key, body, "application/json"); err != nil {
		return "", fmt.Errorf("uploading report artifact: %w", err)
	}
	return key, nil
}
