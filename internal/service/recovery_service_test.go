package service

import (
	"alcyxob/fitness-scheduler/internal/config"
	"alcyxob/fitness-scheduler/internal/domain"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testRecoveryConfig = config.RecoveryConfig{
	DefaultHours:       48,
	MinIntensityFactor: 0.75,
	MaxIntensityFactor: 1.5,
	LookbackDays:       30,
}

func newTestRecovery(t *testing.T, now time.Time) (RecoveryService, *fakeSessionRepo, *fakeUserRepo, *fakeClock) {
	t.Helper()
	sessions := newFakeSessionRepo()
	users := newFakeUserRepo()
	splits := newFakeSplitRepo(domain.DefaultSplitDefinitions())
	clock := newFakeClock(now)
	return NewRecoveryService(sessions, splits, users, testRecoveryConfig, clock), sessions, users, clock
}

func TestGetRecoveryStatus_NoHistoryAllReady(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc, _, users, _ := newTestRecovery(t, now)
	userID := users.addUser(&domain.User{Email: "fresh@example.com", WeeklyFrequency: 3})

	statuses, err := svc.GetRecoveryStatus(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, statuses, 10)
	for _, s := range statuses {
		assert.Equal(t, RecoveryReady, s.State, "muscle %s", s.MuscleGroup)
		assert.Nil(t, s.LastTrained)
	}
}

func TestGetRecoveryStatus_TrainedMuscleRecovers(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc, sessions, users, clock := newTestRecovery(t, now)
	userID := users.addUser(&domain.User{Email: "chest@example.com", WeeklyFrequency: 3})

	_, err := sessions.Create(context.Background(), &domain.WorkoutSession{
		UserID:       userID,
		Date:         domain.WorkoutDay(now),
		MuscleGroups: []domain.MuscleGroup{domain.MuscleChest, domain.MuscleTriceps},
		CompletedAt:  now,
	})
	require.NoError(t, err)

	status, err := svc.StatusFor(context.Background(), userID, domain.MuscleChest)
	require.NoError(t, err)
	assert.Equal(t, RecoveryRecovering, status.State)
	require.NotNil(t, status.NextAvailable)
	// Intensity unset leaves the default 48h window unscaled.
	assert.Equal(t, now.Add(48*time.Hour), *status.NextAvailable)

	back, err := svc.StatusFor(context.Background(), userID, domain.MuscleBack)
	require.NoError(t, err)
	assert.Equal(t, RecoveryReady, back.State, "untrained muscle stays ready")

	// Once the window passes the muscle is ready again.
	clock.Advance(49 * time.Hour)
	status, err = svc.StatusFor(context.Background(), userID, domain.MuscleChest)
	require.NoError(t, err)
	assert.Equal(t, RecoveryReady, status.State)
}

func TestGetRecoveryStatus_IntensityScalesWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc, sessions, users, _ := newTestRecovery(t, now)
	userID := users.addUser(&domain.User{Email: "intense@example.com", WeeklyFrequency: 3})

	_, err := sessions.Create(context.Background(), &domain.WorkoutSession{
		UserID:       userID,
		Date:         domain.WorkoutDay(now),
		MuscleGroups: []domain.MuscleGroup{domain.MuscleQuads},
		Intensity:    10,
		CompletedAt:  now,
	})
	require.NoError(t, err)

	status, err := svc.StatusFor(context.Background(), userID, domain.MuscleQuads)
	require.NoError(t, err)
	require.NotNil(t, status.NextAvailable)
	// Intensity 10 maps to the max factor: 48h * 1.5 = 72h.
	assert.Equal(t, now.Add(72*time.Hour), *status.NextAvailable)
}

func TestGetRecoveryStatus_OverdueAfterMissedCycle(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc, sessions, users, clock := newTestRecovery(t, now)
	userID := users.addUser(&domain.User{Email: "lapsed@example.com", WeeklyFrequency: 7})

	_, err := sessions.Create(context.Background(), &domain.WorkoutSession{
		UserID:       userID,
		Date:         domain.WorkoutDay(now),
		MuscleGroups: []domain.MuscleGroup{domain.MuscleBack},
		CompletedAt:  now,
	})
	require.NoError(t, err)

	// Ready at +48h; at frequency 7 the expected cycle is 24h, so past
	// +72h with no new session the muscle reads overdue.
	clock.Advance(80 * time.Hour)
	status, err := svc.StatusFor(context.Background(), userID, domain.MuscleBack)
	require.NoError(t, err)
	assert.Equal(t, RecoveryOverdue, status.State)
}

func TestGetRecoveryStatus_NewestSessionWins(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc, sessions, users, _ := newTestRecovery(t, now)
	userID := users.addUser(&domain.User{Email: "repeat@example.com", WeeklyFrequency: 3})

	for _, ago := range []time.Duration{96 * time.Hour, 12 * time.Hour} {
		_, err := sessions.Create(context.Background(), &domain.WorkoutSession{
			UserID:       userID,
			Date:         domain.WorkoutDay(now.Add(-ago)),
			MuscleGroups: []domain.MuscleGroup{domain.MuscleCore},
			CompletedAt:  now.Add(-ago),
		})
		require.NoError(t, err)
	}

	status, err := svc.StatusFor(context.Background(), userID, domain.MuscleCore)
	require.NoError(t, err)
	require.NotNil(t, status.LastTrained)
	assert.Equal(t, now.Add(-12*time.Hour), *status.LastTrained)
	assert.Equal(t, RecoveryRecovering, status.State)
}

func TestGetRecoveryStatus_RequiresUserID(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestRecovery(t, now)

	_, err := svc.GetRecoveryStatus(context.Background(), primitive.NilObjectID)
	assert.Error(t, err)
}
