package service

import (
	"alcyxob/fitness-scheduler/internal/config"
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/logger"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testCacheConfig = config.CacheConfig{HorizonDays: 14, TopUpThresholdDays: 7}

type materializerFixture struct {
	svc         MaterializerService
	cached      *fakeCachedWorkoutRepo
	assignments *fakeAssignmentRepo
	clock       *fakeClock
	userID      primitive.ObjectID
}

// newMaterializerFixture seeds an active Mon/Wed/Fri upper-lower style week.
func newMaterializerFixture(t *testing.T, now time.Time) *materializerFixture {
	t.Helper()
	cached := newFakeCachedWorkoutRepo()
	assignments := newFakeAssignmentRepo()
	clock := newFakeClock(now)
	userID := primitive.NewObjectID()

	upper := []domain.MuscleGroup{domain.MuscleChest, domain.MuscleBack, domain.MuscleShoulders}
	lower := []domain.MuscleGroup{domain.MuscleQuads, domain.MuscleHamstrings, domain.MuscleGlutes}
	err := assignments.ReplaceActive(context.Background(), userID, []domain.SplitAssignment{
		{UserID: userID, DayOfWeek: 1, SplitID: primitive.NewObjectID(), SplitName: "Upper Body", MuscleGroups: upper},
		{UserID: userID, DayOfWeek: 3, SplitID: primitive.NewObjectID(), SplitName: "Lower Body", MuscleGroups: lower},
		{UserID: userID, DayOfWeek: 5, SplitID: primitive.NewObjectID(), SplitName: "Upper Body", MuscleGroups: upper},
	})
	require.NoError(t, err)

	svc := NewMaterializerService(cached, assignments, testCacheConfig, clock, logger.NewNop())
	return &materializerFixture{svc: svc, cached: cached, assignments: assignments, clock: clock, userID: userID}
}

func TestMaterialize_FillsTrainingDaysOnly(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // A Monday
	f := newMaterializerFixture(t, now)

	result, err := f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Created, "three training days over two weeks")
	assert.Equal(t, 8, result.RestDays)
	assert.Empty(t, result.Failed)

	// Monday is cached, Tuesday is not.
	monday, err := f.cached.GetByUserAndDate(context.Background(), f.userID, domain.WorkoutDay(now))
	require.NoError(t, err)
	assert.Equal(t, "Upper Body", monday.SplitName)

	_, err = f.cached.GetByUserAndDate(context.Background(), f.userID, domain.WorkoutDay(now.AddDate(0, 0, 1)))
	assert.Error(t, err)
}

func TestMaterialize_Idempotent(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	_, err := f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)
	countAfterFirst := f.cached.countForUser(f.userID)

	_, err = f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)
	assert.Equal(t, countAfterFirst, f.cached.countForUser(f.userID), "re-materializing must not duplicate entries")
}

func TestInvalidate_SparesConsumedHistory(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	_, err := f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)

	// Today's workout gets consumed, then the schedule is torn down.
	today := domain.WorkoutDay(now)
	require.NoError(t, f.cached.MarkConsumed(context.Background(), f.userID, today))

	removed, err := f.svc.Invalidate(context.Background(), f.userID, today)
	require.NoError(t, err)
	assert.Equal(t, int64(5), removed)

	kept, err := f.cached.GetByUserAndDate(context.Background(), f.userID, today)
	require.NoError(t, err)
	assert.True(t, kept.Consumed, "consumed workout survives invalidation")
}

func TestReconcile_RepairsDriftedEntries(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	_, err := f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)

	// The Monday assignment changes underneath the cache.
	newGroups := []domain.MuscleGroup{domain.MuscleCore, domain.MuscleCalves}
	f.assignments.setMuscleGroups(f.userID, 1, newGroups)

	result, err := f.svc.Reconcile(context.Background(), f.userID, 14)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Repaired, "both cached Mondays drifted")
	assert.Equal(t, 0, result.Removed)

	monday, err := f.cached.GetByUserAndDate(context.Background(), f.userID, domain.WorkoutDay(now))
	require.NoError(t, err)
	assert.Equal(t, newGroups, monday.MuscleGroups)
}

func TestReconcile_RemovesEntriesOnNewRestDays(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	_, err := f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)

	// Wednesday becomes a rest day: drop it from the active set.
	require.NoError(t, f.assignments.DeactivateAll(context.Background(), f.userID))
	upper := []domain.MuscleGroup{domain.MuscleChest, domain.MuscleBack}
	err = f.assignments.ReplaceActive(context.Background(), f.userID, []domain.SplitAssignment{
		{UserID: f.userID, DayOfWeek: 1, SplitID: primitive.NewObjectID(), SplitName: "Upper Body", MuscleGroups: upper},
		{UserID: f.userID, DayOfWeek: 5, SplitID: primitive.NewObjectID(), SplitName: "Upper Body", MuscleGroups: upper},
	})
	require.NoError(t, err)

	result, err := f.svc.Reconcile(context.Background(), f.userID, 14)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Removed, "both cached Wednesdays are now rest days")

	_, err = f.cached.GetByUserAndDate(context.Background(), f.userID, domain.WorkoutDay(now.AddDate(0, 0, 2)))
	assert.Error(t, err)
}

func TestReconcile_LeavesConsumedCorruptionAlone(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	_, err := f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)
	today := domain.WorkoutDay(now)
	require.NoError(t, f.cached.MarkConsumed(context.Background(), f.userID, today))

	f.assignments.setMuscleGroups(f.userID, 1, []domain.MuscleGroup{domain.MuscleCore})

	result, err := f.svc.Reconcile(context.Background(), f.userID, 14)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Repaired, "only the unconsumed Monday is repaired")

	frozen, err := f.cached.GetByUserAndDate(context.Background(), f.userID, today)
	require.NoError(t, err)
	assert.Contains(t, frozen.MuscleGroups, domain.MuscleChest, "consumed history keeps its original groups")
}

func TestGetWorkoutForDate_RestDay(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	_, err := f.svc.GetWorkoutForDate(context.Background(), f.userID, now.AddDate(0, 0, 1)) // Tuesday
	assert.ErrorIs(t, err, ErrRestDay)
}

func TestGetWorkoutForDate_MaterializesOnDemand(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	// Nothing materialized yet; the read path fills the single date.
	workout, err := f.svc.GetWorkoutForDate(context.Background(), f.userID, now)
	require.NoError(t, err)
	assert.Equal(t, "Upper Body", workout.SplitName)
	assert.Equal(t, 1, f.cached.countForUser(f.userID))
}

func TestGetWorkoutForDate_SelfRepairsStaleEntry(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	_, err := f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)

	newGroups := []domain.MuscleGroup{domain.MuscleCore}
	f.assignments.setMuscleGroups(f.userID, 1, newGroups)

	workout, err := f.svc.GetWorkoutForDate(context.Background(), f.userID, now)
	require.NoError(t, err)
	assert.Equal(t, newGroups, workout.MuscleGroups, "stale entry is regenerated, not served")
}

func TestGetWorkoutForDate_ConsumedServedAsIs(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	_, err := f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)
	today := domain.WorkoutDay(now)
	require.NoError(t, f.cached.MarkConsumed(context.Background(), f.userID, today))

	// Even a consumed entry that no longer matches is history, served as-is.
	f.assignments.setMuscleGroups(f.userID, 1, []domain.MuscleGroup{domain.MuscleCore})

	workout, err := f.svc.GetWorkoutForDate(context.Background(), f.userID, now)
	require.NoError(t, err)
	assert.True(t, workout.Consumed)
	assert.Contains(t, workout.MuscleGroups, domain.MuscleChest)
}

func TestHorizonShort(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)

	short, err := f.svc.HorizonShort(context.Background(), f.userID, 7)
	require.NoError(t, err)
	assert.True(t, short, "empty cache is always short")

	_, err = f.svc.Materialize(context.Background(), f.userID, 14)
	require.NoError(t, err)
	short, err = f.svc.HorizonShort(context.Background(), f.userID, 7)
	require.NoError(t, err)
	assert.False(t, short)

	// A week later the remaining horizon dips under the threshold.
	f.clock.Advance(8 * 24 * time.Hour)
	short, err = f.svc.HorizonShort(context.Background(), f.userID, 7)
	require.NoError(t, err)
	assert.True(t, short)
}
