package service

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestResolver(t *testing.T) (SplitResolver, *fakeUserRepo, *fakeAssignmentRepo) {
	t.Helper()
	users := newFakeUserRepo()
	assignments := newFakeAssignmentRepo()
	splits := newFakeSplitRepo(domain.DefaultSplitDefinitions())
	return NewSplitResolver(splits, assignments, users), users, assignments
}

func TestFamilyFor(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	assert.Equal(t, domain.SplitFullBody, resolver.FamilyFor(1))
	assert.Equal(t, domain.SplitFullBody, resolver.FamilyFor(2))
	assert.Equal(t, domain.SplitUpperLower, resolver.FamilyFor(3))
	assert.Equal(t, domain.SplitUpperLower, resolver.FamilyFor(4))
	assert.Equal(t, domain.SplitPushPullLegs, resolver.FamilyFor(5))
	assert.Equal(t, domain.SplitPushPullLegs, resolver.FamilyFor(6))
	assert.Equal(t, domain.SplitBodyPart, resolver.FamilyFor(7))
}

func TestResolve_EveryFrequencyProducesFullWeek(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	for frequency := 1; frequency <= 7; frequency++ {
		schedule, err := resolver.Resolve(context.Background(), primitive.NewObjectID(), frequency)
		require.NoError(t, err, "frequency %d", frequency)
		assert.Len(t, schedule.Days, frequency, "frequency %d should train %d days", frequency, frequency)
		assert.Equal(t, resolver.FamilyFor(frequency), schedule.SplitType)

		for day, def := range schedule.Days {
			assert.GreaterOrEqual(t, day, 0)
			assert.LessOrEqual(t, day, 6)
			require.NotNil(t, def)
			assert.Equal(t, schedule.SplitType, def.SplitType)
		}
	}
}

func TestResolve_FrequencyZeroIsEmptyNotError(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	schedule, err := resolver.Resolve(context.Background(), primitive.NewObjectID(), 0)
	require.NoError(t, err)
	assert.Empty(t, schedule.Days)
	assert.Empty(t, schedule.Warnings)
}

func TestResolve_InvalidFrequency(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), primitive.NewObjectID(), 8)
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = resolver.Resolve(context.Background(), primitive.NewObjectID(), -1)
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}

func TestResolve_NoDefinitionsForFamily(t *testing.T) {
	users := newFakeUserRepo()
	assignments := newFakeAssignmentRepo()
	resolver := NewSplitResolver(newFakeSplitRepo(nil), assignments, users)

	_, err := resolver.Resolve(context.Background(), primitive.NewObjectID(), 3)
	assert.ErrorIs(t, err, ErrNoSplitDefinitions)
}

func TestResolve_CanonicalDaySpacing(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	schedule, err := resolver.Resolve(context.Background(), primitive.NewObjectID(), 3)
	require.NoError(t, err)

	for _, day := range []int{1, 3, 5} {
		assert.Contains(t, schedule.Days, day, "frequency 3 should land on Mon/Wed/Fri")
	}
}

func TestResolve_UpperLowerAlternates(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	schedule, err := resolver.Resolve(context.Background(), primitive.NewObjectID(), 4)
	require.NoError(t, err)
	require.Len(t, schedule.Days, 4)

	// Consecutive slots in the rotation must alternate between the two
	// upper/lower definitions.
	names := make(map[string]int)
	for _, def := range schedule.Days {
		names[def.Name]++
	}
	assert.Equal(t, 2, names["Upper Body"])
	assert.Equal(t, 2, names["Lower Body"])
}

func TestResolve_PreferredDaysRespected(t *testing.T) {
	resolver, users, _ := newTestResolver(t)

	userID := users.addUser(&domain.User{
		Email:           "lifter@example.com",
		WeeklyFrequency: 3,
		TrainingDays:    []int{0, 2, 4},
	})

	schedule, err := resolver.Resolve(context.Background(), userID, 3)
	require.NoError(t, err)
	for _, day := range []int{0, 2, 4} {
		assert.Contains(t, schedule.Days, day)
	}
}

func TestResolve_PreferredDaysIgnoredWhenCountMismatched(t *testing.T) {
	resolver, users, _ := newTestResolver(t)

	// Two declared days but frequency three: preference cannot satisfy the
	// frequency, canonical spacing wins.
	userID := users.addUser(&domain.User{
		Email:        "mismatch@example.com",
		TrainingDays: []int{2, 4},
	})

	schedule, err := resolver.Resolve(context.Background(), userID, 3)
	require.NoError(t, err)
	for _, day := range []int{1, 3, 5} {
		assert.Contains(t, schedule.Days, day)
	}
}

func TestResolve_ExistingAssignmentDaysReused(t *testing.T) {
	resolver, users, assignments := newTestResolver(t)

	userID := users.addUser(&domain.User{Email: "steady@example.com"})
	splitID := primitive.NewObjectID()
	err := assignments.ReplaceActive(context.Background(), userID, []domain.SplitAssignment{
		{UserID: userID, DayOfWeek: 0, SplitID: splitID, SplitName: "Upper Body"},
		{UserID: userID, DayOfWeek: 3, SplitID: splitID, SplitName: "Lower Body"},
		{UserID: userID, DayOfWeek: 6, SplitID: splitID, SplitName: "Upper Body"},
	})
	require.NoError(t, err)

	schedule, err := resolver.Resolve(context.Background(), userID, 3)
	require.NoError(t, err)
	for _, day := range []int{0, 3, 6} {
		assert.Contains(t, schedule.Days, day, "re-resolving at the same frequency should keep the current days")
	}
}

func TestResolve_RepeatRotationWarning(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	// Five days over the three push/pull/legs splits: the rotation repeats
	// within the week and the resolver must say so.
	schedule, err := resolver.Resolve(context.Background(), primitive.NewObjectID(), 5)
	require.NoError(t, err)
	assert.NotEmpty(t, schedule.Warnings)
}

func TestResolve_FullBodyBackToBackWarns(t *testing.T) {
	resolver, users, _ := newTestResolver(t)

	// Two full-body days in a row leave a 24h gap against a 48h recovery
	// window; the proposal still resolves but carries a warning.
	userID := users.addUser(&domain.User{
		Email:        "backtoback@example.com",
		TrainingDays: []int{1, 2},
	})

	schedule, err := resolver.Resolve(context.Background(), userID, 2)
	require.NoError(t, err)
	require.Len(t, schedule.Days, 2)
	assert.NotEmpty(t, schedule.Warnings)
}

func TestAssignments_SortedAndAutoAssigned(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	userID := primitive.NewObjectID()

	schedule, err := resolver.Resolve(context.Background(), userID, 4)
	require.NoError(t, err)

	rows := schedule.Assignments(userID)
	require.Len(t, rows, 4)
	for i, row := range rows {
		assert.Equal(t, userID, row.UserID)
		assert.True(t, row.AutoAssigned)
		assert.NotEmpty(t, row.MuscleGroups)
		if i > 0 {
			assert.Greater(t, row.DayOfWeek, rows[i-1].DayOfWeek)
		}
	}
}
