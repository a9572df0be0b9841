package service

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrInvalidFrequency   = errors.New("weekly frequency must be between 0 and 7")
	ErrNoSplitDefinitions = errors.New("no split definitions available for the selected family")
)

// ResolvedSchedule is a full proposed day-of-week mapping. The resolver
// never mutates stored assignments; the caller atomically swaps the
// proposal in via the assignment repository.
type ResolvedSchedule struct {
	SplitType domain.SplitType                 `json:"splitType"`
	Days      map[int]*domain.SplitDefinition  `json:"days"` // dayOfWeek -> split; missing days are rest
	Warnings  []string                         `json:"warnings,omitempty"`
}

// Assignments converts the proposal into assignment rows for the swap.
func (r *ResolvedSchedule) Assignments(userID primitive.ObjectID) []domain.SplitAssignment {
	days := make([]int, 0, len(r.Days))
	for day := range r.Days {
		days = append(days, day)
	}
	sort.Ints(days)

	assignments := make([]domain.SplitAssignment, 0, len(days))
	for _, day := range days {
		def := r.Days[day]
		assignments = append(assignments, domain.SplitAssignment{
			UserID:       userID,
			DayOfWeek:    day,
			SplitID:      def.ID,
			SplitName:    def.Name,
			MuscleGroups: def.MuscleGroups,
			AutoAssigned: true,
		})
	}
	return assignments
}

// SplitResolver builds a day-of-week -> split mapping from a target weekly
// frequency and the muscle-recovery constraints of the split definitions.
type SplitResolver interface {
	// FamilyFor selects the split family appropriate to a weekly frequency.
	FamilyFor(frequency int) domain.SplitType
	// Resolve produces a full 7-day proposal: frequency days trained,
	// 7-frequency days rest. Frequency 0 yields an empty mapping and no
	// error; callers treat that as "no active schedule".
	Resolve(ctx context.Context, userID primitive.ObjectID, frequency int) (*ResolvedSchedule, error)
}

type splitResolver struct {
	splitRepo      repository.SplitDefinitionRepository
	assignmentRepo repository.SplitAssignmentRepository
	userRepo       repository.UserRepository
}

// NewSplitResolver creates a new instance of splitResolver.
func NewSplitResolver(
	splitRepo repository.SplitDefinitionRepository,
	assignmentRepo repository.SplitAssignmentRepository,
	userRepo repository.UserRepository,
) SplitResolver {
	return &splitResolver{
		splitRepo:      splitRepo,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
	}
}

// FamilyFor maps frequency to a split family: low frequencies train the
// whole body each session, mid frequencies alternate upper/lower, high
// frequencies rotate push/pull/legs or dedicated body parts.
func (s *splitResolver) FamilyFor(frequency int) domain.SplitType {
	switch {
	case frequency <= 2:
		return domain.SplitFullBody
	case frequency <= 4:
		return domain.SplitUpperLower
	case frequency <= 6:
		return domain.SplitPushPullLegs
	default:
		return domain.SplitBodyPart
	}
}

// canonicalDays spaces training days across the week for each frequency.
// Index is frequency; days use time.Weekday numbering (0 = Sunday).
var canonicalDays = map[int][]int{
	1: {1},
	2: {1, 4},
	3: {1, 3, 5},
	4: {1, 2, 4, 5},
	5: {1, 2, 3, 5, 6},
	6: {1, 2, 3, 4, 5, 6},
	7: {0, 1, 2, 3, 4, 5, 6},
}

// Resolve builds the weekly proposal.
func (s *splitResolver) Resolve(ctx context.Context, userID primitive.ObjectID, frequency int) (*ResolvedSchedule, error) {
	if frequency < 0 || frequency > 7 {
		return nil, ErrInvalidFrequency
	}
	if frequency == 0 {
		return &ResolvedSchedule{Days: map[int]*domain.SplitDefinition{}}, nil
	}

	family := s.FamilyFor(frequency)
	defs, err := s.splitRepo.GetByType(ctx, family)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, ErrNoSplitDefinitions
	}

	days, err := s.pickDays(ctx, userID, frequency)
	if err != nil {
		return nil, err
	}

	schedule := &ResolvedSchedule{
		SplitType: family,
		Days:      make(map[int]*domain.SplitDefinition, frequency),
	}

	// Place the rotation on the chosen days, trying each rotation offset
	// and keeping the one with the fewest recovery violations. Offset 0
	// wins ties, so an unconstrained week stays in canonical rotation.
	best, bestViolations := 0, -1
	for offset := 0; offset < len(defs); offset++ {
		v := countViolations(days, defs, offset)
		if bestViolations == -1 || v < bestViolations {
			best, bestViolations = offset, v
		}
	}
	for i, day := range days {
		def := defs[(i+best)%len(defs)]
		schedule.Days[day] = &def
	}

	if frequency > len(defs) {
		schedule.Warnings = append(schedule.Warnings,
			fmt.Sprintf("%d training days rotate over %d %s splits; some splits repeat within the week at a reduced rest interval", frequency, len(defs), family))
	}
	for _, w := range violationWarnings(days, schedule.Days) {
		schedule.Warnings = append(schedule.Warnings, w)
	}
	return schedule, nil
}

// pickDays chooses which days of the week to train. Preference order:
// the user's declared training days, then the currently assigned days
// (minimizing churn), then the canonical spacing for the frequency.
func (s *splitResolver) pickDays(ctx context.Context, userID primitive.ObjectID, frequency int) ([]int, error) {
	if userID != primitive.NilObjectID {
		if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
			if days := validDays(user.TrainingDays, frequency); days != nil {
				return days, nil
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		existing, err := s.assignmentRepo.GetActiveByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(existing) == frequency {
			days := make([]int, 0, frequency)
			for _, a := range existing {
				days = append(days, a.DayOfWeek)
			}
			if days = validDays(days, frequency); days != nil {
				return days, nil
			}
		}
	}
	days := make([]int, frequency)
	copy(days, canonicalDays[frequency])
	return days, nil
}

// validDays returns a sorted, deduplicated copy when the list holds exactly
// want distinct in-range days, else nil.
func validDays(days []int, want int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) != want {
		return nil
	}
	sort.Ints(out)
	return out
}

// gapHours is the rest gap between two assigned days, walking forward and
// wrapping across the week boundary.
func gapHours(from, to int) int {
	diff := to - from
	if diff <= 0 {
		diff += 7
	}
	return diff * 24
}

// violates reports whether two splits sharing a muscle group sit closer
// together than their recovery window allows.
func violates(a, b *domain.SplitDefinition, gap int) bool {
	if !a.Overlaps(b) {
		return false
	}
	required := a.RecoveryHours
	if b.RecoveryHours > required {
		required = b.RecoveryHours
	}
	return required > gap
}

func countViolations(days []int, defs []domain.SplitDefinition, offset int) int {
	if len(days) < 2 {
		return 0
	}
	count := 0
	for i := range days {
		j := (i + 1) % len(days)
		a := &defs[(i+offset)%len(defs)]
		b := &defs[(j+offset)%len(defs)]
		if violates(a, b, gapHours(days[i], days[j])) {
			count++
		}
	}
	return count
}

// violationWarnings lists remaining recovery conflicts. These are advisory:
// the resolver flags a too-tight week rather than silently producing one.
func violationWarnings(days []int, mapping map[int]*domain.SplitDefinition) []string {
	if len(days) < 2 {
		return nil
	}
	var warnings []string
	for i := range days {
		j := (i + 1) % len(days)
		a, b := mapping[days[i]], mapping[days[j]]
		if violates(a, b, gapHours(days[i], days[j])) {
			warnings = append(warnings, fmt.Sprintf(
				"%s on day %d and %s on day %d share muscle groups with less than the required recovery window", a.Name, days[i], b.Name, days[j]))
		}
	}
	return warnings
}
