package service

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeClock is an injectable clock for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- fakeUserRepo ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	id := primitive.NewObjectID()
	cp := *user
	cp.ID = id
	r.users[id] = &cp
	return id, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpdatePreferences(_ context.Context, id primitive.ObjectID, weeklyFrequency int, trainingDays []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.WeeklyFrequency = weeklyFrequency
	u.TrainingDays = trainingDays
	return nil
}

func (r *fakeUserRepo) ListIDs(_ context.Context) ([]primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]primitive.ObjectID, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids, nil
}

// addUser seeds a user directly, bypassing uniqueness checks.
func (r *fakeUserRepo) addUser(u *domain.User) primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == primitive.NilObjectID {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	r.users[u.ID] = &cp
	return u.ID
}

// --- fakeSplitRepo ---

type fakeSplitRepo struct {
	mu   sync.Mutex
	defs []domain.SplitDefinition
}

func newFakeSplitRepo(defs []domain.SplitDefinition) *fakeSplitRepo {
	r := &fakeSplitRepo{}
	for i := range defs {
		cp := defs[i]
		if cp.ID == primitive.NilObjectID {
			cp.ID = primitive.NewObjectID()
		}
		r.defs = append(r.defs, cp)
	}
	return r
}

func (r *fakeSplitRepo) Seed(_ context.Context, defs []domain.SplitDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.defs) > 0 {
		return nil
	}
	for i := range defs {
		cp := defs[i]
		if cp.ID == primitive.NilObjectID {
			cp.ID = primitive.NewObjectID()
		}
		r.defs = append(r.defs, cp)
	}
	return nil
}

func (r *fakeSplitRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.SplitDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.defs {
		if r.defs[i].ID == id {
			cp := r.defs[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSplitRepo) GetByType(_ context.Context, splitType domain.SplitType) ([]domain.SplitDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SplitDefinition
	for i := range r.defs {
		if r.defs[i].SplitType == splitType {
			out = append(out, r.defs[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *fakeSplitRepo) GetAll(_ context.Context) ([]domain.SplitDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SplitDefinition, len(r.defs))
	copy(out, r.defs)
	return out, nil
}

// --- fakeAssignmentRepo ---

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments []domain.SplitAssignment
	failReplace error // Injectable fault for crash-consistency tests
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{}
}

func (r *fakeAssignmentRepo) ReplaceActive(_ context.Context, userID primitive.ObjectID, assignments []domain.SplitAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReplace != nil {
		return r.failReplace
	}
	for i := range r.assignments {
		if r.assignments[i].UserID == userID {
			r.assignments[i].Active = false
		}
	}
	for i := range assignments {
		cp := assignments[i]
		cp.ID = primitive.NewObjectID()
		cp.Active = true
		r.assignments = append(r.assignments, cp)
	}
	return nil
}

func (r *fakeAssignmentRepo) GetActiveByUser(_ context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SplitAssignment
	for i := range r.assignments {
		if r.assignments[i].UserID == userID && r.assignments[i].Active {
			out = append(out, r.assignments[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (r *fakeAssignmentRepo) GetActiveByUserAndDay(_ context.Context, userID primitive.ObjectID, dayOfWeek int) (*domain.SplitAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.assignments {
		a := &r.assignments[i]
		if a.UserID == userID && a.Active && a.DayOfWeek == dayOfWeek {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAssignmentRepo) DeactivateAll(_ context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.assignments {
		if r.assignments[i].UserID == userID {
			r.assignments[i].Active = false
		}
	}
	return nil
}

func (r *fakeAssignmentRepo) DeleteInactiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.SplitAssignment
	var removed int64
	for i := range r.assignments {
		a := r.assignments[i]
		if !a.Active && a.UpdatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	r.assignments = kept
	return removed, nil
}

// corrupt flips the muscle groups of the user's active assignment for a
// day, simulating drift between cache and assignment.
func (r *fakeAssignmentRepo) setMuscleGroups(userID primitive.ObjectID, dayOfWeek int, groups []domain.MuscleGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.assignments {
		a := &r.assignments[i]
		if a.UserID == userID && a.Active && a.DayOfWeek == dayOfWeek {
			a.MuscleGroups = groups
		}
	}
}

// --- fakeMesocycleRepo ---

type fakeMesocycleRepo struct {
	mu         sync.Mutex
	cycles     map[primitive.ObjectID]*domain.Mesocycle
	failCreate error // Injectable fault for crash-consistency tests
}

func newFakeMesocycleRepo() *fakeMesocycleRepo {
	return &fakeMesocycleRepo{cycles: make(map[primitive.ObjectID]*domain.Mesocycle)}
}

func (r *fakeMesocycleRepo) Create(_ context.Context, m *domain.Mesocycle) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return primitive.NilObjectID, r.failCreate
	}
	for _, existing := range r.cycles {
		if existing.UserID == m.UserID && existing.Status == domain.MesocycleActive {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	id := primitive.NewObjectID()
	cp := *m
	cp.ID = id
	r.cycles[id] = &cp
	return id, nil
}

func (r *fakeMesocycleRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Mesocycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.cycles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMesocycleRepo) GetActiveByUser(_ context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.cycles {
		if m.UserID == userID && m.Status == domain.MesocycleActive {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMesocycleRepo) ListActive(_ context.Context) ([]domain.Mesocycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Mesocycle
	for _, m := range r.cycles {
		if m.Status == domain.MesocycleActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMesocycleRepo) Complete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.cycles[id]
	if !ok || m.Status != domain.MesocycleActive {
		return repository.ErrUpdateFailed
	}
	m.Status = domain.MesocycleCompleted
	return nil
}

func (r *fakeMesocycleRepo) Update(_ context.Context, m *domain.Mesocycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cycles[m.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *m
	r.cycles[m.ID] = &cp
	return nil
}

func (r *fakeMesocycleRepo) activeCount(userID primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.cycles {
		if m.UserID == userID && m.Status == domain.MesocycleActive {
			n++
		}
	}
	return n
}

// --- fakeAnalysisRepo ---

type fakeAnalysisRepo struct {
	mu       sync.Mutex
	analyses map[primitive.ObjectID]*domain.PhaseAnalysis
}

func newFakeAnalysisRepo() *fakeAnalysisRepo {
	return &fakeAnalysisRepo{analyses: make(map[primitive.ObjectID]*domain.PhaseAnalysis)}
}

func (r *fakeAnalysisRepo) Create(_ context.Context, a *domain.PhaseAnalysis) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.analyses {
		if existing.MesocycleID == a.MesocycleID && existing.Decision == domain.DecisionPending {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	id := primitive.NewObjectID()
	cp := *a
	cp.ID = id
	r.analyses[id] = &cp
	return id, nil
}

func (r *fakeAnalysisRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.PhaseAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAnalysisRepo) GetPendingByMesocycle(_ context.Context, mesocycleID primitive.ObjectID) (*domain.PhaseAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.analyses {
		if a.MesocycleID == mesocycleID && a.Decision == domain.DecisionPending {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAnalysisRepo) GetPendingByUser(_ context.Context, userID primitive.ObjectID) (*domain.PhaseAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.analyses {
		if a.UserID == userID && a.Decision == domain.DecisionPending {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAnalysisRepo) Update(_ context.Context, a *domain.PhaseAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.analyses[a.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *a
	r.analyses[a.ID] = &cp
	return nil
}

// --- fakeCachedWorkoutRepo ---

type fakeCachedWorkoutRepo struct {
	mu       sync.Mutex
	workouts map[primitive.ObjectID]*domain.CachedWorkout
}

func newFakeCachedWorkoutRepo() *fakeCachedWorkoutRepo {
	return &fakeCachedWorkoutRepo{workouts: make(map[primitive.ObjectID]*domain.CachedWorkout)}
}

func (r *fakeCachedWorkoutRepo) Upsert(_ context.Context, w *domain.CachedWorkout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.workouts {
		if existing.UserID == w.UserID && existing.WorkoutDate.Equal(w.WorkoutDate) {
			if existing.Consumed {
				// Consumed history is immutable; the upsert is a no-op.
				return nil
			}
			existing.SplitID = w.SplitID
			existing.SplitName = w.SplitName
			existing.MuscleGroups = w.MuscleGroups
			return nil
		}
	}
	id := primitive.NewObjectID()
	cp := *w
	cp.ID = id
	r.workouts[id] = &cp
	return nil
}

func (r *fakeCachedWorkoutRepo) GetByUserAndDate(_ context.Context, userID primitive.ObjectID, date time.Time) (*domain.CachedWorkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.workouts {
		if w.UserID == userID && w.WorkoutDate.Equal(date) {
			cp := *w
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCachedWorkoutRepo) GetUnconsumedFrom(_ context.Context, userID primitive.ObjectID, from time.Time) ([]domain.CachedWorkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CachedWorkout
	for _, w := range r.workouts {
		if w.UserID == userID && !w.Consumed && !w.WorkoutDate.Before(from) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkoutDate.Before(out[j].WorkoutDate) })
	return out, nil
}

func (r *fakeCachedWorkoutRepo) DeleteUnconsumedFrom(_ context.Context, userID primitive.ObjectID, from time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, w := range r.workouts {
		if w.UserID == userID && !w.Consumed && !w.WorkoutDate.Before(from) {
			delete(r.workouts, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeCachedWorkoutRepo) DeleteUnconsumedByID(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workouts[id]
	if !ok || w.Consumed {
		return repository.ErrNotFound
	}
	delete(r.workouts, id)
	return nil
}

func (r *fakeCachedWorkoutRepo) MarkConsumed(_ context.Context, userID primitive.ObjectID, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.workouts {
		if w.UserID == userID && w.WorkoutDate.Equal(date) {
			w.Consumed = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeCachedWorkoutRepo) LatestDate(_ context.Context, userID primitive.ObjectID) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest time.Time
	found := false
	for _, w := range r.workouts {
		if w.UserID == userID && w.WorkoutDate.After(latest) {
			latest = w.WorkoutDate
			found = true
		}
	}
	if !found {
		return time.Time{}, repository.ErrNotFound
	}
	return latest, nil
}

func (r *fakeCachedWorkoutRepo) countForUser(userID primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.workouts {
		if w.UserID == userID {
			n++
		}
	}
	return n
}

// --- fakeChangeRepo ---

type fakeChangeRepo struct {
	mu      sync.Mutex
	records map[primitive.ObjectID]*domain.FrequencyChangeRecord
}

func newFakeChangeRepo() *fakeChangeRepo {
	return &fakeChangeRepo{records: make(map[primitive.ObjectID]*domain.FrequencyChangeRecord)}
}

func (r *fakeChangeRepo) Create(_ context.Context, rec *domain.FrequencyChangeRecord) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.UserID == rec.UserID && existing.Decision == domain.FrequencyPending {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	id := primitive.NewObjectID()
	cp := *rec
	cp.ID = id
	r.records[id] = &cp
	return id, nil
}

func (r *fakeChangeRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.FrequencyChangeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeChangeRepo) GetPendingByUser(_ context.Context, userID primitive.ObjectID) (*domain.FrequencyChangeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Decision == domain.FrequencyPending {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeChangeRepo) Update(_ context.Context, rec *domain.FrequencyChangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

// --- fakeSessionRepo ---

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []domain.WorkoutSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *domain.WorkoutSession) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	cp := *s
	cp.ID = id
	r.sessions = append(r.sessions, cp)
	return id, nil
}

func (r *fakeSessionRepo) GetByUserSince(_ context.Context, userID primitive.ObjectID, since time.Time) ([]domain.WorkoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WorkoutSession
	for i := range r.sessions {
		s := r.sessions[i]
		if s.UserID == userID && !s.CompletedAt.Before(since) {
			out = append(out, s)
		}
	}
	// Newest first, matching the mongo repository's sort order.
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}
