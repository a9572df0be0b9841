package scheduler

import (
	"alcyxob/fitness-scheduler/internal/config"
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/logger"
	"alcyxob/fitness-scheduler/internal/repository"
	"alcyxob/fitness-scheduler/internal/service"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status of the scheduler's control surface.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusStopped Status = "stopped"
)

// Health is the operational health report: current status plus the next
// task the scheduler would run.
type Health struct {
	Status   Status                `json:"status"`
	NextTask *domain.ScheduledTask `json:"nextTask,omitempty"`
}

// TaskHandler executes one task and returns an optional result string
// (e.g. a report artifact key).
type TaskHandler func(ctx context.Context, task *domain.ScheduledTask) (string, error)

// Scheduler is the single recurring driver plus a pool of workers. Sweeps
// enqueue ScheduledTasks on a rolling horizon; workers claim and execute
// them with per-user serialization, retry with backoff, and a wall-clock
// budget so a stuck task cannot starve a user's queue.
type Scheduler struct {
	taskRepo       repository.ScheduledTaskRepository
	userRepo       repository.UserRepository
	mesocycleRepo  repository.MesocycleRepository
	assignmentRepo repository.SplitAssignmentRepository
	sessionRepo    repository.WorkoutSessionRepository
	analysisRepo   repository.PhaseAnalysisRepository

	mesocycles   service.MesocycleService
	frequencies  service.FrequencyChangeService
	materializer service.MaterializerService
	reports      *ReportGenerator

	locks *service.UserLocks
	clock service.Clock
	log   *logger.Logger
	cfg   config.SchedulerConfig
	cache config.CacheConfig

	handlers map[domain.TaskType]TaskHandler

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	tasks   chan primitive.ObjectID
	quit    chan struct{}
	wg      sync.WaitGroup
}

// New wires a scheduler with its default task handlers.
func New(
	taskRepo repository.ScheduledTaskRepository,
	userRepo repository.UserRepository,
	mesocycleRepo repository.MesocycleRepository,
	assignmentRepo repository.SplitAssignmentRepository,
	sessionRepo repository.WorkoutSessionRepository,
	analysisRepo repository.PhaseAnalysisRepository,
	mesocycles service.MesocycleService,
	frequencies service.FrequencyChangeService,
	materializer service.MaterializerService,
	reports *ReportGenerator,
	locks *service.UserLocks,
	clock service.Clock,
	log *logger.Logger,
	cfg config.SchedulerConfig,
	cache config.CacheConfig,
) *Scheduler {
	s := &Scheduler{
		taskRepo:       taskRepo,
		userRepo:       userRepo,
		mesocycleRepo:  mesocycleRepo,
		assignmentRepo: assignmentRepo,
		sessionRepo:    sessionRepo,
		analysisRepo:   analysisRepo,
		mesocycles:     mesocycles,
		frequencies:    frequencies,
		materializer:   materializer,
		reports:        reports,
		locks:          locks,
		clock:          clock,
		log:            log,
		cfg:            cfg,
		cache:          cache,
		handlers:       make(map[domain.TaskType]TaskHandler),
	}
	s.handlers[domain.TaskPhaseAnalysis] = s.runPhaseAnalysis
	s.handlers[domain.TaskWeeklyReport] = s.runReport
	s.handlers[domain.TaskMonthlyReport] = s.runReport
	s.handlers[domain.TaskCacheTopUp] = s.runCacheTopUp
	s.handlers[domain.TaskCleanup] = s.runCleanup
	return s
}

// RegisterHandler overrides the handler for a task type. Tests use this to
// inject slow or failing work.
func (s *Scheduler) RegisterHandler(t domain.TaskType, h TaskHandler) {
	s.handlers[t] = h
}

// Start begins the recurring cadence and the worker pool. Starting an
// already-started scheduler is a no-op, not an error.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.quit = make(chan struct{})
	s.tasks = make(chan primitive.ObjectID, 64)
	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.cron = cron.New()
	dispatchEvery := s.cfg.DispatchEvery
	if dispatchEvery <= 0 {
		dispatchEvery = time.Minute
	}
	if err := s.cron.AddFunc(fmt.Sprintf("@every %s", dispatchEvery), s.dispatchDue); err != nil {
		return err
	}
	if err := s.cron.AddFunc("@every 1h", s.sweep); err != nil {
		return err
	}
	s.cron.Start()

	s.running = true
	s.log.Info("scheduler started", "workers", workers)
	return nil
}

// Stop halts the cadence. Tasks already running are allowed to finish;
// stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cron.Stop()
	close(s.quit)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// Health reports the control-surface status and the next pending task.
func (s *Scheduler) Health(ctx context.Context) Health {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return Health{Status: StatusStopped}
	}
	h := Health{Status: StatusHealthy}
	if next, err := s.taskRepo.NextPending(ctx); err == nil {
		h.NextTask = next
	}
	return h
}

// Stats reports task counts by status.
func (s *Scheduler) Stats(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	return s.taskRepo.CountByStatus(ctx)
}

// ForceAnalysis enqueues a phase-analysis task for the user and kicks the
// dispatcher so it runs without waiting for the next tick.
func (s *Scheduler) ForceAnalysis(ctx context.Context, userID primitive.ObjectID) (*domain.ScheduledTask, error) {
	task := &domain.ScheduledTask{
		Type:         domain.TaskPhaseAnalysis,
		UserID:       userID,
		ScheduledFor: s.clock.Now(),
	}
	id, err := s.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	task.ID = id

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		go s.dispatchDue()
	}
	return task, nil
}

// CleanupNow purges old terminal tasks and superseded assignments
// immediately, outside the recurring cadence.
func (s *Scheduler) CleanupNow(ctx context.Context) (string, error) {
	return s.runCleanup(ctx, &domain.ScheduledTask{Type: domain.TaskCleanup})
}

// worker claims and executes dispatched tasks until Stop.
func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case id := <-s.tasks:
			s.execute(id)
		}
	}
}

// dispatchDue queues every pending task whose time has come.
func (s *Scheduler) dispatchDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := s.taskRepo.GetDue(ctx, s.clock.Now(), 50)
	if err != nil {
		s.log.Error("failed to load due tasks", "error", err)
		return
	}
	for _, task := range due {
		select {
		case s.tasks <- task.ID:
		case <-s.quit:
			return
		default:
			// Channel full; the next tick re-dispatches what is left.
			return
		}
	}
}

// execute claims the task, runs its handler under the user lock and the
// configured wall-clock budget, and records the outcome with retry/backoff
// bookkeeping.
func (s *Scheduler) execute(id primitive.ObjectID) {
	now := s.clock.Now()
	claimCtx, cancelClaim := context.WithTimeout(context.Background(), 10*time.Second)
	task, err := s.taskRepo.ClaimPending(claimCtx, id, now)
	cancelClaim()
	if err != nil {
		// Already claimed or no longer pending.
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("failed to claim task", "task", id.Hex(), "error", err)
		}
		return
	}

	timeout := s.cfg.TaskTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if task.UserID != primitive.NilObjectID {
		unlock := s.locks.Lock(task.UserID)
		defer unlock()
	}

	handler, ok := s.handlers[task.Type]
	if !ok {
		s.finishFailed(task, fmt.Sprintf("no handler for task type %q", task.Type), false)
		return
	}

	result, err := handler(ctx, task)
	if err != nil {
		msg := err.Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("timed out after %s: %s", timeout, msg)
		}
		s.finishFailed(task, msg, task.Attempts < s.cfg.MaxAttempts)
		return
	}

	doneCtx, cancelDone := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelDone()
	if err := s.taskRepo.Complete(doneCtx, task.ID, result, s.clock.Now()); err != nil {
		s.log.Error("failed to mark task completed", "task", task.ID.Hex(), "error", err)
		return
	}
	s.log.Info("task completed", "task", task.ID.Hex(), "type", task.Type)
}

// finishFailed records a failure, rescheduling with exponential backoff
// while attempts remain. Beyond the limit the task stays failed and is
// surfaced via health/stats only.
func (s *Scheduler) finishFailed(task *domain.ScheduledTask, msg string, retry bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := s.clock.Now()
	var retryAt *time.Time
	if retry {
		backoff := s.cfg.RetryBackoff
		if backoff <= 0 {
			backoff = 5 * time.Minute
		}
		for i := 1; i < task.Attempts; i++ {
			backoff *= 2
		}
		at := now.Add(backoff)
		retryAt = &at
	}
	if err := s.taskRepo.Fail(ctx, task.ID, msg, retryAt, now); err != nil {
		s.log.Error("failed to mark task failed", "task", task.ID.Hex(), "error", err)
		return
	}
	s.log.Warn("task failed",
		"task", task.ID.Hex(),
		"type", task.Type,
		"attempts", task.Attempts,
		"retry", retry,
		"error", msg,
	)
}

// --- Default handlers ---

func (s *Scheduler) runPhaseAnalysis(ctx context.Context, task *domain.ScheduledTask) (string, error) {
	analysis, err := s.mesocycles.RunAnalysis(ctx, task.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveMesocycle) {
			return "no active mesocycle", nil
		}
		return "", err
	}
	return fmt.Sprintf("analysis %s: %s", analysis.ID.Hex(), analysis.RecommendedAction), nil
}

func (s *Scheduler) runReport(ctx context.Context, task *domain.ScheduledTask) (string, error) {
	period := PeriodWeekly
	if task.Type == domain.TaskMonthlyReport {
		period = PeriodMonthly
	}
	return s.reports.Generate(ctx, task.UserID, period)
}

func (s *Scheduler) runCacheTopUp(ctx context.Context, task *domain.ScheduledTask) (string, error) {
	result, err := s.materializer.Reconcile(ctx, task.UserID, s.cache.HorizonDays)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("checked=%d repaired=%d removed=%d", result.Checked, result.Repaired, result.Removed), nil
}

func (s *Scheduler) runCleanup(ctx context.Context, _ *domain.ScheduledTask) (string, error) {
	retention := s.cfg.RetentionDays
	if retention <= 0 {
		retention = 90
	}
	cutoff := s.clock.Now().AddDate(0, 0, -retention)

	tasksPurged, err := s.taskRepo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return "", err
	}
	assignmentsPurged, err := s.assignmentRepo.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("tasks=%d assignments=%d", tasksPurged, assignmentsPurged), nil
}

// --- Recurring sweeps ---

// sweep is the hourly cadence: advance phase clocks, roll over finished
// mesocycles, and enqueue the per-user work.
func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.mesocycles.TickWeeks(ctx); err != nil {
		s.log.Error("weeks-in-phase tick failed", "error", err)
	}
	if _, err := s.frequencies.RolloverExpired(ctx); err != nil {
		s.log.Error("mesocycle rollover sweep failed", "error", err)
	}

	s.enqueueAnalyses(ctx)
	s.enqueueReports(ctx)
	s.enqueueTopUps(ctx)
	s.enqueueCleanup(ctx)
}

// enqueueAnalyses schedules a phase analysis for every active mesocycle
// past the minimum weeks-in-phase with no pending recommendation.
func (s *Scheduler) enqueueAnalyses(ctx context.Context) {
	cycles, err := s.mesocycleRepo.ListActive(ctx)
	if err != nil {
		s.log.Error("analysis sweep: listing mesocycles failed", "error", err)
		return
	}
	now := s.clock.Now()
	for i := range cycles {
		m := &cycles[i]
		if m.WeeksInPhase < s.cfg.MinWeeksInPhase {
			continue
		}
		if _, err := s.analysisRepo.GetPendingByMesocycle(ctx, m.ID); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("analysis sweep: pending lookup failed", "mesocycle", m.ID.Hex(), "error", err)
			continue
		}
		s.enqueueOnce(ctx, domain.TaskPhaseAnalysis, m.UserID, now, now.AddDate(0, 0, -1))
	}
}

// enqueueReports schedules weekly reports on Sundays and monthly reports
// on the first of the month, once per user per period.
func (s *Scheduler) enqueueReports(ctx context.Context) {
	now := s.clock.Now()
	weekly := now.Weekday() == time.Sunday
	monthly := now.Day() == 1
	if !weekly && !monthly {
		return
	}
	users, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		s.log.Error("report sweep: listing users failed", "error", err)
		return
	}
	for _, userID := range users {
		if weekly {
			s.enqueueOnce(ctx, domain.TaskWeeklyReport, userID, now, now.AddDate(0, 0, -6))
		}
		if monthly {
			s.enqueueOnce(ctx, domain.TaskMonthlyReport, userID, now, now.AddDate(0, 0, -27))
		}
	}
}

// enqueueTopUps schedules a cache top-up for users nearing the edge of
// their materialized horizon.
func (s *Scheduler) enqueueTopUps(ctx context.Context) {
	users, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		s.log.Error("top-up sweep: listing users failed", "error", err)
		return
	}
	now := s.clock.Now()
	for _, userID := range users {
		short, err := s.materializer.HorizonShort(ctx, userID, s.cache.TopUpThresholdDays)
		if err != nil {
			s.log.Error("top-up sweep: horizon check failed", "user", userID.Hex(), "error", err)
			continue
		}
		if short {
			s.enqueueOnce(ctx, domain.TaskCacheTopUp, userID, now, now.AddDate(0, 0, -1))
		}
	}
}

// enqueueCleanup schedules the daily retention purge.
func (s *Scheduler) enqueueCleanup(ctx context.Context) {
	now := s.clock.Now()
	s.enqueueOnce(ctx, domain.TaskCleanup, primitive.NilObjectID, now, now.AddDate(0, 0, -1))
}

// enqueueOnce creates the task unless an equivalent one is already in
// flight since notBefore.
func (s *Scheduler) enqueueOnce(ctx context.Context, taskType domain.TaskType, userID primitive.ObjectID, at, notBefore time.Time) {
	exists, err := s.taskRepo.Exists(ctx, taskType, userID, notBefore)
	if err != nil {
		s.log.Error("enqueue: existence check failed", "type", taskType, "error", err)
		return
	}
	if exists {
		return
	}
	task := &domain.ScheduledTask{Type: taskType, UserID: userID, ScheduledFor: at}
	if _, err := s.taskRepo.Create(ctx, task); err != nil {
		s.log.Error("enqueue: task creation failed", "type", taskType, "error", err)
	}
}
