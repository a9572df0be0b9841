package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskType enumerates the work the background scheduler performs.
type TaskType string

const (
	TaskPhaseAnalysis TaskType = "phase_analysis"
	TaskWeeklyReport  TaskType = "weekly_report"
	TaskMonthlyReport TaskType = "monthly_report"
	TaskCacheTopUp    TaskType = "cache_topup"
	TaskCleanup       TaskType = "cleanup"
)

// TaskStatus type for the scheduled-task lifecycle.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// ScheduledTask is one unit of background work, owned by the scheduler.
// Tasks are created on a rolling horizon and moved through
// pending -> running -> completed|failed by the workers.
type ScheduledTask struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type         TaskType           `bson:"type" json:"type"`
	UserID       primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"` // Zero for system-wide tasks (cleanup)
	ScheduledFor time.Time          `bson:"scheduledFor" json:"scheduledFor"`
	Status       TaskStatus         `bson:"status" json:"status"`
	Attempts     int                `bson:"attempts" json:"attempts"`
	LastError    string             `bson:"lastError,omitempty" json:"lastError,omitempty"`
	Result       string             `bson:"result,omitempty" json:"result,omitempty"` // e.g. report artifact object key
	StartedAt    *time.Time         `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	FinishedAt   *time.Time         `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsTerminal reports whether the task reached a final status.
func (t *ScheduledTask) IsTerminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}
