package api

import (
	"alcyxob/fitness-scheduler/internal/scheduler"
	"alcyxob/fitness-scheduler/internal/storage"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SchedulerHandler is the operational control surface for the background
// scheduler, plus presigned-URL access to report artifacts.
type SchedulerHandler struct {
	sched *scheduler.Scheduler
	files storage.FileStorage
}

// NewSchedulerHandler creates a new SchedulerHandler.
func NewSchedulerHandler(sched *scheduler.Scheduler, files storage.FileStorage) *SchedulerHandler {
	return &SchedulerHandler{sched: sched, files: files}
}

// Start starts the scheduler. Idempotent.
func (h *SchedulerHandler) Start(c *gin.Context) {
	if err := h.sched.Start(); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to start scheduler")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// Stop stops the scheduler. Running tasks finish; idempotent.
func (h *SchedulerHandler) Stop(c *gin.Context) {
	h.sched.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// Health reports scheduler status and the next pending task.
func (h *SchedulerHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.sched.Health(c.Request.Context()))
}

// Stats reports task counts by status.
func (h *SchedulerHandler) Stats(c *gin.Context) {
	stats, err := h.sched.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load scheduler stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ForceAnalysis enqueues an immediate phase analysis for a user.
func (h *SchedulerHandler) ForceAnalysis(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	task, err := h.sched.ForceAnalysis(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to enqueue analysis")
		return
	}
	c.JSON(http.StatusAccepted, task)
}

// Cleanup runs the retention purge immediately.
func (h *SchedulerHandler) Cleanup(c *gin.Context) {
	result, err := h.sched.CleanupNow(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to run cleanup")
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ReportURL returns a presigned download URL for a report artifact.
// The wildcard carries the full object key (reports/<user>/<period>/<id>.json).
func (h *SchedulerHandler) ReportURL(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || !strings.HasPrefix(key, "reports/") {
		abortWithError(c, http.StatusBadRequest, "Invalid report key")
		return
	}

	url, err := h.files.GeneratePresignedDownloadURL(c.Request.Context(), key, storage.DefaultPresignedURLExpiry)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": storage.DefaultPresignedURLExpiry.String()})
}
