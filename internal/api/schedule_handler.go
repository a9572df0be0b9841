package api

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"alcyxob/fitness-scheduler/internal/service"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler serves the weekly schedule, the materialized workouts and
// the recovery view, and accepts preference updates and completion events.
type ScheduleHandler struct {
	assignmentRepo   repository.SplitAssignmentRepository
	frequencyService service.FrequencyChangeService
	materializer     service.MaterializerService
	sessionService   service.SessionService
	recoveryService  service.RecoveryService
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(
	assignmentRepo repository.SplitAssignmentRepository,
	frequencyService service.FrequencyChangeService,
	materializer service.MaterializerService,
	sessionService service.SessionService,
	recoveryService service.RecoveryService,
) *ScheduleHandler {
	return &ScheduleHandler{
		assignmentRepo:   assignmentRepo,
		frequencyService: frequencyService,
		materializer:     materializer,
		sessionService:   sessionService,
		recoveryService:  recoveryService,
	}
}

// --- Request/Response Structs ---

type AssignmentResponse struct {
	ID           string               `json:"id"`
	DayOfWeek    int                  `json:"dayOfWeek"`
	SplitID      string               `json:"splitId"`
	SplitName    string               `json:"splitName"`
	MuscleGroups []domain.MuscleGroup `json:"muscleGroups"`
	AutoAssigned bool                 `json:"autoAssigned"`
}

type PreferencesRequest struct {
	WeeklyFrequency *int  `json:"weeklyFrequency" binding:"required,min=0,max=7"`
	TrainingDays    []int `json:"trainingDays" binding:"omitempty,dive,min=0,max=6"`
}

type PreferencesResponse struct {
	Updated       bool                     `json:"updated"`
	PendingChange *FrequencyChangeResponse `json:"pendingChange,omitempty"`
}

type FrequencyChangeResponse struct {
	ID                 string     `json:"id"`
	OldFrequency       int        `json:"oldFrequency"`
	NewFrequency       int        `json:"newFrequency"`
	OldSplitType       string     `json:"oldSplitType"`
	SuggestedSplitType string     `json:"suggestedSplitType"`
	RemainingWeeks     int        `json:"remainingWeeks"`
	Decision           string     `json:"decision"`
	Reason             string     `json:"reason,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	DecidedAt          *time.Time `json:"decidedAt,omitempty"`
}

type WorkoutResponse struct {
	ID           string               `json:"id"`
	WorkoutDate  time.Time            `json:"workoutDate"`
	SplitID      string               `json:"splitId"`
	SplitName    string               `json:"splitName"`
	MuscleGroups []domain.MuscleGroup `json:"muscleGroups"`
	Consumed     bool                 `json:"consumed"`
}

type SessionRequest struct {
	Date         string               `json:"date" binding:"required"` // YYYY-MM-DD
	MuscleGroups []domain.MuscleGroup `json:"muscleGroups" binding:"required,min=1"`
	Intensity    int                  `json:"intensity" binding:"omitempty,min=1,max=10"`
	RPE          float64              `json:"rpe" binding:"omitempty,min=0,max=10"`
}

type SessionResponse struct {
	ID           string               `json:"id"`
	Date         time.Time            `json:"date"`
	MuscleGroups []domain.MuscleGroup `json:"muscleGroups"`
	Intensity    int                  `json:"intensity"`
	RPE          float64              `json:"rpe,omitempty"`
	CompletedAt  time.Time            `json:"completedAt"`
}

// --- Handler Methods ---

// GetSchedule returns the user's active day-of-week assignments.
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	assignments, err := h.assignmentRepo.GetActiveByUser(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load schedule")
		return
	}

	resp := make([]AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		a := &assignments[i]
		resp = append(resp, AssignmentResponse{
			ID:           a.ID.Hex(),
			DayOfWeek:    a.DayOfWeek,
			SplitID:      a.SplitID.Hex(),
			SplitName:    a.SplitName,
			MuscleGroups: a.MuscleGroups,
			AutoAssigned: a.AutoAssigned,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// UpdatePreferences godoc
// @Summary Update training preferences
// @Description Persists the declared weekly frequency and preferred days.
// A frequency diverging from the active mesocycle's returns 409 with the
// pending change record; nothing is regenerated until it is decided.
// @Tags Schedule
// @Router /schedule/preferences [put]
func (h *ScheduleHandler) UpdatePreferences(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	rec, err := h.frequencyService.UpdatePreferences(c.Request.Context(), userID, *req.WeeklyFrequency, req.TrainingDays)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPendingChangeExists):
			c.JSON(http.StatusConflict, PreferencesResponse{Updated: true, PendingChange: mapChangeToResponse(rec)})
		case errors.Is(err, service.ErrInvalidFrequency):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrNotFound):
			abortWithError(c, http.StatusNotFound, "User not found")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to update preferences")
		}
		return
	}

	resp := PreferencesResponse{Updated: true}
	if rec != nil {
		resp.PendingChange = mapChangeToResponse(rec)
		c.JSON(http.StatusConflict, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetTodayWorkout serves today's materialized workout.
func (h *ScheduleHandler) GetTodayWorkout(c *gin.Context) {
	h.serveWorkout(c, time.Now().UTC())
}

// GetWorkoutByDate serves the materialized workout for a specific date.
func (h *ScheduleHandler) GetWorkoutByDate(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	h.serveWorkout(c, date)
}

func (h *ScheduleHandler) serveWorkout(c *gin.Context, date time.Time) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	workout, err := h.materializer.GetWorkoutForDate(c.Request.Context(), userID, date)
	if err != nil {
		if errors.Is(err, service.ErrRestDay) {
			c.JSON(http.StatusOK, gin.H{"restDay": true, "date": domain.WorkoutDay(date)})
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to load workout")
		return
	}
	c.JSON(http.StatusOK, mapWorkoutToResponse(workout))
}

// RecordSession ingests a workout-completion event.
func (h *ScheduleHandler) RecordSession(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	session, err := h.sessionService.RecordSession(c.Request.Context(), userID, date, req.MuscleGroups, req.Intensity, req.RPE)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSession) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to record session")
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{
		ID:           session.ID.Hex(),
		Date:         session.Date,
		MuscleGroups: session.MuscleGroups,
		Intensity:    session.Intensity,
		RPE:          session.RPE,
		CompletedAt:  session.CompletedAt,
	})
}

// GetRecovery returns the computed per-muscle-group recovery view.
func (h *ScheduleHandler) GetRecovery(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	statuses, err := h.recoveryService.GetRecoveryStatus(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to compute recovery status")
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// --- Mapping Helpers ---

func mapWorkoutToResponse(w *domain.CachedWorkout) WorkoutResponse {
	return WorkoutResponse{
		ID:           w.ID.Hex(),
		WorkoutDate:  w.WorkoutDate,
		SplitID:      w.SplitID.Hex(),
		SplitName:    w.SplitName,
		MuscleGroups: w.MuscleGroups,
		Consumed:     w.Consumed,
	}
}

func mapChangeToResponse(rec *domain.FrequencyChangeRecord) *FrequencyChangeResponse {
	if rec == nil {
		return nil
	}
	return &FrequencyChangeResponse{
		ID:                 rec.ID.Hex(),
		OldFrequency:       rec.OldFrequency,
		NewFrequency:       rec.NewFrequency,
		OldSplitType:       string(rec.OldSplitType),
		SuggestedSplitType: string(rec.SuggestedSplitType),
		RemainingWeeks:     rec.RemainingWeeks,
		Decision:           string(rec.Decision),
		Reason:             rec.Reason,
		CreatedAt:          rec.CreatedAt,
		DecidedAt:          rec.DecidedAt,
	}
}
