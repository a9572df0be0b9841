package api

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/service"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MesocycleHandler serves the mesocycle state machine: the active block,
// pending phase analyses and frequency-change records, and their decisions.
type MesocycleHandler struct {
	mesocycleService service.MesocycleService
	frequencyService service.FrequencyChangeService
}

// NewMesocycleHandler creates a new MesocycleHandler.
func NewMesocycleHandler(mesocycleService service.MesocycleService, frequencyService service.FrequencyChangeService) *MesocycleHandler {
	return &MesocycleHandler{
		mesocycleService: mesocycleService,
		frequencyService: frequencyService,
	}
}

// --- Request/Response Structs ---

type MesocycleResponse struct {
	ID             string    `json:"id"`
	SplitType      string    `json:"splitType"`
	Frequency      int       `json:"frequency"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	DurationWeeks  int       `json:"durationWeeks"`
	Status         string    `json:"status"`
	CurrentPhase   string    `json:"currentPhase"`
	WeeksInPhase   int       `json:"weeksInPhase"`
	WeeksElapsed   int       `json:"weeksElapsed"`
	RemainingWeeks int       `json:"remainingWeeks"`
}

type AnalysisResponse struct {
	ID                string     `json:"id"`
	MesocycleID       string     `json:"mesocycleId"`
	ComputedAt        time.Time  `json:"computedAt"`
	Trend             string     `json:"trend"`
	Confidence        float64    `json:"confidence"`
	Stagnation        bool       `json:"stagnation"`
	StagnationType    string     `json:"stagnationType,omitempty"`
	Severity          string     `json:"severity,omitempty"`
	RecommendedAction string     `json:"recommendedAction"`
	RecommendedPhase  *string    `json:"recommendedPhase,omitempty"`
	Decision          string     `json:"decision"`
	Feedback          string     `json:"feedback,omitempty"`
	DecidedAt         *time.Time `json:"decidedAt,omitempty"`
}

type AnalysisDecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accepted rejected"`
	Feedback string `json:"feedback" binding:"omitempty,max=500"`
}

type FrequencyDecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=keep_current create_new"`
	Reason   string `json:"reason" binding:"omitempty,max=500"`
}

// --- Handler Methods ---

// GetActiveMesocycle returns the user's active training block.
func (h *MesocycleHandler) GetActiveMesocycle(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	m, err := h.mesocycleService.GetActive(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveMesocycle) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to load mesocycle")
		return
	}
	c.JSON(http.StatusOK, mapMesocycleToResponse(m, time.Now().UTC()))
}

// GetPendingAnalysis returns the pending phase analysis awaiting a verdict.
func (h *MesocycleHandler) GetPendingAnalysis(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	a, err := h.mesocycleService.GetPendingAnalysis(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to load analysis")
		return
	}
	c.JSON(http.StatusOK, mapAnalysisToResponse(a))
}

// DecideAnalysis applies the user's accept/reject verdict to an analysis.
func (h *MesocycleHandler) DecideAnalysis(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	analysisID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid analysis ID format")
		return
	}
	var req AnalysisDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	a, err := h.mesocycleService.DecideAnalysis(c.Request.Context(), userID, analysisID, domain.AnalysisDecision(req.Decision), req.Feedback)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAnalysisNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAnalysisNotOwned):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrAnalysisNotPending):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidDecision):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to apply decision")
		}
		return
	}
	c.JSON(http.StatusOK, mapAnalysisToResponse(a))
}

// GetPendingFrequencyChange returns the unresolved frequency conflict.
func (h *MesocycleHandler) GetPendingFrequencyChange(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	rec, err := h.frequencyService.GetPending(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrChangeNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to load frequency change")
		return
	}
	c.JSON(http.StatusOK, mapChangeToResponse(rec))
}

// DecideFrequencyChange resolves the pending frequency conflict.
func (h *MesocycleHandler) DecideFrequencyChange(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid record ID format")
		return
	}
	var req FrequencyDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	rec, err := h.frequencyService.Decide(c.Request.Context(), userID, recordID, domain.FrequencyDecision(req.Decision), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChangeNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrChangeNotOwned):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrChangeNotPending):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidChoice):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to apply decision")
		}
		return
	}
	c.JSON(http.StatusOK, mapChangeToResponse(rec))
}

// --- Mapping Helpers ---

func mapMesocycleToResponse(m *domain.Mesocycle, now time.Time) MesocycleResponse {
	return MesocycleResponse{
		ID:             m.ID.Hex(),
		SplitType:      string(m.SplitType),
		Frequency:      m.Frequency,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		DurationWeeks:  m.DurationWeeks,
		Status:         string(m.Status),
		CurrentPhase:   string(m.CurrentPhase),
		WeeksInPhase:   m.WeeksInPhase,
		WeeksElapsed:   m.WeeksElapsed(now),
		RemainingWeeks: m.RemainingWeeks(now),
	}
}

func mapAnalysisToResponse(a *domain.PhaseAnalysis) AnalysisResponse {
	resp := AnalysisResponse{
		ID:                a.ID.Hex(),
		MesocycleID:       a.MesocycleID.Hex(),
		ComputedAt:        a.ComputedAt,
		Trend:             string(a.Trend),
		Confidence:        a.Confidence,
		Stagnation:        a.Stagnation,
		StagnationType:    a.StagnationType,
		Severity:          string(a.Severity),
		RecommendedAction: string(a.RecommendedAction),
		Decision:          string(a.Decision),
		Feedback:          a.Feedback,
		DecidedAt:         a.DecidedAt,
	}
	if a.RecommendedPhase != nil {
		phase := string(*a.RecommendedPhase)
		resp.RecommendedPhase = &phase
	}
	return resp
}
