package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medbridge/priorauth/internal/application/sequencer"
	"github.com/medbridge/priorauth/internal/application/service"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	reviewService service.ReviewService
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(reviewService service.ReviewService, logger Logger) *Handlers {
	return &Handlers{
		reviewService: reviewService,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RunResponse represents a run in API responses
type RunResponse struct {
	ID        string `json:"id"`
	CaseID    string `json:"case_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toRunResponse(run *entity.Run) RunResponse {
	return RunResponse{
		ID:        run.ID,
		CaseID:    run.CaseID,
		Status:    run.Status,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
		UpdatedAt: run.UpdatedAt.Format(time.RFC3339),
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitCase handles POST /api/runs
func (h *Handlers) SubmitCase(c *gin.Context) {
	var intake entity.CaseIntake
	if err := c.ShouldBindJSON(&intake); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	run, err := h.reviewService.SubmitCase(c.Request.Context(), &intake)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrRunAlreadyExists) {
			status = http.StatusConflict
		}
		c.JSON(status, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toRunResponse(run),
	})
}

// GetProgress handles GET /api/runs/:id
func (h *Handlers) GetProgress(c *gin.Context) {
	progress, err := h.reviewService.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(h.statusFor(err), Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    progress,
	})
}

// AdvanceRun handles POST /api/runs/:id/advance
func (h *Handlers) AdvanceRun(c *gin.Context) {
	progress, err := h.reviewService.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(h.statusFor(err), Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    progress,
	})
}

// GetDecision handles GET /api/runs/:id/decision
func (h *Handlers) GetDecision(c *gin.Context) {
	decision, err := h.reviewService.GetDecision(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(h.statusFor(err), Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    decision,
	})
}

// RecordOverride handles POST /api/runs/:id/override
func (h *Handlers) RecordOverride(c *gin.Context) {
	var req service.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	override, err := h.reviewService.RecordOverride(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.logger.Error("Failed to record override",
			"run_id", c.Param("id"),
			"error", err)
		c.JSON(h.statusFor(err), Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    override,
	})
}

// GetReport handles GET /api/runs/:id/report
func (h *Handlers) GetReport(c *gin.Context) {
	report, err := h.reviewService.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(h.statusFor(err), Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    report,
	})
}

// statusFor maps service errors to HTTP status codes
func (h *Handlers) statusFor(err error) int {
	switch {
	case errors.Is(err, sequencer.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoDecisionYet):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrMissingJustification),
		errors.Is(err, entity.ErrMissingClinicalBasis),
		errors.Is(err, entity.ErrMissingField):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
