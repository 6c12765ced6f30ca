package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/graphpool/internal/application/runner"
	"github.com/aescanero/graphpool/internal/application/workers"
	"github.com/aescanero/graphpool/pkg/domain/graph"
	"github.com/aescanero/graphpool/pkg/ports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RunSubmitRequest is a graph submission. It uses the same layout as YAML
// and JSON graph files.
type RunSubmitRequest struct {
	graph.Document
}

// RunSubmitResponse represents a run submission response
type RunSubmitResponse struct {
	RunID       string          `json:"run_id"`
	Status      ports.RunStatus `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// PoolResponse is the live pool state of an active run
type PoolResponse struct {
	RunID   string                          `json:"run_id"`
	Stats   workers.Stats                   `json:"stats"`
	Health  *workers.HealthStatus           `json:"health"`
	Workers map[string]workers.WorkerStatus `json:"workers"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"active_runs": len(s.runner.ActiveRuns()),
	})
}

// handleSubmitRun starts a traversal of the posted graph
func (s *Server) handleSubmitRun(c *gin.Context) {
	var req RunSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid request", zap.Error(err))
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	g, err := req.Document.Graph()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_GRAPH", err.Error())
		return
	}

	runID, err := s.runner.Submit(c.Request.Context(), g)
	if err != nil {
		s.logger.Error("failed to submit run", zap.Error(err))
		switch {
		case errors.Is(err, graph.ErrInvalidGraph):
			errorResponse(c, http.StatusBadRequest, "INVALID_GRAPH", err.Error())
		case errors.Is(err, runner.ErrShuttingDown):
			errorResponse(c, http.StatusServiceUnavailable, "SHUTTING_DOWN", err.Error())
		default:
			errorResponse(c, http.StatusUnprocessableEntity, "SUBMISSION_FAILED", err.Error())
		}
		return
	}

	c.JSON(http.StatusAccepted, RunSubmitResponse{
		RunID:       runID,
		Status:      ports.RunStatusRunning,
		SubmittedAt: time.Now().UTC(),
	})
}

// handleListRuns lists stored run results
func (s *Server) handleListRuns(c *gin.Context) {
	results, err := s.runner.ListResults(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to list runs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  results,
		"total": len(results),
	})
}

// handleGetRun returns the stored result of a run
func (s *Server) handleGetRun(c *gin.Context) {
	runID := c.Param("id")

	result, err := s.runner.GetResult(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Run not found")
			return
		}
		s.logger.Error("failed to get run", zap.String("run_id", runID), zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to get run")
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleGetPool returns the live pool state of an active run
func (s *Server) handleGetPool(c *gin.Context) {
	runID := c.Param("id")

	stats, health, err := s.runner.PoolStatus(runID)
	if err != nil {
		errorResponse(c, http.StatusNotFound, "RUN_NOT_ACTIVE", err.Error())
		return
	}

	c.JSON(http.StatusOK, PoolResponse{
		RunID:   runID,
		Stats:   stats,
		Health:  health,
		Workers: s.runner.WorkerStatus(runID),
	})
}
