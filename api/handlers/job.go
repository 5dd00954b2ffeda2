package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/canbahi79-lgtm/formatfactory/api/dto"
	"github.com/canbahi79-lgtm/formatfactory/api/middleware"
)

// JobService is implemented by service.JobService.
type JobService interface {
	CreateJob(ctx context.Context, traceID string, req *dto.ConvertRequest) (*dto.ConvertResponse, error)
	GetJobStatus(ctx context.Context, jobID string) (*dto.StatusResponse, error)
}

type JobHandler struct {
	service JobService
	logger  *zap.Logger
}

func NewJobHandler(service JobService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

// Convert handles POST /api/jobs/convert.
func (h *JobHandler) Convert(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreateJob(r.Context(), traceID, &req)
	if err != nil {
		if errors.Is(err, dto.ErrEmptyContent) {
			h.handleError(w, "contentText required", err, traceID, http.StatusBadRequest)
			return
		}
		h.handleError(w, "Failed to create job", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Conversion job accepted",
		zap.String("trace_id", traceID),
		zap.String("job_id", resp.JobID),
	)

	h.respondJSON(w, http.StatusCreated, resp)
}

// Status handles GET /api/jobs/status/{id}. An unknown id gets a 404 with a
// failure-shaped body so polling clients can stop without special-casing.
func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/status/")
	if jobID == "" {
		h.handleError(w, "Job ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetJobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, dto.ErrJobNotFound) {
			h.respondJSON(w, http.StatusNotFound, dto.StatusResponse{
				JobID:  jobID,
				Status: "failed",
				Error:  "not_found",
			})
			return
		}
		h.handleError(w, "Failed to get job status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *JobHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *JobHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
