package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/harborview/reportd/internal/job"
	"github.com/harborview/reportd/internal/platform/logger"
)

// JobService is the slice of the job system the HTTP layer depends on.
type JobService interface {
	Submit(ctx context.Context, req job.SubmitRequest) (uuid.UUID, error)
	GetStatus(ctx context.Context, id uuid.UUID) (job.StatusSnapshot, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (job.QueueStats, error)
}

// SubmitReportRequest represents the request body for submitting a new
// report job. The payload is kept raw; the job system never inspects
// its contents.
type SubmitReportRequest struct {
	Kind        string          `json:"kind" validate:"required"`
	Format      string          `json:"format" validate:"required"`
	Payload     json.RawMessage `json:"payload" validate:"required"`
	SubmitterID string          `json:"submitter_id" validate:"required"`
	Priority    int             `json:"priority" validate:"gte=0"`
}

// SubmitReportResponse represents the response for an accepted job.
type SubmitReportResponse struct {
	JobID string `json:"job_id"`
}

// ReportHandler handles report-job HTTP requests.
type ReportHandler struct {
	jobs      JobService
	validator *validator.Validate
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(jobs JobService) *ReportHandler {
	return &ReportHandler{
		jobs:      jobs,
		validator: validator.New(),
	}
}

// SubmitReport handles POST /api/reports requests. Processing is
// asynchronous, so success is 202 Accepted with the job id to poll.
func (h *ReportHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req SubmitReportRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	id, err := h.jobs.Submit(r.Context(), job.SubmitRequest{
		Kind:        job.Kind(req.Kind),
		Format:      job.Format(req.Format),
		Payload:     req.Payload,
		SubmitterID: req.SubmitterID,
		Priority:    req.Priority,
	})
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to submit report job",
			"error", err,
			"submitter_id", req.SubmitterID)
		RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	RespondWithJSON(w, r, http.StatusAccepted, SubmitReportResponse{JobID: id.String()})
}

// GetReportStatus handles GET /api/reports/{id} requests.
func (h *ReportHandler) GetReportStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	snap, err := h.jobs.GetStatus(r.Context(), id)
	if err != nil {
		RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	RespondWithJSON(w, r, http.StatusOK, snap)
}

// CancelReport handles DELETE /api/reports/{id} requests.
func (h *ReportHandler) CancelReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	if err := h.jobs.Cancel(r.Context(), id); err != nil {
		RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	RespondWithJSON(w, r, http.StatusOK, map[string]bool{"cancelled": true})
}

// GetQueueStats handles GET /api/reports/stats requests.
func (h *ReportHandler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.Stats(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to read queue stats", "error", err)
		RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	RespondWithJSON(w, r, http.StatusOK, stats)
}
