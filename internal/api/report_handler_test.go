package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/reportd/internal/job"
)

// mockJobService implements JobService with scriptable results.
type mockJobService struct {
	submitID  uuid.UUID
	submitErr error
	lastReq   job.SubmitRequest

	snapshot  job.StatusSnapshot
	statusErr error

	cancelErr error

	stats    job.QueueStats
	statsErr error
}

func (m *mockJobService) Submit(_ context.Context, req job.SubmitRequest) (uuid.UUID, error) {
	m.lastReq = req
	if m.submitErr != nil {
		return uuid.Nil, m.submitErr
	}
	return m.submitID, nil
}

func (m *mockJobService) GetStatus(_ context.Context, _ uuid.UUID) (job.StatusSnapshot, error) {
	return m.snapshot, m.statusErr
}

func (m *mockJobService) Cancel(_ context.Context, _ uuid.UUID) error {
	return m.cancelErr
}

func (m *mockJobService) Stats(_ context.Context) (job.QueueStats, error) {
	return m.stats, m.statsErr
}

func serve(svc JobService, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewRouter(svc, log).ServeHTTP(rec, req)
	return rec
}

func validSubmitBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"kind":         "urar",
		"format":       "pdf",
		"payload":      map[string]any{"form": "1004"},
		"submitter_id": "appraiser-1",
		"priority":     3,
	})
	require.NoError(t, err)
	return body
}

func TestSubmitReportAccepted(t *testing.T) {
	svc := &mockJobService{submitID: uuid.New()}

	rec := serve(svc, http.MethodPost, "/api/reports", validSubmitBody(t))

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp SubmitReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, svc.submitID.String(), resp.JobID)

	assert.Equal(t, job.KindURAR, svc.lastReq.Kind)
	assert.Equal(t, job.FormatPDF, svc.lastReq.Format)
	assert.Equal(t, "appraiser-1", svc.lastReq.SubmitterID)
	assert.Equal(t, 3, svc.lastReq.Priority)
	assert.JSONEq(t, `{"form":"1004"}`, string(svc.lastReq.Payload))
}

func TestSubmitReportBadBody(t *testing.T) {
	svc := &mockJobService{submitID: uuid.New()}

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"kind": "urar"`},
		{"unknown field", `{"kind":"urar","format":"pdf","payload":{},"submitter_id":"a","bogus":1}`},
		{"missing required fields", `{"kind":"urar"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(svc, http.MethodPost, "/api/reports", []byte(tc.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmitReportQueueFull(t *testing.T) {
	svc := &mockJobService{submitErr: fmt.Errorf("capacity reached: %w", job.ErrQueueFull)}

	rec := serve(svc, http.MethodPost, "/api/reports", validSubmitBody(t))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Report queue is full, try again later", resp.Error)
}

func TestSubmitReportInvalidKind(t *testing.T) {
	svc := &mockJobService{submitErr: fmt.Errorf("unknown kind: %w", job.ErrInvalidJob)}

	rec := serve(svc, http.MethodPost, "/api/reports", validSubmitBody(t))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReportStatus(t *testing.T) {
	id := uuid.New()
	svc := &mockJobService{snapshot: job.StatusSnapshot{
		JobID:                id,
		Status:               job.StatusQueued,
		Position:             2,
		EstimatedWaitSeconds: 60,
	}}

	rec := serve(svc, http.MethodGet, "/api/reports/"+id.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap job.StatusSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, id, snap.JobID)
	assert.Equal(t, job.StatusQueued, snap.Status)
	assert.Equal(t, 2, snap.Position)
	assert.Equal(t, 60, snap.EstimatedWaitSeconds)
}

func TestGetReportStatusBadID(t *testing.T) {
	svc := &mockJobService{}

	rec := serve(svc, http.MethodGet, "/api/reports/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReportStatusNotFound(t *testing.T) {
	svc := &mockJobService{statusErr: fmt.Errorf("job: %w", job.ErrJobNotFound)}

	rec := serve(svc, http.MethodGet, "/api/reports/"+uuid.NewString(), nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Report job not found", resp.Error)
}

func TestCancelReport(t *testing.T) {
	svc := &mockJobService{}

	rec := serve(svc, http.MethodDelete, "/api/reports/"+uuid.NewString(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["cancelled"])
}

func TestCancelReportProcessing(t *testing.T) {
	svc := &mockJobService{cancelErr: fmt.Errorf("job: %w", job.ErrJobProcessing)}

	rec := serve(svc, http.MethodDelete, "/api/reports/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetQueueStats(t *testing.T) {
	svc := &mockJobService{stats: job.QueueStats{
		QueueSize:            4,
		ActiveJobs:           2,
		TotalCapacity:        100,
		WorkerCount:          4,
		EstimatedWaitSeconds: 120,
	}}

	rec := serve(svc, http.MethodGet, "/api/reports/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats job.QueueStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.QueueSize)
	assert.Equal(t, 2, stats.ActiveJobs)
	assert.Equal(t, 100, stats.TotalCapacity)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{job.ErrQueueFull, http.StatusServiceUnavailable},
		{job.ErrJobNotFound, http.StatusNotFound},
		{job.ErrJobProcessing, http.StatusConflict},
		{job.ErrInvalidJob, http.StatusBadRequest},
		{job.ErrNotRunning, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, MapErrorToStatusCode(fmt.Errorf("wrapped: %w", tc.err)))
	}
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
