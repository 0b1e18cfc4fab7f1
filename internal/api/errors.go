package api

import (
	"errors"
	"net/http"

	"github.com/harborview/reportd/internal/job"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, job.ErrQueueFull):
		return http.StatusServiceUnavailable

	case errors.Is(err, job.ErrJobNotFound):
		return http.StatusNotFound

	case errors.Is(err, job.ErrJobProcessing):
		return http.StatusConflict

	case errors.Is(err, job.ErrInvalidJob):
		return http.StatusBadRequest

	case errors.Is(err, job.ErrNotRunning):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, job.ErrQueueFull):
		return "Report queue is full, try again later"

	case errors.Is(err, job.ErrJobNotFound):
		return "Report job not found"

	case errors.Is(err, job.ErrJobProcessing):
		return "Report job is already processing and cannot be cancelled"

	case errors.Is(err, job.ErrInvalidJob):
		return "Invalid report kind or format"

	case errors.Is(err, job.ErrNotRunning):
		return "Report service is unavailable"

	default:
		return "An unexpected error occurred"
	}
}
