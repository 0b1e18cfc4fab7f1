package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harborview/reportd/internal/platform/logger"
)

// NewRouter builds the HTTP routing tree for the report service.
func NewRouter(jobs JobService, log *slog.Logger) http.Handler {
	h := NewReportHandler(jobs)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Route("/api/reports", func(r chi.Router) {
		r.Post("/", h.SubmitReport)
		r.Get("/stats", h.GetQueueStats)
		r.Get("/{id}", h.GetReportStatus)
		r.Delete("/{id}", h.CancelReport)
	})

	return r
}

// requestLogger places a logger annotated with the request id into the
// request context, where handlers retrieve it via logger.FromContext.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := log
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				reqLog = log.With("request_id", reqID)
			}
			next.ServeHTTP(w, r.WithContext(logger.WithLogger(r.Context(), reqLog)))
		})
	}
}
