package daemon

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/tab"
)

// statusFor maps domain and service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrStale):
		return http.StatusConflict
	// Model replies that fail validation carry domain errors too; they are
	// upstream failures, not bad requests.
	case errors.Is(err, generation.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrEmptyCode),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidExercise):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotRegistered):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tab.ErrMaxTabs):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the mapped status. Server-side failures are logged
// with the request's correlation id.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(message,
			"correlation_id", GetCorrelationID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	s.jsonError(w, status, message, err)
}
