package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"bookclub/internal/domain"
)

// WriteServiceError maps an error returned by a domain service to a JSON error response.
// Unknown errors are logged and reported as 500 without their text.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var blocked *domain.DeleteBlockedError
	switch {
	case errors.As(err, &blocked):
		WriteJSONError(w, http.StatusConflict, ErrCodeDeleteBlocked, blocked.Reason)
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidDate):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeInvalidDate, domain.ErrInvalidDate.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicateApplication):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, domain.ErrDuplicateApplication.Error())
	case errors.Is(err, domain.ErrEventCancelled):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, domain.ErrEventCancelled.Error())
	case errors.Is(err, domain.ErrEventClosed):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, domain.ErrEventClosed.Error())
	case errors.Is(err, domain.ErrTransient), errors.Is(err, domain.ErrLockTimeout):
		logger.WarnContext(r.Context(), "request contended", "path", r.URL.Path, "method", r.Method, "err", err)
		w.Header().Set("Retry-After", "1")
		WriteJSONError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, domain.ErrTransient.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}
