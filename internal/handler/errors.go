package handler

import (
	"errors"
	"net/http"

	"quill/internal/domain"
	"quill/internal/httputil"
)

// respondServiceError maps engine errors to HTTP responses.
func respondServiceError(w http.ResponseWriter, err error) {
	// Conflicts carry both edits so the caller can drive resolution
	var conflict *domain.EditConflictError
	if errors.As(err, &conflict) {
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflict.Error(), map[string]interface{}{
			"proposed": conflict.Proposed,
			"existing": conflict.Existing,
		})
		return
	}

	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), err.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrStaleOffset):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrLockConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrLockedByOther):
		httputil.RespondError(w, http.StatusLocked, err.Error())
	case errors.Is(err, domain.ErrGatewayUnavailable):
		httputil.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
