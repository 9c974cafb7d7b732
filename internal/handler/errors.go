package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/ptetdev/ptet/internal/domain/ride"
	"github.com/ptetdev/ptet/internal/domain/ridetag"
	"github.com/ptetdev/ptet/internal/domain/tag"
	"github.com/ptetdev/ptet/internal/domain/user"
	"github.com/ptetdev/ptet/pkg/httpapi"
)

// writeJSON renders v with the given status. Encoding failures are
// logged and abandoned since the header is already out.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log(r).Warn("Encode response", zap.Error(err))
	}
}

// writeError renders the error envelope shared by all endpoints.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, description string) {
	h.log(r).Info("Request failed",
		zap.Int("status", status),
		zap.String("description", description),
	)
	httpapi.WriteError(w, status, description)
}

// writeDomainError maps domain errors to HTTP statuses. Ownership and
// lookup failures collapse into 404 so foreign resources stay opaque.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, ride.ErrNotFound),
		errors.Is(err, tag.ErrNotFound),
		errors.Is(err, tag.ErrOptionNotFound),
		errors.Is(err, ridetag.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, err.Error())
	default:
		h.log(r).Error("Internal error", zap.Error(err))
		httpapi.WriteError(w, http.StatusInternalServerError, "")
	}
}

func (h *Handler) log(r *http.Request) *zap.Logger {
	if h.logger == nil {
		return zap.NewNop()
	}
	return h.logger.With(zap.String("path", r.URL.Path))
}
