// Package handler implements the HTTP API. Handlers decode requests,
// enforce ownership through the repositories and render JSON responses.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ptetdev/ptet/internal/auth/token"
	"github.com/ptetdev/ptet/internal/domain/ride"
	"github.com/ptetdev/ptet/internal/domain/ridetag"
	"github.com/ptetdev/ptet/internal/domain/tag"
	"github.com/ptetdev/ptet/internal/domain/user"
)

// Handler wires the domain repositories to the HTTP routes.
type Handler struct {
	verifier *token.Verifier
	users    user.Repository
	rides    ride.Repository
	tags     tag.Repository
	rideTags ridetag.Repository
	logger   *zap.Logger
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(
	verifier *token.Verifier,
	users user.Repository,
	rides ride.Repository,
	tags tag.Repository,
	rideTags ridetag.Repository,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		verifier: verifier,
		users:    users,
		rides:    rides,
		tags:     tags,
		rideTags: rideTags,
		logger:   logger,
	}
}

// Routes returns the API router. Every route requires a valid token,
// mutating routes additionally require the write claim.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.authenticate)

	r.Get("/user", h.getUser)

	r.Get("/ride", h.listRides)
	r.Get("/ride/{rideID}", h.getRide)
	r.Get("/ride/{rideID}/ride_tags", h.listRideTags)
	r.Get("/ride/{rideID}/ride_tags/{tagID}", h.getRideTagByTag)
	r.Get("/ride_tag/{linkID}", h.getRideTag)

	r.Get("/tag", h.listTags)
	r.Get("/tag/{tagID}", h.getTag)
	r.Get("/tag/{tagID}/tag_option", h.listTagOptions)
	r.Get("/tag_option/{optionID}", h.getTagOption)

	r.Group(func(r chi.Router) {
		r.Use(h.requireWrite)

		r.Put("/user", h.updateUser)

		r.Post("/ride", h.createRide)
		r.Put("/ride/{rideID}", h.updateRide)
		r.Delete("/ride/{rideID}", h.deleteRide)

		r.Post("/ride/{rideID}/ride_tags/{tagID}", h.createRideTag)
		r.Put("/ride_tag/{linkID}", h.updateRideTag)
		r.Delete("/ride_tag/{linkID}", h.deleteRideTag)

		r.Post("/tag", h.createTag)
		r.Put("/tag/{tagID}", h.updateTag)
		r.Delete("/tag/{tagID}", h.deleteTag)

		r.Post("/tag/{tagID}/tag_option", h.createTagOption)
		r.Put("/tag_option/{optionID}", h.updateTagOption)
		r.Delete("/tag_option/{optionID}", h.deleteTagOption)
	})

	return r
}

// pathID parses a numeric URL parameter. Non-numeric values map to 404,
// the same as a well-formed ID that matches nothing.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, http.StatusNotFound, "no such resource")
		return 0, false
	}
	return id, true
}
