package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ptetdev/ptet/internal/domain/ride"
)

func (h *Handler) listRides(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	page, err := parsePageParams(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rides, total, err := h.rides.List(r.Context(), p.user.ID, page.limit(), page.offset())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := make([]rideResponse, 0, len(rides))
	for i := range rides {
		resp = append(resp, toRideResponse(&rides[i]))
	}
	writePageHeaders(w, r, page, total)
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) getRide(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "rideID")
	if !ok {
		return
	}
	if err := h.rides.IsOwner(r.Context(), id, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	rd, err := h.rides.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toRideResponse(rd))
}

func (h *Handler) createRide(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeRide(w, r)
	if !ok {
		return
	}
	rd := &ride.Ride{
		UserID:           p.user.ID,
		JourneyDeparture: *req.JourneyDeparture,
		JourneyArrival:   req.JourneyArrival,
		LocationFrom:     req.LocationFrom,
		LocationTo:       req.LocationTo,
		Remarks:          req.Remarks,
		IsTemplate:       req.IsTemplate,
	}
	if err := h.rides.Create(r.Context(), rd); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, toRideResponse(rd))
}

func (h *Handler) updateRide(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "rideID")
	if !ok {
		return
	}
	if err := h.rides.IsOwner(r.Context(), id, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	req, ok := h.decodeRide(w, r)
	if !ok {
		return
	}
	rd := &ride.Ride{
		ID:               id,
		UserID:           p.user.ID,
		JourneyDeparture: *req.JourneyDeparture,
		JourneyArrival:   req.JourneyArrival,
		LocationFrom:     req.LocationFrom,
		LocationTo:       req.LocationTo,
		Remarks:          req.Remarks,
		IsTemplate:       req.IsTemplate,
	}
	if err := h.rides.Update(r.Context(), rd); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteRide(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "rideID")
	if !ok {
		return
	}
	if err := h.rides.IsOwner(r.Context(), id, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.rides.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeRide parses and validates the ride payload shared by create and
// update.
func (h *Handler) decodeRide(w http.ResponseWriter, r *http.Request) (*rideRequest, bool) {
	var req rideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed body")
		return nil, false
	}
	if req.JourneyDeparture == nil {
		h.writeError(w, r, http.StatusBadRequest, "journey_departure is required")
		return nil, false
	}
	if req.LocationFrom == "" || req.LocationTo == "" {
		h.writeError(w, r, http.StatusBadRequest, "location_from and location_to are required")
		return nil, false
	}
	return &req, true
}
