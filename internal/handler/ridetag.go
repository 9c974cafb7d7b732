package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/ptetdev/ptet/internal/domain/ridetag"
	"github.com/ptetdev/ptet/internal/domain/tag"
)

func (h *Handler) listRideTags(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	rideID, ok := h.pathID(w, r, "rideID")
	if !ok {
		return
	}
	if err := h.rides.IsOwner(r.Context(), rideID, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	links, err := h.rideTags.ListByRide(r.Context(), rideID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := make([]linkedTagResponse, 0, len(links))
	for i := range links {
		pair, err := h.linkedTag(r, &links[i])
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		resp = append(resp, pair)
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) getRideTagByTag(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	rideID, ok := h.pathID(w, r, "rideID")
	if !ok {
		return
	}
	tagID, ok := h.pathID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.rides.IsOwner(r.Context(), rideID, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	link, err := h.rideTags.GetByTag(r.Context(), rideID, tagID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	pair, err := h.linkedTag(r, link)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, pair)
}

func (h *Handler) createRideTag(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	rideID, ok := h.pathID(w, r, "rideID")
	if !ok {
		return
	}
	tagID, ok := h.pathID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.rides.IsOwner(r.Context(), rideID, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.tags.IsOwner(r.Context(), tagID, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	// one live link per (ride, tag) pair
	if _, err := h.rideTags.GetByTag(r.Context(), rideID, tagID); err == nil {
		h.writeError(w, r, http.StatusBadRequest, "tag already linked to ride")
		return
	} else if !errors.Is(err, ridetag.ErrNotFound) {
		h.writeDomainError(w, r, err)
		return
	}

	t, err := h.tags.Get(r.Context(), tagID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	req, ok := h.decodeLink(w, r, t)
	if !ok {
		return
	}

	link := &ridetag.Link{
		RideID:  rideID,
		TagID:   tagID,
		Order:   req.Order,
		Value:   *req.Value,
		Remarks: req.Remarks,
	}
	if err := h.rideTags.Create(r.Context(), link); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	pair, err := h.linkedTag(r, link)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, pair)
}

func (h *Handler) getRideTag(w http.ResponseWriter, r *http.Request) {
	link, ok := h.ownedLink(w, r)
	if !ok {
		return
	}
	pair, err := h.linkedTag(r, link)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, pair)
}

func (h *Handler) updateRideTag(w http.ResponseWriter, r *http.Request) {
	link, ok := h.ownedLink(w, r)
	if !ok {
		return
	}

	t, err := h.tags.Get(r.Context(), link.TagID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	req, ok := h.decodeLink(w, r, t)
	if !ok {
		return
	}

	link.Order = req.Order
	link.Value = *req.Value
	link.Remarks = req.Remarks
	if err := h.rideTags.Update(r.Context(), link); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteRideTag(w http.ResponseWriter, r *http.Request) {
	link, ok := h.ownedLink(w, r)
	if !ok {
		return
	}
	if err := h.rideTags.Delete(r.Context(), link.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedLink resolves the linkID parameter and checks it against the
// caller through the owning ride.
func (h *Handler) ownedLink(w http.ResponseWriter, r *http.Request) (*ridetag.Link, bool) {
	p, ok := h.caller(w, r)
	if !ok {
		return nil, false
	}
	linkID, ok := h.pathID(w, r, "linkID")
	if !ok {
		return nil, false
	}
	if err := h.rideTags.IsOwner(r.Context(), linkID, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}

	link, err := h.rideTags.Get(r.Context(), linkID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}
	return link, true
}

// decodeLink parses the link payload and type-checks its value against
// the tag descriptor.
func (h *Handler) decodeLink(w http.ResponseWriter, r *http.Request, t *tag.Tag) (*linkRequest, bool) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed body")
		return nil, false
	}
	if req.Value == nil {
		h.writeError(w, r, http.StatusBadRequest, "value is required")
		return nil, false
	}
	if err := req.Value.Validate(t); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

func (h *Handler) linkedTag(r *http.Request, link *ridetag.Link) (linkedTagResponse, error) {
	t, err := h.tags.Get(r.Context(), link.TagID)
	if err != nil {
		return linkedTagResponse{}, err
	}
	return linkedTagResponse{
		Link: toLinkResponse(link),
		Tag:  toTagResponse(t),
	}, nil
}
