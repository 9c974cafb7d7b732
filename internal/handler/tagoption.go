package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ptetdev/ptet/internal/domain/tag"
)

func (h *Handler) listTagOptions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	tagID, ok := h.pathID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.tags.IsOwner(r.Context(), tagID, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	page, err := parsePageParams(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	opts, total, err := h.tags.ListOptions(r.Context(), tagID, page.limit(), page.offset())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := make([]optionResponse, 0, len(opts))
	for i := range opts {
		resp = append(resp, toOptionResponse(&opts[i]))
	}
	writePageHeaders(w, r, page, total)
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) getTagOption(w http.ResponseWriter, r *http.Request) {
	_, optionID, ok := h.ownedOption(w, r)
	if !ok {
		return
	}

	opt, err := h.tags.GetOption(r.Context(), optionID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toOptionResponse(opt))
}

func (h *Handler) createTagOption(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	tagID, ok := h.pathID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.tags.IsOwner(r.Context(), tagID, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	t, err := h.tags.Get(r.Context(), tagID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if t.Type != tag.TypeEnum {
		h.writeError(w, r, http.StatusBadRequest, "options require an enum tag")
		return
	}

	req, ok := h.decodeOption(w, r)
	if !ok {
		return
	}
	opt := &tag.Option{
		TagID: tagID,
		Order: req.Order,
		Value: req.Value,
		Name:  req.Name,
	}
	if err := h.tags.CreateOption(r.Context(), opt); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, toOptionResponse(opt))
}

func (h *Handler) updateTagOption(w http.ResponseWriter, r *http.Request) {
	_, optionID, ok := h.ownedOption(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeOption(w, r)
	if !ok {
		return
	}
	opt := &tag.Option{
		ID:    optionID,
		Order: req.Order,
		Value: req.Value,
		Name:  req.Name,
	}
	if err := h.tags.UpdateOption(r.Context(), opt); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteTagOption(w http.ResponseWriter, r *http.Request) {
	_, optionID, ok := h.ownedOption(w, r)
	if !ok {
		return
	}
	if err := h.tags.DeleteOption(r.Context(), optionID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedOption resolves the option path parameter and checks ownership
// through the option's parent tag.
func (h *Handler) ownedOption(w http.ResponseWriter, r *http.Request) (*principal, int64, bool) {
	p, ok := h.caller(w, r)
	if !ok {
		return nil, 0, false
	}
	optionID, ok := h.pathID(w, r, "optionID")
	if !ok {
		return nil, 0, false
	}
	if err := h.tags.IsOptionOwner(r.Context(), optionID, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return nil, 0, false
	}
	return p, optionID, true
}

func (h *Handler) decodeOption(w http.ResponseWriter, r *http.Request) (*optionRequest, bool) {
	var req optionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed body")
		return nil, false
	}
	if req.Value == "" {
		h.writeError(w, r, http.StatusBadRequest, "value is required")
		return nil, false
	}
	return &req, true
}
