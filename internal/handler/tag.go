package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ptetdev/ptet/internal/domain/tag"
)

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	page, err := parsePageParams(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tags, total, err := h.tags.List(r.Context(), p.user.ID, page.limit(), page.offset())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := make([]tagResponse, 0, len(tags))
	for i := range tags {
		resp = append(resp, toTagResponse(&tags[i]))
	}
	writePageHeaders(w, r, page, total)
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) getTag(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.tags.IsOwner(r.Context(), id, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	t, err := h.tags.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toTagResponse(t))
}

func (h *Handler) createTag(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}

	req, tagType, ok := h.decodeTag(w, r)
	if !ok {
		return
	}
	t := &tag.Tag{
		UserID:  p.user.ID,
		Type:    tagType,
		Key:     req.TagKey,
		Name:    req.TagName,
		Unit:    req.Unit,
		Remarks: req.Remarks,
	}
	if err := h.tags.Create(r.Context(), t); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, toTagResponse(t))
}

func (h *Handler) updateTag(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.tags.IsOwner(r.Context(), id, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	req, tagType, ok := h.decodeTag(w, r)
	if !ok {
		return
	}
	t := &tag.Tag{
		ID:      id,
		UserID:  p.user.ID,
		Type:    tagType,
		Key:     req.TagKey,
		Name:    req.TagName,
		Unit:    req.Unit,
		Remarks: req.Remarks,
	}
	if err := h.tags.Update(r.Context(), t); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteTag(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.tags.IsOwner(r.Context(), id, p.user.ID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.tags.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeTag(w http.ResponseWriter, r *http.Request) (*tagRequest, tag.Type, bool) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed body")
		return nil, "", false
	}
	if req.TagKey == "" {
		h.writeError(w, r, http.StatusBadRequest, "tag_key is required")
		return nil, "", false
	}
	tagType, err := tag.ParseType(req.TagType)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, "", false
	}
	return &req, tagType, true
}
