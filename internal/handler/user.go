package handler

import (
	"encoding/json"
	"net/http"
)

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, r, http.StatusOK, toUserResponse(p.user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed body")
		return
	}
	if err := h.users.UpdateName(r.Context(), p.user.ID, req.Name); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
