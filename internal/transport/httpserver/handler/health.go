package handler

import "net/http"

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authMeResponse struct {
	ID string `json:"id"`
}

func (h *Handlers) AuthMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, authMeResponse{ID: userID})
}
