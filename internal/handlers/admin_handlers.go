package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ymcoiffure/salon-bookings/internal/http/response"
)

func (h *Handlers) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.admin.ListAppointments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, appts)
}

type toggleStatusRequest struct {
	IsOpen *bool `json:"is_open"`
}

type toggleStatusResponse struct {
	Success bool `json:"success"`
	IsOpen  bool `json:"is_open"`
}

func (h *Handlers) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	var req toggleStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsOpen == nil {
		response.BadRequest(w, "Le champ is_open est obligatoire")
		return
	}

	status, err := h.admin.SetOpen(r.Context(), *req.IsOpen)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, toggleStatusResponse{Success: true, IsOpen: status.IsOpen})
}

func (h *Handlers) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteAppointment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

func (h *Handlers) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.admin.ListBlacklist(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, entries)
}

type blacklistRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

func (h *Handlers) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.admin.AddToBlacklist(r.Context(), req.Email, req.Reason); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

func (h *Handlers) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.RemoveFromBlacklist(r.Context(), chi.URLParam(r, "email")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}
