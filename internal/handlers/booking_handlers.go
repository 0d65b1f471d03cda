package handlers

import (
	"net/http"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
	"github.com/ymcoiffure/salon-bookings/internal/http/response"
	"github.com/ymcoiffure/salon-bookings/pkg/middleware"
)

func (h *Handlers) RequestVerification(w http.ResponseWriter, r *http.Request) {
	var req domain.VerificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.bookings.RequestVerification(r.Context(), req, middleware.ClientIP(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

type confirmResponse struct {
	Success bool   `json:"success"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

func (h *Handlers) ConfirmVerification(w http.ResponseWriter, r *http.Request) {
	var req domain.VerificationConfirm
	if !decodeJSON(w, r, &req) {
		return
	}

	appt, err := h.bookings.ConfirmVerification(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, confirmResponse{Success: true, Date: appt.Date, Time: appt.Time})
}

type statusResponse struct {
	IsOpen bool `json:"is_open"`
}

func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, statusResponse{IsOpen: h.bookings.IsOpen(r.Context())})
}

type busySlotsResponse struct {
	BusySlots []string `json:"busySlots"`
}

func (h *Handlers) BusySlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.bookings.BusySlots(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, busySlotsResponse{BusySlots: slots})
}

type cancelPreviewResponse struct {
	Success         bool   `json:"success"`
	ConfirmRequired bool   `json:"confirmRequired"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	ClientName      string `json:"clientName"`
	Message         string `json:"message"`
}

type cancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PreviewCancel answers GET on the e-mailed link. Mail scanners prefetch
// links, so it only describes the appointment; cancellation needs POST or DELETE.
func (h *Handlers) PreviewCancel(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.BadRequest(w, "Lien d'annulation invalide")
		return
	}

	appt, err := h.bookings.PreviewCancel(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, cancelPreviewResponse{
		Success:         true,
		ConfirmRequired: true,
		Date:            appt.Date,
		Time:            appt.Time,
		ClientName:      appt.ClientName,
		Message:         "Confirmez l'annulation de votre rendez-vous du " + appt.Date + " à " + appt.Time + ".",
	})
}

// CancelAppointment performs the self-cancel requested from the link.
func (h *Handlers) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.BadRequest(w, "Lien d'annulation invalide")
		return
	}

	if err := h.bookings.CancelByToken(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, cancelResponse{Success: true, Message: "Votre rendez-vous a été annulé."})
}
