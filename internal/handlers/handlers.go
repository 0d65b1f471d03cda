package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
	"github.com/ymcoiffure/salon-bookings/internal/http/response"
	"github.com/ymcoiffure/salon-bookings/internal/service"
	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

const maxBodyBytes = 64 << 10

type Handlers struct {
	bookings service.BookingService
	admin    service.AdminService
}

func New(bookings service.BookingService, admin service.AdminService) *Handlers {
	return &Handlers{bookings: bookings, admin: admin}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Données manquantes ou invalides")
		return false
	}
	return true
}

type successResponse struct {
	Success bool `json:"success"`
}

func writeSuccess(w http.ResponseWriter) {
	response.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

// writeServiceError maps the domain error taxonomy onto HTTP. Upstream
// failures are logged in full and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		duplicate  *domain.DuplicateBookingError
	)
	switch {
	case errors.As(err, &validation):
		response.BadRequest(w, validation.Message())
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, "Données manquantes ou invalides")
	case errors.As(err, &duplicate):
		response.Duplicate(w, duplicate.Date, duplicate.Time)
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "Réservation impossible pour cette adresse e-mail")
	case errors.Is(err, domain.ErrSlotTaken):
		response.SlotTaken(w, "Ce créneau vient d'être réservé, merci d'en choisir un autre")
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		response.WriteError(w, http.StatusBadRequest, "Code invalide", response.CodeInvalidCode)
	case errors.Is(err, domain.ErrTooManyAttempts):
		response.RateLimit(w, "Trop de tentatives, merci de réessayer plus tard")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "Rendez-vous introuvable")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Unauthorized(w, "Refusé")
	case errors.Is(err, domain.ErrDeliveryFailed):
		logger.ErrorContext(r.Context(), "Email delivery failed", "path", r.URL.Path, "error", err)
		response.WriteError(w, http.StatusInternalServerError, "Erreur technique", response.CodeDeliveryFailed)
	case errors.Is(err, domain.ErrCalendarUnavailable):
		logger.ErrorContext(r.Context(), "Calendar unavailable", "path", r.URL.Path, "error", err)
		response.WriteError(w, http.StatusInternalServerError, "Erreur confirmation", response.CodeCalendarUnavailable)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		response.InternalError(w, "Erreur technique")
	}
}
