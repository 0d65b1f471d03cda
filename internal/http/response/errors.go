package response

import (
	"encoding/json"
	"net/http"

	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

// ErrorResponse is the envelope for every failed request. Success is always
// false so clients can branch on one field for both shapes.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// DuplicateResponse tells the client which active booking blocks a new one.
type DuplicateResponse struct {
	Success     bool   `json:"success"`
	IsDuplicate bool   `json:"isDuplicate"`
	Message     string `json:"message"`
	Suggestion  string `json:"suggestion"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, code, details string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code, Details: details})
}

const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeDuplicateBooking    = "DUPLICATE_BOOKING"
	CodeSlotTaken           = "SLOT_TAKEN"
	CodeInvalidCode         = "INVALID_CODE"
	CodeRateLimit           = "RATE_LIMIT_EXCEEDED"
	CodeDeliveryFailed      = "DELIVERY_FAILED"
	CodeCalendarUnavailable = "CALENDAR_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

func SlotTaken(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, CodeSlotTaken)
}

func Duplicate(w http.ResponseWriter, date, hhmm string) {
	WriteJSON(w, http.StatusConflict, DuplicateResponse{
		IsDuplicate: true,
		Message:     "Vous avez déjà un rendez-vous le " + date + " à " + hhmm + ".",
		Suggestion:  "Un seul rendez-vous actif est autorisé par client.",
		Date:        date,
		Time:        hhmm,
	})
}
