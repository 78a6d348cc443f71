package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/dto/response"
	"showtime-booking/internal/feed"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// OpenSession handles POST /api/booking/sessions
func (h *BookingHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req request.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	session, err := h.service.Open(r.Context(), req.ClientID, req.MoviePID)
	if err != nil {
		h.handleServiceError(w, err, "open session")
		return
	}

	utils.ResponseCreated(w, "Booking session opened", response.SessionToResponse(session))
}

// GetSession handles GET /api/booking/sessions/{id}
func (h *BookingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get session")
		return
	}

	utils.ResponseSuccess(w, "success", response.SessionToResponse(session))
}

// SelectCity handles POST /api/booking/sessions/{id}/city
func (h *BookingHandler) SelectCity(w http.ResponseWriter, r *http.Request) {
	var req request.SelectCityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	session, err := h.service.SelectCity(r.Context(), chi.URLParam(r, "id"), req.City)
	if err != nil {
		h.handleServiceError(w, err, "select city")
		return
	}

	utils.ResponseSuccess(w, "City selected", response.SessionToResponse(session))
}

// SelectDate handles POST /api/booking/sessions/{id}/date
func (h *BookingHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var req request.SelectDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	session, err := h.service.SelectDate(r.Context(), chi.URLParam(r, "id"), req.Date)
	if err != nil {
		h.handleServiceError(w, err, "select date")
		return
	}

	utils.ResponseSuccess(w, "Date selected", response.SessionToResponse(session))
}

// SelectShow handles POST /api/booking/sessions/{id}/show
func (h *BookingHandler) SelectShow(w http.ResponseWriter, r *http.Request) {
	var req request.SelectShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	session, err := h.service.SelectShow(r.Context(), chi.URLParam(r, "id"), req.ShowtimePID)
	if err != nil {
		h.handleServiceError(w, err, "select show")
		return
	}

	utils.ResponseSuccess(w, "Show selected", response.SessionToResponse(session))
}

// ConfirmSession handles POST /api/booking/sessions/{id}/confirm
func (h *BookingHandler) ConfirmSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "confirm booking")
		return
	}

	utils.ResponseSuccess(w, "Booking handed off", response.SessionToResponse(session))
}

// RefreshSession handles POST /api/booking/sessions/{id}/refresh
func (h *BookingHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Refresh(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "refresh session")
		return
	}

	utils.ResponseSuccess(w, "Session refreshed", response.SessionToResponse(session))
}

// CloseSession handles DELETE /api/booking/sessions/{id}
func (h *BookingHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err, "close session")
		return
	}

	utils.ResponseSuccess(w, "Booking session closed", nil)
}

func (h *BookingHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var fetchErr *feed.FetchError

	switch {
	case errors.Is(err, usecase.ErrSessionNotFound):
		h.log.Warn(operation+" failed - session not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, feed.ErrMissingMovieID),
		errors.Is(err, usecase.ErrInvalidTransition),
		errors.Is(err, usecase.ErrUnknownDate),
		errors.Is(err, usecase.ErrUnknownShow):
		h.log.Warn(operation+" failed - invalid input", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.As(err, &fetchErr):
		h.log.Error(operation+" failed - upstream feed", zap.Error(err))
		utils.ResponseBadGateway(w, err.Error())

	default:
		h.log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
