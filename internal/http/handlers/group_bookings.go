package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/http/middleware"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"

	"github.com/go-chi/chi/v5"
)

type groupBookingsResponse struct {
	Items []models.GroupBooking `json:"items"`
}

func (h *Handler) CreateGroupBooking(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	organizerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.GroupBookingInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("create_group_booking", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("create_group_booking", "status", "validation_failed", "error", err)
		writeError(w, http.StatusBadRequest, "validation failed")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	created, err := h.repo.CreateGroupBooking(ctx, organizerID, req)
	if err != nil {
		h.handleTicketingError(logger, w, "create_group_booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetGroupBooking(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	booking, err := h.repo.GetGroupBooking(ctx, id)
	if err != nil {
		h.handleTicketingError(logger, w, "get_group_booking", err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) JoinGroupBooking(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	booking, err := h.repo.JoinGroupBooking(ctx, id)
	if err != nil {
		h.handleTicketingError(logger, w, "join_group_booking", err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) CompleteGroupBooking(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	booking, err := h.repo.CompleteGroupBooking(ctx, id)
	if err != nil {
		h.handleTicketingError(logger, w, "complete_group_booking", err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) CancelGroupBooking(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	booking, err := h.repo.CancelGroupBooking(ctx, id)
	if err != nil {
		h.handleTicketingError(logger, w, "cancel_group_booking", err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) ListGroupBookings(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	eventID, err := parseEventIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	items, err := h.repo.ListGroupBookings(ctx, eventID)
	if err != nil {
		h.handleTicketingError(logger, w, "list_group_bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, groupBookingsResponse{Items: items})
}
