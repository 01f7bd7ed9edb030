package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"

	"github.com/go-chi/chi/v5"
)

type ticketTypesResponse struct {
	Items []models.TicketType `json:"items"`
	Total int                 `json:"total"`
}

func (h *Handler) CreateTicketType(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req models.TicketTypeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("create_ticket_type", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("create_ticket_type", "status", "validation_failed", "error", err)
		writeError(w, http.StatusBadRequest, "validation failed")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	created, err := h.repo.CreateTicketType(ctx, req)
	if err != nil {
		h.handleTicketingError(logger, w, "create_ticket_type", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetTicketType(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	item, err := h.repo.GetTicketType(ctx, id)
	if err != nil {
		h.handleTicketingError(logger, w, "get_ticket_type", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	eventID, active, err := parseTicketTypeFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	items, err := h.repo.ListTicketTypes(ctx, eventID, active)
	if err != nil {
		h.handleTicketingError(logger, w, "list_ticket_types", err)
		return
	}
	writeJSON(w, http.StatusOK, ticketTypesResponse{Items: items, Total: len(items)})
}

func (h *Handler) UpdateTicketType(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	id := chi.URLParam(r, "id")

	var patch models.TicketTypePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		logger.Warn("update_ticket_type", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	updated, err := h.repo.UpdateTicketType(ctx, id, patch)
	if err != nil {
		h.handleTicketingError(logger, w, "update_ticket_type", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeactivateTicketType(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	if err := h.repo.DeactivateTicketType(ctx, id); err != nil {
		h.handleTicketingError(logger, w, "deactivate_ticket_type", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func parseTicketTypeFilters(r *http.Request) (*int64, *bool, error) {
	var eventID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("event_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, nil, errors.New("invalid event_id")
		}
		eventID = &parsed
	}
	var active *bool
	if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, nil, errors.New("invalid active")
		}
		active = &parsed
	}
	return eventID, active, nil
}
