package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"

	"github.com/go-chi/chi/v5"
)

type validatePromoRequest struct {
	EventID       int64  `json:"eventId"`
	Code          string `json:"code"`
	SubtotalCents int64  `json:"subtotalCents"`
}

type promoCodesResponse struct {
	Items []models.PromoCode `json:"items"`
}

func (h *Handler) CreatePromoCode(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req models.PromoCodeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("create_promo_code", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("create_promo_code", "status", "validation_failed", "error", err)
		writeError(w, http.StatusBadRequest, "validation failed")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	created, err := h.repo.CreatePromoCode(ctx, req)
	if err != nil {
		h.handleTicketingError(logger, w, "create_promo_code", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListPromoCodes(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	eventID, _, err := parseTicketTypeFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	items, err := h.repo.ListPromoCodes(ctx, eventID)
	if err != nil {
		h.handleTicketingError(logger, w, "list_promo_codes", err)
		return
	}
	writeJSON(w, http.StatusOK, promoCodesResponse{Items: items})
}

// ValidatePromoCode checks a code against an order amount without
// consuming a use.
func (h *Handler) ValidatePromoCode(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req validatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("validate_promo_code", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Code) == "" || req.SubtotalCents <= 0 {
		writeError(w, http.StatusBadRequest, "code and subtotalCents are required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	result, err := h.repo.ValidatePromoCode(ctx, req.Code, req.EventID, req.SubtotalCents)
	if err != nil {
		h.handleTicketingError(logger, w, "validate_promo_code", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) DeactivatePromoCode(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	code := chi.URLParam(r, "code")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	if err := h.repo.DeactivatePromoCode(ctx, code); err != nil {
		h.handleTicketingError(logger, w, "deactivate_promo_code", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
