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

type bulkDiscountsResponse struct {
	Items []models.BulkDiscount `json:"items"`
}

type taxRulesResponse struct {
	Items []models.TaxRule `json:"items"`
}

func (h *Handler) CreateBulkDiscount(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req models.BulkDiscountInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("create_bulk_discount", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("create_bulk_discount", "status", "validation_failed", "error", err)
		writeError(w, http.StatusBadRequest, "validation failed")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	created, err := h.repo.CreateBulkDiscount(ctx, req)
	if err != nil {
		h.handleTicketingError(logger, w, "create_bulk_discount", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListBulkDiscounts(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	eventID, err := parseEventIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	items, err := h.repo.ListBulkDiscounts(ctx, eventID)
	if err != nil {
		h.handleTicketingError(logger, w, "list_bulk_discounts", err)
		return
	}
	writeJSON(w, http.StatusOK, bulkDiscountsResponse{Items: items})
}

func (h *Handler) DeleteBulkDiscount(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	if err := h.repo.DeleteBulkDiscount(ctx, id); err != nil {
		h.handleTicketingError(logger, w, "delete_bulk_discount", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) CreateTaxRule(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req models.TaxRuleInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("create_tax_rule", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("create_tax_rule", "status", "validation_failed", "error", err)
		writeError(w, http.StatusBadRequest, "validation failed")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	created, err := h.repo.CreateTaxRule(ctx, req)
	if err != nil {
		h.handleTicketingError(logger, w, "create_tax_rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListTaxRules(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	items, err := h.repo.ListTaxRules(ctx)
	if err != nil {
		h.handleTicketingError(logger, w, "list_tax_rules", err)
		return
	}
	writeJSON(w, http.StatusOK, taxRulesResponse{Items: items})
}

func (h *Handler) DeleteTaxRule(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	if err := h.repo.DeleteTaxRule(ctx, id); err != nil {
		h.handleTicketingError(logger, w, "delete_tax_rule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func parseEventIDParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("event_id"))
	if raw == "" {
		return 0, errors.New("event_id is required")
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid event_id")
	}
	return parsed, nil
}
