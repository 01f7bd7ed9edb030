package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/events"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"

	"github.com/go-chi/chi/v5"
)

type requestRefundRequest struct {
	Reason string `json:"reason"`
}

type refundsResponse struct {
	Items []models.Refund `json:"items"`
}

// RequestRefund cancels a ticket under the event's policy and records
// the refund.
func (h *Handler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	ticketID := chi.URLParam(r, "id")

	var req requestRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("request_refund", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	refund, err := h.repo.RequestRefund(ctx, ticketID, strings.TrimSpace(req.Reason))
	if err != nil {
		h.handleTicketingError(logger, w, "request_refund", err)
		return
	}
	if h.metrics != nil {
		h.metrics.RefundsProcessed.Inc()
	}
	h.publish(r.Context(), events.RefundProcessed, map[string]interface{}{
		"refund_id":    refund.ID,
		"ticket_id":    refund.TicketID,
		"order_id":     refund.OrderID,
		"refund_cents": refund.RefundCents,
	})
	writeJSON(w, http.StatusCreated, refund)
}

func (h *Handler) GetRefund(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	refundID := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	refund, err := h.repo.GetRefund(ctx, refundID)
	if err != nil {
		h.handleTicketingError(logger, w, "get_refund", err)
		return
	}
	writeJSON(w, http.StatusOK, refund)
}

func (h *Handler) ListOrderRefunds(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	orderID := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	items, err := h.repo.ListOrderRefunds(ctx, orderID)
	if err != nil {
		h.handleTicketingError(logger, w, "list_order_refunds", err)
		return
	}
	writeJSON(w, http.StatusOK, refundsResponse{Items: items})
}

func (h *Handler) SetRefundPolicy(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req models.RefundPolicyInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("set_refund_policy", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("set_refund_policy", "status", "validation_failed", "error", err)
		writeError(w, http.StatusBadRequest, "validation failed")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	policy, err := h.repo.SetRefundPolicy(ctx, req)
	if err != nil {
		h.handleTicketingError(logger, w, "set_refund_policy", err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (h *Handler) GetRefundPolicy(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || eventID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	policy, err := h.repo.GetRefundPolicy(ctx, eventID)
	if err != nil {
		h.handleTicketingError(logger, w, "get_refund_policy", err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}
