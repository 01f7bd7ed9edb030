package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/events"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/http/middleware"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/repository"

	"github.com/go-chi/chi/v5"
)

type orderSelectionRequest struct {
	TicketTypeID string `json:"ticketTypeId"`
	Quantity     int    `json:"quantity"`
}

type createOrderRequest struct {
	EventID       int64                   `json:"eventId"`
	AttendeeName  string                  `json:"attendeeName"`
	AttendeeEmail string                  `json:"attendeeEmail"`
	Items         []orderSelectionRequest `json:"items"`
	PromoCode     string                  `json:"promoCode"`
	Country       string                  `json:"country"`
	State         string                  `json:"state"`
}

type confirmOrderRequest struct {
	PaymentID string `json:"paymentId"`
}

type applyPromoRequest struct {
	PromoCode string `json:"promoCode"`
}

type listOrdersResponse struct {
	Items []models.Order `json:"items"`
	Total int            `json:"total"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("create_order", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.EventID <= 0 || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "eventId and items are required")
		return
	}
	if strings.TrimSpace(req.AttendeeEmail) == "" {
		writeError(w, http.StatusBadRequest, "attendeeEmail is required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	detail, err := h.repo.CreateOrder(ctx, models.CreateOrderParams{
		UserID:        userID,
		EventID:       req.EventID,
		AttendeeName:  strings.TrimSpace(req.AttendeeName),
		AttendeeEmail: strings.TrimSpace(req.AttendeeEmail),
		Items:         mapSelections(req.Items),
		PromoCode:     strings.TrimSpace(req.PromoCode),
		Country:       strings.TrimSpace(req.Country),
		State:         strings.TrimSpace(req.State),
	})
	if err != nil {
		if h.metrics != nil && errors.Is(err, repository.ErrInsufficientInventory) {
			h.metrics.SoldOutRejections.Inc()
		}
		h.handleTicketingError(logger, w, "create_order", err)
		return
	}
	if h.metrics != nil {
		h.metrics.OrdersCreated.Inc()
	}
	writeJSON(w, http.StatusCreated, detail)
}

// ApplyPromo reprices a pending order with a promo code.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	orderID := chi.URLParam(r, "id")

	var req applyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("apply_promo", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.PromoCode) == "" {
		writeError(w, http.StatusBadRequest, "promoCode is required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	order, err := h.repo.ApplyPromo(ctx, orderID, req.PromoCode)
	if err != nil {
		h.handleTicketingError(logger, w, "apply_promo", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	orderID := chi.URLParam(r, "id")

	var req confirmOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("confirm_order", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	result, err := h.repo.ConfirmOrder(ctx, orderID, strings.TrimSpace(req.PaymentID))
	if err != nil {
		h.handleTicketingError(logger, w, "confirm_order", err)
		return
	}
	if h.metrics != nil {
		h.metrics.OrdersConfirmed.Inc()
		h.metrics.TicketsIssued.Add(float64(result.TicketsGenerated))
	}
	h.publish(r.Context(), events.OrderConfirmed, map[string]interface{}{
		"order_id":    result.Order.ID,
		"event_id":    result.Order.EventID,
		"tickets":     result.TicketsGenerated,
		"total_cents": result.Order.TotalCents,
		"currency":    result.Order.Currency,
	})
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	orderID := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	cancelled, err := h.repo.CancelOrder(ctx, orderID)
	if err != nil {
		h.handleTicketingError(logger, w, "cancel_order", err)
		return
	}
	h.publish(r.Context(), events.OrderCancelled, map[string]interface{}{
		"order_id": cancelled.ID,
		"event_id": cancelled.EventID,
	})
	writeJSON(w, http.StatusOK, cancelled)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	orderID := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	detail, err := h.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		h.handleTicketingError(logger, w, "get_order", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	orders, err := h.repo.ListOrders(ctx, userID)
	if err != nil {
		h.handleTicketingError(logger, w, "list_my_orders", err)
		return
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Items: orders, Total: len(orders)})
}

func mapSelections(items []orderSelectionRequest) []models.OrderItemSelection {
	out := make([]models.OrderItemSelection, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItemSelection{
			TicketTypeID: strings.TrimSpace(item.TicketTypeID),
			Quantity:     item.Quantity,
		})
	}
	return out
}
