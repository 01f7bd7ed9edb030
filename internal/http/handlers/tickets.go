package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/events"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/http/middleware"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"

	"github.com/go-chi/chi/v5"
)

type validateTicketRequest struct {
	QRPayload    string `json:"qrPayload"`
	SecurityHash string `json:"securityHash"`
}

func (h *Handler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.validateLimiter.Allow(strconv.FormatInt(userID, 10)) {
		writeError(w, http.StatusTooManyRequests, "too many validation requests")
		return
	}

	var req validateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("validate_ticket", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	result, err := h.repo.ValidateTicket(ctx, strings.TrimSpace(req.QRPayload), req.SecurityHash)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ValidationsTotal.WithLabelValues("rejected").Inc()
		}
		h.handleTicketingError(logger, w, "validate_ticket", err)
		return
	}
	if h.metrics != nil {
		h.metrics.ValidationsTotal.WithLabelValues(result.Status).Inc()
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CheckInTicket(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	staffID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ticketID := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	ticket, err := h.repo.CheckInTicket(ctx, ticketID, staffID)
	if err != nil {
		if h.metrics != nil {
			h.metrics.CheckinsTotal.WithLabelValues("rejected").Inc()
		}
		h.handleTicketingError(logger, w, "check_in_ticket", err)
		return
	}
	if h.metrics != nil {
		h.metrics.CheckinsTotal.WithLabelValues("admitted").Inc()
	}
	h.publish(r.Context(), events.TicketCheckedIn, map[string]interface{}{
		"ticket_id": ticket.ID,
		"event_id":  ticket.EventID,
		"staff_id":  staffID,
	})
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	ticketID := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	ticket, err := h.repo.GetTicket(ctx, ticketID)
	if err != nil {
		h.handleTicketingError(logger, w, "get_ticket", err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// TicketQRImage renders the ticket's QR payload as a PNG for wallet
// passes and e-mail embeds.
func (h *Handler) TicketQRImage(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	ticketID := chi.URLParam(r, "id")

	size := 256
	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 64 || parsed > 1024 {
			writeError(w, http.StatusBadRequest, "size must be between 64 and 1024")
			return
		}
		size = parsed
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	ticket, err := h.repo.GetTicket(ctx, ticketID)
	if err != nil {
		h.handleTicketingError(logger, w, "ticket_qr_image", err)
		return
	}

	png, err := ticketing.GenerateQRImagePNG(ticket.QRPayload, size)
	if err != nil {
		logger.Error("ticket_qr_image", "status", "encode_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(png)
}
