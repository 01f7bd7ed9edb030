package handlers

import (
	"errors"
	"net/http"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/repository"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"

	"github.com/jackc/pgx/v5"
)

// handleTicketingError maps repository sentinels onto HTTP statuses in
// one place. Forged or mismatched tickets deliberately share one opaque
// message so a scanner learns nothing about the stored hash.
func (h *Handler) handleTicketingError(logger interface {
	Error(string, ...any)
	Warn(string, ...any)
}, w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrTicketTypeNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrTicketNotFound),
		errors.Is(err, repository.ErrPromoNotFound),
		errors.Is(err, repository.ErrRefundNotFound),
		errors.Is(err, repository.ErrBulkDiscountNotFound),
		errors.Is(err, repository.ErrTaxRuleNotFound),
		errors.Is(err, repository.ErrDeviceNotFound),
		errors.Is(err, repository.ErrCacheNotFound),
		errors.Is(err, repository.ErrGroupBookingNotFound),
		errors.Is(err, pgx.ErrNoRows):
		logger.Warn(action, "status", "not_found", "error", err)
		writeError(w, http.StatusNotFound, "not found")

	case errors.Is(err, ticketing.ErrMalformedPayload),
		errors.Is(err, ticketing.ErrHashMismatch):
		logger.Warn(action, "status", "invalid_ticket")
		writeError(w, http.StatusBadRequest, "invalid ticket")

	case errors.Is(err, repository.ErrEmptyOrder),
		errors.Is(err, repository.ErrEventMismatch),
		errors.Is(err, repository.ErrQuantityOutOfRange),
		errors.Is(err, repository.ErrInvalidSaleWindow),
		errors.Is(err, repository.ErrInvalidPurchaseRange),
		errors.Is(err, repository.ErrPromoNotValid),
		errors.Is(err, repository.ErrInvalidTaxRate),
		errors.Is(err, repository.ErrInvalidPercentage),
		errors.Is(err, repository.ErrInvalidGroupRange):
		logger.Warn(action, "status", "invalid_request", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, repository.ErrDeviceAuthFailed):
		logger.Warn(action, "status", "device_auth_failed")
		writeError(w, http.StatusUnauthorized, "device authentication failed")

	case errors.Is(err, repository.ErrRefundNotAllowed),
		errors.Is(err, repository.ErrRefundWindowClosed):
		logger.Warn(action, "status", "refund_rejected", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	// Invariant violations name what was violated but always reject
	// with 400; the caller decides whether to retry differently.
	case errors.Is(err, repository.ErrInsufficientInventory),
		errors.Is(err, repository.ErrOutsideSaleWindow),
		errors.Is(err, repository.ErrTicketTypeInactive),
		errors.Is(err, repository.ErrOverRelease),
		errors.Is(err, repository.ErrOrderNotPending),
		errors.Is(err, repository.ErrOrderExpired),
		errors.Is(err, repository.ErrTicketAlreadyUsed),
		errors.Is(err, repository.ErrTicketNotActive),
		errors.Is(err, repository.ErrTicketExpired),
		errors.Is(err, repository.ErrPromoExhausted),
		errors.Is(err, repository.ErrPromoCodeExists),
		errors.Is(err, repository.ErrBulkTierExists),
		errors.Is(err, repository.ErrTaxRuleExists),
		errors.Is(err, repository.ErrRefundExists),
		errors.Is(err, ticketing.ErrCacheExpired),
		errors.Is(err, ticketing.ErrOfflineTicketInvalid),
		errors.Is(err, ticketing.ErrOfflineTicketLapsed),
		errors.Is(err, repository.ErrGroupBookingClosed),
		errors.Is(err, repository.ErrGroupBookingFull),
		errors.Is(err, repository.ErrGroupBelowMinimum):
		logger.Warn(action, "status", "conflict", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())

	default:
		logger.Error(action, "status", "internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
