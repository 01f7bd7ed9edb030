package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

var (
	ErrRefundNotAllowed   = errors.New("refunds are not allowed for this event")
	ErrRefundWindowClosed = errors.New("refund window has closed")
	ErrRefundExists       = errors.New("ticket already refunded")
	ErrRefundNotFound     = errors.New("refund not found")
	ErrInvalidPercentage  = errors.New("refund percentage must be between 0 and 100")
)

// SetRefundPolicy upserts the per-event policy.
func (r *Repository) SetRefundPolicy(ctx context.Context, in models.RefundPolicyInput) (models.RefundPolicy, error) {
	pct, err := ticketing.ParseRate(in.RefundPercentage)
	if err != nil || pct.IsNegative() || pct.GreaterThan(hundred) {
		return models.RefundPolicy{}, ErrInvalidPercentage
	}

	var out models.RefundPolicy
	err = r.pool.QueryRow(ctx, `
INSERT INTO refund_policies (event_id, refund_allowed, refund_before_hours, refund_percentage, processing_fee_cents, updated_at)
VALUES ($1, $2, $3, $4::numeric, $5, now())
ON CONFLICT (event_id) DO UPDATE
SET refund_allowed = EXCLUDED.refund_allowed,
	refund_before_hours = EXCLUDED.refund_before_hours,
	refund_percentage = EXCLUDED.refund_percentage,
	processing_fee_cents = EXCLUDED.processing_fee_cents,
	updated_at = now()
RETURNING event_id, refund_allowed, refund_before_hours, refund_percentage::text, processing_fee_cents, updated_at;`,
		in.EventID, in.RefundAllowed, in.RefundBeforeHours, in.RefundPercentage, in.ProcessingFeeCents,
	).Scan(&out.EventID, &out.RefundAllowed, &out.RefundBeforeHours, &out.RefundPercentage, &out.ProcessingFeeCents, &out.UpdatedAt)
	return out, err
}

func (r *Repository) GetRefundPolicy(ctx context.Context, eventID int64) (models.RefundPolicy, error) {
	var out models.RefundPolicy
	err := r.pool.QueryRow(ctx, `
SELECT event_id, refund_allowed, refund_before_hours, refund_percentage::text, processing_fee_cents, updated_at
FROM refund_policies
WHERE event_id = $1;`, eventID,
	).Scan(&out.EventID, &out.RefundAllowed, &out.RefundBeforeHours, &out.RefundPercentage, &out.ProcessingFeeCents, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		def := ticketing.DefaultRefundPolicy()
		return models.RefundPolicy{
			EventID:            eventID,
			RefundAllowed:      def.RefundAllowed,
			RefundBeforeHours:  def.RefundBeforeHours,
			RefundPercentage:   def.RefundPercentage.StringFixed(2),
			ProcessingFeeCents: def.ProcessingFeeCents,
		}, nil
	}
	return out, err
}

// RequestRefund cancels a ticket, records the refund and returns its
// inventory unit, all in one transaction. The ticket row is locked
// first so a concurrent check-in or second refund serializes behind it.
func (r *Repository) RequestRefund(ctx context.Context, ticketID string, reason string) (models.Refund, error) {
	var refund models.Refund
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			ticketTypeID string
			orderID      string
			eventID      int64
			status       string
		)
		err := tx.QueryRow(ctx, `
SELECT ticket_type_id::text, order_id::text, event_id, status
FROM tickets
WHERE id = $1::uuid
FOR UPDATE;`, ticketID).Scan(&ticketTypeID, &orderID, &eventID, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTicketNotFound
			}
			return err
		}

		policy, err := refundPolicyTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !policy.RefundAllowed {
			return ErrRefundNotAllowed
		}

		startsAt, _, err := getEventWindow(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !ticketing.WithinRefundWindow(policy, startsAt, time.Now().UTC()) {
			return ErrRefundWindowClosed
		}

		var unitCents int64
		err = tx.QueryRow(ctx, `
SELECT unit_price_cents
FROM order_items
WHERE order_id = $1::uuid AND ticket_type_id = $2::uuid;`, orderID, ticketTypeID).Scan(&unitCents)
		if err != nil {
			return err
		}

		// The refund base is what was paid for this unit, not its list
		// price: prorate the order's discounted, taxed total across the
		// subtotal. The breakdown columns are immutable after
		// confirmation, so earlier refunds do not skew the ratio.
		var (
			subtotalCents int64
			promoCents    int64
			bulkCents     int64
			taxCents      int64
		)
		err = tx.QueryRow(ctx, `
SELECT subtotal_cents, promo_discount_cents, bulk_discount_cents, tax_cents
FROM orders
WHERE id = $1::uuid;`, orderID).Scan(&subtotalCents, &promoCents, &bulkCents, &taxCents)
		if err != nil {
			return err
		}
		paidTotal := subtotalCents - promoCents - bulkCents + taxCents
		originalCents := ticketing.ProratedPaidCents(unitCents, subtotalCents, paidTotal)

		if err := cancelTicketTx(ctx, tx, ticketID); err != nil {
			return err
		}

		refundCents := ticketing.ComputeRefund(policy, originalCents)
		refundID := uuid.NewString()
		err = tx.QueryRow(ctx, `
INSERT INTO refunds (id, ticket_id, order_id, original_cents, refund_cents, processing_fee_cents, reason, status)
VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7, 'processed')
RETURNING id::text, ticket_id::text, order_id::text, original_cents, refund_cents, processing_fee_cents, reason, status, created_at;`,
			refundID, ticketID, orderID, originalCents, refundCents, policy.ProcessingFeeCents, strings.TrimSpace(reason),
		).Scan(&refund.ID, &refund.TicketID, &refund.OrderID, &refund.OriginalCents, &refund.RefundCents, &refund.ProcessingFeeCents, &refund.Reason, &refund.Status, &refund.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrRefundExists
			}
			return err
		}
		refund.RefundAmount = ticketing.FormatCents(refund.RefundCents)

		_, err = tx.Exec(ctx, `
UPDATE orders
SET total_cents = GREATEST(0, total_cents - $2), updated_at = now()
WHERE id = $1::uuid;`, orderID, refundCents)
		if err != nil {
			return err
		}

		return releaseInventory(ctx, tx, ticketTypeID, 1)
	})
	if err != nil {
		return models.Refund{}, err
	}
	return refund, nil
}

func (r *Repository) GetRefund(ctx context.Context, refundID string) (models.Refund, error) {
	var out models.Refund
	err := r.pool.QueryRow(ctx, `
SELECT id::text, ticket_id::text, order_id::text, original_cents, refund_cents, processing_fee_cents, reason, status, created_at
FROM refunds
WHERE id = $1::uuid;`, refundID,
	).Scan(&out.ID, &out.TicketID, &out.OrderID, &out.OriginalCents, &out.RefundCents, &out.ProcessingFeeCents, &out.Reason, &out.Status, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrRefundNotFound
	}
	if err != nil {
		return out, err
	}
	out.RefundAmount = ticketing.FormatCents(out.RefundCents)
	return out, nil
}

func (r *Repository) ListOrderRefunds(ctx context.Context, orderID string) ([]models.Refund, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, ticket_id::text, order_id::text, original_cents, refund_cents, processing_fee_cents, reason, status, created_at
FROM refunds
WHERE order_id = $1::uuid
ORDER BY created_at;`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := make([]models.Refund, 0)
	for rows.Next() {
		var item models.Refund
		if err := rows.Scan(&item.ID, &item.TicketID, &item.OrderID, &item.OriginalCents, &item.RefundCents, &item.ProcessingFeeCents, &item.Reason, &item.Status, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.RefundAmount = ticketing.FormatCents(item.RefundCents)
		refunds = append(refunds, item)
	}
	return refunds, rows.Err()
}

func refundPolicyTx(ctx context.Context, tx pgx.Tx, eventID int64) (ticketing.RefundPolicy, error) {
	var (
		allowed     bool
		beforeHours int
		pctRaw      string
		feeCents    int64
	)
	err := tx.QueryRow(ctx, `
SELECT refund_allowed, refund_before_hours, refund_percentage::text, processing_fee_cents
FROM refund_policies
WHERE event_id = $1;`, eventID).Scan(&allowed, &beforeHours, &pctRaw, &feeCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ticketing.DefaultRefundPolicy(), nil
		}
		return ticketing.RefundPolicy{}, err
	}
	pct, err := ticketing.ParseRate(pctRaw)
	if err != nil {
		return ticketing.RefundPolicy{}, err
	}
	return ticketing.RefundPolicy{
		RefundAllowed:      allowed,
		RefundBeforeHours:  beforeHours,
		RefundPercentage:   pct,
		ProcessingFeeCents: feeCents,
	}, nil
}
