package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is not pending")
	ErrOrderExpired    = errors.New("order has expired")
	ErrEmptyOrder      = errors.New("order has no items")
	ErrEventMismatch   = errors.New("ticket type belongs to a different event")
	ErrPromoNotFound   = errors.New("promo code not found")
	ErrPromoNotValid   = errors.New("promo code is not valid for this order")
	ErrPromoExhausted  = errors.New("promo code usage limit reached")
)

// PendingOrderTTL is how long an unpaid order holds its inventory.
const PendingOrderTTL = 30 * time.Minute

const orderColumns = `id::text, user_id, event_id, status, payment_id, attendee_name, attendee_email, promo_code_id::text, tax_rule_id, subtotal_cents, promo_discount_cents, bulk_discount_cents, tax_cents, total_cents, currency, confirmed_at, cancelled_at, created_at, updated_at`

// CreateOrder reserves inventory and prices the order in one
// transaction. Stage order is fixed: promo against the subtotal, bulk
// tier against the post-promo amount, tax against the post-discount
// amount. Any failed gate rolls every reservation back.
func (r *Repository) CreateOrder(ctx context.Context, params models.CreateOrderParams) (models.OrderDetail, error) {
	if len(params.Items) == 0 {
		return models.OrderDetail{}, ErrEmptyOrder
	}

	var detail models.OrderDetail
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			subtotalCents int64
			totalQuantity int
			items         []models.OrderItem
		)
		for _, sel := range params.Items {
			if err := reserveInventory(ctx, tx, sel.TicketTypeID, sel.Quantity); err != nil {
				return err
			}
			var (
				eventID    int64
				priceCents int64
				currency   string
			)
			err := tx.QueryRow(ctx, `
SELECT event_id, price_cents, currency
FROM ticket_types
WHERE id = $1::uuid;`, sel.TicketTypeID).Scan(&eventID, &priceCents, &currency)
			if err != nil {
				return err
			}
			if eventID != params.EventID {
				return ErrEventMismatch
			}
			line := models.OrderItem{
				TicketTypeID:   sel.TicketTypeID,
				Quantity:       sel.Quantity,
				UnitPriceCents: priceCents,
				SubtotalCents:  priceCents * int64(sel.Quantity),
			}
			subtotalCents += line.SubtotalCents
			totalQuantity += sel.Quantity
			items = append(items, line)
		}

		var (
			promoDiscountCents int64
			promoCodeID        *string
		)
		if code := strings.TrimSpace(params.PromoCode); code != "" {
			promo, err := getPromoForUpdate(ctx, tx, code)
			if err != nil {
				return err
			}
			result := ticketing.ValidatePromo(promoToRule(promo), ticketing.PromoInput{
				EventID:       params.EventID,
				SubtotalCents: subtotalCents,
			})
			if !result.Valid {
				if result.Reason == ticketing.PromoReasonExhausted {
					return ErrPromoExhausted
				}
				return ErrPromoNotValid
			}
			if err := redeemPromo(ctx, tx, promo.ID); err != nil {
				return err
			}
			promoDiscountCents = result.DiscountCents
			promoCodeID = &promo.ID
		}

		tiers, err := bulkTiersForEvent(ctx, tx, params.EventID)
		if err != nil {
			return err
		}
		bulk := ticketing.SelectBulkTier(tiers, totalQuantity)

		taxRule, err := lookupTaxRule(ctx, tx, params.Country, params.State)
		if err != nil {
			return err
		}

		quote := ticketing.BuildQuote(subtotalCents, promoDiscountCents, bulk, taxRule)

		orderID := uuid.NewString()
		row := tx.QueryRow(ctx, `
INSERT INTO orders (id, user_id, event_id, status, attendee_name, attendee_email, promo_code_id, tax_rule_id, subtotal_cents, promo_discount_cents, bulk_discount_cents, tax_cents, total_cents, currency)
VALUES ($1::uuid, $2, $3, 'pending', $4, $5, $6::uuid, $7, $8, $9, $10, $11, $12, $13)
RETURNING `+orderColumns+`;`,
			orderID,
			params.UserID,
			params.EventID,
			strings.TrimSpace(params.AttendeeName),
			strings.ToLower(strings.TrimSpace(params.AttendeeEmail)),
			nullStringPtr(promoCodeID),
			nullInt64Ptr(quote.TaxRuleID),
			quote.SubtotalCents,
			quote.PromoDiscountCents,
			quote.BulkDiscountCents,
			quote.TaxCents,
			quote.TotalCents,
			"USD",
		)
		order, err := scanOrder(row)
		if err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
			err := tx.QueryRow(ctx, `
INSERT INTO order_items (order_id, ticket_type_id, quantity, unit_price_cents, subtotal_cents)
VALUES ($1::uuid, $2::uuid, $3, $4, $5)
RETURNING id, created_at;`,
				order.ID, items[i].TicketTypeID, items[i].Quantity, items[i].UnitPriceCents, items[i].SubtotalCents,
			).Scan(&items[i].ID, &items[i].CreatedAt)
			if err != nil {
				return err
			}
		}

		detail = models.OrderDetail{Order: order, Items: items}
		return nil
	})
	if err != nil {
		return models.OrderDetail{}, err
	}
	return detail, nil
}

// ApplyPromo attaches a promo code to a pending order and reprices it
// through the same staged pipeline. A promo applied earlier is released
// first; the bulk tier and tax recompute against the new discount.
func (r *Repository) ApplyPromo(ctx context.Context, orderID, code string) (models.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.Order{}, ErrPromoNotValid
	}

	var updated models.Order
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		order, err := getOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return ErrOrderNotPending
		}
		if time.Since(order.CreatedAt) > PendingOrderTTL {
			if err := expireOrderTx(ctx, tx, order); err != nil {
				return err
			}
			return ErrOrderExpired
		}

		promo, err := getPromoForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		result := ticketing.ValidatePromo(promoToRule(promo), ticketing.PromoInput{
			EventID:       order.EventID,
			SubtotalCents: order.SubtotalCents,
		})
		if !result.Valid {
			if result.Reason == ticketing.PromoReasonExhausted {
				return ErrPromoExhausted
			}
			return ErrPromoNotValid
		}

		// Swapping codes releases the old redemption; re-applying the
		// same code only reprices.
		if order.PromoCodeID == nil || *order.PromoCodeID != promo.ID {
			if order.PromoCodeID != nil {
				if err := unredeemPromo(ctx, tx, *order.PromoCodeID); err != nil {
					return err
				}
			}
			if err := redeemPromo(ctx, tx, promo.ID); err != nil {
				return err
			}
		}

		var totalQuantity int
		err = tx.QueryRow(ctx, `
SELECT COALESCE(SUM(quantity), 0)
FROM order_items
WHERE order_id = $1::uuid;`, orderID).Scan(&totalQuantity)
		if err != nil {
			return err
		}
		tiers, err := bulkTiersForEvent(ctx, tx, order.EventID)
		if err != nil {
			return err
		}
		bulk := ticketing.SelectBulkTier(tiers, totalQuantity)

		taxRule, err := taxRuleByID(ctx, tx, order.TaxRuleID)
		if err != nil {
			return err
		}
		quote := ticketing.BuildQuote(order.SubtotalCents, result.DiscountCents, bulk, taxRule)

		row := tx.QueryRow(ctx, `
UPDATE orders
SET promo_code_id = $2::uuid, promo_discount_cents = $3, bulk_discount_cents = $4, tax_cents = $5, total_cents = $6, updated_at = now()
WHERE id = $1::uuid
RETURNING `+orderColumns+`;`,
			orderID, promo.ID, quote.PromoDiscountCents, quote.BulkDiscountCents, quote.TaxCents, quote.TotalCents)
		updated, err = scanOrder(row)
		return err
	})
	if err != nil {
		return models.Order{}, err
	}
	return updated, nil
}

// ConfirmOrder flips a pending order to confirmed and issues its
// tickets. The order row is locked so a concurrent confirm or cancel
// cannot interleave; tickets are generated exactly once.
func (r *Repository) ConfirmOrder(ctx context.Context, orderID string, paymentID string) (models.PurchaseResult, error) {
	var result models.PurchaseResult
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		order, err := getOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return ErrOrderNotPending
		}
		if time.Since(order.CreatedAt) > PendingOrderTTL {
			if err := expireOrderTx(ctx, tx, order); err != nil {
				return err
			}
			return ErrOrderExpired
		}

		row := tx.QueryRow(ctx, `
UPDATE orders
SET status = 'confirmed', payment_id = $2, confirmed_at = now(), updated_at = now()
WHERE id = $1::uuid
RETURNING `+orderColumns+`;`, orderID, nullString(paymentID))
		confirmed, err := scanOrder(row)
		if err != nil {
			return err
		}

		tickets, err := issueOrderTickets(ctx, tx, confirmed)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
INSERT INTO tax_calculations (order_id, tax_rule_id, subtotal_cents, tax_cents, total_cents)
VALUES ($1::uuid, $2, $3, $4, $5);`,
			confirmed.ID,
			nullInt64Ptr(confirmed.TaxRuleID),
			confirmed.SubtotalCents-confirmed.PromoDiscountCents-confirmed.BulkDiscountCents,
			confirmed.TaxCents,
			confirmed.TotalCents,
		)
		if err != nil {
			return err
		}

		result = models.PurchaseResult{
			Order:            confirmed,
			Tickets:          tickets,
			TicketsGenerated: len(tickets),
		}
		return nil
	})
	if err != nil {
		return models.PurchaseResult{}, err
	}
	return result, nil
}

// issueOrderTickets creates one ticket per purchased unit. The QR
// payload and security hash are derived once here and never rewritten.
func issueOrderTickets(ctx context.Context, tx pgx.Tx, order models.Order) ([]models.Ticket, error) {
	rows, err := tx.Query(ctx, `
SELECT ticket_type_id::text, quantity
FROM order_items
WHERE order_id = $1::uuid
ORDER BY id;`, order.ID)
	if err != nil {
		return nil, err
	}
	type line struct {
		ticketTypeID string
		quantity     int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.ticketTypeID, &l.quantity); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var tickets []models.Ticket
	for _, l := range lines {
		for i := 0; i < l.quantity; i++ {
			ticketID := uuid.NewString()
			payload := ticketing.BuildQRPayload(ticketID, l.ticketTypeID, order.ID)
			hash := ticketing.SecurityHash(ticketID, l.ticketTypeID, order.ID, order.AttendeeEmail)

			row := tx.QueryRow(ctx, `
INSERT INTO tickets (id, ticket_type_id, order_id, event_id, attendee_name, attendee_email, qr_payload, security_hash, status)
VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7, $8, 'active')
RETURNING `+ticketColumns+`;`,
				ticketID, l.ticketTypeID, order.ID, order.EventID,
				order.AttendeeName, order.AttendeeEmail, payload, hash,
			)
			ticket, err := scanTicket(row)
			if err != nil {
				return nil, err
			}
			tickets = append(tickets, ticket)
		}
	}
	return tickets, nil
}

// CancelOrder cancels a pending order, releasing its inventory and any
// promo redemption. Confirmed orders go through the refund flow instead.
func (r *Repository) CancelOrder(ctx context.Context, orderID string) (models.Order, error) {
	var cancelled models.Order
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		order, err := getOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return ErrOrderNotPending
		}
		if err := releaseOrderInventory(ctx, tx, order.ID); err != nil {
			return err
		}
		if order.PromoCodeID != nil {
			if err := unredeemPromo(ctx, tx, *order.PromoCodeID); err != nil {
				return err
			}
		}
		row := tx.QueryRow(ctx, `
UPDATE orders
SET status = 'cancelled', cancelled_at = now(), updated_at = now()
WHERE id = $1::uuid
RETURNING `+orderColumns+`;`, orderID)
		cancelled, err = scanOrder(row)
		return err
	})
	if err != nil {
		return models.Order{}, err
	}
	return cancelled, nil
}

// ExpireStaleOrders marks pending orders older than ttl as expired and
// returns their inventory. Run periodically from the API process.
func (r *Repository) ExpireStaleOrders(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		ttl = PendingOrderTTL
	}
	rows, err := r.pool.Query(ctx, `
SELECT id::text
FROM orders
WHERE status = 'pending' AND created_at < now() - make_interval(secs => $1);`, ttl.Seconds())
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		err := r.WithTx(ctx, func(tx pgx.Tx) error {
			order, err := getOrderForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if order.Status != models.OrderStatusPending {
				return nil
			}
			return expireOrderTx(ctx, tx, order)
		})
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func expireOrderTx(ctx context.Context, tx pgx.Tx, order models.Order) error {
	if err := releaseOrderInventory(ctx, tx, order.ID); err != nil {
		return err
	}
	if order.PromoCodeID != nil {
		if err := unredeemPromo(ctx, tx, *order.PromoCodeID); err != nil {
			return err
		}
	}
	_, err := tx.Exec(ctx, `
UPDATE orders
SET status = 'expired', updated_at = now()
WHERE id = $1::uuid;`, order.ID)
	return err
}

func releaseOrderInventory(ctx context.Context, tx pgx.Tx, orderID string) error {
	rows, err := tx.Query(ctx, `
SELECT ticket_type_id::text, quantity
FROM order_items
WHERE order_id = $1::uuid;`, orderID)
	if err != nil {
		return err
	}
	type line struct {
		ticketTypeID string
		quantity     int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.ticketTypeID, &l.quantity); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, l := range lines {
		if err := releaseInventory(ctx, tx, l.ticketTypeID, l.quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) GetOrderDetail(ctx context.Context, orderID string) (models.OrderDetail, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1::uuid`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.OrderDetail{}, ErrOrderNotFound
		}
		return models.OrderDetail{}, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, order_id::text, ticket_type_id::text, quantity, unit_price_cents, subtotal_cents, created_at
FROM order_items
WHERE order_id = $1::uuid
ORDER BY id;`, orderID)
	if err != nil {
		return models.OrderDetail{}, err
	}
	defer rows.Close()

	items := make([]models.OrderItem, 0)
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.TicketTypeID, &item.Quantity, &item.UnitPriceCents, &item.SubtotalCents, &item.CreatedAt); err != nil {
			return models.OrderDetail{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return models.OrderDetail{}, err
	}

	tickets, err := r.ListOrderTickets(ctx, orderID)
	if err != nil {
		return models.OrderDetail{}, err
	}
	return models.OrderDetail{Order: order, Items: items, Tickets: tickets}, nil
}

func (r *Repository) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func getOrderForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (models.Order, error) {
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1::uuid FOR UPDATE`, orderID)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return order, ErrOrderNotFound
	}
	return order, err
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		out         models.Order
		paymentID   sql.NullString
		promoCodeID sql.NullString
		taxRuleID   sql.NullInt64
		confirmedAt sql.NullTime
		cancelledAt sql.NullTime
	)
	err := row.Scan(
		&out.ID,
		&out.UserID,
		&out.EventID,
		&out.Status,
		&paymentID,
		&out.AttendeeName,
		&out.AttendeeEmail,
		&promoCodeID,
		&taxRuleID,
		&out.SubtotalCents,
		&out.PromoDiscountCents,
		&out.BulkDiscountCents,
		&out.TaxCents,
		&out.TotalCents,
		&out.Currency,
		&confirmedAt,
		&cancelledAt,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return out, err
	}
	if paymentID.Valid {
		out.PaymentID = paymentID.String
	}
	out.PromoCodeID = nullStringToPtr(promoCodeID)
	out.TaxRuleID = nullInt64ToPtr(taxRuleID)
	out.ConfirmedAt = nullTimeToPtr(confirmedAt)
	out.CancelledAt = nullTimeToPtr(cancelledAt)
	out.TotalAmount = ticketing.FormatCents(out.TotalCents)
	return out, nil
}

func nullStringPtr(value *string) interface{} {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}
