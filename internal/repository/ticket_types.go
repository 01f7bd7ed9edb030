package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"

	"github.com/jackc/pgx/v5"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrTicketTypeNotFound    = errors.New("ticket type not found")
	ErrTicketTypeInactive    = errors.New("ticket type is not active")
	ErrOutsideSaleWindow     = errors.New("outside sale window")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrQuantityOutOfRange    = errors.New("quantity outside purchase limits")
	ErrOverRelease           = errors.New("cannot release more than sold")
	ErrInvalidSaleWindow     = errors.New("sale window end must be after start")
	ErrInvalidPurchaseRange  = errors.New("max purchase must be at least min purchase")
)

const ticketTypeColumns = `id::text, event_id, name, price_cents, currency, quantity, quantity_sold, min_purchase, max_purchase, sale_starts_at, sale_ends_at, is_active, created_at, updated_at`

func (r *Repository) CreateTicketType(ctx context.Context, in models.TicketTypeInput) (models.TicketType, error) {
	if !in.SaleEndsAt.After(in.SaleStartsAt) {
		return models.TicketType{}, ErrInvalidSaleWindow
	}
	minPurchase := in.MinPurchase
	if minPurchase <= 0 {
		minPurchase = 1
	}
	maxPurchase := in.MaxPurchase
	if maxPurchase <= 0 {
		maxPurchase = 10
	}
	if maxPurchase < minPurchase {
		return models.TicketType{}, ErrInvalidPurchaseRange
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, in.EventID).Scan(&exists); err != nil {
		return models.TicketType{}, err
	}
	if !exists {
		return models.TicketType{}, ErrEventNotFound
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO ticket_types (event_id, name, price_cents, currency, quantity, min_purchase, max_purchase, sale_starts_at, sale_ends_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+ticketTypeColumns+`;`,
		in.EventID,
		strings.TrimSpace(in.Name),
		in.PriceCents,
		currency,
		in.Quantity,
		minPurchase,
		maxPurchase,
		in.SaleStartsAt,
		in.SaleEndsAt,
	)
	return scanTicketType(row)
}

func (r *Repository) GetTicketType(ctx context.Context, id string) (models.TicketType, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = $1::uuid`, id)
	out, err := scanTicketType(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrTicketTypeNotFound
	}
	return out, err
}

func (r *Repository) ListTicketTypes(ctx context.Context, eventID *int64, active *bool) ([]models.TicketType, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+ticketTypeColumns+`
FROM ticket_types
WHERE ($1::bigint IS NULL OR event_id = $1)
	AND ($2::boolean IS NULL OR is_active = $2)
ORDER BY created_at DESC;`, nullInt64Ptr(eventID), boolPtrOrNil(active))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.TicketType, 0)
	for rows.Next() {
		item, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) UpdateTicketType(ctx context.Context, id string, patch models.TicketTypePatch) (models.TicketType, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE ticket_types
SET name = COALESCE($2, name),
	price_cents = COALESCE($3, price_cents),
	min_purchase = COALESCE($4, min_purchase),
	max_purchase = COALESCE($5, max_purchase),
	sale_starts_at = COALESCE($6, sale_starts_at),
	sale_ends_at = COALESCE($7, sale_ends_at),
	is_active = COALESCE($8, is_active),
	updated_at = now()
WHERE id = $1::uuid
RETURNING `+ticketTypeColumns+`;`,
		id,
		stringPtrOrNil(patch.Name),
		nullInt64Ptr(patch.PriceCents),
		intPtrOrNil(patch.MinPurchase),
		intPtrOrNil(patch.MaxPurchase),
		patch.SaleStartsAt,
		patch.SaleEndsAt,
		boolPtrOrNil(patch.IsActive),
	)
	out, err := scanTicketType(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrTicketTypeNotFound
	}
	return out, err
}

// DeactivateTicketType soft-deactivates. Ticket types are never hard
// deleted; sold tickets keep referencing them.
func (r *Repository) DeactivateTicketType(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE ticket_types
SET is_active = false, updated_at = now()
WHERE id = $1::uuid;`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTicketTypeNotFound
	}
	return nil
}

// ReserveInventory claims quantity units of a ticket type. The guard
// runs inside a single conditional UPDATE so concurrent reservations
// for the last seats can never oversell.
func (r *Repository) ReserveInventory(ctx context.Context, ticketTypeID string, quantity int) error {
	return reserveInventory(ctx, r.pool, ticketTypeID, quantity)
}

func reserveInventory(ctx context.Context, q queryRunner, ticketTypeID string, quantity int) error {
	if quantity <= 0 {
		return ErrQuantityOutOfRange
	}
	cmd, err := q.Exec(ctx, `
UPDATE ticket_types
SET quantity_sold = quantity_sold + $2,
	updated_at = now()
WHERE id = $1::uuid
	AND is_active
	AND now() >= sale_starts_at
	AND now() <= sale_ends_at
	AND $2 >= min_purchase
	AND $2 <= max_purchase
	AND quantity_sold + $2 <= quantity;`, ticketTypeID, quantity)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	return classifyReserveFailure(ctx, q, ticketTypeID, quantity)
}

// classifyReserveFailure re-reads the row to report which gate failed.
// The read is diagnostic only; the atomic UPDATE above already decided
// the outcome.
func classifyReserveFailure(ctx context.Context, q queryRunner, ticketTypeID string, quantity int) error {
	var (
		isActive     bool
		saleStartsAt time.Time
		saleEndsAt   time.Time
		minPurchase  int
		maxPurchase  int
	)
	err := q.QueryRow(ctx, `
SELECT is_active, sale_starts_at, sale_ends_at, min_purchase, max_purchase
FROM ticket_types
WHERE id = $1::uuid;`, ticketTypeID).Scan(&isActive, &saleStartsAt, &saleEndsAt, &minPurchase, &maxPurchase)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTicketTypeNotFound
		}
		return err
	}
	now := time.Now().UTC()
	switch {
	case !isActive:
		return ErrTicketTypeInactive
	case now.Before(saleStartsAt) || now.After(saleEndsAt):
		return ErrOutsideSaleWindow
	case quantity < minPurchase || quantity > maxPurchase:
		return ErrQuantityOutOfRange
	default:
		return ErrInsufficientInventory
	}
}

// ReleaseInventory returns quantity units to the pool. Releasing more
// than is currently sold is a caller bug and is rejected.
func (r *Repository) ReleaseInventory(ctx context.Context, ticketTypeID string, quantity int) error {
	return releaseInventory(ctx, r.pool, ticketTypeID, quantity)
}

func releaseInventory(ctx context.Context, q queryRunner, ticketTypeID string, quantity int) error {
	if quantity <= 0 {
		return ErrQuantityOutOfRange
	}
	cmd, err := q.Exec(ctx, `
UPDATE ticket_types
SET quantity_sold = quantity_sold - $2,
	updated_at = now()
WHERE id = $1::uuid
	AND quantity_sold >= $2;`, ticketTypeID, quantity)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM ticket_types WHERE id = $1::uuid)`, ticketTypeID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrTicketTypeNotFound
	}
	return ErrOverRelease
}

func scanTicketType(row pgx.Row) (models.TicketType, error) {
	var out models.TicketType
	if err := row.Scan(
		&out.ID,
		&out.EventID,
		&out.Name,
		&out.PriceCents,
		&out.Currency,
		&out.Quantity,
		&out.QuantitySold,
		&out.MinPurchase,
		&out.MaxPurchase,
		&out.SaleStartsAt,
		&out.SaleEndsAt,
		&out.IsActive,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return out, err
	}
	out.Available = out.Quantity - out.QuantitySold
	out.Price = ticketing.FormatCents(out.PriceCents)
	return out, nil
}

func boolPtrOrNil(value *bool) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func intPtrOrNil(value *int) interface{} {
	if value == nil || *value <= 0 {
		return nil
	}
	return *value
}

func stringPtrOrNil(value *string) interface{} {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return strings.TrimSpace(*value)
}
