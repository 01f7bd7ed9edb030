package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"

	"github.com/jackc/pgx/v5"
)

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketAlreadyUsed = errors.New("ticket already used")
	ErrTicketNotActive   = errors.New("ticket is not active")
	ErrTicketExpired     = errors.New("ticket has expired")
)

const ticketColumns = `id::text, ticket_type_id::text, order_id::text, event_id, attendee_name, attendee_email, qr_payload, security_hash, status, checked_in_at, checked_in_by, created_at`

// ValidateTicket verifies a scanned payload and hash against the stored
// ticket. Any identity or hash mismatch returns the same opaque error;
// the expected hash is never echoed back to the scanner.
func (r *Repository) ValidateTicket(ctx context.Context, qrPayload string, providedHash string) (models.ValidationResult, error) {
	fields, err := ticketing.ParseQRPayload(qrPayload)
	if err != nil {
		return models.ValidationResult{}, err
	}

	ticket, err := r.GetTicket(ctx, fields.TicketID)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return models.ValidationResult{}, ticketing.ErrHashMismatch
		}
		return models.ValidationResult{}, err
	}
	if ticket.TicketTypeID != fields.TicketTypeID || ticket.OrderID != fields.OrderID {
		return models.ValidationResult{}, ticketing.ErrHashMismatch
	}
	if !ticketing.VerifyHash(ticket.SecurityHash, providedHash) {
		return models.ValidationResult{}, ticketing.ErrHashMismatch
	}

	status, err := r.effectiveTicketStatus(ctx, ticket)
	if err != nil {
		return models.ValidationResult{}, err
	}
	return models.ValidationResult{
		Valid:        status == models.TicketStatusActive,
		TicketID:     ticket.ID,
		Status:       status,
		AttendeeName: ticket.AttendeeName,
	}, nil
}

// effectiveTicketStatus derives "expired" for active tickets whose
// event has ended. The derived value is never written back.
func (r *Repository) effectiveTicketStatus(ctx context.Context, ticket models.Ticket) (string, error) {
	if ticket.Status != models.TicketStatusActive {
		return ticket.Status, nil
	}
	_, endsAt, err := getEventWindow(ctx, r.pool, ticket.EventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return ticket.Status, nil
		}
		return "", err
	}
	if time.Now().UTC().After(endsAt) {
		return models.TicketStatusExpired, nil
	}
	return ticket.Status, nil
}

// CheckInTicket marks a ticket used. The status flip is a single
// compare-and-set so two staff devices scanning the same ticket can
// never both succeed.
func (r *Repository) CheckInTicket(ctx context.Context, ticketID string, staffID int64) (models.Ticket, error) {
	ticket, err := r.GetTicket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}
	status, err := r.effectiveTicketStatus(ctx, ticket)
	if err != nil {
		return models.Ticket{}, err
	}
	if status == models.TicketStatusExpired {
		return models.Ticket{}, ErrTicketExpired
	}

	row := r.pool.QueryRow(ctx, `
UPDATE tickets
SET status = 'used', checked_in_at = now(), checked_in_by = $2
WHERE id = $1::uuid AND status = 'active' AND checked_in_at IS NULL
RETURNING `+ticketColumns+`;`, ticketID, staffID)

	updated, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, classifyCheckInFailure(ctx, r.pool, ticketID)
		}
		return models.Ticket{}, err
	}
	return updated, nil
}

func classifyCheckInFailure(ctx context.Context, q queryRunner, ticketID string) error {
	var status string
	err := q.QueryRow(ctx, `SELECT status FROM tickets WHERE id = $1::uuid`, ticketID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTicketNotFound
		}
		return err
	}
	if status == models.TicketStatusUsed {
		return ErrTicketAlreadyUsed
	}
	return ErrTicketNotActive
}

func (r *Repository) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1::uuid`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (r *Repository) ListOrderTickets(ctx context.Context, orderID string) ([]models.Ticket, error) {
	return r.listTickets(ctx, `
SELECT `+ticketColumns+`
FROM tickets
WHERE order_id = $1::uuid
ORDER BY created_at;`, orderID)
}

func (r *Repository) ListEventTickets(ctx context.Context, eventID int64) ([]models.Ticket, error) {
	return r.listTickets(ctx, `
SELECT `+ticketColumns+`
FROM tickets
WHERE event_id = $1
ORDER BY created_at;`, eventID)
}

func (r *Repository) listTickets(ctx context.Context, query string, arg interface{}) ([]models.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]models.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// cancelTicketTx flips an active ticket to cancelled inside a refund
// transaction. Zero rows means the ticket was already used or
// cancelled, which rejects the refund.
func cancelTicketTx(ctx context.Context, tx pgx.Tx, ticketID string) error {
	cmd, err := tx.Exec(ctx, `
UPDATE tickets
SET status = 'cancelled'
WHERE id = $1::uuid AND status = 'active';`, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return classifyCheckInFailure(ctx, tx, ticketID)
	}
	return nil
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var (
		out         models.Ticket
		checkedInAt sql.NullTime
		checkedInBy sql.NullInt64
	)
	err := row.Scan(
		&out.ID,
		&out.TicketTypeID,
		&out.OrderID,
		&out.EventID,
		&out.AttendeeName,
		&out.AttendeeEmail,
		&out.QRPayload,
		&out.SecurityHash,
		&out.Status,
		&checkedInAt,
		&checkedInBy,
		&out.CreatedAt,
	)
	if err != nil {
		return out, err
	}
	out.CheckedInAt = nullTimeToPtr(checkedInAt)
	out.CheckedInBy = nullInt64ToPtr(checkedInBy)
	return out, nil
}
