package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrGroupBookingNotFound = errors.New("group booking not found")
	ErrGroupBookingClosed   = errors.New("group booking is not open")
	ErrGroupBookingFull     = errors.New("group booking is full")
	ErrGroupBelowMinimum    = errors.New("group has not reached its minimum size")
	ErrInvalidGroupRange    = errors.New("max participants must be at least min participants")
)

const groupBookingColumns = `id::text, event_id, organizer_id, group_name, min_participants, max_participants, current_participants, status, created_at, updated_at`

func (r *Repository) CreateGroupBooking(ctx context.Context, organizerID int64, in models.GroupBookingInput) (models.GroupBooking, error) {
	if in.MaxParticipants < in.MinParticipants {
		return models.GroupBooking{}, ErrInvalidGroupRange
	}
	if _, _, err := getEventWindow(ctx, r.pool, in.EventID); err != nil {
		return models.GroupBooking{}, err
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO group_bookings (id, event_id, organizer_id, group_name, min_participants, max_participants)
VALUES ($1::uuid, $2, $3, $4, $5, $6)
RETURNING `+groupBookingColumns+`;`,
		uuid.NewString(), in.EventID, organizerID, strings.TrimSpace(in.GroupName), in.MinParticipants, in.MaxParticipants,
	)
	return scanGroupBooking(row)
}

func (r *Repository) GetGroupBooking(ctx context.Context, id string) (models.GroupBooking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+groupBookingColumns+` FROM group_bookings WHERE id = $1::uuid`, id)
	booking, err := scanGroupBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return booking, ErrGroupBookingNotFound
	}
	return booking, err
}

// JoinGroupBooking claims one participant slot. The capacity and status
// guards live in the UPDATE itself so two concurrent joins for the last
// slot cannot both succeed.
func (r *Repository) JoinGroupBooking(ctx context.Context, id string) (models.GroupBooking, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE group_bookings
SET current_participants = current_participants + 1, updated_at = now()
WHERE id = $1::uuid
	AND status = 'open'
	AND current_participants < max_participants
RETURNING `+groupBookingColumns+`;`, id)

	booking, err := scanGroupBooking(row)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.GroupBooking{}, err
	}

	current, err := r.GetGroupBooking(ctx, id)
	if err != nil {
		return models.GroupBooking{}, err
	}
	if current.Status != models.GroupBookingStatusOpen {
		return models.GroupBooking{}, ErrGroupBookingClosed
	}
	return models.GroupBooking{}, ErrGroupBookingFull
}

// CompleteGroupBooking closes an open group that reached its minimum.
func (r *Repository) CompleteGroupBooking(ctx context.Context, id string) (models.GroupBooking, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE group_bookings
SET status = 'completed', updated_at = now()
WHERE id = $1::uuid
	AND status = 'open'
	AND current_participants >= min_participants
RETURNING `+groupBookingColumns+`;`, id)

	booking, err := scanGroupBooking(row)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.GroupBooking{}, err
	}

	current, err := r.GetGroupBooking(ctx, id)
	if err != nil {
		return models.GroupBooking{}, err
	}
	if current.Status != models.GroupBookingStatusOpen {
		return models.GroupBooking{}, ErrGroupBookingClosed
	}
	return models.GroupBooking{}, ErrGroupBelowMinimum
}

func (r *Repository) CancelGroupBooking(ctx context.Context, id string) (models.GroupBooking, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE group_bookings
SET status = 'cancelled', updated_at = now()
WHERE id = $1::uuid AND status = 'open'
RETURNING `+groupBookingColumns+`;`, id)

	booking, err := scanGroupBooking(row)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.GroupBooking{}, err
	}
	if _, err := r.GetGroupBooking(ctx, id); err != nil {
		return models.GroupBooking{}, err
	}
	return models.GroupBooking{}, ErrGroupBookingClosed
}

func (r *Repository) ListGroupBookings(ctx context.Context, eventID int64) ([]models.GroupBooking, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+groupBookingColumns+`
FROM group_bookings
WHERE event_id = $1
ORDER BY created_at DESC;`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.GroupBooking, 0)
	for rows.Next() {
		booking, err := scanGroupBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanGroupBooking(row pgx.Row) (models.GroupBooking, error) {
	var out models.GroupBooking
	err := row.Scan(
		&out.ID,
		&out.EventID,
		&out.OrganizerID,
		&out.GroupName,
		&out.MinParticipants,
		&out.MaxParticipants,
		&out.CurrentParticipants,
		&out.Status,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	return out, err
}
