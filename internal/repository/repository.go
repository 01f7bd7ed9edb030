package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the single persistence gateway for the ticketing core.
// Every inventory, promo and check-in mutation goes through a
// conditional update or a row-locked transaction here; callers cannot
// bypass the guards.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// queryRunner lets helpers run against either the pool or an open
// transaction.
type queryRunner interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func (r *Repository) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// getEventWindow reads the externally owned event schedule. Only the
// start/end instants are consumed by this core.
func getEventWindow(ctx context.Context, q queryRunner, eventID int64) (time.Time, time.Time, error) {
	var startsAt, endsAt time.Time
	err := q.QueryRow(ctx, `
SELECT starts_at, COALESCE(ends_at, starts_at + interval '6 hours')
FROM events
WHERE id = $1;`, eventID).Scan(&startsAt, &endsAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, time.Time{}, ErrEventNotFound
		}
		return time.Time{}, time.Time{}, err
	}
	return startsAt, endsAt, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullString(val string) interface{} {
	if val == "" {
		return nil
	}
	return val
}

func nullInt64Ptr(value *int64) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func nullTimeToPtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	v := value.Time
	return &v
}

func nullInt64ToPtr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}

func nullStringToPtr(value sql.NullString) *string {
	if !value.Valid || value.String == "" {
		return nil
	}
	v := value.String
	return &v
}
