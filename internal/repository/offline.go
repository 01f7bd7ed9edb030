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
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDeviceNotFound   = errors.New("check-in device not found")
	ErrDeviceAuthFailed = errors.New("device authentication failed")
	ErrCacheNotFound    = errors.New("validation cache not found")
)

// RegisterDevice enrolls a check-in device for an event. The shared
// secret is stored only as a bcrypt hash.
func (r *Repository) RegisterDevice(ctx context.Context, eventID int64, name, secret string) (models.CheckinDevice, error) {
	if _, _, err := getEventWindow(ctx, r.pool, eventID); err != nil {
		return models.CheckinDevice{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return models.CheckinDevice{}, err
	}

	var device models.CheckinDevice
	err = r.pool.QueryRow(ctx, `
INSERT INTO checkin_devices (id, event_id, name, secret_hash)
VALUES ($1::uuid, $2, $3, $4)
RETURNING id::text, event_id, name, created_at;`,
		uuid.NewString(), eventID, strings.TrimSpace(name), string(hash),
	).Scan(&device.ID, &device.EventID, &device.Name, &device.CreatedAt)
	return device, err
}

// AuthenticateDevice checks a device's shared secret. The same error is
// returned whether the device is unknown or the secret is wrong.
func (r *Repository) AuthenticateDevice(ctx context.Context, deviceID, secret string) (models.CheckinDevice, error) {
	var (
		device     models.CheckinDevice
		secretHash string
		lastSynced sql.NullTime
	)
	err := r.pool.QueryRow(ctx, `
SELECT id::text, event_id, name, secret_hash, last_synced_at, created_at
FROM checkin_devices
WHERE id = $1::uuid;`, deviceID,
	).Scan(&device.ID, &device.EventID, &device.Name, &secretHash, &lastSynced, &device.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CheckinDevice{}, ErrDeviceAuthFailed
		}
		return models.CheckinDevice{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)) != nil {
		return models.CheckinDevice{}, ErrDeviceAuthFailed
	}
	device.LastSyncedAt = nullTimeToPtr(lastSynced)
	return device, nil
}

// BuildValidationCache snapshots every active ticket of the device's
// event into a new cache. The bundle is unsigned here; signing happens
// at the transport layer where the signing secret lives.
func (r *Repository) BuildValidationCache(ctx context.Context, deviceID string, ttl time.Duration) (models.OfflineBundle, error) {
	if ttl <= 0 {
		ttl = ticketing.DefaultCacheTTL
	}

	var bundle models.OfflineBundle
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var eventID int64
		err := tx.QueryRow(ctx, `SELECT event_id FROM checkin_devices WHERE id = $1::uuid`, deviceID).Scan(&eventID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrDeviceNotFound
			}
			return err
		}

		_, eventEnd, err := getEventWindow(ctx, tx, eventID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		validUntil := ticketing.CacheValidUntil(eventEnd, now, ttl)
		expiresAt := now.Add(ttl)

		cacheID := uuid.NewString()
		rows, err := tx.Query(ctx, `
SELECT id::text, qr_payload, security_hash, attendee_name
FROM tickets
WHERE event_id = $1 AND status = 'active'
ORDER BY created_at;`, eventID)
		if err != nil {
			return err
		}
		var tickets []models.OfflineTicket
		for rows.Next() {
			item := models.OfflineTicket{
				EventID:    eventID,
				Status:     models.TicketStatusActive,
				ValidUntil: validUntil,
			}
			if err := rows.Scan(&item.TicketID, &item.QRCode, &item.SecurityHash, &item.AttendeeName); err != nil {
				rows.Close()
				return err
			}
			tickets = append(tickets, item)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
INSERT INTO validation_caches (id, event_id, device_id, ticket_count, expires_at)
VALUES ($1::uuid, $2, $3::uuid, $4, $5);`,
			cacheID, eventID, deviceID, len(tickets), expiresAt)
		if err != nil {
			return err
		}
		for _, item := range tickets {
			_, err := tx.Exec(ctx, `
INSERT INTO offline_tickets (cache_id, ticket_id, status, valid_until)
VALUES ($1::uuid, $2::uuid, $3, $4);`,
				cacheID, item.TicketID, item.Status, item.ValidUntil)
			if err != nil {
				return err
			}
		}

		bundle = models.OfflineBundle{
			CacheID:     cacheID,
			EventID:     eventID,
			DeviceID:    deviceID,
			GeneratedAt: now,
			ExpiresAt:   expiresAt,
			TicketCount: len(tickets),
			Tickets:     tickets,
		}
		return nil
	})
	if err != nil {
		return models.OfflineBundle{}, err
	}
	return bundle, nil
}

func (r *Repository) GetValidationCache(ctx context.Context, cacheID string) (models.ValidationCache, error) {
	var cache models.ValidationCache
	err := r.pool.QueryRow(ctx, `
SELECT id::text, event_id, device_id::text, ticket_count, expires_at, created_at
FROM validation_caches
WHERE id = $1::uuid;`, cacheID,
	).Scan(&cache.ID, &cache.EventID, &cache.DeviceID, &cache.TicketCount, &cache.ExpiresAt, &cache.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return cache, ErrCacheNotFound
	}
	return cache, err
}

// ValidateOffline answers a scan from the device's newest cache
// snapshot only; the tickets table is never consulted. A valid scan
// flips the cached row to used so a second scan on the same device
// rejects. The authoritative status change happens later at sync.
func (r *Repository) ValidateOffline(ctx context.Context, deviceID, qrCode string) (models.OfflineValidationResult, error) {
	fields, err := ticketing.ParseQRPayload(qrCode)
	if err != nil {
		return models.OfflineValidationResult{}, err
	}

	var result models.OfflineValidationResult
	err = r.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			cacheID   string
			expiresAt time.Time
		)
		err := tx.QueryRow(ctx, `
SELECT id::text, expires_at
FROM validation_caches
WHERE device_id = $1::uuid
ORDER BY created_at DESC
LIMIT 1;`, deviceID).Scan(&cacheID, &expiresAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCacheNotFound
			}
			return err
		}

		var (
			status     string
			validUntil time.Time
		)
		err = tx.QueryRow(ctx, `
SELECT status, valid_until
FROM offline_tickets
WHERE cache_id = $1::uuid AND ticket_id = $2::uuid
FOR UPDATE;`, cacheID, fields.TicketID).Scan(&status, &validUntil)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ticketing.ErrOfflineTicketInvalid
			}
			return err
		}

		now := time.Now().UTC()
		if err := ticketing.ValidateCachedTicket(status, validUntil, expiresAt, now); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
UPDATE offline_tickets
SET status = 'used'
WHERE cache_id = $1::uuid AND ticket_id = $2::uuid;`, cacheID, fields.TicketID)
		if err != nil {
			return err
		}
		result = models.OfflineValidationResult{
			Valid:      true,
			TicketID:   fields.TicketID,
			Status:     models.TicketStatusUsed,
			ValidUntil: validUntil,
		}
		return nil
	})
	if err != nil {
		return models.OfflineValidationResult{}, err
	}
	return result, nil
}

// PurgeExpiredCaches removes caches past their expiry along with their
// ticket snapshots.
func (r *Repository) PurgeExpiredCaches(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM validation_caches WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// SyncOfflineCheckins reconciles a device's locally recorded check-ins.
// The (device_id, ticket_id) primary key makes replays exact no-ops:
// a batch uploaded twice counts every row as a duplicate the second
// time and changes nothing.
func (r *Repository) SyncOfflineCheckins(ctx context.Context, deviceID string, checkins []models.OfflineCheckin) (models.SyncResult, error) {
	var result models.SyncResult
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		for _, checkin := range checkins {
			cmd, err := tx.Exec(ctx, `
INSERT INTO offline_checkins (device_id, ticket_id, staff_id, used_at)
VALUES ($1::uuid, $2::uuid, $3, $4)
ON CONFLICT (device_id, ticket_id) DO NOTHING;`,
				deviceID, checkin.TicketID, checkin.StaffID, checkin.UsedAt)
			if err != nil {
				return err
			}
			if cmd.RowsAffected() == 0 {
				result.DuplicateCount++
				continue
			}

			var serverStatus string
			err = tx.QueryRow(ctx, `SELECT status FROM tickets WHERE id = $1::uuid FOR UPDATE`, checkin.TicketID).Scan(&serverStatus)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					result.Conflicts = append(result.Conflicts, models.SyncConflict{
						TicketID:     checkin.TicketID,
						ServerStatus: "not_found",
					})
					continue
				}
				return err
			}

			resolved := ticketing.ResolveConflict(models.TicketStatusUsed, serverStatus)
			if resolved != models.TicketStatusUsed || serverStatus != models.TicketStatusActive {
				result.Conflicts = append(result.Conflicts, models.SyncConflict{
					TicketID:     checkin.TicketID,
					ServerStatus: serverStatus,
				})
				continue
			}

			cmd, err = tx.Exec(ctx, `
UPDATE tickets
SET status = 'used', checked_in_at = $2, checked_in_by = $3
WHERE id = $1::uuid AND status = 'active';`,
				checkin.TicketID, checkin.UsedAt.UTC(), checkin.StaffID)
			if err != nil {
				return err
			}
			if cmd.RowsAffected() == 1 {
				result.SyncedCount++
			}
		}

		_, err := tx.Exec(ctx, `
UPDATE checkin_devices
SET last_synced_at = now()
WHERE id = $1::uuid;`, deviceID)
		return err
	})
	if err != nil {
		return models.SyncResult{}, err
	}
	return result, nil
}
