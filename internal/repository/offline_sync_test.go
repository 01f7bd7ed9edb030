package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/db"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"
)

func TestSyncOfflineCheckinsReplayIsNoOp(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("db connection: %v", err)
	}
	defer pool.Close()

	repo := New(pool)

	eventID, ticketTypeID, orderID, tickets := insertConfirmedOrderFixture(ctx, t, pool, repo)
	device, err := repo.RegisterDevice(ctx, eventID, "Gate A Scanner", "scanner-secret")
	if err != nil {
		t.Fatalf("register device: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM offline_checkins WHERE device_id = $1::uuid`, device.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM validation_caches WHERE device_id = $1::uuid`, device.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM checkin_devices WHERE id = $1::uuid`, device.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM orders WHERE id = $1::uuid`, orderID)
		_, _ = pool.Exec(ctx, `DELETE FROM ticket_types WHERE id = $1::uuid`, ticketTypeID)
		_, _ = pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	})

	// The second ticket was already admitted online; its offline mark
	// must surface as a conflict, not a second admission.
	if _, err := repo.CheckInTicket(ctx, tickets[1].ID, 555002); err != nil {
		t.Fatalf("online check-in: %v", err)
	}

	batch := []models.OfflineCheckin{
		{TicketID: tickets[0].ID, StaffID: 555003, UsedAt: time.Now().UTC().Add(-10 * time.Minute)},
		{TicketID: tickets[1].ID, StaffID: 555003, UsedAt: time.Now().UTC().Add(-5 * time.Minute)},
	}

	first, err := repo.SyncOfflineCheckins(ctx, device.ID, batch)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.SyncedCount != 1 || first.DuplicateCount != 0 || len(first.Conflicts) != 1 {
		t.Fatalf("unexpected first sync result: %+v", first)
	}
	if first.Conflicts[0].TicketID != tickets[1].ID || first.Conflicts[0].ServerStatus != models.TicketStatusUsed {
		t.Fatalf("unexpected conflict: %+v", first.Conflicts[0])
	}

	ticket, err := repo.GetTicket(ctx, tickets[0].ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if ticket.Status != models.TicketStatusUsed || ticket.CheckedInAt == nil {
		t.Fatalf("expected offline mark applied, got %+v", ticket)
	}

	replay, err := repo.SyncOfflineCheckins(ctx, device.ID, batch)
	if err != nil {
		t.Fatalf("replay sync: %v", err)
	}
	if replay.SyncedCount != 0 || replay.DuplicateCount != 2 || len(replay.Conflicts) != 0 {
		t.Fatalf("expected replay to be a no-op, got %+v", replay)
	}
}

func TestValidateOfflineUsesCacheOnly(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("db connection: %v", err)
	}
	defer pool.Close()

	repo := New(pool)

	eventID, ticketTypeID, orderID, tickets := insertConfirmedOrderFixture(ctx, t, pool, repo)
	device, err := repo.RegisterDevice(ctx, eventID, "Gate C Scanner", "scanner-secret")
	if err != nil {
		t.Fatalf("register device: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM validation_caches WHERE device_id = $1::uuid`, device.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM checkin_devices WHERE id = $1::uuid`, device.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM orders WHERE id = $1::uuid`, orderID)
		_, _ = pool.Exec(ctx, `DELETE FROM ticket_types WHERE id = $1::uuid`, ticketTypeID)
		_, _ = pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	})

	bundle, err := repo.BuildValidationCache(ctx, device.ID, 0)
	if err != nil {
		t.Fatalf("build cache: %v", err)
	}
	qrByTicket := make(map[string]string, len(bundle.Tickets))
	for _, cached := range bundle.Tickets {
		qrByTicket[cached.TicketID] = cached.QRCode
	}

	result, err := repo.ValidateOffline(ctx, device.ID, qrByTicket[tickets[0].ID])
	if err != nil {
		t.Fatalf("offline validate: %v", err)
	}
	if !result.Valid || result.TicketID != tickets[0].ID || result.Status != models.TicketStatusUsed {
		t.Fatalf("unexpected offline result: %+v", result)
	}

	// Only the cached row flips; the server ticket stays active until
	// the device syncs.
	serverTicket, err := repo.GetTicket(ctx, tickets[0].ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if serverTicket.Status != models.TicketStatusActive {
		t.Fatalf("offline validation must not touch the server status, got %s", serverTicket.Status)
	}

	// A second scan of the same ticket on this device rejects.
	if _, err := repo.ValidateOffline(ctx, device.ID, qrByTicket[tickets[0].ID]); err != ticketing.ErrOfflineTicketInvalid {
		t.Fatalf("expected ErrOfflineTicketInvalid on rescan, got %v", err)
	}

	// An expired cache always rejects, even for an untouched ticket.
	_, err = pool.Exec(ctx, `
UPDATE validation_caches
SET expires_at = now() - interval '1 hour'
WHERE device_id = $1::uuid;`, device.ID)
	if err != nil {
		t.Fatalf("expire cache: %v", err)
	}
	if _, err := repo.ValidateOffline(ctx, device.ID, qrByTicket[tickets[1].ID]); err != ticketing.ErrCacheExpired {
		t.Fatalf("expected ErrCacheExpired, got %v", err)
	}
}

func TestBuildValidationCacheSnapshotsActiveTickets(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("db connection: %v", err)
	}
	defer pool.Close()

	repo := New(pool)

	eventID, ticketTypeID, orderID, tickets := insertConfirmedOrderFixture(ctx, t, pool, repo)
	device, err := repo.RegisterDevice(ctx, eventID, "Gate B Scanner", "scanner-secret")
	if err != nil {
		t.Fatalf("register device: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM validation_caches WHERE device_id = $1::uuid`, device.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM checkin_devices WHERE id = $1::uuid`, device.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM refunds WHERE order_id = $1::uuid`, orderID)
		_, _ = pool.Exec(ctx, `DELETE FROM orders WHERE id = $1::uuid`, orderID)
		_, _ = pool.Exec(ctx, `DELETE FROM ticket_types WHERE id = $1::uuid`, ticketTypeID)
		_, _ = pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	})

	// Cancel one ticket; only active tickets belong in the snapshot.
	if _, err := repo.RequestRefund(ctx, tickets[1].ID, "snapshot test"); err != nil {
		t.Fatalf("refund: %v", err)
	}

	bundle, err := repo.BuildValidationCache(ctx, device.ID, 0)
	if err != nil {
		t.Fatalf("build cache: %v", err)
	}
	if bundle.TicketCount != 1 || len(bundle.Tickets) != 1 {
		t.Fatalf("expected one cached ticket, got %d", bundle.TicketCount)
	}
	if bundle.Tickets[0].TicketID != tickets[0].ID {
		t.Fatalf("expected the active ticket in the snapshot")
	}
	if !bundle.ExpiresAt.After(bundle.GeneratedAt) {
		t.Fatalf("cache must expire after generation")
	}
	if bundle.Tickets[0].ValidUntil.After(bundle.ExpiresAt.Add(time.Minute)) {
		// Per-ticket validity is bounded by event end and TTL.
		t.Fatalf("ticket validity exceeds cache expiry window")
	}

	// Device auth guards the download path.
	if _, err := repo.AuthenticateDevice(ctx, device.ID, "wrong-secret"); err != ErrDeviceAuthFailed {
		t.Fatalf("expected ErrDeviceAuthFailed, got %v", err)
	}
	if _, err := repo.AuthenticateDevice(ctx, device.ID, "scanner-secret"); err != nil {
		t.Fatalf("device auth: %v", err)
	}
}
