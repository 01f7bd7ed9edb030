package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/db"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestReserveInventoryLastUnit(t *testing.T) {
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

	eventID, err := insertInventoryTestEvent(ctx, pool)
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	ticketType, err := insertInventoryTestTicketType(ctx, repo, eventID, 1)
	if err != nil {
		t.Fatalf("insert ticket type: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM ticket_types WHERE id = $1::uuid`, ticketType.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	})

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.ReserveInventory(ctx, ticketType.ID, 1)
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	soldOut := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case err == ErrInsufficientInventory:
			soldOut++
		default:
			t.Fatalf("unexpected reserve error: %v", err)
		}
	}
	if success != 1 || soldOut != 1 {
		t.Fatalf("expected one success and one sold out, got success=%d soldOut=%d", success, soldOut)
	}

	refreshed, err := repo.GetTicketType(ctx, ticketType.ID)
	if err != nil {
		t.Fatalf("get ticket type: %v", err)
	}
	if refreshed.QuantitySold != 1 || refreshed.Available != 0 {
		t.Fatalf("expected sold=1 available=0, got sold=%d available=%d", refreshed.QuantitySold, refreshed.Available)
	}
}

func TestReleaseInventoryRejectsOverRelease(t *testing.T) {
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

	eventID, err := insertInventoryTestEvent(ctx, pool)
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	ticketType, err := insertInventoryTestTicketType(ctx, repo, eventID, 10)
	if err != nil {
		t.Fatalf("insert ticket type: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM ticket_types WHERE id = $1::uuid`, ticketType.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	})

	if err := repo.ReserveInventory(ctx, ticketType.ID, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := repo.ReleaseInventory(ctx, ticketType.ID, 3); err != ErrOverRelease {
		t.Fatalf("expected ErrOverRelease, got %v", err)
	}
	if err := repo.ReleaseInventory(ctx, ticketType.ID, 2); err != nil {
		t.Fatalf("release: %v", err)
	}

	refreshed, err := repo.GetTicketType(ctx, ticketType.ID)
	if err != nil {
		t.Fatalf("get ticket type: %v", err)
	}
	if refreshed.QuantitySold != 0 {
		t.Fatalf("expected sold back to 0, got %d", refreshed.QuantitySold)
	}
}

func insertInventoryTestEvent(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
INSERT INTO events (title, starts_at, ends_at)
VALUES ('Inventory Test', now() + interval '1 day', now() + interval '1 day 4 hours')
RETURNING id;`).Scan(&id)
	return id, err
}

func insertInventoryTestTicketType(ctx context.Context, repo *Repository, eventID int64, quantity int) (models.TicketType, error) {
	return repo.CreateTicketType(ctx, models.TicketTypeInput{
		EventID:      eventID,
		Name:         "General Admission",
		PriceCents:   5000,
		Quantity:     quantity,
		MinPurchase:  1,
		MaxPurchase:  10,
		SaleStartsAt: time.Now().UTC().Add(-time.Hour),
		SaleEndsAt:   time.Now().UTC().Add(24 * time.Hour),
	})
}
