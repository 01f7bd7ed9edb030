package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/auth"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/cache"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/config"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/db"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/events"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/http/handlers"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/http/middleware"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/integrations"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/logging"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/monitoring"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/repository"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer func() {
		_ = cleanup()
	}()
	logger = logger.With("service", "ticketing-api")
	slog.SetDefault(logger)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db error", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.New(pool)

	var s3Client *integrations.S3Client
	if cfg.S3.Bucket != "" {
		s3Client, err = integrations.NewS3(ctx, cfg.S3)
		if err != nil {
			logger.Error("s3 error", "error", err)
			os.Exit(1)
		}
	}

	var bundleStore *cache.BundleStore
	if cfg.RedisURL != "" {
		bundleStore, err = cache.NewBundleStore(cfg.RedisURL)
		if err != nil {
			logger.Error("redis error", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = bundleStore.Close()
		}()
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.New(registry)
	publisher := events.NewLogPublisher(logger)

	h := handlers.New(repo, s3Client, bundleStore, publisher, metrics, cfg, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(10 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "db unreachable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Method(http.MethodGet, "/metrics", monitoring.HandlerFor(registry))

	// Device endpoints authenticate with the device secret, not a JWT.
	r.Route("/offline/devices/{id}", func(r chi.Router) {
		r.Get("/bundle", h.DownloadBundle)
		r.Post("/sync", h.SyncCheckins)
	})
	r.Post("/tickets/offline/validate", h.ValidateOfflineTicket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.JWTSecret))

		r.Get("/ticket-types", h.ListTicketTypes)
		r.Get("/ticket-types/{id}", h.GetTicketType)

		r.Post("/orders", h.CreateOrder)
		r.Get("/orders/my", h.ListMyOrders)
		r.Get("/orders/{id}", h.GetOrder)
		r.Post("/orders/{id}/apply-promo", h.ApplyPromo)
		r.Post("/orders/{id}/confirm", h.ConfirmOrder)
		r.Post("/orders/{id}/cancel", h.CancelOrder)
		r.Get("/orders/{id}/refunds", h.ListOrderRefunds)

		r.Post("/promo-codes/validate", h.ValidatePromoCode)

		r.Get("/tickets/{id}", h.GetTicket)
		r.Get("/tickets/{id}/qr.png", h.TicketQRImage)
		r.Post("/tickets/{id}/refund", h.RequestRefund)
		r.Get("/refunds/{id}", h.GetRefund)

		r.Get("/group-bookings", h.ListGroupBookings)
		r.Get("/group-bookings/{id}", h.GetGroupBooking)
		r.Post("/group-bookings/{id}/join", h.JoinGroupBooking)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleStaff, auth.RoleOrganizer))
			r.Post("/tickets/validate", h.ValidateTicket)
			r.Post("/tickets/{id}/check-in", h.CheckInTicket)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleOrganizer))
			r.Post("/ticket-types", h.CreateTicketType)
			r.Patch("/ticket-types/{id}", h.UpdateTicketType)
			r.Delete("/ticket-types/{id}", h.DeactivateTicketType)
			r.Get("/promo-codes", h.ListPromoCodes)
			r.Post("/promo-codes", h.CreatePromoCode)
			r.Delete("/promo-codes/{code}", h.DeactivatePromoCode)
			r.Get("/bulk-discounts", h.ListBulkDiscounts)
			r.Post("/bulk-discounts", h.CreateBulkDiscount)
			r.Delete("/bulk-discounts/{id}", h.DeleteBulkDiscount)
			r.Get("/tax-rules", h.ListTaxRules)
			r.Post("/tax-rules", h.CreateTaxRule)
			r.Delete("/tax-rules/{id}", h.DeleteTaxRule)
			r.Get("/refund-policies/{eventId}", h.GetRefundPolicy)
			r.Put("/refund-policies", h.SetRefundPolicy)
			r.Post("/offline/devices", h.RegisterDevice)
			r.Post("/group-bookings", h.CreateGroupBooking)
			r.Post("/group-bookings/{id}/complete", h.CompleteGroupBooking)
			r.Post("/group-bookings/{id}/cancel", h.CancelGroupBooking)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	// Pending orders that never see payment give their seats back.
	expireCtx, expireCancel := context.WithCancel(ctx)
	defer expireCancel()
	go expireStaleOrders(expireCtx, repo, cfg.PendingOrderTTL, logger)

	go func() {
		logger.Info("api_listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown", "service", "ticketing-api")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
}

func expireStaleOrders(ctx context.Context, repo *repository.Repository, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := repo.ExpireStaleOrders(ctx, ttl)
			if err != nil {
				logger.Error("expire_orders", "error", err)
				continue
			}
			if expired > 0 {
				logger.Info("expire_orders", "expired", expired)
			}
			if purged, err := repo.PurgeExpiredCaches(ctx); err == nil && purged > 0 {
				logger.Info("purge_caches", "purged", purged)
			}
		}
	}
}

func writeStatus(w http.ResponseWriter, code int, body string) {
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-Device-Secret")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
