package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/cache"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/config"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/events"
	authmw "github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/http/middleware"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/integrations"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/monitoring"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/rate"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/repository"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	repo            *repository.Repository
	s3              *integrations.S3Client
	bundles         *cache.BundleStore
	publisher       events.Publisher
	metrics         *monitoring.Metrics
	cfg             *config.Config
	logger          *slog.Logger
	validator       *validator.Validate
	validateLimiter *rate.KeyedLimiter
}

// New wires the handler. s3 and bundles may be nil; offline bundle
// export and caching degrade to inline responses without them.
func New(repo *repository.Repository, s3 *integrations.S3Client, bundles *cache.BundleStore, publisher events.Publisher, metrics *monitoring.Metrics, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	limit := 60
	if cfg != nil && cfg.ValidateRateLimit > 0 {
		limit = cfg.ValidateRateLimit
	}
	return &Handler{
		repo:            repo,
		s3:              s3,
		bundles:         bundles,
		publisher:       publisher,
		metrics:         metrics,
		cfg:             cfg,
		logger:          logger,
		validator:       validator.New(),
		validateLimiter: rate.NewKeyedLimiter(limit),
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

func (h *Handler) loggerForRequest(r *http.Request) *slog.Logger {
	logger := h.logger
	if logger == nil {
		return slog.Default()
	}
	if reqID := chimw.GetReqID(r.Context()); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if userID, ok := authmw.UserIDFromContext(r.Context()); ok {
		logger = logger.With("user_id", userID)
	}
	return logger
}

func (h *Handler) publish(ctx context.Context, event string, fields map[string]interface{}) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(ctx, event, fields)
}
