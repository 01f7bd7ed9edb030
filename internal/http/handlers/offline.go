package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/events"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"

	"github.com/go-chi/chi/v5"
)

type registerDeviceRequest struct {
	EventID int64  `json:"eventId"`
	Name    string `json:"name"`
	Secret  string `json:"secret"`
}

type syncCheckinsRequest struct {
	Checkins []models.OfflineCheckin `json:"checkins"`
}

type offlineValidateRequest struct {
	DeviceID string `json:"deviceId"`
	QRCode   string `json:"qrCode"`
}

const deviceSecretHeader = "X-Device-Secret"

// RegisterDevice enrolls an offline check-in device for an event.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("register_device", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.EventID <= 0 || strings.TrimSpace(req.Name) == "" || len(req.Secret) < 16 {
		writeError(w, http.StatusBadRequest, "eventId, name and a secret of at least 16 characters are required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	device, err := h.repo.RegisterDevice(ctx, req.EventID, req.Name, req.Secret)
	if err != nil {
		h.handleTicketingError(logger, w, "register_device", err)
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

// DownloadBundle hands a device its signed ticket snapshot. A cached
// bundle is reused until it expires; otherwise a fresh snapshot is
// taken, signed, optionally exported to object storage, and cached.
func (h *Handler) DownloadBundle(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	deviceID := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	if _, err := h.repo.AuthenticateDevice(ctx, deviceID, r.Header.Get(deviceSecretHeader)); err != nil {
		h.handleTicketingError(logger, w, "download_bundle", err)
		return
	}

	if h.bundles != nil {
		if cached, ok, err := h.bundles.Get(ctx, deviceID); err != nil {
			logger.Warn("download_bundle", "status", "cache_read_failed", "error", err)
		} else if ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	ttl := ticketing.DefaultCacheTTL
	if h.cfg != nil && h.cfg.OfflineCacheTTL > 0 {
		ttl = h.cfg.OfflineCacheTTL
	}
	bundle, err := h.repo.BuildValidationCache(ctx, deviceID, ttl)
	if err != nil {
		h.handleTicketingError(logger, w, "download_bundle", err)
		return
	}

	signature, err := signBundle(h.cfg.CacheSigningSecret, bundle)
	if err != nil {
		logger.Error("download_bundle", "status", "sign_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	bundle.Signature = signature

	if h.s3 != nil {
		raw, err := json.Marshal(bundle)
		if err == nil {
			if url, err := h.s3.UploadBundle(ctx, bundle.CacheID, raw); err != nil {
				logger.Warn("download_bundle", "status", "export_failed", "error", err)
			} else {
				bundle.DownloadURL = url
			}
		}
	}

	if h.bundles != nil {
		if err := h.bundles.Put(ctx, deviceID, bundle); err != nil {
			logger.Warn("download_bundle", "status", "cache_write_failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, bundle)
}

// ValidateOfflineTicket answers a scan from the device's cached
// snapshot only. An expired cache always rejects, even for an
// otherwise-valid ticket.
func (h *Handler) ValidateOfflineTicket(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req offlineValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("validate_offline", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" || strings.TrimSpace(req.QRCode) == "" {
		writeError(w, http.StatusBadRequest, "deviceId and qrCode are required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	if _, err := h.repo.AuthenticateDevice(ctx, req.DeviceID, r.Header.Get(deviceSecretHeader)); err != nil {
		h.handleTicketingError(logger, w, "validate_offline", err)
		return
	}

	result, err := h.repo.ValidateOffline(ctx, req.DeviceID, req.QRCode)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ValidationsTotal.WithLabelValues("offline_rejected").Inc()
		}
		h.handleTicketingError(logger, w, "validate_offline", err)
		return
	}
	if h.metrics != nil {
		h.metrics.ValidationsTotal.WithLabelValues("offline_valid").Inc()
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncCheckins reconciles a device's locally recorded check-ins.
func (h *Handler) SyncCheckins(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	deviceID := chi.URLParam(r, "id")

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	device, err := h.repo.AuthenticateDevice(ctx, deviceID, r.Header.Get(deviceSecretHeader))
	if err != nil {
		h.handleTicketingError(logger, w, "sync_checkins", err)
		return
	}

	var req syncCheckinsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("sync_checkins", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Checkins) == 0 {
		writeError(w, http.StatusBadRequest, "checkins are required")
		return
	}
	for _, checkin := range req.Checkins {
		if err := h.validator.Struct(checkin); err != nil {
			logger.Warn("sync_checkins", "status", "validation_failed", "error", err)
			writeError(w, http.StatusBadRequest, "validation failed")
			return
		}
	}

	result, err := h.repo.SyncOfflineCheckins(ctx, deviceID, req.Checkins)
	if err != nil {
		h.handleTicketingError(logger, w, "sync_checkins", err)
		return
	}
	if h.metrics != nil {
		h.metrics.OfflineSyncsTotal.Inc()
	}
	h.publish(r.Context(), events.OfflineSynced, map[string]interface{}{
		"device_id":  device.ID,
		"event_id":   device.EventID,
		"synced":     result.SyncedCount,
		"duplicates": result.DuplicateCount,
		"conflicts":  len(result.Conflicts),
	})

	// The device's snapshot is stale after a sync.
	if h.bundles != nil {
		_ = h.bundles.Invalidate(ctx, deviceID)
	}

	writeJSON(w, http.StatusOK, result)
}

// signBundle signs the canonical JSON of the bundle payload with the
// signature and download fields cleared.
func signBundle(secret string, bundle models.OfflineBundle) (string, error) {
	bundle.Signature = ""
	bundle.DownloadURL = ""
	raw, err := json.Marshal(bundle)
	if err != nil {
		return "", err
	}
	return ticketing.SignBundle(secret, raw)
}
