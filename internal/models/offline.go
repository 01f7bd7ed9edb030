package models

import "time"

// OfflineTicket is a denormalized projection of a ticket for one
// disconnected check-in device. Never the source of truth: it is
// regenerated on every sync and discarded on expiry.
type OfflineTicket struct {
	TicketID     string    `json:"ticketId"`
	QRCode       string    `json:"qrCode"`
	SecurityHash string    `json:"securityHash"`
	EventID      int64     `json:"eventId"`
	AttendeeName string    `json:"attendeeName"`
	Status       string    `json:"status"`
	ValidUntil   time.Time `json:"validUntil"`
}

// ValidationCache describes one generated offline bundle.
type ValidationCache struct {
	ID          string    `json:"id"`
	EventID     int64     `json:"eventId"`
	DeviceID    string    `json:"deviceId"`
	TicketCount int       `json:"ticketCount"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OfflineBundle is the signed document a device downloads. Signature is
// an HMAC-SHA256 over the canonical JSON of the payload fields.
type OfflineBundle struct {
	CacheID     string          `json:"cacheId"`
	EventID     int64           `json:"eventId"`
	DeviceID    string          `json:"deviceId"`
	GeneratedAt time.Time       `json:"generatedAt"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	TicketCount int             `json:"ticketCount"`
	Tickets     []OfflineTicket `json:"tickets"`
	Signature   string          `json:"signature,omitempty"`
	DownloadURL string          `json:"downloadUrl,omitempty"`
}

// CheckinDevice is a registered offline check-in device. The shared
// secret is stored only as a bcrypt hash.
type CheckinDevice struct {
	ID           string     `json:"id"`
	EventID      int64      `json:"eventId"`
	Name         string     `json:"name"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// OfflineCheckin is one locally recorded check-in uploaded at sync time.
type OfflineCheckin struct {
	TicketID string    `json:"ticketId" validate:"required,uuid4"`
	StaffID  int64     `json:"staffId" validate:"required,gt=0"`
	UsedAt   time.Time `json:"usedAt" validate:"required"`
}

// OfflineValidationResult is the outcome of a cache-only scan. Nothing
// here reflects the tickets table; reconciliation happens at sync.
type OfflineValidationResult struct {
	Valid      bool      `json:"valid"`
	TicketID   string    `json:"ticketId"`
	Status     string    `json:"status"`
	ValidUntil time.Time `json:"validUntil"`
}

// SyncConflict reports a ticket whose offline state lost to the server.
type SyncConflict struct {
	TicketID     string `json:"ticketId"`
	ServerStatus string `json:"serverStatus"`
}

// SyncResult summarizes one reconciled batch. Replaying the same batch
// yields SyncedCount zero and no new effects.
type SyncResult struct {
	SyncedCount    int            `json:"syncedCount"`
	DuplicateCount int            `json:"duplicateCount"`
	Conflicts      []SyncConflict `json:"conflicts,omitempty"`
}
