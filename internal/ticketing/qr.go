package ticketing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

var (
	ErrMalformedPayload = errors.New("malformed qr payload")
	ErrHashMismatch     = errors.New("invalid ticket")
)

const payloadSeparator = "|"

// PayloadFields are the identity fields bound together by the security
// hash. The wire layout is "{ticketId}|{ticketTypeId}|{orderId}".
type PayloadFields struct {
	TicketID     string
	TicketTypeID string
	OrderID      string
}

// BuildQRPayload renders the canonical payload string for a ticket.
func BuildQRPayload(ticketID, ticketTypeID, orderID string) string {
	return ticketID + payloadSeparator + ticketTypeID + payloadSeparator + orderID
}

// ParseQRPayload splits a scanned payload back into its fields.
func ParseQRPayload(payload string) (PayloadFields, error) {
	parts := strings.Split(payload, payloadSeparator)
	if len(parts) != 3 {
		return PayloadFields{}, ErrMalformedPayload
	}
	fields := PayloadFields{
		TicketID:     strings.TrimSpace(parts[0]),
		TicketTypeID: strings.TrimSpace(parts[1]),
		OrderID:      strings.TrimSpace(parts[2]),
	}
	if fields.TicketID == "" || fields.TicketTypeID == "" || fields.OrderID == "" {
		return PayloadFields{}, ErrMalformedPayload
	}
	return fields, nil
}

// SecurityHash digests the ticket identity fields and the attendee
// email, concatenated without delimiters, to lowercase hex SHA-256.
func SecurityHash(ticketID, ticketTypeID, orderID, attendeeEmail string) string {
	sum := sha256.Sum256([]byte(ticketID + ticketTypeID + orderID + attendeeEmail))
	return hex.EncodeToString(sum[:])
}

// VerifyHash compares a provided hash against the expected one in
// constant time. Callers must not echo the expected value on failure.
func VerifyHash(expected, provided string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(provided)))) == 1
}

// GenerateQRImagePNG encodes a payload as a PNG QR image.
func GenerateQRImagePNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// SignBundle signs a serialized offline bundle with HMAC-SHA256.
func SignBundle(secret string, raw []byte) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("signing secret is required")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(raw)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyBundleSignature checks an offline bundle signature.
func VerifyBundleSignature(secret string, raw []byte, signature string) bool {
	expected, err := SignBundle(secret, raw)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) == 1
}
