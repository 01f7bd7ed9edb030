package events

import (
	"context"
	"log/slog"
)

// Names of the domain events emitted by the ticketing core.
const (
	TicketIssued    = "ticket.issued"
	TicketCheckedIn = "ticket.checked_in"
	OrderConfirmed  = "order.confirmed"
	OrderCancelled  = "order.cancelled"
	RefundProcessed = "refund.processed"
	OfflineSynced   = "offline.synced"
)

// Publisher receives domain events after their transaction commits.
// Implementations must not block request handling.
type Publisher interface {
	Publish(ctx context.Context, event string, fields map[string]interface{})
}

// LogPublisher writes events to the structured log. It stands in until
// a message broker is wired up downstream.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event string, fields map[string]interface{}) {
	attrs := make([]any, 0, len(fields)*2+2)
	attrs = append(attrs, "event", event)
	for key, value := range fields {
		attrs = append(attrs, key, value)
	}
	p.logger.InfoContext(ctx, "domain_event", attrs...)
}
