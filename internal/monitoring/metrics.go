package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the ticketing counters exposed at /metrics.
type Metrics struct {
	OrdersCreated     prometheus.Counter
	OrdersConfirmed   prometheus.Counter
	TicketsIssued     prometheus.Counter
	ValidationsTotal  *prometheus.CounterVec
	CheckinsTotal     *prometheus.CounterVec
	RefundsProcessed  prometheus.Counter
	OfflineSyncsTotal prometheus.Counter
	SoldOutRejections prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketing_orders_created_total",
			Help: "Orders created (pending).",
		}),
		OrdersConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketing_orders_confirmed_total",
			Help: "Orders confirmed after payment.",
		}),
		TicketsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketing_tickets_issued_total",
			Help: "Tickets generated on confirmation.",
		}),
		ValidationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketing_validations_total",
			Help: "QR validations by outcome.",
		}, []string{"outcome"}),
		CheckinsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketing_checkins_total",
			Help: "Check-in attempts by outcome.",
		}, []string{"outcome"}),
		RefundsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketing_refunds_processed_total",
			Help: "Refunds processed.",
		}),
		OfflineSyncsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketing_offline_syncs_total",
			Help: "Offline check-in batches reconciled.",
		}),
		SoldOutRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticketing_sold_out_rejections_total",
			Help: "Reservations rejected for insufficient inventory.",
		}),
	}
}

// HandlerFor exposes the registry over HTTP.
func HandlerFor(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
