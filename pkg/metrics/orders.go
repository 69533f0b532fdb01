package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks the order placement and lifecycle counters.
type OrderMetrics struct {
	placed         *prometheus.CounterVec
	cancelled      prometheus.Counter
	stockConflicts prometheus.Counter
	paymentFailed  prometheus.Counter
	placementTime  prometheus.Histogram
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed, by payment method.",
	}, []string{"payment_method"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled with stock restored.",
	})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_stock_conflicts_total",
		Help: "Placements rejected because stock ran out.",
	})
	paymentFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_payment_failures_total",
		Help: "Placements rejected by the payment gateway.",
	})
	placementTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_placement_duration_seconds",
		Help:    "End-to-end order placement latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(placed, cancelled, stockConflicts, paymentFailed, placementTime)
	return &OrderMetrics{
		placed:         placed,
		cancelled:      cancelled,
		stockConflicts: stockConflicts,
		paymentFailed:  paymentFailed,
		placementTime:  placementTime,
	}
}

// IncPlaced records a successful placement for the payment method.
func (o *OrderMetrics) IncPlaced(paymentMethod string) {
	if o == nil || o.placed == nil {
		return
	}
	o.placed.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncCancelled records an order cancellation.
func (o *OrderMetrics) IncCancelled() {
	if o == nil || o.cancelled == nil {
		return
	}
	o.cancelled.Inc()
}

// IncStockConflict records a placement rejected for insufficient stock.
func (o *OrderMetrics) IncStockConflict() {
	if o == nil || o.stockConflicts == nil {
		return
	}
	o.stockConflicts.Inc()
}

// IncPaymentFailed records a placement rejected by the gateway.
func (o *OrderMetrics) IncPaymentFailed() {
	if o == nil || o.paymentFailed == nil {
		return
	}
	o.paymentFailed.Inc()
}

// ObservePlacement records how long a placement took.
func (o *OrderMetrics) ObservePlacement(elapsed time.Duration) {
	if o == nil || o.placementTime == nil {
		return
	}
	o.placementTime.Observe(elapsed.Seconds())
}
