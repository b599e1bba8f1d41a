package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts orders that committed successfully.
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "souk",
		Subsystem: "checkout",
		Name:      "orders_placed_total",
		Help:      "Total number of orders placed.",
	})

	// CouponRejections counts coupon codes that were submitted but not
	// applied, labeled by the machine-readable rejection reason.
	CouponRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "souk",
		Subsystem: "checkout",
		Name:      "coupon_rejections_total",
		Help:      "Coupon codes submitted at checkout that did not apply.",
	}, []string{"reason"})

	// CartFallbacks counts cart operations served by the in-memory store
	// because the primary store errored.
	CartFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "souk",
		Subsystem: "carts",
		Name:      "fallback_total",
		Help:      "Cart operations that fell back to the in-memory store.",
	}, []string{"op"})

	// OrderEventsPublished counts order events handed to the broker.
	OrderEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "souk",
		Subsystem: "events",
		Name:      "order_events_published_total",
		Help:      "Order lifecycle events published to the broker.",
	}, []string{"status"})
)
