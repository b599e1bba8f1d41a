package events

import (
	"context"
	"encoding/json"
	"time"

	"souk/internal/domain/orders"
	"souk/internal/metrics"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OrderPlaced is the event body published when a checkout commits.
// Downstream consumers (fulfilment, analytics) read it off the order topic.
type OrderPlaced struct {
	OrderID       int64     `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	UserID        *int64    `json:"user_id,omitempty"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"discount_cents"`
	ShippingCents int64     `json:"shipping_cents"`
	TotalCents    int64     `json:"total_cents"`
	CouponCode    *string   `json:"coupon_code,omitempty"`
	ItemCount     int       `json:"item_count"`
	City          string    `json:"city"`
	PlacedAt      time.Time `json:"placed_at"`
}

// Publisher writes order events to Kafka. A nil Publisher is valid and
// publishes nothing, so the broker stays optional in deployments without
// one.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.SugaredLogger
}

func NewPublisher(brokers []string, topic string, logger *zap.SugaredLogger) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, detail *orders.OrderDetail) error {
	if p == nil {
		return nil
	}

	evt := OrderPlaced{
		OrderID:       detail.Order.ID,
		OrderNumber:   detail.Order.OrderNumber,
		UserID:        detail.Order.UserID,
		SubtotalCents: detail.Order.SubtotalCents,
		DiscountCents: detail.Order.DiscountCents,
		ShippingCents: detail.Order.ShippingCents,
		TotalCents:    detail.Order.TotalCents,
		CouponCode:    detail.Order.CouponCode,
		ItemCount:     len(detail.Items),
		City:          detail.Order.Customer.City,
		PlacedAt:      detail.Order.CreatedAt,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderNumber),
		Value: payload,
	})
	if err != nil {
		metrics.OrderEventsPublished.WithLabelValues("error").Inc()
		return err
	}

	metrics.OrderEventsPublished.WithLabelValues("ok").Inc()
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
