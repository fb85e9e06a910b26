package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nileshop/backend/internal/domain"
	pkgkafka "github.com/nileshop/backend/pkg/kafka"
)

// Kafka topics for order domain events.
var (
	TopicOrderCreated       = pkgkafka.Topic("order", "created")
	TopicOrderPaid          = pkgkafka.Topic("order", "paid")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status-changed")
)

const (
	// AggregateTypeOrder tags every order event envelope.
	AggregateTypeOrder = "order"

	// Source identifies events originating from this service.
	Source = "nileshop-backend"
)

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	Total     int64  `json:"total"`
	Currency  string `json:"currency"`
	ItemCount int    `json:"item_count"`
}

// OrderPaidData is the payload for an order.paid event.
type OrderPaidData struct {
	OrderID  string `json:"order_id"`
	UserID   string `json:"user_id"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

// OrderStatusChangedData is the payload for an order.status-changed event.
type OrderStatusChangedData struct {
	OrderID    string `json:"order_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// Producer publishes order domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer for order events.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Currency:  order.Currency,
		ItemCount: len(order.Items),
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
	)

	return nil
}

// PublishOrderPaid publishes an order.paid event.
func (p *Producer) PublishOrderPaid(ctx context.Context, order *domain.Order) error {
	data := OrderPaidData{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Total:    order.Total,
		Currency: order.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicOrderPaid, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.paid event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderPaid, event); err != nil {
		return fmt.Errorf("publish order.paid event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.paid event",
		slog.String("order_id", order.ID),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status-changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, from, to string) error {
	data := OrderStatusChangedData{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
	}

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, orderID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.status-changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status-changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status-changed event",
		slog.String("order_id", orderID),
		slog.String("from", from),
		slog.String("to", to),
	)

	return nil
}
