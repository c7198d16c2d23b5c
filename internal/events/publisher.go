package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"bakery-storefront/internal/domain"
)

// DefaultExchange receives order outcome events
const DefaultExchange = "storefront.orders"

// OrderEvent is the message body published for every terminal checkout
type OrderEvent struct {
	Type      string             `json:"type"`
	OrderID   string             `json:"orderId"`
	RemoteID  int64              `json:"remoteId,omitempty"`
	Code      string             `json:"codigo"`
	Number    string             `json:"nro"`
	Status    domain.OrderStatus `json:"estado"`
	Reason    string             `json:"error,omitempty"`
	Email     string             `json:"correo"`
	Total     int64              `json:"total"`
	Items     int                `json:"items"`
	Timestamp time.Time          `json:"fecha"`
}

// RoutingKey returns the key an order is published under, e.g. "order.paid"
func RoutingKey(status domain.OrderStatus) string {
	return "order." + string(status)
}

// NewOrderEvent summarizes o for subscribers
func NewOrderEvent(o *domain.Order) OrderEvent {
	units := 0
	for _, item := range o.Items {
		units += item.Quantity
	}
	return OrderEvent{
		Type:      RoutingKey(o.Status),
		OrderID:   o.ID,
		RemoteID:  o.RemoteID,
		Code:      o.Code,
		Number:    o.Number,
		Status:    o.Status,
		Reason:    o.FailureReason,
		Email:     o.Customer.Email,
		Total:     o.Total,
		Items:     units,
		Timestamp: o.Timestamp,
	}
}

// channel is the subset of *amqp.Channel the publisher needs
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends order outcomes to a RabbitMQ topic exchange
type Publisher struct {
	conn     *amqp.Connection
	exchange string
	logger   *zap.Logger

	mu sync.Mutex
	ch channel
}

// NewRabbitMQPublisher dials url and declares the durable topic exchange
func NewRabbitMQPublisher(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	p, err := newPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, logger *zap.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PublishOrder publishes a persistent JSON event for a paid or failed order.
// Pending orders are not published.
func (p *Publisher) PublishOrder(ctx context.Context, o *domain.Order) error {
	if o == nil || !o.Status.IsTerminal() {
		return nil
	}

	event := NewOrderEvent(o)
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		MessageId:    o.ID,
		Type:         event.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.logger.Debug("Order event published",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", event.Type),
		zap.String("code", o.Code),
	)
	return nil
}

// Close closes the channel and the connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NoopPublisher discards events. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrder(context.Context, *domain.Order) error { return nil }

func (NoopPublisher) Close() error { return nil }
