package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RoutingKeyPaymentInitiated = "payment.initiated"
	RoutingKeyPaymentSucceeded = "payment.succeeded"
	RoutingKeyPaymentFailed    = "payment.failed"
	RoutingKeyPaymentCancelled = "payment.cancelled"
	RoutingKeyPaymentExpired   = "payment.expired"

	publisherAppID = "collections-engine"
)

// PaymentEvent is the audit payload emitted on every lifecycle transition.
// The activity sink is fire-and-forget; the engine never blocks on or
// branches on the publish result.
type PaymentEvent struct {
	TransactionID int64     `json:"transactionId"`
	Reference     string    `json:"reference"`
	InternalID    string    `json:"internalId"`
	CustomerID    int64     `json:"customerId"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failureReason,omitempty"`
	ReceiptCode   string    `json:"receiptCode,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, routingKey string, evt PaymentEvent) error
}

type RabbitMQEventPublisher struct {
	conn         *amqp.Connection
	exchangeName string
	logger       *slog.Logger
}

var _ EventPublisher = (*RabbitMQEventPublisher)(nil)

func NewRabbitMQEventPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (*RabbitMQEventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	tempCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary channel for exchange declaration: %w", err)
	}
	defer tempCh.Close()

	err = tempCh.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return &RabbitMQEventPublisher{
		conn:         conn,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQEventPublisher", "exchange", exchangeName),
	}, nil
}

func (p *RabbitMQEventPublisher) PublishPaymentEvent(ctx context.Context, routingKey string, evt PaymentEvent) error {
	logCtx := p.logger.With(
		slog.String("routingKey", routingKey),
		slog.String("reference", evt.Reference),
	)

	channel, err := p.conn.Channel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(evt)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	logCtx.DebugContext(ctx, "Publishing message", "bodySize", len(body))

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			AppId:        publisherAppID,
		},
	)

	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to RabbitMQ", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.InfoContext(ctx, "Successfully published message")
	return nil
}

// NoopPublisher stands in when no broker is configured. Audit events are
// logged and dropped.
type NoopPublisher struct {
	logger *slog.Logger
}

var _ EventPublisher = (*NoopPublisher)(nil)

func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger.With("component", "NoopPublisher")}
}

func (p *NoopPublisher) PublishPaymentEvent(ctx context.Context, routingKey string, evt PaymentEvent) error {
	p.logger.DebugContext(ctx, "Event publishing disabled, dropping event",
		slog.String("routingKey", routingKey), slog.String("reference", evt.Reference))
	return nil
}
