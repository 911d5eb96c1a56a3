// Package messaging delivers relayed outbox events to RabbitMQ.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"stockledger/internal/domain/events"
	"stockledger/pkg/logger"
)

var _ events.Handler = (*Publisher)(nil)

// Config describes the broker connection.
type Config struct {
	URL      string
	Exchange string

	// ConfirmTimeout bounds the wait for a broker ack.
	ConfirmTimeout time.Duration
}

// Publisher publishes outbox messages to a durable topic exchange, using the
// event type as routing key. The connection is opened lazily and reopened after
// the broker drops it.
type Publisher struct {
	cfg Config

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher creates a publisher. No connection is made until the first Handle.
func NewPublisher(cfg Config) *Publisher {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 5 * time.Second
	}
	return &Publisher{cfg: cfg}
}

// Handle implements events.Handler. It returns only after the broker confirmed
// the message, so a relayed row is marked published only once it is durable.
func (p *Publisher) Handle(ctx context.Context, msg *events.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ConfirmTimeout)
	defer cancel()

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		p.cfg.Exchange, RoutingKey(msg), false, false, Publishing(msg))
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", msg.EventType, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm for %s: %w", msg.EventType, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %s %s", msg.EventType, msg.ID)
	}
	return nil
}

// Close shuts the channel and connection down.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil && !p.ch.IsClosed() {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	p.ch, p.conn = nil, nil
	return errors.Join(errs...)
}

// channel returns an open confirm-mode channel, dialing when needed. Caller holds mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", p.cfg.Exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	logger.Info(context.Background(), "amqp publisher connected", "exchange", p.cfg.Exchange)
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.conn != nil && !p.conn.IsClosed() {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// RoutingKey is the event type, e.g. "StockChanged".
func RoutingKey(msg *events.Message) string {
	return msg.EventType
}

// Publishing builds the persistent AMQP message for msg. The outbox id doubles
// as message id so consumers can deduplicate redeliveries.
func Publishing(msg *events.Message) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID.String(),
		Timestamp:    msg.CreatedAt,
		Type:         msg.EventType,
		Headers: amqp.Table{
			"aggregate_type": msg.AggregateType,
			"aggregate_id":   msg.AggregateID.String(),
		},
		Body: msg.Payload,
	}
}
