package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
)

// RabbitPublisher publishes to a durable topic exchange with the event name
// as routing key, so consumers can bind "payment.*" or "#.deleted".
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	exchange string
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewRabbitPublisher(url, exchange string, logger *zap.Logger) (*RabbitPublisher, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty amqp url", ErrCreatePublisher)
	}
	if exchange == "" {
		exchange = "storefront.events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreatePublisher, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrCreatePublisher, err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: declare exchange: %v", ErrCreatePublisher, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: enable confirms: %v", ErrCreatePublisher, err)
	}

	logger.Info("rabbitmq publisher started", zap.String("exchange", exchange))
	return &RabbitPublisher{
		conn:     conn,
		channel:  ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish waits for the broker confirm, so publishes are serialized.
func (p *RabbitPublisher) Publish(ctx context.Context, record domain.EventRecord) error {
	msg, err := FromRecord(record)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		record.Name,
		false,
		false,
		publishing(msg),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			return fmt.Errorf("%w: channel closed before confirm", ErrPublish)
		}
		if !confirm.Ack {
			return fmt.Errorf("%w: broker nacked %s", ErrPublish, record.ID)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.channel != nil {
		_ = p.channel.Close()
	}
	return p.conn.Close()
}

func publishing(msg Message) amqp.Publishing {
	headers := make(amqp.Table, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Headers["event_id"],
		Type:         msg.Headers["event_name"],
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         msg.Value,
	}
}
