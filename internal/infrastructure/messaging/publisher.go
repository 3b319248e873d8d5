package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
)

const (
	DriverLog      = "log"
	DriverRabbitMQ = "rabbitmq"
	DriverKafka    = "kafka"
)

var (
	ErrPublisherClosed = errors.New("messaging: publisher closed")
	ErrUnsupportedType = errors.New("messaging: unsupported driver")
	ErrCreatePublisher = errors.New("messaging: create publisher")
	ErrPublish         = errors.New("messaging: publish")
)

// Publisher delivers committed event records to a broker.
type Publisher interface {
	Publish(ctx context.Context, record domain.EventRecord) error
	Close() error
}

// Config selects and configures the broker.
type Config struct {
	Driver      string
	URL         string
	Exchange    string
	Brokers     []string
	TopicPrefix string
}

// New builds the publisher named by cfg.Driver. An empty driver logs events instead of sending them.
func New(cfg Config, logger *zap.Logger) (Publisher, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverLog:
		return NewLogPublisher(logger), nil
	case DriverRabbitMQ:
		return NewRabbitPublisher(cfg.URL, cfg.Exchange, logger)
	case DriverKafka:
		return NewKafkaPublisher(cfg.Brokers, cfg.TopicPrefix, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Driver)
	}
}

// Message is the broker-neutral form of an event record.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// FromRecord encodes record as a message keyed by aggregate id.
func FromRecord(record domain.EventRecord) (Message, error) {
	if record.ID == "" || record.Name == "" {
		return Message{}, fmt.Errorf("%w: incomplete event record", ErrPublish)
	}
	value, err := json.Marshal(record)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrPublish, err)
	}
	headers := map[string]string{
		"event_id":       record.ID,
		"event_name":     record.Name,
		"aggregate_kind": record.AggregateKind,
		"version":        strconv.FormatInt(record.Version, 10),
	}
	for k, v := range record.Metadata {
		if _, taken := headers[k]; !taken {
			headers[k] = v
		}
	}
	return Message{Key: record.AggregateID, Value: value, Headers: headers}, nil
}

// LogPublisher writes events to the log. It backs local runs without a broker.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, record domain.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.Info("event published",
		zap.String("event_id", record.ID),
		zap.String("event", record.Name),
		zap.String("aggregate_id", record.AggregateID),
		zap.Int64("version", record.Version),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
