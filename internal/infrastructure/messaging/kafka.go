package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
)

// KafkaPublisher sends each event to a topic per aggregate kind, keyed by
// aggregate id so one aggregate's events stay on one partition.
type KafkaPublisher struct {
	producer    sarama.SyncProducer
	topicPrefix string
	logger      *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher connects an idempotent synchronous producer.
func NewKafkaPublisher(brokers []string, topicPrefix string, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("%w: no kafka brokers configured", ErrCreatePublisher)
	}

	config := sarama.NewConfig()
	config.Version = sarama.V3_8_0_0
	config.ClientID = "storefront"
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, errors.Join(ErrCreatePublisher, err)
	}
	p := newKafkaPublisher(producer, topicPrefix, logger)
	p.logger.Info("kafka publisher started", zap.Strings("brokers", brokers))
	return p, nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topicPrefix string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topicPrefix == "" {
		topicPrefix = "storefront"
	}
	return &KafkaPublisher{producer: producer, topicPrefix: topicPrefix, logger: logger}
}

// Topic returns the topic events of the given aggregate kind go to.
func (p *KafkaPublisher) Topic(kind string) string {
	return p.topicPrefix + "." + kind
}

func (p *KafkaPublisher) Publish(ctx context.Context, record domain.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	msg, err := FromRecord(record)
	if err != nil {
		return err
	}
	out := &sarama.ProducerMessage{
		Topic:     p.Topic(record.AggregateKind),
		Key:       sarama.StringEncoder(msg.Key),
		Value:     sarama.ByteEncoder(msg.Value),
		Timestamp: time.Now(),
	}
	for k, v := range msg.Headers {
		out.Headers = append(out.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	partition, offset, err := p.producer.SendMessage(out)
	if err != nil {
		return errors.Join(ErrPublish, err)
	}
	p.logger.Debug("event sent to kafka",
		zap.String("topic", out.Topic),
		zap.String("event_id", record.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
