package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/storefront/domain"
)

func sampleRecord() domain.EventRecord {
	return domain.EventRecord{
		ID:            "evt-1",
		AggregateID:   "pay-1",
		AggregateKind: domain.KindPayment,
		Name:          "payment.completed",
		Version:       3,
		Payload:       json.RawMessage(`{"transaction_id":"tx-1"}`),
		Metadata:      map[string]string{"request_id": "req-9", "event_id": "spoofed"},
	}
}

func TestFromRecord(t *testing.T) {
	msg, err := FromRecord(sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, "pay-1", msg.Key)
	assert.Equal(t, "evt-1", msg.Headers["event_id"])
	assert.Equal(t, "payment.completed", msg.Headers["event_name"])
	assert.Equal(t, "3", msg.Headers["version"])
	assert.Equal(t, "req-9", msg.Headers["request_id"])

	var decoded domain.EventRecord
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, int64(3), decoded.Version)
	assert.JSONEq(t, `{"transaction_id":"tx-1"}`, string(decoded.Payload))

	_, err = FromRecord(domain.EventRecord{})
	assert.ErrorIs(t, err, ErrPublish)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var record domain.EventRecord
		if err := json.Unmarshal(val, &record); err != nil {
			return err
		}
		if record.ID != "evt-1" {
			return errors.New("unexpected event id " + record.ID)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newKafkaPublisher(producer, "shop", nil)
	assert.Equal(t, "shop.payment", p.Topic(domain.KindPayment))

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, sampleRecord()))

	err := p.Publish(ctx, sampleRecord())
	assert.ErrorIs(t, err, ErrPublish)

	require.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(ctx, sampleRecord()), ErrPublisherClosed)
}

func TestKafkaPublisher_CancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	p := newKafkaPublisher(producer, "", nil)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, sampleRecord()), context.Canceled)
}

func TestNew(t *testing.T) {
	p, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), sampleRecord()))

	_, err = New(Config{Driver: "nats"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = New(Config{Driver: DriverKafka}, nil)
	assert.ErrorIs(t, err, ErrCreatePublisher)

	_, err = New(Config{Driver: DriverRabbitMQ}, nil)
	assert.ErrorIs(t, err, ErrCreatePublisher)
}

func TestPublishing(t *testing.T) {
	msg, err := FromRecord(sampleRecord())
	require.NoError(t, err)
	out := publishing(msg)
	assert.Equal(t, "evt-1", out.MessageId)
	assert.Equal(t, "payment.completed", out.Type)
	assert.Equal(t, "application/json", out.ContentType)
	assert.Equal(t, "3", out.Headers["version"])
}
