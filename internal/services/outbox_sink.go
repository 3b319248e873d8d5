package services

import (
	"context"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/infrastructure/outbox"
	"github.com/fastygo/storefront/usecase"
)

// OutboxSink writes committed events to the durable outbox for the relay.
type OutboxSink struct {
	store *outbox.Store
}

func NewOutboxSink(store *outbox.Store) *OutboxSink {
	return &OutboxSink{store: store}
}

func (s *OutboxSink) Dispatch(ctx context.Context, records []domain.EventRecord) error {
	if s == nil || s.store == nil {
		return domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	items := make([]outbox.Item, 0, len(records))
	for _, record := range records {
		items = append(items, outbox.Item{Record: record})
	}
	return s.store.Enqueue(items...)
}

var _ usecase.EventSink = (*OutboxSink)(nil)
