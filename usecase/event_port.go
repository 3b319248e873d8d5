package usecase

import (
	"context"
	"errors"

	"github.com/fastygo/storefront/domain"
)

// EventSink receives events after the aggregate that produced them was committed.
type EventSink interface {
	Dispatch(ctx context.Context, records []domain.EventRecord) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, records []domain.EventRecord) error

func (f EventSinkFunc) Dispatch(ctx context.Context, records []domain.EventRecord) error {
	return f(ctx, records)
}

// Sinks fans a batch out to every sink in order and joins their errors.
type Sinks []EventSink

func (s Sinks) Dispatch(ctx context.Context, records []domain.EventRecord) error {
	var errs []error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Dispatch(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
