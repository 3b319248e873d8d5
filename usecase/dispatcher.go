package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
)

// AllEvents subscribes a handler to every event name.
const AllEvents = "*"

// EventHandler reacts to a committed event. Handlers may type-switch on record.Event().
type EventHandler func(ctx context.Context, record domain.EventRecord) error

// Dispatcher delivers committed events to in-process subscribers, in the
// order the events were produced.
type Dispatcher struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[string][]EventHandler),
		logger:   logger,
	}
}

// Subscribe registers handler for an event name, or AllEvents.
func (d *Dispatcher) Subscribe(name string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], handler)
}

// Dispatch runs every matching handler for each record. A failing handler
// does not stop the others; the errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, records []domain.EventRecord) error {
	var errs []error
	for _, record := range records {
		for _, handler := range d.handlersFor(record.Name) {
			if err := handler(ctx, record); err != nil {
				d.logger.Error("event handler failed",
					zap.String("event", record.Name),
					zap.String("aggregate_id", record.AggregateID),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("handle %s: %w", record.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) handlersFor(name string) []EventHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	specific := d.handlers[name]
	wildcard := d.handlers[AllEvents]
	out := make([]EventHandler, 0, len(specific)+len(wildcard))
	out = append(out, specific...)
	return append(out, wildcard...)
}
