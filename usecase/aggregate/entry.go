package aggregate

import "github.com/fastygo/storefront/domain"

// Entry is an aggregate as loaded from the store: the value, the version it
// was read at, and the events produced since.
type Entry[T domain.Aggregate] struct {
	Aggregate T
	// Version is zero for aggregates that were never saved.
	Version int64
	outbox  domain.Outbox
}

// NewEntry wraps a freshly created aggregate and its creation events.
func NewEntry[T domain.Aggregate](agg T, events []domain.Event) *Entry[T] {
	entry := &Entry[T]{Aggregate: agg}
	entry.outbox.Append(events...)
	return entry
}

// Record queues the events of a mutation. It is meant to wrap the mutation
// call directly: entry.Record(entry.Aggregate.Process()).
func (e *Entry[T]) Record(events []domain.Event, err error) error {
	if err != nil {
		return err
	}
	e.outbox.Append(events...)
	return nil
}

// Pending returns the events not yet committed.
func (e *Entry[T]) Pending() []domain.Event {
	return e.outbox.Pending()
}
