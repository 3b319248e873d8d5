package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
)

// AggregateStore keeps records in process memory. It backs tests and the
// "memory" store driver.
type AggregateStore struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	events  map[string][]domain.EventRecord
}

// NewAggregateStore creates an empty in-memory store.
func NewAggregateStore() *AggregateStore {
	return &AggregateStore{
		records: make(map[string]domain.Record),
		events:  make(map[string][]domain.EventRecord),
	}
}

var _ repository.AggregateStore = (*AggregateStore)(nil)

func (s *AggregateStore) Get(_ context.Context, kind, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok || record.Kind != kind {
		return nil, domain.ErrAggregateNotFound
	}
	return cloneRecord(record), nil
}

func (s *AggregateStore) List(_ context.Context, filter repository.AggregateFilter) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Record, 0)
	for _, record := range s.records {
		if filter.Kind != "" && record.Kind != filter.Kind {
			continue
		}
		if filter.OwnerID != "" && record.OwnerID != filter.OwnerID {
			continue
		}
		if record.Deleted && !filter.IncludeDeleted {
			continue
		}
		matched = append(matched, *cloneRecord(record))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	limit := repository.PageLimit(filter.Limit)
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	end := filter.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func (s *AggregateStore) CompareAndSwap(_ context.Context, record domain.Record, expected int64, events []domain.EventRecord) (repository.SaveOutcome, error) {
	if record.ID == "" || record.Kind == "" {
		return repository.SaveOutcome{}, domain.ErrInvalidPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[record.ID]
	var stored int64
	if exists {
		stored = current.Version
	}
	if stored != expected {
		return repository.Rejected(stored), nil
	}

	next := expected + 1
	stamped := *cloneRecord(record)
	stamped.Version = next
	if exists {
		stamped.CreatedAt = current.CreatedAt
	}
	s.records[record.ID] = stamped

	for _, event := range events {
		event.Version = next
		event.Payload = append([]byte(nil), event.Payload...)
		s.events[record.ID] = append(s.events[record.ID], event)
	}
	return repository.Applied(next), nil
}

func (s *AggregateStore) Events(_ context.Context, aggregateID string) ([]domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.EventRecord, len(s.events[aggregateID]))
	copy(out, s.events[aggregateID])
	return out, nil
}

func cloneRecord(record domain.Record) *domain.Record {
	clone := record
	clone.Payload = append([]byte(nil), record.Payload...)
	return &clone
}
