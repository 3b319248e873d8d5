package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
)

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redislib.StringCmd
}

type aggregateStore struct {
	client *redislib.Client
	prefix string
}

// NewAggregateStore creates a Redis-backed AggregateStore. Writes use
// WATCH/MULTI so a concurrent writer aborts the transaction.
func NewAggregateStore(client *redislib.Client, prefix string) repository.AggregateStore {
	if prefix == "" {
		prefix = "storefront:"
	}
	return &aggregateStore{client: client, prefix: prefix}
}

func (r *aggregateStore) Get(ctx context.Context, kind, id string) (*domain.Record, error) {
	return r.get(ctx, r.client, kind, id)
}

func (r *aggregateStore) List(ctx context.Context, filter repository.AggregateFilter) ([]domain.Record, error) {
	if filter.Kind == "" {
		return nil, domain.Invalid("kind", "kind is required")
	}
	limit := repository.PageLimit(filter.Limit)

	index := r.liveIndexKey(filter.Kind, filter.OwnerID)
	if filter.IncludeDeleted {
		index = r.indexKey(filter.Kind, filter.OwnerID)
	}
	ids, err := r.client.ZRange(ctx, index, int64(filter.Offset), int64(filter.Offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(filter.Kind, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]domain.Record, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var record domain.Record
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *aggregateStore) CompareAndSwap(ctx context.Context, record domain.Record, expected int64, events []domain.EventRecord) (repository.SaveOutcome, error) {
	if record.ID == "" || record.Kind == "" {
		return repository.SaveOutcome{}, domain.ErrInvalidPayload
	}

	key := r.key(record.Kind, record.ID)
	next := expected + 1
	record.Version = next

	payload, err := json.Marshal(record)
	if err != nil {
		return repository.SaveOutcome{}, err
	}
	encoded := make([]interface{}, 0, len(events))
	for _, event := range events {
		event.Version = next
		b, err := json.Marshal(event)
		if err != nil {
			return repository.SaveOutcome{}, err
		}
		encoded = append(encoded, b)
	}

	var outcome repository.SaveOutcome
	err = r.client.Watch(ctx, func(tx *redislib.Tx) error {
		current, err := r.get(ctx, tx, record.Kind, record.ID)
		var stored int64
		switch {
		case errors.Is(err, domain.ErrAggregateNotFound):
		case err != nil:
			return err
		default:
			stored = current.Version
		}
		if stored != expected {
			outcome = repository.Rejected(stored)
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			r.index(ctx, pipe, record, expected == 0)
			if len(encoded) > 0 {
				pipe.RPush(ctx, r.eventsKey(record.ID), encoded...)
			}
			return nil
		})
		if err != nil {
			return err
		}
		outcome = repository.Applied(next)
		return nil
	}, key)

	if errors.Is(err, redislib.TxFailedErr) {
		return repository.Rejected(expected), nil
	}
	if err != nil {
		return repository.SaveOutcome{}, fmt.Errorf("write aggregate %s/%s: %w", record.Kind, record.ID, err)
	}
	return outcome, nil
}

func (r *aggregateStore) Events(ctx context.Context, aggregateID string) ([]domain.EventRecord, error) {
	values, err := r.client.LRange(ctx, r.eventsKey(aggregateID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	records := make([]domain.EventRecord, 0, len(values))
	for _, value := range values {
		var record domain.EventRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *aggregateStore) get(ctx context.Context, cmd getter, kind, id string) (*domain.Record, error) {
	result, err := cmd.Get(ctx, r.key(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrAggregateNotFound
		}
		return nil, err
	}

	var record domain.Record
	if err := json.Unmarshal(result, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *aggregateStore) key(kind, id string) string {
	return fmt.Sprintf("%saggregate:%s:%s", r.prefix, kind, id)
}

// index keeps two sorted sets per kind and per owner: every record, and live
// records only. Deleted records leave the live sets so pages stay full.
func (r *aggregateStore) index(ctx context.Context, pipe redislib.Pipeliner, record domain.Record, created bool) {
	member := redislib.Z{Score: float64(record.CreatedAt.UnixMilli()), Member: record.ID}
	keys := []string{r.indexKey(record.Kind, "")}
	live := []string{r.liveIndexKey(record.Kind, "")}
	if record.OwnerID != "" {
		keys = append(keys, r.indexKey(record.Kind, record.OwnerID))
		live = append(live, r.liveIndexKey(record.Kind, record.OwnerID))
	}
	if created {
		for _, k := range keys {
			pipe.ZAdd(ctx, k, member)
		}
	}
	for _, k := range live {
		if record.Deleted {
			pipe.ZRem(ctx, k, record.ID)
		} else {
			pipe.ZAdd(ctx, k, member)
		}
	}
}

func (r *aggregateStore) indexKey(kind, owner string) string {
	if owner == "" {
		return fmt.Sprintf("%sindex:%s", r.prefix, kind)
	}
	return fmt.Sprintf("%sowner:%s:%s", r.prefix, kind, owner)
}

func (r *aggregateStore) liveIndexKey(kind, owner string) string {
	if owner == "" {
		return fmt.Sprintf("%slive:%s", r.prefix, kind)
	}
	return fmt.Sprintf("%slive-owner:%s:%s", r.prefix, kind, owner)
}

func (r *aggregateStore) eventsKey(id string) string {
	return fmt.Sprintf("%sevents:%s", r.prefix, id)
}
