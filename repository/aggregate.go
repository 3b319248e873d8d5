package repository

import (
	"context"

	"github.com/fastygo/storefront/domain"
)

// MaxPageSize caps every List call. Larger or non-positive limits are clamped to it.
const MaxPageSize = 100

// PageLimit clamps a requested page size to (0, MaxPageSize].
func PageLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

type AggregateFilter struct {
	Kind           string
	OwnerID        string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// SaveOutcome reports whether a compare-and-swap write was applied.
// Version is the stored version after a successful write.
type SaveOutcome struct {
	Saved   bool
	Version int64
}

// Applied builds the outcome of a successful write.
func Applied(version int64) SaveOutcome {
	return SaveOutcome{Saved: true, Version: version}
}

// Rejected builds the outcome of a write whose expected version was stale.
func Rejected(current int64) SaveOutcome {
	return SaveOutcome{Saved: false, Version: current}
}

// AggregateStore persists aggregate records with optimistic concurrency.
//
// CompareAndSwap writes record and appends events atomically only if the stored
// version equals expected. An expected version of zero means the record must
// not exist yet. On success the stored version becomes expected+1; a stale
// expectation returns Saved=false and no error.
type AggregateStore interface {
	Get(ctx context.Context, kind, id string) (*domain.Record, error)
	List(ctx context.Context, filter AggregateFilter) ([]domain.Record, error)
	CompareAndSwap(ctx context.Context, record domain.Record, expected int64, events []domain.EventRecord) (SaveOutcome, error)
	Events(ctx context.Context, aggregateID string) ([]domain.EventRecord, error)
}

// PlanRepository reads the subscription plan catalog.
type PlanRepository interface {
	Get(ctx context.Context, id string) (domain.Plan, error)
	List(ctx context.Context) ([]domain.Plan, error)
	Save(ctx context.Context, plan domain.Plan) error
}
