package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Aggregate kinds persisted in the aggregates table.
const (
	KindPayment        = "payment"
	KindFlashSaleItem  = "flash_sale_item"
	KindLoyaltyAccount = "loyalty_account"
	KindSubscription   = "subscription"
)

// Aggregate is the contract every aggregate root satisfies.
type Aggregate interface {
	ID() string
	Kind() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	IsDeleted() bool
	Validate() error
}

// Record is the persisted form of an aggregate: an opaque payload plus the
// concurrency token the store compares on write.
type Record struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	OwnerID   string          `json:"owner_id,omitempty"`
	Version   int64           `json:"version"`
	Payload   json.RawMessage `json:"payload"`
	Deleted   bool            `json:"deleted"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var now = func() time.Time { return time.Now().UTC() }

// SetClock replaces the time source used by aggregates and returns a restore func.
func SetClock(fn func() time.Time) (restore func()) {
	prev := now
	now = func() time.Time { return fn().UTC() }
	return func() { now = prev }
}

// Now returns the current time of the domain clock.
func Now() time.Time {
	return now()
}

// Root holds identity, audit timestamps and the soft-delete marker.
type Root struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
	deleted   bool
	deletedAt *time.Time
}

// RootSnapshot is the serialized form of Root embedded in aggregate snapshots.
type RootSnapshot struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Deleted   bool       `json:"deleted,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func newRoot() Root {
	at := now()
	return Root{id: uuid.NewString(), createdAt: at, updatedAt: at}
}

func restoreRoot(s RootSnapshot) (Root, error) {
	if err := NotEmpty("id", s.ID); err != nil {
		return Root{}, err
	}
	if s.CreatedAt.IsZero() {
		return Root{}, Invalid("created_at", "created_at is required")
	}
	r := Root{
		id:        s.ID,
		createdAt: s.CreatedAt.UTC(),
		updatedAt: s.UpdatedAt.UTC(),
		deleted:   s.Deleted,
		deletedAt: utcPtr(s.DeletedAt),
	}
	return r, r.validate()
}

func (r Root) ID() string            { return r.id }
func (r Root) CreatedAt() time.Time  { return r.createdAt }
func (r Root) UpdatedAt() time.Time  { return r.updatedAt }
func (r Root) IsDeleted() bool       { return r.deleted }
func (r Root) DeletedAt() *time.Time { return copyTime(r.deletedAt) }

func (r Root) snapshot() RootSnapshot {
	return RootSnapshot{
		ID:        r.id,
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
		Deleted:   r.deleted,
		DeletedAt: copyTime(r.deletedAt),
	}
}

func (r Root) validate() error {
	if r.updatedAt.Before(r.createdAt) {
		return violation(ErrInvariantViolation, "updated_at precedes created_at")
	}
	if r.deleted != (r.deletedAt != nil) {
		return violation(ErrInvariantViolation, "deleted flag and deleted_at disagree")
	}
	return nil
}

func (r *Root) touch() time.Time {
	at := now()
	if at.Before(r.createdAt) {
		at = r.createdAt
	}
	r.updatedAt = at
	return at
}

func (r *Root) markDeleted() time.Time {
	at := r.touch()
	r.deleted = true
	r.deletedAt = &at
	return at
}

func (r Root) ensureActive() error {
	if r.deleted {
		return ErrAggregateDeleted
	}
	return nil
}

type validatable interface {
	Validate() error
}

// commit validates next and only then replaces *dst, so a failed mutation
// leaves the aggregate and the outbox untouched.
func commit[T any](dst *T, next T, events ...Event) ([]Event, error) {
	if v, ok := any(&next).(validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	*dst = next
	return events, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := t.UTC()
	return &c
}
