package aggregate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/usecase"
)

const tracerName = "github.com/fastygo/storefront/usecase/aggregate"

// Save outcomes reported to the Observer.
const (
	OutcomeSaved    = "saved"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomeNoop     = "noop"
)

// Observer receives persistence measurements.
type Observer interface {
	ObserveSave(kind, outcome string, elapsed time.Duration)
	ObserveEvents(records []domain.EventRecord)
}

type options struct {
	sink     usecase.EventSink
	observer Observer
	tracer   trace.Tracer
	metadata func(ctx context.Context) map[string]string
}

type Option func(*options)

// WithSink delivers committed events to sink.
func WithSink(sink usecase.EventSink) Option {
	return func(o *options) { o.sink = sink }
}

func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithMetadata stamps every event record saved under ctx with fn(ctx).
func WithMetadata(fn func(ctx context.Context) map[string]string) Option {
	return func(o *options) { o.metadata = fn }
}

// Repository loads and saves one aggregate kind through an AggregateStore.
type Repository[T domain.Aggregate] struct {
	store  repository.AggregateStore
	codec  Codec[T]
	logger *zap.Logger
	opts   options
}

func NewRepository[T domain.Aggregate](store repository.AggregateStore, codec Codec[T], logger *zap.Logger, opts ...Option) *Repository[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{
		store:  store,
		codec:  codec,
		logger: logger.With(zap.String("aggregate_kind", codec.Kind)),
		opts:   o,
	}
}

// Kind returns the aggregate kind this repository persists.
func (r *Repository[T]) Kind() string {
	return r.codec.Kind
}

// Load reads an aggregate and the version it was stored at.
func (r *Repository[T]) Load(ctx context.Context, id string) (*Entry[T], error) {
	ctx, span := r.opts.tracer.Start(ctx, "aggregate.load", trace.WithAttributes(
		attribute.String("aggregate.kind", r.codec.Kind),
		attribute.String("aggregate.id", id),
	))
	defer span.End()

	record, err := r.store.Get(ctx, r.codec.Kind, id)
	if err != nil {
		if !errors.Is(err, domain.ErrAggregateNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "load failed")
		}
		return nil, err
	}
	agg, err := r.codec.Decode(record.Payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		r.logger.Error("stored aggregate failed to decode", zap.String("aggregate_id", id), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeInternal, "stored aggregate is corrupt", err)
	}
	span.SetAttributes(attribute.Int64("aggregate.version", record.Version))
	return &Entry[T]{Aggregate: agg, Version: record.Version}, nil
}

// Save writes the entry if nobody else wrote since it was loaded. Pending
// events are stored with the new version and then handed to the sink.
// A stale entry fails with domain.ErrConcurrentModification.
func (r *Repository[T]) Save(ctx context.Context, entry *Entry[T]) error {
	agg := entry.Aggregate
	ctx, span := r.opts.tracer.Start(ctx, "aggregate.save", trace.WithAttributes(
		attribute.String("aggregate.kind", r.codec.Kind),
		attribute.String("aggregate.id", agg.ID()),
		attribute.Int64("aggregate.expected_version", entry.Version),
	))
	defer span.End()
	start := time.Now()

	pending := entry.outbox.Pending()
	if entry.Version > 0 && len(pending) == 0 {
		r.observeSave(OutcomeNoop, start)
		return nil
	}

	if err := agg.Validate(); err != nil {
		return err
	}
	payload, err := r.codec.Encode(agg)
	if err != nil {
		r.observeSave(OutcomeError, start)
		return fmt.Errorf("encode %s %s: %w", r.codec.Kind, agg.ID(), err)
	}

	var metadata map[string]string
	if r.opts.metadata != nil {
		metadata = r.opts.metadata(ctx)
	}
	next := entry.Version + 1
	records := make([]domain.EventRecord, 0, len(pending))
	for _, event := range pending {
		rec, err := domain.NewEventRecord(event, next)
		if err != nil {
			r.observeSave(OutcomeError, start)
			return err
		}
		if len(metadata) > 0 {
			rec.Metadata = maps.Clone(metadata)
		}
		records = append(records, rec)
	}

	record := domain.Record{
		ID:        agg.ID(),
		Kind:      r.codec.Kind,
		Payload:   payload,
		Deleted:   agg.IsDeleted(),
		CreatedAt: agg.CreatedAt(),
		UpdatedAt: agg.UpdatedAt(),
	}
	if r.codec.Owner != nil {
		record.OwnerID = r.codec.Owner(agg)
	}

	outcome, err := r.store.CompareAndSwap(ctx, record, entry.Version, records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store write failed")
		r.observeSave(OutcomeError, start)
		return fmt.Errorf("save %s %s: %w", r.codec.Kind, agg.ID(), err)
	}
	if !outcome.Saved {
		span.SetStatus(codes.Error, "version conflict")
		r.observeSave(OutcomeConflict, start)
		r.logger.Debug("version conflict",
			zap.String("aggregate_id", agg.ID()),
			zap.Int64("expected", entry.Version),
			zap.Int64("stored", outcome.Version),
		)
		return fmt.Errorf("%w: %s %s expected version %d, stored %d",
			domain.ErrConcurrentModification, r.codec.Kind, agg.ID(), entry.Version, outcome.Version)
	}

	entry.Version = outcome.Version
	entry.outbox.Drain()
	span.SetAttributes(attribute.Int64("aggregate.version", outcome.Version), attribute.Int("aggregate.events", len(records)))
	r.observeSave(OutcomeSaved, start)
	if r.opts.observer != nil {
		r.opts.observer.ObserveEvents(records)
	}

	if r.opts.sink != nil && len(records) > 0 {
		if err := r.opts.sink.Dispatch(ctx, records); err != nil {
			r.logger.Error("event dispatch failed after commit",
				zap.String("aggregate_id", agg.ID()),
				zap.Int64("version", outcome.Version),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Create saves a new aggregate together with its creation events.
func (r *Repository[T]) Create(ctx context.Context, agg T, events []domain.Event) (*Entry[T], error) {
	entry := NewEntry(agg, events)
	if err := r.Save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Update loads the aggregate, applies mutate and saves the result. A failed
// mutation leaves the store untouched.
func (r *Repository[T]) Update(ctx context.Context, id string, mutate func(T) ([]domain.Event, error)) (*Entry[T], error) {
	entry, err := r.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.Record(mutate(entry.Aggregate)); err != nil {
		return nil, err
	}
	if err := r.Save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns aggregates of this kind matching filter.
func (r *Repository[T]) List(ctx context.Context, filter repository.AggregateFilter) ([]T, error) {
	filter.Kind = r.codec.Kind
	records, err := r.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, record := range records {
		agg, err := r.codec.Decode(record.Payload)
		if err != nil {
			r.logger.Error("skipping undecodable aggregate", zap.String("aggregate_id", record.ID), zap.Error(err))
			continue
		}
		out = append(out, agg)
	}
	return out, nil
}

// History returns the stored events of an aggregate in commit order.
func (r *Repository[T]) History(ctx context.Context, id string) ([]domain.EventRecord, error) {
	if _, err := r.store.Get(ctx, r.codec.Kind, id); err != nil {
		return nil, err
	}
	return r.store.Events(ctx, id)
}

func (r *Repository[T]) observeSave(outcome string, start time.Time) {
	if r.opts.observer != nil {
		r.opts.observer.ObserveSave(r.codec.Kind, outcome, time.Since(start))
	}
}

// Retry runs fn up to attempts times while it fails with a concurrency
// conflict. Any other result is returned immediately.
func Retry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}
