package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/internal/infrastructure/messaging"
	"github.com/fastygo/storefront/internal/infrastructure/outbox"
)

// RelayConfig controls how frequently the outbox is drained.
type RelayConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// RelayObserver receives relay measurements.
type RelayObserver interface {
	ObservePublished(n int)
	ObservePublishFailure()
	ObserveDropped()
	SetBacklog(n int)
}

// OutboxRelay publishes outbox items in enqueue order.
type OutboxRelay struct {
	store     *outbox.Store
	publisher messaging.Publisher
	observer  RelayObserver
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       RelayConfig
}

func NewOutboxRelay(
	store *outbox.Store,
	publisher messaging.Publisher,
	observer RelayObserver,
	logger *zap.Logger,
	cfg RelayConfig,
) (*OutboxRelay, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &OutboxRelay{
		store:     store,
		publisher: publisher,
		observer:  observer,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	if _, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := r.Drain(ctx); err != nil {
			r.logger.Error("outbox drain failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}

	if cfg.Retention > 0 {
		if _, err := r.cron.AddFunc("@every 1h", r.cleanup); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Start launches the cron scheduler.
func (r *OutboxRelay) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("outbox relay started", zap.Duration("interval", r.cfg.Interval))
}

// Stop waits for a running drain to finish or ctx to expire.
func (r *OutboxRelay) Stop(ctx context.Context) error {
	if r == nil || r.cron == nil {
		return nil
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.logger.Info("outbox relay stopped")
	return nil
}

// Drain publishes one batch and returns how many items were delivered. It
// stops at the first failure so later events never overtake earlier ones;
// an item that reaches the retry limit is dropped and the drain moves on.
func (r *OutboxRelay) Drain(ctx context.Context) (int, error) {
	if r == nil || r.store == nil {
		return 0, nil
	}
	defer r.reportBacklog()

	items, err := r.store.GetBatch(r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	defer func() {
		if r.observer != nil && published > 0 {
			r.observer.ObservePublished(published)
		}
	}()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if err := r.publisher.Publish(ctx, item.Record); err != nil {
			if r.observer != nil {
				r.observer.ObservePublishFailure()
			}
			item, reqErr := r.store.Requeue(item, err)
			if reqErr != nil {
				return published, fmt.Errorf("requeue %s: %w", item.ID(), reqErr)
			}
			if item.Attempts < r.cfg.MaxRetries {
				r.logger.Warn("event publish failed, will retry",
					zap.String("event_id", item.ID()),
					zap.String("event", item.Record.Name),
					zap.Int("attempts", item.Attempts),
					zap.Error(err))
				return published, nil
			}

			r.logger.Error("dropping event (max retries reached)",
				zap.String("event_id", item.ID()),
				zap.String("event", item.Record.Name),
				zap.String("aggregate_id", item.Record.AggregateID),
				zap.Error(err))
			if err := r.store.Remove(item); err != nil {
				return published, err
			}
			if r.observer != nil {
				r.observer.ObserveDropped()
			}
			continue
		}

		if err := r.store.Remove(item); err != nil {
			r.logger.Warn("failed to purge published outbox item", zap.String("event_id", item.ID()), zap.Error(err))
			return published, err
		}
		published++
	}
	return published, nil
}

// Size returns the number of queued items.
func (r *OutboxRelay) Size() int {
	if r == nil || r.store == nil {
		return 0
	}
	size, err := r.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (r *OutboxRelay) reportBacklog() {
	if r.observer != nil {
		r.observer.SetBacklog(r.Size())
	}
}

func (r *OutboxRelay) cleanup() {
	removed, err := r.store.Cleanup(time.Now().Add(-r.cfg.Retention))
	if err != nil {
		r.logger.Error("outbox cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		r.logger.Warn("expired outbox items removed", zap.Int("count", removed))
	}
}
