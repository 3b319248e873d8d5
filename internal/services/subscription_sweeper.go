package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/usecase/subscription"
)

// Sweeper is the part of the subscription use case the scheduler drives.
type Sweeper interface {
	Sweep(ctx context.Context, at time.Time) (subscription.SweepResult, error)
}

type SweepObserver interface {
	ObserveSweep(renewed, expired, failed int)
}

// SubscriptionSweeper periodically renews or expires subscriptions whose period ended.
type SubscriptionSweeper struct {
	sweeper  Sweeper
	observer SweepObserver
	logger   *zap.Logger
	cron     *cron.Cron
	interval time.Duration
}

func NewSubscriptionSweeper(sweeper Sweeper, observer SweepObserver, interval time.Duration, logger *zap.Logger) (*SubscriptionSweeper, error) {
	if interval < time.Second {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SubscriptionSweeper{
		sweeper:  sweeper,
		observer: observer,
		logger:   logger,
		interval: interval,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	schedule := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		if _, err := s.Run(ctx); err != nil {
			s.logger.Error("subscription sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Run performs one sweep at the current domain time.
func (s *SubscriptionSweeper) Run(ctx context.Context) (subscription.SweepResult, error) {
	result, err := s.sweeper.Sweep(ctx, domain.Now())
	if s.observer != nil {
		s.observer.ObserveSweep(result.Renewed, result.Expired, result.Failed)
	}
	if result.Renewed+result.Expired+result.Failed > 0 {
		s.logger.Info("subscription sweep finished",
			zap.Int("renewed", result.Renewed),
			zap.Int("expired", result.Expired),
			zap.Int("failed", result.Failed))
	}
	return result, err
}

func (s *SubscriptionSweeper) Start() {
	s.cron.Start()
	s.logger.Info("subscription sweeper started", zap.Duration("interval", s.interval))
}

func (s *SubscriptionSweeper) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
