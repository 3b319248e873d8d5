package subscription

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/usecase/aggregate"
)

const sweepPageSize = repository.MaxPageSize

// Codec persists subscriptions keyed by customer.
func Codec() aggregate.Codec[*domain.Subscription] {
	return aggregate.JSONCodec(domain.KindSubscription,
		(*domain.Subscription).CustomerID,
		(*domain.Subscription).Snapshot,
		domain.RestoreSubscription,
	)
}

type UseCase struct {
	subscriptions *aggregate.Repository[*domain.Subscription]
	plans         PlanCatalog
	logger        *zap.Logger
}

func New(subscriptions *aggregate.Repository[*domain.Subscription], plans PlanCatalog, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		subscriptions: subscriptions,
		plans:         plans,
		logger:        logger,
	}
}

type SubscribeInput struct {
	CustomerID    string
	PlanID        string
	AutoRenew     bool
	PaymentMethod string
}

func (uc *UseCase) Subscribe(ctx context.Context, in SubscribeInput) (*aggregate.Entry[*domain.Subscription], error) {
	if err := domain.NotEmpty("plan_id", in.PlanID); err != nil {
		return nil, err
	}
	plan, err := uc.plans.Get(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}
	sub, events, err := domain.NewSubscription(domain.NewSubscriptionParams{
		CustomerID:    in.CustomerID,
		Plan:          plan,
		AutoRenew:     in.AutoRenew,
		PaymentMethod: in.PaymentMethod,
	})
	if err != nil {
		return nil, err
	}
	entry, err := uc.subscriptions.Create(ctx, sub, events)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("subscription created",
		zap.String("subscription_id", sub.ID()),
		zap.String("plan_id", plan.ID()),
		zap.String("status", string(sub.Status())),
	)
	return entry, nil
}

func (uc *UseCase) Plans(ctx context.Context) ([]domain.Plan, error) {
	return uc.plans.List(ctx)
}

func (uc *UseCase) Get(ctx context.Context, id string) (*aggregate.Entry[*domain.Subscription], error) {
	entry, err := uc.subscriptions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Aggregate.IsDeleted() {
		return nil, domain.ErrAggregateNotFound
	}
	return entry, nil
}

func (uc *UseCase) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*domain.Subscription, error) {
	if err := domain.NotEmpty("customer_id", customerID); err != nil {
		return nil, err
	}
	return uc.subscriptions.List(ctx, repository.AggregateFilter{OwnerID: customerID, Limit: limit, Offset: offset})
}

// Renew re-reads the subscription's plan so price changes apply from the next period.
func (uc *UseCase) Renew(ctx context.Context, id string) (*aggregate.Entry[*domain.Subscription], error) {
	current, err := uc.subscriptions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	plan, err := uc.plans.Get(ctx, current.Aggregate.PlanID())
	if err != nil {
		return nil, err
	}
	return uc.subscriptions.Update(ctx, id, func(s *domain.Subscription) ([]domain.Event, error) {
		return s.Renew(plan)
	})
}

func (uc *UseCase) ConvertTrial(ctx context.Context, id string) (*aggregate.Entry[*domain.Subscription], error) {
	return uc.subscriptions.Update(ctx, id, (*domain.Subscription).ConvertTrial)
}

func (uc *UseCase) Suspend(ctx context.Context, id string) (*aggregate.Entry[*domain.Subscription], error) {
	return uc.subscriptions.Update(ctx, id, (*domain.Subscription).Suspend)
}

func (uc *UseCase) Activate(ctx context.Context, id string) (*aggregate.Entry[*domain.Subscription], error) {
	return uc.subscriptions.Update(ctx, id, (*domain.Subscription).Activate)
}

func (uc *UseCase) Cancel(ctx context.Context, id, reason string) (*aggregate.Entry[*domain.Subscription], error) {
	entry, err := uc.subscriptions.Update(ctx, id, func(s *domain.Subscription) ([]domain.Event, error) {
		return s.Cancel(reason)
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("subscription cancelled", zap.String("subscription_id", id))
	return entry, nil
}

func (uc *UseCase) SetAutoRenew(ctx context.Context, id string, enabled bool) (*aggregate.Entry[*domain.Subscription], error) {
	return uc.subscriptions.Update(ctx, id, func(s *domain.Subscription) ([]domain.Event, error) {
		return s.SetAutoRenew(enabled)
	})
}

func (uc *UseCase) Expire(ctx context.Context, id string, at time.Time) (*aggregate.Entry[*domain.Subscription], error) {
	return uc.subscriptions.Update(ctx, id, func(s *domain.Subscription) ([]domain.Event, error) {
		return s.MarkExpired(at)
	})
}

func (uc *UseCase) Delete(ctx context.Context, id string) error {
	_, err := uc.subscriptions.Update(ctx, id, (*domain.Subscription).Delete)
	return err
}

// SweepResult counts what a sweep did.
type SweepResult struct {
	Renewed int
	Expired int
	Failed  int
}

// Sweep handles every subscription whose period ended before at: active
// subscriptions with auto-renew are renewed, the rest are expired. Failures
// are logged and counted so one bad record does not stop the sweep.
func (uc *UseCase) Sweep(ctx context.Context, at time.Time) (SweepResult, error) {
	var result SweepResult
	for offset := 0; ; offset += sweepPageSize {
		page, err := uc.subscriptions.List(ctx, repository.AggregateFilter{Limit: sweepPageSize, Offset: offset})
		if err != nil {
			return result, err
		}
		for _, s := range page {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if s.Status().IsTerminal() || !s.IsDue(at) {
				continue
			}
			if s.AutoRenew() && s.Status() == domain.SubscriptionStatusActive {
				if _, err := uc.Renew(ctx, s.ID()); err != nil {
					uc.sweepFailed(s.ID(), "renew", err)
					result.Failed++
					continue
				}
				result.Renewed++
				continue
			}
			if _, err := uc.Expire(ctx, s.ID(), at); err != nil {
				uc.sweepFailed(s.ID(), "expire", err)
				result.Failed++
				continue
			}
			result.Expired++
		}
		if len(page) == 0 {
			return result, nil
		}
	}
}

func (uc *UseCase) sweepFailed(id, action string, err error) {
	level := uc.logger.Error
	if errors.Is(err, domain.ErrConcurrentModification) {
		level = uc.logger.Warn
	}
	level("subscription sweep step failed",
		zap.String("subscription_id", id),
		zap.String("action", action),
		zap.Error(err),
	)
}
