package loyalty

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/usecase/aggregate"
)

// Codec persists loyalty accounts keyed by customer.
func Codec() aggregate.Codec[*domain.LoyaltyAccount] {
	return aggregate.JSONCodec(domain.KindLoyaltyAccount,
		(*domain.LoyaltyAccount).CustomerID,
		(*domain.LoyaltyAccount).Snapshot,
		domain.RestoreLoyaltyAccount,
	)
}

type UseCase struct {
	accounts *aggregate.Repository[*domain.LoyaltyAccount]
	attempts int
	logger   *zap.Logger
}

func New(accounts *aggregate.Repository[*domain.LoyaltyAccount], conflictAttempts int, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conflictAttempts < 1 {
		conflictAttempts = 1
	}
	return &UseCase{
		accounts: accounts,
		attempts: conflictAttempts,
		logger:   logger,
	}
}

// Open creates an account for a customer who does not have one yet. The
// account id derives from the customer, so racing opens conflict on create.
func (uc *UseCase) Open(ctx context.Context, customerID string) (*aggregate.Entry[*domain.LoyaltyAccount], error) {
	existing, err := uc.accounts.List(ctx, repository.AggregateFilter{OwnerID: customerID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, domain.Invalid("customer_id", "customer %s already has a loyalty account", customerID)
	}

	account, events, err := domain.NewLoyaltyAccount(customerID)
	if err != nil {
		return nil, err
	}
	entry, err := uc.accounts.Create(ctx, account, events)
	if errors.Is(err, domain.ErrConcurrentModification) {
		return nil, domain.Invalid("customer_id", "customer %s already has a loyalty account", customerID)
	}
	if err != nil {
		return nil, err
	}
	uc.logger.Info("loyalty account opened", zap.String("account_id", account.ID()), zap.String("customer_id", customerID))
	return entry, nil
}

func (uc *UseCase) Get(ctx context.Context, id string) (*aggregate.Entry[*domain.LoyaltyAccount], error) {
	entry, err := uc.accounts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Aggregate.IsDeleted() {
		return nil, domain.ErrAggregateNotFound
	}
	return entry, nil
}

func (uc *UseCase) GetByCustomer(ctx context.Context, customerID string) (*domain.LoyaltyAccount, error) {
	accounts, err := uc.accounts.List(ctx, repository.AggregateFilter{OwnerID: customerID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrAggregateNotFound
	}
	return accounts[0], nil
}

func (uc *UseCase) AddPoints(ctx context.Context, id string, points int64, reason string) (*aggregate.Entry[*domain.LoyaltyAccount], error) {
	return uc.update(ctx, id, func(a *domain.LoyaltyAccount) ([]domain.Event, error) {
		return a.AddPoints(points, reason)
	})
}

func (uc *UseCase) DeductPoints(ctx context.Context, id string, points int64, reason string) (*aggregate.Entry[*domain.LoyaltyAccount], error) {
	return uc.update(ctx, id, func(a *domain.LoyaltyAccount) ([]domain.Event, error) {
		return a.DeductPoints(points, reason)
	})
}

func (uc *UseCase) AssignTier(ctx context.Context, id, tierID string, expiresAt *time.Time) (*aggregate.Entry[*domain.LoyaltyAccount], error) {
	return uc.update(ctx, id, func(a *domain.LoyaltyAccount) ([]domain.Event, error) {
		return a.AssignTier(tierID, expiresAt)
	})
}

func (uc *UseCase) ClearTier(ctx context.Context, id string) (*aggregate.Entry[*domain.LoyaltyAccount], error) {
	return uc.update(ctx, id, (*domain.LoyaltyAccount).ClearTier)
}

func (uc *UseCase) Delete(ctx context.Context, id string) error {
	_, err := uc.accounts.Update(ctx, id, (*domain.LoyaltyAccount).Delete)
	return err
}

func (uc *UseCase) update(ctx context.Context, id string, mutate func(*domain.LoyaltyAccount) ([]domain.Event, error)) (*aggregate.Entry[*domain.LoyaltyAccount], error) {
	var entry *aggregate.Entry[*domain.LoyaltyAccount]
	err := aggregate.Retry(ctx, uc.attempts, func(ctx context.Context) error {
		var err error
		entry, err = uc.accounts.Update(ctx, id, mutate)
		return err
	})
	return entry, err
}
