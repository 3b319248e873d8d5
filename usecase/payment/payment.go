package payment

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/usecase/aggregate"
)

// Codec persists payments as JSON snapshots keyed by order.
func Codec() aggregate.Codec[*domain.Payment] {
	return aggregate.JSONCodec(domain.KindPayment,
		(*domain.Payment).OrderID,
		(*domain.Payment).Snapshot,
		domain.RestorePayment,
	)
}

type UseCase struct {
	payments *aggregate.Repository[*domain.Payment]
	logger   *zap.Logger
}

func New(payments *aggregate.Repository[*domain.Payment], logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		payments: payments,
		logger:   logger,
	}
}

type CreateInput struct {
	OrderID  string
	Method   string
	Provider string
	Amount   domain.Money
}

func (uc *UseCase) Create(ctx context.Context, in CreateInput) (*aggregate.Entry[*domain.Payment], error) {
	p, events, err := domain.NewPayment(domain.NewPaymentParams{
		OrderID:  in.OrderID,
		Method:   in.Method,
		Provider: in.Provider,
		Amount:   in.Amount,
	})
	if err != nil {
		return nil, err
	}
	entry, err := uc.payments.Create(ctx, p, events)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("payment created", zap.String("payment_id", p.ID()), zap.String("order_id", in.OrderID))
	return entry, nil
}

// Get hides soft-deleted payments.
func (uc *UseCase) Get(ctx context.Context, id string) (*aggregate.Entry[*domain.Payment], error) {
	entry, err := uc.payments.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Aggregate.IsDeleted() {
		return nil, domain.ErrAggregateNotFound
	}
	return entry, nil
}

func (uc *UseCase) ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]*domain.Payment, error) {
	if err := domain.NotEmpty("order_id", orderID); err != nil {
		return nil, err
	}
	return uc.payments.List(ctx, repository.AggregateFilter{OwnerID: orderID, Limit: limit, Offset: offset})
}

func (uc *UseCase) History(ctx context.Context, id string) ([]domain.EventRecord, error) {
	return uc.payments.History(ctx, id)
}

func (uc *UseCase) Process(ctx context.Context, id string) (*aggregate.Entry[*domain.Payment], error) {
	return uc.payments.Update(ctx, id, (*domain.Payment).Process)
}

func (uc *UseCase) Complete(ctx context.Context, id, transactionID, reference string) (*aggregate.Entry[*domain.Payment], error) {
	entry, err := uc.payments.Update(ctx, id, func(p *domain.Payment) ([]domain.Event, error) {
		return p.Complete(transactionID, reference)
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("payment completed", zap.String("payment_id", id), zap.String("transaction_id", transactionID))
	return entry, nil
}

func (uc *UseCase) Fail(ctx context.Context, id, reason string) (*aggregate.Entry[*domain.Payment], error) {
	entry, err := uc.payments.Update(ctx, id, func(p *domain.Payment) ([]domain.Event, error) {
		return p.Fail(reason)
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Warn("payment failed", zap.String("payment_id", id), zap.String("reason", reason))
	return entry, nil
}

func (uc *UseCase) Cancel(ctx context.Context, id, reason string) (*aggregate.Entry[*domain.Payment], error) {
	return uc.payments.Update(ctx, id, func(p *domain.Payment) ([]domain.Event, error) {
		return p.Cancel(reason)
	})
}

func (uc *UseCase) Refund(ctx context.Context, id string) (*aggregate.Entry[*domain.Payment], error) {
	return uc.payments.Update(ctx, id, (*domain.Payment).Refund)
}

func (uc *UseCase) PartiallyRefund(ctx context.Context, id string, amount domain.Money) (*aggregate.Entry[*domain.Payment], error) {
	return uc.payments.Update(ctx, id, func(p *domain.Payment) ([]domain.Event, error) {
		return p.PartiallyRefund(amount)
	})
}

// UpdateDetails sets any of transaction id, reference and metadata; empty
// fields are left alone. All changes land in one version.
type UpdateDetails struct {
	TransactionID string
	Reference     string
	Metadata      map[string]string
}

func (uc *UseCase) UpdateDetails(ctx context.Context, id string, in UpdateDetails) (*aggregate.Entry[*domain.Payment], error) {
	return uc.payments.Update(ctx, id, func(p *domain.Payment) ([]domain.Event, error) {
		var all []domain.Event
		if in.TransactionID != "" {
			events, err := p.SetTransactionID(in.TransactionID)
			if err != nil {
				return nil, err
			}
			all = append(all, events...)
		}
		if in.Reference != "" {
			events, err := p.SetPaymentReference(in.Reference)
			if err != nil {
				return nil, err
			}
			all = append(all, events...)
		}
		if in.Metadata != nil {
			events, err := p.SetMetadata(in.Metadata)
			if err != nil {
				return nil, err
			}
			all = append(all, events...)
		}
		return all, nil
	})
}

func (uc *UseCase) Delete(ctx context.Context, id string) error {
	_, err := uc.payments.Update(ctx, id, (*domain.Payment).Delete)
	return err
}
