package promotion

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/usecase/aggregate"
)

// Codec persists flash sale items keyed by sale.
func Codec() aggregate.Codec[*domain.FlashSaleItem] {
	return aggregate.JSONCodec(domain.KindFlashSaleItem,
		(*domain.FlashSaleItem).SaleID,
		(*domain.FlashSaleItem).Snapshot,
		domain.RestoreFlashSaleItem,
	)
}

type UseCase struct {
	items *aggregate.Repository[*domain.FlashSaleItem]
	// attempts bounds how often RecordSale reloads after losing a version race.
	attempts int
	logger   *zap.Logger
}

func New(items *aggregate.Repository[*domain.FlashSaleItem], conflictAttempts int, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conflictAttempts < 1 {
		conflictAttempts = 1
	}
	return &UseCase{
		items:    items,
		attempts: conflictAttempts,
		logger:   logger,
	}
}

type CreateInput struct {
	SaleID           string
	ProductID        string
	SalePrice        domain.Money
	OriginalPrice    *domain.Money
	StockLimit       int
	PerCustomerLimit int
	Window           domain.SaleWindow
}

func (uc *UseCase) Create(ctx context.Context, in CreateInput) (*aggregate.Entry[*domain.FlashSaleItem], error) {
	item, events, err := domain.NewFlashSaleItem(domain.NewFlashSaleItemParams(in))
	if err != nil {
		return nil, err
	}
	entry, err := uc.items.Create(ctx, item, events)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("flash sale item created",
		zap.String("item_id", item.ID()),
		zap.String("sale_id", in.SaleID),
		zap.Int("stock_limit", in.StockLimit),
	)
	return entry, nil
}

func (uc *UseCase) Get(ctx context.Context, id string) (*aggregate.Entry[*domain.FlashSaleItem], error) {
	entry, err := uc.items.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Aggregate.IsDeleted() {
		return nil, domain.ErrAggregateNotFound
	}
	return entry, nil
}

func (uc *UseCase) ListBySale(ctx context.Context, saleID string, limit, offset int) ([]*domain.FlashSaleItem, error) {
	if err := domain.NotEmpty("sale_id", saleID); err != nil {
		return nil, err
	}
	return uc.items.List(ctx, repository.AggregateFilter{OwnerID: saleID, Limit: limit, Offset: offset})
}

// RecordSale reserves quantity units. Lost version races are retried up to the
// configured number of attempts; business rejections are returned as is.
func (uc *UseCase) RecordSale(ctx context.Context, id string, quantity int) (*aggregate.Entry[*domain.FlashSaleItem], error) {
	var entry *aggregate.Entry[*domain.FlashSaleItem]
	err := aggregate.Retry(ctx, uc.attempts, func(ctx context.Context) error {
		var err error
		entry, err = uc.items.Update(ctx, id, func(item *domain.FlashSaleItem) ([]domain.Event, error) {
			return item.RecordSale(quantity)
		})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrStockExceeded) {
			uc.logger.Info("flash sale sold out", zap.String("item_id", id), zap.Int("quantity", quantity))
		}
		return nil, err
	}
	return entry, nil
}

func (uc *UseCase) ChangePrice(ctx context.Context, id string, price domain.Money) (*aggregate.Entry[*domain.FlashSaleItem], error) {
	return uc.items.Update(ctx, id, func(item *domain.FlashSaleItem) ([]domain.Event, error) {
		return item.ChangePrice(price)
	})
}

// UpdateLimits changes the stock ceiling and, when set, the per-customer limit.
func (uc *UseCase) UpdateLimits(ctx context.Context, id string, stockLimit int, perCustomerLimit *int) (*aggregate.Entry[*domain.FlashSaleItem], error) {
	return uc.items.Update(ctx, id, func(item *domain.FlashSaleItem) ([]domain.Event, error) {
		events, err := item.UpdateStockLimit(stockLimit)
		if err != nil || perCustomerLimit == nil {
			return events, err
		}
		more, err := item.SetPerCustomerLimit(*perCustomerLimit)
		if err != nil {
			return nil, err
		}
		return append(events, more...), nil
	})
}

func (uc *UseCase) Delete(ctx context.Context, id string) error {
	_, err := uc.items.Update(ctx, id, (*domain.FlashSaleItem).Delete)
	return err
}
