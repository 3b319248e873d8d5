package promotion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/repository/memory"
	"github.com/fastygo/storefront/usecase/aggregate"
)

// flakyStore rejects the first n updates as if another writer got there first.
type flakyStore struct {
	*memory.AggregateStore
	mu        sync.Mutex
	conflicts int
}

func (s *flakyStore) CompareAndSwap(ctx context.Context, record domain.Record, expected int64, events []domain.EventRecord) (repository.SaveOutcome, error) {
	s.mu.Lock()
	if expected > 0 && s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return repository.Rejected(expected + 1), nil
	}
	s.mu.Unlock()
	return s.AggregateStore.CompareAndSwap(ctx, record, expected, events)
}

func liveWindow(t *testing.T) domain.SaleWindow {
	t.Helper()
	now := time.Now().UTC()
	window, err := domain.NewSaleWindow(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	return window
}

func createItem(t *testing.T, uc *UseCase, stock int) string {
	t.Helper()
	entry, err := uc.Create(context.Background(), CreateInput{
		SaleID:     "sale-1",
		ProductID:  "sku-1",
		SalePrice:  domain.MustMoney("9.99", "EUR"),
		StockLimit: stock,
		Window:     liveWindow(t),
	})
	require.NoError(t, err)
	return entry.Aggregate.ID()
}

func TestRecordSale_StockCeiling(t *testing.T) {
	ctx := context.Background()
	repo := aggregate.NewRepository[*domain.FlashSaleItem](memory.NewAggregateStore(), Codec(), nil)
	uc := New(repo, 1, nil)
	id := createItem(t, uc, 10)

	entry, err := uc.RecordSale(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Aggregate.RemainingStock())

	_, err = uc.RecordSale(ctx, id, 4)
	assert.ErrorIs(t, err, domain.ErrStockExceeded)

	got, err := uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Aggregate.SoldQuantity())
}

func TestRecordSale_RetriesLostRace(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{AggregateStore: memory.NewAggregateStore(), conflicts: 2}
	repo := aggregate.NewRepository[*domain.FlashSaleItem](store, Codec(), nil)

	uc := New(repo, 3, nil)
	id := createItem(t, uc, 10)
	entry, err := uc.RecordSale(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Aggregate.SoldQuantity())

	store.conflicts = 1
	noRetry := New(repo, 1, nil)
	_, err = noRetry.RecordSale(ctx, id, 1)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestRecordSale_ConcurrentBuyersNeverOversell(t *testing.T) {
	ctx := context.Background()
	repo := aggregate.NewRepository[*domain.FlashSaleItem](memory.NewAggregateStore(), Codec(), nil)
	uc := New(repo, 50, nil)
	id := createItem(t, uc, 5)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = uc.RecordSale(ctx, id, 1)
		}()
	}
	wg.Wait()

	got, err := uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Aggregate.SoldQuantity())
}

func TestUpdateLimits(t *testing.T) {
	ctx := context.Background()
	repo := aggregate.NewRepository[*domain.FlashSaleItem](memory.NewAggregateStore(), Codec(), nil)
	uc := New(repo, 1, nil)
	id := createItem(t, uc, 10)
	_, err := uc.RecordSale(ctx, id, 4)
	require.NoError(t, err)

	perCustomer := 2
	entry, err := uc.UpdateLimits(ctx, id, 8, &perCustomer)
	require.NoError(t, err)
	assert.Equal(t, 8, entry.Aggregate.StockLimit())
	assert.Equal(t, 2, entry.Aggregate.PerCustomerLimit())

	_, err = uc.UpdateLimits(ctx, id, 3, nil)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvariant))

	err = uc.Delete(ctx, id)
	assert.ErrorIs(t, err, domain.ErrDeletionNotAllowed)
}
