package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository/memory"
	"github.com/fastygo/storefront/usecase"
	"github.com/fastygo/storefront/usecase/aggregate"
)

func newUseCase(t *testing.T) (*UseCase, *[]string) {
	t.Helper()
	var delivered []string
	dispatcher := usecase.NewDispatcher(nil)
	dispatcher.Subscribe(usecase.AllEvents, func(_ context.Context, r domain.EventRecord) error {
		delivered = append(delivered, r.Name)
		return nil
	})
	repo := aggregate.NewRepository(memory.NewAggregateStore(), Codec(), nil, aggregate.WithSink(dispatcher))
	return New(repo, nil), &delivered
}

func create(t *testing.T, uc *UseCase) string {
	t.Helper()
	entry, err := uc.Create(context.Background(), CreateInput{
		OrderID:  "order-9",
		Method:   "card",
		Provider: "adyen",
		Amount:   domain.MustMoney("150.00", "USD"),
	})
	require.NoError(t, err)
	return entry.Aggregate.ID()
}

func TestUseCase_Lifecycle(t *testing.T) {
	ctx := context.Background()
	uc, delivered := newUseCase(t)
	id := create(t, uc)

	_, err := uc.Process(ctx, id)
	require.NoError(t, err)
	entry, err := uc.Complete(ctx, id, "tx-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), entry.Version)
	assert.Equal(t, domain.PaymentStatusCompleted, entry.Aggregate.Status())

	_, err = uc.Complete(ctx, id, "tx-2", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	entry, err = uc.PartiallyRefund(ctx, id, domain.MustMoney("50.00", "USD"))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, entry.Aggregate.Status())

	entry, err = uc.Refund(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, entry.Aggregate.Status())

	assert.Equal(t, []string{
		"payment.created",
		"payment.processing",
		"payment.completed",
		"payment.refunded",
		"payment.refunded",
	}, *delivered)

	history, err := uc.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 5)

	require.NoError(t, uc.Delete(ctx, id))
	_, err = uc.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrAggregateNotFound)
}

func TestUseCase_UpdateDetailsIsOneVersion(t *testing.T) {
	ctx := context.Background()
	uc, delivered := newUseCase(t)
	id := create(t, uc)

	entry, err := uc.UpdateDetails(ctx, id, UpdateDetails{
		TransactionID: "tx-7",
		Reference:     "ref-7",
		Metadata:      map[string]string{"channel": "app"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Version)
	assert.Equal(t, "tx-7", entry.Aggregate.TransactionID())
	assert.Equal(t, domain.PaymentStatusPending, entry.Aggregate.Status())
	assert.Len(t, *delivered, 4)
}

func TestUseCase_CreateValidation(t *testing.T) {
	uc, delivered := newUseCase(t)
	_, err := uc.Create(context.Background(), CreateInput{OrderID: "o", Method: "card", Provider: "x"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	assert.Empty(t, *delivered)
}

func TestUseCase_ListByOrder(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t)
	create(t, uc)
	create(t, uc)

	payments, err := uc.ListByOrder(ctx, "order-9", 10, 0)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	_, err = uc.ListByOrder(ctx, "", 10, 0)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}
