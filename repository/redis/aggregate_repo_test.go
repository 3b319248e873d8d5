package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
)

func newStore(t *testing.T) repository.AggregateStore {
	t.Helper()
	client := redislib.NewClient(&redislib.Options{Addr: miniredis.RunT(t).Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAggregateStore(client, "test:")
}

func record(id string, at time.Time) domain.Record {
	return domain.Record{
		ID:        id,
		Kind:      domain.KindPayment,
		OwnerID:   "order-1",
		Payload:   []byte(`{}`),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func ids(records []domain.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	outcome, err := store.CompareAndSwap(ctx, record("a", at), 0, []domain.EventRecord{{ID: "e1", Name: "payment.created"}})
	require.NoError(t, err)
	assert.Equal(t, repository.Applied(1), outcome)

	outcome, err = store.CompareAndSwap(ctx, record("a", at), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.Rejected(1), outcome)

	outcome, err = store.CompareAndSwap(ctx, record("a", at), 1, []domain.EventRecord{{ID: "e2", Name: "payment.processing"}})
	require.NoError(t, err)
	assert.Equal(t, repository.Applied(2), outcome)

	got, err := store.Get(ctx, domain.KindPayment, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)

	events, err := store.Events(ctx, "a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []int64{1, 2}, []int64{events[0].Version, events[1].Version})

	_, err = store.Get(ctx, domain.KindPayment, "missing")
	assert.ErrorIs(t, err, domain.ErrAggregateNotFound)
}

func TestList_PagesSkipDeletedRecords(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := store.CompareAndSwap(ctx, record(fmt.Sprintf("p%d", i), at.Add(time.Duration(i)*time.Minute)), 0, nil)
		require.NoError(t, err)
	}
	deleted := record("p0", at)
	deleted.Deleted = true
	outcome, err := store.CompareAndSwap(ctx, deleted, 1, nil)
	require.NoError(t, err)
	require.True(t, outcome.Saved)

	page, err := store.List(ctx, repository.AggregateFilter{Kind: domain.KindPayment, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids(page))

	page, err = store.List(ctx, repository.AggregateFilter{Kind: domain.KindPayment, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p4"}, ids(page))

	page, err = store.List(ctx, repository.AggregateFilter{Kind: domain.KindPayment, Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = store.List(ctx, repository.AggregateFilter{Kind: domain.KindPayment, OwnerID: "order-1", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(page))

	page, err = store.List(ctx, repository.AggregateFilter{Kind: domain.KindPayment, IncludeDeleted: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"p0", "p1", "p2", "p3", "p4"}, ids(page))
	assert.True(t, page[0].Deleted)
}
