package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fastygo/storefront/domain"
)

func TestDispatcher_RoutesByName(t *testing.T) {
	d := NewDispatcher(nil)
	var got []string

	d.Subscribe("payment.completed", func(_ context.Context, r domain.EventRecord) error {
		got = append(got, "completed:"+r.AggregateID)
		return nil
	})
	d.Subscribe(AllEvents, func(_ context.Context, r domain.EventRecord) error {
		got = append(got, "all:"+r.Name)
		return nil
	})

	err := d.Dispatch(context.Background(), []domain.EventRecord{
		{Name: "payment.processing", AggregateID: "p1"},
		{Name: "payment.completed", AggregateID: "p1"},
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"all:payment.processing", "completed:p1", "all:payment.completed"}, got)
}

func TestDispatcher_JoinsHandlerErrors(t *testing.T) {
	d := NewDispatcher(nil)
	boom := errors.New("boom")
	calls := 0

	d.Subscribe(AllEvents, func(context.Context, domain.EventRecord) error { return boom })
	d.Subscribe(AllEvents, func(context.Context, domain.EventRecord) error {
		calls++
		return nil
	})

	err := d.Dispatch(context.Background(), []domain.EventRecord{{Name: "x"}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestSinks_FanOut(t *testing.T) {
	var first, second int
	sinks := Sinks{
		EventSinkFunc(func(_ context.Context, r []domain.EventRecord) error { first += len(r); return nil }),
		nil,
		EventSinkFunc(func(_ context.Context, r []domain.EventRecord) error { second += len(r); return errors.New("down") }),
	}

	err := sinks.Dispatch(context.Background(), []domain.EventRecord{{Name: "a"}, {Name: "b"}})
	assert.Error(t, err)
	assert.Equal(t, 2, first)
	assert.Equal(t, 2, second)
}
