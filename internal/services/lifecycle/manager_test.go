package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestManager_ShutdownOrder(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	m.Register("http", func(context.Context) error {
		order = append(order, "http")
		return nil
	})
	m.Register("relay", func(context.Context) error {
		order = append(order, "relay")
		return errors.New("relay stuck")
	})
	c := &closer{}
	m.RegisterCloser("outbox", c)
	m.Register("ignored", nil)

	assert.Equal(t, []string{"outbox", "relay", "http"}, m.Components())

	err := m.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay stuck")
	assert.Equal(t, []string{"relay", "http"}, order)
	assert.True(t, c.closed)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, order, 2)
}

func TestManager_ShutdownDeadline(t *testing.T) {
	m := New(10*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
