package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type queue struct {
	size int
	err  error
}

func (q queue) Size() (int, error) { return q.size, q.err }

func TestMonitor_Refresh(t *testing.T) {
	var redisDown atomic.Bool
	m := New(queue{size: 4}, 0, nil,
		HealthCheck{Name: "postgresql", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "redis", Check: func(context.Context) error {
			if redisDown.Load() {
				return errors.New("connection refused")
			}
			return nil
		}},
	)
	assert.False(t, m.IsOnline())

	m.refresh()
	assert.True(t, m.IsOnline())
	status := m.GetStatus()
	assert.Equal(t, 4, status.OutboxSize)
	assert.True(t, status.Outbox)

	redisDown.Store(true)
	m.refresh()
	assert.False(t, m.IsOnline())
	assert.False(t, m.GetStatus().Services["redis"])

	status.Services["redis"] = true
	assert.False(t, m.GetStatus().Services["redis"])
}

func TestMonitor_NoHealthChecks(t *testing.T) {
	m := New(queue{err: errors.New("closed")}, 0, nil)
	m.Start()
	defer m.Stop()

	assert.True(t, m.IsOnline())
	assert.False(t, m.GetStatus().Outbox)
	m.Stop()
}
