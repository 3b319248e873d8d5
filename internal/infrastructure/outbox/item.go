package outbox

import (
	"time"

	"github.com/fastygo/storefront/domain"
)

// Item is an event record waiting to be published.
type Item struct {
	Record     domain.EventRecord `json:"record"`
	Attempts   int                `json:"attempts"`
	LastError  string             `json:"last_error,omitempty"`
	EnqueuedAt time.Time          `json:"enqueued_at"`

	key []byte
}

// ID is the id of the wrapped event.
func (i Item) ID() string { return i.Record.ID }

func (i *Item) normalize() {
	if i.EnqueuedAt.IsZero() {
		i.EnqueuedAt = time.Now().UTC()
	}
}
