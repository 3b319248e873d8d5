package domain

// Outbox accumulates events produced by mutations until they are committed.
// Events keep the order in which they were appended.
type Outbox struct {
	events []Event
}

// Append adds events, skipping nil entries.
func (o *Outbox) Append(events ...Event) {
	for _, e := range events {
		if e != nil {
			o.events = append(o.events, e)
		}
	}
}

func (o *Outbox) Len() int {
	return len(o.events)
}

// Pending returns a copy of the queued events without clearing them.
func (o *Outbox) Pending() []Event {
	if len(o.events) == 0 {
		return nil
	}
	out := make([]Event, len(o.events))
	copy(out, o.events)
	return out
}

// Drain returns the queued events and clears the outbox. A second call returns nothing.
func (o *Outbox) Drain() []Event {
	out := o.events
	o.events = nil
	return out
}
