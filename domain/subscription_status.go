package domain

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

func SubscriptionStatuses() []SubscriptionStatus {
	return []SubscriptionStatus{
		SubscriptionStatusTrial,
		SubscriptionStatusActive,
		SubscriptionStatusSuspended,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	}
}

func (s SubscriptionStatus) String() string { return string(s) }

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusSuspended,
		SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports cancelled and expired.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// SubscriptionOperation names the commands that move a subscription between states.
type SubscriptionOperation string

const (
	SubscriptionOpConvert  SubscriptionOperation = "convert_trial"
	SubscriptionOpRenew    SubscriptionOperation = "renew"
	SubscriptionOpSuspend  SubscriptionOperation = "suspend"
	SubscriptionOpActivate SubscriptionOperation = "activate"
	SubscriptionOpCancel   SubscriptionOperation = "cancel"
	SubscriptionOpExpire   SubscriptionOperation = "expire"
)

func SubscriptionOperations() []SubscriptionOperation {
	return []SubscriptionOperation{
		SubscriptionOpConvert,
		SubscriptionOpRenew,
		SubscriptionOpSuspend,
		SubscriptionOpActivate,
		SubscriptionOpCancel,
		SubscriptionOpExpire,
	}
}

// NextSubscriptionStatus is the total transition function for subscriptions.
// Only active and suspended move back and forth; suspended subscriptions may
// be cancelled.
func NextSubscriptionStatus(from SubscriptionStatus, op SubscriptionOperation) (SubscriptionStatus, error) {
	reject := func() (SubscriptionStatus, error) {
		return from, newTransitionError(KindSubscription, string(op), string(from), "")
	}
	switch op {
	case SubscriptionOpConvert:
		if from == SubscriptionStatusTrial {
			return SubscriptionStatusActive, nil
		}
		return reject()
	case SubscriptionOpRenew:
		if from == SubscriptionStatusActive {
			return SubscriptionStatusActive, nil
		}
		return reject()
	case SubscriptionOpSuspend:
		if from == SubscriptionStatusActive || from == SubscriptionStatusSuspended {
			return SubscriptionStatusSuspended, nil
		}
		return reject()
	case SubscriptionOpActivate:
		if from == SubscriptionStatusSuspended || from == SubscriptionStatusActive {
			return SubscriptionStatusActive, nil
		}
		return reject()
	case SubscriptionOpCancel:
		switch from {
		case SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusSuspended:
			return SubscriptionStatusCancelled, nil
		}
		return reject()
	case SubscriptionOpExpire:
		switch from {
		case SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusSuspended, SubscriptionStatusExpired:
			return SubscriptionStatusExpired, nil
		}
		return reject()
	default:
		return from, Invalid("operation", "unknown subscription operation %q", op)
	}
}
