package domain

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// PaymentStatuses lists every status in declaration order.
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusCancelled,
		PaymentStatusRefunded,
		PaymentStatusPartiallyRefunded,
	}
}

func (s PaymentStatus) String() string { return string(s) }

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusCancelled, PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// AllowedTargets is the transition table. Terminal states return nil.
func (s PaymentStatus) AllowedTargets() []PaymentStatus {
	switch s {
	case PaymentStatusPending:
		return []PaymentStatus{PaymentStatusProcessing, PaymentStatusCancelled}
	case PaymentStatusProcessing:
		return []PaymentStatus{PaymentStatusCompleted, PaymentStatusFailed}
	case PaymentStatusCompleted:
		return []PaymentStatus{PaymentStatusRefunded, PaymentStatusPartiallyRefunded}
	case PaymentStatusPartiallyRefunded:
		return []PaymentStatus{PaymentStatusRefunded}
	case PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return nil
	}
	return nil
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range s.AllowedTargets() {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s PaymentStatus) IsTerminal() bool {
	return len(s.AllowedTargets()) == 0
}

// PaymentOperation names the commands that move a payment between states.
type PaymentOperation string

const (
	PaymentOpProcess       PaymentOperation = "process"
	PaymentOpComplete      PaymentOperation = "complete"
	PaymentOpFail          PaymentOperation = "fail"
	PaymentOpCancel        PaymentOperation = "cancel"
	PaymentOpRefund        PaymentOperation = "refund"
	PaymentOpPartialRefund PaymentOperation = "partial_refund"
)

// PaymentOperations lists every status-changing operation.
func PaymentOperations() []PaymentOperation {
	return []PaymentOperation{
		PaymentOpProcess,
		PaymentOpComplete,
		PaymentOpFail,
		PaymentOpCancel,
		PaymentOpRefund,
		PaymentOpPartialRefund,
	}
}

// NextPaymentStatus is the total transition function: every (status, op) pair
// yields either the next status or a *TransitionError.
func NextPaymentStatus(from PaymentStatus, op PaymentOperation) (PaymentStatus, error) {
	var target PaymentStatus
	switch op {
	case PaymentOpProcess:
		target = PaymentStatusProcessing
	case PaymentOpComplete:
		target = PaymentStatusCompleted
	case PaymentOpFail:
		target = PaymentStatusFailed
	case PaymentOpCancel:
		target = PaymentStatusCancelled
	case PaymentOpRefund:
		target = PaymentStatusRefunded
	case PaymentOpPartialRefund:
		target = PaymentStatusPartiallyRefunded
	default:
		return from, Invalid("operation", "unknown payment operation %q", op)
	}
	if !from.CanTransitionTo(target) {
		return from, newTransitionError(KindPayment, string(op), string(from), string(target))
	}
	return target, nil
}
