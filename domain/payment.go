package domain

import (
	"maps"
	"time"
)

const (
	maxPaymentFieldLength = 128
	maxReasonLength       = 512
	maxMetadataEntries    = 32
)

// Payment is the aggregate that tracks a single charge against an order.
type Payment struct {
	Root
	orderID       string
	method        string
	provider      string
	amount        Money
	refunded      Money
	status        PaymentStatus
	transactionID string
	reference     string
	failureReason string
	cancelReason  string
	metadata      map[string]string
	paidAt        *time.Time
	refundedAt    *time.Time
}

// NewPaymentParams groups the inputs of NewPayment.
type NewPaymentParams struct {
	OrderID  string
	Method   string
	Provider string
	Amount   Money
}

// NewPayment creates a pending payment.
func NewPayment(p NewPaymentParams) (*Payment, []Event, error) {
	if err := FirstError(
		NotEmpty("order_id", p.OrderID),
		NotEmpty("method", p.Method),
		NotEmpty("provider", p.Provider),
	); err != nil {
		return nil, nil, err
	}
	if !p.Amount.IsSet() || !p.Amount.IsPositive() {
		return nil, nil, Invalid("amount", "amount must be greater than zero")
	}

	payment := &Payment{
		Root:     newRoot(),
		orderID:  p.OrderID,
		method:   p.Method,
		provider: p.Provider,
		amount:   p.Amount,
		refunded: ZeroMoney(p.Amount.Currency()),
		status:   PaymentStatusPending,
	}
	if err := payment.Validate(); err != nil {
		return nil, nil, err
	}
	return payment, []Event{PaymentCreated{
		EventBase: payment.eventBase(payment.CreatedAt()),
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Method:    p.Method,
		Provider:  p.Provider,
	}}, nil
}

func (p *Payment) Kind() string                { return KindPayment }
func (p *Payment) OrderID() string             { return p.orderID }
func (p *Payment) Method() string              { return p.method }
func (p *Payment) Provider() string            { return p.provider }
func (p *Payment) Amount() Money               { return p.amount }
func (p *Payment) RefundedAmount() Money       { return p.refunded }
func (p *Payment) Status() PaymentStatus       { return p.status }
func (p *Payment) TransactionID() string       { return p.transactionID }
func (p *Payment) Reference() string           { return p.reference }
func (p *Payment) FailureReason() string       { return p.failureReason }
func (p *Payment) CancelReason() string        { return p.cancelReason }
func (p *Payment) PaidAt() *time.Time          { return copyTime(p.paidAt) }
func (p *Payment) RefundedAt() *time.Time      { return copyTime(p.refundedAt) }
func (p *Payment) Metadata() map[string]string { return maps.Clone(p.metadata) }

// IsFinal reports whether the payment can no longer change status.
func (p *Payment) IsFinal() bool {
	return p.status.IsTerminal()
}

// RemainingRefundable is the part of the amount not yet refunded.
func (p *Payment) RemainingRefundable() Money {
	rest, err := p.amount.Sub(p.refunded)
	if err != nil {
		return ZeroMoney(p.amount.Currency())
	}
	return rest
}

func (p *Payment) eventBase(at time.Time) EventBase {
	return newEventBase(KindPayment, p.ID(), at)
}

// transition applies the table check; business fields are set by the caller afterwards.
func (p *Payment) transition(op PaymentOperation) (Payment, error) {
	if err := p.ensureActive(); err != nil {
		return Payment{}, err
	}
	target, err := NextPaymentStatus(p.status, op)
	if err != nil {
		return Payment{}, err
	}
	next := *p
	next.status = target
	return next, nil
}

// Process moves a pending payment to processing.
func (p *Payment) Process() ([]Event, error) {
	next, err := p.transition(PaymentOpProcess)
	if err != nil {
		return nil, err
	}
	at := next.touch()
	return commit(p, next, PaymentProcessingStarted{EventBase: p.eventBase(at)})
}

// Complete records the provider transaction and stamps paidAt.
func (p *Payment) Complete(transactionID, reference string) ([]Event, error) {
	if err := FirstError(
		NotEmpty("transaction_id", transactionID),
		MaxLength("transaction_id", transactionID, maxPaymentFieldLength),
		MaxLength("reference", reference, maxPaymentFieldLength),
	); err != nil {
		return nil, err
	}
	next, err := p.transition(PaymentOpComplete)
	if err != nil {
		return nil, err
	}
	at := next.touch()
	next.transactionID = transactionID
	if reference != "" {
		next.reference = reference
	}
	next.paidAt = &at
	return commit(p, next, PaymentCompleted{
		EventBase:     p.eventBase(at),
		TransactionID: transactionID,
		Reference:     next.reference,
		Amount:        next.amount,
		PaidAt:        at,
	})
}

// Fail records why the payment could not be taken.
func (p *Payment) Fail(reason string) ([]Event, error) {
	if err := FirstError(NotEmpty("reason", reason), MaxLength("reason", reason, maxReasonLength)); err != nil {
		return nil, err
	}
	next, err := p.transition(PaymentOpFail)
	if err != nil {
		return nil, err
	}
	at := next.touch()
	next.failureReason = reason
	return commit(p, next, PaymentFailed{EventBase: p.eventBase(at), Reason: reason})
}

// Cancel aborts a pending payment. The reason is optional.
func (p *Payment) Cancel(reason string) ([]Event, error) {
	if err := MaxLength("reason", reason, maxReasonLength); err != nil {
		return nil, err
	}
	next, err := p.transition(PaymentOpCancel)
	if err != nil {
		return nil, err
	}
	at := next.touch()
	next.cancelReason = reason
	return commit(p, next, PaymentCancelled{EventBase: p.eventBase(at), Reason: reason})
}

// Refund returns everything not refunded yet. From partially refunded it
// refunds the remainder.
func (p *Payment) Refund() ([]Event, error) {
	next, err := p.transition(PaymentOpRefund)
	if err != nil {
		return nil, err
	}
	remainder := p.RemainingRefundable()
	at := next.touch()
	next.refunded = next.amount
	next.refundedAt = &at
	return commit(p, next, PaymentRefunded{
		EventBase:     p.eventBase(at),
		Amount:        remainder,
		TotalRefunded: next.refunded,
		Full:          true,
	})
}

// PartiallyRefund refunds part of a completed payment. The amount must be
// strictly between zero and the payment total.
func (p *Payment) PartiallyRefund(amount Money) ([]Event, error) {
	if !amount.IsSet() || !amount.IsPositive() {
		return nil, Invalid("amount", "refund amount must be greater than zero")
	}
	cmp, err := amount.Compare(p.amount)
	if err != nil {
		return nil, err
	}
	if cmp >= 0 {
		return nil, Invalid("amount", "partial refund must be less than %s", p.amount)
	}
	next, err := p.transition(PaymentOpPartialRefund)
	if err != nil {
		return nil, err
	}
	at := next.touch()
	next.refunded = amount
	next.refundedAt = &at
	return commit(p, next, PaymentRefunded{
		EventBase:     p.eventBase(at),
		Amount:        amount,
		TotalRefunded: amount,
		Full:          false,
	})
}

// SetTransactionID updates the provider transaction id without changing status.
func (p *Payment) SetTransactionID(transactionID string) ([]Event, error) {
	if err := p.ensureActive(); err != nil {
		return nil, err
	}
	if err := FirstError(
		NotEmpty("transaction_id", transactionID),
		MaxLength("transaction_id", transactionID, maxPaymentFieldLength),
	); err != nil {
		return nil, err
	}
	next := *p
	at := next.touch()
	next.transactionID = transactionID
	return commit(p, next, PaymentUpdated{EventBase: p.eventBase(at), Field: "transaction_id", Value: transactionID})
}

// SetPaymentReference updates the external reference without changing status.
func (p *Payment) SetPaymentReference(reference string) ([]Event, error) {
	if err := p.ensureActive(); err != nil {
		return nil, err
	}
	if err := FirstError(
		NotEmpty("reference", reference),
		MaxLength("reference", reference, maxPaymentFieldLength),
	); err != nil {
		return nil, err
	}
	next := *p
	at := next.touch()
	next.reference = reference
	return commit(p, next, PaymentUpdated{EventBase: p.eventBase(at), Field: "reference", Value: reference})
}

// SetMetadata replaces the metadata map.
func (p *Payment) SetMetadata(metadata map[string]string) ([]Event, error) {
	if err := p.ensureActive(); err != nil {
		return nil, err
	}
	if len(metadata) > maxMetadataEntries {
		return nil, Invalid("metadata", "metadata must have at most %d entries", maxMetadataEntries)
	}
	for k := range metadata {
		if err := NotEmpty("metadata key", k); err != nil {
			return nil, err
		}
	}
	next := *p
	at := next.touch()
	next.metadata = maps.Clone(metadata)
	return commit(p, next, PaymentUpdated{EventBase: p.eventBase(at), Field: "metadata", Metadata: maps.Clone(metadata)})
}

// Delete soft-deletes a payment that reached failed, cancelled or refunded.
// Deleting twice is a no-op.
func (p *Payment) Delete() ([]Event, error) {
	if p.IsDeleted() {
		return nil, nil
	}
	switch p.status {
	case PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
	default:
		return nil, violation(ErrDeletionNotAllowed, "payment is %s", p.status)
	}
	next := *p
	at := next.markDeleted()
	return commit(p, next, PaymentDeleted{EventBase: p.eventBase(at)})
}

// Validate checks every payment invariant.
func (p *Payment) Validate() error {
	if err := FirstError(
		p.Root.validate(),
		NotEmpty("order_id", p.orderID),
		MaxLength("order_id", p.orderID, maxPaymentFieldLength),
		NotEmpty("method", p.method),
		MaxLength("method", p.method, maxPaymentFieldLength),
		NotEmpty("provider", p.provider),
		MaxLength("provider", p.provider, maxPaymentFieldLength),
	); err != nil {
		return err
	}
	if !p.status.Valid() {
		return Invalid("status", "unknown payment status %q", p.status)
	}
	if !p.amount.IsPositive() {
		return Invalid("amount", "amount must be greater than zero")
	}
	cmp, err := p.refunded.Compare(p.amount)
	if err != nil {
		return err
	}
	if cmp > 0 {
		return violation(ErrInvariantViolation, "refunded %s exceeds amount %s", p.refunded, p.amount)
	}

	switch p.status {
	case PaymentStatusCompleted, PaymentStatusPartiallyRefunded, PaymentStatusRefunded:
		if p.transactionID == "" || p.paidAt == nil {
			return violation(ErrInvariantViolation, "%s payment requires transaction id and paid_at", p.status)
		}
	}
	switch p.status {
	case PaymentStatusFailed:
		if p.failureReason == "" {
			return violation(ErrInvariantViolation, "failed payment requires a reason")
		}
	case PaymentStatusPartiallyRefunded:
		if p.refunded.IsZero() || cmp == 0 {
			return violation(ErrInvariantViolation, "partially refunded amount must be between zero and total")
		}
	case PaymentStatusRefunded:
		if cmp != 0 {
			return violation(ErrInvariantViolation, "refunded payment must refund the full amount")
		}
	default:
		if !p.refunded.IsZero() {
			return violation(ErrInvariantViolation, "%s payment cannot carry refunds", p.status)
		}
	}
	return nil
}

// PaymentSnapshot is the serialized state of a Payment.
type PaymentSnapshot struct {
	RootSnapshot
	OrderID       string            `json:"order_id"`
	Method        string            `json:"method"`
	Provider      string            `json:"provider"`
	Amount        Money             `json:"amount"`
	Refunded      Money             `json:"refunded"`
	Status        PaymentStatus     `json:"status"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Reference     string            `json:"reference,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	CancelReason  string            `json:"cancel_reason,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	RefundedAt    *time.Time        `json:"refunded_at,omitempty"`
}

func (p *Payment) Snapshot() PaymentSnapshot {
	return PaymentSnapshot{
		RootSnapshot:  p.snapshot(),
		OrderID:       p.orderID,
		Method:        p.method,
		Provider:      p.provider,
		Amount:        p.amount,
		Refunded:      p.refunded,
		Status:        p.status,
		TransactionID: p.transactionID,
		Reference:     p.reference,
		FailureReason: p.failureReason,
		CancelReason:  p.cancelReason,
		Metadata:      maps.Clone(p.metadata),
		PaidAt:        copyTime(p.paidAt),
		RefundedAt:    copyTime(p.refundedAt),
	}
}

// RestorePayment rebuilds a payment from storage and revalidates it.
func RestorePayment(s PaymentSnapshot) (*Payment, error) {
	root, err := restoreRoot(s.RootSnapshot)
	if err != nil {
		return nil, err
	}
	refunded := s.Refunded
	if !refunded.IsSet() {
		refunded = ZeroMoney(s.Amount.Currency())
	}
	p := &Payment{
		Root:          root,
		orderID:       s.OrderID,
		method:        s.Method,
		provider:      s.Provider,
		amount:        s.Amount,
		refunded:      refunded,
		status:        s.Status,
		transactionID: s.TransactionID,
		reference:     s.Reference,
		failureReason: s.FailureReason,
		cancelReason:  s.CancelReason,
		metadata:      maps.Clone(s.Metadata),
		paidAt:        utcPtr(s.PaidAt),
		refundedAt:    utcPtr(s.RefundedAt),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
