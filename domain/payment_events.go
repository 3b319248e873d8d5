package domain

import "time"

type PaymentCreated struct {
	EventBase
	OrderID  string `json:"order_id"`
	Amount   Money  `json:"amount"`
	Method   string `json:"method"`
	Provider string `json:"provider"`
}

func (PaymentCreated) EventName() string { return "payment.created" }

type PaymentProcessingStarted struct {
	EventBase
}

func (PaymentProcessingStarted) EventName() string { return "payment.processing" }

type PaymentCompleted struct {
	EventBase
	TransactionID string    `json:"transaction_id"`
	Reference     string    `json:"reference,omitempty"`
	Amount        Money     `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

func (PaymentCompleted) EventName() string { return "payment.completed" }

type PaymentFailed struct {
	EventBase
	Reason string `json:"reason"`
}

func (PaymentFailed) EventName() string { return "payment.failed" }

type PaymentCancelled struct {
	EventBase
	Reason string `json:"reason,omitempty"`
}

func (PaymentCancelled) EventName() string { return "payment.cancelled" }

// PaymentRefunded is emitted for both full and partial refunds.
type PaymentRefunded struct {
	EventBase
	Amount        Money `json:"amount"`
	TotalRefunded Money `json:"total_refunded"`
	Full          bool  `json:"full"`
}

func (PaymentRefunded) EventName() string { return "payment.refunded" }

// PaymentUpdated carries the new value of a descriptive field.
type PaymentUpdated struct {
	EventBase
	Field    string            `json:"field"`
	Value    string            `json:"value,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (PaymentUpdated) EventName() string { return "payment.updated" }

type PaymentDeleted struct {
	EventBase
}

func (PaymentDeleted) EventName() string { return "payment.deleted" }
