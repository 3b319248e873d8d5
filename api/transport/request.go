package transport

import (
	"time"

	"github.com/fastygo/storefront/domain"
)

// MoneyRequest is the wire form of domain.Money.
type MoneyRequest struct {
	Amount   string `json:"amount" validate:"required,numeric"`
	Currency string `json:"currency" validate:"required,len=3,alpha"`
}

func (m MoneyRequest) Money() (domain.Money, error) {
	return domain.ParseMoney(m.Amount, m.Currency)
}

type CreatePaymentRequest struct {
	OrderID  string       `json:"order_id" validate:"required,max=64"`
	Method   string       `json:"method" validate:"required,max=32"`
	Provider string       `json:"provider" validate:"required,max=32"`
	Amount   MoneyRequest `json:"amount"`
}

type CompletePaymentRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,max=128"`
	Reference     string `json:"reference" validate:"omitempty,max=128"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ReasonRequest is an optional free-text reason.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type PartialRefundRequest struct {
	Amount MoneyRequest `json:"amount"`
}

type PaymentDetailsRequest struct {
	TransactionID string            `json:"transaction_id" validate:"max=128"`
	Reference     string            `json:"reference" validate:"max=128"`
	Metadata      map[string]string `json:"metadata" validate:"omitempty,max=32,dive,keys,required,max=64,endkeys,max=512"`
}

type CreateFlashSaleItemRequest struct {
	SaleID           string        `json:"sale_id" validate:"required,max=64"`
	ProductID        string        `json:"product_id" validate:"required,max=64"`
	SalePrice        MoneyRequest  `json:"sale_price"`
	OriginalPrice    *MoneyRequest `json:"original_price" validate:"omitempty"`
	StockLimit       int           `json:"stock_limit" validate:"gte=0"`
	PerCustomerLimit int           `json:"per_customer_limit" validate:"gte=0"`
	StartsAt         time.Time     `json:"starts_at" validate:"required"`
	EndsAt           time.Time     `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

type RecordSaleRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0,lte=10000"`
}

type ChangePriceRequest struct {
	Price MoneyRequest `json:"price"`
}

type StockLimitRequest struct {
	StockLimit       int  `json:"stock_limit" validate:"gte=0"`
	PerCustomerLimit *int `json:"per_customer_limit" validate:"omitempty,gte=0"`
}

type OpenLoyaltyAccountRequest struct {
	CustomerID string `json:"customer_id" validate:"required,max=64"`
}

type PointsRequest struct {
	Points int64  `json:"points" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"max=200"`
}

type AssignTierRequest struct {
	TierID    string     `json:"tier_id" validate:"required,max=64"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type CreateSubscriptionRequest struct {
	CustomerID    string `json:"customer_id" validate:"required,max=64"`
	PlanID        string `json:"plan_id" validate:"required,max=64"`
	AutoRenew     bool   `json:"auto_renew"`
	PaymentMethod string `json:"payment_method" validate:"max=32"`
}

type AutoRenewRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type ExpireSubscriptionRequest struct {
	At *time.Time `json:"at"`
}
