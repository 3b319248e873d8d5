package transport

import (
	"time"

	"github.com/fastygo/storefront/domain"
)

type PaymentView struct {
	ID                  string               `json:"id"`
	Version             int64                `json:"version,omitempty"`
	OrderID             string               `json:"order_id"`
	Method              string               `json:"method"`
	Provider            string               `json:"provider"`
	Status              domain.PaymentStatus `json:"status"`
	Amount              domain.Money         `json:"amount"`
	RefundedAmount      domain.Money         `json:"refunded_amount"`
	RemainingRefundable domain.Money         `json:"remaining_refundable"`
	TransactionID       string               `json:"transaction_id,omitempty"`
	Reference           string               `json:"reference,omitempty"`
	FailureReason       string               `json:"failure_reason,omitempty"`
	CancelReason        string               `json:"cancel_reason,omitempty"`
	Metadata            map[string]string    `json:"metadata,omitempty"`
	PaidAt              *time.Time           `json:"paid_at,omitempty"`
	RefundedAt          *time.Time           `json:"refunded_at,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

func NewPaymentView(p *domain.Payment, version int64) PaymentView {
	return PaymentView{
		ID:                  p.ID(),
		Version:             version,
		OrderID:             p.OrderID(),
		Method:              p.Method(),
		Provider:            p.Provider(),
		Status:              p.Status(),
		Amount:              p.Amount(),
		RefundedAmount:      p.RefundedAmount(),
		RemainingRefundable: p.RemainingRefundable(),
		TransactionID:       p.TransactionID(),
		Reference:           p.Reference(),
		FailureReason:       p.FailureReason(),
		CancelReason:        p.CancelReason(),
		Metadata:            p.Metadata(),
		PaidAt:              p.PaidAt(),
		RefundedAt:          p.RefundedAt(),
		CreatedAt:           p.CreatedAt(),
		UpdatedAt:           p.UpdatedAt(),
	}
}

type FlashSaleItemView struct {
	ID               string             `json:"id"`
	Version          int64              `json:"version,omitempty"`
	SaleID           string             `json:"sale_id"`
	ProductID        string             `json:"product_id"`
	SalePrice        domain.Money       `json:"sale_price"`
	OriginalPrice    *domain.Money      `json:"original_price,omitempty"`
	Discount         *domain.Percentage `json:"discount,omitempty"`
	StockLimit       int                `json:"stock_limit"`
	SoldQuantity     int                `json:"sold_quantity"`
	RemainingStock   int                `json:"remaining_stock"`
	PerCustomerLimit int                `json:"per_customer_limit"`
	StartsAt         time.Time          `json:"starts_at"`
	EndsAt           time.Time          `json:"ends_at"`
	Available        bool               `json:"available"`
	Live             bool               `json:"live"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func NewFlashSaleItemView(f *domain.FlashSaleItem, version int64) FlashSaleItemView {
	return FlashSaleItemView{
		ID:               f.ID(),
		Version:          version,
		SaleID:           f.SaleID(),
		ProductID:        f.ProductID(),
		SalePrice:        f.SalePrice(),
		OriginalPrice:    f.OriginalPrice(),
		Discount:         f.Discount(),
		StockLimit:       f.StockLimit(),
		SoldQuantity:     f.SoldQuantity(),
		RemainingStock:   f.RemainingStock(),
		PerCustomerLimit: f.PerCustomerLimit(),
		StartsAt:         f.Window().StartsAt(),
		EndsAt:           f.Window().EndsAt(),
		Available:        f.IsAvailable(),
		Live:             f.IsLive(domain.Now()),
		CreatedAt:        f.CreatedAt(),
		UpdatedAt:        f.UpdatedAt(),
	}
}

type LoyaltyAccountView struct {
	ID             string     `json:"id"`
	Version        int64      `json:"version,omitempty"`
	CustomerID     string     `json:"customer_id"`
	Balance        int64      `json:"balance"`
	LifetimePoints int64      `json:"lifetime_points"`
	TierID         string     `json:"tier_id,omitempty"`
	TierAchievedAt *time.Time `json:"tier_achieved_at,omitempty"`
	TierExpiresAt  *time.Time `json:"tier_expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func NewLoyaltyAccountView(a *domain.LoyaltyAccount, version int64) LoyaltyAccountView {
	return LoyaltyAccountView{
		ID:             a.ID(),
		Version:        version,
		CustomerID:     a.CustomerID(),
		Balance:        a.Balance(),
		LifetimePoints: a.LifetimePoints(),
		TierID:         a.TierID(),
		TierAchievedAt: a.TierAchievedAt(),
		TierExpiresAt:  a.TierExpiresAt(),
		CreatedAt:      a.CreatedAt(),
		UpdatedAt:      a.UpdatedAt(),
	}
}

type SubscriptionView struct {
	ID            string                    `json:"id"`
	Version       int64                     `json:"version,omitempty"`
	CustomerID    string                    `json:"customer_id"`
	PlanID        string                    `json:"plan_id"`
	Status        domain.SubscriptionStatus `json:"status"`
	Price         domain.Money              `json:"price"`
	Interval      domain.BillingInterval    `json:"billing_interval"`
	StartDate     time.Time                 `json:"start_date"`
	EndDate       time.Time                 `json:"end_date"`
	TrialEndDate  *time.Time                `json:"trial_end_date,omitempty"`
	AutoRenew     bool                      `json:"auto_renew"`
	PaymentMethod string                    `json:"payment_method,omitempty"`
	RenewalCount  int                       `json:"renewal_count"`
	CancelReason  string                    `json:"cancel_reason,omitempty"`
	CancelledAt   *time.Time                `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

func NewSubscriptionView(s *domain.Subscription, version int64) SubscriptionView {
	return SubscriptionView{
		ID:            s.ID(),
		Version:       version,
		CustomerID:    s.CustomerID(),
		PlanID:        s.PlanID(),
		Status:        s.Status(),
		Price:         s.Price(),
		Interval:      s.Interval(),
		StartDate:     s.StartDate(),
		EndDate:       s.EndDate(),
		TrialEndDate:  s.TrialEndDate(),
		AutoRenew:     s.AutoRenew(),
		PaymentMethod: s.PaymentMethod(),
		RenewalCount:  s.RenewalCount(),
		CancelReason:  s.CancelReason(),
		CancelledAt:   s.CancelledAt(),
		CreatedAt:     s.CreatedAt(),
		UpdatedAt:     s.UpdatedAt(),
	}
}

type PlanView struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Price     domain.Money           `json:"price"`
	Interval  domain.BillingInterval `json:"billing_interval"`
	TrialDays int                    `json:"trial_days"`
}

func NewPlanView(p domain.Plan) PlanView {
	return PlanView{
		ID:        p.ID(),
		Name:      p.Name(),
		Price:     p.Price(),
		Interval:  p.Interval(),
		TrialDays: p.TrialDays(),
	}
}

// MapViews converts a list with the given view constructor. List results carry no version.
func MapViews[T any, V any](items []T, view func(T, int64) V) []V {
	out := make([]V, 0, len(items))
	for _, item := range items {
		out = append(out, view(item, 0))
	}
	return out
}
