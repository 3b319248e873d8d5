package domain

import (
	"math"
	"time"
)

// UnlimitedStock is reported by RemainingStock when the item has no ceiling.
const UnlimitedStock = -1

// SaleWindow is the half-open interval [StartsAt, EndsAt) in which a flash sale accepts orders.
type SaleWindow struct {
	startsAt time.Time
	endsAt   time.Time
}

func NewSaleWindow(startsAt, endsAt time.Time) (SaleWindow, error) {
	if startsAt.IsZero() || endsAt.IsZero() {
		return SaleWindow{}, Invalid("window", "sale window requires start and end")
	}
	if !startsAt.Before(endsAt) {
		return SaleWindow{}, Invalid("window", "sale window must start before it ends")
	}
	return SaleWindow{startsAt: startsAt.UTC(), endsAt: endsAt.UTC()}, nil
}

func (w SaleWindow) StartsAt() time.Time { return w.startsAt }
func (w SaleWindow) EndsAt() time.Time   { return w.endsAt }

// Contains reports whether at falls inside the window.
func (w SaleWindow) Contains(at time.Time) bool {
	return !at.Before(w.startsAt) && at.Before(w.endsAt)
}

type FlashSaleItemCreated struct {
	EventBase
	SaleID     string    `json:"sale_id"`
	ProductID  string    `json:"product_id"`
	SalePrice  Money     `json:"sale_price"`
	StockLimit int       `json:"stock_limit"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

func (FlashSaleItemCreated) EventName() string { return "flashsale.created" }

type FlashSaleRecorded struct {
	EventBase
	Quantity     int `json:"quantity"`
	SoldQuantity int `json:"sold_quantity"`
	Remaining    int `json:"remaining"`
}

func (FlashSaleRecorded) EventName() string { return "flashsale.sale_recorded" }

type FlashSalePriceChanged struct {
	EventBase
	Previous Money `json:"previous"`
	Current  Money `json:"current"`
}

func (FlashSalePriceChanged) EventName() string { return "flashsale.price_changed" }

// FlashSaleLimitChanged reports a change of either the stock ceiling or the
// per-customer limit, named by Limit.
type FlashSaleLimitChanged struct {
	EventBase
	Limit    string `json:"limit"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
}

func (FlashSaleLimitChanged) EventName() string { return "flashsale.limit_changed" }

type FlashSaleItemDeleted struct {
	EventBase
}

func (FlashSaleItemDeleted) EventName() string { return "flashsale.deleted" }

const (
	LimitStock       = "stock"
	LimitPerCustomer = "per_customer"
)

// FlashSaleItem is a product offered at a discount with a finite stock ceiling
// during a sale window. A ceiling of zero means unlimited.
type FlashSaleItem struct {
	Root
	saleID           string
	productID        string
	salePrice        Money
	originalPrice    *Money
	stockLimit       int
	soldQuantity     int
	perCustomerLimit int
	window           SaleWindow
}

// NewFlashSaleItemParams groups the inputs of NewFlashSaleItem.
type NewFlashSaleItemParams struct {
	SaleID           string
	ProductID        string
	SalePrice        Money
	OriginalPrice    *Money
	StockLimit       int
	PerCustomerLimit int
	Window           SaleWindow
}

func NewFlashSaleItem(p NewFlashSaleItemParams) (*FlashSaleItem, []Event, error) {
	if err := FirstError(
		NotEmpty("sale_id", p.SaleID),
		NotEmpty("product_id", p.ProductID),
		NonNegative("stock_limit", p.StockLimit),
		NonNegative("per_customer_limit", p.PerCustomerLimit),
	); err != nil {
		return nil, nil, err
	}
	if !p.SalePrice.IsSet() || !p.SalePrice.IsPositive() {
		return nil, nil, Invalid("sale_price", "sale price must be greater than zero")
	}
	if p.Window.startsAt.IsZero() {
		return nil, nil, Invalid("window", "sale window is required")
	}

	item := &FlashSaleItem{
		Root:             newRoot(),
		saleID:           p.SaleID,
		productID:        p.ProductID,
		salePrice:        p.SalePrice,
		stockLimit:       p.StockLimit,
		perCustomerLimit: p.PerCustomerLimit,
		window:           p.Window,
	}
	if p.OriginalPrice != nil {
		original := *p.OriginalPrice
		item.originalPrice = &original
	}
	if err := item.Validate(); err != nil {
		return nil, nil, err
	}
	return item, []Event{FlashSaleItemCreated{
		EventBase:  item.eventBase(item.CreatedAt()),
		SaleID:     item.saleID,
		ProductID:  item.productID,
		SalePrice:  item.salePrice,
		StockLimit: item.stockLimit,
		StartsAt:   item.window.startsAt,
		EndsAt:     item.window.endsAt,
	}}, nil
}

func (f *FlashSaleItem) Kind() string          { return KindFlashSaleItem }
func (f *FlashSaleItem) SaleID() string        { return f.saleID }
func (f *FlashSaleItem) ProductID() string     { return f.productID }
func (f *FlashSaleItem) SalePrice() Money      { return f.salePrice }
func (f *FlashSaleItem) StockLimit() int       { return f.stockLimit }
func (f *FlashSaleItem) SoldQuantity() int     { return f.soldQuantity }
func (f *FlashSaleItem) PerCustomerLimit() int { return f.perCustomerLimit }
func (f *FlashSaleItem) Window() SaleWindow    { return f.window }

func (f *FlashSaleItem) OriginalPrice() *Money {
	if f.originalPrice == nil {
		return nil
	}
	m := *f.originalPrice
	return &m
}

// Discount is the saving against the original price, nil when none is known.
func (f *FlashSaleItem) Discount() *Percentage {
	if f.originalPrice == nil {
		return nil
	}
	pct, err := DiscountOf(*f.originalPrice, f.salePrice)
	if err != nil {
		return nil
	}
	return &pct
}

// RemainingStock returns UnlimitedStock when the item has no ceiling.
func (f *FlashSaleItem) RemainingStock() int {
	if f.stockLimit == 0 {
		return UnlimitedStock
	}
	return f.stockLimit - f.soldQuantity
}

// IsAvailable reports whether at least one more unit can be sold.
func (f *FlashSaleItem) IsAvailable() bool {
	return f.stockLimit == 0 || f.soldQuantity < f.stockLimit
}

// IsLive reports whether the sale window contains at.
func (f *FlashSaleItem) IsLive(at time.Time) bool {
	return f.window.Contains(at)
}

func (f *FlashSaleItem) eventBase(at time.Time) EventBase {
	return newEventBase(KindFlashSaleItem, f.ID(), at)
}

// RecordSale adds quantity to the sold counter. It rejects sales outside the
// window, above the per-customer limit, or beyond the ceiling.
func (f *FlashSaleItem) RecordSale(quantity int) ([]Event, error) {
	if err := f.ensureActive(); err != nil {
		return nil, err
	}
	if err := Positive("quantity", quantity); err != nil {
		return nil, err
	}
	if !f.window.Contains(now()) {
		return nil, violation(ErrSaleNotActive, "window %s - %s", f.window.startsAt.Format(time.RFC3339), f.window.endsAt.Format(time.RFC3339))
	}
	if f.perCustomerLimit > 0 && quantity > f.perCustomerLimit {
		return nil, violation(ErrLimitExceeded, "requested %d, limit %d", quantity, f.perCustomerLimit)
	}
	if f.stockLimit > 0 && quantity > f.stockLimit-f.soldQuantity {
		return nil, violation(ErrStockExceeded, "sold %d + requested %d exceeds ceiling %d", f.soldQuantity, quantity, f.stockLimit)
	}
	if quantity > math.MaxInt-f.soldQuantity {
		return nil, Invalid("quantity", "quantity %d is too large", quantity)
	}

	next := *f
	at := next.touch()
	next.soldQuantity += quantity
	return commit(f, next, FlashSaleRecorded{
		EventBase:    f.eventBase(at),
		Quantity:     quantity,
		SoldQuantity: next.soldQuantity,
		Remaining:    next.RemainingStock(),
	})
}

// ChangePrice sets a new sale price. Setting the current price is a no-op.
func (f *FlashSaleItem) ChangePrice(price Money) ([]Event, error) {
	if err := f.ensureActive(); err != nil {
		return nil, err
	}
	if !price.IsSet() || !price.IsPositive() {
		return nil, Invalid("sale_price", "sale price must be greater than zero")
	}
	if price.Equal(f.salePrice) {
		return nil, nil
	}
	next := *f
	at := next.touch()
	next.salePrice = price
	return commit(f, next, FlashSalePriceChanged{EventBase: f.eventBase(at), Previous: f.salePrice, Current: price})
}

// UpdateStockLimit changes the ceiling. Zero removes it; a positive value
// below the quantity already sold is rejected.
func (f *FlashSaleItem) UpdateStockLimit(limit int) ([]Event, error) {
	if err := f.ensureActive(); err != nil {
		return nil, err
	}
	if err := NonNegative("stock_limit", limit); err != nil {
		return nil, err
	}
	if limit > 0 && limit < f.soldQuantity {
		return nil, violation(ErrStockExceeded, "ceiling %d is below sold quantity %d", limit, f.soldQuantity)
	}
	if limit == f.stockLimit {
		return nil, nil
	}
	next := *f
	at := next.touch()
	next.stockLimit = limit
	return commit(f, next, FlashSaleLimitChanged{EventBase: f.eventBase(at), Limit: LimitStock, Previous: f.stockLimit, Current: limit})
}

// SetPerCustomerLimit changes the per-order cap. Zero removes it.
func (f *FlashSaleItem) SetPerCustomerLimit(limit int) ([]Event, error) {
	if err := f.ensureActive(); err != nil {
		return nil, err
	}
	if err := NonNegative("per_customer_limit", limit); err != nil {
		return nil, err
	}
	if limit == f.perCustomerLimit {
		return nil, nil
	}
	next := *f
	at := next.touch()
	next.perCustomerLimit = limit
	return commit(f, next, FlashSaleLimitChanged{EventBase: f.eventBase(at), Limit: LimitPerCustomer, Previous: f.perCustomerLimit, Current: limit})
}

// Delete is refused while the sale window is live.
func (f *FlashSaleItem) Delete() ([]Event, error) {
	if f.IsDeleted() {
		return nil, nil
	}
	if f.window.Contains(now()) {
		return nil, violation(ErrDeletionNotAllowed, "flash sale is live")
	}
	next := *f
	at := next.markDeleted()
	return commit(f, next, FlashSaleItemDeleted{EventBase: f.eventBase(at)})
}

func (f *FlashSaleItem) Validate() error {
	if err := FirstError(
		f.Root.validate(),
		NotEmpty("sale_id", f.saleID),
		NotEmpty("product_id", f.productID),
		NonNegative("stock_limit", f.stockLimit),
		NonNegative("sold_quantity", f.soldQuantity),
		NonNegative("per_customer_limit", f.perCustomerLimit),
	); err != nil {
		return err
	}
	if !f.salePrice.IsPositive() {
		return Invalid("sale_price", "sale price must be greater than zero")
	}
	if f.originalPrice != nil {
		cmp, err := f.salePrice.Compare(*f.originalPrice)
		if err != nil {
			return err
		}
		if cmp > 0 {
			return Invalid("sale_price", "sale price must not exceed original price %s", f.originalPrice)
		}
	}
	if !f.window.startsAt.Before(f.window.endsAt) {
		return Invalid("window", "sale window must start before it ends")
	}
	if f.stockLimit > 0 && f.soldQuantity > f.stockLimit {
		return violation(ErrStockExceeded, "sold %d exceeds ceiling %d", f.soldQuantity, f.stockLimit)
	}
	return nil
}

// FlashSaleItemSnapshot is the serialized state of a FlashSaleItem.
type FlashSaleItemSnapshot struct {
	RootSnapshot
	SaleID           string    `json:"sale_id"`
	ProductID        string    `json:"product_id"`
	SalePrice        Money     `json:"sale_price"`
	OriginalPrice    *Money    `json:"original_price,omitempty"`
	StockLimit       int       `json:"stock_limit"`
	SoldQuantity     int       `json:"sold_quantity"`
	PerCustomerLimit int       `json:"per_customer_limit"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
}

func (f *FlashSaleItem) Snapshot() FlashSaleItemSnapshot {
	return FlashSaleItemSnapshot{
		RootSnapshot:     f.snapshot(),
		SaleID:           f.saleID,
		ProductID:        f.productID,
		SalePrice:        f.salePrice,
		OriginalPrice:    f.OriginalPrice(),
		StockLimit:       f.stockLimit,
		SoldQuantity:     f.soldQuantity,
		PerCustomerLimit: f.perCustomerLimit,
		StartsAt:         f.window.startsAt,
		EndsAt:           f.window.endsAt,
	}
}

func RestoreFlashSaleItem(s FlashSaleItemSnapshot) (*FlashSaleItem, error) {
	root, err := restoreRoot(s.RootSnapshot)
	if err != nil {
		return nil, err
	}
	window, err := NewSaleWindow(s.StartsAt, s.EndsAt)
	if err != nil {
		return nil, err
	}
	item := &FlashSaleItem{
		Root:             root,
		saleID:           s.SaleID,
		productID:        s.ProductID,
		salePrice:        s.SalePrice,
		stockLimit:       s.StockLimit,
		soldQuantity:     s.SoldQuantity,
		perCustomerLimit: s.PerCustomerLimit,
		window:           window,
	}
	if s.OriginalPrice != nil {
		original := *s.OriginalPrice
		item.originalPrice = &original
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}
