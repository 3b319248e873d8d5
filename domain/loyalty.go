package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type LoyaltyAccountOpened struct {
	EventBase
	CustomerID string `json:"customer_id"`
}

func (LoyaltyAccountOpened) EventName() string { return "loyalty.account_opened" }

type PointsAdded struct {
	EventBase
	Points   int64  `json:"points"`
	Balance  int64  `json:"balance"`
	Lifetime int64  `json:"lifetime"`
	Reason   string `json:"reason,omitempty"`
}

func (PointsAdded) EventName() string { return "loyalty.points_added" }

type PointsDeducted struct {
	EventBase
	Points  int64  `json:"points"`
	Balance int64  `json:"balance"`
	Reason  string `json:"reason,omitempty"`
}

func (PointsDeducted) EventName() string { return "loyalty.points_deducted" }

type TierChanged struct {
	EventBase
	PreviousTier string     `json:"previous_tier,omitempty"`
	Tier         string     `json:"tier,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

func (TierChanged) EventName() string { return "loyalty.tier_changed" }

type LoyaltyAccountDeleted struct {
	EventBase
}

func (LoyaltyAccountDeleted) EventName() string { return "loyalty.account_deleted" }

// LoyaltyAccount keeps a customer's spendable balance and lifetime total.
// Deductions only touch the balance.
type LoyaltyAccount struct {
	Root
	customerID     string
	balance        int64
	lifetimePoints int64
	tierID         string
	tierAchievedAt *time.Time
	tierExpiresAt  *time.Time
}

var loyaltyNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("storefront.loyalty-account"))

// LoyaltyAccountID is the fixed account id of a customer. Two opens for the
// same customer collide on it in the store.
func LoyaltyAccountID(customerID string) string {
	return uuid.NewSHA1(loyaltyNamespace, []byte(customerID)).String()
}

func NewLoyaltyAccount(customerID string) (*LoyaltyAccount, []Event, error) {
	if err := FirstError(NotEmpty("customer_id", customerID), MaxLength("customer_id", customerID, maxPaymentFieldLength)); err != nil {
		return nil, nil, err
	}
	root := newRoot()
	root.id = LoyaltyAccountID(customerID)
	account := &LoyaltyAccount{Root: root, customerID: customerID}
	return account, []Event{LoyaltyAccountOpened{
		EventBase:  account.eventBase(account.CreatedAt()),
		CustomerID: customerID,
	}}, nil
}

func (a *LoyaltyAccount) Kind() string          { return KindLoyaltyAccount }
func (a *LoyaltyAccount) CustomerID() string    { return a.customerID }
func (a *LoyaltyAccount) Balance() int64        { return a.balance }
func (a *LoyaltyAccount) LifetimePoints() int64 { return a.lifetimePoints }
func (a *LoyaltyAccount) TierID() string        { return a.tierID }

func (a *LoyaltyAccount) TierAchievedAt() *time.Time { return copyTime(a.tierAchievedAt) }
func (a *LoyaltyAccount) TierExpiresAt() *time.Time  { return copyTime(a.tierExpiresAt) }

// TierExpired reports whether the current tier has an expiry at or before at.
func (a *LoyaltyAccount) TierExpired(at time.Time) bool {
	return a.tierID != "" && a.tierExpiresAt != nil && !at.Before(*a.tierExpiresAt)
}

func (a *LoyaltyAccount) eventBase(at time.Time) EventBase {
	return newEventBase(KindLoyaltyAccount, a.ID(), at)
}

// AddPoints credits both balance and lifetime total.
func (a *LoyaltyAccount) AddPoints(points int64, reason string) ([]Event, error) {
	if err := a.ensureActive(); err != nil {
		return nil, err
	}
	if err := FirstError(Positive("points", points), MaxLength("reason", reason, maxReasonLength)); err != nil {
		return nil, err
	}
	if a.lifetimePoints > math.MaxInt64-points {
		return nil, Invalid("points", "points would overflow the lifetime total")
	}
	next := *a
	at := next.touch()
	next.balance += points
	next.lifetimePoints += points
	return commit(a, next, PointsAdded{
		EventBase: a.eventBase(at),
		Points:    points,
		Balance:   next.balance,
		Lifetime:  next.lifetimePoints,
		Reason:    reason,
	})
}

// DeductPoints debits the balance; the lifetime total is unchanged.
func (a *LoyaltyAccount) DeductPoints(points int64, reason string) ([]Event, error) {
	if err := a.ensureActive(); err != nil {
		return nil, err
	}
	if err := FirstError(Positive("points", points), MaxLength("reason", reason, maxReasonLength)); err != nil {
		return nil, err
	}
	if points > a.balance {
		return nil, violation(ErrInsufficientBalance, "requested %d, balance %d", points, a.balance)
	}
	next := *a
	at := next.touch()
	next.balance -= points
	return commit(a, next, PointsDeducted{
		EventBase: a.eventBase(at),
		Points:    points,
		Balance:   next.balance,
		Reason:    reason,
	})
}

// AssignTier sets the tier independent of the balance. Re-assigning the same
// tier with the same expiry is a no-op.
func (a *LoyaltyAccount) AssignTier(tierID string, expiresAt *time.Time) ([]Event, error) {
	if err := a.ensureActive(); err != nil {
		return nil, err
	}
	if err := FirstError(NotEmpty("tier_id", tierID), MaxLength("tier_id", tierID, maxPaymentFieldLength)); err != nil {
		return nil, err
	}
	expires := utcPtr(expiresAt)
	if tierID == a.tierID && sameTime(expires, a.tierExpiresAt) {
		return nil, nil
	}
	next := *a
	at := next.touch()
	if expires != nil && !expires.After(at) {
		return nil, Invalid("expires_at", "tier expiry must be in the future")
	}
	next.tierID = tierID
	next.tierAchievedAt = &at
	next.tierExpiresAt = expires
	return commit(a, next, TierChanged{
		EventBase:    a.eventBase(at),
		PreviousTier: a.tierID,
		Tier:         tierID,
		ExpiresAt:    copyTime(expires),
	})
}

// ClearTier removes the tier. Clearing an account without a tier is a no-op.
func (a *LoyaltyAccount) ClearTier() ([]Event, error) {
	if err := a.ensureActive(); err != nil {
		return nil, err
	}
	if a.tierID == "" {
		return nil, nil
	}
	next := *a
	at := next.touch()
	next.tierID = ""
	next.tierAchievedAt = nil
	next.tierExpiresAt = nil
	return commit(a, next, TierChanged{EventBase: a.eventBase(at), PreviousTier: a.tierID})
}

// Delete is refused while points remain on the balance.
func (a *LoyaltyAccount) Delete() ([]Event, error) {
	if a.IsDeleted() {
		return nil, nil
	}
	if a.balance > 0 {
		return nil, violation(ErrDeletionNotAllowed, "balance is %d", a.balance)
	}
	next := *a
	at := next.markDeleted()
	return commit(a, next, LoyaltyAccountDeleted{EventBase: a.eventBase(at)})
}

func (a *LoyaltyAccount) Validate() error {
	if err := FirstError(
		a.Root.validate(),
		NotEmpty("customer_id", a.customerID),
		NonNegative("balance", a.balance),
		NonNegative("lifetime_points", a.lifetimePoints),
	); err != nil {
		return err
	}
	if a.balance > a.lifetimePoints {
		return violation(ErrInvariantViolation, "balance %d exceeds lifetime points %d", a.balance, a.lifetimePoints)
	}
	if a.tierID == "" && (a.tierAchievedAt != nil || a.tierExpiresAt != nil) {
		return violation(ErrInvariantViolation, "tier dates set without a tier")
	}
	if a.tierAchievedAt != nil && a.tierExpiresAt != nil && a.tierExpiresAt.Before(*a.tierAchievedAt) {
		return violation(ErrInvariantViolation, "tier expires before it was achieved")
	}
	return nil
}

// LoyaltyAccountSnapshot is the serialized state of a LoyaltyAccount.
type LoyaltyAccountSnapshot struct {
	RootSnapshot
	CustomerID     string     `json:"customer_id"`
	Balance        int64      `json:"balance"`
	LifetimePoints int64      `json:"lifetime_points"`
	TierID         string     `json:"tier_id,omitempty"`
	TierAchievedAt *time.Time `json:"tier_achieved_at,omitempty"`
	TierExpiresAt  *time.Time `json:"tier_expires_at,omitempty"`
}

func (a *LoyaltyAccount) Snapshot() LoyaltyAccountSnapshot {
	return LoyaltyAccountSnapshot{
		RootSnapshot:   a.snapshot(),
		CustomerID:     a.customerID,
		Balance:        a.balance,
		LifetimePoints: a.lifetimePoints,
		TierID:         a.tierID,
		TierAchievedAt: copyTime(a.tierAchievedAt),
		TierExpiresAt:  copyTime(a.tierExpiresAt),
	}
}

func RestoreLoyaltyAccount(s LoyaltyAccountSnapshot) (*LoyaltyAccount, error) {
	root, err := restoreRoot(s.RootSnapshot)
	if err != nil {
		return nil, err
	}
	a := &LoyaltyAccount{
		Root:           root,
		customerID:     s.CustomerID,
		balance:        s.Balance,
		lifetimePoints: s.LifetimePoints,
		tierID:         s.TierID,
		tierAchievedAt: utcPtr(s.TierAchievedAt),
		tierExpiresAt:  utcPtr(s.TierExpiresAt),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
