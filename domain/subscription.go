package domain

import "time"

type SubscriptionCreated struct {
	EventBase
	CustomerID   string             `json:"customer_id"`
	PlanID       string             `json:"plan_id"`
	Status       SubscriptionStatus `json:"status"`
	Price        Money              `json:"price"`
	StartDate    time.Time          `json:"start_date"`
	EndDate      time.Time          `json:"end_date"`
	TrialEndDate *time.Time         `json:"trial_end_date,omitempty"`
}

func (SubscriptionCreated) EventName() string { return "subscription.created" }

type SubscriptionTrialConverted struct {
	EventBase
}

func (SubscriptionTrialConverted) EventName() string { return "subscription.trial_converted" }

type SubscriptionRenewed struct {
	EventBase
	PreviousEndDate time.Time `json:"previous_end_date"`
	EndDate         time.Time `json:"end_date"`
	Price           Money     `json:"price"`
	RenewalCount    int       `json:"renewal_count"`
}

func (SubscriptionRenewed) EventName() string { return "subscription.renewed" }

type SubscriptionSuspended struct {
	EventBase
}

func (SubscriptionSuspended) EventName() string { return "subscription.suspended" }

type SubscriptionActivated struct {
	EventBase
}

func (SubscriptionActivated) EventName() string { return "subscription.activated" }

type SubscriptionCancelled struct {
	EventBase
	Reason string `json:"reason,omitempty"`
}

func (SubscriptionCancelled) EventName() string { return "subscription.cancelled" }

type SubscriptionExpired struct {
	EventBase
	EndDate time.Time `json:"end_date"`
}

func (SubscriptionExpired) EventName() string { return "subscription.expired" }

type SubscriptionAutoRenewChanged struct {
	EventBase
	AutoRenew bool `json:"auto_renew"`
}

func (SubscriptionAutoRenewChanged) EventName() string { return "subscription.auto_renew_changed" }

type SubscriptionDeleted struct {
	EventBase
}

func (SubscriptionDeleted) EventName() string { return "subscription.deleted" }

// Subscription is a recurring plan a customer is billed for. Price and
// interval are snapshotted from the plan at creation and on every renewal.
type Subscription struct {
	Root
	customerID    string
	planID        string
	status        SubscriptionStatus
	price         Money
	interval      BillingInterval
	startDate     time.Time
	endDate       time.Time
	trialEndDate  *time.Time
	autoRenew     bool
	paymentMethod string
	renewalCount  int
	cancelReason  string
	cancelledAt   *time.Time
}

// NewSubscriptionParams groups the inputs of NewSubscription.
type NewSubscriptionParams struct {
	CustomerID    string
	Plan          Plan
	AutoRenew     bool
	PaymentMethod string
}

// NewSubscription starts in trial when the plan has trial days, otherwise active.
func NewSubscription(p NewSubscriptionParams) (*Subscription, []Event, error) {
	if err := FirstError(
		NotEmpty("customer_id", p.CustomerID),
		MaxLength("customer_id", p.CustomerID, maxPaymentFieldLength),
		MaxLength("payment_method", p.PaymentMethod, maxPaymentFieldLength),
	); err != nil {
		return nil, nil, err
	}
	if p.Plan.ID() == "" {
		return nil, nil, Invalid("plan", "plan is required")
	}

	root := newRoot()
	start := root.CreatedAt()
	s := &Subscription{
		Root:          root,
		customerID:    p.CustomerID,
		planID:        p.Plan.ID(),
		price:         p.Plan.Price(),
		interval:      p.Plan.Interval(),
		startDate:     start,
		autoRenew:     p.AutoRenew,
		paymentMethod: p.PaymentMethod,
	}
	if days := p.Plan.TrialDays(); days > 0 {
		trialEnd := start.AddDate(0, 0, days)
		s.status = SubscriptionStatusTrial
		s.trialEndDate = &trialEnd
		s.endDate = s.interval.AddTo(trialEnd)
	} else {
		s.status = SubscriptionStatusActive
		s.endDate = s.interval.AddTo(start)
	}
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	return s, []Event{SubscriptionCreated{
		EventBase:    s.eventBase(start),
		CustomerID:   s.customerID,
		PlanID:       s.planID,
		Status:       s.status,
		Price:        s.price,
		StartDate:    s.startDate,
		EndDate:      s.endDate,
		TrialEndDate: copyTime(s.trialEndDate),
	}}, nil
}

func (s *Subscription) Kind() string                { return KindSubscription }
func (s *Subscription) CustomerID() string          { return s.customerID }
func (s *Subscription) PlanID() string              { return s.planID }
func (s *Subscription) Status() SubscriptionStatus  { return s.status }
func (s *Subscription) Price() Money                { return s.price }
func (s *Subscription) Interval() BillingInterval   { return s.interval }
func (s *Subscription) StartDate() time.Time        { return s.startDate }
func (s *Subscription) EndDate() time.Time          { return s.endDate }
func (s *Subscription) TrialEndDate() *time.Time    { return copyTime(s.trialEndDate) }
func (s *Subscription) AutoRenew() bool             { return s.autoRenew }
func (s *Subscription) PaymentMethod() string       { return s.paymentMethod }
func (s *Subscription) RenewalCount() int           { return s.renewalCount }
func (s *Subscription) CancelReason() string        { return s.cancelReason }
func (s *Subscription) CancelledAt() *time.Time     { return copyTime(s.cancelledAt) }

// IsDue reports whether the paid period has ended at at.
func (s *Subscription) IsDue(at time.Time) bool {
	return at.After(s.endDate)
}

func (s *Subscription) eventBase(at time.Time) EventBase {
	return newEventBase(KindSubscription, s.ID(), at)
}

func (s *Subscription) transition(op SubscriptionOperation) (Subscription, error) {
	if err := s.ensureActive(); err != nil {
		return Subscription{}, err
	}
	target, err := NextSubscriptionStatus(s.status, op)
	if err != nil {
		return Subscription{}, err
	}
	next := *s
	next.status = target
	return next, nil
}

// ConvertTrial ends the trial and makes the subscription active.
func (s *Subscription) ConvertTrial() ([]Event, error) {
	next, err := s.transition(SubscriptionOpConvert)
	if err != nil {
		return nil, err
	}
	at := next.touch()
	return commit(s, next, SubscriptionTrialConverted{EventBase: s.eventBase(at)})
}

// Renew extends the end date by one interval of plan and re-snapshots its
// price. The plan must be the one the subscription was created with.
func (s *Subscription) Renew(plan Plan) ([]Event, error) {
	next, err := s.transition(SubscriptionOpRenew)
	if err != nil {
		return nil, err
	}
	if plan.ID() != s.planID {
		return nil, Invalid("plan", "plan %q does not match subscription plan %q", plan.ID(), s.planID)
	}
	at := next.touch()
	next.price = plan.Price()
	next.interval = plan.Interval()
	next.endDate = next.interval.AddTo(s.endDate)
	next.renewalCount++
	return commit(s, next, SubscriptionRenewed{
		EventBase:       s.eventBase(at),
		PreviousEndDate: s.endDate,
		EndDate:         next.endDate,
		Price:           next.price,
		RenewalCount:    next.renewalCount,
	})
}

// Suspend pauses an active subscription. Suspending twice is a no-op.
func (s *Subscription) Suspend() ([]Event, error) {
	next, err := s.transition(SubscriptionOpSuspend)
	if err != nil {
		return nil, err
	}
	if s.status == SubscriptionStatusSuspended {
		return nil, nil
	}
	at := next.touch()
	return commit(s, next, SubscriptionSuspended{EventBase: s.eventBase(at)})
}

// Activate resumes a suspended subscription. Activating an active one is a no-op.
func (s *Subscription) Activate() ([]Event, error) {
	next, err := s.transition(SubscriptionOpActivate)
	if err != nil {
		return nil, err
	}
	if s.status == SubscriptionStatusActive {
		return nil, nil
	}
	at := next.touch()
	return commit(s, next, SubscriptionActivated{EventBase: s.eventBase(at)})
}

// Cancel ends the subscription and turns auto-renew off.
func (s *Subscription) Cancel(reason string) ([]Event, error) {
	next, err := s.transition(SubscriptionOpCancel)
	if err != nil {
		return nil, err
	}
	if err := MaxLength("reason", reason, maxReasonLength); err != nil {
		return nil, err
	}
	at := next.touch()
	next.autoRenew = false
	next.cancelReason = reason
	next.cancelledAt = &at
	return commit(s, next, SubscriptionCancelled{EventBase: s.eventBase(at), Reason: reason})
}

// MarkExpired moves the subscription to expired once at is past the end date.
// It is a no-op before that, on cancelled subscriptions and on expired ones.
func (s *Subscription) MarkExpired(at time.Time) ([]Event, error) {
	if s.IsDeleted() || s.status == SubscriptionStatusExpired || s.status == SubscriptionStatusCancelled {
		return nil, nil
	}
	if !s.IsDue(at) {
		return nil, nil
	}
	next, err := s.transition(SubscriptionOpExpire)
	if err != nil {
		return nil, err
	}
	stamp := next.touch()
	return commit(s, next, SubscriptionExpired{EventBase: s.eventBase(stamp), EndDate: s.endDate})
}

// SetAutoRenew toggles renewal. Cancelled and expired subscriptions cannot be re-enabled.
func (s *Subscription) SetAutoRenew(enabled bool) ([]Event, error) {
	if err := s.ensureActive(); err != nil {
		return nil, err
	}
	if enabled == s.autoRenew {
		return nil, nil
	}
	if enabled && s.status.IsTerminal() {
		return nil, newTransitionError(KindSubscription, "enable_auto_renew", string(s.status), "")
	}
	next := *s
	at := next.touch()
	next.autoRenew = enabled
	return commit(s, next, SubscriptionAutoRenewChanged{EventBase: s.eventBase(at), AutoRenew: enabled})
}

// Delete is only allowed once the subscription is cancelled or expired.
func (s *Subscription) Delete() ([]Event, error) {
	if s.IsDeleted() {
		return nil, nil
	}
	if !s.status.IsTerminal() {
		return nil, violation(ErrDeletionNotAllowed, "subscription is %s", s.status)
	}
	next := *s
	at := next.markDeleted()
	return commit(s, next, SubscriptionDeleted{EventBase: s.eventBase(at)})
}

func (s *Subscription) Validate() error {
	if err := FirstError(
		s.Root.validate(),
		NotEmpty("customer_id", s.customerID),
		NotEmpty("plan_id", s.planID),
		NonNegative("renewal_count", s.renewalCount),
	); err != nil {
		return err
	}
	if !s.status.Valid() {
		return Invalid("status", "unknown subscription status %q", s.status)
	}
	if !s.interval.Valid() {
		return Invalid("interval", "unknown billing interval %q", s.interval)
	}
	if !s.price.IsPositive() {
		return Invalid("price", "price must be greater than zero")
	}
	if !s.endDate.After(s.startDate) {
		return violation(ErrInvariantViolation, "end date must follow start date")
	}
	if s.trialEndDate != nil && (s.trialEndDate.Before(s.startDate) || s.trialEndDate.After(s.endDate)) {
		return violation(ErrInvariantViolation, "trial end must fall within the subscription period")
	}
	if s.status == SubscriptionStatusTrial && s.trialEndDate == nil {
		return violation(ErrInvariantViolation, "trial subscription requires a trial end date")
	}
	if s.status == SubscriptionStatusCancelled && (s.cancelledAt == nil || s.autoRenew) {
		return violation(ErrInvariantViolation, "cancelled subscription requires cancelled_at and auto-renew off")
	}
	return nil
}

// SubscriptionSnapshot is the serialized state of a Subscription.
type SubscriptionSnapshot struct {
	RootSnapshot
	CustomerID    string             `json:"customer_id"`
	PlanID        string             `json:"plan_id"`
	Status        SubscriptionStatus `json:"status"`
	Price         Money              `json:"price"`
	Interval      BillingInterval    `json:"interval"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       time.Time          `json:"end_date"`
	TrialEndDate  *time.Time         `json:"trial_end_date,omitempty"`
	AutoRenew     bool               `json:"auto_renew"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	RenewalCount  int                `json:"renewal_count"`
	CancelReason  string             `json:"cancel_reason,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
}

func (s *Subscription) Snapshot() SubscriptionSnapshot {
	return SubscriptionSnapshot{
		RootSnapshot:  s.snapshot(),
		CustomerID:    s.customerID,
		PlanID:        s.planID,
		Status:        s.status,
		Price:         s.price,
		Interval:      s.interval,
		StartDate:     s.startDate,
		EndDate:       s.endDate,
		TrialEndDate:  copyTime(s.trialEndDate),
		AutoRenew:     s.autoRenew,
		PaymentMethod: s.paymentMethod,
		RenewalCount:  s.renewalCount,
		CancelReason:  s.cancelReason,
		CancelledAt:   copyTime(s.cancelledAt),
	}
}

func RestoreSubscription(snap SubscriptionSnapshot) (*Subscription, error) {
	root, err := restoreRoot(snap.RootSnapshot)
	if err != nil {
		return nil, err
	}
	s := &Subscription{
		Root:          root,
		customerID:    snap.CustomerID,
		planID:        snap.PlanID,
		status:        snap.Status,
		price:         snap.Price,
		interval:      snap.Interval,
		startDate:     snap.StartDate.UTC(),
		endDate:       snap.EndDate.UTC(),
		trialEndDate:  utcPtr(snap.TrialEndDate),
		autoRenew:     snap.AutoRenew,
		paymentMethod: snap.PaymentMethod,
		renewalCount:  snap.RenewalCount,
		cancelReason:  snap.CancelReason,
		cancelledAt:   utcPtr(snap.CancelledAt),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
