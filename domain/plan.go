package domain

import "time"

// BillingInterval is how often a subscription renews.
type BillingInterval string

const (
	IntervalMonthly   BillingInterval = "monthly"
	IntervalQuarterly BillingInterval = "quarterly"
	IntervalYearly    BillingInterval = "yearly"
)

func (i BillingInterval) Valid() bool {
	switch i {
	case IntervalMonthly, IntervalQuarterly, IntervalYearly:
		return true
	}
	return false
}

// AddTo advances t by one interval using calendar arithmetic.
func (i BillingInterval) AddTo(t time.Time) time.Time {
	switch i {
	case IntervalQuarterly:
		return t.AddDate(0, 3, 0)
	case IntervalYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

const maxTrialDays = 365

// Plan is the catalog entry a subscription snapshots its price and interval from.
type Plan struct {
	id        string
	name      string
	price     Money
	interval  BillingInterval
	trialDays int
}

func NewPlan(id, name string, price Money, interval BillingInterval, trialDays int) (Plan, error) {
	if err := FirstError(
		NotEmpty("plan_id", id),
		NotEmpty("name", name),
		InRange("trial_days", trialDays, 0, maxTrialDays),
	); err != nil {
		return Plan{}, err
	}
	if !price.IsSet() || !price.IsPositive() {
		return Plan{}, Invalid("price", "plan price must be greater than zero")
	}
	if !interval.Valid() {
		return Plan{}, Invalid("interval", "unknown billing interval %q", interval)
	}
	return Plan{id: id, name: name, price: price, interval: interval, trialDays: trialDays}, nil
}

func (p Plan) ID() string                { return p.id }
func (p Plan) Name() string              { return p.name }
func (p Plan) Price() Money              { return p.price }
func (p Plan) Interval() BillingInterval { return p.interval }
func (p Plan) TrialDays() int            { return p.trialDays }
