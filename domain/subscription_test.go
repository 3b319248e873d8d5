package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var subscriptionStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func testPlan(t *testing.T, trialDays int) Plan {
	t.Helper()
	plan, err := NewPlan("pro-monthly", "Pro", MustMoney("19.00", "USD"), IntervalMonthly, trialDays)
	require.NoError(t, err)
	return plan
}

func newTestSubscription(t *testing.T, plan Plan) *Subscription {
	t.Helper()
	s, events, err := NewSubscription(NewSubscriptionParams{
		CustomerID:    "customer-1",
		Plan:          plan,
		AutoRenew:     true,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"subscription.created"}, eventNames(events))
	return s
}

func TestNewPlan_Validation(t *testing.T) {
	_, err := NewPlan("", "Pro", MustMoney("1", "USD"), IntervalMonthly, 0)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	_, err = NewPlan("p", "Pro", MustMoney("1", "USD"), BillingInterval("weekly"), 0)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	_, err = NewPlan("p", "Pro", MustMoney("0", "USD"), IntervalMonthly, 0)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	_, err = NewPlan("p", "Pro", MustMoney("1", "USD"), IntervalMonthly, -1)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
}

func TestSubscription_TrialConversionAndRenewal(t *testing.T) {
	freezeClock(t, subscriptionStart)
	s := newTestSubscription(t, testPlan(t, 14))

	assert.Equal(t, SubscriptionStatusTrial, s.Status())
	trialEnd := subscriptionStart.AddDate(0, 0, 14)
	require.NotNil(t, s.TrialEndDate())
	assert.Equal(t, trialEnd, *s.TrialEndDate())
	assert.Equal(t, trialEnd.AddDate(0, 1, 0), s.EndDate())

	events, err := s.Renew(testPlan(t, 14))
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "trial", te.From)
	assert.Empty(t, events)

	events, err = s.ConvertTrial()
	require.NoError(t, err)
	assert.Equal(t, []string{"subscription.trial_converted"}, eventNames(events))
	assert.Equal(t, SubscriptionStatusActive, s.Status())

	previousEnd := s.EndDate()
	events, err = s.Renew(testPlan(t, 14))
	require.NoError(t, err)
	renewed := events[0].(SubscriptionRenewed)
	assert.Equal(t, previousEnd, renewed.PreviousEndDate)
	assert.Equal(t, previousEnd.AddDate(0, 1, 0), s.EndDate())
	assert.Equal(t, 1, s.RenewalCount())
}

func TestSubscription_StartsActiveWithoutTrial(t *testing.T) {
	freezeClock(t, subscriptionStart)
	s := newTestSubscription(t, testPlan(t, 0))

	assert.Equal(t, SubscriptionStatusActive, s.Status())
	assert.Nil(t, s.TrialEndDate())
	assert.Equal(t, subscriptionStart.AddDate(0, 1, 0), s.EndDate())

	_, err := s.ConvertTrial()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubscription_RenewRepricesFromPlan(t *testing.T) {
	freezeClock(t, subscriptionStart)
	s := newTestSubscription(t, testPlan(t, 0))

	repriced, err := NewPlan("pro-monthly", "Pro", MustMoney("21.00", "USD"), IntervalQuarterly, 0)
	require.NoError(t, err)
	before := s.EndDate()
	_, err = s.Renew(repriced)
	require.NoError(t, err)
	assert.True(t, s.Price().Equal(MustMoney("21.00", "USD")))
	assert.Equal(t, before.AddDate(0, 3, 0), s.EndDate())

	other, err := NewPlan("basic", "Basic", MustMoney("5.00", "USD"), IntervalMonthly, 0)
	require.NoError(t, err)
	_, err = s.Renew(other)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
}

func TestSubscription_SuspendActivateIdempotent(t *testing.T) {
	freezeClock(t, subscriptionStart)
	s := newTestSubscription(t, testPlan(t, 0))

	events, err := s.Activate()
	assert.NoError(t, err)
	assert.Empty(t, events)

	events, err = s.Suspend()
	require.NoError(t, err)
	assert.Equal(t, []string{"subscription.suspended"}, eventNames(events))

	events, err = s.Suspend()
	assert.NoError(t, err)
	assert.Empty(t, events)

	_, err = s.Renew(testPlan(t, 0))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	events, err = s.Activate()
	require.NoError(t, err)
	assert.Equal(t, []string{"subscription.activated"}, eventNames(events))
}

func TestSubscription_CancelFromSuspended(t *testing.T) {
	freezeClock(t, subscriptionStart)
	s := newTestSubscription(t, testPlan(t, 0))
	_, err := s.Suspend()
	require.NoError(t, err)

	events, err := s.Cancel("moving away")
	require.NoError(t, err)
	assert.Equal(t, []string{"subscription.cancelled"}, eventNames(events))
	assert.False(t, s.AutoRenew())
	assert.NotNil(t, s.CancelledAt())

	_, err = s.Cancel("again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Activate()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.SetAutoRenew(true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubscription_MarkExpired(t *testing.T) {
	freezeClock(t, subscriptionStart)
	s := newTestSubscription(t, testPlan(t, 0))

	events, err := s.MarkExpired(s.EndDate())
	assert.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, SubscriptionStatusActive, s.Status())

	events, err = s.MarkExpired(s.EndDate().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{"subscription.expired"}, eventNames(events))
	assert.Equal(t, SubscriptionStatusExpired, s.Status())

	events, err = s.MarkExpired(s.EndDate().Add(time.Hour))
	assert.NoError(t, err)
	assert.Empty(t, events)

	_, err = s.Cancel("")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubscription_MarkExpiredIgnoresCancelled(t *testing.T) {
	freezeClock(t, subscriptionStart)
	s := newTestSubscription(t, testPlan(t, 0))
	_, err := s.Cancel("")
	require.NoError(t, err)

	events, err := s.MarkExpired(s.EndDate().AddDate(1, 0, 0))
	assert.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, SubscriptionStatusCancelled, s.Status())
}

func TestSubscriptionTransitionTable_IsClosed(t *testing.T) {
	for _, from := range SubscriptionStatuses() {
		for _, op := range SubscriptionOperations() {
			next, err := NextSubscriptionStatus(from, op)
			if err != nil {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s/%s", from, op)
				assert.Equal(t, from, next)
				continue
			}
			assert.True(t, next.Valid(), "%s/%s", from, op)
			if from.IsTerminal() {
				assert.Equal(t, from, next, "terminal %s must not leave via %s", from, op)
			}
		}
	}
}

func TestSubscription_Delete(t *testing.T) {
	freezeClock(t, subscriptionStart)
	s := newTestSubscription(t, testPlan(t, 0))

	_, err := s.Delete()
	assert.ErrorIs(t, err, ErrDeletionNotAllowed)

	_, err = s.Cancel("")
	require.NoError(t, err)
	events, err := s.Delete()
	require.NoError(t, err)
	assert.Equal(t, []string{"subscription.deleted"}, eventNames(events))
}

func TestRestoreSubscription(t *testing.T) {
	freezeClock(t, subscriptionStart)
	s := newTestSubscription(t, testPlan(t, 7))

	restored, err := RestoreSubscription(s.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), restored.Snapshot())

	snap := s.Snapshot()
	snap.EndDate = snap.StartDate
	_, err = RestoreSubscription(snap)
	assert.True(t, IsDomainError(err, ErrCodeInvariant))
}
