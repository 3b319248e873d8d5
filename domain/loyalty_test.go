package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoyaltyAccount(t *testing.T) *LoyaltyAccount {
	t.Helper()
	account, events, err := NewLoyaltyAccount("customer-1")
	require.NoError(t, err)
	require.Equal(t, []string{"loyalty.account_opened"}, eventNames(events))
	return account
}

func TestLoyaltyAccount_PointsLedger(t *testing.T) {
	account := newTestLoyaltyAccount(t)

	events, err := account.AddPoints(500, "order-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"loyalty.points_added"}, eventNames(events))

	events, err = account.DeductPoints(200, "voucher")
	require.NoError(t, err)
	assert.Equal(t, []string{"loyalty.points_deducted"}, eventNames(events))
	assert.Equal(t, int64(300), account.Balance())
	assert.Equal(t, int64(500), account.LifetimePoints())

	events, err = account.DeductPoints(400, "too much")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, events)
	assert.Equal(t, int64(300), account.Balance())
	assert.Equal(t, int64(500), account.LifetimePoints())
}

func TestLoyaltyAccountID(t *testing.T) {
	a, _, err := NewLoyaltyAccount("customer-1")
	require.NoError(t, err)
	b, _, err := NewLoyaltyAccount("customer-1")
	require.NoError(t, err)
	c, _, err := NewLoyaltyAccount("customer-2")
	require.NoError(t, err)

	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, LoyaltyAccountID("customer-1"), a.ID())
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestLoyaltyAccount_RejectsNonPositivePoints(t *testing.T) {
	account := newTestLoyaltyAccount(t)

	_, err := account.AddPoints(0, "")
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	_, err = account.DeductPoints(-5, "")
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
}

func TestLoyaltyAccount_Tier(t *testing.T) {
	clock := freezeClock(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	account := newTestLoyaltyAccount(t)
	expires := clock.AddDate(1, 0, 0)

	events, err := account.AssignTier("gold", &expires)
	require.NoError(t, err)
	changed := events[0].(TierChanged)
	assert.Empty(t, changed.PreviousTier)
	assert.Equal(t, "gold", changed.Tier)
	assert.Equal(t, int64(0), account.Balance())

	events, err = account.AssignTier("gold", &expires)
	assert.NoError(t, err)
	assert.Empty(t, events)

	assert.False(t, account.TierExpired(expires.Add(-time.Second)))
	assert.True(t, account.TierExpired(expires))

	past := clock.Add(-time.Hour)
	_, err = account.AssignTier("platinum", &past)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	assert.Equal(t, "gold", account.TierID())

	events, err = account.ClearTier()
	require.NoError(t, err)
	assert.Equal(t, "gold", events[0].(TierChanged).PreviousTier)
	assert.Empty(t, account.TierID())
	assert.Nil(t, account.TierExpiresAt())

	events, err = account.ClearTier()
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoyaltyAccount_BalanceNeverNegative(t *testing.T) {
	freezeClock(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rng := rand.New(rand.NewSource(7))
	tiers := []string{"", "silver", "gold"}

	for run := 0; run < 50; run++ {
		account := newTestLoyaltyAccount(t)
		for step := 0; step < 40; step++ {
			before := account.Snapshot()
			var (
				events []Event
				err    error
			)
			switch rng.Intn(4) {
			case 0:
				events, err = account.AddPoints(int64(rng.Intn(120)), "order")
			case 1:
				events, err = account.DeductPoints(int64(rng.Intn(200)), "redeem")
			case 2:
				if tier := tiers[rng.Intn(len(tiers))]; tier != "" {
					events, err = account.AssignTier(tier, nil)
				} else {
					events, err = account.ClearTier()
				}
			case 3:
				events, err = account.DeductPoints(account.Balance()+1, "overdraw")
			}

			if err != nil {
				assert.Empty(t, events)
				require.Equal(t, before, account.Snapshot())
			} else {
				assert.LessOrEqual(t, len(events), 1)
			}
			require.GreaterOrEqual(t, account.Balance(), int64(0))
			require.GreaterOrEqual(t, account.LifetimePoints(), before.LifetimePoints)
			require.LessOrEqual(t, account.Balance(), account.LifetimePoints())
			require.NoError(t, account.Validate())
		}
	}
}

func TestLoyaltyAccount_Delete(t *testing.T) {
	account := newTestLoyaltyAccount(t)
	_, err := account.AddPoints(10, "")
	require.NoError(t, err)

	_, err = account.Delete()
	assert.ErrorIs(t, err, ErrDeletionNotAllowed)

	_, err = account.DeductPoints(10, "")
	require.NoError(t, err)
	events, err := account.Delete()
	require.NoError(t, err)
	assert.Equal(t, []string{"loyalty.account_deleted"}, eventNames(events))

	_, err = account.AddPoints(1, "")
	assert.ErrorIs(t, err, ErrAggregateDeleted)
}

func TestRestoreLoyaltyAccount(t *testing.T) {
	account := newTestLoyaltyAccount(t)
	_, err := account.AddPoints(100, "")
	require.NoError(t, err)

	restored, err := RestoreLoyaltyAccount(account.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, account.Snapshot(), restored.Snapshot())

	snap := account.Snapshot()
	snap.Balance = -1
	_, err = RestoreLoyaltyAccount(snap)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))

	snap = account.Snapshot()
	snap.Balance = 101
	_, err = RestoreLoyaltyAccount(snap)
	assert.True(t, IsDomainError(err, ErrCodeInvariant))
}
