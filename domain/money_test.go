package domain

import (
	"encoding/json"
	"testing"

	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("150.00", "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency())
	assert.Equal(t, "150.00 USD", m.String())

	_, err = ParseMoney("-1", "USD")
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	_, err = ParseMoney("1.005", "USD")
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	_, err = ParseMoney("abc", "USD")
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	_, err = ParseMoney("1", "US")
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustMoney("10.50", "USD")
	b := MustMoney("0.50", "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustMoney("11", "USD")))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(MustMoney("10", "USD")))

	_, err = b.Sub(a)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))

	_, err = a.Add(MustMoney("1", "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	cmp, err := a.Compare(b)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)
}

func TestMoney_JSON(t *testing.T) {
	raw, err := json.Marshal(MustMoney("19.90", "EUR"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"19.90","currency":"EUR"}`, string(raw))

	var m Money
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.True(t, m.Equal(MustMoney("19.9", "EUR")))

	err = json.Unmarshal([]byte(`{"amount":"-3","currency":"EUR"}`), &m)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
}

func TestPercentage(t *testing.T) {
	p, err := ParsePercentage("15")
	require.NoError(t, err)

	share, err := p.Of(MustMoney("200.00", "USD"))
	require.NoError(t, err)
	assert.True(t, share.Equal(MustMoney("30", "USD")))

	_, err = ParsePercentage("100.01")
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	_, err = ParsePercentage("-1")
	assert.True(t, IsDomainError(err, ErrCodeInvalid))

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var decoded Percentage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 0, decoded.Value().Cmp(p.Value()))
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &decoded))
	assert.Equal(t, "12.5%", decoded.String())
}

func TestDiscountOf(t *testing.T) {
	pct, err := DiscountOf(MustMoney("100.00", "USD"), MustMoney("59.99", "USD"))
	require.NoError(t, err)
	assert.Equal(t, 0, pct.Value().Cmp(decimal.MustParse("40.01")))

	pct, err = DiscountOf(MustMoney("30.00", "USD"), MustMoney("20.00", "USD"))
	require.NoError(t, err)
	assert.Equal(t, 0, pct.Value().Cmp(decimal.MustParse("33.33")))

	_, err = DiscountOf(MustMoney("20.00", "USD"), MustMoney("30.00", "USD"))
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
	_, err = DiscountOf(MustMoney("20.00", "USD"), MustMoney("10.00", "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}
