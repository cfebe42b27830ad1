package promo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/falcon-storefront/internal/cart"
)

func cartWithTotal(total string) cart.Cart {
	c := cart.Empty()
	c.TotalAmount = decimal.RequireFromString(total)
	return c
}

func TestQuote_BuiltinCodes(t *testing.T) {
	v := NewValidator(nil)
	c := cartWithTotal("200.00")

	d, err := v.Quote("SAVE10", c)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", d.Code)
	assert.True(t, decimal.RequireFromString("20.00").Equal(d.Amount))

	d, err = v.Quote("SAVE20", c)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("40.00").Equal(d.Amount))
}

func TestQuote_CaseInsensitive(t *testing.T) {
	v := NewValidator(nil)

	for _, code := range []string{"save10", "Save10", " SAVE10 "} {
		d, err := v.Quote(code, cartWithTotal("50.00"))
		require.NoError(t, err, code)
		assert.True(t, decimal.RequireFromString("5.00").Equal(d.Amount))
	}
}

func TestQuote_InvalidCode(t *testing.T) {
	v := NewValidator(nil)

	for _, code := range []string{"BOGUS", "", "  "} {
		_, err := v.Quote(code, cartWithTotal("50.00"))
		assert.ErrorIs(t, err, ErrInvalidCode, code)
	}
}

func TestQuote_RoundsToCents(t *testing.T) {
	v := NewValidator(nil)

	d, err := v.Quote("SAVE10", cartWithTotal("9.99"))
	require.NoError(t, err)
	// 0.999 rounds to 1.00.
	assert.True(t, decimal.RequireFromString("1.00").Equal(d.Amount))
}

func TestQuote_EmptyCart(t *testing.T) {
	v := NewValidator(nil)

	d, err := v.Quote("SAVE20", cart.Empty())
	require.NoError(t, err)
	assert.True(t, d.Amount.IsZero())
}

func TestQuote_BulkCodeSet(t *testing.T) {
	set := newCodeSet([]string{"HAPPYHRS", "GNULINUX"})
	v := NewValidator(set)

	d, err := v.Quote("happyhrs", cartWithTotal("100.00"))
	require.NoError(t, err)
	assert.Equal(t, "HAPPYHRS", d.Code)
	assert.True(t, decimal.RequireFromString("10.00").Equal(d.Amount))

	// Built-ins win over the bulk rule.
	d, err = v.Quote("SAVE20", cartWithTotal("100.00"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("20.00").Equal(d.Amount))

	_, err = v.Quote("UNKNOWNX", cartWithTotal("100.00"))
	assert.ErrorIs(t, err, ErrInvalidCode)
}
