package storage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/falcon-storefront/internal/cart"
)

func testCart(t *testing.T) cart.Cart {
	t.Helper()
	return cart.Cart{
		Items: []cart.LineItem{
			{
				Key:          cart.LineItemKey("p1", "Red", "M"),
				ProductID:    "p1",
				Name:         "Falcon Tee",
				UnitPrice:    decimal.RequireFromString("19.99"),
				ImageRef:     "/img/p1.jpg",
				VariantColor: "Red",
				VariantSize:  "M",
				Quantity:     2,
				LineTotal:    decimal.RequireFromString("39.98"),
			},
			{
				Key:       cart.LineItemKey("p2", "", ""),
				ProductID: "p2",
				Name:      "Falcon Cap",
				UnitPrice: decimal.RequireFromString("12.50"),
				ImageRef:  "/img/p2.jpg",
				Quantity:  1,
				LineTotal: decimal.RequireFromString("12.50"),
			},
		},
		TotalQuantity: 3,
		TotalAmount:   decimal.RequireFromString("52.48"),
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	original := testCart(t)

	decoded, err := DecodeSnapshot(EncodeSnapshot(original))
	require.NoError(t, err)

	require.Len(t, decoded.Items, 2)
	for i := range original.Items {
		want, got := original.Items[i], decoded.Items[i]
		assert.Equal(t, want.Key, got.Key)
		assert.Equal(t, want.ProductID, got.ProductID)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.ImageRef, got.ImageRef)
		assert.Equal(t, want.VariantColor, got.VariantColor)
		assert.Equal(t, want.VariantSize, got.VariantSize)
		assert.Equal(t, want.Quantity, got.Quantity)
		assert.True(t, want.UnitPrice.Equal(got.UnitPrice))
		assert.True(t, want.LineTotal.Equal(got.LineTotal))
	}
	assert.Equal(t, original.TotalQuantity, decoded.TotalQuantity)
	assert.True(t, original.TotalAmount.Equal(decoded.TotalAmount))
}

func TestDecodeSnapshot_EmptyObject(t *testing.T) {
	c, err := DecodeSnapshot([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalQuantity)
}

func TestDecodeSnapshot_IgnoresUnknownFields(t *testing.T) {
	data := []byte(`{
		"version": 3,
		"items": [{"lineItemKey":"p1||","productId":"p1","name":"Tee",
			"unitPrice":10,"imageRef":"","variantColor":"","variantSize":"",
			"quantity":2,"lineTotal":20,"legacyField":true}],
		"totalQuantity": 2,
		"totalAmount": 20,
		"savedAt": "2024-01-01T00:00:00Z"
	}`)

	c, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p1", c.Items[0].ProductID)
	assert.Equal(t, 2, c.TotalQuantity)
}

func TestDecodeSnapshot_QuotedNumbers(t *testing.T) {
	// Older clients stringified prices.
	data := []byte(`{"items":[{"lineItemKey":"p1||","productId":"p1",
		"unitPrice":"9.99","quantity":1,"lineTotal":"9.99"}],
		"totalQuantity":1,"totalAmount":"9.99"}`)

	c, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.True(t, decimal.RequireFromString("9.99").Equal(c.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("9.99").Equal(c.TotalAmount))
}

func TestDecodeSnapshot_Corrupt(t *testing.T) {
	for _, data := range [][]byte{
		[]byte("{not json"),
		[]byte(`"a string"`),
		[]byte(`{"items": "nope"}`),
		{},
	} {
		_, err := DecodeSnapshot(data)
		assert.Error(t, err)
	}
}
