package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/falcon-storefront/internal/cart"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cart.json"), zap.NewNop())
	require.NoError(t, err)
	return s
}

func sampleCart() cart.Cart {
	c := cart.Empty()
	c.Items = []cart.LineItem{{
		Key:          cart.LineItemKey("p1", "Red", "M"),
		ProductID:    "p1",
		Name:         "Falcon Tee",
		UnitPrice:    decimal.RequireFromString("19.99"),
		ImageRef:     "/img/p1.jpg",
		VariantColor: "Red",
		VariantSize:  "M",
		Quantity:     2,
		LineTotal:    decimal.RequireFromString("39.98"),
	}}
	c.TotalQuantity = 2
	c.TotalAmount = decimal.RequireFromString("39.98")
	return c
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleCart()))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "p1", loaded.Items[0].ProductID)
	assert.Equal(t, 2, loaded.TotalQuantity)
	assert.True(t, decimal.RequireFromString("39.98").Equal(loaded.TotalAmount))
}

func TestLoad_MissingFile(t *testing.T) {
	s := newTestStore(t)

	c, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.TotalQuantity)
	assert.True(t, c.TotalAmount.IsZero())
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cart.json")
	require.NoError(t, os.WriteFile(path, []byte("{definitely not json"), 0o644))

	s, err := New(path, zap.NewNop())
	require.NoError(t, err)

	c, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestSave_Overwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleCart()))
	require.NoError(t, s.Save(ctx, cart.Empty()))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestNew_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "cart.json")
	s, err := New(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), sampleCart()))
	_, err = os.Stat(path)
	require.NoError(t, err)
}
