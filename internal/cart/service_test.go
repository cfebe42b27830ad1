package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock store ---

type mockStore struct {
	mu      sync.Mutex
	saved   []Cart
	initial Cart
	loadErr error
	saveErr error
}

func (m *mockStore) Load(_ context.Context) (Cart, error) {
	if m.loadErr != nil {
		return Empty(), m.loadErr
	}
	if m.initial.Items == nil {
		return Empty(), nil
	}
	return m.initial.Clone(), nil
}

func (m *mockStore) Save(_ context.Context, c Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, c.Clone())
	return nil
}

func (m *mockStore) last() (Cart, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return Cart{}, false
	}
	return m.saved[len(m.saved)-1], true
}

// --- Helpers ---

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	svc := NewService(context.Background(), store, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Close(ctx)
	})
	return svc
}

func addReq(productID, color, size string, qty int, unitPrice string) AddRequest {
	return AddRequest{
		ProductID:    productID,
		Name:         "Test Product",
		UnitPrice:    price(unitPrice),
		ImageRef:     "/img/" + productID + ".jpg",
		VariantColor: color,
		VariantSize:  size,
		Quantity:     qty,
	}
}

// requireInvariants checks the structural invariants that must hold after
// every operation: key uniqueness, exact line totals, and aggregates equal to
// an independent fold over the items.
func requireInvariants(t *testing.T, c Cart) {
	t.Helper()

	seen := make(map[string]struct{})
	wantQty := 0
	wantAmount := decimal.Zero
	for _, it := range c.Items {
		_, dup := seen[it.Key]
		require.Falsef(t, dup, "duplicate line item key %q", it.Key)
		seen[it.Key] = struct{}{}

		require.GreaterOrEqual(t, it.Quantity, 1)
		wantLine := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		require.Truef(t, wantLine.Equal(it.LineTotal),
			"line total %s != %s for %q", it.LineTotal, wantLine, it.Key)

		wantQty += it.Quantity
		wantAmount = wantAmount.Add(wantLine)
	}
	require.Equal(t, wantQty, c.TotalQuantity)
	require.Truef(t, wantAmount.Equal(c.TotalAmount),
		"total amount %s != %s", c.TotalAmount, wantAmount)
}

// --- AddItem ---

func TestAddItem_NewLine(t *testing.T) {
	svc := newTestService(t, &mockStore{})

	c, err := svc.AddItem(addReq("p1", "Red", "M", 2, "10.00"))
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, LineItemKey("p1", "Red", "M"), c.Items[0].Key)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.True(t, price("20.00").Equal(c.Items[0].LineTotal))
	assert.Equal(t, 2, c.TotalQuantity)
	assert.True(t, price("20.00").Equal(c.TotalAmount))
	requireInvariants(t, c)
}

func TestAddItem_MergesSameVariant(t *testing.T) {
	svc := newTestService(t, &mockStore{})

	_, err := svc.AddItem(addReq("p1", "Red", "M", 2, "10.00"))
	require.NoError(t, err)
	c, err := svc.AddItem(addReq("p1", "Red", "M", 3, "10.00"))
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.True(t, price("50.00").Equal(c.Items[0].LineTotal))
	requireInvariants(t, c)
}

func TestAddItem_DistinctVariantsDoNotMerge(t *testing.T) {
	svc := newTestService(t, &mockStore{})

	_, err := svc.AddItem(addReq("p1", "Red", "M", 1, "10.00"))
	require.NoError(t, err)
	c, err := svc.AddItem(addReq("p1", "Blue", "M", 1, "10.00"))
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	assert.Equal(t, 2, c.TotalQuantity)
	assert.True(t, price("20.00").Equal(c.TotalAmount))
	requireInvariants(t, c)
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	svc := newTestService(t, &mockStore{})

	req := addReq("p1", "", "", 0, "5.00")
	c, err := svc.AddItem(req)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestAddItem_PreservesInsertionOrder(t *testing.T) {
	svc := newTestService(t, &mockStore{})

	for _, id := range []string{"p3", "p1", "p2"} {
		_, err := svc.AddItem(addReq(id, "", "", 1, "1.00"))
		require.NoError(t, err)
	}
	// Merging into p1 must not move it.
	c, err := svc.AddItem(addReq("p1", "", "", 1, "1.00"))
	require.NoError(t, err)

	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	assert.Equal(t, []string{"p3", "p1", "p2"}, ids)
}

func TestAddItem_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		req   AddRequest
		field string
	}{
		{"missing product id", addReq("", "Red", "M", 1, "10.00"), "productId"},
		{"negative price", addReq("p1", "Red", "M", 1, "-0.01"), "unitPrice"},
		{"negative quantity", addReq("p1", "Red", "M", -2, "10.00"), "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			svc := newTestService(t, store)

			_, err := svc.AddItem(tt.req)

			var invalid *InvalidItemError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)

			// Nothing mutated, nothing persisted.
			assert.True(t, svc.Snapshot().IsEmpty())
			require.NoError(t, svc.Flush(context.Background()))
			_, saved := store.last()
			assert.False(t, saved)
		})
	}
}

// --- UpdateQuantity ---

func TestUpdateQuantity(t *testing.T) {
	svc := newTestService(t, &mockStore{})
	c, err := svc.AddItem(addReq("p1", "Red", "M", 1, "10.00"))
	require.NoError(t, err)
	key := c.Items[0].Key

	c = svc.UpdateQuantity(key, 4)
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.True(t, price("40.00").Equal(c.TotalAmount))
	requireInvariants(t, c)
}

func TestUpdateQuantity_BelowMinimumIsNoOp(t *testing.T) {
	svc := newTestService(t, &mockStore{})
	c, err := svc.AddItem(addReq("p1", "Red", "M", 1, "10.00"))
	require.NoError(t, err)
	key := c.Items[0].Key

	for _, qty := range []int{0, -1} {
		c = svc.UpdateQuantity(key, qty)
		assert.Equal(t, 1, c.Items[0].Quantity)
	}
}

func TestUpdateQuantity_UnknownKeyIsNoOp(t *testing.T) {
	svc := newTestService(t, &mockStore{})
	before, err := svc.AddItem(addReq("p1", "Red", "M", 2, "10.00"))
	require.NoError(t, err)

	after := svc.UpdateQuantity("missing||", 5)
	assert.Equal(t, before, after)
}

// --- RemoveItem ---

func TestRemoveItem(t *testing.T) {
	svc := newTestService(t, &mockStore{})
	_, err := svc.AddItem(addReq("p1", "Red", "M", 2, "10.00"))
	require.NoError(t, err)
	c, err := svc.AddItem(addReq("p2", "", "", 1, "3.50"))
	require.NoError(t, err)

	c = svc.RemoveItem(LineItemKey("p1", "Red", "M"))
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p2", c.Items[0].ProductID)
	assert.True(t, price("3.50").Equal(c.TotalAmount))
	requireInvariants(t, c)
}

func TestRemoveItem_Idempotent(t *testing.T) {
	svc := newTestService(t, &mockStore{})
	_, err := svc.AddItem(addReq("p1", "Red", "M", 2, "10.00"))
	require.NoError(t, err)
	key := LineItemKey("p1", "Red", "M")

	first := svc.RemoveItem(key)
	second := svc.RemoveItem(key)
	assert.Equal(t, first, second)
	assert.True(t, second.IsEmpty())
}

// --- Clear ---

func TestClear(t *testing.T) {
	svc := newTestService(t, &mockStore{})
	_, err := svc.AddItem(addReq("p1", "Red", "M", 2, "10.00"))
	require.NoError(t, err)

	c := svc.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.TotalQuantity)
	assert.True(t, c.TotalAmount.IsZero())
}

// --- Persistence ---

func TestMutationsPersistSnapshots(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(t, store)

	_, err := svc.AddItem(addReq("p1", "Red", "M", 2, "10.00"))
	require.NoError(t, err)
	require.NoError(t, svc.Flush(context.Background()))

	saved, ok := store.last()
	require.True(t, ok)
	assert.Equal(t, svc.Snapshot(), saved)
}

func TestSaveFailureDoesNotAffectResult(t *testing.T) {
	store := &mockStore{saveErr: context.DeadlineExceeded}
	svc := newTestService(t, store)

	c, err := svc.AddItem(addReq("p1", "Red", "M", 1, "10.00"))
	require.NoError(t, err)
	require.Len(t, c.Items, 1)

	// Flush returns once the failed write has been attempted and logged.
	require.NoError(t, svc.Flush(context.Background()))
	assert.Len(t, svc.Snapshot().Items, 1)
}

// --- Hydration ---

func TestHydration_LoadErrorStartsEmpty(t *testing.T) {
	svc := newTestService(t, &mockStore{loadErr: context.DeadlineExceeded})
	assert.True(t, svc.Snapshot().IsEmpty())
}

func TestHydration_RecomputesDriftedAggregates(t *testing.T) {
	initial := Cart{
		Items: []LineItem{{
			Key:       LineItemKey("p1", "Red", "M"),
			ProductID: "p1",
			UnitPrice: price("10.00"),
			Quantity:  2,
			LineTotal: price("99.99"), // drifted
		}},
		TotalQuantity: 7,              // drifted
		TotalAmount:   price("1.00"), // drifted
	}
	svc := newTestService(t, &mockStore{initial: initial})

	c := svc.Snapshot()
	assert.Equal(t, 2, c.TotalQuantity)
	assert.True(t, price("20.00").Equal(c.TotalAmount))
	assert.True(t, price("20.00").Equal(c.Items[0].LineTotal))
	requireInvariants(t, c)
}

func TestHydration_DropsInvalidItems(t *testing.T) {
	initial := Cart{
		Items: []LineItem{
			{Key: "a||", ProductID: "a", UnitPrice: price("1.00"), Quantity: 1},
			{Key: "zero||", ProductID: "zero", UnitPrice: price("1.00"), Quantity: 0},
			{Key: "", ProductID: "", UnitPrice: price("1.00"), Quantity: 3},
		},
	}
	svc := newTestService(t, &mockStore{initial: initial})

	c := svc.Snapshot()
	require.Len(t, c.Items, 1)
	assert.Equal(t, "a", c.Items[0].ProductID)
	requireInvariants(t, c)
}

// --- Snapshot isolation ---

func TestSnapshotIsACopy(t *testing.T) {
	svc := newTestService(t, &mockStore{})
	_, err := svc.AddItem(addReq("p1", "Red", "M", 1, "10.00"))
	require.NoError(t, err)

	c := svc.Snapshot()
	c.Items[0].Quantity = 999

	assert.Equal(t, 1, svc.Snapshot().Items[0].Quantity)
}

func TestConcurrentMutations(t *testing.T) {
	svc := newTestService(t, &mockStore{})

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := svc.AddItem(addReq("p1", "Red", "M", 1, "10.00"))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	c := svc.Snapshot()
	require.Len(t, c.Items, 1)
	assert.Equal(t, workers*perWorker, c.Items[0].Quantity)
	requireInvariants(t, c)
}
