// Package cart implements the storefront cart state engine: a normalized
// line-item model, the four mutation operations, and aggregate recomputation.
//
// The engine is the sole authority over cart state. Persistence happens as a
// side effect of every successful mutation and never affects the in-memory
// result returned to the caller.
package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// LineItem is one cart row: a specific product+variant configuration and its
// quantity. LineTotal is derived and always equals UnitPrice * Quantity.
type LineItem struct {
	Key          string          `json:"lineItemKey"`
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	ImageRef     string          `json:"imageRef"`
	VariantColor string          `json:"variantColor"`
	VariantSize  string          `json:"variantSize"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

// Cart is the aggregate root. Items preserve insertion order and carry unique
// line-item keys; TotalQuantity and TotalAmount are derived from Items.
type Cart struct {
	Items         []LineItem      `json:"items"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// Empty returns the canonical empty cart.
func Empty() Cart {
	return Cart{
		Items:       []LineItem{},
		TotalAmount: decimal.Zero,
	}
}

// Clone returns a deep copy. Callers receive clones so they can never reach
// into the engine's internal state.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]LineItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

// IsEmpty reports whether the cart has no line items. "Empty" vs "populated"
// is a predicate, not a modeled state.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// find returns the index of the item with the given key, or -1.
func (c Cart) find(key string) int {
	for i := range c.Items {
		if c.Items[i].Key == key {
			return i
		}
	}
	return -1
}

// recompute folds over the entire item sequence and rewrites every derived
// field: per-item line totals and both cart aggregates. Deliberately O(n)
// instead of incremental so stale or tampered totals can never survive a
// mutation.
func (c *Cart) recompute() {
	total := 0
	amount := decimal.Zero
	for i := range c.Items {
		it := &c.Items[i]
		it.LineTotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total += it.Quantity
		amount = amount.Add(it.LineTotal)
	}
	c.TotalQuantity = total
	c.TotalAmount = amount
}

// sanitize drops items that cannot legally exist (empty product id or
// quantity below one) and recomputes all derived fields. Applied to snapshots
// loaded from storage, where prior sessions or external tampering may have
// left drifted or invalid data.
func (c *Cart) sanitize() {
	kept := c.Items[:0]
	seen := make(map[string]struct{}, len(c.Items))
	for _, it := range c.Items {
		if it.ProductID == "" || it.Quantity < 1 || it.UnitPrice.IsNegative() {
			continue
		}
		if it.Key == "" {
			it.Key = LineItemKey(it.ProductID, it.VariantColor, it.VariantSize)
		}
		if _, dup := seen[it.Key]; dup {
			continue
		}
		seen[it.Key] = struct{}{}
		kept = append(kept, it)
	}
	c.Items = kept
	if c.Items == nil {
		c.Items = []LineItem{}
	}
	c.recompute()
}

// Store is the persistence contract for the single named cart snapshot.
//
// Load must return the canonical empty cart (and no error) when the snapshot
// is absent or unparsable; it returns an error only when the backing store is
// unreachable. Save overwrites the snapshot. Both error cases are non-fatal
// to the engine: it degrades to in-memory-only operation.
type Store interface {
	Load(ctx context.Context) (Cart, error)
	Save(ctx context.Context, c Cart) error
}
