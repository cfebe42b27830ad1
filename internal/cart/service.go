package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddRequest carries the caller-supplied product metadata for an add-to-cart
// operation. The engine trusts name, price, and image to be catalog-accurate
// (the catalog boundary normalizes them) but re-validates the structural
// constraints itself.
type AddRequest struct {
	ProductID    string
	Name         string
	UnitPrice    decimal.Decimal
	ImageRef     string
	VariantColor string
	VariantSize  string
	Quantity     int
}

// Service owns the in-memory cart and is the only component that mutates it.
//
// Mutations execute atomically under an internal mutex: the source system got
// one-mutation-at-a-time for free from its host event loop, and the mutex
// restores that model under concurrent HTTP handlers. Each successful
// mutation hands the new snapshot to a background persister, so mutation
// latency never depends on storage latency.
type Service struct {
	mu      sync.Mutex
	cart    Cart
	persist *persister
	lg      *zap.Logger
}

// NewService hydrates the cart from the store and starts the background
// snapshot persister. A failed or corrupt load degrades to the empty cart;
// startup never fails because of storage.
func NewService(ctx context.Context, store Store, lg *zap.Logger) *Service {
	loaded, err := store.Load(ctx)
	if err != nil {
		lg.Warn("Cart hydration failed, starting empty", zap.Error(err))
		loaded = Empty()
	}
	// Aggregates are recomputed from the loaded items rather than trusted
	// from the snapshot, so drifted totals cannot survive a restart.
	loaded.sanitize()

	return &Service{
		cart:    loaded,
		persist: newPersister(store, lg),
		lg:      lg,
	}
}

// Snapshot returns a copy of the current cart.
func (s *Service) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// AddItem validates the request, merges it into an existing line item with
// the same product+variant key or appends a new one, recomputes aggregates,
// and schedules persistence. It returns the updated cart.
func (s *Service) AddItem(req AddRequest) (Cart, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := validateAdd(req); err != nil {
		return Cart{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := LineItemKey(req.ProductID, req.VariantColor, req.VariantSize)
	if i := s.cart.find(key); i >= 0 {
		s.cart.Items[i].Quantity += req.Quantity
	} else {
		s.cart.Items = append(s.cart.Items, LineItem{
			Key:          key,
			ProductID:    req.ProductID,
			Name:         req.Name,
			UnitPrice:    req.UnitPrice,
			ImageRef:     req.ImageRef,
			VariantColor: req.VariantColor,
			VariantSize:  req.VariantSize,
			Quantity:     req.Quantity,
		})
	}
	return s.commitLocked(), nil
}

// UpdateQuantity sets the quantity of the item with the given key.
//
// A quantity below one is a no-op on the item: quantity steppers are
// non-destructive, and callers that want removal must call RemoveItem.
// An unknown key is likewise a no-op. Both return the current cart unchanged.
func (s *Service) UpdateQuantity(key string, quantity int) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.cart.find(key)
	if i < 0 || quantity < 1 {
		return s.cart.Clone()
	}
	s.cart.Items[i].Quantity = quantity
	return s.commitLocked()
}

// RemoveItem deletes the item with the given key. Removing an absent key is
// an idempotent no-op.
func (s *Service) RemoveItem(key string) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.cart.find(key)
	if i < 0 {
		return s.cart.Clone()
	}
	s.cart.Items = append(s.cart.Items[:i], s.cart.Items[i+1:]...)
	return s.commitLocked()
}

// Clear empties the cart. Used for post-checkout reset.
func (s *Service) Clear() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = Empty()
	return s.commitLocked()
}

// commitLocked recomputes all derived fields, schedules persistence of the
// new snapshot, and returns a clone. Caller must hold s.mu.
func (s *Service) commitLocked() Cart {
	s.cart.recompute()
	snap := s.cart.Clone()
	s.persist.enqueue(snap)
	return snap
}

// Flush blocks until every snapshot enqueued so far has been handed to the
// store (or its write failed and was logged). Used at shutdown and by tests
// that assert durability.
func (s *Service) Flush(ctx context.Context) error {
	return s.persist.flush(ctx)
}

// Close flushes pending snapshots and stops the persister goroutine.
func (s *Service) Close(ctx context.Context) error {
	return s.persist.close(ctx)
}

func validateAdd(req AddRequest) error {
	switch {
	case req.ProductID == "":
		return &InvalidItemError{Field: "productId", Reason: "must not be empty"}
	case req.UnitPrice.IsNegative():
		return &InvalidItemError{Field: "unitPrice", Reason: "must not be negative"}
	case req.Quantity < 1:
		return &InvalidItemError{Field: "quantity", Reason: "must be at least 1"}
	}
	return nil
}
