// Package memory provides an in-process cart snapshot store. Used as the
// ephemeral backend and as the test double for the durable ones.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/falcon-storefront/internal/cart"
	"github.com/xenking/falcon-storefront/internal/storage"
)

var _ cart.Store = (*Store)(nil)

// Store keeps the serialized snapshot in memory. It round-trips through the
// snapshot codec so it exercises the same wire shape as the durable backends.
type Store struct {
	mu   sync.Mutex
	data []byte
}

func New() *Store {
	return &Store{}
}

// Load returns the stored snapshot, or the empty cart when nothing has been
// saved yet or the stored bytes do not parse.
func (s *Store) Load(_ context.Context) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return cart.Empty(), nil
	}
	c, err := storage.DecodeSnapshot(s.data)
	if err != nil {
		return cart.Empty(), nil
	}
	return c, nil
}

// Save overwrites the stored snapshot.
func (s *Store) Save(_ context.Context, c cart.Cart) error {
	data := storage.EncodeSnapshot(c)
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Corrupt replaces the stored bytes with an unparsable value. Test hook for
// corrupt-storage recovery.
func (s *Store) Corrupt() {
	s.mu.Lock()
	s.data = []byte("{not json")
	s.mu.Unlock()
}
