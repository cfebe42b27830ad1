// Package file persists the cart snapshot as a single JSON file. It is the
// default backend: the local, single-slot analogue of a browser's
// localStorage entry.
package file

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/falcon-storefront/internal/cart"
	"github.com/xenking/falcon-storefront/internal/storage"
)

var _ cart.Store = (*Store)(nil)

// Store reads and writes one snapshot file. Writes go through a temp file and
// rename so a crash mid-write can never leave a torn snapshot behind.
type Store struct {
	path string
	lg   *zap.Logger
}

// New creates a file store at path, creating parent directories as needed.
func New(path string, lg *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create snapshot dir")
	}
	return &Store{path: path, lg: lg}, nil
}

// Load reads the snapshot file. A missing file or unparsable contents yield
// the empty cart; corruption must never crash startup.
func (s *Store) Load(_ context.Context) (cart.Cart, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cart.Empty(), nil
		}
		return cart.Empty(), errors.Wrap(err, "read snapshot")
	}

	c, err := storage.DecodeSnapshot(data)
	if err != nil {
		s.lg.Warn("Discarding corrupt cart snapshot", zap.String("path", s.path), zap.Error(err))
		return cart.Empty(), nil
	}
	return c, nil
}

// Save atomically replaces the snapshot file.
func (s *Store) Save(_ context.Context, c cart.Cart) error {
	data := storage.EncodeSnapshot(c)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cart-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp snapshot")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write snapshot")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close snapshot")
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "replace snapshot")
	}
	return nil
}
