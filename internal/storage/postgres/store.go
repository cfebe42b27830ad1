// Package postgres persists cart snapshots in a PostgreSQL table, one row
// per snapshot slot.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/falcon-storefront/db"
	"github.com/xenking/falcon-storefront/internal/cart"
	"github.com/xenking/falcon-storefront/internal/storage"
)

const (
	loadSnapshotSQL = `SELECT snapshot FROM cart_snapshots WHERE slot = $1`

	saveSnapshotSQL = `INSERT INTO cart_snapshots (slot, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

var _ cart.Store = (*Store)(nil)

// Store implements cart.Store against the cart_snapshots table.
type Store struct {
	pool *pgxpool.Pool
	slot string
	lg   *zap.Logger
}

// New returns a Store writing to the given snapshot slot.
func New(pool *pgxpool.Pool, slot string, lg *zap.Logger) *Store {
	return &Store{pool: pool, slot: slot, lg: lg}
}

// Load reads the snapshot row for the slot. A missing row or an unparsable
// snapshot yields the empty cart.
func (s *Store) Load(ctx context.Context) (cart.Cart, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, loadSnapshotSQL, s.slot).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Empty(), nil
		}
		return cart.Empty(), errors.Wrapf(err, "load snapshot %q", s.slot)
	}

	c, err := storage.DecodeSnapshot(data)
	if err != nil {
		s.lg.Warn("Discarding corrupt cart snapshot", zap.String("slot", s.slot), zap.Error(err))
		return cart.Empty(), nil
	}
	return c, nil
}

// Save upserts the snapshot row for the slot.
func (s *Store) Save(ctx context.Context, c cart.Cart) error {
	if _, err := s.pool.Exec(ctx, saveSnapshotSQL, s.slot, storage.EncodeSnapshot(c)); err != nil {
		return errors.Wrapf(err, "save snapshot %q", s.slot)
	}
	return nil
}
