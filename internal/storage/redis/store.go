// Package redis persists cart snapshots as a single Redis string key.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/xenking/falcon-storefront/internal/cart"
	"github.com/xenking/falcon-storefront/internal/storage"
)

var _ cart.Store = (*Store)(nil)

// Store implements cart.Store over a Redis string value keyed by the
// snapshot slot.
type Store struct {
	client *redis.Client
	key    string
	lg     *zap.Logger
}

// New connects to Redis at addr ("host:port" or a redis:// URL) and returns
// a Store writing snapshots under "cart:<slot>".
func New(ctx context.Context, addr, slot string, lg *zap.Logger) (*Store, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}

	return &Store{client: client, key: "cart:" + slot, lg: lg}, nil
}

// Ping reports backend reachability; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Load reads the snapshot value. A missing key or an unparsable value yields
// the empty cart.
func (s *Store) Load(ctx context.Context) (cart.Cart, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cart.Empty(), nil
		}
		return cart.Empty(), errors.Wrapf(err, "load snapshot %q", s.key)
	}

	c, err := storage.DecodeSnapshot(data)
	if err != nil {
		s.lg.Warn("Discarding corrupt cart snapshot", zap.String("key", s.key), zap.Error(err))
		return cart.Empty(), nil
	}
	return c, nil
}

// Save overwrites the snapshot value. Snapshots do not expire.
func (s *Store) Save(ctx context.Context, c cart.Cart) error {
	if err := s.client.Set(ctx, s.key, storage.EncodeSnapshot(c), 0).Err(); err != nil {
		return errors.Wrapf(err, "save snapshot %q", s.key)
	}
	return nil
}
