package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
)

const keyPrefix = "coupon:redemption:nonce:"

type store struct {
	client *redis.Client
	now    func() time.Time
}

// New returns a new redis-backed nonce.Store. Claims are SET NX keys that
// redis expires on its own.
func New(client *redis.Client) nonce.Store {
	return &store{
		client: client,
		now:    time.Now,
	}
}

// Claim implements nonce.Store.Claim
func (s *store) Claim(ctx context.Context, record *nonce.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	ttl := record.ExpiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+record.Key(), record.Signature, ttl).Result()
	if err != nil {
		return errors.Wrap(err, "failed to claim redemption nonce")
	}
	if !ok {
		return nonce.ErrAlreadyClaimed
	}
	return nil
}

// PruneExpired implements nonce.Store.PruneExpired. Keys carry their own TTL,
// so there is nothing to do.
func (s *store) PruneExpired(_ context.Context, _ time.Time) (uint64, error) {
	return 0, nil
}
