package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
)

func RunTests(t *testing.T, s nonce.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s nonce.Store){
		testHappyPath,
		testConcurrentClaims,
		testValidation,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s nonce.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		now := time.Now()
		record := &nonce.Record{
			Mint:      "mint",
			Owner:     "owner",
			Timestamp: now.UnixMilli(),
			Signature: "signature",
			ExpiresAt: now.Add(5 * time.Minute),
		}

		require.NoError(t, s.Claim(ctx, record))
		assert.Equal(t, nonce.ErrAlreadyClaimed, s.Claim(ctx, record))

		// A different signature over the same key is still a replay
		replay := record.Clone()
		replay.Signature = "other_signature"
		assert.Equal(t, nonce.ErrAlreadyClaimed, s.Claim(ctx, &replay))

		for _, mutate := range []func(r *nonce.Record){
			func(r *nonce.Record) { r.Mint = "other_mint" },
			func(r *nonce.Record) { r.Owner = "other_owner" },
			func(r *nonce.Record) { r.Timestamp++ },
		} {
			other := record.Clone()
			mutate(&other)
			assert.NoError(t, s.Claim(ctx, &other))
		}

		_, err := s.PruneExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, nonce.ErrAlreadyClaimed, s.Claim(ctx, record))
	})
}

func testConcurrentClaims(t *testing.T, s nonce.Store) {
	t.Run("testConcurrentClaims", func(t *testing.T) {
		ctx := context.Background()

		now := time.Now()
		record := &nonce.Record{
			Mint:      "mint",
			Owner:     "owner",
			Timestamp: now.UnixMilli(),
			Signature: "signature",
			ExpiresAt: now.Add(5 * time.Minute),
		}

		var wg sync.WaitGroup
		var claimed, rejected int32
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				cloned := record.Clone()
				switch err := s.Claim(ctx, &cloned); err {
				case nil:
					atomic.AddInt32(&claimed, 1)
				case nonce.ErrAlreadyClaimed:
					atomic.AddInt32(&rejected, 1)
				default:
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, claimed)
		assert.EqualValues(t, 15, rejected)
	})
}

func testValidation(t *testing.T, s nonce.Store) {
	t.Run("testValidation", func(t *testing.T) {
		ctx := context.Background()

		valid := nonce.Record{
			Mint:      "mint",
			Owner:     "owner",
			Timestamp: 1,
			Signature: "signature",
			ExpiresAt: time.Now().Add(time.Minute),
		}

		for _, mutate := range []func(r *nonce.Record){
			func(r *nonce.Record) { r.Mint = "" },
			func(r *nonce.Record) { r.Owner = "" },
			func(r *nonce.Record) { r.Timestamp = 0 },
			func(r *nonce.Record) { r.Signature = "" },
			func(r *nonce.Record) { r.ExpiresAt = time.Time{} },
		} {
			record := valid.Clone()
			mutate(&record)
			assert.Error(t, s.Claim(ctx, &record))
		}

		assert.NoError(t, s.Claim(ctx, &valid))
	})
}
