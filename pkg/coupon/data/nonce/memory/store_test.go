package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce/tests"
)

func TestNonceMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}

	tests.RunTests(t, testStore, teardown)
}

func TestNonceMemoryStore_ExpiredClaimCanBeReplaced(t *testing.T) {
	ctx := context.Background()

	now := time.Now()
	s := newStore(func() time.Time { return now })

	record := &nonce.Record{
		Mint:      "mint",
		Owner:     "owner",
		Timestamp: now.UnixMilli(),
		Signature: "signature",
		ExpiresAt: now.Add(time.Minute),
	}
	require.NoError(t, s.Claim(ctx, record))
	assert.Equal(t, nonce.ErrAlreadyClaimed, s.Claim(ctx, record))

	now = now.Add(2 * time.Minute)
	assert.NoError(t, s.Claim(ctx, record))
}
