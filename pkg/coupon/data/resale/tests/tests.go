package tests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/coupon/data/resale"
)

func RunTests(t *testing.T, s resale.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s resale.Store){
		testHappyPath,
		testSingleActiveListingPerMint,
		testValidation,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s resale.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		start := time.Now()

		expected := &resale.Record{
			ListingId: uuid.NewString(),
			Mint:      "mint",
			Seller:    "seller",
			Price:     2_000_000,
			Signature: "signature",
		}

		_, err := s.Get(ctx, expected.ListingId)
		assert.Equal(t, resale.ErrListingNotFound, err)
		_, err = s.GetActiveByMint(ctx, expected.Mint)
		assert.Equal(t, resale.ErrListingNotFound, err)
		assert.Equal(t, resale.ErrListingNotFound, s.Deactivate(ctx, expected.ListingId))

		require.NoError(t, s.Put(ctx, expected))
		assert.EqualValues(t, 1, expected.Id)
		assert.True(t, expected.IsActive)
		assert.True(t, expected.CreatedAt.After(start))

		actual, err := s.Get(ctx, expected.ListingId)
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)

		actual, err = s.GetActiveByMint(ctx, expected.Mint)
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)

		require.NoError(t, s.Deactivate(ctx, expected.ListingId))
		assert.Equal(t, resale.ErrListingNotFound, s.Deactivate(ctx, expected.ListingId))

		_, err = s.GetActiveByMint(ctx, expected.Mint)
		assert.Equal(t, resale.ErrListingNotFound, err)

		actual, err = s.Get(ctx, expected.ListingId)
		require.NoError(t, err)
		assert.False(t, actual.IsActive)
	})
}

func testSingleActiveListingPerMint(t *testing.T, s resale.Store) {
	t.Run("testSingleActiveListingPerMint", func(t *testing.T) {
		ctx := context.Background()

		first := &resale.Record{
			ListingId: uuid.NewString(),
			Mint:      "mint",
			Seller:    "seller",
			Price:     100,
			Signature: "signature1",
		}
		require.NoError(t, s.Put(ctx, first))

		second := &resale.Record{
			ListingId: uuid.NewString(),
			Mint:      "mint",
			Seller:    "buyer",
			Price:     200,
			Signature: "signature2",
		}
		assert.Equal(t, resale.ErrListingExists, s.Put(ctx, second))

		reused := second.Clone()
		reused.ListingId = first.ListingId
		reused.Mint = "other_mint"
		assert.Equal(t, resale.ErrListingExists, s.Put(ctx, &reused))

		// Once the first listing is consumed, the new holder can list again
		require.NoError(t, s.Deactivate(ctx, first.ListingId))
		require.NoError(t, s.Put(ctx, second))

		actual, err := s.GetActiveByMint(ctx, "mint")
		require.NoError(t, err)
		assertEquivalentRecords(t, second, actual)
	})
}

func testValidation(t *testing.T, s resale.Store) {
	t.Run("testValidation", func(t *testing.T) {
		ctx := context.Background()

		valid := resale.Record{
			ListingId: uuid.NewString(),
			Mint:      "mint",
			Seller:    "seller",
			Price:     100,
			Signature: "signature",
		}

		for _, mutate := range []func(r *resale.Record){
			func(r *resale.Record) { r.ListingId = "" },
			func(r *resale.Record) { r.Mint = "" },
			func(r *resale.Record) { r.Seller = "" },
			func(r *resale.Record) { r.Price = 0 },
			func(r *resale.Record) { r.Signature = "" },
		} {
			record := valid.Clone()
			mutate(&record)
			assert.Error(t, s.Put(ctx, &record))
		}

		_, err := s.GetActiveByMint(ctx, "mint")
		assert.Equal(t, resale.ErrListingNotFound, err)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *resale.Record) {
	assert.Equal(t, obj1.ListingId, obj2.ListingId)
	assert.Equal(t, obj1.Mint, obj2.Mint)
	assert.Equal(t, obj1.Seller, obj2.Seller)
	assert.Equal(t, obj1.Price, obj2.Price)
	assert.Equal(t, obj1.IsActive, obj2.IsActive)
	assert.Equal(t, obj1.Signature, obj2.Signature)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}
