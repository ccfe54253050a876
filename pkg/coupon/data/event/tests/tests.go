package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	"github.com/code-payments/coupon-server/pkg/database/query"
	"github.com/code-payments/coupon-server/pkg/pointer"
)

func RunTests(t *testing.T, s event.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s event.Store){
		testHappyPath,
		testDuplicates,
		testGetAllByMint,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s event.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		start := time.Now()

		expected := &event.Record{
			EventId: uuid.NewString(),
			Type:    event.Purchase,

			Mint:         "mint",
			Wallet:       "buyer",
			Counterparty: pointer.String("merchant_authority"),

			Signature: "signature",

			Amount: 1_000_000,
			Fee:    25_000,
		}

		_, err := s.Get(ctx, expected.EventId)
		assert.Equal(t, event.ErrEventNotFound, err)

		cloned := expected.Clone()
		require.NoError(t, s.Put(ctx, expected))

		assert.EqualValues(t, 1, expected.Id)
		assert.True(t, expected.CreatedAt.After(start))
		assert.True(t, expected.CreatedAt.Before(start.Add(500*time.Millisecond)))

		actual, err := s.Get(ctx, cloned.EventId)
		require.NoError(t, err)
		assert.EqualValues(t, 1, actual.Id)
		assert.EqualValues(t, expected.CreatedAt.Unix(), actual.CreatedAt.Unix())
		assertEquivalentRecords(t, &cloned, actual)
	})
}

func testDuplicates(t *testing.T, s event.Store) {
	t.Run("testDuplicates", func(t *testing.T) {
		ctx := context.Background()

		record := &event.Record{
			EventId:   uuid.NewString(),
			Type:      event.Claim,
			Mint:      "mint",
			Wallet:    "claimant",
			Signature: "signature",
		}
		require.NoError(t, s.Put(ctx, record))

		sameId := record.Clone()
		sameId.Signature = "other_signature"
		assert.Equal(t, event.ErrEventExists, s.Put(ctx, &sameId))

		sameSignature := record.Clone()
		sameSignature.EventId = uuid.NewString()
		assert.Equal(t, event.ErrEventExists, s.Put(ctx, &sameSignature))

		// One transaction can produce events of different types
		otherType := record.Clone()
		otherType.EventId = uuid.NewString()
		otherType.Type = event.Redemption
		assert.NoError(t, s.Put(ctx, &otherType))

		invalid := record.Clone()
		invalid.EventId = uuid.NewString()
		invalid.Signature = "third_signature"
		invalid.Amount = 10
		invalid.Fee = 11
		assert.Error(t, s.Put(ctx, &invalid))
	})
}

func testGetAllByMint(t *testing.T, s event.Store) {
	t.Run("testGetAllByMint", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByMint(ctx, "mint", query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, event.ErrEventNotFound, err)

		var expected []*event.Record
		for i := 0; i < 5; i++ {
			mint := "mint"
			if i%2 == 1 {
				mint = "other_mint"
			}

			record := &event.Record{
				EventId:   uuid.NewString(),
				Type:      event.Claim,
				Mint:      mint,
				Wallet:    fmt.Sprintf("wallet%d", i),
				Signature: fmt.Sprintf("signature%d", i),
			}
			require.NoError(t, s.Put(ctx, record))

			if mint == "mint" {
				expected = append(expected, record)
			}
		}

		actual, err := s.GetAllByMint(ctx, "mint", query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		for i := range actual {
			assertEquivalentRecords(t, expected[i], actual[i])
		}

		actual, err = s.GetAllByMint(ctx, "mint", query.EmptyCursor, 2, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, expected[2], actual[0])
		assertEquivalentRecords(t, expected[1], actual[1])

		actual, err = s.GetAllByMint(ctx, "mint", query.ToCursor(actual[1].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assertEquivalentRecords(t, expected[0], actual[0])

		_, err = s.GetAllByMint(ctx, "mint", query.ToCursor(expected[2].Id), 10, query.Ascending)
		assert.Equal(t, event.ErrEventNotFound, err)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *event.Record) {
	assert.Equal(t, obj1.EventId, obj2.EventId)
	assert.Equal(t, obj1.Type, obj2.Type)
	assert.Equal(t, obj1.Mint, obj2.Mint)
	assert.Equal(t, obj1.Wallet, obj2.Wallet)
	assert.EqualValues(t, obj1.Counterparty, obj2.Counterparty)
	assert.Equal(t, obj1.Signature, obj2.Signature)
	assert.Equal(t, obj1.Amount, obj2.Amount)
	assert.Equal(t, obj1.Fee, obj2.Fee)
}
