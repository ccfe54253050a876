package recorder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	event_memory "github.com/code-payments/coupon-server/pkg/coupon/data/event/memory"
	"github.com/code-payments/coupon-server/pkg/coupon/data/resale"
	resale_memory "github.com/code-payments/coupon-server/pkg/coupon/data/resale/memory"
	"github.com/code-payments/coupon-server/pkg/database/query"
	"github.com/code-payments/coupon-server/pkg/pointer"
)

type testEnv struct {
	ctx      context.Context
	events   event.Store
	listings resale.Store
	recorder *Recorder
}

func setup(t *testing.T) *testEnv {
	ctx := context.Background()
	env := &testEnv{
		ctx:      ctx,
		events:   event_memory.New(),
		listings: resale_memory.New(),
	}
	env.recorder = New(ctx, env.events, env.listings, withManualTestOverrides(&testOverrides{
		writeTimeout: time.Second,
		workerCount:  2,
		queueSize:    64,
	}))
	t.Cleanup(env.recorder.Close)
	return env
}

func TestRecordEvent_OrderedPerMint(t *testing.T) {
	env := setup(t)

	for i := 0; i < 10; i++ {
		env.recorder.RecordEvent(env.ctx, &event.Record{
			Type:         event.Purchase,
			Mint:         "mint",
			Wallet:       fmt.Sprintf("buyer%d", i),
			Counterparty: pointer.String("merchant"),
			Signature:    fmt.Sprintf("sig%d", i),
			Amount:       1000,
			Fee:          25,
		})
	}
	env.recorder.Flush()

	records, err := env.events.GetAllByMint(env.ctx, "mint", nil, 0, query.Ascending)
	require.NoError(t, err)
	require.Len(t, records, 10)
	for i, record := range records {
		assert.Equal(t, fmt.Sprintf("sig%d", i), record.Signature)
		assert.NotEmpty(t, record.EventId)
		assert.False(t, record.CreatedAt.IsZero())
	}
}

func TestRecordEvent_FailuresAreSwallowed(t *testing.T) {
	env := setup(t)

	// Missing signature fails validation in the store
	invalid := &event.Record{
		Type:   event.Claim,
		Mint:   "mint",
		Wallet: "wallet",
	}
	env.recorder.RecordEvent(env.ctx, invalid)

	valid := &event.Record{
		Type:      event.Claim,
		Mint:      "mint",
		Wallet:    "wallet",
		Signature: "sig",
	}
	duplicate := valid.Clone()
	env.recorder.RecordEvent(env.ctx, valid)
	env.recorder.RecordEvent(env.ctx, &duplicate)

	env.recorder.Flush()

	_, err := env.events.Get(env.ctx, invalid.EventId)
	assert.Equal(t, event.ErrEventNotFound, err)

	records, err := env.events.GetAllByMint(env.ctx, "mint", nil, 0, query.Ascending)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, valid.EventId, records[0].EventId)
}

func TestRecordListing_ThenDeactivate(t *testing.T) {
	env := setup(t)

	listingId := env.recorder.RecordListing(env.ctx, &resale.Record{
		Mint:      "mint",
		Seller:    "seller",
		Price:     5000,
		Signature: "listsig",
	})
	require.NotEmpty(t, listingId)

	env.recorder.DeactivateListing(env.ctx, "mint", listingId)
	env.recorder.Flush()

	listing, err := env.listings.Get(env.ctx, listingId)
	require.NoError(t, err)
	assert.False(t, listing.IsActive)
	assert.EqualValues(t, 5000, listing.Price)

	_, err = env.listings.GetActiveByMint(env.ctx, "mint")
	assert.Equal(t, resale.ErrListingNotFound, err)

	// Deactivating twice is harmless
	env.recorder.DeactivateListing(env.ctx, "mint", listingId)
	env.recorder.Flush()
}

func TestRecordListing_KeepsProvidedId(t *testing.T) {
	env := setup(t)

	listingId := env.recorder.RecordListing(env.ctx, &resale.Record{
		ListingId: "listing",
		Mint:      "mint",
		Seller:    "seller",
		Price:     1,
		Signature: "sig",
	})
	assert.Equal(t, "listing", listingId)
	env.recorder.Flush()

	listing, err := env.listings.GetActiveByMint(env.ctx, "mint")
	require.NoError(t, err)
	assert.Equal(t, "listing", listing.ListingId)
}

func TestClose_DropsLaterWrites(t *testing.T) {
	env := setup(t)

	env.recorder.Close()
	env.recorder.Close()

	env.recorder.RecordEvent(env.ctx, &event.Record{
		Type:      event.Redemption,
		Mint:      "mint",
		Wallet:    "wallet",
		Signature: "sig",
	})
	env.recorder.Flush()

	_, err := env.events.GetAllByMint(env.ctx, "mint", nil, 0, query.Ascending)
	assert.Equal(t, event.ErrEventNotFound, err)
}
