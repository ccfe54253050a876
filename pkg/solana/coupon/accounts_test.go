package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponDataAccount_RoundTrip(t *testing.T) {
	expected := &CouponDataAccount{
		Mint:                 testKey(1),
		Merchant:             testKey(50),
		DiscountPercentage:   25,
		ExpiryDate:           1_800_000_000,
		Category:             CategoryEntertainment,
		RedemptionsRemaining: 2,
		MaxRedemptions:       5,
		IsActive:             true,
		Price:                12_345,
		Bump:                 254,
	}

	data := expected.Marshal()
	require.Len(t, data, CouponDataAccountSize)

	var actual CouponDataAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, &actual)

	assert.False(t, actual.IsFree())
	assert.False(t, actual.IsExpired(time.Unix(1_799_999_999, 0)))
	assert.True(t, actual.IsExpired(time.Unix(1_800_000_000, 0)))

	data[0] ^= 0xff
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(data))
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(data[:CouponDataAccountSize-1]))
}

func TestMerchantAccount_RoundTrip(t *testing.T) {
	expected := &MerchantAccount{
		Authority:           testKey(9),
		BusinessName:        "Corner Bakery",
		TotalCouponsCreated: 17,
		Bump:                253,
	}

	data, err := expected.Marshal()
	require.NoError(t, err)
	require.Len(t, data, MerchantAccountSize)

	var actual MerchantAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, &actual)

	// Exactly sized data, as returned for a name that fills the account
	exact := data[:8+32+4+len(expected.BusinessName)+8+1]
	require.NoError(t, actual.Unmarshal(exact))
	assert.Equal(t, expected, &actual)

	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(exact[:len(exact)-1]))
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(CouponDataAccountDiscriminator))
}

func TestRedemptionEvent_FromLogs(t *testing.T) {
	expected := &RedemptionEvent{
		Mint:                 testKey(1),
		Merchant:             testKey(2),
		User:                 testKey(3),
		RedemptionsRemaining: 0,
		Timestamp:            1_750_000_000,
	}

	logs := []string{
		"Program RECcAGSNVfAdGeTsR92jMUM2DBuedSqpAn9W8pNrLi7 invoke [1]",
		"Program log: Instruction: RedeemCoupon",
		"Program data: not-base64!",
		"Program data: AAAA",
		expected.ToLog(),
		"Program RECcAGSNVfAdGeTsR92jMUM2DBuedSqpAn9W8pNrLi7 success",
	}

	actual, err := RedemptionEventFromLogs(logs)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
	assert.True(t, actual.WasBurned(3))

	actual.RedemptionsRemaining = 2
	assert.False(t, actual.WasBurned(3))
	assert.True(t, actual.WasBurned(1))

	_, err = RedemptionEventFromLogs(logs[:4])
	assert.Equal(t, ErrEventNotFound, err)
}
