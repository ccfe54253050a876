package coupon

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"github.com/code-payments/coupon-server/pkg/solana/binary"
)

const (
	CouponDataAccountSize = (8 + // discriminator
		32 + // mint
		32 + // merchant
		1 + // discount_percentage
		8 + // expiry_date
		1 + // category
		1 + // redemptions_remaining
		1 + // max_redemptions
		1 + // is_active
		8 + // price
		1) // bump
)

var CouponDataAccountDiscriminator = []byte{234, 18, 183, 25, 77, 39, 32, 19}

type CouponDataAccount struct {
	Mint                 ed25519.PublicKey
	Merchant             ed25519.PublicKey
	DiscountPercentage   uint8
	ExpiryDate           int64
	Category             Category
	RedemptionsRemaining uint8
	MaxRedemptions       uint8
	IsActive             bool
	Price                uint64
	Bump                 uint8
}

func (obj *CouponDataAccount) Unmarshal(data []byte) error {
	if len(data) < CouponDataAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, CouponDataAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	var category uint8

	binary.GetKey(data, &obj.Mint, &offset)
	binary.GetKey(data, &obj.Merchant, &offset)
	binary.GetUint8(data, &obj.DiscountPercentage, &offset)
	binary.GetInt64(data, &obj.ExpiryDate, &offset)
	binary.GetUint8(data, &category, &offset)
	binary.GetUint8(data, &obj.RedemptionsRemaining, &offset)
	binary.GetUint8(data, &obj.MaxRedemptions, &offset)
	binary.GetBool(data, &obj.IsActive, &offset)
	binary.GetUint64(data, &obj.Price, &offset)
	binary.GetUint8(data, &obj.Bump, &offset)

	obj.Category = Category(category)

	return nil
}

func (obj *CouponDataAccount) Marshal() []byte {
	data := make([]byte, CouponDataAccountSize)

	var offset int

	putDiscriminator(data, CouponDataAccountDiscriminator, &offset)
	binary.PutKey(data, obj.Mint, &offset)
	binary.PutKey(data, obj.Merchant, &offset)
	binary.PutUint8(data, obj.DiscountPercentage, &offset)
	binary.PutInt64(data, obj.ExpiryDate, &offset)
	binary.PutUint8(data, uint8(obj.Category), &offset)
	binary.PutUint8(data, obj.RedemptionsRemaining, &offset)
	binary.PutUint8(data, obj.MaxRedemptions, &offset)
	binary.PutBool(data, obj.IsActive, &offset)
	binary.PutUint64(data, obj.Price, &offset)
	binary.PutUint8(data, obj.Bump, &offset)

	return data
}

func (obj *CouponDataAccount) IsFree() bool {
	return obj.Price == 0
}

func (obj *CouponDataAccount) IsExpired(at time.Time) bool {
	return obj.ExpiryDate <= at.Unix()
}

func (obj *CouponDataAccount) String() string {
	return fmt.Sprintf(
		"CouponData{mint=%s,merchant=%s,discount=%d,expiry=%d,category=%s,remaining=%d,max=%d,active=%v,price=%d,bump=%d}",
		base58.Encode(obj.Mint),
		base58.Encode(obj.Merchant),
		obj.DiscountPercentage,
		obj.ExpiryDate,
		obj.Category,
		obj.RedemptionsRemaining,
		obj.MaxRedemptions,
		obj.IsActive,
		obj.Price,
		obj.Bump,
	)
}
