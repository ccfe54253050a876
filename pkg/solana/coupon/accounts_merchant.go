package coupon

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/code-payments/coupon-server/pkg/solana/binary"
)

const (
	MerchantAccountSize = (8 + // discriminator
		32 + // authority
		4 + MaxBusinessNameLength + // business_name
		8 + // total_coupons_created
		1) // bump

	minMerchantAccountSize = 8 + 32 + 4 + 8 + 1
)

var MerchantAccountDiscriminator = []byte{71, 235, 30, 40, 231, 21, 32, 64}

type MerchantAccount struct {
	Authority           ed25519.PublicKey
	BusinessName        string
	TotalCouponsCreated uint64
	Bump                uint8
}

func (obj *MerchantAccount) Unmarshal(data []byte) error {
	if len(data) < minMerchantAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, MerchantAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	binary.GetKey(data, &obj.Authority, &offset)
	if err := getString(data, &obj.BusinessName, &offset); err != nil {
		return ErrInvalidAccountData
	}
	if len(data) < offset+8+1 {
		return ErrInvalidAccountData
	}
	binary.GetUint64(data, &obj.TotalCouponsCreated, &offset)
	binary.GetUint8(data, &obj.Bump, &offset)

	return nil
}

// Marshal encodes the account into its allocated size. Unused business name
// space is left zeroed at the tail, as the program does.
func (obj *MerchantAccount) Marshal() ([]byte, error) {
	data := make([]byte, MerchantAccountSize)

	var offset int

	putDiscriminator(data, MerchantAccountDiscriminator, &offset)
	binary.PutKey(data, obj.Authority, &offset)
	if err := putString(data, obj.BusinessName, MaxBusinessNameLength, &offset); err != nil {
		return nil, err
	}
	binary.PutUint64(data, obj.TotalCouponsCreated, &offset)
	binary.PutUint8(data, obj.Bump, &offset)

	return data, nil
}

func (obj *MerchantAccount) String() string {
	return fmt.Sprintf(
		"Merchant{authority=%s,business_name=%s,total_coupons_created=%d,bump=%d}",
		base58.Encode(obj.Authority),
		obj.BusinessName,
		obj.TotalCouponsCreated,
		obj.Bump,
	)
}
