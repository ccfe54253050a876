package coupon

import "bytes"

type InstructionType uint8

const (
	Unknown InstructionType = iota

	InstructionTypeInitializeMerchant
	InstructionTypeCreateCoupon

	InstructionTypeClaimCoupon
	InstructionTypePurchaseCoupon
	InstructionTypeRedeemCoupon
	InstructionTypeUpdateCouponStatus

	InstructionTypeTransferCoupon
	InstructionTypeListForResale
	InstructionTypePurchaseFromResale
)

var instructionDiscriminators = map[InstructionType][]byte{
	InstructionTypeInitializeMerchant: initializeMerchantInstructionDiscriminator,
	InstructionTypeCreateCoupon:       createCouponInstructionDiscriminator,
	InstructionTypeClaimCoupon:        claimCouponInstructionDiscriminator,
	InstructionTypePurchaseCoupon:     purchaseCouponInstructionDiscriminator,
	InstructionTypeRedeemCoupon:       redeemCouponInstructionDiscriminator,
	InstructionTypeUpdateCouponStatus: updateCouponStatusInstructionDiscriminator,
	InstructionTypeTransferCoupon:     transferCouponInstructionDiscriminator,
	InstructionTypeListForResale:      listForResaleInstructionDiscriminator,
	InstructionTypePurchaseFromResale: purchaseFromResaleInstructionDiscriminator,
}

// GetInstructionType identifies a coupon program instruction by its 8 byte
// discriminator prefix.
func GetInstructionType(data []byte) InstructionType {
	if len(data) < 8 {
		return Unknown
	}

	for t, discriminator := range instructionDiscriminators {
		if bytes.Equal(data[:8], discriminator) {
			return t
		}
	}
	return Unknown
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitializeMerchant:
		return "initialize_merchant"
	case InstructionTypeCreateCoupon:
		return "create_coupon"
	case InstructionTypeClaimCoupon:
		return "claim_coupon"
	case InstructionTypePurchaseCoupon:
		return "purchase_coupon"
	case InstructionTypeRedeemCoupon:
		return "redeem_coupon"
	case InstructionTypeUpdateCouponStatus:
		return "update_coupon_status"
	case InstructionTypeTransferCoupon:
		return "transfer_coupon"
	case InstructionTypeListForResale:
		return "list_for_resale"
	case InstructionTypePurchaseFromResale:
		return "purchase_from_resale"
	}
	return "unknown"
}
