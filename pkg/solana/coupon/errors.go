package coupon

import (
	"fmt"

	"github.com/code-payments/coupon-server/pkg/solana"
)

type ProgramError uint32

const (
	// The coupon has expired and can no longer be redeemed
	ErrCouponExpired ProgramError = iota + 0x1770

	// The coupon has already been fully redeemed
	ErrCouponFullyRedeemed

	// The coupon is not active
	ErrCouponNotActive

	// Invalid discount percentage (must be 1-100)
	ErrInvalidDiscountPercentage

	// Expiry date must be in the future
	ErrInvalidExpiryDate

	// Unauthorized: only the merchant can perform this action
	ErrUnauthorizedMerchant

	// Unauthorized: only the coupon owner can perform this action
	ErrUnauthorizedOwner

	// Business name is too long (max 100 characters)
	ErrBusinessNameTooLong

	// Invalid redemption amount
	ErrInvalidRedemptionAmount

	// Arithmetic overflow occurred
	ErrProgramArithmeticOverflow

	// This coupon is not free - payment required
	ErrNotFreeCoupon

	// This coupon is not paid - cannot purchase
	ErrNotPaidCoupon

	// Insufficient payment amount
	ErrInsufficientPayment

	// Coupon is inactive
	ErrCouponInactive

	// No redemptions remaining for this coupon
	ErrNoRedemptionsRemaining

	// Invalid price - must be greater than 0
	ErrInvalidPrice

	// Invalid NFT amount - seller must own exactly 1 NFT
	ErrInvalidNFTAmount
)

var programErrorMessages = map[ProgramError]string{
	ErrCouponExpired:             "The coupon has expired and can no longer be redeemed",
	ErrCouponFullyRedeemed:       "The coupon has already been fully redeemed",
	ErrCouponNotActive:           "The coupon is not active",
	ErrInvalidDiscountPercentage: "Invalid discount percentage (must be 1-100)",
	ErrInvalidExpiryDate:         "Expiry date must be in the future",
	ErrUnauthorizedMerchant:      "Unauthorized: only the merchant can perform this action",
	ErrUnauthorizedOwner:         "Unauthorized: only the coupon owner can perform this action",
	ErrBusinessNameTooLong:       "Business name is too long (max 100 characters)",
	ErrInvalidRedemptionAmount:   "Invalid redemption amount",
	ErrProgramArithmeticOverflow: "Arithmetic overflow occurred",
	ErrNotFreeCoupon:             "This coupon is not free - payment required",
	ErrNotPaidCoupon:             "This coupon is not paid - cannot purchase",
	ErrInsufficientPayment:       "Insufficient payment amount",
	ErrCouponInactive:            "Coupon is inactive",
	ErrNoRedemptionsRemaining:    "No redemptions remaining for this coupon",
	ErrInvalidPrice:              "Invalid price - must be greater than 0",
	ErrInvalidNFTAmount:          "Invalid NFT amount - seller must own exactly 1 NFT",
}

func (e ProgramError) Error() string {
	if msg, ok := programErrorMessages[e]; ok {
		return msg
	}
	return fmt.Sprintf("unknown coupon program error: %d", uint32(e))
}

// Code is the Anchor custom error code.
func (e ProgramError) Code() uint32 {
	return uint32(e)
}

// ProgramErrorFromTransactionError extracts the coupon program error carried by
// a failed transaction, if any.
func ProgramErrorFromTransactionError(txErr *solana.TransactionError) (ProgramError, bool) {
	if txErr == nil {
		return 0, false
	}

	custom := txErr.InstructionError()
	if custom == nil {
		return 0, false
	}

	code := custom.CustomError()
	if code == nil {
		return 0, false
	}

	e := ProgramError(*code)
	if _, ok := programErrorMessages[e]; !ok {
		return 0, false
	}
	return e, true
}
