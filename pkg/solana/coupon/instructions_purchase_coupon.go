package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
)

var purchaseCouponInstructionDiscriminator = []byte{
	15, 115, 30, 71, 75, 191, 165, 57,
}

const (
	PurchaseCouponInstructionArgsSize = 0
)

type PurchaseCouponInstructionArgs struct {
}

// PurchaseCouponInstructionAccounts are the accounts for a paid purchase out
// of the merchant escrow. The program splits the payment between the merchant
// authority and the platform wallet, then releases the escrowed unit, all
// within the one instruction.
type PurchaseCouponInstructionAccounts struct {
	CouponData        ed25519.PublicKey
	Merchant          ed25519.PublicKey
	MerchantAuthority ed25519.PublicKey
	PlatformWallet    ed25519.PublicKey
	Escrow            ed25519.PublicKey
	Mint              ed25519.PublicKey
	BuyerTokenAccount ed25519.PublicKey
	Buyer             ed25519.PublicKey
}

func NewPurchaseCouponInstruction(
	accounts *PurchaseCouponInstructionAccounts,
	args *PurchaseCouponInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(purchaseCouponInstructionDiscriminator)+
			PurchaseCouponInstructionArgsSize)

	putDiscriminator(data, purchaseCouponInstructionDiscriminator, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.CouponData,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Merchant,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MerchantAuthority,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.PlatformWallet,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Escrow,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Mint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.BuyerTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Buyer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  ASSOCIATED_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
