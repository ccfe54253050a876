package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
)

var claimCouponInstructionDiscriminator = []byte{
	210, 153, 241, 46, 195, 18, 161, 99,
}

const (
	ClaimCouponInstructionArgsSize = 0
)

type ClaimCouponInstructionArgs struct {
}

type ClaimCouponInstructionAccounts struct {
	CouponData       ed25519.PublicKey
	Merchant         ed25519.PublicKey
	Escrow           ed25519.PublicKey
	Mint             ed25519.PublicKey
	UserTokenAccount ed25519.PublicKey
	User             ed25519.PublicKey
}

func NewClaimCouponInstruction(
	accounts *ClaimCouponInstructionAccounts,
	args *ClaimCouponInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(claimCouponInstructionDiscriminator)+
			ClaimCouponInstructionArgsSize)

	putDiscriminator(data, claimCouponInstructionDiscriminator, &offset)

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
				PublicKey:  accounts.UserTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.User,
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
