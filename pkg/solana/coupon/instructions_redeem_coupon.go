package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
)

var redeemCouponInstructionDiscriminator = []byte{
	66, 181, 163, 197, 244, 189, 153, 0,
}

const (
	RedeemCouponInstructionArgsSize = 0
)

type RedeemCouponInstructionArgs struct {
}

type RedeemCouponInstructionAccounts struct {
	CouponData       ed25519.PublicKey
	Merchant         ed25519.PublicKey
	Mint             ed25519.PublicKey
	UserTokenAccount ed25519.PublicKey
	User             ed25519.PublicKey
}

func NewRedeemCouponInstruction(
	accounts *RedeemCouponInstructionAccounts,
	args *RedeemCouponInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(redeemCouponInstructionDiscriminator)+
			RedeemCouponInstructionArgsSize)

	putDiscriminator(data, redeemCouponInstructionDiscriminator, &offset)

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
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Mint,
				IsWritable: true,
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
		},
	}
}
