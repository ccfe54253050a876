package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/binary"
)

var updateCouponStatusInstructionDiscriminator = []byte{
	122, 226, 151, 161, 164, 22, 246, 242,
}

const (
	UpdateCouponStatusInstructionArgsSize = 1 // is_active
)

type UpdateCouponStatusInstructionArgs struct {
	IsActive bool
}

type UpdateCouponStatusInstructionAccounts struct {
	Merchant          ed25519.PublicKey
	CouponData        ed25519.PublicKey
	Authority         ed25519.PublicKey
	MerchantAuthority ed25519.PublicKey
}

func NewUpdateCouponStatusInstruction(
	accounts *UpdateCouponStatusInstructionAccounts,
	args *UpdateCouponStatusInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(updateCouponStatusInstructionDiscriminator)+
			UpdateCouponStatusInstructionArgsSize)

	putDiscriminator(data, updateCouponStatusInstructionDiscriminator, &offset)
	binary.PutBool(data, args.IsActive, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Merchant,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.CouponData,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MerchantAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
		},
	}
}
