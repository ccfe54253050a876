package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
)

const (
	MaxBusinessNameLength = 100
)

var initializeMerchantInstructionDiscriminator = []byte{
	7, 90, 74, 38, 99, 111, 142, 77,
}

type InitializeMerchantInstructionArgs struct {
	BusinessName string
}

type InitializeMerchantInstructionAccounts struct {
	Merchant  ed25519.PublicKey
	Authority ed25519.PublicKey
}

func NewInitializeMerchantInstruction(
	accounts *InitializeMerchantInstructionAccounts,
	args *InitializeMerchantInstructionArgs,
) (solana.Instruction, error) {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeMerchantInstructionDiscriminator)+
			stringSize(args.BusinessName))

	putDiscriminator(data, initializeMerchantInstructionDiscriminator, &offset)
	if err := putString(data, args.BusinessName, MaxBusinessNameLength, &offset); err != nil {
		return solana.Instruction{}, err
	}

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Merchant,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}, nil
}
