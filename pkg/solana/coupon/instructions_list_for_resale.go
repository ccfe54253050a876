package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
)

var listForResaleInstructionDiscriminator = []byte{
	235, 101, 201, 204, 83, 163, 213, 243,
}

const (
	ListForResaleInstructionArgsSize = 0
)

type ListForResaleInstructionArgs struct {
}

type ListForResaleInstructionAccounts struct {
	Mint               ed25519.PublicKey
	SellerTokenAccount ed25519.PublicKey
	ResaleEscrow       ed25519.PublicKey
	Seller             ed25519.PublicKey
}

func NewListForResaleInstruction(
	accounts *ListForResaleInstructionAccounts,
	args *ListForResaleInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(listForResaleInstructionDiscriminator)+
			ListForResaleInstructionArgsSize)

	putDiscriminator(data, listForResaleInstructionDiscriminator, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Mint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.SellerTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.ResaleEscrow,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Seller,
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
