package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/binary"
)

var transferCouponInstructionDiscriminator = []byte{
	144, 38, 18, 1, 196, 64, 73, 74,
}

const (
	TransferCouponInstructionArgsSize = 8 // price_lamports
)

type TransferCouponInstructionArgs struct {
	PriceLamports uint64
}

// TransferCouponInstructionAccounts describe a direct wallet to wallet swap.
// The seller authorizes the token transfer, so both parties must sign.
type TransferCouponInstructionAccounts struct {
	Mint               ed25519.PublicKey
	SellerTokenAccount ed25519.PublicKey
	BuyerTokenAccount  ed25519.PublicKey
	Seller             ed25519.PublicKey
	Buyer              ed25519.PublicKey
	PlatformWallet     ed25519.PublicKey
}

func NewTransferCouponInstruction(
	accounts *TransferCouponInstructionAccounts,
	args *TransferCouponInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(transferCouponInstructionDiscriminator)+
			TransferCouponInstructionArgsSize)

	putDiscriminator(data, transferCouponInstructionDiscriminator, &offset)
	binary.PutUint64(data, args.PriceLamports, &offset)

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
				PublicKey:  accounts.BuyerTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Seller,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Buyer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.PlatformWallet,
				IsWritable: true,
				IsSigner:   false,
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
