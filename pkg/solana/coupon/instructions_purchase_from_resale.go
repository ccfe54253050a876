package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/binary"
)

var purchaseFromResaleInstructionDiscriminator = []byte{
	143, 182, 123, 16, 21, 61, 245, 176,
}

const (
	PurchaseFromResaleInstructionArgsSize = 8 // price_lamports
)

type PurchaseFromResaleInstructionArgs struct {
	PriceLamports uint64
}

// PurchaseFromResaleInstructionAccounts release a listed unit from the resale
// escrow to the buyer. The seller does not sign since the escrow is the
// transfer authority.
type PurchaseFromResaleInstructionAccounts struct {
	Mint              ed25519.PublicKey
	ResaleEscrow      ed25519.PublicKey
	BuyerTokenAccount ed25519.PublicKey
	Seller            ed25519.PublicKey
	Buyer             ed25519.PublicKey
	PlatformWallet    ed25519.PublicKey
}

func NewPurchaseFromResaleInstruction(
	accounts *PurchaseFromResaleInstructionAccounts,
	args *PurchaseFromResaleInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(purchaseFromResaleInstructionDiscriminator)+
			PurchaseFromResaleInstructionArgsSize)

	putDiscriminator(data, purchaseFromResaleInstructionDiscriminator, &offset)
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
				PublicKey:  accounts.ResaleEscrow,
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
				IsSigner:   false,
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
