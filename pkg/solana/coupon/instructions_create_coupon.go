package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/binary"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxMetadataUriLength = 200
)

var createCouponInstructionDiscriminator = []byte{
	29, 170, 159, 88, 211, 20, 13, 56,
}

const (
	// Fixed width portion of the args, excluding the three strings
	CreateCouponInstructionFixedArgsSize = (1 + // discount_percentage
		8 + // expiry_date
		1 + // category
		1 + // max_redemptions
		8) // price
)

type CreateCouponInstructionArgs struct {
	Title              string
	Description        string
	DiscountPercentage uint8
	ExpiryDate         int64
	Category           Category
	MaxRedemptions     uint8
	MetadataUri        string
	Price              uint64
}

type CreateCouponInstructionAccounts struct {
	Merchant             ed25519.PublicKey
	CouponData           ed25519.PublicKey
	MerchantTokenAccount ed25519.PublicKey
	Escrow               ed25519.PublicKey
	Mint                 ed25519.PublicKey
	Metadata             ed25519.PublicKey
	MasterEdition        ed25519.PublicKey
	MerchantAuthority    ed25519.PublicKey
	Authority            ed25519.PublicKey
}

func NewCreateCouponInstruction(
	accounts *CreateCouponInstructionAccounts,
	args *CreateCouponInstructionArgs,
) (solana.Instruction, error) {
	var offset int

	if err := args.Category.Validate(); err != nil {
		return solana.Instruction{}, err
	}

	// Serialize instruction arguments
	data := make([]byte,
		len(createCouponInstructionDiscriminator)+
			stringSize(args.Title)+
			stringSize(args.Description)+
			stringSize(args.MetadataUri)+
			CreateCouponInstructionFixedArgsSize)

	putDiscriminator(data, createCouponInstructionDiscriminator, &offset)
	if err := putString(data, args.Title, MaxTitleLength, &offset); err != nil {
		return solana.Instruction{}, err
	}
	if err := putString(data, args.Description, MaxDescriptionLength, &offset); err != nil {
		return solana.Instruction{}, err
	}
	binary.PutUint8(data, args.DiscountPercentage, &offset)
	binary.PutInt64(data, args.ExpiryDate, &offset)
	binary.PutUint8(data, uint8(args.Category), &offset)
	binary.PutUint8(data, args.MaxRedemptions, &offset)
	if err := putString(data, args.MetadataUri, MaxMetadataUriLength, &offset); err != nil {
		return solana.Instruction{}, err
	}
	binary.PutUint64(data, args.Price, &offset)

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
				PublicKey:  accounts.CouponData,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MerchantTokenAccount,
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
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MasterEdition,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MerchantAuthority,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  METADATA_PROGRAM_ID,
				IsWritable: false,
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
			{
				PublicKey:  SYSVAR_RENT_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSVAR_INSTRUCTIONS_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}, nil
}
