package coupon

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/binary"
)

func InitializeMerchantInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*InitializeMerchantInstructionArgs, *InitializeMerchantInstructionAccounts, error) {
	instruction, offset, err := getLegacyInstruction(txn, idx, initializeMerchantInstructionDiscriminator, 0, 3)
	if err != nil {
		return nil, nil, err
	}

	var args InitializeMerchantInstructionArgs
	var accounts InitializeMerchantInstructionAccounts

	// Instruction Args
	if err := getString(instruction.Data, &args.BusinessName, &offset); err != nil {
		return nil, nil, err
	}

	// Instruction Accounts
	accounts.Merchant = getLegacyAccount(txn, instruction, 0)
	accounts.Authority = getLegacyAccount(txn, instruction, 1)

	return &args, &accounts, nil
}

func CreateCouponInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*CreateCouponInstructionArgs, *CreateCouponInstructionAccounts, error) {
	instruction, offset, err := getLegacyInstruction(txn, idx, createCouponInstructionDiscriminator, 0, 15)
	if err != nil {
		return nil, nil, err
	}

	var args CreateCouponInstructionArgs
	var accounts CreateCouponInstructionAccounts

	// Instruction Args
	if err := getString(instruction.Data, &args.Title, &offset); err != nil {
		return nil, nil, err
	}
	if err := getString(instruction.Data, &args.Description, &offset); err != nil {
		return nil, nil, err
	}
	if len(instruction.Data) < offset+1+8+1+1 {
		return nil, nil, ErrInvalidInstructionData
	}
	binary.GetUint8(instruction.Data, &args.DiscountPercentage, &offset)
	binary.GetInt64(instruction.Data, &args.ExpiryDate, &offset)
	var category uint8
	binary.GetUint8(instruction.Data, &category, &offset)
	args.Category = Category(category)
	binary.GetUint8(instruction.Data, &args.MaxRedemptions, &offset)
	if err := getString(instruction.Data, &args.MetadataUri, &offset); err != nil {
		return nil, nil, err
	}
	if len(instruction.Data) < offset+8 {
		return nil, nil, ErrInvalidInstructionData
	}
	binary.GetUint64(instruction.Data, &args.Price, &offset)

	// Instruction Accounts
	accounts.Merchant = getLegacyAccount(txn, instruction, 0)
	accounts.CouponData = getLegacyAccount(txn, instruction, 1)
	accounts.MerchantTokenAccount = getLegacyAccount(txn, instruction, 2)
	accounts.Escrow = getLegacyAccount(txn, instruction, 3)
	accounts.Mint = getLegacyAccount(txn, instruction, 4)
	accounts.Metadata = getLegacyAccount(txn, instruction, 5)
	accounts.MasterEdition = getLegacyAccount(txn, instruction, 6)
	accounts.MerchantAuthority = getLegacyAccount(txn, instruction, 7)
	accounts.Authority = getLegacyAccount(txn, instruction, 8)

	return &args, &accounts, nil
}

func ClaimCouponInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*ClaimCouponInstructionArgs, *ClaimCouponInstructionAccounts, error) {
	instruction, _, err := getLegacyInstruction(txn, idx, claimCouponInstructionDiscriminator, ClaimCouponInstructionArgsSize, 9)
	if err != nil {
		return nil, nil, err
	}

	var args ClaimCouponInstructionArgs
	var accounts ClaimCouponInstructionAccounts

	// Instruction Accounts
	accounts.CouponData = getLegacyAccount(txn, instruction, 0)
	accounts.Merchant = getLegacyAccount(txn, instruction, 1)
	accounts.Escrow = getLegacyAccount(txn, instruction, 2)
	accounts.Mint = getLegacyAccount(txn, instruction, 3)
	accounts.UserTokenAccount = getLegacyAccount(txn, instruction, 4)
	accounts.User = getLegacyAccount(txn, instruction, 5)

	return &args, &accounts, nil
}

func PurchaseCouponInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*PurchaseCouponInstructionArgs, *PurchaseCouponInstructionAccounts, error) {
	instruction, _, err := getLegacyInstruction(txn, idx, purchaseCouponInstructionDiscriminator, PurchaseCouponInstructionArgsSize, 11)
	if err != nil {
		return nil, nil, err
	}

	var args PurchaseCouponInstructionArgs
	var accounts PurchaseCouponInstructionAccounts

	// Instruction Accounts
	accounts.CouponData = getLegacyAccount(txn, instruction, 0)
	accounts.Merchant = getLegacyAccount(txn, instruction, 1)
	accounts.MerchantAuthority = getLegacyAccount(txn, instruction, 2)
	accounts.PlatformWallet = getLegacyAccount(txn, instruction, 3)
	accounts.Escrow = getLegacyAccount(txn, instruction, 4)
	accounts.Mint = getLegacyAccount(txn, instruction, 5)
	accounts.BuyerTokenAccount = getLegacyAccount(txn, instruction, 6)
	accounts.Buyer = getLegacyAccount(txn, instruction, 7)

	return &args, &accounts, nil
}

func RedeemCouponInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*RedeemCouponInstructionArgs, *RedeemCouponInstructionAccounts, error) {
	instruction, _, err := getLegacyInstruction(txn, idx, redeemCouponInstructionDiscriminator, RedeemCouponInstructionArgsSize, 6)
	if err != nil {
		return nil, nil, err
	}

	var args RedeemCouponInstructionArgs
	var accounts RedeemCouponInstructionAccounts

	// Instruction Accounts
	accounts.CouponData = getLegacyAccount(txn, instruction, 0)
	accounts.Merchant = getLegacyAccount(txn, instruction, 1)
	accounts.Mint = getLegacyAccount(txn, instruction, 2)
	accounts.UserTokenAccount = getLegacyAccount(txn, instruction, 3)
	accounts.User = getLegacyAccount(txn, instruction, 4)

	return &args, &accounts, nil
}

func UpdateCouponStatusInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*UpdateCouponStatusInstructionArgs, *UpdateCouponStatusInstructionAccounts, error) {
	instruction, offset, err := getLegacyInstruction(txn, idx, updateCouponStatusInstructionDiscriminator, UpdateCouponStatusInstructionArgsSize, 4)
	if err != nil {
		return nil, nil, err
	}

	var args UpdateCouponStatusInstructionArgs
	var accounts UpdateCouponStatusInstructionAccounts

	// Instruction Args
	binary.GetBool(instruction.Data, &args.IsActive, &offset)

	// Instruction Accounts
	accounts.Merchant = getLegacyAccount(txn, instruction, 0)
	accounts.CouponData = getLegacyAccount(txn, instruction, 1)
	accounts.Authority = getLegacyAccount(txn, instruction, 2)
	accounts.MerchantAuthority = getLegacyAccount(txn, instruction, 3)

	return &args, &accounts, nil
}

func TransferCouponInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*TransferCouponInstructionArgs, *TransferCouponInstructionAccounts, error) {
	instruction, offset, err := getLegacyInstruction(txn, idx, transferCouponInstructionDiscriminator, TransferCouponInstructionArgsSize, 9)
	if err != nil {
		return nil, nil, err
	}

	var args TransferCouponInstructionArgs
	var accounts TransferCouponInstructionAccounts

	// Instruction Args
	binary.GetUint64(instruction.Data, &args.PriceLamports, &offset)

	// Instruction Accounts
	accounts.Mint = getLegacyAccount(txn, instruction, 0)
	accounts.SellerTokenAccount = getLegacyAccount(txn, instruction, 1)
	accounts.BuyerTokenAccount = getLegacyAccount(txn, instruction, 2)
	accounts.Seller = getLegacyAccount(txn, instruction, 3)
	accounts.Buyer = getLegacyAccount(txn, instruction, 4)
	accounts.PlatformWallet = getLegacyAccount(txn, instruction, 5)

	return &args, &accounts, nil
}

func ListForResaleInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*ListForResaleInstructionArgs, *ListForResaleInstructionAccounts, error) {
	instruction, _, err := getLegacyInstruction(txn, idx, listForResaleInstructionDiscriminator, ListForResaleInstructionArgsSize, 7)
	if err != nil {
		return nil, nil, err
	}

	var args ListForResaleInstructionArgs
	var accounts ListForResaleInstructionAccounts

	// Instruction Accounts
	accounts.Mint = getLegacyAccount(txn, instruction, 0)
	accounts.SellerTokenAccount = getLegacyAccount(txn, instruction, 1)
	accounts.ResaleEscrow = getLegacyAccount(txn, instruction, 2)
	accounts.Seller = getLegacyAccount(txn, instruction, 3)

	return &args, &accounts, nil
}

func PurchaseFromResaleInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*PurchaseFromResaleInstructionArgs, *PurchaseFromResaleInstructionAccounts, error) {
	instruction, offset, err := getLegacyInstruction(txn, idx, purchaseFromResaleInstructionDiscriminator, PurchaseFromResaleInstructionArgsSize, 9)
	if err != nil {
		return nil, nil, err
	}

	var args PurchaseFromResaleInstructionArgs
	var accounts PurchaseFromResaleInstructionAccounts

	// Instruction Args
	binary.GetUint64(instruction.Data, &args.PriceLamports, &offset)

	// Instruction Accounts
	accounts.Mint = getLegacyAccount(txn, instruction, 0)
	accounts.ResaleEscrow = getLegacyAccount(txn, instruction, 1)
	accounts.BuyerTokenAccount = getLegacyAccount(txn, instruction, 2)
	accounts.Seller = getLegacyAccount(txn, instruction, 3)
	accounts.Buyer = getLegacyAccount(txn, instruction, 4)
	accounts.PlatformWallet = getLegacyAccount(txn, instruction, 5)

	return &args, &accounts, nil
}

// getLegacyInstruction validates the program, discriminator and minimum sizes
// of the compiled instruction at idx, returning the offset just past the
// discriminator.
func getLegacyInstruction(txn solana.Transaction, idx int, expected []byte, argsSize, numAccounts int) (solana.CompiledInstruction, int, error) {
	var offset int
	var discriminator []byte

	if idx < 0 || idx >= len(txn.Message.Instructions) {
		return solana.CompiledInstruction{}, 0, ErrInvalidInstructionData
	}

	instruction := txn.Message.Instructions[idx]

	programAccount := txn.Message.Accounts[instruction.ProgramIndex]
	if !bytes.Equal(PROGRAM_ADDRESS, programAccount) {
		return solana.CompiledInstruction{}, 0, ErrInvalidProgram
	}

	if len(instruction.Data) < len(expected)+argsSize {
		return solana.CompiledInstruction{}, 0, ErrInvalidInstructionData
	}

	getDiscriminator(instruction.Data, &discriminator, &offset)

	if !bytes.Equal(discriminator, expected) {
		return solana.CompiledInstruction{}, 0, ErrInvalidInstructionData
	}

	if len(instruction.Accounts) < numAccounts {
		return solana.CompiledInstruction{}, 0, ErrInvalidInstructionData
	}

	return instruction, offset, nil
}

func getLegacyAccount(txn solana.Transaction, instruction solana.CompiledInstruction, i int) ed25519.PublicKey {
	return txn.Message.Accounts[instruction.Accounts[i]]
}
