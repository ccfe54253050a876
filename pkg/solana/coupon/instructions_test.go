package coupon

import (
	"crypto/ed25519"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/solana"
)

func TestCreateCoupon_ByteLayout(t *testing.T) {
	args := &CreateCouponInstructionArgs{
		Title:              "Half off",
		Description:        "Any large pizza",
		DiscountPercentage: 50,
		ExpiryDate:         1_900_000_000,
		Category:           CategoryTravel,
		MaxRedemptions:     3,
		MetadataUri:        "https://example.com/m.json",
		Price:              250_000_000,
	}

	ix, err := NewCreateCouponInstruction(testCreateCouponAccounts(), args)
	require.NoError(t, err)

	data := ix.Data
	require.Len(t, data, 8+4+8+4+15+1+8+1+1+4+26+8)

	assert.Equal(t, createCouponInstructionDiscriminator, data[:8])
	assert.EqualValues(t, 8, binary.LittleEndian.Uint32(data[8:]))
	assert.Equal(t, "Half off", string(data[12:20]))
	assert.EqualValues(t, 15, binary.LittleEndian.Uint32(data[20:]))
	assert.Equal(t, "Any large pizza", string(data[24:39]))
	assert.EqualValues(t, 50, data[39])
	assert.EqualValues(t, 1_900_000_000, int64(binary.LittleEndian.Uint64(data[40:])))
	assert.EqualValues(t, 3, data[48]) // travel
	assert.EqualValues(t, 3, data[49])
	assert.EqualValues(t, 26, binary.LittleEndian.Uint32(data[50:]))
	assert.Equal(t, "https://example.com/m.json", string(data[54:80]))
	assert.EqualValues(t, 250_000_000, binary.LittleEndian.Uint64(data[80:]))

	require.Len(t, ix.Accounts, 15)
	assert.True(t, ix.Accounts[4].IsSigner)
	assert.True(t, ix.Accounts[7].IsSigner)
	assert.EqualValues(t, METADATA_PROGRAM_ID, ix.Accounts[9].PublicKey)
	assert.EqualValues(t, SYSVAR_INSTRUCTIONS_PUBKEY, ix.Accounts[14].PublicKey)
}

func TestCreateCoupon_RoundTrip(t *testing.T) {
	accounts := testCreateCouponAccounts()
	args := &CreateCouponInstructionArgs{
		Title:              strings.Repeat("t", MaxTitleLength),
		Description:        "",
		DiscountPercentage: 100,
		ExpiryDate:         -1,
		Category:           CategoryOther,
		MaxRedemptions:     255,
		MetadataUri:        "ipfs://cid",
		Price:              0,
	}

	ix, err := NewCreateCouponInstruction(accounts, args)
	require.NoError(t, err)

	txn := solana.NewTransaction(accounts.MerchantAuthority, ix)
	actualArgs, actualAccounts, err := CreateCouponInstructionFromLegacyInstruction(txn, 0)
	require.NoError(t, err)
	assert.Equal(t, args, actualArgs)
	assert.Equal(t, accounts, actualAccounts)
}

func TestStringOverflow_FailsLoudly(t *testing.T) {
	accounts := testCreateCouponAccounts()

	for _, args := range []*CreateCouponInstructionArgs{
		{Title: strings.Repeat("t", MaxTitleLength+1), Category: CategoryRetail},
		{Description: strings.Repeat("d", MaxDescriptionLength+1), Category: CategoryRetail},
		{MetadataUri: strings.Repeat("u", MaxMetadataUriLength+1), Category: CategoryRetail},
	} {
		_, err := NewCreateCouponInstruction(accounts, args)
		assert.ErrorIs(t, err, ErrStringTooLong)
	}

	_, err := NewCreateCouponInstruction(accounts, &CreateCouponInstructionArgs{Category: Category(9)})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = NewInitializeMerchantInstruction(
		&InitializeMerchantInstructionAccounts{Merchant: testKey(1), Authority: testKey(2)},
		&InitializeMerchantInstructionArgs{BusinessName: strings.Repeat("b", MaxBusinessNameLength+1)},
	)
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestInitializeMerchant_RoundTrip(t *testing.T) {
	accounts := &InitializeMerchantInstructionAccounts{Merchant: testKey(1), Authority: testKey(40)}
	args := &InitializeMerchantInstructionArgs{BusinessName: "Café Zoë"}

	ix, err := NewInitializeMerchantInstruction(accounts, args)
	require.NoError(t, err)
	assert.EqualValues(t, len("Café Zoë"), binary.LittleEndian.Uint32(ix.Data[8:]))

	txn := solana.NewTransaction(accounts.Authority, ix)
	actualArgs, actualAccounts, err := InitializeMerchantInstructionFromLegacyInstruction(txn, 0)
	require.NoError(t, err)
	assert.Equal(t, args, actualArgs)
	assert.Equal(t, accounts, actualAccounts)
}

func TestClaimCoupon_RoundTrip(t *testing.T) {
	accounts := &ClaimCouponInstructionAccounts{
		CouponData:       testKey(1),
		Merchant:         testKey(2),
		Escrow:           testKey(3),
		Mint:             testKey(4),
		UserTokenAccount: testKey(5),
		User:             testKey(6),
	}

	ix := NewClaimCouponInstruction(accounts, &ClaimCouponInstructionArgs{})
	assert.Equal(t, claimCouponInstructionDiscriminator, ix.Data)
	assertAccountFlags(t, ix, "w", "w", "w", "", "w", "ws", "", "", "")

	txn := solana.NewTransaction(accounts.User, ix)
	_, actual, err := ClaimCouponInstructionFromLegacyInstruction(txn, 0)
	require.NoError(t, err)
	assert.Equal(t, accounts, actual)
}

func TestPurchaseCoupon_RoundTrip(t *testing.T) {
	accounts := &PurchaseCouponInstructionAccounts{
		CouponData:        testKey(1),
		Merchant:          testKey(2),
		MerchantAuthority: testKey(3),
		PlatformWallet:    testKey(4),
		Escrow:            testKey(5),
		Mint:              testKey(6),
		BuyerTokenAccount: testKey(7),
		Buyer:             testKey(8),
	}

	ix := NewPurchaseCouponInstruction(accounts, &PurchaseCouponInstructionArgs{})
	assert.Equal(t, purchaseCouponInstructionDiscriminator, ix.Data)
	assertAccountFlags(t, ix, "w", "w", "w", "w", "w", "", "w", "ws", "", "", "")

	txn := solana.NewTransaction(accounts.Buyer, ix)
	_, actual, err := PurchaseCouponInstructionFromLegacyInstruction(txn, 0)
	require.NoError(t, err)
	assert.Equal(t, accounts, actual)
}

func TestRedeemCoupon_RoundTrip(t *testing.T) {
	accounts := &RedeemCouponInstructionAccounts{
		CouponData:       testKey(1),
		Merchant:         testKey(2),
		Mint:             testKey(3),
		UserTokenAccount: testKey(4),
		User:             testKey(5),
	}

	ix := NewRedeemCouponInstruction(accounts, &RedeemCouponInstructionArgs{})
	assert.Equal(t, redeemCouponInstructionDiscriminator, ix.Data)
	assertAccountFlags(t, ix, "w", "", "w", "w", "ws", "")

	txn := solana.NewTransaction(accounts.User, ix)
	_, actual, err := RedeemCouponInstructionFromLegacyInstruction(txn, 0)
	require.NoError(t, err)
	assert.Equal(t, accounts, actual)
}

func TestUpdateCouponStatus_RoundTrip(t *testing.T) {
	accounts := &UpdateCouponStatusInstructionAccounts{
		Merchant:          testKey(1),
		CouponData:        testKey(2),
		Authority:         testKey(3),
		MerchantAuthority: testKey(3),
	}

	for _, isActive := range []bool{true, false} {
		args := &UpdateCouponStatusInstructionArgs{IsActive: isActive}
		ix := NewUpdateCouponStatusInstruction(accounts, args)
		require.Len(t, ix.Data, 9)

		txn := solana.NewTransaction(accounts.MerchantAuthority, ix)
		actualArgs, actualAccounts, err := UpdateCouponStatusInstructionFromLegacyInstruction(txn, 0)
		require.NoError(t, err)
		assert.Equal(t, args, actualArgs)
		assert.Equal(t, accounts, actualAccounts)
	}
}

func TestTransferCoupon_RoundTrip(t *testing.T) {
	accounts := &TransferCouponInstructionAccounts{
		Mint:               testKey(1),
		SellerTokenAccount: testKey(2),
		BuyerTokenAccount:  testKey(3),
		Seller:             testKey(4),
		Buyer:              testKey(5),
		PlatformWallet:     testKey(6),
	}
	args := &TransferCouponInstructionArgs{PriceLamports: 1<<63 + 7}

	ix := NewTransferCouponInstruction(accounts, args)
	assertAccountFlags(t, ix, "", "w", "w", "ws", "ws", "w", "", "", "")

	txn := solana.NewTransaction(accounts.Buyer, ix)
	assert.Len(t, txn.Signers(), 2)

	actualArgs, actualAccounts, err := TransferCouponInstructionFromLegacyInstruction(txn, 0)
	require.NoError(t, err)
	assert.Equal(t, args, actualArgs)
	assert.Equal(t, accounts, actualAccounts)
}

func TestListForResale_RoundTrip(t *testing.T) {
	accounts := &ListForResaleInstructionAccounts{
		Mint:               testKey(1),
		SellerTokenAccount: testKey(2),
		ResaleEscrow:       testKey(3),
		Seller:             testKey(4),
	}

	ix := NewListForResaleInstruction(accounts, &ListForResaleInstructionArgs{})
	assertAccountFlags(t, ix, "", "w", "w", "ws", "", "", "")

	txn := solana.NewTransaction(accounts.Seller, ix)
	_, actual, err := ListForResaleInstructionFromLegacyInstruction(txn, 0)
	require.NoError(t, err)
	assert.Equal(t, accounts, actual)
}

func TestPurchaseFromResale_RoundTrip(t *testing.T) {
	accounts := &PurchaseFromResaleInstructionAccounts{
		Mint:              testKey(1),
		ResaleEscrow:      testKey(2),
		BuyerTokenAccount: testKey(3),
		Seller:            testKey(4),
		Buyer:             testKey(5),
		PlatformWallet:    testKey(6),
	}
	args := &PurchaseFromResaleInstructionArgs{PriceLamports: 42_000}

	ix := NewPurchaseFromResaleInstruction(accounts, args)
	assertAccountFlags(t, ix, "", "w", "w", "w", "ws", "w", "", "", "")

	txn := solana.NewTransaction(accounts.Buyer, ix)
	assert.Len(t, txn.Signers(), 1)

	actualArgs, actualAccounts, err := PurchaseFromResaleInstructionFromLegacyInstruction(txn, 0)
	require.NoError(t, err)
	assert.Equal(t, args, actualArgs)
	assert.Equal(t, accounts, actualAccounts)
}

func TestLegacyDecoding_Rejections(t *testing.T) {
	accounts := &ClaimCouponInstructionAccounts{
		CouponData:       testKey(1),
		Merchant:         testKey(2),
		Escrow:           testKey(3),
		Mint:             testKey(4),
		UserTokenAccount: testKey(5),
		User:             testKey(6),
	}
	txn := solana.NewTransaction(accounts.User, NewClaimCouponInstruction(accounts, &ClaimCouponInstructionArgs{}))

	// Wrong discriminator
	_, _, err := PurchaseCouponInstructionFromLegacyInstruction(txn, 0)
	assert.Equal(t, ErrInvalidInstructionData, err)

	// Out of range
	_, _, err = ClaimCouponInstructionFromLegacyInstruction(txn, 1)
	assert.Equal(t, ErrInvalidInstructionData, err)

	// Wrong program
	other := solana.NewInstruction(testKey(77), claimCouponInstructionDiscriminator)
	txn = solana.NewTransaction(accounts.User, other)
	_, _, err = ClaimCouponInstructionFromLegacyInstruction(txn, 0)
	assert.Equal(t, ErrInvalidProgram, err)

	// Truncated string
	data := append([]byte{}, initializeMerchantInstructionDiscriminator...)
	data = append(data, 10, 0, 0, 0, 'a')
	truncated := solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(testKey(1), false),
		solana.NewAccountMeta(testKey(2), true),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
	txn = solana.NewTransaction(testKey(2), truncated)
	_, _, err = InitializeMerchantInstructionFromLegacyInstruction(txn, 0)
	assert.Equal(t, ErrInvalidInstructionData, err)
}

func testCreateCouponAccounts() *CreateCouponInstructionAccounts {
	return &CreateCouponInstructionAccounts{
		Merchant:             testKey(1),
		CouponData:           testKey(2),
		MerchantTokenAccount: testKey(3),
		Escrow:               testKey(4),
		Mint:                 testKey(5),
		Metadata:             testKey(6),
		MasterEdition:        testKey(7),
		MerchantAuthority:    testKey(8),
		Authority:            testKey(8),
	}
}

func assertAccountFlags(t *testing.T, ix solana.Instruction, flags ...string) {
	require.Len(t, ix.Accounts, len(flags))
	for i, expected := range flags {
		var actual string
		if ix.Accounts[i].IsWritable {
			actual += "w"
		}
		if ix.Accounts[i].IsSigner {
			actual += "s"
		}
		assert.Equal(t, expected, actual, "account %d", i)
		assert.Len(t, ix.Accounts[i].PublicKey, ed25519.PublicKeySize)
	}
}
