package solanatest

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/coupon"
	"github.com/code-payments/coupon-server/pkg/solana/token"
)

type wallet struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func newWallet(t *testing.T) wallet {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return wallet{pub: pub, priv: priv}
}

func submit(t *testing.T, l *Ledger, payer wallet, ix solana.Instruction, signers ...wallet) (solana.Signature, error) {
	txn := solana.NewTransaction(payer.pub, ix)

	bh, err := l.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	txn.SetBlockhash(bh)

	keys := []ed25519.PrivateKey{payer.priv}
	for _, signer := range signers {
		keys = append(keys, signer.priv)
	}
	require.NoError(t, txn.Sign(keys...))

	return l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
}

func requireProgramError(t *testing.T, err error, expected int) {
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "unexpected error type: %T", err)
	require.NotNil(t, txErr.InstructionError())
	require.NotNil(t, txErr.InstructionError().CustomError())
	assert.EqualValues(t, expected, *txErr.InstructionError().CustomError())
}

type issued struct {
	merchant  wallet
	mint      ed25519.PublicKey
	addresses *coupon.Addresses
}

func issue(t *testing.T, l *Ledger, price uint64, maxRedemptions uint8) issued {
	merchant := newWallet(t)
	mint := newWallet(t).pub

	_, err := l.SetMerchant(merchant.pub, "Corner Cafe")
	require.NoError(t, err)

	require.NoError(t, l.IssueCoupon(merchant.pub, mint, &coupon.CouponDataAccount{
		DiscountPercentage:   20,
		ExpiryDate:           time.Now().Add(time.Hour).Unix(),
		Category:             coupon.CategoryFoodAndBeverage,
		RedemptionsRemaining: maxRedemptions,
		MaxRedemptions:       maxRedemptions,
		IsActive:             true,
		Price:                price,
	}))

	addresses, err := coupon.DeriveAddresses(merchant.pub, mint)
	require.NoError(t, err)

	return issued{merchant: merchant, mint: mint, addresses: addresses}
}

func TestLedger_CouponLifecycle(t *testing.T) {
	ctx := context.Background()
	l := New()

	merchant := newWallet(t)
	mint := newWallet(t)
	user := newWallet(t)

	addresses, err := coupon.DeriveAddresses(merchant.pub, mint.pub)
	require.NoError(t, err)

	ix, err := coupon.NewInitializeMerchantInstruction(
		&coupon.InitializeMerchantInstructionAccounts{
			Merchant:  addresses.Merchant,
			Authority: merchant.pub,
		},
		&coupon.InitializeMerchantInstructionArgs{BusinessName: "Corner Cafe"},
	)
	require.NoError(t, err)
	_, err = submit(t, l, merchant, ix)
	require.NoError(t, err)

	merchantTokenAccount, err := token.GetAssociatedAccount(merchant.pub, mint.pub)
	require.NoError(t, err)

	ix, err = coupon.NewCreateCouponInstruction(
		&coupon.CreateCouponInstructionAccounts{
			Merchant:             addresses.Merchant,
			CouponData:           addresses.CouponData,
			MerchantTokenAccount: merchantTokenAccount,
			Escrow:               addresses.Escrow,
			Mint:                 mint.pub,
			Metadata:             addresses.Metadata,
			MasterEdition:        addresses.MasterEdition,
			MerchantAuthority:    merchant.pub,
			Authority:            merchant.pub,
		},
		&coupon.CreateCouponInstructionArgs{
			Title:              "Free coffee",
			DiscountPercentage: 100,
			ExpiryDate:         time.Now().Add(time.Hour).Unix(),
			Category:           coupon.CategoryFoodAndBeverage,
			MaxRedemptions:     2,
			MetadataUri:        "https://example.com/coffee.json",
		},
	)
	require.NoError(t, err)
	_, err = submit(t, l, merchant, ix, mint)
	require.NoError(t, err)

	assert.EqualValues(t, 1, l.TokenBalance(addresses.Escrow))

	info, err := l.GetAccountInfo(ctx, addresses.Merchant, solana.CommitmentConfirmed)
	require.NoError(t, err)
	var merchantAccount coupon.MerchantAccount
	require.NoError(t, merchantAccount.Unmarshal(info.Data))
	assert.EqualValues(t, 1, merchantAccount.TotalCouponsCreated)

	userTokenAccount, err := token.GetAssociatedAccount(user.pub, mint.pub)
	require.NoError(t, err)

	_, err = submit(t, l, user, coupon.NewClaimCouponInstruction(
		&coupon.ClaimCouponInstructionAccounts{
			CouponData:       addresses.CouponData,
			Merchant:         addresses.Merchant,
			Escrow:           addresses.Escrow,
			Mint:             mint.pub,
			UserTokenAccount: userTokenAccount,
			User:             user.pub,
		},
		&coupon.ClaimCouponInstructionArgs{},
	))
	require.NoError(t, err)

	assert.EqualValues(t, 0, l.TokenBalance(addresses.Escrow))
	assert.EqualValues(t, 1, l.TokenBalance(userTokenAccount))

	owned, err := l.GetTokenAccountsByOwner(ctx, user.pub, mint.pub)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.EqualValues(t, userTokenAccount, owned[0])

	sig, err := submit(t, l, user, coupon.NewRedeemCouponInstruction(
		&coupon.RedeemCouponInstructionAccounts{
			CouponData:       addresses.CouponData,
			Merchant:         addresses.Merchant,
			Mint:             mint.pub,
			UserTokenAccount: userTokenAccount,
			User:             user.pub,
		},
		&coupon.RedeemCouponInstructionArgs{},
	))
	require.NoError(t, err)

	status, err := solana.AwaitConfirmation(ctx, l, sig, solana.CommitmentConfirmed, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, status.Finalized())

	// Claiming consumed one use, so this was the last and the asset is burned
	assert.EqualValues(t, 0, l.TokenBalance(userTokenAccount))

	data, err := l.CouponData(mint.pub)
	require.NoError(t, err)
	assert.EqualValues(t, 0, data.RedemptionsRemaining)

	confirmed, err := l.GetTransaction(ctx, sig, solana.CommitmentConfirmed)
	require.NoError(t, err)
	event, err := coupon.RedemptionEventFromLogs(confirmed.Meta.LogMessages)
	require.NoError(t, err)
	assert.EqualValues(t, mint.pub, event.Mint)
	assert.EqualValues(t, user.pub, event.User)
	assert.EqualValues(t, addresses.Merchant, event.Merchant)
	assert.EqualValues(t, 0, event.RedemptionsRemaining)
}

func TestLedger_CreateCouponValidation(t *testing.T) {
	l := New()

	merchant := newWallet(t)
	_, err := l.SetMerchant(merchant.pub, "Corner Cafe")
	require.NoError(t, err)

	for _, tc := range []struct {
		name     string
		discount uint8
		expiry   int64
		max      uint8
		expected coupon.ProgramError
	}{
		{"zero discount", 0, time.Now().Add(time.Hour).Unix(), 1, coupon.ErrInvalidDiscountPercentage},
		{"discount over 100", 101, time.Now().Add(time.Hour).Unix(), 1, coupon.ErrInvalidDiscountPercentage},
		{"past expiry", 10, time.Now().Add(-time.Hour).Unix(), 1, coupon.ErrInvalidExpiryDate},
		{"zero redemptions", 10, time.Now().Add(time.Hour).Unix(), 0, coupon.ErrInvalidRedemptionAmount},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mint := newWallet(t)

			addresses, err := coupon.DeriveAddresses(merchant.pub, mint.pub)
			require.NoError(t, err)
			merchantTokenAccount, err := token.GetAssociatedAccount(merchant.pub, mint.pub)
			require.NoError(t, err)

			ix, err := coupon.NewCreateCouponInstruction(
				&coupon.CreateCouponInstructionAccounts{
					Merchant:             addresses.Merchant,
					CouponData:           addresses.CouponData,
					MerchantTokenAccount: merchantTokenAccount,
					Escrow:               addresses.Escrow,
					Mint:                 mint.pub,
					Metadata:             addresses.Metadata,
					MasterEdition:        addresses.MasterEdition,
					MerchantAuthority:    merchant.pub,
					Authority:            merchant.pub,
				},
				&coupon.CreateCouponInstructionArgs{
					Title:              "Deal",
					DiscountPercentage: tc.discount,
					ExpiryDate:         tc.expiry,
					Category:           coupon.CategoryRetail,
					MaxRedemptions:     tc.max,
					MetadataUri:        "https://example.com/deal.json",
				},
			)
			require.NoError(t, err)

			_, err = submit(t, l, merchant, ix, mint)
			requireProgramError(t, err, int(tc.expected))

			_, err = l.CouponData(mint.pub)
			assert.Equal(t, solana.ErrNoAccountInfo, err)
		})
	}
}

func TestLedger_PurchaseIsAtomic(t *testing.T) {
	l := New()
	c := issue(t, l, 1_000, 1)

	buyer := newWallet(t)
	platform := newWallet(t)
	l.Fund(buyer.pub, 500)

	buyerTokenAccount, err := token.GetAssociatedAccount(buyer.pub, c.mint)
	require.NoError(t, err)

	ix := coupon.NewPurchaseCouponInstruction(
		&coupon.PurchaseCouponInstructionAccounts{
			CouponData:        c.addresses.CouponData,
			Merchant:          c.addresses.Merchant,
			MerchantAuthority: c.merchant.pub,
			PlatformWallet:    platform.pub,
			Escrow:            c.addresses.Escrow,
			Mint:              c.mint,
			BuyerTokenAccount: buyerTokenAccount,
			Buyer:             buyer.pub,
		},
		&coupon.PurchaseCouponInstructionArgs{},
	)

	_, err = submit(t, l, buyer, ix)
	requireProgramError(t, err, systemResultWithNegativeFunds)

	assert.EqualValues(t, 500, l.Lamports(buyer.pub))
	assert.EqualValues(t, 0, l.Lamports(c.merchant.pub))
	assert.EqualValues(t, 1, l.TokenBalance(c.addresses.Escrow))
	assert.EqualValues(t, 0, l.TokenBalance(buyerTokenAccount))

	l.Fund(buyer.pub, 500)

	_, err = submit(t, l, buyer, ix)
	require.NoError(t, err)

	assert.EqualValues(t, 0, l.Lamports(buyer.pub))
	assert.EqualValues(t, 975, l.Lamports(c.merchant.pub))
	assert.EqualValues(t, 25, l.Lamports(platform.pub))
	assert.EqualValues(t, 0, l.TokenBalance(c.addresses.Escrow))
	assert.EqualValues(t, 1, l.TokenBalance(buyerTokenAccount))

	// Escrow is now empty
	_, err = submit(t, l, buyer, ix)
	requireProgramError(t, err, int(coupon.ErrNoRedemptionsRemaining))
}

func TestLedger_ClaimRejectsPaidCoupon(t *testing.T) {
	l := New()
	c := issue(t, l, 1_000, 1)

	user := newWallet(t)
	userTokenAccount, err := token.GetAssociatedAccount(user.pub, c.mint)
	require.NoError(t, err)

	_, err = submit(t, l, user, coupon.NewClaimCouponInstruction(
		&coupon.ClaimCouponInstructionAccounts{
			CouponData:       c.addresses.CouponData,
			Merchant:         c.addresses.Merchant,
			Escrow:           c.addresses.Escrow,
			Mint:             c.mint,
			UserTokenAccount: userTokenAccount,
			User:             user.pub,
		},
		&coupon.ClaimCouponInstructionArgs{},
	))
	requireProgramError(t, err, int(coupon.ErrNotFreeCoupon))
	assert.EqualValues(t, 1, l.TokenBalance(c.addresses.Escrow))
}

func TestLedger_RedeemChecks(t *testing.T) {
	l := New()
	c := issue(t, l, 0, 3)

	user := newWallet(t)
	userTokenAccount, err := token.GetAssociatedAccount(user.pub, c.mint)
	require.NoError(t, err)
	l.SetTokenBalance(userTokenAccount, user.pub, c.mint, 1)

	ix := coupon.NewRedeemCouponInstruction(
		&coupon.RedeemCouponInstructionAccounts{
			CouponData:       c.addresses.CouponData,
			Merchant:         c.addresses.Merchant,
			Mint:             c.mint,
			UserTokenAccount: userTokenAccount,
			User:             user.pub,
		},
		&coupon.RedeemCouponInstructionArgs{},
	)

	_, err = submit(t, l, user, ix)
	require.NoError(t, err)

	// Multi use coupons stay with the holder until the last redemption
	assert.EqualValues(t, 1, l.TokenBalance(userTokenAccount))

	other := newWallet(t)
	otherTokenAccount, err := token.GetAssociatedAccount(other.pub, c.mint)
	require.NoError(t, err)
	l.SetTokenBalance(otherTokenAccount, other.pub, c.mint, 0)

	_, err = submit(t, l, other, coupon.NewRedeemCouponInstruction(
		&coupon.RedeemCouponInstructionAccounts{
			CouponData:       c.addresses.CouponData,
			Merchant:         c.addresses.Merchant,
			Mint:             c.mint,
			UserTokenAccount: otherTokenAccount,
			User:             other.pub,
		},
		&coupon.RedeemCouponInstructionArgs{},
	))
	requireProgramError(t, err, int(coupon.ErrUnauthorizedOwner))
	data, err := l.CouponData(c.mint)
	require.NoError(t, err)
	assert.EqualValues(t, 2, data.RedemptionsRemaining)

	_, err = submit(t, l, c.merchant, coupon.NewUpdateCouponStatusInstruction(
		&coupon.UpdateCouponStatusInstructionAccounts{
			Merchant:          c.addresses.Merchant,
			CouponData:        c.addresses.CouponData,
			Authority:         c.merchant.pub,
			MerchantAuthority: c.merchant.pub,
		},
		&coupon.UpdateCouponStatusInstructionArgs{IsActive: false},
	))
	require.NoError(t, err)

	_, err = submit(t, l, user, ix)
	requireProgramError(t, err, int(coupon.ErrCouponNotActive))

	l.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, err = submit(t, l, c.merchant, coupon.NewUpdateCouponStatusInstruction(
		&coupon.UpdateCouponStatusInstructionAccounts{
			Merchant:          c.addresses.Merchant,
			CouponData:        c.addresses.CouponData,
			Authority:         c.merchant.pub,
			MerchantAuthority: c.merchant.pub,
		},
		&coupon.UpdateCouponStatusInstructionArgs{IsActive: true},
	))
	require.NoError(t, err)

	_, err = submit(t, l, user, ix)
	requireProgramError(t, err, int(coupon.ErrCouponExpired))

	data, err = l.CouponData(c.mint)
	require.NoError(t, err)
	assert.EqualValues(t, 2, data.RedemptionsRemaining)
}

func TestLedger_UpdateStatusRequiresMerchant(t *testing.T) {
	l := New()
	c := issue(t, l, 0, 1)
	other := newWallet(t)

	_, err := submit(t, l, other, coupon.NewUpdateCouponStatusInstruction(
		&coupon.UpdateCouponStatusInstructionAccounts{
			Merchant:          c.addresses.Merchant,
			CouponData:        c.addresses.CouponData,
			Authority:         other.pub,
			MerchantAuthority: other.pub,
		},
		&coupon.UpdateCouponStatusInstructionArgs{IsActive: false},
	))
	requireProgramError(t, err, int(coupon.ErrUnauthorizedMerchant))
}

func TestLedger_Resale(t *testing.T) {
	l := New()
	c := issue(t, l, 0, 1)

	seller := newWallet(t)
	buyer := newWallet(t)
	platform := newWallet(t)
	l.Fund(buyer.pub, 2_000)

	sellerTokenAccount, err := token.GetAssociatedAccount(seller.pub, c.mint)
	require.NoError(t, err)
	buyerTokenAccount, err := token.GetAssociatedAccount(buyer.pub, c.mint)
	require.NoError(t, err)
	l.SetTokenBalance(sellerTokenAccount, seller.pub, c.mint, 1)

	resaleEscrow, _, err := coupon.GetResaleEscrowAddress(&coupon.GetResaleEscrowAddressArgs{
		Mint:   c.mint,
		Seller: seller.pub,
	})
	require.NoError(t, err)

	_, err = submit(t, l, seller, coupon.NewListForResaleInstruction(
		&coupon.ListForResaleInstructionAccounts{
			Mint:               c.mint,
			SellerTokenAccount: sellerTokenAccount,
			ResaleEscrow:       resaleEscrow,
			Seller:             seller.pub,
		},
		&coupon.ListForResaleInstructionArgs{},
	))
	require.NoError(t, err)

	assert.EqualValues(t, 0, l.TokenBalance(sellerTokenAccount))
	assert.EqualValues(t, 1, l.TokenBalance(resaleEscrow))

	purchase := func(price uint64) error {
		_, err := submit(t, l, buyer, coupon.NewPurchaseFromResaleInstruction(
			&coupon.PurchaseFromResaleInstructionAccounts{
				Mint:              c.mint,
				ResaleEscrow:      resaleEscrow,
				BuyerTokenAccount: buyerTokenAccount,
				Seller:            seller.pub,
				Buyer:             buyer.pub,
				PlatformWallet:    platform.pub,
			},
			&coupon.PurchaseFromResaleInstructionArgs{PriceLamports: price},
		))
		return err
	}

	requireProgramError(t, purchase(0), int(coupon.ErrInvalidPrice))

	require.NoError(t, purchase(2_000))
	assert.EqualValues(t, 1_950, l.Lamports(seller.pub))
	assert.EqualValues(t, 50, l.Lamports(platform.pub))
	assert.EqualValues(t, 0, l.Lamports(buyer.pub))
	assert.EqualValues(t, 1, l.TokenBalance(buyerTokenAccount))
	assert.EqualValues(t, 0, l.TokenBalance(resaleEscrow))

	requireProgramError(t, purchase(2_000), int(coupon.ErrInvalidNFTAmount))
}

func TestLedger_TransferRequiresBothSignatures(t *testing.T) {
	l := New()
	c := issue(t, l, 0, 1)

	seller := newWallet(t)
	buyer := newWallet(t)
	platform := newWallet(t)
	l.Fund(buyer.pub, 39)

	sellerTokenAccount, err := token.GetAssociatedAccount(seller.pub, c.mint)
	require.NoError(t, err)
	buyerTokenAccount, err := token.GetAssociatedAccount(buyer.pub, c.mint)
	require.NoError(t, err)
	l.SetTokenBalance(sellerTokenAccount, seller.pub, c.mint, 1)

	ix := coupon.NewTransferCouponInstruction(
		&coupon.TransferCouponInstructionAccounts{
			Mint:               c.mint,
			SellerTokenAccount: sellerTokenAccount,
			BuyerTokenAccount:  buyerTokenAccount,
			Seller:             seller.pub,
			Buyer:              buyer.pub,
			PlatformWallet:     platform.pub,
		},
		&coupon.TransferCouponInstructionArgs{PriceLamports: 39},
	)

	txn := solana.NewTransaction(buyer.pub, ix)
	bh, err := l.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	txn.SetBlockhash(bh)
	require.NoError(t, txn.Sign(buyer.priv))

	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	require.Error(t, err)
	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok)
	assert.Equal(t, solana.TransactionErrorSignatureFailure, txErr.ErrorKey())

	require.NoError(t, txn.Sign(seller.priv))
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	require.NoError(t, err)

	// Fee rounds down to zero below 40 lamports
	assert.EqualValues(t, 39, l.Lamports(seller.pub))
	assert.EqualValues(t, 0, l.Lamports(platform.pub))
	assert.EqualValues(t, 1, l.TokenBalance(buyerTokenAccount))

	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	require.Error(t, err)
	txErr, ok = err.(*solana.TransactionError)
	require.True(t, ok)
	assert.Equal(t, solana.TransactionErrorDuplicateSignature, txErr.ErrorKey())
}

func TestLedger_TransferRejectsZeroPrice(t *testing.T) {
	l := New()
	c := issue(t, l, 0, 1)

	seller := newWallet(t)
	buyer := newWallet(t)
	platform := newWallet(t)

	sellerTokenAccount, err := token.GetAssociatedAccount(seller.pub, c.mint)
	require.NoError(t, err)
	buyerTokenAccount, err := token.GetAssociatedAccount(buyer.pub, c.mint)
	require.NoError(t, err)
	l.SetTokenBalance(sellerTokenAccount, seller.pub, c.mint, 1)

	_, err = submit(t, l, buyer, coupon.NewTransferCouponInstruction(
		&coupon.TransferCouponInstructionAccounts{
			Mint:               c.mint,
			SellerTokenAccount: sellerTokenAccount,
			BuyerTokenAccount:  buyerTokenAccount,
			Seller:             seller.pub,
			Buyer:              buyer.pub,
			PlatformWallet:     platform.pub,
		},
		&coupon.TransferCouponInstructionArgs{PriceLamports: 0},
	), seller)
	requireProgramError(t, err, int(coupon.ErrInvalidPrice))

	assert.EqualValues(t, 1, l.TokenBalance(sellerTokenAccount))
	assert.EqualValues(t, 0, l.TokenBalance(buyerTokenAccount))
}

func TestLedger_SubmitFailures(t *testing.T) {
	l := New()
	c := issue(t, l, 0, 1)

	user := newWallet(t)
	userTokenAccount, err := token.GetAssociatedAccount(user.pub, c.mint)
	require.NoError(t, err)

	ix := coupon.NewClaimCouponInstruction(
		&coupon.ClaimCouponInstructionAccounts{
			CouponData:       c.addresses.CouponData,
			Merchant:         c.addresses.Merchant,
			Escrow:           c.addresses.Escrow,
			Mint:             c.mint,
			UserTokenAccount: userTokenAccount,
			User:             user.pub,
		},
		&coupon.ClaimCouponInstructionArgs{},
	)

	injected := errors.New("connection reset")
	l.FailNextSubmit(injected)
	_, err = submit(t, l, user, ix)
	assert.Equal(t, injected, err)
	assert.Empty(t, l.Submitted())
	assert.EqualValues(t, 1, l.TokenBalance(c.addresses.Escrow))

	l.HoldConfirmations(true)
	sig, err := submit(t, l, user, ix)
	require.NoError(t, err)
	assert.Len(t, l.Submitted(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = solana.AwaitConfirmation(ctx, l, sig, solana.CommitmentConfirmed, time.Millisecond)
	assert.Equal(t, solana.ErrConfirmationTimeout, err)
}
