package transfer

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	"github.com/code-payments/coupon-server/pkg/coupon/data/resale"
	"github.com/code-payments/coupon-server/pkg/coupon/result"
	"github.com/code-payments/coupon-server/pkg/metrics"
	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/coupon"
)

// ListForResale moves the seller's unit into its resale escrow and records an
// active listing at the asking price. The result carries the listing ID.
func (o *Orchestrator) ListForResale(ctx context.Context, seller common.Signer, mint ed25519.PublicKey, priceLamports uint64) *result.Result {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ListForResale")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method": "ListForResale",
		"mint":   base58.Encode(mint),
		"seller": base58.Encode(seller.Address()),
		"price":  priceLamports,
	})

	sig, err := o.listForResale(ctx, log, seller, mint, priceLamports)
	if err != nil {
		return o.finish(ctx, tracer, log, sig, err)
	}

	listingId := o.recorder.RecordListing(ctx, &resale.Record{
		Mint:      base58.Encode(mint),
		Seller:    base58.Encode(seller.Address()),
		Price:     priceLamports,
		IsActive:  true,
		Signature: sig.String(),
	})
	o.record(ctx, event.ResaleListing, sig, mint, seller.Address(), nil, priceLamports)

	return o.finish(ctx, tracer, log.WithField("listing", listingId), sig, nil).WithListingID(listingId)
}

func (o *Orchestrator) listForResale(ctx context.Context, log *logrus.Entry, seller common.Signer, mint ed25519.PublicKey, priceLamports uint64) (solana.Signature, error) {
	if priceLamports == 0 {
		return solana.Signature{}, result.NewPreconditionError("resale price must be positive")
	}
	if _, _, err := coupon.SplitPayment(priceLamports); err != nil {
		return solana.Signature{}, result.NewPreconditionError("resale price is too large")
	}

	sellerTokenAccount, err := coupon.GetHolderTokenAccount(seller.Address(), mint)
	if err != nil {
		return solana.Signature{}, err
	}

	balance, err := o.sc.GetTokenAccountBalance(ctx, sellerTokenAccount, o.commitment(ctx))
	if err == solana.ErrNoBalance {
		balance = 0
	} else if err != nil {
		return solana.Signature{}, readPrecondition(err)
	}
	if balance != 1 {
		return solana.Signature{}, result.NewPreconditionError("seller does not hold this coupon")
	}

	resaleEscrow, _, err := coupon.GetResaleEscrowAddress(&coupon.GetResaleEscrowAddressArgs{
		Mint:   mint,
		Seller: seller.Address(),
	})
	if err != nil {
		return solana.Signature{}, err
	}

	ix := coupon.NewListForResaleInstruction(
		&coupon.ListForResaleInstructionAccounts{
			Mint:               mint,
			SellerTokenAccount: sellerTokenAccount,
			ResaleEscrow:       resaleEscrow,
			Seller:             seller.Address(),
		},
		&coupon.ListForResaleInstructionArgs{},
	)

	return o.submit(ctx, log, seller.Address(), []common.Signer{seller}, ix)
}

// PurchaseResale buys an active listing. The payment split between the seller
// and the platform and the release of the unit from the resale escrow land in
// one transaction. The listing is deactivated once the purchase is confirmed.
func (o *Orchestrator) PurchaseResale(ctx context.Context, buyer common.Signer, listingId string) *result.Result {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "PurchaseResale")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method":  "PurchaseResale",
		"listing": listingId,
		"buyer":   base58.Encode(buyer.Address()),
	})

	sig, err := o.purchaseResale(ctx, log, buyer, listingId)
	return o.finish(ctx, tracer, log, sig, err).WithListingID(listingId)
}

func (o *Orchestrator) purchaseResale(ctx context.Context, log *logrus.Entry, buyer common.Signer, listingId string) (solana.Signature, error) {
	listing, err := o.listings.Get(ctx, listingId)
	if err == resale.ErrListingNotFound {
		return solana.Signature{}, result.NewPreconditionError("resale listing not found")
	} else if err != nil {
		return solana.Signature{}, result.NewPreconditionError("resale listings unavailable: %s", err.Error())
	}
	if !listing.IsActive {
		return solana.Signature{}, result.NewPreconditionError("resale listing is no longer active")
	}

	mint, err := base58.Decode(listing.Mint)
	if err != nil || len(mint) != ed25519.PublicKeySize {
		return solana.Signature{}, result.NewPreconditionError("resale listing has an invalid mint")
	}
	seller, err := base58.Decode(listing.Seller)
	if err != nil || len(seller) != ed25519.PublicKeySize {
		return solana.Signature{}, result.NewPreconditionError("resale listing has an invalid seller")
	}

	if bytes.Equal(buyer.Address(), seller) {
		return solana.Signature{}, result.NewPreconditionError("seller cannot purchase their own listing")
	}

	platformWallet, err := o.platformWallet(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	resaleEscrow, _, err := coupon.GetResaleEscrowAddress(&coupon.GetResaleEscrowAddressArgs{
		Mint:   mint,
		Seller: seller,
	})
	if err != nil {
		return solana.Signature{}, err
	}

	buyerTokenAccount, err := coupon.GetHolderTokenAccount(buyer.Address(), mint)
	if err != nil {
		return solana.Signature{}, err
	}

	ix := coupon.NewPurchaseFromResaleInstruction(
		&coupon.PurchaseFromResaleInstructionAccounts{
			Mint:              mint,
			ResaleEscrow:      resaleEscrow,
			BuyerTokenAccount: buyerTokenAccount,
			Seller:            seller,
			Buyer:             buyer.Address(),
			PlatformWallet:    platformWallet,
		},
		&coupon.PurchaseFromResaleInstructionArgs{
			PriceLamports: listing.Price,
		},
	)

	log = log.WithFields(logrus.Fields{
		"mint":  listing.Mint,
		"price": listing.Price,
	})

	sig, err := o.submit(ctx, log, buyer.Address(), []common.Signer{buyer}, ix)
	if err != nil {
		return sig, err
	}

	o.recorder.DeactivateListing(ctx, listing.Mint, listingId)
	o.record(ctx, event.ResalePurchase, sig, mint, buyer.Address(), seller, listing.Price)

	return sig, nil
}

// LegacyTransfer is a direct wallet to wallet swap. The buyer pays the fee
// and price, and the seller co-signs to authorize moving the unit.
func (o *Orchestrator) LegacyTransfer(ctx context.Context, seller, buyer common.Signer, mint ed25519.PublicKey, priceLamports uint64) *result.Result {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "LegacyTransfer")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method": "LegacyTransfer",
		"mint":   base58.Encode(mint),
		"seller": base58.Encode(seller.Address()),
		"buyer":  base58.Encode(buyer.Address()),
		"price":  priceLamports,
	})

	sig, err := o.legacyTransfer(ctx, log, seller, buyer, mint, priceLamports)
	return o.finish(ctx, tracer, log, sig, err)
}

func (o *Orchestrator) legacyTransfer(ctx context.Context, log *logrus.Entry, seller, buyer common.Signer, mint ed25519.PublicKey, priceLamports uint64) (solana.Signature, error) {
	if bytes.Equal(seller.Address(), buyer.Address()) {
		return solana.Signature{}, result.NewPreconditionError("seller and buyer must differ")
	}
	if priceLamports == 0 {
		return solana.Signature{}, result.NewPreconditionError("price must be greater than 0")
	}

	platformWallet, err := o.platformWallet(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	sellerTokenAccount, err := coupon.GetHolderTokenAccount(seller.Address(), mint)
	if err != nil {
		return solana.Signature{}, err
	}
	buyerTokenAccount, err := coupon.GetHolderTokenAccount(buyer.Address(), mint)
	if err != nil {
		return solana.Signature{}, err
	}

	ix := coupon.NewTransferCouponInstruction(
		&coupon.TransferCouponInstructionAccounts{
			Mint:               mint,
			SellerTokenAccount: sellerTokenAccount,
			BuyerTokenAccount:  buyerTokenAccount,
			Seller:             seller.Address(),
			Buyer:              buyer.Address(),
			PlatformWallet:     platformWallet,
		},
		&coupon.TransferCouponInstructionArgs{
			PriceLamports: priceLamports,
		},
	)

	sig, err := o.submit(ctx, log, buyer.Address(), []common.Signer{buyer, seller}, ix)
	if err != nil {
		return sig, err
	}

	o.record(ctx, event.ResalePurchase, sig, mint, buyer.Address(), seller.Address(), priceLamports)

	return sig, nil
}
