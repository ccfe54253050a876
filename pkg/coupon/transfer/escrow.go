package transfer

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	"github.com/code-payments/coupon-server/pkg/coupon/result"
	"github.com/code-payments/coupon-server/pkg/metrics"
	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/coupon"
)

// Claim releases a free coupon from its merchant escrow to the claimant, who
// pays only the network fee. Paid coupons are refused before anything is
// built. An inactive or expired coupon is left for the ledger to reject.
func (o *Orchestrator) Claim(ctx context.Context, claimant common.Signer, mint ed25519.PublicKey) *result.Result {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Claim")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method":   "Claim",
		"mint":     base58.Encode(mint),
		"claimant": base58.Encode(claimant.Address()),
	})

	sig, err := o.claim(ctx, log, claimant, mint)
	return o.finish(ctx, tracer, log, sig, err)
}

func (o *Orchestrator) claim(ctx context.Context, log *logrus.Entry, claimant common.Signer, mint ed25519.PublicKey) (solana.Signature, error) {
	data, err := o.GetCoupon(ctx, mint)
	if err != nil {
		return solana.Signature{}, readPrecondition(err)
	}
	if !data.IsFree() {
		return solana.Signature{}, result.NewPreconditionError("coupon is not free, it must be purchased")
	}

	merchant, err := o.getMerchantByAddress(ctx, data.Merchant)
	if err != nil {
		return solana.Signature{}, readPrecondition(err)
	}

	escrow, _, err := coupon.GetEscrowAddress(&coupon.GetEscrowAddressArgs{
		Merchant: data.Merchant,
		Mint:     mint,
	})
	if err != nil {
		return solana.Signature{}, err
	}

	claimantTokenAccount, err := coupon.GetHolderTokenAccount(claimant.Address(), mint)
	if err != nil {
		return solana.Signature{}, err
	}

	ix := coupon.NewClaimCouponInstruction(
		&coupon.ClaimCouponInstructionAccounts{
			CouponData:       mustCouponDataAddress(mint),
			Merchant:         data.Merchant,
			Escrow:           escrow,
			Mint:             mint,
			UserTokenAccount: claimantTokenAccount,
			User:             claimant.Address(),
		},
		&coupon.ClaimCouponInstructionArgs{},
	)

	sig, err := o.submit(ctx, log, claimant.Address(), []common.Signer{claimant}, ix)
	o.invalidate(err, merchant.Authority, mint)
	if err != nil {
		return sig, err
	}

	o.record(ctx, event.Claim, sig, mint, claimant.Address(), merchant.Authority, 0)

	return sig, nil
}

// Purchase buys a paid coupon out of its merchant escrow. The payment split
// between the merchant and the platform and the release of the unit happen in
// one instruction, so either all of it lands or none of it does.
func (o *Orchestrator) Purchase(ctx context.Context, buyer common.Signer, mint ed25519.PublicKey) *result.Result {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Purchase")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method": "Purchase",
		"mint":   base58.Encode(mint),
		"buyer":  base58.Encode(buyer.Address()),
	})

	sig, err := o.purchase(ctx, log, buyer, mint)
	return o.finish(ctx, tracer, log, sig, err)
}

func (o *Orchestrator) purchase(ctx context.Context, log *logrus.Entry, buyer common.Signer, mint ed25519.PublicKey) (solana.Signature, error) {
	data, err := o.GetCoupon(ctx, mint)
	if err != nil {
		return solana.Signature{}, readPrecondition(err)
	}
	if data.IsFree() {
		return solana.Signature{}, result.NewPreconditionError("coupon is free, it must be claimed")
	}

	merchant, err := o.getMerchantByAddress(ctx, data.Merchant)
	if err != nil {
		return solana.Signature{}, readPrecondition(err)
	}
	if bytes.Equal(buyer.Address(), merchant.Authority) {
		return solana.Signature{}, result.NewPreconditionError("merchant cannot purchase its own coupon")
	}

	platformWallet, err := o.platformWallet(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	escrow, _, err := coupon.GetEscrowAddress(&coupon.GetEscrowAddressArgs{
		Merchant: data.Merchant,
		Mint:     mint,
	})
	if err != nil {
		return solana.Signature{}, err
	}

	buyerTokenAccount, err := coupon.GetHolderTokenAccount(buyer.Address(), mint)
	if err != nil {
		return solana.Signature{}, err
	}

	ix := coupon.NewPurchaseCouponInstruction(
		&coupon.PurchaseCouponInstructionAccounts{
			CouponData:        mustCouponDataAddress(mint),
			Merchant:          data.Merchant,
			MerchantAuthority: merchant.Authority,
			PlatformWallet:    platformWallet,
			Escrow:            escrow,
			Mint:              mint,
			BuyerTokenAccount: buyerTokenAccount,
			Buyer:             buyer.Address(),
		},
		&coupon.PurchaseCouponInstructionArgs{},
	)

	log = log.WithField("price", data.Price)

	sig, err := o.submit(ctx, log, buyer.Address(), []common.Signer{buyer}, ix)
	o.invalidate(err, merchant.Authority, mint)
	if err != nil {
		return sig, err
	}

	o.record(ctx, event.Purchase, sig, mint, buyer.Address(), merchant.Authority, data.Price)

	return sig, nil
}

func mustCouponDataAddress(mint ed25519.PublicKey) ed25519.PublicKey {
	address, _, err := coupon.GetCouponDataAddress(&coupon.GetCouponDataAddressArgs{
		Mint: mint,
	})
	if err != nil {
		panic(err)
	}
	return address
}
