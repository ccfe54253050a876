package transfer

import (
	"bytes"
	"context"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	"github.com/code-payments/coupon-server/pkg/coupon/redemption"
	"github.com/code-payments/coupon-server/pkg/coupon/result"
	"github.com/code-payments/coupon-server/pkg/metrics"
	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/coupon"
)

// Redeem spends one redemption of a coupon whose ownership was just verified
// at a merchant terminal. The holder signs. When feePayer is set, it pays the
// network fee and co-signs. The unit is burned by the program once the last
// redemption is used.
func (o *Orchestrator) Redeem(ctx context.Context, holder common.Signer, verified *redemption.VerifiedOwnership, feePayer common.Signer) *result.Result {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Redeem")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method": "Redeem",
		"holder": base58.Encode(holder.Address()),
	})
	if verified != nil {
		log = log.WithField("mint", base58.Encode(verified.Mint))
	}

	sig, redeemed, err := o.redeem(ctx, log, holder, verified, feePayer)
	res := o.finish(ctx, tracer, log, sig, err)
	if redeemed != nil {
		res.WithRedemption(redeemed.RedemptionsRemaining, redeemed.burned)
	}
	return res
}

type redeemOutcome struct {
	*coupon.RedemptionEvent
	burned bool
}

func (o *Orchestrator) redeem(ctx context.Context, log *logrus.Entry, holder common.Signer, verified *redemption.VerifiedOwnership, feePayer common.Signer) (solana.Signature, *redeemOutcome, error) {
	if verified == nil {
		return solana.Signature{}, nil, result.NewPreconditionError("coupon ownership has not been verified")
	}
	if !bytes.Equal(holder.Address(), verified.Owner) {
		return solana.Signature{}, nil, result.NewPreconditionError("holder is not the verified owner")
	}

	data, err := o.GetCoupon(ctx, verified.Mint)
	if err != nil {
		return solana.Signature{}, nil, readPrecondition(err)
	}

	holderTokenAccount, err := coupon.GetHolderTokenAccount(holder.Address(), verified.Mint)
	if err != nil {
		return solana.Signature{}, nil, err
	}

	ix := coupon.NewRedeemCouponInstruction(
		&coupon.RedeemCouponInstructionAccounts{
			CouponData:       mustCouponDataAddress(verified.Mint),
			Merchant:         data.Merchant,
			Mint:             verified.Mint,
			UserTokenAccount: holderTokenAccount,
			User:             holder.Address(),
		},
		&coupon.RedeemCouponInstructionArgs{},
	)

	payer := holder.Address()
	signers := []common.Signer{holder}
	if feePayer != nil && !bytes.Equal(feePayer.Address(), holder.Address()) {
		payer = feePayer.Address()
		signers = []common.Signer{feePayer, holder}
	}

	sig, err := o.submit(ctx, log, payer, signers, ix)
	o.invalidate(err, nil, verified.Mint)
	if err != nil {
		return sig, nil, err
	}

	var counterparty []byte
	if merchant, err := o.getMerchantByAddress(ctx, data.Merchant); err == nil {
		counterparty = merchant.Authority
	}
	o.record(ctx, event.Redemption, sig, verified.Mint, holder.Address(), counterparty, 0)

	// The transfer is confirmed at this point, so failing to read the event
	// back only loses the reported counter.
	txn, err := o.sc.GetTransaction(ctx, sig, o.commitment(ctx))
	if err != nil {
		log.WithError(err).Warn("failure getting redeem transaction")
		return sig, nil, nil
	}
	if txn.Meta == nil {
		return sig, nil, nil
	}

	redeemed, err := coupon.RedemptionEventFromLogs(txn.Meta.LogMessages)
	if err != nil {
		log.WithError(err).Warn("failure decoding redemption event")
		return sig, nil, nil
	}

	outcome := &redeemOutcome{
		RedemptionEvent: redeemed,
		burned:          redeemed.WasBurned(data.MaxRedemptions),
	}
	log.WithFields(logrus.Fields{
		"redemptions_remaining": redeemed.RedemptionsRemaining,
		"burned":                outcome.burned,
	}).Debug("coupon redeemed")

	return sig, outcome, nil
}
