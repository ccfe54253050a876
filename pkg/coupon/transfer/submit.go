package transfer

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
	"github.com/code-payments/coupon-server/pkg/coupon/result"
	"github.com/code-payments/coupon-server/pkg/solana"
)

// submit builds a single atomic transaction from ixs, collects a signature
// from every signer in order, submits it once and waits for confirmation.
//
// Failures before submission are *result.PreconditionError. A rejection is
// *result.LedgerRejectionError. Anything that leaves the outcome unknown,
// including running out of time, is *result.IndeterminateError.
func (o *Orchestrator) submit(ctx context.Context, log *logrus.Entry, payer ed25519.PublicKey, signers []common.Signer, ixs ...solana.Instruction) (solana.Signature, error) {
	blockhash, err := o.sc.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, result.NewPreconditionError("ledger unavailable: %s", err.Error())
	}

	builder := solana.NewBuilder(payer).WithBlockhash(blockhash)
	for _, ix := range ixs {
		builder.AddInstruction(ix)
	}
	txn, err := builder.Build()
	if err != nil {
		return solana.Signature{}, result.NewPreconditionError("invalid transaction: %s", err.Error())
	}

	message := txn.Message.Marshal()
	for _, signer := range signers {
		if err := sign(ctx, txn, message, signer); err != nil {
			return solana.Signature{}, err
		}
	}

	if missing := txn.MissingSigners(); len(missing) > 0 {
		return solana.Signature{}, result.NewPreconditionError("missing signature from %s", base58.Encode(missing[0]))
	}

	sig := txn.Signature()
	log = log.WithField("signature", sig.String())

	commitment := o.commitment(ctx)

	submitCtx, cancelSubmit := context.WithTimeout(ctx, o.conf.submitTimeout.Get(ctx))
	defer cancelSubmit()

	_, err = o.sc.SubmitTransaction(submitCtx, *txn, commitment)
	if err != nil {
		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			return sig, &result.LedgerRejectionError{Signature: sig, Err: txErr}
		}
		return sig, &result.IndeterminateError{Signature: sig, Err: err}
	}

	log.Debug("transaction submitted, awaiting confirmation")

	confirmCtx, cancelConfirm := context.WithTimeout(ctx, o.conf.confirmationTimeout.Get(ctx))
	defer cancelConfirm()

	_, err = solana.AwaitConfirmation(confirmCtx, o.sc, sig, commitment, o.conf.confirmationPollRate.Get(ctx))
	if err != nil {
		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			return sig, &result.LedgerRejectionError{Signature: sig, Err: txErr}
		}
		return sig, &result.IndeterminateError{Signature: sig, Err: err}
	}

	return sig, nil
}

func sign(ctx context.Context, txn *solana.Transaction, message []byte, signer common.Signer) error {
	raw, err := signer.SignMessage(ctx, message)
	if errors.Is(err, common.ErrSignerUnavailable) || errors.Is(err, common.ErrSigningDeclined) {
		return errors.Wrapf(err, "%s did not sign", base58.Encode(signer.Address()))
	} else if err != nil {
		return result.NewPreconditionError("signing failed for %s: %s", base58.Encode(signer.Address()), err.Error())
	}

	if len(raw) != ed25519.SignatureSize {
		return result.NewPreconditionError("invalid signature length from %s", base58.Encode(signer.Address()))
	}

	var sig solana.Signature
	copy(sig[:], raw)
	if err := txn.AddSignature(signer.Address(), sig); err != nil {
		return result.NewPreconditionError("invalid signature from %s: %s", base58.Encode(signer.Address()), err.Error())
	}
	return nil
}
