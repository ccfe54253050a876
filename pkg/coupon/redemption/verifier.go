package redemption

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
	"github.com/code-payments/coupon-server/pkg/coupon/result"
	"github.com/code-payments/coupon-server/pkg/metrics"
	"github.com/code-payments/coupon-server/pkg/rate"
	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/token"
	"github.com/code-payments/coupon-server/pkg/sync"
)

const (
	verifierMetricsStructName = "coupon.redemption.verifier"
	verificationEventName     = "CouponRedemptionVerification"

	mintLockStripes = 1024
)

// VerifiedOwnership asserts that Owner held exactly one unit of Mint at
// VerifiedAt, and that the proof behind it has been consumed. It is the only
// input accepted by the redeem transfer.
type VerifiedOwnership struct {
	Mint  ed25519.PublicKey
	Owner ed25519.PublicKey

	ProofTimestamp time.Time
	VerifiedAt     time.Time

	// Display only, as presented by the holder
	Title    string
	Discount uint8
}

// Verifier checks redemption proofs presented at a merchant terminal.
type Verifier struct {
	log     *logrus.Entry
	conf    *conf
	tokens  *token.Client
	nonces  nonce.Store
	limiter rate.Limiter
	locks   *sync.StripedLock
	now     func() time.Time
}

func NewVerifier(sc solana.Client, nonces nonce.Store, limiter rate.Limiter, configProvider ConfigProvider) *Verifier {
	return &Verifier{
		log:     logrus.StandardLogger().WithField("type", "coupon/redemption/verifier"),
		conf:    configProvider(),
		tokens:  token.NewClient(sc),
		nonces:  nonces,
		limiter: limiter,
		locks:   sync.NewStripedLock(mintLockStripes),
		now:     time.Now,
	}
}

// Verify runs the intake limit, schema, freshness, signature, ownership and
// single-use checks in that order, stopping at the first failure. Check
// failures are *result.VerificationError. Any other error means the outcome
// could not be determined.
//
// A proof that passes is consumed, so presenting it again fails with
// already_redeemed until it would have expired anyway.
func (v *Verifier) Verify(ctx context.Context, terminalID string, raw []byte) (*VerifiedOwnership, error) {
	tracer := metrics.TraceMethodCall(ctx, verifierMetricsStructName, "Verify")
	defer tracer.End()

	log := v.log.WithFields(logrus.Fields{
		"method":   "Verify",
		"terminal": terminalID,
	})

	verified, proof, err := v.verify(ctx, terminalID, raw)
	if proof != nil {
		log = log.WithFields(logrus.Fields{
			"mint":  proof.Mint,
			"owner": proof.Owner,
		})
	}

	outcome := map[string]interface{}{
		"terminal": terminalID,
		"success":  err == nil,
		"category": string(result.Classify(err)),
	}
	var verificationErr *result.VerificationError
	if errors.As(err, &verificationErr) {
		outcome["reason"] = string(verificationErr.Reason)
		log.WithField("reason", verificationErr.Reason).Info("redemption proof rejected")
	} else if err != nil {
		tracer.OnError(err)
		log.WithError(err).Warn("failure verifying redemption proof")
	}
	metrics.RecordEvent(ctx, verificationEventName, outcome)

	return verified, err
}

func (v *Verifier) verify(ctx context.Context, terminalID string, raw []byte) (*VerifiedOwnership, *Proof, error) {
	allowed, err := v.limiter.Allow(ctx, terminalID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error checking rate limit")
	}
	if !allowed {
		return nil, nil, result.NewVerificationError(result.ReasonRateLimited, messageRateLimited)
	}

	proof, err := ParseProof(raw)
	if err != nil {
		return nil, nil, err
	}

	now := v.now()
	window := v.conf.freshnessWindow.Get(ctx)
	issuedAt := proof.Time()
	if now.Sub(issuedAt) > window {
		return nil, proof, result.NewVerificationError(result.ReasonExpired, messageExpired)
	}
	if issuedAt.Sub(now) > v.conf.maxClockSkew.Get(ctx) {
		return nil, proof, result.NewVerificationError(result.ReasonMissingFields, messageFutureTimestamp)
	}

	if !proof.VerifySignature() {
		return nil, proof, result.NewVerificationError(result.ReasonInvalidSignature, messageInvalidSignature)
	}

	mint, _ := decodeAddress(proof.Mint)
	owner, _ := decodeAddress(proof.Owner)

	// Two terminals scanning the same proof race on the nonce, not the ledger
	unlock := v.locks.Lock(mint)
	defer unlock()

	commitment, err := solana.CommitmentFromString(v.conf.commitment.Get(ctx))
	if err != nil {
		commitment = solana.CommitmentConfirmed
	}

	balance, err := v.tokens.GetOwnedBalance(ctx, owner, mint, commitment)
	if err != nil {
		return nil, proof, errors.Wrap(err, "error checking ownership")
	}
	if balance != 1 {
		return nil, proof, result.NewVerificationError(result.ReasonNotOwned, messageNotOwned)
	}

	err = v.nonces.Claim(ctx, &nonce.Record{
		Mint:      proof.Mint,
		Owner:     proof.Owner,
		Timestamp: proof.Timestamp,
		Signature: base64.StdEncoding.EncodeToString(proof.Signature),
		ExpiresAt: issuedAt.Add(window + v.conf.maxClockSkew.Get(ctx)),
	})
	if err == nonce.ErrAlreadyClaimed {
		return nil, proof, result.NewVerificationError(result.ReasonAlreadyRedeemed, messageAlreadyRedeemed)
	} else if err != nil {
		return nil, proof, errors.Wrap(err, "error consuming redemption proof")
	}

	return &VerifiedOwnership{
		Mint:           mint,
		Owner:          owner,
		ProofTimestamp: issuedAt,
		VerifiedAt:     now,
		Title:          proof.Title,
		Discount:       proof.Discount,
	}, proof, nil
}
