package redemption

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
	"github.com/code-payments/coupon-server/pkg/metrics"
)

const issuerMetricsStructName = "coupon.redemption.issuer"

// Issuer produces redemption proofs on behalf of a coupon holder.
type Issuer struct {
	log    *logrus.Entry
	signer common.Signer
	now    func() time.Time
}

func NewIssuer(signer common.Signer) *Issuer {
	return &Issuer{
		log:    logrus.StandardLogger().WithField("type", "coupon/redemption/issuer"),
		signer: signer,
		now:    time.Now,
	}
}

// Issue signs a proof that the signer holds mint. The timestamp is taken once
// and is both signed and carried in the proof. An unavailable or declining
// signer yields no proof.
func (i *Issuer) Issue(ctx context.Context, mint ed25519.PublicKey, title string, discount uint8) (*Proof, error) {
	tracer := metrics.TraceMethodCall(ctx, issuerMetricsStructName, "Issue")
	defer tracer.End()

	if len(mint) != ed25519.PublicKeySize {
		return nil, errors.New("invalid mint")
	}

	owner := i.signer.Address()
	proof := &Proof{
		Mint:      base58.Encode(mint),
		Owner:     base58.Encode(owner),
		Timestamp: i.now().UnixMilli(),
		Title:     title,
		Discount:  discount,
	}

	log := i.log.WithFields(logrus.Fields{
		"method": "Issue",
		"mint":   proof.Mint,
		"owner":  proof.Owner,
	})

	signature, err := i.signer.SignMessage(ctx, []byte(Message(proof.Mint, proof.Timestamp)))
	if err != nil {
		tracer.OnError(err)
		log.WithError(err).Info("owner did not sign redemption proof")
		return nil, errors.Wrap(err, "failed to sign redemption proof")
	}
	if len(signature) != ed25519.SignatureSize {
		return nil, errors.Errorf("invalid signature length: %d", len(signature))
	}

	proof.Signature = signature
	return proof, nil
}
