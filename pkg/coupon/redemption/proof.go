package redemption

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"github.com/code-payments/coupon-server/pkg/coupon/result"
)

const (
	messageMissingFields    = "Invalid QR code format - missing required fields"
	messageInvalidAddress   = "Invalid QR code format - invalid address"
	messageFutureTimestamp  = "Invalid QR code format - timestamp is in the future"
	messageExpired          = "QR code has expired. Please generate a new one."
	messageInvalidSignature = "Invalid signature - QR code may be tampered"
	messageNotOwned         = "User no longer owns this NFT coupon"
	messageAlreadyRedeemed  = "NFT coupon has already been redeemed or transferred"
	messageRateLimited      = "Too many verification attempts. Please wait and try again."
)

// Message is the canonical text an owner signs to prove they hold mint at the
// given millisecond timestamp.
func Message(mint string, timestampMillis int64) string {
	return fmt.Sprintf("Redeem coupon: %s at %d", mint, timestampMillis)
}

// Proof is a signed, short lived assertion that Owner holds the coupon NFT
// Mint. Title and Discount are for display at the terminal only.
type Proof struct {
	Mint      string
	Owner     string
	Signature []byte
	Timestamp int64 // ms since epoch

	Title    string
	Discount uint8
}

type payload struct {
	NftMint    string `json:"nftMint"`
	UserWallet string `json:"userWallet"`
	Signature  string `json:"signature"`
	Timestamp  int64  `json:"timestamp"`
	Title      string `json:"title"`
	Discount   uint8  `json:"discount"`
}

// Marshal encodes the proof as the JSON carried in the QR code.
func (p *Proof) Marshal() ([]byte, error) {
	return json.Marshal(&payload{
		NftMint:    p.Mint,
		UserWallet: p.Owner,
		Signature:  base64.StdEncoding.EncodeToString(p.Signature),
		Timestamp:  p.Timestamp,
		Title:      p.Title,
		Discount:   p.Discount,
	})
}

// Time returns the proof timestamp.
func (p *Proof) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// ParseProof decodes a QR payload. Any malformed or missing required field is
// reported as a missing_fields verification failure. The signature is decoded
// but not checked.
func ParseProof(raw []byte) (*Proof, error) {
	var decoded payload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, result.NewVerificationError(result.ReasonMissingFields, messageMissingFields)
	}

	if decoded.NftMint == "" || decoded.UserWallet == "" || decoded.Signature == "" || decoded.Timestamp <= 0 {
		return nil, result.NewVerificationError(result.ReasonMissingFields, messageMissingFields)
	}

	for _, address := range []string{decoded.NftMint, decoded.UserWallet} {
		if _, err := decodeAddress(address); err != nil {
			return nil, result.NewVerificationError(result.ReasonMissingFields, messageInvalidAddress)
		}
	}

	// An undecodable signature can never verify
	signature, err := base64.StdEncoding.DecodeString(decoded.Signature)
	if err != nil {
		signature = nil
	}

	return &Proof{
		Mint:      decoded.NftMint,
		Owner:     decoded.UserWallet,
		Signature: signature,
		Timestamp: decoded.Timestamp,
		Title:     decoded.Title,
		Discount:  decoded.Discount,
	}, nil
}

// VerifySignature checks the detached signature against the canonical message
// for the proof's own mint and timestamp.
func (p *Proof) VerifySignature() bool {
	owner, err := decodeAddress(p.Owner)
	if err != nil {
		return false
	}
	if len(p.Signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(owner, []byte(Message(p.Mint, p.Timestamp)), p.Signature)
}

func decodeAddress(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, err
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid address length: %d", len(decoded))
	}
	return decoded, nil
}
