package common

import (
	"context"
	"crypto/ed25519"
	"errors"
)

var (
	// ErrSignerUnavailable means the signing capability for a key is absent,
	// such as a disconnected wallet or a public key only Account.
	ErrSignerUnavailable = errors.New("signer unavailable")

	// ErrSigningDeclined means the key holder refused to sign.
	ErrSigningDeclined = errors.New("signing declined")
)

// Signer produces detached ed25519 signatures for a single key, whether it is
// backed by a wallet adapter or a local keypair.
type Signer interface {
	Address() ed25519.PublicKey
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}
