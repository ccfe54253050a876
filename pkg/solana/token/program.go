package token

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

var (
	ProgramKey                       = mustDecodeKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenAccountProgramKey = mustDecodeKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

func mustDecodeKey(encoded string) ed25519.PublicKey {
	decoded, err := base58.Decode(encoded)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		panic("invalid program key: " + encoded)
	}
	return decoded
}
