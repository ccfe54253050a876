package token

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
)

// GetAssociatedAccount returns the associated account address for an SPL token.
// The wallet may itself be a program derived address, which is how escrow
// holdings custody coupon NFTs.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(
		AssociatedTokenAccountProgramKey,
		wallet,
		ProgramKey,
		mint,
	)
}
