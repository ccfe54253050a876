package tokenmetadata

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"

	"github.com/code-payments/coupon-server/pkg/solana"
)

// ProgramKey is the Metaplex token metadata program.
//
// Current key: metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s
var ProgramKey = mustBase58Decode("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

var (
	metadataPrefix = []byte("metadata")
	editionSuffix  = []byte("edition")
)

// GetMetadataAddress derives the metadata account for mint.
//
// Reference: https://developers.metaplex.com/token-metadata/pda#metadata
func GetMetadataAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		ProgramKey,
		metadataPrefix,
		ProgramKey,
		mint,
	)
}

// GetMasterEditionAddress derives the master edition account for mint.
//
// Reference: https://developers.metaplex.com/token-metadata/pda#master-edition
func GetMasterEditionAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		ProgramKey,
		metadataPrefix,
		ProgramKey,
		mint,
		editionSuffix,
	)
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
