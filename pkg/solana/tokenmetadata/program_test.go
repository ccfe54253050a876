package tokenmetadata

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/solana"
)

func TestAddresses(t *testing.T) {
	mint, err := base58.Decode("So11111111111111111111111111111111111111112")
	require.NoError(t, err)

	metadata, metadataBump, err := GetMetadataAddress(mint)
	require.NoError(t, err)
	edition, editionBump, err := GetMasterEditionAddress(mint)
	require.NoError(t, err)

	assert.NotEqual(t, metadata, edition)
	assert.False(t, solana.IsOnCurve(metadata))
	assert.False(t, solana.IsOnCurve(edition))

	recreated, err := solana.CreateProgramAddress(ProgramKey, []byte("metadata"), ProgramKey, mint, []byte{metadataBump})
	require.NoError(t, err)
	assert.Equal(t, metadata, recreated)

	recreated, err = solana.CreateProgramAddress(ProgramKey, []byte("metadata"), ProgramKey, mint, []byte("edition"), []byte{editionBump})
	require.NoError(t, err)
	assert.Equal(t, edition, recreated)

	for i := 0; i < 10; i++ {
		again, bump, err := GetMetadataAddress(mint)
		require.NoError(t, err)
		assert.Equal(t, metadata, again)
		assert.Equal(t, metadataBump, bump)
	}
}

func TestProgramKey(t *testing.T) {
	assert.Equal(t, "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s", base58.Encode(ProgramKey))
}
