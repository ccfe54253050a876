package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Signed reference transactions from the Solana SDK test suite. The first uses
// the SDK's fixture keypair as raw bytes, the second derives the keypair from
// its seed so the embedded public key is consistent.
const (
	sdkTransaction         = "AUc7Cbu+gZalFSGeSFdukHhP7oSGaSdmdNEd5ZokaSysdoMWfIOzjrAbdaBZZuDMAfyNAogAJdrhgVya+jthsgoBAAEDnON0wdcmjhYIDuXvd10F2qEjAyEAJGSe/CGhYbk+WWMBAQEEBQYHCAkJCQkJCQkJCQkJCQkJCQkIBwYFBAEBAQICAgQFBgcICQEBAQEBAQEBAQEBAQEBCQgHBgUEAgICAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAABAgIAAQMBAgM="
	sdkTransactionFromSeed = "ATMfBMZ8phHEheLph8K9TJhRKhnE4qNZvWiXdUdJRmlTCRsQjWmW2CkQJeRHBCcsqFm2gynjL40M9mTe0Dxp4QIBAAEDfEya6wnC7f3Cv53qnOEywwIJ928rIdqAlfXYI1adXroBAQEEBQYHCAkJCQkJCQkJCQkJCQkJCQkIBwYFBAEBAQICAgQFBgcICQEBAQEBAQEBAQEBAQEBCQgHBgUEAgICAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAABAgIAAQMBAgM="

	// A mainnet transaction with many instructions and shared accounts
	mainnetTransaction = "AaZAGNONKTsNypCfvwHGipcWmAX/J03VfLQEHgMDSuHz0ktydqlLb7I4tZnX0Yw8KMTbma28M+yiZPaRolOJGgwBAAgQCR2hNbdxjAiYwC9CSEo2Vso3yq8OXlgoCbepyseaRXoIFE8MTz2ZtOsdNl55fj/zi0S+ArjIP4zJ3Y+MC4tKyQu7s1JPy6Hur6YbU0nF+1XBJYwii/dKtLsNFU/pTo19J7jOgutpJBZbNIhC5ppqC/OYlbzW1KqamkV3p+cslAoyBJxvWrSMXX+X0Ih0+sEzarslIYSV0T/NuLFcjpX8S7ajCdht+3+POhvGcGFzDyc4kIgjN/SAdypJM1Grs+eEtzXhQGM4VMy0p0J2CiOH+k2kwfya5F7fSaYXWOi3CJUGp9UXGSxWjuCKhF9z0peIzwNcMUWyGrNE2AYuqUAAAAan1RcZLFxRIYzJTD1K8X9Y2u4Im6H9ROPb2YoAAAAABt324ddloZPZy+FGzut5rBy0he1fWzeROoz1hX7/AKlDDB9w5G7eh4xhLJIgxblM0E4dxW+ZTABRcCVBt2LcH8b6evO+2606PWXzaqvJdDGxu+TC0vbg5HymAgNFL11hDcYoaKd+VYB6HNWIyaKadms+4q7NwH3gjP6RB91LMWUAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAMGRm/lIRcy/+ytunLDm+e8jOW7xfcSayxDmzpAAAAAjJclj04kifG7PRApFI4NgwtaE5na/xCEBI572Nvp+FmMVCZzhQC2pwD9u6aAm8haUDNRSZG/a7c1U/ltYtc+KAUNAwIHAAQEAAAADgAJA+gDAAAAAAAADgAFAkjoAQAPBwADCgsNCQgBAQwLAAUBBAwMBgwMAwlcCAoCAAAAmhMJCgIAAAAAAUgAAABlmEW1THFmZqyjBehuSli5bMSJBNiQMkZcr19LINSM4KF/whE1IayV174tmVwC9MMlQSmG3j6aJVhIDGMUITUNXRMTAAAAAAA="
)

var (
	sdkFixtureKey = []byte{
		48, 83, 2, 1, 1, 48, 5, 6, 3, 43, 101, 112, 4, 34, 4, 32,
		255, 101, 36, 24, 124, 23, 167, 21, 132, 204, 155, 5, 185, 58, 121, 75,
		156, 227, 116, 193, 215, 38, 142, 22, 8, 14, 229, 239, 119, 93, 5, 218,
		161, 35, 3, 33, 0, 36, 100, 158, 252, 33, 161, 97, 185, 62, 89, 99,
	}
	sdkProgram = ed25519.PublicKey{2, 2, 2, 4, 5, 6, 7, 8, 9, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 9, 8, 7, 6, 5, 4, 2, 2, 2}
	sdkTo      = ed25519.PublicKey{1, 1, 1, 4, 5, 6, 7, 8, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 8, 7, 6, 5, 4, 1, 1, 1}
)

func TestTransaction_MatchesSDK(t *testing.T) {
	for _, tc := range []struct {
		name     string
		key      ed25519.PrivateKey
		expected string
	}{
		{"fixture keypair", ed25519.PrivateKey(sdkFixtureKey), sdkTransaction},
		{"seeded keypair", ed25519.NewKeyFromSeed(sdkFixtureKey[:ed25519.SeedSize]), sdkTransactionFromSeed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			payer := public(tc.key)
			tx := NewTransaction(
				payer,
				NewInstruction(
					sdkProgram,
					[]byte{1, 2, 3},
					NewAccountMeta(payer, true),
					NewAccountMeta(sdkTo, false),
				),
			)
			require.NoError(t, tx.Sign(tc.key))
			assert.Equal(t, tc.expected, base64.StdEncoding.EncodeToString(tx.Marshal()))
		})
	}
}

func TestTransaction_MainnetRoundTrip(t *testing.T) {
	raw, err := base64.StdEncoding.DecodeString(mainnetTransaction)
	require.NoError(t, err)

	var tx Transaction
	require.NoError(t, tx.Unmarshal(raw))
	assert.Equal(t, raw, tx.Marshal())
}

func TestTransaction_RoundTripWithoutBlockhash(t *testing.T) {
	keys := generateKeys(t, 2)
	payer, program := keys[0], keys[1]

	for _, meta := range []AccountMeta{
		NewAccountMeta(public(payer), false),
		// A zero account is filled in with an all zero key
		NewAccountMeta(nil, false),
	} {
		tx := NewTransaction(public(payer), NewInstruction(public(program), []byte{1, 2, 3}, meta))
		require.NoError(t, tx.Sign(payer))

		var decoded Transaction
		require.NoError(t, decoded.Unmarshal(tx.Marshal()))
		assert.Equal(t, tx.Marshal(), decoded.Marshal())
	}
}

func TestTransaction_OutOfRangeIndexes(t *testing.T) {
	keys := generateKeys(t, 2)
	build := func() Transaction {
		return NewTransaction(
			public(keys[0]),
			NewInstruction(public(keys[1]), nil, NewAccountMeta(public(keys[0]), true)),
		)
	}

	tx := build()
	tx.Message.Instructions[0].ProgramIndex = 2
	assert.Error(t, tx.Unmarshal(tx.Marshal()))

	tx = build()
	tx.Message.Instructions[0].Accounts = []byte{2}
	assert.Error(t, tx.Unmarshal(tx.Marshal()))
}

// assertLayout checks the compiled account order and header, and that each
// signature slot verifies against the account in the same position.
func assertLayout(t *testing.T, tx Transaction, header Header, accounts []ed25519.PublicKey) {
	require.Equal(t, header, tx.Message.Header)
	require.Equal(t, accounts, tx.Message.Accounts)
	require.Len(t, tx.Signatures, int(header.NumSignatures))

	message := tx.Message.Marshal()
	for i, sig := range tx.Signatures {
		assert.True(t, ed25519.Verify(accounts[i], message, sig[:]), "signature %d", i)
	}
}

func TestTransaction_AccountOrdering(t *testing.T) {
	keys := generateKeys(t, 2)
	payer, program := keys[0], keys[1]

	keys = generateKeys(t, 4)
	readonlySigner, readonly, writable, writableSigner := keys[0], keys[1], keys[2], keys[3]

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(program),
			[]byte{1, 2, 3},
			NewReadonlyAccountMeta(public(readonlySigner), true),
			NewReadonlyAccountMeta(public(readonly), false),
			NewAccountMeta(public(writable), false),
			NewAccountMeta(public(writableSigner), true),
		),
	)

	// Signing order doesn't matter
	require.NoError(t, tx.Sign(readonlySigner, writableSigner, payer))

	assertLayout(t, tx, Header{NumSignatures: 3, NumReadonlySigned: 1, NumReadOnly: 2}, []ed25519.PublicKey{
		public(payer),
		public(writableSigner),
		public(readonlySigner),
		public(writable),
		public(readonly),
		public(program),
	})
	assert.Equal(t, byte(5), tx.Message.Instructions[0].ProgramIndex)
	assert.Equal(t, []byte{1, 2, 3}, tx.Message.Instructions[0].Data)
	assert.Equal(t, []byte{2, 4, 3, 1}, tx.Message.Instructions[0].Accounts)
}

func TestTransaction_RepeatedAccountsTakeStrongestPermission(t *testing.T) {
	keys := generateKeys(t, 2)
	payer, program := keys[0], keys[1]
	keys = sortedKeys(t, 4)

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(program),
			nil,
			NewReadonlyAccountMeta(public(keys[0]), true),
			NewReadonlyAccountMeta(public(keys[1]), false),
			NewAccountMeta(public(keys[2]), false),
			NewAccountMeta(public(keys[3]), true),

			// 0 becomes writable, 1 becomes a signer
			NewAccountMeta(public(keys[0]), false),
			NewReadonlyAccountMeta(public(keys[1]), true),

			// Weaker repeats of 2 and 3 change nothing
			NewReadonlyAccountMeta(public(keys[2]), false),
			NewReadonlyAccountMeta(public(keys[3]), false),
		),
	)
	require.NoError(t, tx.Sign(keys[0], keys[1], keys[3], payer))

	assertLayout(t, tx, Header{NumSignatures: 4, NumReadonlySigned: 1, NumReadOnly: 1}, []ed25519.PublicKey{
		public(payer),
		public(keys[0]),
		public(keys[3]),
		public(keys[1]),
		public(keys[2]),
		public(program),
	})
	assert.Equal(t, []byte{1, 3, 4, 2, 1, 3, 4, 2}, tx.Message.Instructions[0].Accounts)
}

func TestTransaction_MultiInstruction(t *testing.T) {
	keys := sortedKeys(t, 3)
	payer, program, program2 := keys[0], keys[1], keys[2]
	keys = sortedKeys(t, 6)

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(program2),
			[]byte{1, 2, 3},
			NewReadonlyAccountMeta(public(keys[0]), true),
			NewReadonlyAccountMeta(public(keys[1]), false),
			NewAccountMeta(public(keys[2]), false),
			NewAccountMeta(public(keys[3]), true),
		),
		NewInstruction(
			public(program),
			[]byte{3, 4, 5},
			NewReadonlyAccountMeta(public(keys[3]), false),
			NewReadonlyAccountMeta(public(keys[2]), false),
			NewAccountMeta(public(keys[0]), false),
			NewAccountMeta(public(keys[1]), true),
			NewAccountMeta(public(keys[4]), true),
			NewReadonlyAccountMeta(public(keys[5]), false),
		),
	)
	require.NoError(t, tx.Sign(payer, keys[0], keys[1], keys[3], keys[4]))

	assertLayout(t, tx, Header{NumSignatures: 5, NumReadonlySigned: 0, NumReadOnly: 3}, []ed25519.PublicKey{
		public(payer),
		public(keys[0]),
		public(keys[1]),
		public(keys[3]),
		public(keys[4]),
		public(keys[2]),
		public(keys[5]),
		public(program),
		public(program2),
	})

	require.Len(t, tx.Message.Instructions, 2)
	assert.Equal(t, byte(8), tx.Message.Instructions[0].ProgramIndex)
	assert.Equal(t, []byte{1, 2, 5, 3}, tx.Message.Instructions[0].Accounts)
	assert.Equal(t, byte(7), tx.Message.Instructions[1].ProgramIndex)
	assert.Equal(t, []byte{3, 5, 1, 2, 4, 6}, tx.Message.Instructions[1].Accounts)
}

func TestTransaction_PartialSigning(t *testing.T) {
	keys := generateKeys(t, 4)
	payer, mint, program, other := keys[0], keys[1], keys[2], keys[3]

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(program),
			[]byte{1},
			NewAccountMeta(public(mint), true),
			NewAccountMeta(public(payer), true),
			NewReadonlyAccountMeta(public(other), false),
		),
	)
	tx.SetBlockhash(Blockhash{1, 2, 3})

	assert.ElementsMatch(t, []ed25519.PublicKey{public(payer), public(mint)}, tx.MissingSigners())
	assert.ErrorIs(t, tx.VerifySignatures(), ErrMissingSignature)

	// The freshly generated key signs first, then the wallet co-signs
	require.NoError(t, tx.Sign(mint))
	assert.Equal(t, []ed25519.PublicKey{public(payer)}, tx.MissingSigners())

	sig := ed25519.Sign(payer, tx.Message.Marshal())
	var detached Signature
	copy(detached[:], sig)
	require.NoError(t, tx.AddSignature(public(payer), detached))

	assert.Empty(t, tx.MissingSigners())
	assert.NoError(t, tx.VerifySignatures())
	assert.Equal(t, detached, tx.Signature())

	decoded, err := TransactionFromBase64(tx.ToBase64())
	require.NoError(t, err)
	assert.NoError(t, decoded.VerifySignatures())
}

func TestTransaction_SignUnknownKey(t *testing.T) {
	keys := generateKeys(t, 3)

	tx := NewTransaction(
		public(keys[0]),
		NewInstruction(public(keys[1]), []byte{1}),
	)

	assert.ErrorIs(t, tx.Sign(keys[2]), ErrUnknownSigner)

	// Non-signer accounts can't sign either
	tx = NewTransaction(
		public(keys[0]),
		NewInstruction(public(keys[1]), []byte{1}, NewAccountMeta(public(keys[2]), false)),
	)
	assert.ErrorIs(t, tx.Sign(keys[2]), ErrUnknownSigner)

	var bogus Signature
	bogus[0] = 1
	assert.ErrorIs(t, tx.AddSignature(public(keys[0]), bogus), ErrInvalidSignature)
}

func TestTransaction_TamperedSignature(t *testing.T) {
	keys := generateKeys(t, 2)

	tx := NewTransaction(
		public(keys[0]),
		NewInstruction(public(keys[1]), []byte{1}),
	)
	require.NoError(t, tx.Sign(keys[0]))
	require.NoError(t, tx.VerifySignatures())

	tx.Message.Instructions[0].Data = []byte{2}
	assert.ErrorIs(t, tx.VerifySignatures(), ErrInvalidSignature)
}

func TestMessage_Permissions(t *testing.T) {
	keys := generateKeys(t, 5)

	tx := NewTransaction(
		public(keys[0]),
		NewInstruction(
			public(keys[1]),
			[]byte{1},
			NewReadonlyAccountMeta(public(keys[2]), true),
			NewAccountMeta(public(keys[3]), false),
			NewReadonlyAccountMeta(public(keys[4]), false),
		),
	)

	for i, account := range tx.Message.Accounts {
		switch {
		case bytes.Equal(account, public(keys[0])):
			assert.True(t, tx.Message.IsSigner(i))
			assert.True(t, tx.Message.IsWritable(i))
		case bytes.Equal(account, public(keys[2])):
			assert.True(t, tx.Message.IsSigner(i))
			assert.False(t, tx.Message.IsWritable(i))
		case bytes.Equal(account, public(keys[3])):
			assert.False(t, tx.Message.IsSigner(i))
			assert.True(t, tx.Message.IsWritable(i))
		default:
			assert.False(t, tx.Message.IsSigner(i))
			assert.False(t, tx.Message.IsWritable(i))
		}
	}
}

func TestMessage_RejectsVersioned(t *testing.T) {
	var m Message
	assert.ErrorIs(t, m.Unmarshal([]byte{0x80, 1, 0, 0}), ErrVersionedMessage)
}

func public(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}

func generateKeys(t *testing.T, n int) []ed25519.PrivateKey {
	keys := make([]ed25519.PrivateKey, n)
	for i := range keys {
		_, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = priv
	}
	return keys
}

// sortedKeys returns keys ordered by public key, which is how accounts of the
// same permission class are ordered in a message.
func sortedKeys(t *testing.T, n int) []ed25519.PrivateKey {
	keys := generateKeys(t, n)
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(public(keys[i]), public(keys[j])) < 0
	})
	return keys
}
