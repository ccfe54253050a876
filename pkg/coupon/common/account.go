package common

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/code-payments/coupon-server/pkg/solana/coupon"
)

// Account is a wallet, merchant authority or mint address, optionally with
// the private key needed to sign for it.
type Account struct {
	publicKey  *Key
	privateKey *Key // Optional
}

func NewAccountFromPublicKey(publicKey *Key) (*Account, error) {
	account := &Account{
		publicKey: publicKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPublicKeyBytes(publicKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPublicKeyString(publicKey string) (*Account, error) {
	key, err := NewKeyFromString(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPrivateKey(privateKey *Key) (*Account, error) {
	if privateKey.IsPublic() {
		return nil, errors.New("key is not a private key")
	}

	publicKeyBytes := ed25519.PrivateKey(privateKey.ToBytes()).Public().(ed25519.PublicKey)
	publicKey, err := NewKeyFromBytes(publicKeyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "error creating public key from private key")
	}

	account := &Account{
		publicKey:  publicKey,
		privateKey: privateKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPrivateKeyBytes(privateKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(privateKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPrivateKey(key)
}

// NewAccountFromKeypairJSON parses the JSON byte array keypair format written
// by solana-keygen.
func NewAccountFromKeypairJSON(data []byte) (*Account, error) {
	var raw []byte
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, errors.Wrap(err, "error decoding keypair json")
	}

	for _, v := range ints {
		if v < 0 || v > 255 {
			return nil, errors.New("keypair byte out of range")
		}
		raw = append(raw, byte(v))
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair must be %d bytes", ed25519.PrivateKeySize)
	}

	account, err := NewAccountFromPrivateKeyBytes(raw)
	if err != nil {
		return nil, err
	}

	// The trailing 32 bytes must match the public key derived from the seed
	if !bytes.Equal(raw[32:], account.publicKey.ToBytes()) {
		return nil, errors.New("keypair public key does not match private key")
	}
	return account, nil
}

func NewAccountFromKeypairFile(path string) (*Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading keypair file")
	}
	return NewAccountFromKeypairJSON(data)
}

func NewRandomAccount() (*Account, error) {
	key, err := NewRandomKey()
	if err != nil {
		return nil, err
	}

	account, err := NewAccountFromPrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid account")
	}

	return account, nil
}

func (a *Account) PublicKey() *Key {
	return a.publicKey
}

func (a *Account) PrivateKey() *Key {
	return a.privateKey
}

// Address implements Signer.Address
func (a *Account) Address() ed25519.PublicKey {
	return a.publicKey.ToBytes()
}

// SignMessage implements Signer.SignMessage
func (a *Account) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	return a.Sign(message)
}

func (a *Account) Sign(message []byte) ([]byte, error) {
	if a.privateKey == nil {
		return nil, ErrSignerUnavailable
	}

	signature := ed25519.Sign(a.privateKey.ToBytes(), message)
	return signature, nil
}

// ToHolderTokenAccount returns the associated token account in which this
// wallet holds the coupon NFT for mint.
func (a *Account) ToHolderTokenAccount(mint *Account) (*Account, error) {
	ata, err := coupon.GetHolderTokenAccount(a.publicKey.ToBytes(), mint.publicKey.ToBytes())
	if err != nil {
		return nil, errors.Wrap(err, "error getting holder token account")
	}
	return NewAccountFromPublicKeyBytes(ata)
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if err := a.publicKey.Validate(); err != nil {
		return errors.Wrap(err, "error validating public key")
	}

	if !a.publicKey.IsPublic() {
		return errors.New("public key isn't public")
	}

	if a.privateKey != nil {
		if err := a.privateKey.Validate(); err != nil {
			return errors.Wrap(err, "error validating private key")
		}

		if a.privateKey.IsPublic() {
			return errors.New("private key isn't private")
		}

		expectedPublicKey := ed25519.PrivateKey(a.privateKey.ToBytes()).Public().(ed25519.PublicKey)
		if !bytes.Equal(expectedPublicKey, a.publicKey.ToBytes()) {
			return errors.New("private key doesn't map to public key")
		}
	}

	return nil
}

func (a *Account) Equals(other *Account) bool {
	if a == nil || other == nil {
		return a == other
	}
	return bytes.Equal(a.publicKey.ToBytes(), other.publicKey.ToBytes())
}

func (a *Account) String() string {
	return a.publicKey.ToBase58()
}
