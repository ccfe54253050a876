package token

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/coupon-server/pkg/solana"
)

var (
	// ErrAccountNotFound indicates there is no account for the given address.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidTokenAccount indicates that a Solana account exists at the
	// given address, but it is either not initialized, or not configured correctly.
	ErrInvalidTokenAccount = errors.New("invalid token account")
)

// Client reads SPL token accounts for coupon NFT mints.
type Client struct {
	sc solana.Client
}

// NewClient creates a new Client.
func NewClient(sc solana.Client) *Client {
	return &Client{
		sc: sc,
	}
}

// GetAccount returns the token account info for the specified account.
//
// If the account is not initialized, or belongs to a different
// mint, then ErrInvalidTokenAccount is returned.
func (c *Client) GetAccount(ctx context.Context, accountID, mint ed25519.PublicKey, commitment solana.Commitment) (*Account, error) {
	accountInfo, err := c.sc.GetAccountInfo(ctx, accountID, commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get account info")
	}

	if !bytes.Equal(accountInfo.Owner, ProgramKey) {
		return nil, ErrInvalidTokenAccount
	}

	var account Account
	if !account.Unmarshal(accountInfo.Data) {
		return nil, ErrInvalidTokenAccount
	}

	if !bytes.Equal(mint, account.Mint) {
		return nil, ErrInvalidTokenAccount
	}

	return &account, nil
}

// GetAssociatedBalance returns the amount of mint held in the wallet's
// associated token account. A missing account holds zero.
func (c *Client) GetAssociatedBalance(ctx context.Context, wallet, mint ed25519.PublicKey, commitment solana.Commitment) (uint64, error) {
	ata, err := GetAssociatedAccount(wallet, mint)
	if err != nil {
		return 0, err
	}

	account, err := c.GetAccount(ctx, ata, mint, commitment)
	if err == ErrAccountNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	return account.Amount, nil
}

// GetOwnedBalance sums the balance of every token account the owner holds for
// mint. An NFT is owned when the sum is exactly one.
func (c *Client) GetOwnedBalance(ctx context.Context, owner, mint ed25519.PublicKey, commitment solana.Commitment) (uint64, error) {
	accounts, err := c.sc.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get token accounts by owner")
	}

	var total uint64
	for _, account := range accounts {
		balance, err := c.sc.GetTokenAccountBalance(ctx, account, commitment)
		if err == solana.ErrNoBalance {
			continue
		} else if err != nil {
			return 0, errors.Wrap(err, "failed to get token account balance")
		}

		total += balance
	}

	return total, nil
}
