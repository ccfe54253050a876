package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
)

func NewRandomAccount(t *testing.T) *common.Account {
	account, err := common.NewRandomAccount()
	require.NoError(t, err)

	return account
}

// NewPublicOnlyAccount returns an account for a random key without its
// private half, which cannot sign.
func NewPublicOnlyAccount(t *testing.T) *common.Account {
	account, err := common.NewAccountFromPublicKey(NewRandomAccount(t).PublicKey())
	require.NoError(t, err)

	return account
}
