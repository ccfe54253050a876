package coupon

import (
	"crypto/ed25519"
	"errors"
	"math"

	"github.com/code-payments/coupon-server/pkg/solana/system"
	"github.com/code-payments/coupon-server/pkg/solana/token"
	"github.com/code-payments/coupon-server/pkg/solana/tokenmetadata"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
	ErrStringTooLong          = errors.New("string exceeds maximum length")
	ErrArithmeticOverflow     = errors.New("arithmetic overflow")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("RECcAGSNVfAdGeTsR92jMUM2DBuedSqpAn9W8pNrLi7")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	METADATA_PROGRAM_ID         = tokenmetadata.ProgramKey
	SYSTEM_PROGRAM_ID           = ed25519.PublicKey(system.ProgramKey[:])
	SPL_TOKEN_PROGRAM_ID        = token.ProgramKey
	ASSOCIATED_TOKEN_PROGRAM_ID = token.AssociatedTokenAccountProgramKey

	SYSVAR_RENT_PUBKEY         = system.RentSysVar
	SYSVAR_INSTRUCTIONS_PUBKEY = system.InstructionsSysVar
)

// Platform fee taken on every paid transfer, expressed as a fraction.
const (
	PlatformFeeNumerator   = 25
	PlatformFeeDenominator = 1000
)

// SplitPayment returns the counterparty share and the platform fee for price,
// matching the program's integer arithmetic. The fee rounds down and the
// counterparty receives the remainder, so net+fee always equals price.
func SplitPayment(price uint64) (net, fee uint64, err error) {
	if price > math.MaxUint64/PlatformFeeNumerator {
		return 0, 0, ErrArithmeticOverflow
	}

	fee = price * PlatformFeeNumerator / PlatformFeeDenominator
	return price - fee, fee, nil
}
