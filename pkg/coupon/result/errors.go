package result

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/coupon"
)

type Category string

const (
	CategoryNone            Category = ""
	CategoryPrecondition    Category = "precondition"
	CategoryLedgerRejection Category = "ledger_rejection"
	CategoryVerification    Category = "verification"
	CategoryIndeterminate   Category = "indeterminate"
)

// Reason distinguishes verification failures, since each has a different
// remedy at the terminal.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonMissingFields    Reason = "missing_fields"
	ReasonExpired          Reason = "expired"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonNotOwned         Reason = "not_owned"
	ReasonAlreadyRedeemed  Reason = "already_redeemed"
	ReasonRateLimited      Reason = "rate_limited"
)

const indeterminateMessage = "outcome unknown, re-check ledger state before retrying"

// PreconditionError is a failure caught before anything was sent to the
// ledger.
type PreconditionError struct {
	Cause string
}

func NewPreconditionError(format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Cause: fmt.Sprintf(format, args...)}
}

func (e *PreconditionError) Error() string {
	return e.Cause
}

// LedgerRejectionError is a transaction that reached the ledger and was
// refused.
type LedgerRejectionError struct {
	Signature solana.Signature
	Err       *solana.TransactionError
}

func (e *LedgerRejectionError) Error() string {
	return describeTransactionError(e.Err)
}

// ProgramError returns the coupon program error carried by the rejection, if
// any.
func (e *LedgerRejectionError) ProgramError() (coupon.ProgramError, bool) {
	return coupon.ProgramErrorFromTransactionError(e.Err)
}

type VerificationError struct {
	Reason  Reason
	Message string
}

func NewVerificationError(reason Reason, message string) *VerificationError {
	return &VerificationError{Reason: reason, Message: message}
}

func (e *VerificationError) Error() string {
	return e.Message
}

// IndeterminateError means a transaction may or may not have landed. The
// signature is set whenever the transaction was signed, so the caller can
// look it up.
type IndeterminateError struct {
	Signature solana.Signature
	Err       error
}

func (e *IndeterminateError) Error() string {
	return indeterminateMessage
}

func (e *IndeterminateError) Unwrap() error {
	return e.Err
}

// Classify maps any error onto the failure taxonomy. Unrecognized errors are
// treated as indeterminate.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}

	var precondition *PreconditionError
	var rejection *LedgerRejectionError
	var txErr *solana.TransactionError
	var programErr coupon.ProgramError
	var verification *VerificationError

	switch {
	case errors.As(err, &precondition):
		return CategoryPrecondition
	case errors.As(err, &verification):
		return CategoryVerification
	case errors.As(err, &rejection), errors.As(err, &txErr), errors.As(err, &programErr):
		return CategoryLedgerRejection
	case errors.Is(err, common.ErrSignerUnavailable), errors.Is(err, common.ErrSigningDeclined):
		return CategoryPrecondition
	}
	return CategoryIndeterminate
}

// IsTimeout reports whether err is a submission or confirmation that ran out
// of time.
func IsTimeout(err error) bool {
	return errors.Is(err, solana.ErrSubmitTimeout) ||
		errors.Is(err, solana.ErrConfirmationTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func describeTransactionError(txErr *solana.TransactionError) string {
	if txErr == nil {
		return "transaction rejected"
	}

	if programErr, ok := coupon.ProgramErrorFromTransactionError(txErr); ok {
		return programErr.Error()
	}

	if ixErr := txErr.InstructionError(); ixErr != nil {
		if code := ixErr.CustomError(); code != nil {
			return fmt.Sprintf("transaction rejected: instruction %d failed with custom error %d", ixErr.Index, int(*code))
		}
		return fmt.Sprintf("transaction rejected: instruction %d failed: %s", ixErr.Index, ixErr.ErrorKey())
	}

	return fmt.Sprintf("transaction rejected: %s", txErr.ErrorKey())
}
