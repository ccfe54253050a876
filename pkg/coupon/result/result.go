package result

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/coupon-server/pkg/pointer"
	"github.com/code-payments/coupon-server/pkg/solana"
)

const explorerBaseURL = "https://solscan.io/tx/"

// Result is the uniform outcome of every orchestrator call, as handed to UI
// collaborators.
type Result struct {
	Success     bool   `json:"success"`
	Signature   string `json:"signature,omitempty"`
	Error       string `json:"error,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	ListingID   string `json:"listingId,omitempty"`

	// Set on redemptions whose program event could be read back
	RedemptionsRemaining *uint8 `json:"redemptionsRemaining,omitempty"`
	Burned               bool   `json:"burned,omitempty"`

	Category Category `json:"category,omitempty"`
	Reason   Reason   `json:"reason,omitempty"`
}

func Success(sig solana.Signature) *Result {
	return &Result{
		Success:   true,
		Signature: sig.String(),
	}
}

// Failure is FromError for a non-nil error.
func Failure(err error) *Result {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return FromError(err)
}

// FromError normalizes err into a Result. A nil error is a success without a
// signature.
func FromError(err error) *Result {
	if err == nil {
		return &Result{Success: true}
	}

	res := &Result{
		Category: Classify(err),
		Error:    err.Error(),
	}

	var verification *VerificationError
	var rejection *LedgerRejectionError
	var indeterminate *IndeterminateError

	switch {
	case errors.As(err, &verification):
		res.Reason = verification.Reason
		res.Error = verification.Message
	case errors.As(err, &rejection):
		res.Error = rejection.Error()
		if !rejection.Signature.IsZero() {
			res.Signature = rejection.Signature.String()
		}
	case errors.As(err, &indeterminate):
		res.Error = indeterminateMessage
		if !indeterminate.Signature.IsZero() {
			res.Signature = indeterminate.Signature.String()
		}
	case res.Category == CategoryIndeterminate && IsTimeout(err):
		res.Error = indeterminateMessage
	}

	return res
}

// WithExplorer sets the explorer link for the result's signature.
func (r *Result) WithExplorer(cluster solana.Cluster) *Result {
	if r.Signature != "" {
		r.ExplorerURL = ExplorerURL(cluster, r.Signature)
	}
	return r
}

func (r *Result) WithListingID(id string) *Result {
	r.ListingID = id
	return r
}

// ExplorerURL links to a transaction on Solscan. Mainnet is Solscan's default
// so it carries no cluster parameter.
func ExplorerURL(cluster solana.Cluster, sig string) string {
	if cluster == solana.ClusterMainnet || cluster == "" {
		return explorerBaseURL + sig
	}
	return fmt.Sprintf("%s%s?cluster=%s", explorerBaseURL, sig, cluster)
}

// WithRedemption attaches the counter reported by the redeem event.
func (r *Result) WithRedemption(remaining uint8, burned bool) *Result {
	r.RedemptionsRemaining = pointer.To(remaining)
	r.Burned = burned
	return r
}

func (r *Result) String() string {
	if r.Success {
		return fmt.Sprintf("success (signature=%s)", r.Signature)
	}
	return fmt.Sprintf("%s failure: %s", r.Category, r.Error)
}
