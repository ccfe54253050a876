package main

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
	event_postgres "github.com/code-payments/coupon-server/pkg/coupon/data/event/postgres"
	resale_postgres "github.com/code-payments/coupon-server/pkg/coupon/data/resale/postgres"
	"github.com/code-payments/coupon-server/pkg/coupon/recorder"
	"github.com/code-payments/coupon-server/pkg/coupon/redemption"
	"github.com/code-payments/coupon-server/pkg/coupon/result"
	"github.com/code-payments/coupon-server/pkg/coupon/transfer"
)

func init() {
	rootCmd.AddCommand(couponCmd)
	couponCmd.AddCommand(couponShowCmd)
	couponCmd.AddCommand(couponClaimCmd)
	couponCmd.AddCommand(couponPurchaseCmd)
	couponCmd.AddCommand(couponRedeemCmd)

	for _, cmd := range []*cobra.Command{couponClaimCmd, couponPurchaseCmd, couponRedeemCmd} {
		cmd.Flags().StringP("keypair", "k", "", "Path to the signing wallet's keypair file")
		_ = cmd.MarkFlagRequired("keypair")
	}

	couponRedeemCmd.Flags().String("fee-payer", "", "Optional keypair file of a merchant paying the fee")
	couponRedeemCmd.Flags().String("terminal", "couponctl", "Terminal id the verification is limited under")
}

var couponCmd = &cobra.Command{
	Use:   "coupon",
	Short: "Read coupons and submit escrow transfers",
}

var couponShowCmd = &cobra.Command{
	Use:   "show MINT",
	Short: "Print a coupon's on-chain state and price split",
	Args:  cobra.ExactArgs(1),
	RunE:  runCouponShow,
}

var couponClaimCmd = &cobra.Command{
	Use:   "claim MINT",
	Short: "Claim a free coupon out of its merchant's escrow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEscrowTransfer(cmd, args, (*transfer.Orchestrator).Claim)
	},
}

var couponPurchaseCmd = &cobra.Command{
	Use:   "purchase MINT",
	Short: "Purchase a paid coupon out of its merchant's escrow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEscrowTransfer(cmd, args, (*transfer.Orchestrator).Purchase)
	},
}

var couponRedeemCmd = &cobra.Command{
	Use:   "redeem [PROOF_FILE]",
	Short: "Verify a redemption proof and redeem the coupon",
	Long: `Verify the proof read from PROOF_FILE, or stdin, then submit the
redemption signed by the holder's keypair. A coupon on its last redemption
is burned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCouponRedeem,
}

type couponView struct {
	Mint                 string    `json:"mint"`
	Merchant             string    `json:"merchant"`
	DiscountPercentage   uint8     `json:"discountPercentage"`
	ExpiresAt            time.Time `json:"expiresAt"`
	Category             string    `json:"category"`
	RedemptionsRemaining uint8     `json:"redemptionsRemaining"`
	MaxRedemptions       uint8     `json:"maxRedemptions"`
	IsActive             bool      `json:"isActive"`
	Price                uint64    `json:"price"`
	MerchantReceives     uint64    `json:"merchantReceives"`
	PlatformFee          uint64    `json:"platformFee"`
}

// newOrchestrator wires the transfer orchestrator to the postgres bookkeeping
// stores. The returned recorder must be closed to flush pending records.
func (e *env) newOrchestrator(cmd *cobra.Command) (*transfer.Orchestrator, *recorder.Recorder, error) {
	if err := e.requirePostgres(); err != nil {
		return nil, nil, err
	}

	listings := resale_postgres.New(e.db)
	rec := recorder.New(e.context(cmd.Context()), event_postgres.New(e.db), listings, recorder.WithEnvConfigs())

	return transfer.New(e.solanaClient(), listings, rec, transfer.WithEnvConfigs()), rec, nil
}

func runCouponShow(cmd *cobra.Command, args []string) error {
	mint, err := parseAddress("mint", args[0])
	if err != nil {
		return err
	}

	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	orchestrator, rec, err := e.newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx := e.context(cmd.Context())

	data, err := orchestrator.GetCoupon(ctx, mint)
	if err != nil {
		return err
	}
	quote, err := orchestrator.GetQuote(ctx, mint)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), &couponView{
		Mint:                 base58.Encode(data.Mint),
		Merchant:             base58.Encode(data.Merchant),
		DiscountPercentage:   data.DiscountPercentage,
		ExpiresAt:            time.Unix(data.ExpiryDate, 0).UTC(),
		Category:             data.Category.String(),
		RedemptionsRemaining: data.RedemptionsRemaining,
		MaxRedemptions:       data.MaxRedemptions,
		IsActive:             data.IsActive,
		Price:                quote.Price,
		MerchantReceives:     quote.Net,
		PlatformFee:          quote.Fee,
	})
}

type escrowTransfer func(o *transfer.Orchestrator, ctx context.Context, signer common.Signer, mint ed25519.PublicKey) *result.Result

func runEscrowTransfer(cmd *cobra.Command, args []string, fn escrowTransfer) error {
	mint, err := parseAddress("mint", args[0])
	if err != nil {
		return err
	}

	signer, err := keypairFlag(cmd, "keypair")
	if err != nil {
		return err
	}

	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	orchestrator, rec, err := e.newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer rec.Close()

	return printResult(cmd, fn(orchestrator, e.context(cmd.Context()), signer, mint))
}

func runCouponRedeem(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	holder, err := keypairFlag(cmd, "keypair")
	if err != nil {
		return err
	}

	var feePayer common.Signer
	if path, _ := cmd.Flags().GetString("fee-payer"); len(path) > 0 {
		feePayer, err = keypairFlag(cmd, "fee-payer")
		if err != nil {
			return err
		}
	}

	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	orchestrator, rec, err := e.newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx := e.context(cmd.Context())
	terminal, _ := cmd.Flags().GetString("terminal")

	verifier := redemption.NewVerifier(e.solanaClient(), e.nonceStore(), e.verifyLimiter(), redemption.WithEnvConfigs())
	verified, err := verifier.Verify(ctx, terminal, raw)
	if err != nil {
		return printResult(cmd, result.Failure(err))
	}

	return printResult(cmd, orchestrator.Redeem(ctx, holder, verified, feePayer))
}

func keypairFlag(cmd *cobra.Command, name string) (*common.Account, error) {
	path, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}

	account, err := common.NewAccountFromKeypairFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s keypair", name)
	}
	return account, nil
}

// printResult prints res and turns a failure into a non-zero exit.
func printResult(cmd *cobra.Command, res *result.Result) error {
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Success {
		return errors.Errorf("%s: %s", res.Category, res.Error)
	}
	return nil
}
