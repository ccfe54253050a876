package main

import (
	"io"
	"os"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
	"github.com/code-payments/coupon-server/pkg/coupon/redemption"
	"github.com/code-payments/coupon-server/pkg/coupon/result"
)

func init() {
	rootCmd.AddCommand(proofCmd)
	proofCmd.AddCommand(proofIssueCmd)
	proofCmd.AddCommand(proofVerifyCmd)

	proofIssueCmd.Flags().StringP("keypair", "k", "", "Path to the holder's keypair file")
	proofIssueCmd.Flags().String("mint", "", "Coupon mint address")
	proofIssueCmd.Flags().String("title", "", "Coupon title shown at the terminal")
	proofIssueCmd.Flags().Uint8("discount", 0, "Discount percentage shown at the terminal")
	_ = proofIssueCmd.MarkFlagRequired("keypair")
	_ = proofIssueCmd.MarkFlagRequired("mint")

	proofVerifyCmd.Flags().String("terminal", "couponctl", "Terminal id the verification is limited under")
}

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Issue and verify redemption proofs",
}

var proofIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a redemption proof with a local keypair",
	Long: `Sign a redemption proof for a coupon held by the keypair's wallet. The
proof is printed as the JSON carried in the QR code and stays valid for the
configured freshness window.`,
	Args: cobra.NoArgs,
	RunE: runProofIssue,
}

var proofVerifyCmd = &cobra.Command{
	Use:   "verify [FILE]",
	Short: "Verify a redemption proof against the ledger",
	Long: `Verify a redemption proof read from FILE, or stdin when FILE is omitted
or "-". A successful verification consumes the proof.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProofVerify,
}

func runProofIssue(cmd *cobra.Command, _ []string) error {
	keypairPath, _ := cmd.Flags().GetString("keypair")
	title, _ := cmd.Flags().GetString("title")
	discount, _ := cmd.Flags().GetUint8("discount")

	mint, err := addressFlag(cmd, "mint")
	if err != nil {
		return err
	}

	holder, err := common.NewAccountFromKeypairFile(keypairPath)
	if err != nil {
		return errors.Wrap(err, "failed to load keypair")
	}

	proof, err := redemption.NewIssuer(holder).Issue(cmd.Context(), mint, title, discount)
	if err != nil {
		return err
	}

	raw, err := proof.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
	return err
}

func runProofVerify(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	terminal, _ := cmd.Flags().GetString("terminal")

	verifier := redemption.NewVerifier(e.solanaClient(), e.nonceStore(), e.verifyLimiter(), redemption.WithEnvConfigs())

	verified, err := verifier.Verify(e.context(cmd.Context()), terminal, raw)
	if err != nil {
		return printResult(cmd, result.Failure(err))
	}
	return printJSON(cmd.OutOrStdout(), newVerifiedView(verified))
}

type verifiedView struct {
	Mint           string    `json:"mint"`
	Owner          string    `json:"owner"`
	Title          string    `json:"title,omitempty"`
	Discount       uint8     `json:"discount,omitempty"`
	ProofTimestamp time.Time `json:"proofTimestamp"`
	VerifiedAt     time.Time `json:"verifiedAt"`
}

func newVerifiedView(v *redemption.VerifiedOwnership) *verifiedView {
	return &verifiedView{
		Mint:           base58.Encode(v.Mint),
		Owner:          base58.Encode(v.Owner),
		Title:          v.Title,
		Discount:       v.Discount,
		ProofTimestamp: v.ProofTimestamp,
		VerifiedAt:     v.VerifiedAt,
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
