package main

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/coupon-server/pkg/solana/coupon"
)

func init() {
	rootCmd.AddCommand(deriveCmd)

	deriveCmd.Flags().String("merchant", "", "Merchant authority address")
	deriveCmd.Flags().String("mint", "", "Coupon mint address")
	deriveCmd.Flags().String("seller", "", "Optional seller address, to include the resale escrow")
	_ = deriveCmd.MarkFlagRequired("merchant")
	_ = deriveCmd.MarkFlagRequired("mint")
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Print the program addresses for a coupon",
	Long: `Derive the merchant, coupon data, escrow, metadata and master edition
addresses for a coupon. No network access is needed.`,
	Args: cobra.NoArgs,
	RunE: runDerive,
}

func runDerive(cmd *cobra.Command, _ []string) error {
	merchant, err := addressFlag(cmd, "merchant")
	if err != nil {
		return err
	}
	mint, err := addressFlag(cmd, "mint")
	if err != nil {
		return err
	}

	var seller ed25519.PublicKey
	if value, _ := cmd.Flags().GetString("seller"); len(value) > 0 {
		seller, err = addressFlag(cmd, "seller")
		if err != nil {
			return err
		}
	}

	derived, err := deriveAddresses(merchant, mint, seller)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), derived)
}

type derivedAddresses struct {
	Merchant             string `json:"merchant"`
	CouponData           string `json:"couponData"`
	Escrow               string `json:"escrow"`
	Metadata             string `json:"metadata"`
	MasterEdition        string `json:"masterEdition"`
	MerchantTokenAccount string `json:"merchantTokenAccount"`
	ResaleEscrow         string `json:"resaleEscrow,omitempty"`
}

func deriveAddresses(merchantAuthority, mint, seller ed25519.PublicKey) (*derivedAddresses, error) {
	addresses, err := coupon.DeriveAddresses(merchantAuthority, mint)
	if err != nil {
		return nil, err
	}

	merchantTokenAccount, err := coupon.GetHolderTokenAccount(merchantAuthority, mint)
	if err != nil {
		return nil, err
	}

	res := &derivedAddresses{
		Merchant:             base58.Encode(addresses.Merchant),
		CouponData:           base58.Encode(addresses.CouponData),
		Escrow:               base58.Encode(addresses.Escrow),
		Metadata:             base58.Encode(addresses.Metadata),
		MasterEdition:        base58.Encode(addresses.MasterEdition),
		MerchantTokenAccount: base58.Encode(merchantTokenAccount),
	}

	if len(seller) > 0 {
		resaleEscrow, _, err := coupon.GetResaleEscrowAddress(&coupon.GetResaleEscrowAddressArgs{
			Mint:   mint,
			Seller: seller,
		})
		if err != nil {
			return nil, err
		}
		res.ResaleEscrow = base58.Encode(resaleEscrow)
	}

	return res, nil
}

func addressFlag(cmd *cobra.Command, name string) (ed25519.PublicKey, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}
	return parseAddress(name, value)
}

func parseAddress(name, value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid %s address: %q", name, value)
	}
	return decoded, nil
}
