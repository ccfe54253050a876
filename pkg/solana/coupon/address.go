package coupon

import (
	"crypto/ed25519"

	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/token"
	"github.com/code-payments/coupon-server/pkg/solana/tokenmetadata"
)

var (
	MerchantPrefix     = []byte("merchant")
	CouponPrefix       = []byte("coupon")
	EscrowPrefix       = []byte("nft_escrow")
	ResaleEscrowPrefix = []byte("resale_escrow")
)

type GetMerchantAddressArgs struct {
	Authority ed25519.PublicKey
}

func GetMerchantAddress(args *GetMerchantAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		MerchantPrefix,
		args.Authority,
	)
}

type GetCouponDataAddressArgs struct {
	Mint ed25519.PublicKey
}

func GetCouponDataAddress(args *GetCouponDataAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		CouponPrefix,
		args.Mint,
	)
}

type GetEscrowAddressArgs struct {
	Merchant ed25519.PublicKey // merchant PDA, not the authority
	Mint     ed25519.PublicKey
}

// GetEscrowAddress derives the token account that custodies a newly issued
// coupon until it is claimed or purchased.
func GetEscrowAddress(args *GetEscrowAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		EscrowPrefix,
		args.Merchant,
		args.Mint,
	)
}

type GetResaleEscrowAddressArgs struct {
	Mint   ed25519.PublicKey
	Seller ed25519.PublicKey
}

func GetResaleEscrowAddress(args *GetResaleEscrowAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		ResaleEscrowPrefix,
		args.Mint,
		args.Seller,
	)
}

// Addresses is the full set of derived accounts for a single coupon mint.
type Addresses struct {
	Merchant      ed25519.PublicKey
	MerchantBump  uint8
	CouponData    ed25519.PublicKey
	CouponBump    uint8
	Escrow        ed25519.PublicKey
	EscrowBump    uint8
	Metadata      ed25519.PublicKey
	MasterEdition ed25519.PublicKey
}

// DeriveAddresses computes every program owned address for the coupon issued
// by merchantAuthority under mint.
func DeriveAddresses(merchantAuthority, mint ed25519.PublicKey) (*Addresses, error) {
	var res Addresses
	var err error

	res.Merchant, res.MerchantBump, err = GetMerchantAddress(&GetMerchantAddressArgs{
		Authority: merchantAuthority,
	})
	if err != nil {
		return nil, err
	}

	res.CouponData, res.CouponBump, err = GetCouponDataAddress(&GetCouponDataAddressArgs{
		Mint: mint,
	})
	if err != nil {
		return nil, err
	}

	res.Escrow, res.EscrowBump, err = GetEscrowAddress(&GetEscrowAddressArgs{
		Merchant: res.Merchant,
		Mint:     mint,
	})
	if err != nil {
		return nil, err
	}

	res.Metadata, _, err = tokenmetadata.GetMetadataAddress(mint)
	if err != nil {
		return nil, err
	}

	res.MasterEdition, _, err = tokenmetadata.GetMasterEditionAddress(mint)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// GetHolderTokenAccount is the associated token account a wallet uses to hold
// the coupon NFT.
func GetHolderTokenAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return token.GetAssociatedAccount(wallet, mint)
}
