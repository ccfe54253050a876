package transfer

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/coupon/common"
	"github.com/code-payments/coupon-server/pkg/coupon/result"
	"github.com/code-payments/coupon-server/pkg/metrics"
	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/coupon"
)

// InitializeMerchant creates the merchant account owned by authority.
func (o *Orchestrator) InitializeMerchant(ctx context.Context, authority common.Signer, businessName string) *result.Result {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "InitializeMerchant")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method":    "InitializeMerchant",
		"authority": base58.Encode(authority.Address()),
	})

	sig, err := o.initializeMerchant(ctx, log, authority, businessName)
	return o.finish(ctx, tracer, log, sig, err)
}

func (o *Orchestrator) initializeMerchant(ctx context.Context, log *logrus.Entry, authority common.Signer, businessName string) (solana.Signature, error) {
	if len(businessName) == 0 {
		return solana.Signature{}, result.NewPreconditionError("business name is required")
	}
	if len(businessName) > coupon.MaxBusinessNameLength {
		return solana.Signature{}, result.NewPreconditionError("business name exceeds %d bytes", coupon.MaxBusinessNameLength)
	}

	merchant, _, err := coupon.GetMerchantAddress(&coupon.GetMerchantAddressArgs{
		Authority: authority.Address(),
	})
	if err != nil {
		return solana.Signature{}, err
	}

	ix, err := coupon.NewInitializeMerchantInstruction(
		&coupon.InitializeMerchantInstructionAccounts{
			Merchant:  merchant,
			Authority: authority.Address(),
		},
		&coupon.InitializeMerchantInstructionArgs{
			BusinessName: businessName,
		},
	)
	if err != nil {
		return solana.Signature{}, result.NewPreconditionError("invalid merchant: %s", err.Error())
	}

	sig, err := o.submit(ctx, log, authority.Address(), []common.Signer{authority}, ix)
	if reachedLedger(err) {
		o.merchants.Invalidate(base58.Encode(merchant))
	}
	return sig, err
}

// CouponParams describes a coupon to issue.
type CouponParams struct {
	Title              string
	Description        string
	DiscountPercentage uint8
	ExpiresAt          time.Time
	Category           coupon.Category
	MaxRedemptions     uint8
	MetadataUri        string

	// Zero issues a free coupon
	Price uint64
}

// CreateCoupon issues a new coupon NFT under mint and places it in the
// merchant's escrow. The freshly generated mint key signs first, then the
// merchant authority co-signs and pays.
func (o *Orchestrator) CreateCoupon(ctx context.Context, merchantAuthority, mint common.Signer, params *CouponParams) *result.Result {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateCoupon")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method":    "CreateCoupon",
		"authority": base58.Encode(merchantAuthority.Address()),
		"mint":      base58.Encode(mint.Address()),
	})

	sig, err := o.createCoupon(ctx, log, merchantAuthority, mint, params)
	return o.finish(ctx, tracer, log, sig, err)
}

func (o *Orchestrator) createCoupon(ctx context.Context, log *logrus.Entry, merchantAuthority, mint common.Signer, params *CouponParams) (solana.Signature, error) {
	if params == nil {
		return solana.Signature{}, result.NewPreconditionError("coupon parameters are required")
	}
	if params.DiscountPercentage < 1 || params.DiscountPercentage > 100 {
		return solana.Signature{}, result.NewPreconditionError("discount must be between 1 and 100")
	}
	if !params.ExpiresAt.After(o.now()) {
		return solana.Signature{}, result.NewPreconditionError("expiry must be in the future")
	}
	if params.MaxRedemptions < 1 {
		return solana.Signature{}, result.NewPreconditionError("at least one redemption is required")
	}
	if err := params.Category.Validate(); err != nil {
		return solana.Signature{}, result.NewPreconditionError("%s", err.Error())
	}

	addresses, err := coupon.DeriveAddresses(merchantAuthority.Address(), mint.Address())
	if err != nil {
		return solana.Signature{}, err
	}

	merchantTokenAccount, err := coupon.GetHolderTokenAccount(merchantAuthority.Address(), mint.Address())
	if err != nil {
		return solana.Signature{}, err
	}

	ix, err := coupon.NewCreateCouponInstruction(
		&coupon.CreateCouponInstructionAccounts{
			Merchant:             addresses.Merchant,
			CouponData:           addresses.CouponData,
			MerchantTokenAccount: merchantTokenAccount,
			Escrow:               addresses.Escrow,
			Mint:                 mint.Address(),
			Metadata:             addresses.Metadata,
			MasterEdition:        addresses.MasterEdition,
			MerchantAuthority:    merchantAuthority.Address(),
			Authority:            merchantAuthority.Address(),
		},
		&coupon.CreateCouponInstructionArgs{
			Title:              params.Title,
			Description:        params.Description,
			DiscountPercentage: params.DiscountPercentage,
			ExpiryDate:         params.ExpiresAt.Unix(),
			Category:           params.Category,
			MaxRedemptions:     params.MaxRedemptions,
			MetadataUri:        params.MetadataUri,
			Price:              params.Price,
		},
	)
	if err != nil {
		return solana.Signature{}, result.NewPreconditionError("invalid coupon: %s", err.Error())
	}

	sig, err := o.submit(ctx, log, merchantAuthority.Address(), []common.Signer{mint, merchantAuthority}, ix)
	if reachedLedger(err) {
		o.merchants.Invalidate(base58.Encode(addresses.Merchant))
	}
	o.invalidate(err, merchantAuthority.Address(), mint.Address())
	return sig, err
}

// UpdateCouponStatus activates or deactivates a coupon. Only the issuing
// merchant's authority can do so.
func (o *Orchestrator) UpdateCouponStatus(ctx context.Context, merchantAuthority common.Signer, mint ed25519.PublicKey, isActive bool) *result.Result {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "UpdateCouponStatus")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method":    "UpdateCouponStatus",
		"authority": base58.Encode(merchantAuthority.Address()),
		"mint":      base58.Encode(mint),
		"active":    isActive,
	})

	sig, err := o.updateCouponStatus(ctx, log, merchantAuthority, mint, isActive)
	return o.finish(ctx, tracer, log, sig, err)
}

func (o *Orchestrator) updateCouponStatus(ctx context.Context, log *logrus.Entry, merchantAuthority common.Signer, mint ed25519.PublicKey, isActive bool) (solana.Signature, error) {
	merchant, _, err := coupon.GetMerchantAddress(&coupon.GetMerchantAddressArgs{
		Authority: merchantAuthority.Address(),
	})
	if err != nil {
		return solana.Signature{}, err
	}

	ix := coupon.NewUpdateCouponStatusInstruction(
		&coupon.UpdateCouponStatusInstructionAccounts{
			Merchant:          merchant,
			CouponData:        mustCouponDataAddress(mint),
			Authority:         merchantAuthority.Address(),
			MerchantAuthority: merchantAuthority.Address(),
		},
		&coupon.UpdateCouponStatusInstructionArgs{
			IsActive: isActive,
		},
	)

	sig, err := o.submit(ctx, log, merchantAuthority.Address(), []common.Signer{merchantAuthority}, ix)
	o.invalidate(err, nil, mint)
	return sig, err
}
