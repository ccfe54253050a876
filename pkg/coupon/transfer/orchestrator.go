package transfer

import (
	"context"
	"crypto/ed25519"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/cache"
	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	"github.com/code-payments/coupon-server/pkg/coupon/data/resale"
	"github.com/code-payments/coupon-server/pkg/coupon/recorder"
	"github.com/code-payments/coupon-server/pkg/coupon/result"
	"github.com/code-payments/coupon-server/pkg/metrics"
	"github.com/code-payments/coupon-server/pkg/pointer"
	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/coupon"
)

const (
	metricsStructName = "coupon.transfer.orchestrator"
)

var (
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrMerchantNotFound = errors.New("merchant not found")
)

// Orchestrator composes, signs, submits and confirms every coupon transfer.
// Each operation returns a *result.Result and never retries a submission.
type Orchestrator struct {
	log  *logrus.Entry
	conf *conf

	sc       solana.Client
	listings resale.Store
	recorder *recorder.Recorder

	coupons   *cache.ReadThrough
	merchants *cache.ReadThrough
	escrows   *cache.ReadThrough

	now func() time.Time
}

func New(sc solana.Client, listings resale.Store, rec *recorder.Recorder, configProvider ConfigProvider) *Orchestrator {
	o := &Orchestrator{
		log:      logrus.StandardLogger().WithField("type", "coupon/transfer/orchestrator"),
		conf:     configProvider(),
		sc:       sc,
		listings: listings,
		recorder: rec,
		now:      time.Now,
	}

	ctx := context.Background()
	size := int(o.conf.readCacheSize.Get(ctx))
	ttl := o.conf.readCacheTtl.Get(ctx)

	o.coupons = cache.NewReadThrough(size, ttl, o.loadCouponData)
	o.merchants = cache.NewReadThrough(size, ttl, o.loadMerchant)
	o.escrows = cache.NewReadThrough(size, ttl, o.loadEscrowBalance)

	return o
}

// GetCoupon returns the coupon data account for mint, or ErrCouponNotFound.
func (o *Orchestrator) GetCoupon(ctx context.Context, mint ed25519.PublicKey) (*coupon.CouponDataAccount, error) {
	value, err := o.coupons.Get(ctx, base58.Encode(mint))
	if err != nil {
		return nil, err
	}

	cloned := *value.(*coupon.CouponDataAccount)
	return &cloned, nil
}

// GetMerchant returns the merchant account owned by authority, or
// ErrMerchantNotFound.
func (o *Orchestrator) GetMerchant(ctx context.Context, authority ed25519.PublicKey) (*coupon.MerchantAccount, error) {
	address, _, err := coupon.GetMerchantAddress(&coupon.GetMerchantAddressArgs{
		Authority: authority,
	})
	if err != nil {
		return nil, err
	}
	return o.getMerchantByAddress(ctx, address)
}

// EscrowBalance returns how many units the merchant escrow for mint still
// holds, which is 1 before the coupon is claimed or purchased and 0 after.
func (o *Orchestrator) EscrowBalance(ctx context.Context, merchantAuthority, mint ed25519.PublicKey) (uint64, error) {
	value, err := o.escrows.Get(ctx, escrowCacheKey(merchantAuthority, mint))
	if err != nil {
		return 0, err
	}
	return value.(uint64), nil
}

// Quote is the split of a coupon's price between the merchant and the
// platform.
type Quote struct {
	Price uint64
	Net   uint64
	Fee   uint64
}

// GetQuote returns the price split for purchasing mint out of escrow.
func (o *Orchestrator) GetQuote(ctx context.Context, mint ed25519.PublicKey) (*Quote, error) {
	data, err := o.GetCoupon(ctx, mint)
	if err != nil {
		return nil, err
	}

	net, fee, err := coupon.SplitPayment(data.Price)
	if err != nil {
		return nil, err
	}
	return &Quote{Price: data.Price, Net: net, Fee: fee}, nil
}

func (o *Orchestrator) getMerchantByAddress(ctx context.Context, address ed25519.PublicKey) (*coupon.MerchantAccount, error) {
	value, err := o.merchants.Get(ctx, base58.Encode(address))
	if err != nil {
		return nil, err
	}

	cloned := *value.(*coupon.MerchantAccount)
	return &cloned, nil
}

func (o *Orchestrator) loadCouponData(ctx context.Context, key string) (interface{}, error) {
	mint, err := base58.Decode(key)
	if err != nil {
		return nil, err
	}

	address, _, err := coupon.GetCouponDataAddress(&coupon.GetCouponDataAddressArgs{
		Mint: mint,
	})
	if err != nil {
		return nil, err
	}

	info, err := o.sc.GetAccountInfo(ctx, address, o.commitment(ctx))
	if err == solana.ErrNoAccountInfo {
		return nil, ErrCouponNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting coupon data account")
	}

	var data coupon.CouponDataAccount
	if err := data.Unmarshal(info.Data); err != nil {
		return nil, errors.Wrap(err, "invalid coupon data account")
	}
	return &data, nil
}

func (o *Orchestrator) loadMerchant(ctx context.Context, key string) (interface{}, error) {
	address, err := base58.Decode(key)
	if err != nil {
		return nil, err
	}

	info, err := o.sc.GetAccountInfo(ctx, address, o.commitment(ctx))
	if err == solana.ErrNoAccountInfo {
		return nil, ErrMerchantNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting merchant account")
	}

	var merchant coupon.MerchantAccount
	if err := merchant.Unmarshal(info.Data); err != nil {
		return nil, errors.Wrap(err, "invalid merchant account")
	}
	return &merchant, nil
}

func (o *Orchestrator) loadEscrowBalance(ctx context.Context, key string) (interface{}, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 2 {
		return nil, errors.Errorf("invalid escrow key: %s", key)
	}

	authority, err := base58.Decode(parts[0])
	if err != nil {
		return nil, err
	}
	mint, err := base58.Decode(parts[1])
	if err != nil {
		return nil, err
	}

	addresses, err := coupon.DeriveAddresses(authority, mint)
	if err != nil {
		return nil, err
	}

	balance, err := o.sc.GetTokenAccountBalance(ctx, addresses.Escrow, o.commitment(ctx))
	if err == solana.ErrNoBalance {
		return uint64(0), nil
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting escrow balance")
	}
	return balance, nil
}

func escrowCacheKey(merchantAuthority, mint ed25519.PublicKey) string {
	return base58.Encode(merchantAuthority) + ":" + base58.Encode(mint)
}

// invalidate drops cached reads a transfer may have changed. Anything past a
// precondition failure may have landed, so a rejected or indeterminate
// submission invalidates as well as a confirmed one.
func (o *Orchestrator) invalidate(submitErr error, merchantAuthority, mint ed25519.PublicKey) {
	if !reachedLedger(submitErr) {
		return
	}

	o.coupons.Invalidate(base58.Encode(mint))
	if merchantAuthority != nil {
		o.escrows.Invalidate(escrowCacheKey(merchantAuthority, mint))
	}
}

func reachedLedger(submitErr error) bool {
	var precondition *result.PreconditionError
	return !errors.As(submitErr, &precondition)
}

func (o *Orchestrator) commitment(ctx context.Context) solana.Commitment {
	commitment, err := solana.CommitmentFromString(o.conf.commitment.Get(ctx))
	if err != nil {
		return solana.CommitmentConfirmed
	}
	return commitment
}

func (o *Orchestrator) cluster(ctx context.Context) solana.Cluster {
	return solana.Cluster(o.conf.cluster.Get(ctx))
}

func (o *Orchestrator) platformWallet(ctx context.Context) (ed25519.PublicKey, error) {
	value := o.conf.platformWallet.Get(ctx)
	if len(value) == 0 {
		return nil, result.NewPreconditionError("platform wallet is not configured")
	}

	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, result.NewPreconditionError("platform wallet is not a valid address")
	}
	return decoded, nil
}

// readPrecondition maps a failed ledger read before submission. Nothing has
// been sent, so the failure is always a precondition.
func readPrecondition(err error) error {
	switch err {
	case ErrCouponNotFound, ErrMerchantNotFound:
		return result.NewPreconditionError("%s", err.Error())
	}
	return result.NewPreconditionError("ledger unavailable: %s", err.Error())
}

// record queues off-chain bookkeeping for a confirmed transfer. The platform
// fee is derived from amount the same way the program splits it.
func (o *Orchestrator) record(ctx context.Context, eventType event.Type, sig solana.Signature, mint, wallet, counterparty ed25519.PublicKey, amount uint64) {
	var fee uint64
	if amount > 0 {
		_, fee, _ = coupon.SplitPayment(amount)
	}

	record := &event.Record{
		Type:      eventType,
		Mint:      base58.Encode(mint),
		Wallet:    base58.Encode(wallet),
		Signature: sig.String(),
		Amount:    amount,
		Fee:       fee,
	}
	if counterparty != nil {
		record.Counterparty = pointer.String(base58.Encode(counterparty))
	}

	o.recorder.RecordEvent(ctx, record)
}

// finish converts the outcome of an operation into its result and logs it.
func (o *Orchestrator) finish(ctx context.Context, tracer *metrics.MethodTracer, log *logrus.Entry, sig solana.Signature, err error) *result.Result {
	cluster := o.cluster(ctx)

	if err == nil {
		log.WithField("signature", sig.String()).Debug("transfer confirmed")
		return result.Success(sig).WithExplorer(cluster)
	}

	res := result.Failure(err).WithExplorer(cluster)

	log = log.WithField("category", res.Category)
	switch res.Category {
	case result.CategoryPrecondition:
		log.WithError(err).Info("transfer precondition failed")
	case result.CategoryLedgerRejection:
		log.WithError(err).Info("transfer rejected by ledger")
	default:
		tracer.OnError(err)
		log.WithError(err).Warn("transfer outcome unknown")
	}

	return res
}
