// Package solanatest provides an in-memory ledger that implements
// solana.Client and executes coupon program instructions.
package solanatest

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/coupon"
	"github.com/code-payments/coupon-server/pkg/solana/token"
)

// Anchor framework error codes surfaced by account constraint checks.
const (
	anchorConstraintHasOne        = 2001
	anchorConstraintRaw           = 2003
	anchorConstraintSeeds         = 2006
	anchorAccountNotInitialized   = 3012
	systemAccountAlreadyInUse     = 0
	systemResultWithNegativeFunds = 1
	tokenInsufficientFunds        = 1
)

type state struct {
	lamports map[string]uint64
	accounts map[string]solana.AccountInfo
}

func newState() *state {
	return &state{
		lamports: make(map[string]uint64),
		accounts: make(map[string]solana.AccountInfo),
	}
}

func (s *state) clone() *state {
	cloned := newState()
	for k, v := range s.lamports {
		cloned.lamports[k] = v
	}
	for k, v := range s.accounts {
		v.Data = append([]byte{}, v.Data...)
		cloned.accounts[k] = v
	}
	return cloned
}

// Ledger is a single node, instantly confirming ledger. Every submitted
// transaction is applied to a staged copy of the state, which is committed
// only if all of its instructions succeed.
type Ledger struct {
	mu sync.Mutex

	now   func() time.Time
	slot  uint64
	state *state

	statuses     map[solana.Signature]*solana.SignatureStatus
	transactions map[solana.Signature]solana.ConfirmedTransaction
	submitted    []solana.Transaction

	submitErr        error
	holdConfirmation bool
}

// New returns an empty Ledger whose clock is the wall clock.
func New() *Ledger {
	return &Ledger{
		now:          time.Now,
		slot:         1,
		state:        newState(),
		statuses:     make(map[solana.Signature]*solana.SignatureStatus),
		transactions: make(map[solana.Signature]solana.ConfirmedTransaction),
	}
}

// SetClock overrides the clock used for expiry checks and event timestamps.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// FailNextSubmit makes the next SubmitTransaction return err without applying
// the transaction.
func (l *Ledger) FailNextSubmit(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitErr = err
}

// HoldConfirmations applies transactions but reports them as processed only,
// so confirmation never completes.
func (l *Ledger) HoldConfirmations(hold bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holdConfirmation = hold
}

// Submitted returns the transactions accepted for execution so far, including
// the ones that failed.
func (l *Ledger) Submitted() []solana.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]solana.Transaction{}, l.submitted...)
}

func (l *Ledger) Fund(wallet ed25519.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.lamports[string(wallet)] += lamports
}

func (l *Ledger) Lamports(wallet ed25519.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.lamports[string(wallet)]
}

// SetMerchant writes a merchant account for authority.
func (l *Ledger) SetMerchant(authority ed25519.PublicKey, businessName string) (ed25519.PublicKey, error) {
	merchant, bump, err := coupon.GetMerchantAddress(&coupon.GetMerchantAddressArgs{Authority: authority})
	if err != nil {
		return nil, err
	}

	account := &coupon.MerchantAccount{
		Authority:    authority,
		BusinessName: businessName,
		Bump:         bump,
	}
	data, err := account.Marshal()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.accounts[string(merchant)] = solana.AccountInfo{Owner: coupon.PROGRAM_ID, Data: data}
	return merchant, nil
}

// IssueCoupon writes the coupon data account and an escrow holding one unit,
// as create_coupon would. The merchant account must already exist.
func (l *Ledger) IssueCoupon(merchantAuthority, mint ed25519.PublicKey, data *coupon.CouponDataAccount) error {
	addresses, err := coupon.DeriveAddresses(merchantAuthority, mint)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.state.accounts[string(addresses.Merchant)]; !ok {
		return errors.New("merchant account does not exist")
	}

	cloned := *data
	cloned.Mint = mint
	cloned.Merchant = addresses.Merchant
	cloned.Bump = addresses.CouponBump
	l.state.accounts[string(addresses.CouponData)] = solana.AccountInfo{Owner: coupon.PROGRAM_ID, Data: cloned.Marshal()}

	putTokenAccount(l.state, addresses.Escrow, &token.Account{
		Mint:   mint,
		Owner:  addresses.Merchant,
		Amount: 1,
		State:  token.AccountStateInitialized,
	})
	return nil
}

// SetTokenBalance writes a token account at address.
func (l *Ledger) SetTokenBalance(address, owner, mint ed25519.PublicKey, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	putTokenAccount(l.state, address, &token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  token.AccountStateInitialized,
	})
}

// TokenBalance returns the amount held at a token account, or zero if it
// does not exist.
func (l *Ledger) TokenBalance(address ed25519.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := getTokenAccount(l.state, address)
	if !ok {
		return 0
	}
	return account.Amount
}

// CouponData returns the decoded coupon data account for mint.
func (l *Ledger) CouponData(mint ed25519.PublicKey) (*coupon.CouponDataAccount, error) {
	address, _, err := coupon.GetCouponDataAddress(&coupon.GetCouponDataAddressArgs{Mint: mint})
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.state.accounts[string(address)]
	if !ok {
		return nil, solana.ErrNoAccountInfo
	}

	var data coupon.CouponDataAccount
	if err := data.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	return &data, nil
}

//
// solana.Client
//

func (l *Ledger) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return solana.AccountInfo{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.state.accounts[string(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}

	info.Data = append([]byte{}, info.Data...)
	info.Lamports = l.state.lamports[string(account)]
	return info, nil
}

func (l *Ledger) GetBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.lamports[string(account)], nil
}

func (l *Ledger) GetLatestBlockhash(ctx context.Context) (solana.Blockhash, error) {
	if err := ctx.Err(); err != nil {
		return solana.Blockhash{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], l.slot)
	return solana.Blockhash(sha256.Sum256(seed[:])), nil
}

func (l *Ledger) GetSignatureStatuses(ctx context.Context, sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		if status, ok := l.statuses[sig]; ok {
			cloned := *status
			statuses[i] = &cloned
		}
	}
	return statuses, nil
}

func (l *Ledger) GetTokenAccountBalance(ctx context.Context, account ed25519.PublicKey, _ solana.Commitment) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tokenAccount, ok := getTokenAccount(l.state, account)
	if !ok {
		return 0, solana.ErrNoBalance
	}
	return tokenAccount.Amount, nil
}

func (l *Ledger) GetTokenAccountsByOwner(ctx context.Context, owner, mint ed25519.PublicKey) ([]ed25519.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var keys []string
	for key := range l.state.accounts {
		tokenAccount, ok := getTokenAccount(l.state, ed25519.PublicKey(key))
		if !ok {
			continue
		}
		if bytes.Equal(tokenAccount.Owner, owner) && bytes.Equal(tokenAccount.Mint, mint) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	res := make([]ed25519.PublicKey, len(keys))
	for i, key := range keys {
		res[i] = ed25519.PublicKey(key)
	}
	return res, nil
}

func (l *Ledger) GetTransaction(ctx context.Context, sig solana.Signature, _ solana.Commitment) (solana.ConfirmedTransaction, error) {
	if err := ctx.Err(); err != nil {
		return solana.ConfirmedTransaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	txn, ok := l.transactions[sig]
	if !ok {
		return solana.ConfirmedTransaction{}, solana.ErrSignatureNotFound
	}
	return txn, nil
}

// SubmitTransaction verifies signatures and executes every instruction against
// a staged copy of the state. Rejections are returned as preflight errors and
// leave the state untouched.
func (l *Ledger) SubmitTransaction(ctx context.Context, txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	sig := txn.Signature()

	if ctx.Err() != nil {
		return sig, solana.ErrSubmitTimeout
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.submitErr != nil {
		err := l.submitErr
		l.submitErr = nil
		return sig, err
	}

	if err := txn.VerifySignatures(); err != nil {
		return sig, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}

	if _, ok := l.statuses[sig]; ok {
		return sig, solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}

	l.submitted = append(l.submitted, txn)

	staged := l.state.clone()
	exec := &executor{
		txn:   txn,
		state: staged,
		now:   l.now(),
		logs:  []string{},
	}

	for i := range txn.Message.Instructions {
		if txErr := exec.execute(i); txErr != nil {
			return sig, txErr
		}
	}

	l.state = staged
	l.slot++

	status := &solana.SignatureStatus{
		Slot:               l.slot,
		ConfirmationStatus: "finalized",
	}
	if l.holdConfirmation {
		zero := 0
		status.Confirmations = &zero
		status.ConfirmationStatus = "processed"
	}
	l.statuses[sig] = status

	blockTime := exec.now
	l.transactions[sig] = solana.ConfirmedTransaction{
		Slot:        l.slot,
		BlockTime:   &blockTime,
		Transaction: txn,
		Meta: &solana.TransactionMeta{
			LogMessages: exec.logs,
		},
	}

	return sig, nil
}

func getTokenAccount(s *state, address ed25519.PublicKey) (*token.Account, bool) {
	info, ok := s.accounts[string(address)]
	if !ok || !bytes.Equal(info.Owner, token.ProgramKey) {
		return nil, false
	}

	var account token.Account
	if !account.Unmarshal(info.Data) {
		return nil, false
	}
	return &account, true
}

func putTokenAccount(s *state, address ed25519.PublicKey, account *token.Account) {
	s.accounts[string(address)] = solana.AccountInfo{
		Owner: token.ProgramKey,
		Data:  account.Marshal(),
	}
}

func encode(key ed25519.PublicKey) string {
	return base58.Encode(key)
}
