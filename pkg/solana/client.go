package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/coupon-server/pkg/retry"
	"github.com/code-payments/coupon-server/pkg/retry/backoff"
)

const (
	ticksPerSec  = 160
	ticksPerSlot = 64
	slotsPerSec  = ticksPerSec / ticksPerSlot

	// PollRate is the rate at which signature statuses are polled at.
	PollRate = (time.Second / slotsPerSec) / 2

	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	invalidParamCode = -32602
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

// CommitmentFromString maps a configured commitment name onto a Commitment.
func CommitmentFromString(value string) (Commitment, error) {
	switch value {
	case confirmationStatusProcessed:
		return CommitmentProcessed, nil
	case confirmationStatusConfirmed:
		return CommitmentConfirmed, nil
	case confirmationStatusFinalized:
		return CommitmentFinalized, nil
	default:
		return Commitment{}, errors.Errorf("unknown commitment: %s", value)
	}
}

var (
	ErrNoAccountInfo     = errors.New("no account info")
	ErrSignatureNotFound = errors.New("signature not found")
	ErrNoBalance         = errors.New("no balance")

	// ErrSubmitTimeout and ErrConfirmationTimeout both mean the transaction may
	// or may not have landed. Callers must re-check ledger state.
	ErrSubmitTimeout       = errors.New("timed out submitting transaction")
	ErrConfirmationTimeout = errors.New("timed out awaiting confirmation")
)

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Confirmations will be nil if the transaction has been rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	if s.Finalized() {
		return true
	}

	if s.ConfirmationStatus == confirmationStatusConfirmed {
		return true
	}

	return s.Confirmations != nil && *s.Confirmations >= 1
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

// Reached reports whether the status satisfies the commitment level.
func (s SignatureStatus) Reached(commitment Commitment) bool {
	switch commitment {
	case CommitmentFinalized:
		return s.Finalized()
	case CommitmentConfirmed:
		return s.Confirmed()
	default:
		return true
	}
}

type TransactionMeta struct {
	Err          interface{} `json:"err"`
	Fee          uint64      `json:"fee"`
	PreBalances  []uint64    `json:"preBalances"`
	PostBalances []uint64    `json:"postBalances"`
	LogMessages  []string    `json:"logMessages"`
}

type ConfirmedTransaction struct {
	Slot        uint64
	BlockTime   *time.Time
	Transaction Transaction
	Err         *TransactionError
	Meta        *TransactionMeta
}

// Client provides the subset of the Solana JSON RPC API used to build, submit
// and confirm coupon transactions, and to check token ownership.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error)
	GetBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (Blockhash, error)
	GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error)
	GetTokenAccountBalance(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (uint64, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, mint ed25519.PublicKey) ([]ed25519.PublicKey, error)
	GetTransaction(ctx context.Context, sig Signature, commitment Commitment) (ConfirmedTransaction, error)

	// SubmitTransaction sends the transaction with preflight simulation. It is
	// never retried. A *TransactionError is returned when the ledger rejects it.
	SubmitTransaction(ctx context.Context, txn Transaction, commitment Commitment) (Signature, error)
}

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

type rpcResponse struct {
	Context struct {
		Slot int64 `json:"slot"`
	} `json:"context"`
	Value interface{} `json:"value"`
}

type client struct {
	log    *logrus.Entry
	client jsonrpc.RPCClient

	blockMu   sync.RWMutex
	blockhash Blockhash
	lastWrite time.Time
}

// New returns a client using the specified endpoint.
func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, nil)
}

// NewWithRPCOptions returns a client configured with the specified RPC options.
func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts) Client {
	return &client{
		log:    logrus.StandardLogger().WithField("type", "solana/client"),
		client: jsonrpc.NewClientWithOpts(endpoint, opts),
	}
}

// call performs an idempotent read, retrying rate limit and service errors
// until ctx is done.
func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	_, err := retry.Retry(
		func() error {
			return c.callOnce(ctx, out, method, params...)
		},
		retry.Context(ctx),
		retry.RetriableErrors(errRateLimited, errServiceError),
		retry.Limit(3),
		retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
	)
	return err
}

// callOnce issues a single request. The underlying RPC client has no context
// support, so the request runs on its own goroutine and is abandoned if ctx
// finishes first.
func (c *client) callOnce(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	type callResult struct {
		raw json.RawMessage
		err error
	}

	resultCh := make(chan callResult, 1)
	go func() {
		var raw json.RawMessage
		err := c.client.CallFor(&raw, method, params...)
		resultCh <- callResult{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return c.handleRpcError(method, res.err)
		}
		if len(res.raw) == 0 {
			return nil
		}
		return json.Unmarshal(res.raw, out)
	}
}

func (c *client) handleRpcError(method string, err error) error {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return err
	}
	if rpcErr.Code == 429 {
		c.log.WithField("method", method).Warn("rate limited")
		return errRateLimited
	}
	if rpcErr.Code >= 500 || rpcErr.Code == rpcNodeUnhealthyCode {
		return errServiceError
	}

	return err
}

func (c *client) GetLatestBlockhash(ctx context.Context) (hash Blockhash, err error) {
	// Randomize the refresh window so concurrent builders don't all refresh
	// on the same tick.
	window := time.Duration(float64(2*time.Second) * (0.8 + rand.Float64()))

	c.blockMu.RLock()
	if time.Since(c.lastWrite) < window {
		hash = c.blockhash
	}
	c.blockMu.RUnlock()

	if hash != (Blockhash{}) {
		return hash, nil
	}

	type response struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}

	// note: the commitment has to be wrapped in an []interface{}, otherwise the
	//       rpc client sends it as a named parameter object.
	var resp response
	if err := c.call(ctx, &resp, "getLatestBlockhash", []interface{}{CommitmentConfirmed}); err != nil {
		return hash, errors.Wrapf(err, "getLatestBlockhash() failed to send request")
	}

	hashBytes, err := base58.Decode(resp.Value.Blockhash)
	if err != nil {
		return hash, errors.Wrap(err, "invalid base58 encoded hash in response")
	}

	copy(hash[:], hashBytes)

	c.blockMu.Lock()
	c.blockhash = hash
	c.lastWrite = time.Now()
	c.blockMu.Unlock()

	return hash, nil
}

func (c *client) GetTransaction(ctx context.Context, sig Signature, commitment Commitment) (ConfirmedTransaction, error) {
	type rpcResponse struct {
		Slot        uint64           `json:"slot"`
		BlockTime   *int64           `json:"blockTime"`
		Transaction []string         `json:"transaction"` // [val, encoding]
		Meta        *TransactionMeta `json:"meta"`
	}

	config := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}

	var resp *rpcResponse
	if err := c.call(ctx, &resp, "getTransaction", base58.Encode(sig[:]), config); err != nil {
		return ConfirmedTransaction{}, err
	}

	if resp == nil || len(resp.Transaction) == 0 {
		return ConfirmedTransaction{}, ErrSignatureNotFound
	}

	txn := ConfirmedTransaction{
		Slot: resp.Slot,
		Meta: resp.Meta,
	}

	if resp.BlockTime != nil {
		txTime := time.Unix(*resp.BlockTime, 0)
		txn.BlockTime = &txTime
	}

	rawTxn, err := base64.StdEncoding.DecodeString(resp.Transaction[0])
	if err != nil {
		return txn, errors.Wrap(err, "failed to decode transaction")
	}
	if err := txn.Transaction.Unmarshal(rawTxn); err != nil {
		return txn, errors.Wrap(err, "failed to unmarshal transaction")
	}

	if resp.Meta != nil {
		txn.Err, err = ParseTransactionError(resp.Meta.Err)
		if err != nil {
			return txn, errors.Wrap(err, "failed to parse transaction result")
		}
	}

	return txn, nil
}

func (c *client) GetBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	var resp rpcResponse
	if err := c.call(ctx, &resp, "getBalance", base58.Encode(account[:]), CommitmentConfirmed); err != nil {
		jsonRPCErr, ok := errors.Cause(err).(*jsonrpc.RPCError)
		if ok && jsonRPCErr.Code == invalidParamCode {
			return 0, ErrNoBalance
		}

		return 0, errors.Wrapf(err, "getBalance() failed to send request")
	}

	if balance, ok := resp.Value.(float64); ok {
		return uint64(balance), nil
	}

	return 0, errors.Errorf("invalid value in response")
}

func (c *client) GetTokenAccountBalance(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (uint64, error) {
	var resp struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	if err := c.call(ctx, &resp, "getTokenAccountBalance", base58.Encode(account[:]), commitment); err != nil {
		jsonRPCErr, ok := errors.Cause(err).(*jsonrpc.RPCError)
		if ok && jsonRPCErr.Code == invalidParamCode {
			return 0, ErrNoBalance
		}

		return 0, errors.Wrapf(err, "getTokenAccountBalance() failed to send request")
	}

	amount, err := strconv.ParseUint(resp.Value.Amount, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid value in response")
	}

	return amount, nil
}

func (c *client) SubmitTransaction(ctx context.Context, txn Transaction, commitment Commitment) (Signature, error) {
	sig := txn.Signature()

	config := struct {
		Encoding            string `json:"encoding"`
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
	}{
		Encoding:            "base64",
		SkipPreflight:       false,
		PreflightCommitment: commitment.Commitment,
	}

	log := c.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": sig.String(),
	})

	var sigStr string
	err := c.callOnce(ctx, &sigStr, "sendTransaction", txn.ToBase64(), config)
	if err == nil {
		return sig, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("submission timed out, outcome unknown")
		return sig, ErrSubmitTimeout
	}

	jsonRPCErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return sig, errors.Wrap(err, "sendTransaction() failed to send request")
	}

	txResult, parseErr := ParseRPCError(jsonRPCErr)
	if parseErr != nil {
		log.WithError(parseErr).Warn("failed to parse rpc error")
		return sig, errors.Wrap(err, "sendTransaction() failed")
	}
	if txResult == nil {
		return sig, errors.Wrap(err, "sendTransaction() failed")
	}

	log.WithError(txResult).Debug("transaction rejected")
	return sig, txResult
}

func (c *client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (accountInfo AccountInfo, err error) {
	type rpcResponse struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	rpcConfig := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}

	var resp rpcResponse
	if err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(account[:]), rpcConfig); err != nil {
		return accountInfo, errors.Wrap(err, "getAccountInfo() failed to send request")
	}

	if resp.Value == nil {
		return accountInfo, ErrNoAccountInfo
	}

	accountInfo.Owner, err = base58.Decode(resp.Value.Owner)
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base58 encoded owner")
	}

	if len(resp.Value.Data) > 0 {
		accountInfo.Data, err = base64.StdEncoding.DecodeString(resp.Value.Data[0])
		if err != nil {
			return accountInfo, errors.Wrap(err, "invalid base64 encoded data")
		}
	}

	accountInfo.Lamports = resp.Value.Lamports
	accountInfo.Executable = resp.Value.Executable

	return accountInfo, nil
}

func (c *client) GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error) {
	b58Sigs := make([]string, len(sigs))
	for i := range sigs {
		b58Sigs[i] = base58.Encode(sigs[i][:])
	}

	req := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	type signatureStatus struct {
		Slot               uint64          `json:"slot"`
		Confirmations      *int            `json:"confirmations"`
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	}

	type rpcResp struct {
		Value []*signatureStatus `json:"value"`
	}

	var resp rpcResp
	if err := c.call(ctx, &resp, "getSignatureStatuses", b58Sigs, req); err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil || i >= len(statuses) {
			continue
		}

		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}

		if len(v.Err) > 0 && !bytes.Equal(v.Err, []byte("null")) {
			var txError interface{}
			if err := json.NewDecoder(bytes.NewBuffer(v.Err)).Decode(&txError); err != nil {
				return nil, errors.Wrap(err, "failed to parse transaction result")
			}

			var err error
			statuses[i].ErrorResult, err = ParseTransactionError(txError)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse transaction result")
			}
		}
	}

	return statuses, nil
}

func (c *client) GetTokenAccountsByOwner(ctx context.Context, owner, mint ed25519.PublicKey) ([]ed25519.PublicKey, error) {
	mintObject := struct {
		Mint string `json:"mint"`
	}{
		Mint: base58.Encode(mint),
	}
	config := struct {
		Encoding   string `json:"encoding"`
		Commitment string `json:"commitment"`
	}{
		Encoding:   "base64",
		Commitment: confirmationStatusConfirmed,
	}

	var resp struct {
		Value []struct {
			PubKey string `json:"pubkey"`
		} `json:"value"`
	}
	if err := c.call(ctx, &resp, "getTokenAccountsByOwner", base58.Encode(owner), mintObject, config); err != nil {
		return nil, err
	}

	keys := make([]ed25519.PublicKey, len(resp.Value))
	for i := range resp.Value {
		var err error
		keys[i], err = base58.Decode(resp.Value[i].PubKey)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode token account public key")
		}
	}

	return keys, nil
}

// AwaitConfirmation polls the signature status until the commitment level is
// reached, the transaction fails, or ctx is done. Running out of time returns
// ErrConfirmationTimeout, which does not mean the transaction failed.
func AwaitConfirmation(ctx context.Context, c Client, sig Signature, commitment Commitment, pollRate time.Duration) (*SignatureStatus, error) {
	if pollRate <= 0 {
		pollRate = PollRate
	}

	ticker := time.NewTicker(pollRate)
	defer ticker.Stop()

	for {
		statuses, err := c.GetSignatureStatuses(ctx, []Signature{sig})
		switch {
		case err == nil && len(statuses) > 0 && statuses[0] != nil:
			status := statuses[0]
			if status.ErrorResult != nil {
				return status, status.ErrorResult
			}
			if status.Reached(commitment) {
				return status, nil
			}
		case err != nil && ctx.Err() == nil:
			logrus.StandardLogger().WithField("type", "solana/client").
				WithError(err).
				WithField("signature", sig.String()).
				Debug("failure polling signature status")
		}

		select {
		case <-ctx.Done():
			return nil, ErrConfirmationTimeout
		case <-ticker.C:
		}
	}
}
