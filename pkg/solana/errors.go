package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
)

// TransactionErrorKey is the string key returned in a transaction error.
//
// Source: https://github.com/solana-labs/solana/blob/fc2bf2d3b669d1c6655ae48b0a05f470938f3676/sdk/src/transaction/mod.rs#L37
type TransactionErrorKey string

const (
	TransactionErrorAccountInUse            TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountNotFound         TransactionErrorKey = "AccountNotFound"
	TransactionErrorInsufficientFundsForFee TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorDuplicateSignature      TransactionErrorKey = "DuplicateSignature"
	TransactionErrorBlockhashNotFound       TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorInstructionError        TransactionErrorKey = "InstructionError"
	TransactionErrorSignatureFailure        TransactionErrorKey = "SignatureFailure"
	TransactionErrorSanitizeFailure         TransactionErrorKey = "SanitizeFailure"
)

// InstructionErrorKey is the string keys returned in an instruction error.
//
// Source: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/instruction.rs#L23
type InstructionErrorKey string

const (
	InstructionErrorInvalidArgument           InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidInstructionData    InstructionErrorKey = "InvalidInstructionData"
	InstructionErrorInvalidAccountData        InstructionErrorKey = "InvalidAccountData"
	InstructionErrorInsufficientFunds         InstructionErrorKey = "InsufficientFunds"
	InstructionErrorMissingRequiredSignature  InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorAccountAlreadyInitialized InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorUninitializedAccount      InstructionErrorKey = "UninitializedAccount"
	InstructionErrorNotEnoughAccountKeys      InstructionErrorKey = "NotEnoughAccountKeys"
	InstructionErrorCustom                    InstructionErrorKey = "Custom"
	InstructionErrorInvalidSeeds              InstructionErrorKey = "InvalidSeeds"
)

// CustomError is the numerical error returned by a non-system program.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", int(c))
}

// InstructionError indicates an instruction returned an error in a transaction.
type InstructionError struct {
	Index int
	Err   error
}

// parseInstructionError parses the [index, error] tuple of an InstructionError.
// The error is either a bare key or a single entry object such as
// {"Custom": 6000}.
func parseInstructionError(v interface{}) (InstructionError, error) {
	var e InstructionError

	tuple, ok := v.([]interface{})
	if !ok || len(tuple) != 2 {
		return e, errors.Errorf("malformed InstructionError tuple: %v", v)
	}

	index, err := parseJSONNumber(tuple[0])
	if err != nil {
		return e, err
	}
	e.Index = index

	switch detail := tuple[1].(type) {
	case string:
		e.Err = errors.New(detail)
	case map[string]interface{}:
		key, value, err := singleEntry(detail)
		if err != nil {
			e.Err = errors.New("unhandled InstructionError")
			return e, err
		}

		if key != string(InstructionErrorCustom) {
			e.Err = errors.New(key)
			break
		}

		if code, err := parseJSONNumber(value); err == nil {
			e.Err = CustomError(code)
		} else {
			e.Err = errors.New("unhandled CustomError")
		}
	}

	return e, nil
}

// singleEntry unpacks the one key object form the RPC uses for enum variants
// that carry data.
func singleEntry(m map[string]interface{}) (string, interface{}, error) {
	if len(m) != 1 {
		return "", nil, errors.Errorf("expected a single entry, got %d", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, nil
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) ErrorKey() InstructionErrorKey {
	if i.Err == nil {
		return ""
	}

	if i.CustomError() != nil {
		return InstructionErrorCustom
	}

	return InstructionErrorKey(i.Err.Error())
}

func (i InstructionError) CustomError() *CustomError {
	ce, ok := i.Err.(CustomError)
	if ok {
		return &ce
	}

	return nil
}

// TransactionError is a ledger-side rejection of a submitted transaction. Logs
// are populated when the rejection came from preflight simulation.
type TransactionError struct {
	transactionError error
	instructionError *InstructionError
	raw              interface{}
	logs             []string
}

// ParseRPCError parses the jsonrpc.RPCError returned by sendTransaction or
// simulateTransaction. A nil result with a nil error means the RPC error was
// not a transaction error (for example, a malformed request).
func ParseRPCError(err *jsonrpc.RPCError) (*TransactionError, error) {
	if err == nil {
		return nil, nil
	}

	data, ok := err.Data.(map[string]interface{})
	if !ok {
		return nil, errors.New("expected map type")
	}

	txErr, ok := data["err"]
	if !ok || txErr == nil {
		return nil, nil
	}

	parsed, parseErr := ParseTransactionError(txErr)
	if parsed != nil {
		parsed.logs = parseLogs(data["logs"])
	}
	return parsed, parseErr
}

// ParseTransactionError parses the "err" field returned by sendTransaction,
// simulateTransaction and getSignatureStatuses.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	unhandled := func(err error) (*TransactionError, error) {
		return &TransactionError{
			transactionError: errors.New("unhandled transaction error"),
			raw:              raw,
		}, err
	}

	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{transactionError: errors.New(t), raw: raw}, nil
	case map[string]interface{}:
		key, value, err := singleEntry(t)
		if err != nil {
			return unhandled(err)
		}

		parsed := &TransactionError{transactionError: errors.New(key), raw: raw}
		if key != string(TransactionErrorInstructionError) {
			return parsed, nil
		}

		instructionErr, err := parseInstructionError(value)
		if err != nil {
			return unhandled(errors.Wrap(err, "failed to parse instruction error"))
		}
		parsed.instructionError = &instructionErr
		return parsed, nil
	default:
		return nil, errors.New("unhandled error type")
	}
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{
		transactionError: errors.New(string(key)),
		raw:              string(key),
	}
}

// NewCustomInstructionError builds the error a program produces when
// instruction index fails with the custom code.
func NewCustomInstructionError(index int, code int, logs ...string) *TransactionError {
	return &TransactionError{
		transactionError: errors.New(string(TransactionErrorInstructionError)),
		instructionError: &InstructionError{Index: index, Err: CustomError(code)},
		raw: map[string]interface{}{
			string(TransactionErrorInstructionError): []interface{}{
				index,
				map[string]interface{}{string(InstructionErrorCustom): code},
			},
		},
		logs: logs,
	}
}

func (t TransactionError) Error() string {
	if t.instructionError != nil {
		return t.instructionError.Error()
	}

	if t.transactionError != nil {
		return t.transactionError.Error()
	}

	return ""
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	if t.transactionError == nil {
		return ""
	}

	return TransactionErrorKey(t.transactionError.Error())
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instructionError
}

// Logs returns the program logs captured during simulation, if any.
func (t TransactionError) Logs() []string {
	return t.logs
}

func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

func parseLogs(v interface{}) []string {
	values, ok := v.([]interface{})
	if !ok {
		return nil
	}

	logs := make([]string, 0, len(values))
	for _, value := range values {
		if s, ok := value.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}

// parseJSONNumber accepts the numeric forms a decoded tuple entry can take,
// depending on whether the decoder used UseNumber.
func parseJSONNumber(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, errors.Errorf("non int64 value in InstructionError tuple: %v", v)
		}
		return int(parsed), nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errors.Errorf("non numeric value in InstructionError tuple: %v", v)
		}
		return int(parsed), nil
	default:
		return 0, errors.Errorf("non numeric value in InstructionError tuple: %v", v)
	}
}
