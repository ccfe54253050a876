package solana

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"
)

func TestParseTransactionError(t *testing.T) {
	d := json.NewDecoder(bytes.NewBufferString(`{"InstructionError":[2,{"Custom":6002}]}`))

	var raw interface{}
	require.NoError(t, d.Decode(&raw))

	e, err := ParseTransactionError(raw)
	require.NoError(t, err)

	assert.Equal(t, TransactionErrorInstructionError, e.ErrorKey())
	require.NotNil(t, e.InstructionError())
	assert.Equal(t, 2, e.InstructionError().Index)
	assert.Equal(t, InstructionErrorCustom, e.InstructionError().ErrorKey())
	require.NotNil(t, e.InstructionError().CustomError())
	assert.Equal(t, CustomError(6002), *e.InstructionError().CustomError())

	d = json.NewDecoder(bytes.NewBufferString(`{"InstructionError":[0,"InvalidArgument"]}`))
	require.NoError(t, d.Decode(&raw))

	e, err = ParseTransactionError(raw)
	require.NoError(t, err)

	assert.Equal(t, TransactionErrorInstructionError, e.ErrorKey())
	require.NotNil(t, e.InstructionError())
	assert.Equal(t, 0, e.InstructionError().Index)
	assert.Equal(t, InstructionErrorInvalidArgument, e.InstructionError().ErrorKey())

	d = json.NewDecoder(bytes.NewBufferString(`"DuplicateSignature"`))
	require.NoError(t, d.Decode(&raw))

	e, err = ParseTransactionError(raw)
	require.NoError(t, err)

	assert.Equal(t, TransactionErrorDuplicateSignature, e.ErrorKey())
	assert.Nil(t, e.InstructionError())
}

func TestParseRPCError_WithLogs(t *testing.T) {
	rpcErr := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed",
		Data: map[string]interface{}{
			"err": map[string]interface{}{
				"InstructionError": []interface{}{0.0, map[string]interface{}{"Custom": 6000.0}},
			},
			"logs": []interface{}{
				"Program RECcAGSNVfAdGeTsR92jMUM2DBuedSqpAn9W8pNrLi7 invoke [1]",
				"Program log: AnchorError occurred. Error Code: CouponExpired.",
			},
		},
	}

	e, err := ParseRPCError(rpcErr)
	require.NoError(t, err)
	require.NotNil(t, e)
	require.NotNil(t, e.InstructionError().CustomError())
	assert.Equal(t, CustomError(6000), *e.InstructionError().CustomError())
	assert.Len(t, e.Logs(), 2)

	e, err = ParseRPCError(&jsonrpc.RPCError{Code: -32602, Data: map[string]interface{}{}})
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestNewCustomInstructionError(t *testing.T) {
	d := json.NewDecoder(bytes.NewBufferString(`{"InstructionError":[1,{"Custom":6011}]}`))
	var expected interface{}
	require.NoError(t, d.Decode(&expected))

	e := NewCustomInstructionError(1, 6011)
	actual, err := e.JSONString()
	require.NoError(t, err)

	var decoded interface{}
	require.NoError(t, json.Unmarshal([]byte(actual), &decoded))

	expectedJSON, _ := json.Marshal(expected)
	decodedJSON, _ := json.Marshal(decoded)
	assert.JSONEq(t, string(expectedJSON), string(decodedJSON))
	assert.Equal(t, CustomError(6011), *e.InstructionError().CustomError())
}

func TestNewTransactionError(t *testing.T) {
	e := NewTransactionError(TransactionErrorBlockhashNotFound)
	assert.Equal(t, TransactionErrorBlockhashNotFound, e.ErrorKey())
	assert.Equal(t, "BlockhashNotFound", e.Error())
	assert.Nil(t, e.InstructionError())
}

func TestParseJSONNumber(t *testing.T) {
	tc := []interface{}{
		"1",
		1.0,
		1,
		json.Number("1"),
	}
	for i, c := range tc {
		v, err := parseJSONNumber(c)
		assert.NoError(t, err)
		assert.Equal(t, 1, v, i)
	}
}

func TestParseTransactionError_Malformed(t *testing.T) {
	for _, raw := range []interface{}{
		map[string]interface{}{"AccountInUse": nil, "AccountNotFound": nil},
		map[string]interface{}{"InstructionError": []interface{}{0.0}},
		map[string]interface{}{"InstructionError": []interface{}{"first", "InvalidArgument"}},
	} {
		e, err := ParseTransactionError(raw)
		assert.Error(t, err)
		require.NotNil(t, e)
		assert.Equal(t, TransactionErrorKey("unhandled transaction error"), e.ErrorKey())
	}

	e, err := ParseTransactionError(nil)
	assert.NoError(t, err)
	assert.Nil(t, e)

	_, err = ParseTransactionError(42)
	assert.Error(t, err)
}
