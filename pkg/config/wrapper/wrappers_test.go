package wrapper

import (
	"context"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/config"
	"github.com/code-payments/coupon-server/pkg/config/memory"
)

// testTyped walks a wrapper through default, override, error, cleared and
// unsupported source states.
func testTyped[T any](t *testing.T, wrapper config.Typed[T], mock *memory.Config, defaultValue, overridenValue T, overridenSource interface{}) {
	ctx := context.Background()

	// Return the default value when no override is set
	val, err := wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)
	assert.Equal(t, defaultValue, wrapper.Get(ctx))

	// The overriden value is returned when set
	mock.Set(overridenSource)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, overridenValue, val)
	assert.Equal(t, overridenValue, wrapper.Get(ctx))

	// The last observed config value is returned on error
	mock.Fail(assert.AnError)
	val, err = wrapper.GetSafe(ctx)
	require.Error(t, err)
	assert.Equal(t, overridenValue, val)
	assert.Equal(t, overridenValue, wrapper.Get(ctx))

	// The default value is returned when the override no longer has a value
	mock.Fail(nil)
	mock.Set(nil)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)
	assert.Equal(t, defaultValue, wrapper.Get(ctx))

	// Return an unsupported source value type
	mock.Set(struct{}{})
	val, err = wrapper.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.Equal(t, defaultValue, val)
}

func TestUint64Config(t *testing.T) {
	mock := memory.NewConfig(nil)
	testTyped(t, NewUint64Config(mock, 1), mock, uint64(1), uint64(math.MaxUint64), []byte(strconv.FormatUint(math.MaxUint64, 10)))

	mock = memory.NewConfig(nil)
	testTyped(t, NewUint64Config(mock, 1), mock, uint64(1), uint64(2), uint64(2))
}

func TestFloat64Config(t *testing.T) {
	mock := memory.NewConfig(nil)
	testTyped(t, NewFloat64Config(mock, 1.5), mock, 1.5, 2.25, []byte("2.25"))

	mock = memory.NewConfig(nil)
	testTyped(t, NewFloat64Config(mock, 1.5), mock, 1.5, 3.0, 3.0)
}

func TestStringConfig(t *testing.T) {
	mock := memory.NewConfig(nil)
	testTyped(t, NewStringConfig(mock, "devnet"), mock, "devnet", "mainnet-beta", []byte("mainnet-beta"))

	mock = memory.NewConfig(nil)
	testTyped(t, NewStringConfig(mock, "devnet"), mock, "devnet", "testnet", "testnet")
}

func TestDurationConfig(t *testing.T) {
	mock := memory.NewConfig(nil)
	testTyped(t, NewDurationConfig(mock, time.Minute), mock, time.Minute, 90*time.Second, []byte("1m30s"))

	mock = memory.NewConfig(nil)
	testTyped(t, NewDurationConfig(mock, time.Minute), mock, time.Minute, time.Hour, time.Hour)
}

func TestParseFailureKeepsLastValue(t *testing.T) {
	mock := memory.NewConfig([]byte("5s"))
	wrapper := NewDurationConfig(mock, time.Minute)
	assert.Equal(t, 5*time.Second, wrapper.Get(context.Background()))

	mock.Set([]byte("soon"))
	val, err := wrapper.GetSafe(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 5*time.Second, val)
}
