package wrapper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/coupon-server/pkg/config"
)

// ErrUnsuportedConversion indicates the wrapper does not implement conversion from the source type
var ErrUnsuportedConversion = errors.New("config: wrapper conversion from source type not implemented")

// converter maps a raw source value onto T. The bool result is false when the
// source type is not supported.
type converter[T any] func(raw interface{}) (T, bool, error)

// typedConfig falls back to a default when the source has no value, and to
// the last observed value when the source fails.
type typedConfig[T any] struct {
	override     config.Config
	defaultValue T
	convert      converter[T]

	stateMu   sync.RWMutex
	lastValue T
}

func newTypedConfig[T any](override config.Config, defaultValue T, convert converter[T]) *typedConfig[T] {
	return &typedConfig[T]{
		override:     override,
		defaultValue: defaultValue,
		convert:      convert,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *typedConfig[T]) GetSafe(ctx context.Context) (T, error) {
	raw, err := c.override.Get(ctx)

	c.stateMu.RLock()
	lastValue := c.lastValue
	c.stateMu.RUnlock()

	if err == config.ErrNoValue {
		c.setLast(c.defaultValue)
		return c.defaultValue, nil
	} else if err != nil {
		return lastValue, err
	}

	newValue, ok, err := c.convert(raw)
	if !ok {
		return lastValue, ErrUnsuportedConversion
	}
	if err != nil {
		return lastValue, err
	}

	c.setLast(newValue)
	return newValue, nil
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *typedConfig[T]) Get(ctx context.Context) T {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *typedConfig[T]) Shutdown() {
	c.override.Shutdown()
}

func (c *typedConfig[T]) setLast(value T) {
	c.stateMu.Lock()
	c.lastValue = value
	c.stateMu.Unlock()
}

// NewUint64Config returns a new uint64 config utility wrapper
func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	return newTypedConfig(override, defaultValue, func(raw interface{}) (uint64, bool, error) {
		switch typed := raw.(type) {
		case []byte:
			v, err := strconv.ParseUint(string(typed), 10, 64)
			return v, true, err
		case uint64:
			return typed, true, nil
		case uint:
			return uint64(typed), true, nil
		case int:
			if typed < 0 {
				return 0, true, errors.New("config: negative value for uint64")
			}
			return uint64(typed), true, nil
		}
		return 0, false, nil
	})
}

// NewFloat64Config returns a new float64 config utility wrapper
func NewFloat64Config(override config.Config, defaultValue float64) config.Float64 {
	return newTypedConfig(override, defaultValue, func(raw interface{}) (float64, bool, error) {
		switch typed := raw.(type) {
		case []byte:
			v, err := strconv.ParseFloat(string(typed), 64)
			return v, true, err
		case float64:
			return typed, true, nil
		}
		return 0, false, nil
	})
}

// NewStringConfig returns a new string config utility wrapper
func NewStringConfig(override config.Config, defaultValue string) config.String {
	return newTypedConfig(override, defaultValue, func(raw interface{}) (string, bool, error) {
		switch typed := raw.(type) {
		case []byte:
			return string(typed), true, nil
		case string:
			return typed, true, nil
		}
		return "", false, nil
	})
}

// NewDurationConfig returns a new time.Duration config utility wrapper. Raw
// values are parsed with time.ParseDuration.
func NewDurationConfig(override config.Config, defaultValue time.Duration) config.Duration {
	return newTypedConfig(override, defaultValue, func(raw interface{}) (time.Duration, bool, error) {
		switch typed := raw.(type) {
		case []byte:
			v, err := time.ParseDuration(string(typed))
			return v, true, err
		case time.Duration:
			return typed, true, nil
		}
		return 0, false, nil
	})
}
