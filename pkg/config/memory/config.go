// Package memory provides a settable config.Config for tests.
package memory

import (
	"context"
	"sync"

	"github.com/code-payments/coupon-server/pkg/config"
)

type Config struct {
	mu       sync.RWMutex
	value    interface{}
	err      error
	shutdown bool
}

// NewConfig returns a Config holding value. Pass nil for an unset config.
func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

// Get implements config.Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.err != nil:
		return nil, c.err
	case c.value == nil:
		return nil, config.ErrNoValue
	default:
		return c.value, nil
	}
}

// Shutdown implements config.Config.Shutdown
func (c *Config) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
}

// Set replaces the value returned by Get. Setting nil unsets it.
func (c *Config) Set(value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
}

// Fail makes Get return err until Fail is called again with nil.
func (c *Config) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}
