package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/code-payments/coupon-server/pkg/retry/backoff"
)

// Strategy decides whether a failed action gets another attempt. attempts
// counts the executions so far, including the one that returned err.
// Strategies may sleep.
type Strategy func(attempts uint, err error) bool

// Limit allows at most maxAttempts executions in total.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors matching one of retriable via errors.Is.
func RetriableErrors(retriable ...error) Strategy {
	return func(_ uint, err error) bool {
		for _, target := range retriable {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// Context stops retrying once ctx is done. Place it before any backoff so a
// cancelled caller doesn't sleep.
func Context(ctx context.Context) Strategy {
	return func(uint, error) bool {
		return ctx.Err() == nil
	}
}

// Backoff sleeps for the strategy's delay, capped at maxBackoff.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, _ error) bool {
		sleeperImpl.Sleep(capped(strategy(attempts), maxBackoff))
		return true
	}
}

// BackoffWithJitter is Backoff with the capped delay scaled by a random
// factor in [1-jitter, 1+jitter].
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := capped(strategy(attempts), maxBackoff)
		factor := 1 + jitter*(2*rand.Float64()-1)
		sleeperImpl.Sleep(time.Duration(float64(delay) * factor))
		return true
	}
}

func capped(delay, max time.Duration) time.Duration {
	if delay > max {
		return max
	}
	return delay
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (r *realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = &realSleeper{}
