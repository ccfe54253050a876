// Package backoff provides the delay schedules used between retries.
package backoff

import (
	"math"
	"time"
)

// Strategy returns how long to wait after the given failed attempt. Attempts
// start at 1.
type Strategy func(attempts uint) time.Duration

// Constant waits interval after every attempt.
func Constant(interval time.Duration) Strategy {
	return func(uint) time.Duration {
		return interval
	}
}

// Exponential waits baseDelay * base^(attempts-1), saturating at the largest
// time.Duration.
func Exponential(baseDelay time.Duration, base float64) Strategy {
	return func(attempts uint) time.Duration {
		delay := float64(baseDelay) * math.Pow(base, float64(attempts)-1)
		if math.IsNaN(delay) || delay >= math.MaxInt64 {
			return math.MaxInt64
		}
		return time.Duration(delay)
	}
}

// BinaryExponential doubles the delay after every attempt.
func BinaryExponential(baseDelay time.Duration) Strategy {
	return Exponential(baseDelay, 2)
}
