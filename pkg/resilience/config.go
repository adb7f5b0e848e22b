package resilience

import "time"

// Config tunes the retry and circuit-breaker behavior of an Executor.
type Config struct {
	// Retry budget for transient failures. Attempts counts the first call,
	// so Attempts=2 means at-most-once retry.
	RetryAttempts       int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	// Circuit breaker thresholds.
	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig returns the retry/breaker defaults used for the embedding
// and cross-encoder services: one retry with short backoff, breaker trips at
// a 60% failure ratio.
func DefaultConfig() Config {
	return Config{
		RetryAttempts:           2,
		RetryInitialBackoff:     200 * time.Millisecond,
		RetryMaxBackoff:         2 * time.Second,
		RetryMultiplier:         2.0,
		BreakerEnabled:          true,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.6,
		BreakerOpenTimeout:      15 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func (c Config) normalize() Config {
	if c.RetryAttempts < 1 {
		c.RetryAttempts = 1
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = 200 * time.Millisecond
	}
	if c.RetryMaxBackoff < c.RetryInitialBackoff {
		c.RetryMaxBackoff = c.RetryInitialBackoff
	}
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = 2.0
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = 5
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = 0.6
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = 15 * time.Second
	}
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = 1
	}
	return c
}
