package worker

import (
	"math"
	"time"
)

// RetryPolicy spaces out repeated publish attempts. The wait grows by
// BackoffFactor per failed attempt and stops growing at MaxDelay.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy gives a publish five tries within about half a minute,
// enough to ride out a Sheets API rate limit window.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if r.MaxRetries <= 0 {
		r.MaxRetries = def.MaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = def.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = def.MaxDelay
	}
	if r.BackoffFactor < 1 {
		r.BackoffFactor = def.BackoffFactor
	}
	return r
}

// Exhausted reports whether a task that has failed attempts times is done for.
func (r RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= r.withDefaults().MaxRetries
}

// NextDelay is the wait after failed attempt n, counted from 1.
func (r RetryPolicy) NextDelay(n int) time.Duration {
	r = r.withDefaults()
	if n < 1 {
		n = 1
	}
	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(n-1))
	if delay > float64(r.MaxDelay) {
		return r.MaxDelay
	}
	return time.Duration(delay)
}
