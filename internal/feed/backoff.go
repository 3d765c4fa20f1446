package feed

import "time"

const (
	// DefaultBaseDelay is the first reconnect delay after a failure.
	DefaultBaseDelay = 1 * time.Second

	// DefaultMaxDelay caps the exponential reconnect backoff.
	DefaultMaxDelay = 30 * time.Second
)

// Backoff is the reconnection delay policy: the delay doubles on each
// consecutive failure up to Max and resets to Base after a success.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Next returns the delay to wait before the following attempt, given the
// previous delay and whether the last connection counted as a success
// (stayed up long enough to process at least one message).
func (b Backoff) Next(prev time.Duration, success bool) time.Duration {
	base := b.Base
	if base <= 0 {
		base = DefaultBaseDelay
	}
	max := b.Max
	if max <= 0 {
		max = DefaultMaxDelay
	}

	if success {
		return base
	}
	if prev < base {
		return base
	}
	next := prev * 2
	if next > max {
		next = max
	}
	return next
}
