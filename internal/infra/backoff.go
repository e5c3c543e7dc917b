package infra

import (
	"time"
)

// Backoff is an exponential schedule: Base * 2^n, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff is used for reconnects to the wallet daemon and the
// quoting service.
var DefaultBackoff = Backoff{Base: time.Second, Max: 60 * time.Second}

// Delay returns the wait before retry n. Negative n yields Base.
func (b Backoff) Delay(n int) time.Duration {
	if n < 0 {
		return b.Base
	}
	// 2^30 seconds is far past any cap
	if n > 30 {
		return b.Max
	}
	d := b.Base * time.Duration(1<<n)
	if d > b.Max || d <= 0 {
		return b.Max
	}
	return d
}

// CalculateBackoff returns DefaultBackoff.Delay(retryCount).
func CalculateBackoff(retryCount int) time.Duration {
	return DefaultBackoff.Delay(retryCount)
}
