package reconcile

import "time"

// backoffDelay returns base * 2^attempt capped at max. Attempt is
// zero-based.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
