package transport

import "time"

// Backoff returns the delay before reconnect attempt N (1-based). Growth is linear in
// the attempt number, capped at maxDelay when maxDelay > 0.
func Backoff(base, maxDelay time.Duration, attempt int) time.Duration {
	if attempt < 1 || base <= 0 {
		return 0
	}
	delay := base * time.Duration(attempt)
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
