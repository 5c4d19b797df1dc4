// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff configures the delay between automatic reconnect attempts.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     bool
}

// DefaultBackoff returns 1s doubling up to 30s, with jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     true,
	}
}

// NextBackoffDelay returns the delay before attempt N (1-based). With
// jitter the delay is scaled by a random factor in [0.5, 1.5), and never
// exceeds Max.
func NextBackoffDelay(b Backoff, attempt int) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	if b.Multiplier < 1.0 {
		b.Multiplier = 1.0
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt-1))
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if b.Jitter {
		delay *= 0.5 + rand.Float64()
		if b.Max > 0 && delay > float64(b.Max) {
			delay = float64(b.Max)
		}
	}
	return time.Duration(delay)
}
