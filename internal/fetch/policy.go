package fetch

import (
	"math"
	"math/rand"
	"time"
)

// Policy configures retry behavior.
type Policy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // delay before the second attempt; doubles each retry
	MaxDelay    time.Duration // cap applied after jitter
	Jitter      float64       // fraction of the computed delay added at random, 0 disables
}

// DefaultPolicy returns the retry defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    8 * time.Second,
		Jitter:      0.1,
	}
}

// Backoff computes the delay that follows failed attempt number attempt
// (0-based): base * 2^attempt, capped at max. It is pure; jitter is applied
// separately by Policy.Delay.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		if (max > 0 && delay >= max) || delay > math.MaxInt64/2 {
			break
		}
		delay *= 2
	}
	if max > 0 && delay > max {
		delay = max
	}
	return delay
}

// Delay returns the wait after failed attempt number attempt, including
// jitter drawn from rnd (a value in [0,1)), capped at MaxDelay.
func (p Policy) Delay(attempt int, rnd float64) time.Duration {
	delay := Backoff(attempt, p.BaseDelay, p.MaxDelay)
	if p.Jitter > 0 && rnd > 0 {
		delay += time.Duration(float64(delay) * p.Jitter * rnd)
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay < 0 {
		p.MaxDelay = 0
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

func defaultRand() float64 {
	return rand.Float64()
}
