package poller

import (
	"math"
	"math/rand"
	"time"
)

// nextBackoff computes the retry delay after a failed poll:
// delay = min(cap, base * 2^failures) * random(0.5, 1.5).
// failures is the consecutive-failure count after this failure: with
// base=1s, cap=300s, 5 consecutive failures gives 1*2^5=32s, so delay
// lands in [16, 48)s.
func nextBackoff(base, backoffCap time.Duration, failures int, rng *rand.Rand) time.Duration {
	if failures < 1 {
		failures = 1
	}
	raw := float64(base) * math.Pow(2, float64(failures))
	if capF := float64(backoffCap); raw > capF {
		raw = capF
	}
	jitter := 0.5 + rng.Float64() // [0.5, 1.5)
	return time.Duration(raw * jitter)
}
