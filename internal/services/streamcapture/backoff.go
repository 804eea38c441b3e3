package streamcapture

import (
	"math"
	"math/rand"
	"time"

	"trackframe-worker-go/internal/config"
)

// BackoffPolicy returns the wait before open attempt number attempt (1-based)
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff waits the same time after every failure
type FixedBackoff time.Duration

func (f FixedBackoff) Delay(int) time.Duration {
	return time.Duration(f)
}

// JitterBackoff is exponential backoff clamped to [Min, Max] with +/- JitterPct
// percent of random jitter.
type JitterBackoff struct {
	Min       time.Duration
	Max       time.Duration
	JitterPct int
	Rand      func() float64 // [0,1), defaults to math/rand
}

func (j JitterBackoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Base delay with exponential backoff
	baseDelay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if attempt > 30 {
		baseDelay = j.Max
	}

	// Clamp to configured min/max
	if baseDelay < j.Min {
		baseDelay = j.Min
	}
	if j.Max > 0 && baseDelay > j.Max {
		baseDelay = j.Max
	}

	random := j.Rand
	if random == nil {
		random = rand.Float64
	}
	jitterPct := float64(j.JitterPct) / 100.0
	jitter := time.Duration(float64(baseDelay) * jitterPct * (random()*2 - 1))

	return baseDelay + jitter
}

// BackoffFromConfig selects the policy named by CAPTURE_BACKOFF
func BackoffFromConfig(cfg *config.Config) BackoffPolicy {
	if cfg.CaptureBackoff == "jitter" {
		return JitterBackoff{
			Min:       cfg.ReconnectBackoffMin,
			Max:       cfg.ReconnectBackoffMax,
			JitterPct: cfg.ReconnectJitterPct,
		}
	}
	return FixedBackoff(cfg.CaptureOpenRetry)
}
