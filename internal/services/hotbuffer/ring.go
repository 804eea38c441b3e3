package hotbuffer

import (
	"errors"
	"sync"
	"time"

	"trackframe-worker-go/internal/models"
)

var ErrInvalidLimits = errors.New("hotbuffer: max frames and max bytes must be positive")

// Ring keeps the most recent encoded frames of one camera, bounded by frame
// count and total bytes. The oldest frames are evicted after every append
// until both limits hold. Safe for one writer and many readers.
type Ring struct {
	mu        sync.RWMutex
	frames    []models.BufferedFrame
	bytes     int64
	maxFrames int
	maxBytes  int64
	now       func() time.Time
}

type Option func(*Ring)

// WithClock sets the clock Latest measures its window against
func WithClock(now func() time.Time) Option {
	return func(r *Ring) {
		r.now = now
	}
}

func NewRing(maxFrames int, maxBytes int64, opts ...Option) (*Ring, error) {
	if maxFrames <= 0 || maxBytes <= 0 {
		return nil, ErrInvalidLimits
	}
	r := &Ring{
		frames:    make([]models.BufferedFrame, 0, maxFrames),
		maxFrames: maxFrames,
		maxBytes:  maxBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Append stores f and evicts from the oldest end while a limit is exceeded.
// A frame larger than maxBytes evicts everything, itself included.
func (r *Ring) Append(f models.BufferedFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames = append(r.frames, f)
	r.bytes += f.Size()

	drop := 0
	for drop < len(r.frames) && (len(r.frames)-drop > r.maxFrames || r.bytes > r.maxBytes) {
		r.bytes -= r.frames[drop].Size()
		r.frames[drop] = models.BufferedFrame{}
		drop++
	}
	if drop > 0 {
		r.frames = append(r.frames[:0], r.frames[drop:]...)
	}
}

// Latest returns the frames captured within window of now, oldest first.
// A non-positive window returns nothing.
func (r *Ring) Latest(window time.Duration) []models.BufferedFrame {
	if window <= 0 {
		return nil
	}
	cutoff := r.now().Add(-window)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.BufferedFrame, 0, len(r.frames))
	for _, f := range r.frames {
		if !f.Timestamp.Before(cutoff) {
			out = append(out, f)
		}
	}
	return out
}

// SearchFrame returns the retained frame nearest to t. Equidistant frames
// resolve to the older one. The scan does not assume ordered timestamps.
func (r *Ring) SearchFrame(t time.Time) (models.BufferedFrame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.frames) == 0 {
		return models.BufferedFrame{}, false
	}

	best := 0
	bestDiff := absDuration(r.frames[0].Timestamp.Sub(t))
	for i := 1; i < len(r.frames); i++ {
		diff := absDuration(r.frames[i].Timestamp.Sub(t))
		if diff < bestDiff || (diff == bestDiff && r.frames[i].Timestamp.Before(r.frames[best].Timestamp)) {
			best, bestDiff = i, diff
		}
	}
	return r.frames[best], true
}

// Newest returns the most recently appended frame
func (r *Ring) Newest() (models.BufferedFrame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.frames) == 0 {
		return models.BufferedFrame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

func (r *Ring) Stats() models.HotBufferStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return models.HotBufferStats{
		Frames:    len(r.frames),
		Bytes:     r.bytes,
		MaxFrames: r.maxFrames,
		MaxBytes:  r.maxBytes,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
