package hotbuffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackframe-worker-go/internal/models"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func frame(offset time.Duration, size int) models.BufferedFrame {
	return models.BufferedFrame{
		Timestamp:    base.Add(offset),
		EncodedBytes: make([]byte, size),
		Width:        4,
		Height:       3,
	}
}

func TestNewRing_InvalidLimits(t *testing.T) {
	for _, tt := range []struct {
		frames int
		bytes  int64
	}{{0, 10}, {10, 0}, {-1, 10}, {10, -5}} {
		_, err := NewRing(tt.frames, tt.bytes)
		assert.ErrorIs(t, err, ErrInvalidLimits)
	}
}

func TestRing_FrameLimit(t *testing.T) {
	r, err := NewRing(3, 1<<20)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		r.Append(frame(time.Duration(i)*time.Second, 10))
	}

	stats := r.Stats()
	assert.Equal(t, models.HotBufferStats{Frames: 3, Bytes: 30, MaxFrames: 3, MaxBytes: 1 << 20}, stats)

	oldest, ok := r.SearchFrame(base.Add(-time.Hour))
	require.True(t, ok)
	assert.Equal(t, base.Add(2*time.Second), oldest.Timestamp)
}

func TestRing_ByteLimit(t *testing.T) {
	r, err := NewRing(100, 5)
	require.NoError(t, err)

	r.Append(frame(0, 3))
	r.Append(frame(time.Second, 3))

	stats := r.Stats()
	assert.Equal(t, 1, stats.Frames)
	assert.LessOrEqual(t, stats.Bytes, int64(5))

	newest, ok := r.Newest()
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Second), newest.Timestamp)
}

func TestRing_OversizedFrameEvictsEverything(t *testing.T) {
	r, err := NewRing(10, 5)
	require.NoError(t, err)

	r.Append(frame(0, 2))
	r.Append(frame(time.Second, 8))

	assert.Equal(t, models.HotBufferStats{Frames: 0, Bytes: 0, MaxFrames: 10, MaxBytes: 5}, r.Stats())
	_, ok := r.Newest()
	assert.False(t, ok)
}

func TestRing_Latest(t *testing.T) {
	now := base.Add(10 * time.Second)
	r, err := NewRing(100, 1<<20, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	for i := 0; i <= 10; i++ {
		r.Append(frame(time.Duration(i)*time.Second, 1))
	}

	got := r.Latest(3 * time.Second)
	require.Len(t, got, 4)
	assert.Equal(t, base.Add(7*time.Second), got[0].Timestamp)
	assert.Equal(t, base.Add(10*time.Second), got[3].Timestamp)

	assert.Empty(t, r.Latest(0))
	assert.Empty(t, r.Latest(-time.Second))
	assert.Len(t, r.Latest(time.Hour), 11)
}

func TestRing_SearchFrame(t *testing.T) {
	r, err := NewRing(10, 1<<20)
	require.NoError(t, err)

	_, ok := r.SearchFrame(base)
	assert.False(t, ok, "empty buffer has no match")

	r.Append(frame(0, 1))
	r.Append(frame(1*time.Second, 1))
	r.Append(frame(2*time.Second, 1))

	tests := []struct {
		name   string
		target time.Time
		want   time.Time
	}{
		{"exact", base.Add(time.Second), base.Add(time.Second)},
		{"closer to later frame", base.Add(1700 * time.Millisecond), base.Add(2 * time.Second)},
		{"closer to earlier frame", base.Add(1200 * time.Millisecond), base.Add(time.Second)},
		{"tie resolves to older", base.Add(1500 * time.Millisecond), base.Add(time.Second)},
		{"before all", base.Add(-time.Minute), base},
		{"after all", base.Add(time.Minute), base.Add(2 * time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.SearchFrame(tt.target)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Timestamp)
		})
	}
}

func TestRing_SearchFrameNonMonotonic(t *testing.T) {
	r, err := NewRing(10, 1<<20)
	require.NoError(t, err)

	r.Append(frame(5*time.Second, 1))
	r.Append(frame(1*time.Second, 1))
	r.Append(frame(9*time.Second, 1))

	got, ok := r.SearchFrame(base.Add(1100 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Second), got.Timestamp)
}

func TestRing_ConcurrentWriterAndReaders(t *testing.T) {
	r, err := NewRing(50, 500)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				stats := r.Stats()
				assert.LessOrEqual(t, stats.Frames, 50)
				assert.LessOrEqual(t, stats.Bytes, int64(500))
				r.SearchFrame(base.Add(time.Second))
				r.Latest(time.Hour)
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		r.Append(frame(time.Duration(i)*time.Millisecond, 7))
	}
	close(stop)
	wg.Wait()

	stats := r.Stats()
	assert.Equal(t, 50, stats.Frames)
	assert.Equal(t, int64(350), stats.Bytes)
}
