package streamcapture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackframe-worker-go/internal/config"
	"trackframe-worker-go/internal/models"
)

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// fakeClock advances only when told to; After fires immediately and records
// the requested delay.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	delays []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays = append(c.delays, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

// fakeStream delivers reads frames, each step apart, then fails
type fakeStream struct {
	clock  *fakeClock
	reads  int
	step   time.Duration
	closed bool
}

func (s *fakeStream) Read() bool {
	if s.reads <= 0 {
		return false
	}
	s.reads--
	s.clock.advance(s.step)
	return true
}

func (s *fakeStream) Encode(maxWidth, quality int) ([]byte, int, int, error) {
	return []byte{0xff, 0xd8, byte(quality)}, maxWidth, maxWidth * 3 / 4, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// scriptedOpener returns the scripted results in order and cancels the run
// once the script is exhausted.
type scriptedOpener struct {
	mu      sync.Mutex
	results []any // Stream or error
	cancel  context.CancelFunc
	urls    []string
}

func (o *scriptedOpener) Open(url string) (Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
	if len(o.results) == 0 {
		o.cancel()
		return nil, errors.New("script exhausted")
	}
	next := o.results[0]
	o.results = o.results[1:]
	if err, ok := next.(error); ok {
		return nil, err
	}
	return next.(Stream), nil
}

type sliceSink struct {
	mu     sync.Mutex
	frames []models.BufferedFrame
	onAdd  func(n int)
}

func (s *sliceSink) Append(f models.BufferedFrame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	n := len(s.frames)
	s.mu.Unlock()
	if s.onAdd != nil {
		s.onAdd(n)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		HotBufferFPS:         5,
		HotBufferMaxWidth:    640,
		HotBufferJPEGQuality: 70,
		CaptureOpenRetry:     time.Second,
		CaptureReopenDelay:   300 * time.Millisecond,
	}
}

func TestRun_RateGateDropsEarlyFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{now: t0}
	stream := &fakeStream{clock: clock, reads: 10, step: 100 * time.Millisecond}
	opener := &scriptedOpener{results: []any{stream}, cancel: cancel}
	sink := &sliceSink{}
	stats := &Stats{}

	NewService(testConfig(), opener, WithClock(clock)).Run(ctx, "cam-1", "rtsp://cam", sink, stats)

	require.Len(t, sink.frames, 5)
	for i, f := range sink.frames {
		assert.Equal(t, t0.Add(time.Duration(100+200*i)*time.Millisecond), f.Timestamp)
		assert.Equal(t, 640, f.Width)
		assert.Equal(t, 480, f.Height)
		assert.Equal(t, byte(70), f.EncodedBytes[2])
	}

	snap := stats.Snapshot()
	assert.Equal(t, int64(5), snap.FramesKept)
	assert.Equal(t, int64(5), snap.FramesDropped)
	assert.Equal(t, int64(1), snap.Reconnects)
	require.NotNil(t, snap.LastFrameTime)
	assert.Equal(t, t0.Add(900*time.Millisecond), *snap.LastFrameTime)
	assert.True(t, stream.closed)
	assert.Equal(t, []string{"rtsp://cam", "rtsp://cam"}, opener.urls)
}

func TestRun_OpenFailuresRetryWithBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{now: t0}
	failing := errors.New("connection refused")
	stream := &fakeStream{clock: clock, reads: 0}
	opener := &scriptedOpener{results: []any{failing, failing, failing, stream}, cancel: cancel}
	stats := &Stats{}

	NewService(testConfig(), opener, WithClock(clock)).Run(ctx, "cam-1", "rtsp://cam", &sliceSink{}, stats)

	delays := clock.recorded()
	require.GreaterOrEqual(t, len(delays), 4)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second, 300 * time.Millisecond}, delays[:4])

	snap := stats.Snapshot()
	assert.Equal(t, int64(4), snap.OpenFailures, "three scripted failures plus the exhausted script")
	assert.Equal(t, int64(1), snap.Reconnects)
	assert.Nil(t, snap.LastFrameTime)
}

func TestRun_StopsOnCancelDuringReads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{now: t0}
	stream := &fakeStream{clock: clock, reads: 1000, step: time.Second}
	opener := &scriptedOpener{results: []any{stream}, cancel: cancel}
	sink := &sliceSink{onAdd: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	stats := &Stats{}

	done := make(chan struct{})
	go func() {
		NewService(testConfig(), opener, WithClock(clock)).Run(ctx, "cam-1", "rtsp://cam", sink, stats)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("capture loop did not stop")
	}

	assert.Len(t, sink.frames, 3)
	assert.True(t, stream.closed)
	assert.Zero(t, stats.Snapshot().Reconnects)
	assert.Len(t, opener.urls, 1)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opener := &scriptedOpener{cancel: cancel}
	NewService(testConfig(), opener, WithClock(&fakeClock{now: t0})).Run(ctx, "cam-1", "rtsp://cam", &sliceSink{}, nil)

	assert.Empty(t, opener.urls)
}

func TestJitterBackoff(t *testing.T) {
	mid := func() float64 { return 0.5 }
	low := func() float64 { return 0 }

	b := JitterBackoff{Min: time.Second, Max: 30 * time.Second, JitterPct: 20, Rand: mid}
	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 8*time.Second, b.Delay(3))
	assert.Equal(t, 30*time.Second, b.Delay(10))
	assert.Equal(t, 30*time.Second, b.Delay(100))

	b.Rand = low
	assert.Equal(t, 1600*time.Millisecond, b.Delay(1))
}

func TestBackoffFromConfig(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, FixedBackoff(time.Second), BackoffFromConfig(cfg))

	cfg.CaptureBackoff = "jitter"
	cfg.ReconnectBackoffMin = 2 * time.Second
	cfg.ReconnectBackoffMax = time.Minute
	cfg.ReconnectJitterPct = 10
	assert.Equal(t, JitterBackoff{Min: 2 * time.Second, Max: time.Minute, JitterPct: 10}, BackoffFromConfig(cfg))
}
