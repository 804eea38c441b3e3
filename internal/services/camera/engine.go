package camera

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"trackframe-worker-go/internal/config"
	"trackframe-worker-go/internal/logging"
	"trackframe-worker-go/internal/metrics"
	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/hotbuffer"
	"trackframe-worker-go/internal/services/ingestion/source"
	"trackframe-worker-go/internal/services/messaging"
	"trackframe-worker-go/internal/services/recorder"
	"trackframe-worker-go/internal/services/streamcapture"
)

var (
	ErrInvalidState   = errors.New("camera: invalid state transition")
	ErrInvalidCamera  = errors.New("camera: invalid camera")
	ErrCameraNotFound = errors.New("camera: not found")
	ErrCameraExists   = errors.New("camera: already exists")
	ErrFrameNotFound  = errors.New("camera: no frame for timestamp")
)

// Recorder supervises the segment recording process of a camera
type Recorder interface {
	StartRecording(cameraID, url string) error
	StopRecording(cameraID string) error
	IsRecording(cameraID string) bool
}

// Capturer runs a hot buffer capture loop until ctx is done
type Capturer interface {
	Run(ctx context.Context, cameraID, url string, sink streamcapture.FrameSink, stats *streamcapture.Stats)
}

// EventHandler receives live raw events
type EventHandler interface {
	HandleRawEvent(raw models.RawEvent) bool
}

// Deps are the collaborators shared by every camera engine. Recorder and
// Subscriber are optional; Handler is required when Subscriber is set.
type Deps struct {
	Recorder   Recorder
	Capture    Capturer
	Subscriber messaging.Subscriber
	Handler    EventHandler
}

// Engine runs one camera: the segment recorder, the hot buffer capture loop
// and the live event listener.
type Engine struct {
	spec        models.CameraSpec
	topic       string
	deps        Deps
	ring        *hotbuffer.Ring
	joinTimeout time.Duration
	logger      zerolog.Logger

	state atomic.Int32

	// Guarded by mu, only touched by Start and Stop
	mu          sync.Mutex
	cancel      context.CancelFunc
	captureDone chan struct{}
	sub         messaging.Subscription
	recording   bool

	startedAt atomic.Pointer[time.Time]

	captureStats streamcapture.Stats
	received     atomic.Int64
	malformed    atomic.Int64
	accepted     atomic.Int64
}

// NewEngine validates spec and creates a stopped engine with an empty hot buffer
func NewEngine(cfg *config.Config, spec models.CameraSpec, deps Deps) (*Engine, error) {
	if err := ValidateCameraID(spec.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.StreamURL) == "" {
		return nil, fmt.Errorf("%w: camera %s has no stream url", ErrInvalidCamera, spec.ID)
	}
	if deps.Capture == nil {
		return nil, fmt.Errorf("%w: capture service is required", ErrInvalidCamera)
	}
	if deps.Subscriber != nil && deps.Handler == nil {
		return nil, fmt.Errorf("%w: event handler is required for live events", ErrInvalidCamera)
	}

	ring, err := hotbuffer.NewRing(cfg.HotBufferMaxFrames(), cfg.HotBufferMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("camera %s: %w", spec.ID, err)
	}

	joinTimeout := cfg.CaptureJoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = 2 * time.Second
	}

	e := &Engine{
		spec:        spec,
		topic:       cfg.EventsTopic(spec.ID),
		deps:        deps,
		ring:        ring,
		joinTimeout: joinTimeout,
		logger:      logging.WithCamera(logging.NewServiceLogger(cfg, "camera"), spec.ID),
	}
	e.state.Store(int32(models.CameraStopped))
	return e, nil
}

// ValidateCameraID rejects ids that cannot be used as a directory name and a
// single bus topic level.
func ValidateCameraID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty camera id", ErrInvalidCamera)
	}
	if id == "." || id == ".." || strings.ContainsAny(id, "/\\ \t\n*>+#") {
		return fmt.Errorf("%w: camera id %q contains reserved characters", ErrInvalidCamera, id)
	}
	return nil
}

func (e *Engine) ID() string {
	return e.spec.ID
}

func (e *Engine) Spec() models.CameraSpec {
	return e.spec
}

// Topic is the bus topic the listener subscribes to
func (e *Engine) Topic() string {
	return e.topic
}

func (e *Engine) State() models.CameraState {
	return models.CameraState(e.state.Load())
}

// Start launches the recorder (if enabled), the capture loop and the live
// listener in that order. A failed step rolls back the earlier ones and
// leaves the engine stopped. ctx bounds the start sequence only; the
// running camera outlives it.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.CompareAndSwap(int32(models.CameraStopped), int32(models.CameraStarting)) {
		return fmt.Errorf("%w: camera %s cannot start from %s", ErrInvalidState, e.spec.ID, e.State())
	}

	e.logger.Info().Str("url", e.spec.StreamURL).Bool("record", e.spec.Record).Msg("Starting camera")

	if err := ctx.Err(); err != nil {
		e.state.Store(int32(models.CameraStopped))
		return err
	}

	if e.spec.Record && e.deps.Recorder != nil {
		if err := e.deps.Recorder.StartRecording(e.spec.ID, e.spec.StreamURL); err != nil {
			e.state.Store(int32(models.CameraStopped))
			return fmt.Errorf("start recording for camera %s: %w", e.spec.ID, err)
		}
		e.recording = true
	}

	captureCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.captureDone = make(chan struct{})
	go e.runCapture(captureCtx, e.captureDone)

	if e.deps.Subscriber != nil {
		sub, err := e.deps.Subscriber.Subscribe(e.topic, e.onMessage)
		if err != nil {
			e.shutdownLocked()
			e.state.Store(int32(models.CameraStopped))
			return fmt.Errorf("subscribe camera %s to %s: %w", e.spec.ID, e.topic, err)
		}
		e.sub = sub
	}

	now := time.Now().UTC()
	e.startedAt.Store(&now)
	e.state.Store(int32(models.CameraRunning))

	e.logger.Info().Str("topic", e.topic).Bool("recording", e.recording).Msg("Camera started")
	return nil
}

// Stop halts frame production before releasing the subscription and the
// recording process: capture is cancelled and joined (bounded by the join
// timeout), then the listener is unsubscribed, then the recorder stopped.
// A Stop issued while Start is in progress waits for it and then stops the
// started camera.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.CompareAndSwap(int32(models.CameraRunning), int32(models.CameraStopping)) {
		return fmt.Errorf("%w: camera %s cannot stop from %s", ErrInvalidState, e.spec.ID, e.State())
	}

	e.logger.Info().Msg("Stopping camera")
	err := e.shutdownLocked()
	e.startedAt.Store(nil)
	e.state.Store(int32(models.CameraStopped))

	e.logger.Info().Msg("Camera stopped")
	return err
}

// shutdownLocked releases whatever Start acquired. Callers hold mu.
func (e *Engine) shutdownLocked() error {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.captureDone != nil {
		select {
		case <-e.captureDone:
		case <-time.After(e.joinTimeout):
			e.logger.Warn().Dur("timeout", e.joinTimeout).Msg("Capture loop did not exit in time, continuing shutdown")
		}
		e.captureDone = nil
	}

	var errs []error
	if e.sub != nil {
		if err := e.unsubscribe(e.sub); err != nil {
			errs = append(errs, err)
		}
		e.sub = nil
	}

	if e.recording {
		e.recording = false
		if err := e.deps.Recorder.StopRecording(e.spec.ID); err != nil && !errors.Is(err, recorder.ErrNotRecording) {
			e.logger.Error().Err(err).Msg("Failed to stop recording")
			errs = append(errs, fmt.Errorf("stop recording: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) unsubscribe(sub messaging.Subscription) error {
	if err := sub.Unsubscribe(); err != nil {
		e.logger.Warn().Err(err).Str("topic", e.topic).Msg("Failed to unsubscribe")
		return fmt.Errorf("unsubscribe %s: %w", e.topic, err)
	}
	return nil
}

func (e *Engine) runCapture(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("Capture loop panicked")
		}
	}()
	e.deps.Capture.Run(ctx, e.spec.ID, e.spec.StreamURL, bufferSink{cameraID: e.spec.ID, ring: e.ring}, &e.captureStats)
}

// onMessage handles one live bus message. Malformed bodies are logged and
// dropped; the subscription is never interrupted.
func (e *Engine) onMessage(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("Panic while handling live message")
		}
	}()

	e.received.Add(1)
	raw, err := source.DecodeLive(data, time.Now())
	if err != nil {
		e.malformed.Add(1)
		metrics.LiveMessagesMalformed.WithLabelValues(e.spec.ID).Inc()
		e.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Dropping malformed live message")
		return
	}

	if e.deps.Handler.HandleRawEvent(raw) {
		e.accepted.Add(1)
	}
}

// HotBufferFrames returns the frames captured within window, oldest first
func (e *Engine) HotBufferFrames(window time.Duration) []models.BufferedFrame {
	return e.ring.Latest(window)
}

// SearchFrame returns the retained frame closest to t
func (e *Engine) SearchFrame(t time.Time) (models.BufferedFrame, bool) {
	return e.ring.SearchFrame(t)
}

// LatestFrame returns the most recently captured frame
func (e *Engine) LatestFrame() (models.BufferedFrame, bool) {
	return e.ring.Newest()
}

func (e *Engine) HotBufferStats() models.HotBufferStats {
	return e.ring.Stats()
}

func (e *Engine) ListenerStats() models.ListenerStats {
	return models.ListenerStats{
		Received:  e.received.Load(),
		Malformed: e.malformed.Load(),
		Accepted:  e.accepted.Load(),
	}
}

// Status is the API view of the engine
func (e *Engine) Status() models.CameraResponse {
	isRecording := false
	if e.deps.Recorder != nil {
		isRecording = e.deps.Recorder.IsRecording(e.spec.ID)
	}

	return models.CameraResponse{
		CameraID:    e.spec.ID,
		URL:         e.spec.StreamURL,
		State:       e.State().String(),
		IsRecording: isRecording,
		StartedAt:   e.startedAt.Load(),
		Capture:     e.captureStats.Snapshot(),
		Listener:    e.ListenerStats(),
		HotBuffer:   e.ring.Stats(),
	}
}

// bufferSink appends captured frames to the hot buffer and exports its fill level
type bufferSink struct {
	cameraID string
	ring     *hotbuffer.Ring
}

func (s bufferSink) Append(f models.BufferedFrame) {
	s.ring.Append(f)
	stats := s.ring.Stats()
	metrics.HotBufferFrames.WithLabelValues(s.cameraID).Set(float64(stats.Frames))
	metrics.HotBufferBytes.WithLabelValues(s.cameraID).Set(float64(stats.Bytes))
}
