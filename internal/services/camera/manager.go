package camera

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"trackframe-worker-go/internal/config"
	"trackframe-worker-go/internal/models"
)

// SegmentIndex finds the recorded segment covering a point in time
type SegmentIndex interface {
	FindSegment(cameraID string, t time.Time) (models.Segment, bool, error)
}

// FrameExtractor decodes the frame at offset into a video file as JPEG
type FrameExtractor func(path string, offset time.Duration, maxWidth, quality int) ([]byte, int, int, error)

// FrameOrigin tells where FrameAt found a frame
type FrameOrigin string

const (
	OriginHotBuffer FrameOrigin = "hot_buffer"
	OriginSegment   FrameOrigin = "segment"
)

// FrameMatch is a frame returned by FrameAt
type FrameMatch struct {
	Frame   models.BufferedFrame
	Origin  FrameOrigin
	Segment string // segment file name when Origin is OriginSegment
}

// Manager owns the camera engines of this worker
type Manager struct {
	cfg      *config.Config
	deps     Deps
	segments SegmentIndex
	extract  FrameExtractor

	engines map[string]*Engine
	mutex   sync.RWMutex
}

type ManagerOption func(*Manager)

// WithSegmentFallback lets FrameAt fall back to recorded segments for
// timestamps outside the hot buffer.
func WithSegmentFallback(index SegmentIndex, extract FrameExtractor) ManagerOption {
	return func(m *Manager) {
		m.segments = index
		m.extract = extract
	}
}

func NewManager(cfg *config.Config, deps Deps, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:     cfg,
		deps:    deps,
		engines: make(map[string]*Engine),
	}
	for _, opt := range opts {
		opt(m)
	}

	log.Info().
		Int("hot_buffer_frames", cfg.HotBufferMaxFrames()).
		Int64("hot_buffer_bytes", cfg.HotBufferMaxBytes).
		Bool("live_events", deps.Subscriber != nil).
		Bool("recorder", deps.Recorder != nil).
		Bool("segment_fallback", m.segments != nil && m.extract != nil).
		Msg("Camera manager initialized")
	return m
}

// Add registers a stopped engine for spec
func (m *Manager) Add(spec models.CameraSpec) (*Engine, error) {
	engine, err := NewEngine(m.cfg, spec, m.deps)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.engines[spec.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrCameraExists, spec.ID)
	}
	m.engines[spec.ID] = engine
	return engine, nil
}

// Start adds and starts a camera. A camera that fails to start is not kept.
func (m *Manager) Start(ctx context.Context, spec models.CameraSpec) (*Engine, error) {
	engine, err := m.Add(spec)
	if err != nil {
		return nil, err
	}
	if err := engine.Start(ctx); err != nil {
		m.mutex.Lock()
		if m.engines[spec.ID] == engine {
			delete(m.engines, spec.ID)
		}
		m.mutex.Unlock()
		return nil, err
	}

	// A Remove that ran before the engine left Stopped could not stop it
	m.mutex.RLock()
	registered := m.engines[spec.ID] == engine
	m.mutex.RUnlock()
	if !registered {
		if err := engine.Stop(); err != nil && !errors.Is(err, ErrInvalidState) {
			log.Error().Err(err).Str("camera_id", spec.ID).Msg("Failed to stop camera removed while starting")
		}
		return nil, fmt.Errorf("%w: camera %s was removed while starting", ErrInvalidState, spec.ID)
	}
	return engine, nil
}

// StartAll starts the given cameras concurrently and returns the first error.
// One failing camera does not keep the others from starting.
func (m *Manager) StartAll(ctx context.Context, specs []models.CameraSpec) error {
	var g errgroup.Group
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			if _, err := m.Start(ctx, spec); err != nil {
				log.Error().Err(err).Str("camera_id", spec.ID).Msg("Failed to start camera")
				return fmt.Errorf("camera %s: %w", spec.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Remove stops a camera if it is running and forgets it
func (m *Manager) Remove(cameraID string) error {
	m.mutex.Lock()
	engine, exists := m.engines[cameraID]
	if exists {
		delete(m.engines, cameraID)
	}
	m.mutex.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}
	// Stop waits for a start in progress. A camera that is already stopped,
	// or not yet starting, is caught by Start once it sees the removal.
	if err := engine.Stop(); err != nil && !errors.Is(err, ErrInvalidState) {
		return err
	}
	return nil
}

func (m *Manager) Get(cameraID string) (*Engine, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	engine, exists := m.engines[cameraID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}
	return engine, nil
}

// List returns the status of every camera ordered by id
func (m *Manager) List() []models.CameraResponse {
	m.mutex.RLock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, engine := range m.engines {
		engines = append(engines, engine)
	}
	m.mutex.RUnlock()

	sort.Slice(engines, func(i, j int) bool { return engines[i].ID() < engines[j].ID() })

	out := make([]models.CameraResponse, 0, len(engines))
	for _, engine := range engines {
		out = append(out, engine.Status())
	}
	return out
}

// FrameAt returns the hot buffer frame nearest to t when it lies within the
// match tolerance, otherwise the frame decoded from the recorded segment
// covering t.
func (m *Manager) FrameAt(cameraID string, t time.Time) (FrameMatch, error) {
	engine, err := m.Get(cameraID)
	if err != nil {
		return FrameMatch{}, err
	}

	if frame, ok := engine.SearchFrame(t); ok && absDuration(frame.Timestamp.Sub(t)) <= m.cfg.HotBufferMatchTolerance {
		return FrameMatch{Frame: frame, Origin: OriginHotBuffer}, nil
	}

	if m.segments == nil || m.extract == nil {
		return FrameMatch{}, fmt.Errorf("%w: camera %s at %s", ErrFrameNotFound, cameraID, t.Format(time.RFC3339Nano))
	}

	seg, found, err := m.segments.FindSegment(cameraID, t)
	if err != nil {
		return FrameMatch{}, fmt.Errorf("find segment: %w", err)
	}
	if !found {
		return FrameMatch{}, fmt.Errorf("%w: camera %s at %s", ErrFrameNotFound, cameraID, t.Format(time.RFC3339Nano))
	}

	offset := t.Sub(seg.StartTime)
	data, width, height, err := m.extract(seg.Path, offset, m.cfg.HotBufferMaxWidth, m.cfg.HotBufferJPEGQuality)
	if err != nil {
		return FrameMatch{}, fmt.Errorf("extract frame from %s: %w", seg.Name, err)
	}

	log.Debug().
		Str("camera_id", cameraID).
		Str("segment", seg.Name).
		Dur("offset", offset).
		Msg("Frame served from recorded segment")

	return FrameMatch{
		Frame: models.BufferedFrame{
			Timestamp:    t.UTC(),
			EncodedBytes: data,
			Width:        width,
			Height:       height,
		},
		Origin:  OriginSegment,
		Segment: seg.Name,
	}, nil
}

// Shutdown stops every running camera concurrently
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mutex.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for cameraID, engine := range m.engines {
		engines = append(engines, engine)
		delete(m.engines, cameraID)
	}
	m.mutex.Unlock()

	log.Info().Int("cameras", len(engines)).Msg("Shutting down camera manager")

	var g errgroup.Group
	for _, engine := range engines {
		engine := engine
		g.Go(func() error {
			if engine.State() == models.CameraStopped {
				return nil
			}
			if err := engine.Stop(); err != nil && !errors.Is(err, ErrInvalidState) {
				log.Error().Err(err).Str("camera_id", engine.ID()).Msg("Failed to stop camera during shutdown")
				return err
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
