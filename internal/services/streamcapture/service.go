package streamcapture

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/config"
	"trackframe-worker-go/internal/metrics"
	"trackframe-worker-go/internal/models"
)

// Service runs hot buffer capture loops
type Service struct {
	opener      Opener
	clock       Clock
	backoff     BackoffPolicy
	fps         int
	maxWidth    int
	jpegQuality int
	reopenDelay time.Duration
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithBackoff(b BackoffPolicy) Option {
	return func(s *Service) {
		s.backoff = b
	}
}

// NewService creates a capture service reading through opener
func NewService(cfg *config.Config, opener Opener, opts ...Option) *Service {
	s := &Service{
		opener:      opener,
		clock:       RealClock,
		backoff:     BackoffFromConfig(cfg),
		fps:         cfg.HotBufferFPS,
		maxWidth:    cfg.HotBufferMaxWidth,
		jpegQuality: cfg.HotBufferJPEGQuality,
		reopenDelay: cfg.CaptureReopenDelay,
	}
	if s.fps <= 0 {
		s.fps = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run opens url, samples frames at the configured rate into sink and reopens
// the stream after failures until ctx is done. It only returns on ctx
// cancellation.
func (s *Service) Run(ctx context.Context, cameraID, url string, sink FrameSink, stats *Stats) {
	if stats == nil {
		stats = &Stats{}
	}
	logger := log.With().Str("camera_id", cameraID).Logger()
	logger.Info().Int("fps", s.fps).Int("max_width", s.maxWidth).Msg("Starting hot buffer capture")

	attempt := 0
	for {
		if ctx.Err() != nil {
			logger.Info().Msg("Stopping hot buffer capture")
			return
		}

		stream, err := s.opener.Open(url)
		if err != nil {
			attempt++
			stats.openFailures.Add(1)
			metrics.CaptureReconnects.WithLabelValues(cameraID, "open").Inc()
			delay := s.backoff.Delay(attempt)
			logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("Stream open failed, retrying")
			if !s.sleep(ctx, delay) {
				logger.Info().Msg("Stopping hot buffer capture")
				return
			}
			continue
		}

		if attempt > 0 {
			logger.Info().Int("attempts", attempt).Msg("Stream opened after retries")
		}
		attempt = 0

		s.readLoop(ctx, cameraID, stream, sink, stats)
		if err := stream.Close(); err != nil {
			logger.Debug().Err(err).Msg("Error closing stream")
		}

		if ctx.Err() != nil {
			logger.Info().Msg("Stopping hot buffer capture")
			return
		}

		stats.reconnects.Add(1)
		metrics.CaptureReconnects.WithLabelValues(cameraID, "read").Inc()
		logger.Warn().Dur("retry_in", s.reopenDelay).Msg("Stream read failed, reconnecting")
		if !s.sleep(ctx, s.reopenDelay) {
			logger.Info().Msg("Stopping hot buffer capture")
			return
		}
	}
}

// readLoop returns when the stream fails or ctx is done
func (s *Service) readLoop(ctx context.Context, cameraID string, stream Stream, sink FrameSink, stats *Stats) {
	interval := time.Second / time.Duration(s.fps)
	next := s.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !stream.Read() {
			return
		}

		// Rate gate: frames arriving early are dropped, never queued
		now := s.clock.Now()
		if now.Before(next) {
			stats.framesDropped.Add(1)
			metrics.CaptureFramesDropped.WithLabelValues(cameraID).Inc()
			continue
		}
		next = now.Add(interval)

		data, width, height, err := stream.Encode(s.maxWidth, s.jpegQuality)
		if err != nil {
			log.Debug().Err(err).Str("camera_id", cameraID).Msg("Frame encode failed, skipping")
			continue
		}

		captured := s.clock.Now().UTC()
		sink.Append(models.BufferedFrame{
			Timestamp:    captured,
			EncodedBytes: data,
			Width:        width,
			Height:       height,
		})
		stats.framesKept.Add(1)
		stats.lastFrameNano.Store(captured.UnixNano())
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}
