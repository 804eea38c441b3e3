package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/config"
	"trackframe-worker-go/internal/metrics"
	"trackframe-worker-go/internal/services/messaging"
)

var (
	ErrAlreadyRecording = errors.New("camera is already being recorded")
	ErrNotRecording     = errors.New("camera is not being recorded")
)

// Service supervises one ffmpeg segmenting process per camera. Processes are
// not restarted automatically; exits are logged, counted and reported by
// HealthCheck.
type Service struct {
	cfg        *config.Config
	messageSvc messaging.Publisher
	recorders  map[string]*CameraRecorder
	mutex      sync.RWMutex
}

type CameraRecorder struct {
	CameraID  string
	URL       string
	OutputDir string
	StartedAt time.Time

	process  *exec.Cmd
	done     chan struct{} // closed once the process has exited
	exitErr  error
	stopping atomic.Bool
	stopCh   chan struct{}
}

// Running reports whether the ffmpeg process is still alive
func (r *CameraRecorder) Running() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// NewService creates the recorder. messageSvc may be nil, in which case
// segment metadata is not published.
func NewService(cfg *config.Config, messageSvc messaging.Publisher) *Service {
	service := &Service{
		cfg:        cfg,
		messageSvc: messageSvc,
		recorders:  make(map[string]*CameraRecorder),
	}

	log.Info().
		Str("ffmpeg", cfg.FFmpegPath).
		Str("output_dir", cfg.VideoOutputDir).
		Int("segment_seconds", cfg.VideoSegmentSeconds).
		Msg("Recorder service initialized")
	return service
}

// BuildArgs returns the ffmpeg arguments that copy url into fixed-length
// segments named by their UTC start time.
func BuildArgs(url, outputPattern string, segmentSeconds int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-rtsp_transport", "tcp",
		"-i", url,
		"-an",        // Drop audio
		"-c", "copy", // Stream copy (no decode/encode)
		"-f", "segment",
		"-segment_time", fmt.Sprint(segmentSeconds),
		"-reset_timestamps", "1",
		"-strftime", "1",
		"-movflags", "+faststart",
		outputPattern,
	}
}

func (rs *Service) outputDir(cameraID string) string {
	return filepath.Join(rs.cfg.VideoOutputDir, cameraID)
}

func (rs *Service) StartRecording(cameraID, url string) error {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if recorder, exists := rs.recorders[cameraID]; exists {
		if recorder.Running() {
			return fmt.Errorf("%w: %s", ErrAlreadyRecording, cameraID)
		}
		close(recorder.stopCh)
		delete(rs.recorders, cameraID)
	}

	outputDir := rs.outputDir(cameraID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args := BuildArgs(url, filepath.Join(outputDir, SegmentPattern), rs.cfg.VideoSegmentSeconds)
	cmd := exec.Command(rs.cfg.FFmpegPath, args...)
	// strftime names are taken from the process time zone
	cmd.Env = append(os.Environ(), "TZ=UTC")
	cmd.Stderr = &stderrLogger{cameraID: cameraID}
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	recorder := &CameraRecorder{
		CameraID:  cameraID,
		URL:       url,
		OutputDir: outputDir,
		StartedAt: time.Now().UTC(),
		process:   cmd,
		done:      make(chan struct{}),
		stopCh:    make(chan struct{}),
	}
	rs.recorders[cameraID] = recorder

	go rs.watchProcess(recorder)
	if rs.cfg.VideoMaxSegments > 0 || rs.messageSvc != nil {
		go rs.manageSegments(recorder)
	}

	log.Info().
		Str("camera_id", cameraID).
		Str("output_dir", outputDir).
		Int("pid", cmd.Process.Pid).
		Int("segment_seconds", rs.cfg.VideoSegmentSeconds).
		Msg("Started segment recording")
	return nil
}

func (rs *Service) watchProcess(recorder *CameraRecorder) {
	err := recorder.process.Wait()
	recorder.exitErr = err
	close(recorder.done)

	if recorder.stopping.Load() {
		return
	}
	metrics.RecorderExits.WithLabelValues(recorder.CameraID).Inc()
	log.Error().
		Err(err).
		Str("camera_id", recorder.CameraID).
		Dur("uptime", time.Since(recorder.StartedAt)).
		Msg("Recording process exited unexpectedly")
}

// manageSegments prunes old segments and publishes finished ones every segment period
func (rs *Service) manageSegments(recorder *CameraRecorder) {
	period := rs.cfg.SegmentDuration()
	if period <= 0 {
		period = 10 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	published := ""
	for {
		select {
		case <-recorder.stopCh:
			return
		case <-ticker.C:
			if rs.messageSvc != nil {
				published = rs.publishLatestSegment(recorder.CameraID, published)
			}
			if _, err := rs.Prune(recorder.CameraID); err != nil {
				log.Error().Err(err).Str("camera_id", recorder.CameraID).Msg("Failed to prune old segments")
			}
		}
	}
}

// publishLatestSegment publishes the newest finished segment unless it was
// already published, and returns its name.
func (rs *Service) publishLatestSegment(cameraID, lastPublished string) string {
	segments, err := rs.Segments(cameraID)
	if err != nil || len(segments) < 2 {
		return lastPublished
	}

	// The newest file is still being written
	finished := segments[len(segments)-2]
	if finished.Name == lastPublished {
		return lastPublished
	}

	subject := fmt.Sprintf("video.segments.%s", cameraID)
	if err := rs.messageSvc.Publish(subject, finished); err != nil {
		log.Error().Err(err).Str("camera_id", cameraID).Msg("Failed to publish segment metadata")
		return lastPublished
	}

	log.Debug().
		Str("camera_id", cameraID).
		Str("segment", finished.Name).
		Int64("size_bytes", finished.SizeBytes).
		Msg("Published segment metadata")
	return finished.Name
}

// Prune removes the oldest segments beyond VideoMaxSegments and returns how
// many were removed. A limit of 0 keeps everything.
func (rs *Service) Prune(cameraID string) (int, error) {
	max := rs.cfg.VideoMaxSegments
	if max <= 0 {
		return 0, nil
	}

	segments, err := rs.Segments(cameraID)
	if err != nil {
		return 0, err
	}
	if len(segments) <= max {
		return 0, nil
	}

	removed := 0
	for _, seg := range segments[:len(segments)-max] {
		if err := os.Remove(seg.Path); err != nil {
			log.Warn().Err(err).Str("segment_path", seg.Path).Msg("Failed to remove old segment")
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.SegmentsPruned.WithLabelValues(cameraID).Add(float64(removed))
		log.Info().
			Str("camera_id", cameraID).
			Int("removed_segments", removed).
			Int("total_segments", len(segments)).
			Int("max_segments", max).
			Msg("Cleaned up old video segments")
	}
	return removed, nil
}

func (rs *Service) StopRecording(cameraID string) error {
	rs.mutex.Lock()
	recorder, exists := rs.recorders[cameraID]
	if exists {
		delete(rs.recorders, cameraID)
	}
	rs.mutex.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotRecording, cameraID)
	}

	rs.stopRecorder(recorder)
	log.Info().Str("camera_id", cameraID).Msg("Stopped segment recording")
	return nil
}

// stopRecorder interrupts ffmpeg so it finalizes the open segment, killing it
// after RecorderStopTimeout.
func (rs *Service) stopRecorder(recorder *CameraRecorder) {
	recorder.stopping.Store(true)
	close(recorder.stopCh)

	if !recorder.Running() {
		return
	}

	if err := recorder.process.Process.Signal(os.Interrupt); err != nil {
		log.Warn().Err(err).Str("camera_id", recorder.CameraID).Msg("Failed to send interrupt signal")
	}

	select {
	case <-recorder.done:
		log.Debug().Err(recorder.exitErr).Str("camera_id", recorder.CameraID).Msg("FFmpeg process ended")
	case <-time.After(rs.cfg.RecorderStopTimeout):
		// Force kill if not stopped gracefully
		if err := recorder.process.Process.Kill(); err != nil {
			log.Warn().Err(err).Str("camera_id", recorder.CameraID).Msg("Failed to kill FFmpeg process")
		}
		<-recorder.done
		log.Warn().Str("camera_id", recorder.CameraID).Msg("Force killed FFmpeg process")
	}
}

func (rs *Service) IsRecording(cameraID string) bool {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()

	recorder, exists := rs.recorders[cameraID]
	return exists && recorder.Running()
}

// GetAllRecordings maps camera ids to whether their process is alive
func (rs *Service) GetAllRecordings() map[string]bool {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()

	status := make(map[string]bool)
	for cameraID, recorder := range rs.recorders {
		status[cameraID] = recorder.Running()
	}
	return status
}

// HealthCheck reports "running" or "exited" per supervised camera
func (rs *Service) HealthCheck() map[string]string {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()

	health := make(map[string]string)
	for cameraID, recorder := range rs.recorders {
		if recorder.Running() {
			health[cameraID] = "running"
		} else {
			health[cameraID] = "exited"
		}
	}
	return health
}

// Shutdown stops every recording concurrently
func (rs *Service) Shutdown(ctx context.Context) error {
	rs.mutex.Lock()
	recorders := make([]*CameraRecorder, 0, len(rs.recorders))
	for cameraID, recorder := range rs.recorders {
		recorders = append(recorders, recorder)
		delete(rs.recorders, cameraID)
	}
	rs.mutex.Unlock()

	var wg sync.WaitGroup
	for _, recorder := range recorders {
		wg.Add(1)
		go func(r *CameraRecorder) {
			defer wg.Done()
			rs.stopRecorder(r)
		}(recorder)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stderrLogger forwards ffmpeg diagnostics to the log line by line
type stderrLogger struct {
	cameraID string
	mu       sync.Mutex
	partial  []byte
}

func (w *stderrLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(w.partial[:i])
		if len(line) > 0 {
			log.Warn().Str("camera_id", w.cameraID).Bytes("ffmpeg", line).Msg("FFmpeg output")
		}
		w.partial = w.partial[i+1:]
	}
	return len(p), nil
}
