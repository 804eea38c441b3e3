package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"trackframe-worker-go/internal/config"
	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/camera"
	"trackframe-worker-go/internal/services/streamcapture"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCapture struct {
	frames []models.BufferedFrame
}

func (c *stubCapture) Run(ctx context.Context, cameraID, url string, sink streamcapture.FrameSink, stats *streamcapture.Stats) {
	for _, f := range c.frames {
		sink.Append(f)
	}
	<-ctx.Done()
}

type stubRecorder struct {
	mu        sync.Mutex
	recording map[string]bool
}

func (r *stubRecorder) StartRecording(cameraID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording[cameraID] = true
	return nil
}

func (r *stubRecorder) StopRecording(cameraID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.recording, cameraID)
	return nil
}

func (r *stubRecorder) IsRecording(cameraID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording[cameraID]
}

type stubSegments struct {
	segments []models.Segment
	err      error
}

func (s *stubSegments) Segments(cameraID string) ([]models.Segment, error) {
	return s.segments, s.err
}

func (s *stubSegments) FindSegment(cameraID string, t time.Time) (models.Segment, bool, error) {
	if s.err != nil {
		return models.Segment{}, false, s.err
	}
	for _, seg := range s.segments {
		if seg.Covers(t) {
			return seg, true, nil
		}
	}
	return models.Segment{}, false, nil
}

func testConfig() *config.Config {
	return &config.Config{
		WorkerID:                "test-worker",
		EventsTopicTemplate:     "camera.%s",
		HotBufferSeconds:        10,
		HotBufferFPS:            5,
		HotBufferMaxBytes:       1 << 20,
		HotBufferMaxWidth:       640,
		HotBufferJPEGQuality:    70,
		HotBufferMatchTolerance: time.Second,
		CaptureJoinTimeout:      time.Second,
	}
}

func frame(ts time.Time, payload string) models.BufferedFrame {
	return models.BufferedFrame{Timestamp: ts, EncodedBytes: []byte(payload), Width: 4, Height: 3}
}

// newTestManager returns a manager whose cameras replay frames into their hot
// buffers and stay running until stopped.
func newTestManager(t *testing.T, frames []models.BufferedFrame, opts ...camera.ManagerOption) (*camera.Manager, *stubRecorder) {
	t.Helper()
	recorder := &stubRecorder{recording: map[string]bool{}}
	manager := camera.NewManager(testConfig(), camera.Deps{
		Recorder: recorder,
		Capture:  &stubCapture{frames: frames},
	}, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
	})
	return manager, recorder
}

func startCamera(t *testing.T, manager *camera.Manager, id string, frames int) *camera.Engine {
	t.Helper()
	engine, err := manager.Start(context.Background(), models.CameraSpec{ID: id, StreamURL: "rtsp://cam/" + id, Record: true})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return engine.HotBufferStats().Frames == frames
	}, 2*time.Second, 10*time.Millisecond)
	return engine
}

func perform(router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
