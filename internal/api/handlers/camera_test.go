package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/camera"
)

func cameraRouter(h *CameraHandler) *gin.Engine {
	r := gin.New()
	r.GET("/cameras", h.ListCameras)
	r.POST("/cameras", h.StartCamera)
	r.DELETE("/cameras/:camera_id", h.StopCamera)
	r.GET("/cameras/:camera_id/status", h.GetCamera)
	r.GET("/cameras/:camera_id/hotbuffer/stats", h.GetHotBufferStats)
	r.GET("/cameras/:camera_id/hotbuffer/frames", h.GetHotBufferFrames)
	r.GET("/cameras/:camera_id/frame", h.GetFrame)
	return r
}

func TestStartCamera(t *testing.T) {
	manager, recorder := newTestManager(t, nil)
	router := cameraRouter(NewCameraHandler(manager, true, 10*time.Second))

	w := perform(router, http.MethodPost, "/cameras", map[string]any{"camera_id": "cam-1", "url": "rtsp://cam/1"})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[models.CameraResponse](t, w)
	assert.Equal(t, "cam-1", resp.CameraID)
	assert.Equal(t, "running", resp.State)
	assert.True(t, resp.IsRecording)
	assert.True(t, recorder.IsRecording("cam-1"))

	t.Run("duplicate", func(t *testing.T) {
		w := perform(router, http.MethodPost, "/cameras", map[string]any{"camera_id": "cam-1", "url": "rtsp://cam/1"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("record disabled per request", func(t *testing.T) {
		w := perform(router, http.MethodPost, "/cameras", map[string]any{"camera_id": "cam-2", "url": "rtsp://cam/2", "record": false})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.False(t, recorder.IsRecording("cam-2"))
	})

	t.Run("missing url", func(t *testing.T) {
		w := perform(router, http.MethodPost, "/cameras", map[string]any{"camera_id": "cam-3"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reserved characters", func(t *testing.T) {
		w := perform(router, http.MethodPost, "/cameras", map[string]any{"camera_id": "a/b", "url": "rtsp://cam/x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListAndStopCamera(t *testing.T) {
	manager, recorder := newTestManager(t, nil)
	startCamera(t, manager, "cam-b", 0)
	startCamera(t, manager, "cam-a", 0)
	router := cameraRouter(NewCameraHandler(manager, true, 10*time.Second))

	w := perform(router, http.MethodGet, "/cameras", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[CameraListResponse](t, w)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "cam-a", list.Cameras[0].CameraID)
	assert.Equal(t, "cam-b", list.Cameras[1].CameraID)

	w = perform(router, http.MethodDelete, "/cameras/cam-a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, recorder.IsRecording("cam-a"))

	w = perform(router, http.MethodGet, "/cameras/cam-a/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(router, http.MethodDelete, "/cameras/cam-a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHotBufferEndpoints(t *testing.T) {
	now := time.Now().UTC()
	frames := []models.BufferedFrame{
		frame(now.Add(-3*time.Second), "old"),
		frame(now.Add(-1*time.Second), "mid"),
		frame(now, "new"),
	}
	manager, _ := newTestManager(t, frames)
	startCamera(t, manager, "cam-1", 3)
	router := cameraRouter(NewCameraHandler(manager, true, 10*time.Second))

	t.Run("stats", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/cameras/cam-1/hotbuffer/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[models.HotBufferStats](t, w)
		assert.Equal(t, 3, stats.Frames)
		assert.Equal(t, int64(9), stats.Bytes)
		assert.Equal(t, 50, stats.MaxFrames)
	})

	t.Run("frames default window", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/cameras/cam-1/hotbuffer/frames", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[FramesResponse](t, w)
		assert.Equal(t, 3, resp.Count)
		assert.Equal(t, 10.0, resp.Window)
		assert.Equal(t, int64(3), resp.Frames[0].SizeBytes)
	})

	t.Run("frames custom window", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/cameras/cam-1/hotbuffer/frames?seconds=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[FramesResponse](t, w)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("frames bad window", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/cameras/cam-1/hotbuffer/frames?seconds=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("frames window out of range", func(t *testing.T) {
		for _, seconds := range []string{"NaN", "Inf", "-Inf", "1e30", "-1"} {
			w := perform(router, http.MethodGet, "/cameras/cam-1/hotbuffer/frames?seconds="+seconds, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, seconds)
		}
	})

	t.Run("unknown camera", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/cameras/nope/hotbuffer/stats", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("latest frame", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/cameras/cam-1/frame", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, "new", w.Body.String())
		assert.Equal(t, string(camera.OriginHotBuffer), w.Header().Get("X-Frame-Origin"))
	})

	t.Run("nearest frame", func(t *testing.T) {
		ts := now.Add(-1200 * time.Millisecond).Format(time.RFC3339Nano)
		w := perform(router, http.MethodGet, "/cameras/cam-1/frame?ts="+url.QueryEscape(ts), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "mid", w.Body.String())
		assert.Equal(t, frames[1].Timestamp.Format(time.RFC3339Nano), w.Header().Get("X-Frame-Timestamp"))
	})

	t.Run("outside tolerance without segments", func(t *testing.T) {
		ts := now.Add(-time.Hour).Format(time.RFC3339Nano)
		w := perform(router, http.MethodGet, "/cameras/cam-1/frame?ts="+url.QueryEscape(ts), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/cameras/cam-1/frame?ts=yesterday", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetFrame_EmptyHotBuffer(t *testing.T) {
	manager, _ := newTestManager(t, nil)
	startCamera(t, manager, "cam-1", 0)
	router := cameraRouter(NewCameraHandler(manager, true, 10*time.Second))

	w := perform(router, http.MethodGet, "/cameras/cam-1/frame", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetFrame_SegmentFallback(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	segments := &stubSegments{segments: []models.Segment{
		{CameraID: "cam-1", Name: "D2025-06-01-T10-00-00.mp4", Path: "/rec/cam-1/D2025-06-01-T10-00-00.mp4", StartTime: base, Duration: 10 * time.Second},
	}}
	var gotOffset time.Duration
	extract := func(path string, offset time.Duration, maxWidth, quality int) ([]byte, int, int, error) {
		gotOffset = offset
		return []byte("decoded"), 640, 360, nil
	}
	manager, _ := newTestManager(t, nil, camera.WithSegmentFallback(segments, extract))
	startCamera(t, manager, "cam-1", 0)
	router := cameraRouter(NewCameraHandler(manager, true, 10*time.Second))

	ts := base.Add(4500 * time.Millisecond).Format(time.RFC3339Nano)
	w := perform(router, http.MethodGet, "/cameras/cam-1/frame?ts="+url.QueryEscape(ts), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "decoded", w.Body.String())
	assert.Equal(t, string(camera.OriginSegment), w.Header().Get("X-Frame-Origin"))
	assert.Equal(t, "D2025-06-01-T10-00-00.mp4", w.Header().Get("X-Frame-Segment"))
	assert.Equal(t, 4500*time.Millisecond, gotOffset)

	t.Run("segment lookup failure", func(t *testing.T) {
		segments.err = errors.New("disk gone")
		w := perform(router, http.MethodGet, "/cameras/cam-1/frame?ts="+url.QueryEscape(ts), nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCameraStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, cameraStatus(camera.ErrCameraNotFound))
	assert.Equal(t, http.StatusNotFound, cameraStatus(camera.ErrFrameNotFound))
	assert.Equal(t, http.StatusConflict, cameraStatus(camera.ErrCameraExists))
	assert.Equal(t, http.StatusConflict, cameraStatus(camera.ErrInvalidState))
	assert.Equal(t, http.StatusBadRequest, cameraStatus(camera.ErrInvalidCamera))
	assert.Equal(t, http.StatusInternalServerError, cameraStatus(errors.New("boom")))
}
