package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trackframe-worker-go/internal/logging"
	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/camera"
)

// maxWindowSeconds is the longest window a time.Duration can hold
const maxWindowSeconds = float64(math.MaxInt64 / int64(time.Second))

type CameraHandler struct {
	cameraManager *camera.Manager
	recordDefault bool
	window        time.Duration
}

// NewCameraHandler creates the camera handler. recordDefault applies to
// requests without an explicit record flag; window is the default hot
// buffer frame listing window.
func NewCameraHandler(cameraManager *camera.Manager, recordDefault bool, window time.Duration) *CameraHandler {
	return &CameraHandler{
		cameraManager: cameraManager,
		recordDefault: recordDefault,
		window:        window,
	}
}

type CameraListResponse struct {
	Cameras []models.CameraResponse `json:"cameras"`
	Count   int                     `json:"count"`
}

type FramesResponse struct {
	CameraID string             `json:"camera_id"`
	Window   float64            `json:"window_seconds"`
	Count    int                `json:"count"`
	Frames   []models.FrameInfo `json:"frames"`
}

// cameraStatus maps manager errors to HTTP status codes
func cameraStatus(err error) int {
	switch {
	case errors.Is(err, camera.ErrCameraNotFound), errors.Is(err, camera.ErrFrameNotFound):
		return http.StatusNotFound
	case errors.Is(err, camera.ErrCameraExists), errors.Is(err, camera.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, camera.ErrInvalidCamera):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// StartCamera starts a camera
// @Summary Start a camera
// @Description Start the recorder, hot buffer capture and live event listener for a camera
// @Tags cameras
// @Accept json
// @Produce json
// @Param request body models.CameraRequest true "Camera configuration"
// @Success 201 {object} models.CameraResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /cameras [post]
func (h *CameraHandler) StartCamera(c *gin.Context) {
	var req models.CameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Warn(c).Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	record := h.recordDefault
	if req.Record != nil {
		record = *req.Record
	}

	engine, err := h.cameraManager.Start(c.Request.Context(), models.CameraSpec{
		ID:        req.CameraID,
		StreamURL: req.URL,
		Record:    record,
	})
	if err != nil {
		logging.Error(c).Err(err).Str("camera_id", req.CameraID).Msg("Failed to start camera")
		c.JSON(cameraStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Str("camera_id", req.CameraID).Bool("record", record).Msg("Camera started")
	c.JSON(http.StatusCreated, engine.Status())
}

// StopCamera stops and removes a camera
// @Summary Stop a camera
// @Description Stop capture, listener and recorder for a camera and forget it
// @Tags cameras
// @Produce json
// @Param camera_id path string true "Camera ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /cameras/{camera_id} [delete]
func (h *CameraHandler) StopCamera(c *gin.Context) {
	cameraID := c.Param("camera_id")

	if err := h.cameraManager.Remove(cameraID); err != nil {
		logging.Error(c).Err(err).Msg("Failed to stop camera")
		c.JSON(cameraStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Msg("Camera stopped")
	c.JSON(http.StatusOK, gin.H{"message": "Camera stopped successfully", "camera_id": cameraID})
}

// ListCameras lists all cameras
// @Summary List all cameras
// @Tags cameras
// @Produce json
// @Success 200 {object} CameraListResponse
// @Router /cameras [get]
func (h *CameraHandler) ListCameras(c *gin.Context) {
	cameras := h.cameraManager.List()
	c.JSON(http.StatusOK, CameraListResponse{Cameras: cameras, Count: len(cameras)})
}

// GetCamera gets camera status
// @Summary Get camera status
// @Tags cameras
// @Produce json
// @Param camera_id path string true "Camera ID"
// @Success 200 {object} models.CameraResponse
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{camera_id}/status [get]
func (h *CameraHandler) GetCamera(c *gin.Context) {
	engine, err := h.cameraManager.Get(c.Param("camera_id"))
	if err != nil {
		c.JSON(cameraStatus(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, engine.Status())
}

// GetHotBufferStats gets the hot buffer fill level
// @Summary Get hot buffer stats
// @Tags hotbuffer
// @Produce json
// @Param camera_id path string true "Camera ID"
// @Success 200 {object} models.HotBufferStats
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{camera_id}/hotbuffer/stats [get]
func (h *CameraHandler) GetHotBufferStats(c *gin.Context) {
	engine, err := h.cameraManager.Get(c.Param("camera_id"))
	if err != nil {
		c.JSON(cameraStatus(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, engine.HotBufferStats())
}

// GetHotBufferFrames lists the metadata of recent hot buffer frames
// @Summary List recent hot buffer frames
// @Description Frame metadata (no image bytes) captured within the last N seconds
// @Tags hotbuffer
// @Produce json
// @Param camera_id path string true "Camera ID"
// @Param seconds query number false "Window in seconds (default: hot buffer length)"
// @Success 200 {object} FramesResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{camera_id}/hotbuffer/frames [get]
func (h *CameraHandler) GetHotBufferFrames(c *gin.Context) {
	cameraID := c.Param("camera_id")
	engine, err := h.cameraManager.Get(cameraID)
	if err != nil {
		c.JSON(cameraStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	window := h.window
	if secondsStr := c.Query("seconds"); secondsStr != "" {
		seconds, err := strconv.ParseFloat(secondsStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "seconds must be a number"})
			return
		}
		if math.IsNaN(seconds) || seconds < 0 || seconds > maxWindowSeconds {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "seconds is out of range"})
			return
		}
		window = time.Duration(seconds * float64(time.Second))
	}

	frames := engine.HotBufferFrames(window)
	infos := make([]models.FrameInfo, 0, len(frames))
	for _, f := range frames {
		infos = append(infos, f.Info())
	}

	c.JSON(http.StatusOK, FramesResponse{
		CameraID: cameraID,
		Window:   window.Seconds(),
		Count:    len(infos),
		Frames:   infos,
	})
}

// GetFrame returns a JPEG frame
// @Summary Get a frame
// @Description Nearest hot buffer frame to ts, falling back to the recorded segment covering ts. Without ts the latest frame is returned.
// @Tags hotbuffer
// @Produce image/jpeg
// @Param camera_id path string true "Camera ID"
// @Param ts query string false "RFC3339 timestamp"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{camera_id}/frame [get]
func (h *CameraHandler) GetFrame(c *gin.Context) {
	cameraID := c.Param("camera_id")

	tsStr := c.Query("ts")
	if tsStr == "" {
		engine, err := h.cameraManager.Get(cameraID)
		if err != nil {
			c.JSON(cameraStatus(err), ErrorResponse{Error: err.Error()})
			return
		}
		frame, ok := engine.LatestFrame()
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "hot buffer is empty"})
			return
		}
		writeFrame(c, frame, camera.OriginHotBuffer)
		return
	}

	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "ts must be an RFC3339 timestamp"})
		return
	}

	match, err := h.cameraManager.FrameAt(cameraID, ts)
	if err != nil {
		status := cameraStatus(err)
		if status == http.StatusInternalServerError {
			logging.Error(c).Err(err).Time("ts", ts).Msg("Failed to fetch frame")
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	if match.Segment != "" {
		c.Header("X-Frame-Segment", match.Segment)
	}
	writeFrame(c, match.Frame, match.Origin)
}

func writeFrame(c *gin.Context, frame models.BufferedFrame, origin camera.FrameOrigin) {
	c.Header("X-Frame-Timestamp", frame.Timestamp.UTC().Format(time.RFC3339Nano))
	c.Header("X-Frame-Origin", string(origin))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", frame.EncodedBytes)
}
