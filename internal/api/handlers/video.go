package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trackframe-worker-go/internal/logging"
	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/camera"
)

// SegmentLister lists the recorded segments of a camera
type SegmentLister interface {
	Segments(cameraID string) ([]models.Segment, error)
}

type VideoHandler struct {
	segments SegmentLister
}

// NewVideoHandler creates the video handler. segments is nil when recording is disabled.
func NewVideoHandler(segments SegmentLister) *VideoHandler {
	return &VideoHandler{segments: segments}
}

type SegmentsResponse struct {
	CameraID      string           `json:"camera_id"`
	TotalSegments int              `json:"total_segments"`
	TotalSize     int64            `json:"total_size_bytes"`
	EarliestTime  *time.Time       `json:"earliest_time,omitempty"`
	LatestTime    *time.Time       `json:"latest_time,omitempty"`
	Segments      []models.Segment `json:"segments"`
}

// GetCameraSegments godoc
// @Summary Get recorded video segments for a camera
// @Description List recorded segments, oldest first. limit keeps the newest N segments.
// @Tags videos
// @Produce json
// @Param camera_id path string true "Camera ID"
// @Param limit query int false "Maximum number of segments to return (newest kept)"
// @Success 200 {object} SegmentsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /videos/{camera_id}/segments [get]
func (h *VideoHandler) GetCameraSegments(c *gin.Context) {
	if h.segments == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "recording is disabled"})
		return
	}

	cameraID := c.Param("camera_id")
	if err := camera.ValidateCameraID(cameraID); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	segments, err := h.segments.Segments(cameraID)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to list segments")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if segments == nil {
		segments = []models.Segment{}
	}

	resp := SegmentsResponse{CameraID: cameraID, TotalSegments: len(segments)}
	for _, seg := range segments {
		resp.TotalSize += seg.SizeBytes
	}
	if len(segments) > 0 {
		earliest := segments[0].StartTime
		latest := segments[len(segments)-1].EndTime()
		resp.EarliestTime = &earliest
		resp.LatestTime = &latest
	}

	if limit > 0 && len(segments) > limit {
		segments = segments[len(segments)-limit:]
	}
	resp.Segments = segments

	c.JSON(http.StatusOK, resp)
}
