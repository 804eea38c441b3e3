package models

import (
	"time"
)

// CameraState represents the camera engine lifecycle state
type CameraState int32

const (
	CameraStopped CameraState = iota
	CameraStarting
	CameraRunning
	CameraStopping
)

// String returns the string representation of CameraState
func (s CameraState) String() string {
	switch s {
	case CameraStopped:
		return "stopped"
	case CameraStarting:
		return "starting"
	case CameraRunning:
		return "running"
	case CameraStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// CameraSpec is the static configuration of one camera
type CameraSpec struct {
	ID        string
	StreamURL string
	Record    bool
}

// HotBufferStats reports the fill level of a camera's hot buffer
type HotBufferStats struct {
	Frames    int   `json:"frames"`
	Bytes     int64 `json:"bytes"`
	MaxFrames int   `json:"max_frames"`
	MaxBytes  int64 `json:"max_bytes"`
}

// CameraRequest for API
type CameraRequest struct {
	CameraID string `json:"camera_id" binding:"required"`
	URL      string `json:"url" binding:"required"`
	Record   *bool  `json:"record,omitempty"` // Optional, defaults to config
}

// CameraResponse for API
type CameraResponse struct {
	CameraID    string         `json:"camera_id"`
	URL         string         `json:"url"`
	State       string         `json:"state"`
	IsRecording bool           `json:"is_recording"`
	StartedAt   *time.Time     `json:"started_at"`
	Capture     CaptureStats   `json:"capture"`
	Listener    ListenerStats  `json:"listener"`
	HotBuffer   HotBufferStats `json:"hot_buffer"`
}

// CaptureStats counts capture loop activity
type CaptureStats struct {
	FramesKept    int64      `json:"frames_kept"`
	FramesDropped int64      `json:"frames_dropped"`
	Reconnects    int64      `json:"reconnects"`
	OpenFailures  int64      `json:"open_failures"`
	LastFrameTime *time.Time `json:"last_frame_time"`
}

// ListenerStats counts live bus messages for one camera
type ListenerStats struct {
	Received  int64 `json:"received"`
	Malformed int64 `json:"malformed"`
	Accepted  int64 `json:"accepted"`
}
