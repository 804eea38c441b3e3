package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BusStatus reports the message bus connection
type BusStatus interface {
	Kind() string
	IsConnected() bool
}

// RecorderHealth reports recording process health per camera
type RecorderHealth interface {
	HealthCheck() map[string]string
}

type HealthHandler struct {
	WorkerID string
	Version  string
	bus      BusStatus
	recorder RecorderHealth
}

// NewHealthHandler creates the health handler. bus and recorder may be nil.
func NewHealthHandler(workerID, version string, bus BusStatus, recorder RecorderHealth) *HealthHandler {
	return &HealthHandler{
		WorkerID: workerID,
		Version:  version,
		bus:      bus,
		recorder: recorder,
	}
}

type ErrorResponse struct {
	Error string `json:"error" example:"camera not found"`
}

type HealthResponse struct {
	Status       string            `json:"status" example:"healthy"`
	WorkerID     string            `json:"worker_id" example:"worker-1"`
	Bus          string            `json:"bus,omitempty" example:"nats"`
	BusConnected bool              `json:"bus_connected"`
	Recorders    map[string]string `json:"recorders,omitempty"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"worker-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the worker is healthy. The worker is degraded when the message bus is disconnected or a recorder has exited.
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:   "healthy",
		WorkerID: h.WorkerID,
	}

	if h.bus != nil {
		resp.Bus = h.bus.Kind()
		resp.BusConnected = h.bus.IsConnected()
	}
	if h.bus == nil || !resp.BusConnected {
		resp.Status = "degraded"
	}

	if h.recorder != nil {
		resp.Recorders = h.recorder.HealthCheck()
		for _, state := range resp.Recorders {
			if state != "running" {
				resp.Status = "degraded"
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	capabilities := []string{"event_ingestion", "event_replay", "hot_buffer"}
	if h.bus != nil {
		capabilities = append(capabilities, "live_events")
	}
	if h.recorder != nil {
		capabilities = append(capabilities, "segment_recording")
	}

	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID:     h.WorkerID,
		Status:       "running",
		Version:      h.Version,
		Capabilities: capabilities,
	})
}
