package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID  string
	startedAt time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(workerID string) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startedAt: time.Now(),
	}
}

type SystemStatsResponse struct {
	WorkerID      string  `json:"worker_id"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	MemoryMB      uint64  `json:"memory_mb"`
	CPUCores      int     `json:"cpu_cores"`
	Goroutines    int     `json:"goroutines"`
	GoVersion     string  `json:"go_version"`
	Timestamp     int64   `json:"timestamp"`
}

// @Summary Get system stats
// @Description Get process statistics of the worker
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} SystemStatsResponse
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, SystemStatsResponse{
		WorkerID:      h.WorkerID,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		MemoryMB:      m.Alloc / 1024 / 1024,
		CPUCores:      runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		Timestamp:     time.Now().Unix(),
	})
}
