package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trackframe-worker-go/internal/logging"
	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/ingestion"
	"trackframe-worker-go/internal/services/ingestion/source"
)

// Ingestor runs replays and reports ingestion counters
type Ingestor interface {
	RunReplay(path string) (int, error)
	Stats() ingestion.Stats
}

// EventQueue hands out dispatched internal events
type EventQueue interface {
	Drain(max int) []models.InternalEvent
	Len() int
	Dropped() int64
}

type IngestionHandler struct {
	ingestor Ingestor
	events   EventQueue
}

func NewIngestionHandler(ingestor Ingestor, events EventQueue) *IngestionHandler {
	return &IngestionHandler{ingestor: ingestor, events: events}
}

type ReplayRequest struct {
	Path string `json:"path" binding:"required" example:"replay/tracks.jsonl"`
}

type ReplayResponse struct {
	Path       string `json:"path"`
	Dispatched int    `json:"dispatched"`
}

type IngestionStatsResponse struct {
	ingestion.Stats
	Queued  int   `json:"queued"`
	Dropped int64 `json:"dropped"`
}

type EventsResponse struct {
	Count     int                    `json:"count"`
	Remaining int                    `json:"remaining"`
	Events    []models.InternalEvent `json:"events"`
}

// Replay feeds a replay file through ingestion
// @Summary Replay an event file
// @Description Feed a JSON Lines, JSON array or single JSON object file through ingestion
// @Tags ingestion
// @Accept json
// @Produce json
// @Param request body ReplayRequest true "Replay file on the worker"
// @Success 200 {object} ReplayResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /ingestion/replay [post]
func (h *IngestionHandler) Replay(c *gin.Context) {
	var req ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	count, err := h.ingestor.RunReplay(req.Path)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			status = http.StatusNotFound
		case errors.Is(err, source.ErrMalformedReplay):
			status = http.StatusUnprocessableEntity
		}
		logging.Warn(c).Err(err).Str("replay_file", req.Path).Msg("Replay failed")
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Str("replay_file", req.Path).Int("dispatched", count).Msg("Replay finished")
	c.JSON(http.StatusOK, ReplayResponse{Path: req.Path, Dispatched: count})
}

// GetStats returns ingestion counters
// @Summary Ingestion statistics
// @Tags ingestion
// @Produce json
// @Success 200 {object} IngestionStatsResponse
// @Router /ingestion/stats [get]
func (h *IngestionHandler) GetStats(c *gin.Context) {
	resp := IngestionStatsResponse{Stats: h.ingestor.Stats()}
	if h.events != nil {
		resp.Queued = h.events.Len()
		resp.Dropped = h.events.Dropped()
	}
	c.JSON(http.StatusOK, resp)
}

// GetEvents pulls dispatched internal events off the queue
// @Summary Pull internal events
// @Description Removes and returns up to limit queued internal events, oldest first
// @Tags ingestion
// @Produce json
// @Param limit query int false "Maximum events to return (default: 100)"
// @Success 200 {object} EventsResponse
// @Failure 400 {object} ErrorResponse
// @Router /ingestion/events [get]
func (h *IngestionHandler) GetEvents(c *gin.Context) {
	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	events := []models.InternalEvent{}
	remaining := 0
	if h.events != nil {
		if drained := h.events.Drain(limit); len(drained) > 0 {
			events = drained
		}
		remaining = h.events.Len()
	}

	c.JSON(http.StatusOK, EventsResponse{Count: len(events), Remaining: remaining, Events: events})
}
