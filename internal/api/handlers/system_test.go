package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemStats(t *testing.T) {
	h := NewSystemHandler("worker-9")
	r := gin.New()
	r.GET("/system/stats", h.GetStats)

	w := perform(r, http.MethodGet, "/system/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[SystemStatsResponse](t, w)
	assert.Equal(t, "worker-9", resp.WorkerID)
	assert.Positive(t, resp.CPUCores)
	assert.Positive(t, resp.Goroutines)
	assert.NotEmpty(t, resp.GoVersion)
}
