package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackframe-worker-go/internal/config"
)

func restoreGlobalLogger(t *testing.T) {
	logger := log.Logger
	level := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})
}

func TestStartLogdy_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		w, url, err := StartLogdy(&config.Config{LogdyHost: "127.0.0.1", LogdyPort: port})
		require.Error(t, err)
		assert.Nil(t, w)
		assert.Empty(t, url)
	}
}

func TestSetup_LogdyFailureIsReported(t *testing.T) {
	restoreGlobalLogger(t)

	var console bytes.Buffer
	setup(&config.Config{LogLevel: "info", LogdyEnabled: true, LogdyHost: "127.0.0.1", LogdyPort: 0}, &console)

	assert.Contains(t, console.String(), "Logdy UI could not be started")
	assert.Contains(t, console.String(), "invalid logdy port 0")

	console.Reset()
	log.Info().Msg("after setup")
	assert.Contains(t, console.String(), "after setup")
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	restoreGlobalLogger(t)

	var console bytes.Buffer
	setup(&config.Config{LogLevel: "loud"}, &console)

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.Contains(t, console.String(), "Invalid log level")
	assert.NotContains(t, console.String(), "Logdy")
}
