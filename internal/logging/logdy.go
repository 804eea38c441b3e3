package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/config"

	"github.com/logdyhq/logdy-core/logdy"
)

type logdyWriter struct {
	logger logdy.Logdy
}

func (w *logdyWriter) Write(p []byte) (n int, err error) {
	// Forward raw line to Logdy UI
	w.logger.LogString(string(p))
	return len(p), nil
}

// StartLogdy starts embedded Logdy web UI and returns a writer to tee logs, plus the UI URL
func StartLogdy(cfg *config.Config) (io.Writer, string, error) {
	if cfg.LogdyPort <= 0 || cfg.LogdyPort > 65535 {
		return nil, "", fmt.Errorf("invalid logdy port %d", cfg.LogdyPort)
	}
	portStr := strconv.Itoa(cfg.LogdyPort)
	ld := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: portStr,
	}, nil)

	url := fmt.Sprintf("http://%s:%s", cfg.LogdyHost, portStr)
	log.Info().Str("url", url).Msg("Logdy UI available")
	return &logdyWriter{logger: ld}, url, nil
}

// Setup configures the global logger: console output, level, optional Logdy tee
func Setup(cfg *config.Config) {
	setup(cfg, zerolog.ConsoleWriter{Out: os.Stderr})
}

func setup(cfg *config.Config, console io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	out := console

	var logdyErr error
	if cfg.LogdyEnabled {
		// Logdy gets plain JSON lines so its UI can parse fields
		w, _, err := StartLogdy(cfg)
		if err == nil {
			out = zerolog.MultiLevelWriter(out, w)
		}
		logdyErr = err
	}
	log.Logger = log.Output(out)
	if logdyErr != nil {
		log.Warn().Err(logdyErr).Msg("Logdy UI could not be started, logging to console only")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
