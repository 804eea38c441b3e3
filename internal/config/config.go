package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/models"
)

const (
	BusNATS = "nats"
	BusMQTT = "mqtt"
)

type Config struct {
	// Application
	Version         string
	Environment     string
	WorkerID        string
	Port            int
	GRPCHealthPort  int
	LogLevel        string
	ShutdownTimeout time.Duration

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Message bus
	BusKind             string
	EventsTopicTemplate string // fmt template, %s is the camera id
	InternalEventsTopic string // prefix for published InternalEvents
	PublishInternal     bool

	// NATS
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running worker in Docker
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration

	// MQTT
	MQTTBroker         string
	MQTTClientID       string
	MQTTUsername       string
	MQTTPassword       string
	MQTTQoS            int
	MQTTConnectTimeout time.Duration

	// Cameras started at boot, "id=url,id=url"
	Cameras []models.CameraSpec

	// Hot buffer
	HotBufferSeconds        int
	HotBufferFPS            int
	HotBufferMaxBytes       int64
	HotBufferJPEGQuality    int
	HotBufferMaxWidth       int
	HotBufferMatchTolerance time.Duration

	// Capture loop
	CaptureOpenRetry   time.Duration
	CaptureReopenDelay time.Duration
	CaptureJoinTimeout time.Duration

	// Backoff/Jitter for reconnections (used when CaptureBackoff is "jitter")
	CaptureBackoff      string
	ReconnectBackoffMin time.Duration
	ReconnectBackoffMax time.Duration
	ReconnectJitterPct  int

	// Video Recording
	RecordingEnabled    bool
	FFmpegPath          string
	VideoOutputDir      string
	VideoSegmentSeconds int
	VideoMaxSegments    int // 0 keeps everything
	RecorderStopTimeout time.Duration

	// Ingestion
	RawLogEnabled   bool
	RawLogPath      string
	EventBufferSize int // 0 = unbounded

	// Redis stream sink
	RedisEnabled      bool
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisStream       string
	RedisStreamMaxLen int64
	RedisTimeout      time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	busKind := strings.ToLower(getEnv("BUS_KIND", BusNATS))

	cameras, err := ParseCameras(getEnv("CAMERAS", ""))
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed CAMERAS entries")
	}

	return &Config{
		// Application
		Version:         getEnv("VERSION", "1.0.0"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		WorkerID:        getEnv("WORKER_ID", "worker-1"),
		Port:            getEnvInt("PORT", 8000),
		GRPCHealthPort:  getEnvInt("GRPC_HEALTH_PORT", 8001),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Message bus
		BusKind:             busKind,
		EventsTopicTemplate: getEnv("EVENTS_TOPIC_TEMPLATE", defaultTopicTemplate(busKind)),
		InternalEventsTopic: getEnv("INTERNAL_EVENTS_SUBJECT_PREFIX", "events.internal"),
		PublishInternal:     getEnvBool("PUBLISH_INTERNAL_EVENTS", false),

		// NATS (configured for Docker Compose setup)
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),

		// MQTT
		MQTTBroker:         getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:       getEnv("MQTT_CLIENT_ID", "trackframe-"+getEnv("WORKER_ID", "worker-1")),
		MQTTUsername:       getEnv("MQTT_USERNAME", ""),
		MQTTPassword:       getEnv("MQTT_PASSWORD", ""),
		MQTTQoS:            getEnvInt("MQTT_QOS", 1),
		MQTTConnectTimeout: getEnvDuration("MQTT_CONNECT_TIMEOUT", 10*time.Second),

		Cameras: cameras,

		// Hot buffer
		HotBufferSeconds:        getEnvInt("HOT_BUFFER_SECONDS", 30),
		HotBufferFPS:            getEnvInt("HOT_BUFFER_FPS", 5),
		HotBufferMaxBytes:       getEnvInt64("HOT_BUFFER_MAX_BYTES", 50*1024*1024), // 50MB
		HotBufferJPEGQuality:    getEnvInt("HOT_BUFFER_JPEG_QUALITY", 70),
		HotBufferMaxWidth:       getEnvInt("HOT_BUFFER_MAX_WIDTH", 960),
		HotBufferMatchTolerance: getEnvDuration("HOT_BUFFER_MATCH_TOLERANCE", time.Second),

		// Capture loop
		CaptureOpenRetry:   getEnvDuration("CAPTURE_OPEN_RETRY", time.Second),
		CaptureReopenDelay: getEnvDuration("CAPTURE_REOPEN_DELAY", 300*time.Millisecond),
		CaptureJoinTimeout: getEnvDuration("CAPTURE_JOIN_TIMEOUT", 2*time.Second),

		// Backoff/Jitter
		CaptureBackoff:      getEnv("CAPTURE_BACKOFF", "fixed"),
		ReconnectBackoffMin: getEnvDuration("RECONNECT_BACKOFF_MIN", 1*time.Second),
		ReconnectBackoffMax: getEnvDuration("RECONNECT_BACKOFF_MAX", 30*time.Second),
		ReconnectJitterPct:  getEnvInt("RECONNECT_JITTER_PCT", 20),

		// Video Recording
		RecordingEnabled:    getEnvBool("RECORDING_ENABLED", true),
		FFmpegPath:          getEnv("FFMPEG_PATH", "ffmpeg"),
		VideoOutputDir:      getEnv("VIDEO_OUTPUT_DIR", "recordings"),
		VideoSegmentSeconds: getEnvInt("VIDEO_SEGMENT_SECONDS", 10),
		VideoMaxSegments:    getEnvInt("VIDEO_MAX_SEGMENTS", 360), // ~1 hour of 10s segments
		RecorderStopTimeout: getEnvDuration("RECORDER_STOP_TIMEOUT", 5*time.Second),

		// Ingestion
		RawLogEnabled:   getEnvBool("RAW_LOG_ENABLED", true),
		RawLogPath:      getEnv("RAW_LOG_PATH", "replay_out/raw_events.jsonl"),
		EventBufferSize: getEnvInt("EVENT_BUFFER_SIZE", 0),

		// Redis
		RedisEnabled:      getEnvBool("REDIS_ENABLED", false),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisStream:       getEnv("REDIS_STREAM", "trackframe:events"),
		RedisStreamMaxLen: getEnvInt64("REDIS_STREAM_MAXLEN", 10000),
		RedisTimeout:      getEnvDuration("REDIS_TIMEOUT", 2*time.Second),
	}
}

// Validate checks the settings the worker cannot run without
func (c *Config) Validate() error {
	if c.BusKind != BusNATS && c.BusKind != BusMQTT {
		return fmt.Errorf("unsupported BUS_KIND %q", c.BusKind)
	}
	if !strings.Contains(c.EventsTopicTemplate, "%s") {
		return fmt.Errorf("EVENTS_TOPIC_TEMPLATE %q must contain %%s", c.EventsTopicTemplate)
	}
	if c.HotBufferSeconds <= 0 || c.HotBufferFPS <= 0 {
		return fmt.Errorf("hot buffer seconds and fps must be positive")
	}
	if c.HotBufferMaxBytes <= 0 {
		return fmt.Errorf("HOT_BUFFER_MAX_BYTES must be positive")
	}
	if c.VideoSegmentSeconds <= 0 {
		return fmt.Errorf("VIDEO_SEGMENT_SECONDS must be positive")
	}
	return nil
}

// HotBufferMaxFrames is the frame budget implied by seconds x fps
func (c *Config) HotBufferMaxFrames() int {
	return c.HotBufferSeconds * c.HotBufferFPS
}

// EventsTopic returns the bus topic a camera publishes its events on
func (c *Config) EventsTopic(cameraID string) string {
	return fmt.Sprintf(c.EventsTopicTemplate, cameraID)
}

// SegmentDuration returns the recorder segment length
func (c *Config) SegmentDuration() time.Duration {
	return time.Duration(c.VideoSegmentSeconds) * time.Second
}

// ParseCameras parses "id=url,id=url". Entries ending in "!norec" skip recording.
func ParseCameras(value string) ([]models.CameraSpec, error) {
	var cameras []models.CameraSpec
	var bad []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, url, ok := strings.Cut(entry, "=")
		id, url = strings.TrimSpace(id), strings.TrimSpace(url)
		if !ok || id == "" || url == "" {
			bad = append(bad, entry)
			continue
		}
		record := true
		if trimmed, found := strings.CutSuffix(url, "!norec"); found {
			url, record = trimmed, false
		}
		cameras = append(cameras, models.CameraSpec{ID: id, StreamURL: url, Record: record})
	}
	if len(bad) > 0 {
		return cameras, fmt.Errorf("malformed camera entries: %s", strings.Join(bad, ", "))
	}
	return cameras, nil
}

func defaultTopicTemplate(busKind string) string {
	if busKind == BusMQTT {
		return "camera/%s"
	}
	return "camera.%s"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	// Check for Docker-specific environment indicators
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	// Check for .dockerenv file
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
