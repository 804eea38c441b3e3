package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/config"
	"trackframe-worker-go/internal/services/camera"
	"trackframe-worker-go/internal/services/ingestion"
	"trackframe-worker-go/internal/services/ingestion/dispatch"
	"trackframe-worker-go/internal/services/ingestion/rawlog"
	"trackframe-worker-go/internal/services/messaging"
	"trackframe-worker-go/internal/services/recorder"
	"trackframe-worker-go/internal/services/streamcapture"
	"trackframe-worker-go/internal/services/streamcapture/opencv"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config        *config.Config
	Bus           messaging.Bus // nil when the bus was unreachable at startup
	Events        *dispatch.Buffer
	RawLog        *rawlog.Store
	Ingestion     *ingestion.Service
	Recorder      *recorder.Service // nil when recording is disabled
	Capture       *streamcapture.Service
	CameraManager *camera.Manager

	redisStream *dispatch.RedisStream
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	sc := &ServiceContainer{Config: cfg}

	// Try to connect, but run without live events if the bus is not available
	bus, err := messaging.Connect(cfg)
	if err != nil {
		log.Warn().Err(err).Str("bus", cfg.BusKind).Msg("Message bus not available, live events disabled")
	} else {
		sc.Bus = bus
	}

	dispatcher, err := sc.buildDispatcher()
	if err != nil {
		sc.Shutdown(context.Background())
		return nil, err
	}

	var opts []ingestion.Option
	if cfg.RawLogEnabled {
		store, err := rawlog.Open(cfg.RawLogPath)
		if err != nil {
			sc.Shutdown(context.Background())
			return nil, err
		}
		sc.RawLog = store
		opts = append(opts, ingestion.WithRawSink(store))
	}

	sc.Ingestion, err = ingestion.NewService(dispatcher, opts...)
	if err != nil {
		sc.Shutdown(context.Background())
		return nil, err
	}

	deps := camera.Deps{Handler: sc.Ingestion}
	var managerOpts []camera.ManagerOption

	if cfg.RecordingEnabled {
		var segmentPublisher messaging.Publisher
		if sc.Bus != nil {
			segmentPublisher = sc.Bus
		}
		sc.Recorder = recorder.NewService(cfg, segmentPublisher)
		deps.Recorder = sc.Recorder
		managerOpts = append(managerOpts, camera.WithSegmentFallback(sc.Recorder, opencv.ExtractFrame))
	}

	sc.Capture = streamcapture.NewService(cfg, opencv.NewOpener())
	deps.Capture = sc.Capture

	if sc.Bus != nil {
		deps.Subscriber = sc.Bus
	}

	sc.CameraManager = camera.NewManager(cfg, deps, managerOpts...)

	return sc, nil
}

// buildDispatcher fans internal events out to the in-process buffer and the
// optional bus and Redis sinks.
func (sc *ServiceContainer) buildDispatcher() (dispatch.Dispatcher, error) {
	cfg := sc.Config
	sc.Events = dispatch.NewBuffer(cfg.EventBufferSize)
	sinks := dispatch.Fanout{sc.Events}

	if cfg.PublishInternal {
		if sc.Bus == nil {
			log.Warn().Msg("Internal event publishing requested but the bus is not connected")
		} else {
			sinks = append(sinks, dispatch.NewPublisher(sc.Bus, cfg.InternalEventsTopic))
		}
	}

	if cfg.RedisEnabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RedisTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		sc.redisStream = dispatch.NewRedisStream(client, cfg.RedisStream, cfg.RedisStreamMaxLen, cfg.RedisTimeout)
		sinks = append(sinks, sc.redisStream)
		log.Info().Str("addr", cfg.RedisAddr).Str("stream", cfg.RedisStream).Msg("Redis event stream enabled")
	}

	return sinks, nil
}

// StartCameras starts the cameras configured at boot
func (sc *ServiceContainer) StartCameras(ctx context.Context) error {
	if len(sc.Config.Cameras) == 0 {
		return nil
	}
	return sc.CameraManager.StartAll(ctx, sc.Config.Cameras)
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	// Cameras first so capture and listeners stop before the bus goes away
	if sc.CameraManager != nil {
		if err := sc.CameraManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("camera manager: %w", err))
		}
	}

	if sc.Recorder != nil {
		if err := sc.Recorder.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("recorder: %w", err))
		}
	}

	if sc.Bus != nil {
		if err := sc.Bus.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("message bus: %w", err))
		}
	}

	if sc.redisStream != nil {
		if err := sc.redisStream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	if sc.RawLog != nil {
		if err := sc.RawLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("raw log: %w", err))
		}
	}

	return errors.Join(errs...)
}
