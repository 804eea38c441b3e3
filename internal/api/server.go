package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"trackframe-worker-go/internal/api/handlers"
	"trackframe-worker-go/internal/api/middleware"
	"trackframe-worker-go/internal/config"
	"trackframe-worker-go/internal/logging"
	"trackframe-worker-go/internal/services"
)

type Server struct {
	config    *config.Config
	router    *gin.Engine
	server    *http.Server
	container *services.ServiceContainer

	grpcServer *grpc.Server
	health     *health.Server
	stopHealth chan struct{}
	healthDone chan struct{}

	healthHandler    *handlers.HealthHandler
	cameraHandler    *handlers.CameraHandler
	videoHandler     *handlers.VideoHandler
	ingestionHandler *handlers.IngestionHandler
	systemHandler    *handlers.SystemHandler
}

// NewServer builds the service container and the HTTP and gRPC health servers
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create services: %w", err)
	}

	s := &Server{
		config:     cfg,
		router:     gin.New(),
		container:  container,
		stopHealth: make(chan struct{}),
		healthDone: make(chan struct{}),
	}

	var bus handlers.BusStatus
	if container.Bus != nil {
		bus = container.Bus
	}
	var recorderHealth handlers.RecorderHealth
	var segments handlers.SegmentLister
	if container.Recorder != nil {
		recorderHealth = container.Recorder
		segments = container.Recorder
	}

	s.healthHandler = handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, bus, recorderHealth)
	s.cameraHandler = handlers.NewCameraHandler(container.CameraManager, cfg.RecordingEnabled, time.Duration(cfg.HotBufferSeconds)*time.Second)
	s.videoHandler = handlers.NewVideoHandler(segments)
	s.ingestionHandler = handlers.NewIngestionHandler(container.Ingestion, container.Events)
	s.systemHandler = handlers.NewSystemHandler(cfg.WorkerID)

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(logging.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

// Container exposes the services behind the API
func (s *Server) Container() *services.ServiceContainer {
	return s.container
}

// Start starts the configured cameras, the gRPC health server and the HTTP
// server. It blocks until the HTTP server stops.
func (s *Server) Start() error {
	if err := s.container.StartCameras(context.Background()); err != nil {
		log.Error().Err(err).Msg("Some configured cameras failed to start")
	}

	if err := s.startGRPCHealth(); err != nil {
		log.Error().Err(err).Int("port", s.config.GRPCHealthPort).Msg("gRPC health server not started")
	}

	log.Info().Int("port", s.config.Port).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server, then the health server, then all services
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down server")

	var errs []error
	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	s.stopGRPCHealth()

	if err := s.container.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
