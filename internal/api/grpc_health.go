package api

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthPollInterval = 5 * time.Second

// startGRPCHealth serves grpc.health.v1 for orchestrators that check health over gRPC.
// The overall status follows the message bus connection.
func (s *Server) startGRPCHealth() error {
	if s.config.GRPCHealthPort <= 0 {
		close(s.healthDone)
		return nil
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.GRPCHealthPort))
	if err != nil {
		close(s.healthDone)
		return fmt.Errorf("listen on gRPC health port: %w", err)
	}

	s.grpcServer = grpc.NewServer()
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.updateHealth()

	go func() {
		log.Info().Int("port", s.config.GRPCHealthPort).Msg("Starting gRPC health server")
		if err := s.grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC health server stopped")
		}
	}()

	go func() {
		defer close(s.healthDone)
		ticker := time.NewTicker(healthPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopHealth:
				return
			case <-ticker.C:
				s.updateHealth()
			}
		}
	}()

	return nil
}

func (s *Server) updateHealth() {
	status := healthpb.HealthCheckResponse_SERVING
	if bus := s.container.Bus; bus == nil || !bus.IsConnected() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
}

func (s *Server) stopGRPCHealth() {
	select {
	case <-s.stopHealth:
		return
	default:
		close(s.stopHealth)
	}
	if s.grpcServer == nil {
		return
	}
	<-s.healthDone
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
