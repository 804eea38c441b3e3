package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cameras := s.router.Group("/cameras")
	{
		cameras.GET("", s.cameraHandler.ListCameras)
		cameras.POST("", s.cameraHandler.StartCamera)
		cameras.DELETE("/:camera_id", s.cameraHandler.StopCamera)
		cameras.GET("/:camera_id/status", s.cameraHandler.GetCamera)
		cameras.GET("/:camera_id/hotbuffer/stats", s.cameraHandler.GetHotBufferStats)
		cameras.GET("/:camera_id/hotbuffer/frames", s.cameraHandler.GetHotBufferFrames)
		cameras.GET("/:camera_id/frame", s.cameraHandler.GetFrame)
	}

	videos := s.router.Group("/videos")
	{
		videos.GET("/:camera_id/segments", s.videoHandler.GetCameraSegments)
	}

	ingestion := s.router.Group("/ingestion")
	{
		ingestion.POST("/replay", s.ingestionHandler.Replay)
		ingestion.GET("/stats", s.ingestionHandler.GetStats)
		ingestion.GET("/events", s.ingestionHandler.GetEvents)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}
}
