package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/fdalert/internal/api/handlers"
	"github.com/your-org/fdalert/internal/api/ws"
	"github.com/your-org/fdalert/internal/auth"
)

type RouterConfig struct {
	APIKey     string
	Ledger     handlers.AlertLedger
	Events     handlers.EventLister
	Configs    handlers.ConfigStore
	Control    handlers.ControlPublisher
	Status     handlers.StatusPublisher
	Detections handlers.DetectionPublisher
	Checks     []handlers.Check
	Hub        *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks...)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))
	v1.Use(auth.OwnerMiddleware())

	// WebSocket
	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	// Alerts
	alertH := handlers.NewAlertHandler(cfg.Ledger)
	v1.GET("/alerts", alertH.List)
	v1.POST("/alerts/:id/acknowledge", alertH.Acknowledge)

	// Events
	eventH := handlers.NewEventHandler(cfg.Events)
	v1.GET("/events", eventH.List)

	// Configuration
	configH := handlers.NewConfigHandler(cfg.Configs)
	v1.GET("/config", configH.Get)
	v1.PUT("/config", configH.Put)
	v1.GET("/notifications/permission", configH.GetPermission)
	v1.POST("/notifications/permission", configH.SetPermission)

	// Cameras
	cameraH := handlers.NewCameraHandler(cfg.Control, cfg.Status)
	v1.POST("/cameras/:id/start", cameraH.Start)
	v1.POST("/cameras/:id/stop", cameraH.Stop)

	// Detections
	detectionH := handlers.NewDetectionHandler(cfg.Detections)
	v1.POST("/detections", detectionH.Create)

	return r
}
