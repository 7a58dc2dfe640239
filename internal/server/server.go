package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/config"
	"github.com/fixturefox/fixturefox/internal/services"
)

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config    *config.Config
	container *services.Container
	router    *gin.Engine
	server    *http.Server
	logger    *logrus.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(cfg *config.Config, container *services.Container) *HTTPServer {
	// Set Gin mode based on configuration
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	server := &HTTPServer{
		config:    cfg,
		container: container,
		router:    router,
		logger:    container.Logger(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	return server
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Infof("Starting HTTP server on port %d", s.config.Server.Port)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown() error {
	s.logger.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// setupMiddleware configures middleware
func (s *HTTPServer) setupMiddleware() {
	// Logger middleware
	s.router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.TimeStamp.Format("2006-01-02 15:04:05"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))

	// Recovery middleware
	s.router.Use(gin.Recovery())

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Cache-Control, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Request ID middleware
	s.router.Use(func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("%d", time.Now().UnixNano())
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	})
}

// setupRoutes configures all API routes
func (s *HTTPServer) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.healthCheckHandler)

	// API v1 routes
	v1 := s.router.Group("/api/v1")

	// WebSocket endpoint
	v1.GET("/ws", s.websocketHandler)

	// System status
	v1.GET("/system/status", s.systemStatusHandler)

	// Source management
	sourceGroup := v1.Group("/sources")
	{
		sourceHandler := NewSourceHandler(s.container)
		sourceGroup.GET("", sourceHandler.ListSources)
		sourceGroup.POST("", sourceHandler.CreateSource)
		sourceGroup.GET("/:id", sourceHandler.GetSource)
		sourceGroup.PUT("/:id", sourceHandler.UpdateSource)
		sourceGroup.DELETE("/:id", sourceHandler.DeleteSource)
		sourceGroup.GET("/health", sourceHandler.GetHealthSummaries)
		sourceGroup.GET("/:id/health", sourceHandler.GetSourceHealth)
	}

	// Quality profiles and format rules
	profileGroup := v1.Group("/profiles")
	{
		profileHandler := NewProfileHandler(s.container)
		profileGroup.GET("", profileHandler.ListProfiles)
		profileGroup.POST("", profileHandler.SaveProfile)
		profileGroup.GET("/:id", profileHandler.GetProfile)
		profileGroup.GET("/rules", profileHandler.ListRules)
		profileGroup.POST("/rules", profileHandler.SaveRule)
	}

	// Release decisions and the rejection ledger
	releaseGroup := v1.Group("/releases")
	{
		releaseHandler := NewReleaseHandler(s.container)
		releaseGroup.POST("/evaluate", releaseHandler.EvaluateFeed)
		releaseGroup.GET("/cached", releaseHandler.LookupCached)
		releaseGroup.POST("/blocklist", releaseHandler.AddToBlocklist)
	}

	// Import queue management
	importGroup := v1.Group("/imports")
	{
		importHandler := NewImportHandler(s.container)
		importGroup.POST("/match", importHandler.MatchImport)
		importGroup.GET("/pending", importHandler.ListPending)
		importGroup.POST("/:id/claim", importHandler.ClaimImport)
		importGroup.POST("/:id/complete", importHandler.CompleteImport)
		importGroup.POST("/:id/reject", importHandler.RejectImport)
	}
}

// healthCheckHandler handles infrastructure health check requests
func (s *HTTPServer) healthCheckHandler(c *gin.Context) {
	status := s.container.HealthCheck(c.Request.Context())

	code := http.StatusOK
	for _, v := range status {
		if v != "ok" {
			code = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, gin.H{
		"status":     status,
		"timestamp":  time.Now().UTC(),
		"connections": s.container.EventsHub().GetClientCount(),
	})
}

// systemStatusHandler reports application-level status
func (s *HTTPServer) systemStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"environment": s.config.Environment,
		"timestamp":   time.Now().UTC(),
		"websocket_clients": s.container.EventsHub().GetClientCount(),
	})
}

// websocketHandler upgrades the connection and hands it to the events hub
func (s *HTTPServer) websocketHandler(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = fmt.Sprintf("client_%d", time.Now().UnixNano())
	}

	s.container.EventsHub().HandleWebSocket(c.Writer, c.Request, clientID)
}
