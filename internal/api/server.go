// Package api provides the HTTP API server implementation for the proxy.
// It includes the main server struct, routing setup, middleware for CORS and
// authentication, and integration of the OpenAI-compatible and management
// handlers. The server supports hot-reloading of its configuration.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samvilian/gemini-proxy-panel3/internal/api/handlers"
	managementHandlers "github.com/samvilian/gemini-proxy-panel3/internal/api/handlers/management"
	"github.com/samvilian/gemini-proxy-panel3/internal/api/handlers/openai"
	"github.com/samvilian/gemini-proxy-panel3/internal/api/middleware"
	"github.com/samvilian/gemini-proxy-panel3/internal/client"
	"github.com/samvilian/gemini-proxy-panel3/internal/config"
	"github.com/samvilian/gemini-proxy-panel3/internal/logging"
	"github.com/samvilian/gemini-proxy-panel3/internal/store"
	log "github.com/sirupsen/logrus"
)

// Server represents the main API server.
type Server struct {
	// engine is the Gin web framework engine instance.
	engine *gin.Engine

	// server is the underlying HTTP server.
	server *http.Server

	// handlers contains the shared dependencies for all endpoint handlers.
	handlers *handlers.BaseAPIHandler
}

// NewServer creates and initializes a new API server instance.
// It sets up the Gin engine, middleware, routes, and handlers.
func NewServer(cfg *config.Config, geminiClient *client.GeminiClient, kv *store.Store) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logging.GinAccessLog())
	engine.Use(logging.GinRecovery())
	engine.Use(corsMiddleware())

	s := &Server{
		engine:   engine,
		handlers: handlers.NewBaseAPIHandler(cfg, geminiClient, kv),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	return s
}

// setupRoutes configures the API routes for the server.
func (s *Server) setupRoutes() {
	openaiHandlers := openai.NewOpenAIAPIHandler(s.handlers)
	mgmtHandlers := managementHandlers.NewManagementAPIHandler(s.handlers)

	// OpenAI compatible API routes
	v1 := s.engine.Group("/v1")
	v1.Use(middleware.APIKeyAuth(s.handlers))
	{
		v1.GET("/models", openaiHandlers.OpenAIModels)
		v1.POST("/chat/completions", openaiHandlers.ChatCompletions)
	}

	// Worker key management routes
	mgmt := s.engine.Group("/management")
	mgmt.Use(mgmtHandlers.Auth())
	{
		mgmt.GET("/keys", mgmtHandlers.ListWorkerKeys)
		mgmt.POST("/keys", mgmtHandlers.CreateWorkerKey)
		mgmt.DELETE("/keys/:key", mgmtHandlers.DeleteWorkerKey)
	}

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Start begins listening for requests. It blocks until the server stops.
func (s *Server) Start() error {
	log.Infof("API server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// UpdateConfig propagates a reloaded configuration to the handlers.
func (s *Server) UpdateConfig(cfg *config.Config) {
	log.Info("applying reloaded configuration")
	s.handlers.UpdateConfig(cfg)
}

// corsMiddleware permits browser clients to call the proxy from any origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, x-api-key, x-management-key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
