package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tapestry-kg/tapestry"
	"github.com/tapestry-kg/tapestry/pkg/config"
	"github.com/tapestry-kg/tapestry/pkg/server/handlers"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	engine tapestry.Engine
	server *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, engine tapestry.Engine) *Server {
	return &Server{
		config: cfg,
		engine: engine,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	// Set gin mode
	gin.SetMode(s.config.Server.Mode)

	// Create router
	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.engine)
	graphHandler := handlers.NewGraphHandler(s.engine)
	queryHandler := handlers.NewQueryHandler(s.engine)
	analyticsHandler := handlers.NewAnalyticsHandler(s.engine)
	temporalHandler := handlers.NewTemporalHandler(s.engine)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		// Node and edge CRUD
		v1.POST("/nodes", graphHandler.CreateNode)
		v1.GET("/nodes/:id", graphHandler.GetNode)
		v1.PATCH("/nodes/:id", graphHandler.UpdateNode)
		v1.DELETE("/nodes/:id", graphHandler.DeleteNode)
		v1.POST("/edges", graphHandler.CreateEdge)
		v1.GET("/edges/:id", graphHandler.GetEdge)
		v1.PATCH("/edges/:id", graphHandler.UpdateEdge)
		v1.DELETE("/edges/:id", graphHandler.DeleteEdge)

		// Query routes
		q := v1.Group("/query")
		{
			q.POST("/nodes", queryHandler.QueryNodes)
			q.POST("/edges", queryHandler.QueryEdges)
			q.POST("/pattern", queryHandler.MatchPattern)
			q.POST("/path", queryHandler.FindPath)
			q.POST("/traverse", queryHandler.Traverse)
			q.POST("/subgraph", queryHandler.Subgraph)
			q.POST("/similar", queryHandler.FindSimilar)
			q.GET("/property", queryHandler.FindByProperty)
		}

		// Analytics routes
		a := v1.Group("/analytics")
		{
			a.POST("/centrality", analyticsHandler.Centrality)
			a.POST("/communities", analyticsHandler.Communities)
			a.POST("/similarity", analyticsHandler.Similarity)
			a.GET("/statistics", analyticsHandler.Statistics)
		}

		// Temporal routes
		tr := v1.Group("/temporal")
		{
			tr.POST("/slice", temporalHandler.TimeSlice)
			tr.POST("/changes", temporalHandler.TrackChange)
			tr.GET("/evolution/:id", temporalHandler.Evolution)
		}
	}
}

// Start starts the server
func (s *Server) Start() error {
	fmt.Printf("Starting server on %s\n", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	fmt.Println("Stopping server...")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextMiddleware stamps each request context with identifiers the
// telemetry handler reads back.
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = context.WithValue(ctx, types.ContextKeyRequestID, requestID)
		if clientID := c.GetHeader("X-Client-ID"); clientID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyClientID, clientID)
		}
		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
