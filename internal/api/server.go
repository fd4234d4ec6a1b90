// Package api exposes the analysis engine over HTTP and WebSocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trading-psychology-engine/internal/analyzer"
	"trading-psychology-engine/internal/cache"
	"trading-psychology-engine/internal/database"
	"trading-psychology-engine/internal/events"
	"trading-psychology-engine/internal/logging"
	"trading-psychology-engine/internal/nlp"
	"trading-psychology-engine/internal/session"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	ProductionMode bool     `json:"production_mode"`
	AllowedOrigins []string `json:"allowed_origins"`
	RateLimit      int      `json:"rate_limit"` // requests per minute per endpoint
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      ServerConfig
	engine      *nlp.Engine
	active      *analyzer.Active
	passive     *analyzer.Passive
	tracker     *session.Tracker
	db          *database.DB        // nil when persistence is disabled
	cache       *cache.CacheService // nil when caching is disabled
	eventBus    *events.EventBus
	hub         *WSHub
	rateLimiter *RateLimiter
	log         zerolog.Logger
}

// NewServer creates a new API server. db may be nil when persistence is
// disabled; tracker may be nil when session tracking is disabled.
func NewServer(
	config ServerConfig,
	engine *nlp.Engine,
	active *analyzer.Active,
	passive *analyzer.Passive,
	tracker *session.Tracker,
	db *database.DB,
	cacheSvc *cache.CacheService,
	eventBus *events.EventBus,
	log zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = config.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	rateLimit := config.RateLimit
	if rateLimit <= 0 {
		rateLimit = 120
	}

	server := &Server{
		router:      router,
		config:      config,
		engine:      engine,
		active:      active,
		passive:     passive,
		tracker:     tracker,
		db:          db,
		cache:       cacheSvc,
		eventBus:    eventBus,
		rateLimiter: NewRateLimiter(rateLimit, time.Minute),
		log:         log.With().Str("component", "api").Logger(),
	}

	server.hub = NewWSHub(server.log)
	go server.hub.Run()
	eventBus.SubscribeAll(server.hub.BroadcastEvent)

	server.setupRoutes()
	return server
}

// requestLogger attaches a trace-scoped logger to each request context and
// logs completion.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, reqLog := logging.WithTrace(c.Request.Context(), s.log)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		reqLog.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	}
}

// rateLimitMiddleware rate limits requests by endpoint path.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests to this endpoint. Please slow down.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.Use(s.requestLogger())
	api.Use(s.rateLimitMiddleware())
	{
		// Text analysis
		api.POST("/nlp/analyze", s.handleAnalyzeText)

		// Pre-trade evaluation
		api.POST("/analysis/evaluate", s.handleEvaluate)
		api.POST("/analysis/evaluate/quick", s.handleEvaluateQuick)

		// Historical behavior analysis
		api.POST("/analysis/history", s.handleAnalyzeHistory)
		api.GET("/analysis/reports/:user_id/latest", s.handleLatestReport)

		// Market context
		api.POST("/market/context", s.handleMarketContext)

		// Session tracking
		api.POST("/session/trades", s.handleRecordTrade)
		api.GET("/session/:user_id", s.handleSessionStats)
		api.DELETE("/session/:user_id", s.handleResetSession)

		// Persisted alerts
		api.GET("/alerts/:user_id", s.handleRecentAlerts)
	}

	// WebSocket alert stream
	s.router.GET("/ws/alerts", s.handleWebSocket)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{"status": "healthy"}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Pool.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "healthy"
	}

	if s.cache != nil {
		resp["cache"] = s.cache.GetStats()
	}
	resp["ws_clients"] = s.hub.ClientCount()
	c.JSON(http.StatusOK, resp)
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
