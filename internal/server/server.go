package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"instoo/config"
	"instoo/internal/handler"
	"instoo/internal/metrics"
	"instoo/internal/middleware"
	"instoo/internal/transport/httpdto"
	"instoo/internal/websocket"
	"instoo/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

// Handlers groups the route handlers. Feed is nil when no live event
// source is configured.
type Handlers struct {
	Schedules *handler.ScheduleHandler
	Streamers *handler.StreamerHandler
	Follows   *handler.FollowHandler
	Users     *handler.UserHandler
	Feed      *websocket.Handler
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies are the cross-cutting pieces the routes are wired with.
// Limiter and Metrics may be nil.
type Dependencies struct {
	Auth    middleware.Authenticator
	Limiter middleware.WriteLimiter
	Metrics *metrics.Metrics
	Health  map[string]HealthCheck
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router for in-process tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	if deps.Metrics != nil {
		s.engine.Use(middleware.MetricsMiddleware(deps.Metrics))
	}
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})
	s.engine.GET("/health", healthHandler(deps.Health))
	if deps.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	auth := middleware.AuthMiddleware(deps.Auth)
	limit := middleware.WriteRateLimitMiddleware(deps.Limiter)

	v1 := s.engine.Group("/v1")

	schedules := v1.Group("/schedules")
	{
		schedules.GET("", handlers.Schedules.List)
		schedules.GET("/:uuid", handlers.Schedules.Get)
		schedules.GET("/:uuid/history", handlers.Schedules.History)
		schedules.GET("/:uuid/history/:version", handlers.Schedules.HistoryAt)
		schedules.GET("/:uuid/like", auth, handlers.Schedules.IsLiked)

		schedules.POST("", auth, limit, handlers.Schedules.Create)
		schedules.PATCH("/:uuid", auth, limit, handlers.Schedules.Update)
		schedules.DELETE("/:uuid", auth, limit, handlers.Schedules.Delete)
		schedules.POST("/:uuid/like", auth, limit, handlers.Schedules.Like)
		schedules.DELETE("/:uuid/like", auth, limit, handlers.Schedules.Unlike)
	}

	streamers := v1.Group("/streamers")
	{
		streamers.GET("", handlers.Streamers.List)
		streamers.GET("/search", handlers.Streamers.Search)
		streamers.GET("/:uuid", handlers.Streamers.Get)
		streamers.GET("/:uuid/follow", auth, handlers.Streamers.FollowStatus)

		streamers.POST("", auth, limit, handlers.Streamers.Create)
		streamers.PATCH("/:uuid", auth, limit, handlers.Streamers.Update)
		streamers.DELETE("/:uuid", auth, limit, handlers.Streamers.Delete)
		streamers.PATCH("/:uuid/verify", auth, limit, handlers.Streamers.Verify)
		streamers.POST("/:uuid/follow", auth, limit, handlers.Streamers.Follow)
		streamers.DELETE("/:uuid/follow", auth, limit, handlers.Streamers.Unfollow)
	}

	me := v1.Group("/me", auth)
	{
		me.GET("/follows", handlers.Follows.ListMine)
		me.GET("/follows/history", handlers.Follows.History)
		me.PATCH("/follows", limit, handlers.Follows.BatchToggle)
	}

	users := v1.Group("/users", auth)
	{
		users.GET("/me", handlers.Users.Me)
		users.GET("/:uuid", handlers.Users.Get)
		users.PATCH("/me", limit, handlers.Users.UpdateMe)
	}

	if handlers.Feed != nil {
		v1.GET("/events/ws", handlers.Feed.Connect)
	}
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{}
		healthy := true
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, httpdto.Response[gin.H]{Success: false, Data: status, Error: "unhealthy", Code: "UNHEALTHY"})
			return
		}
		status["status"] = "healthy"
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(status))
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Errorf("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")
	return nil
}
