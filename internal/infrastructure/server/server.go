package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/taskhub/core/docs"
	httpHandlers "github.com/taskhub/core/internal/adapters/http"
	"github.com/taskhub/core/internal/adapters/repository"
	"github.com/taskhub/core/internal/application/services"
	"github.com/taskhub/core/internal/infrastructure/config"
	"github.com/taskhub/core/internal/infrastructure/database"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/infrastructure/metrics"
)

// healthChecker is the part of the database the health endpoints need.
type healthChecker interface {
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	GetConnectionInfo() map[string]interface{}
}

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	db      healthChecker
	metrics *metrics.Metrics
}

// Handlers groups everything the route table needs.
type Handlers struct {
	Auth          *httpHandlers.AuthHandler
	User          *httpHandlers.UserHandler
	Project       *httpHandlers.ProjectHandler
	Task          *httpHandlers.TaskHandler
	Comment       *httpHandlers.CommentHandler
	Notification  *httpHandlers.NotificationHandler
	TokenVerifier TokenVerifier
}

// New wires repositories, services and handlers onto a new echo instance.
func New(cfg *config.Config, db *database.DB, m *metrics.Metrics, appLogger *logger.Logger) (*Server, error) {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	authRepo := repository.NewAuthRepository(db.DB)
	projectRepo := repository.NewProjectRepository(db.DB)
	taskRepo := repository.NewTaskRepository(db.DB)
	commentRepo := repository.NewCommentRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)

	// Initialize services
	notifier := services.NewNotifier(notificationRepo, m, appLogger)
	authService := services.NewAuthService(userRepo, authRepo, cfg.JWT, appLogger)
	userService := services.NewUserService(userRepo, appLogger)
	projectService := services.NewProjectService(projectRepo, userRepo, taskRepo, db, notifier, appLogger)
	taskService := services.NewTaskService(taskRepo, projectRepo, db, notifier, appLogger)
	commentService := services.NewCommentService(commentRepo, taskRepo, projectRepo, notifier, appLogger)
	notificationService := services.NewNotificationService(notificationRepo, appLogger)

	handlers := Handlers{
		Auth:          httpHandlers.NewAuthHandler(authService, appLogger),
		User:          httpHandlers.NewUserHandler(userService, appLogger),
		Project:       httpHandlers.NewProjectHandler(projectService, appLogger),
		Task:          httpHandlers.NewTaskHandler(taskService, appLogger),
		Comment:       httpHandlers.NewCommentHandler(commentService, appLogger),
		Notification:  httpHandlers.NewNotificationHandler(notificationService, appLogger),
		TokenVerifier: authService,
	}

	return newServer(cfg, db, m, appLogger, handlers), nil
}

func newServer(cfg *config.Config, db healthChecker, m *metrics.Metrics, appLogger *logger.Logger, handlers Handlers) *Server {
	e := echo.New()

	e.Validator = NewValidator()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	e.HTTPErrorHandler = httpHandlers.ErrorHandler(appLogger)

	server := &Server{
		echo:    e,
		config:  cfg,
		logger:  appLogger,
		db:      db,
		metrics: m,
	}

	// Metrics first so every request is counted
	if cfg.Metrics.Enabled && m != nil {
		server.setupMetrics()
	}

	server.setupMiddleware()
	server.setupRoutes(handlers)

	return server
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
				"request_id", values.RequestID,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))

	// Rate limiting middleware
	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(s.config.Security.RateLimitRequests),
					Burst:     s.config.Security.RateLimitRequests,
					ExpiresIn: s.config.Security.RateLimitWindow,
				},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return echo.NewHTTPError(http.StatusForbidden, "rate limit exceeded")
			},
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			},
		}))
	}

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	// Timeout middleware
	if s.config.Server.RequestTimeout > 0 {
		s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: s.config.Server.RequestTimeout,
		}))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h Handlers) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	requireAuth := s.authMiddleware(h.TokenVerifier)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Auth routes (public except logout)
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.RefreshToken)
	authGroup.POST("/logout", h.Auth.Logout, requireAuth)

	v1.GET("/me", h.User.GetMe, requireAuth)

	projectGroup := v1.Group("/projects", requireAuth)
	projectGroup.GET("", h.Project.ListProjects)
	projectGroup.POST("", h.Project.CreateProject)
	projectGroup.GET("/:id", h.Project.GetProject)
	projectGroup.PATCH("/:id", h.Project.UpdateProject)
	projectGroup.DELETE("/:id", h.Project.DeleteProject)
	projectGroup.POST("/:id/members", h.Project.InviteUser)
	projectGroup.PATCH("/:id/members/:userId", h.Project.UpdateMemberRole)
	projectGroup.DELETE("/:id/members/:userId", h.Project.RemoveMember)

	taskGroup := v1.Group("/tasks", requireAuth)
	taskGroup.GET("", h.Task.ListTasks)
	taskGroup.POST("", h.Task.CreateTask)
	taskGroup.GET("/:id", h.Task.GetTask)
	taskGroup.PATCH("/:id", h.Task.UpdateTask)
	taskGroup.DELETE("/:id", h.Task.DeleteTask)
	taskGroup.POST("/:id/assign", h.Task.AssignTask)

	commentGroup := v1.Group("/comments", requireAuth)
	commentGroup.GET("", h.Comment.ListComments)
	commentGroup.POST("", h.Comment.CreateComment)
	commentGroup.GET("/:id", h.Comment.GetComment)
	commentGroup.PATCH("/:id", h.Comment.UpdateComment)
	commentGroup.DELETE("/:id", h.Comment.DeleteComment)

	notificationGroup := v1.Group("/notifications", requireAuth)
	notificationGroup.GET("", h.Notification.ListNotifications)
	notificationGroup.GET("/unread-count", h.Notification.UnreadCount)
	notificationGroup.POST("/read-all", h.Notification.MarkAllAsRead)
	notificationGroup.GET("/:id", h.Notification.GetNotification)
	notificationGroup.POST("/:id/read", h.Notification.MarkAsRead)
	notificationGroup.DELETE("/:id", h.Notification.DeleteNotification)
}

// setupMetrics records request metrics and exposes /metrics
func (s *Server) setupMetrics() {
	s.echo.Use(s.metricsMiddleware())
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Database health check
	if err := s.db.HealthCheck(c.Request().Context()); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}
