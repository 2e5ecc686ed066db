// Package server contains HTTP and WebSocket handlers for the application's pages and API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/pillow12360/eureka-ssul/docs" // swagger docs
	"github.com/pillow12360/eureka-ssul/internal/config"
	"github.com/pillow12360/eureka-ssul/internal/featureflags"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/notifications"
	"github.com/pillow12360/eureka-ssul/internal/service"
	"github.com/pillow12360/eureka-ssul/internal/store"
	"github.com/pillow12360/eureka-ssul/internal/view"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Deps are the runtime collaborators a Server is built from.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Services *service.Services
	Notifier *notifications.Notifier
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	services       *service.Services
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	hubs           []wireableHub
	featureFlags   *featureflags.Manager
	appCtx         *store.AppContext

	profileList   *view.ProfileList
	profileForm   *view.ProfileForm
	profileDetail *view.ProfileDetail
	testAPI       *view.TestAPI
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Services == nil {
		return nil, errors.New("server: services are required")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewNotifier(deps.Redis)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("eureka-ssul"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		services:       deps.Services,
		notifier:       notifier,
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		profileList:    view.NewProfileList(deps.Services),
		profileForm:    view.NewProfileForm(deps.Services),
		profileDetail:  view.NewProfileDetail(deps.Services),
		testAPI:        view.NewTestAPI(deps.Services),
	}
	s.hubs = []wireableHub{s.hub}
	if bad := s.featureFlags.Invalid(); len(bad) > 0 {
		middleware.Logger.Warn("ignoring malformed FEATURE_FLAGS entries", slog.Any("entries", bad))
	}

	var authAPI store.AuthAPI
	if deps.Services.Auth != nil {
		authAPI = deps.Services.Auth
	}
	s.appCtx = store.NewAppContext(ctx, authAPI)
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	if s.config.StorageDriver == "local" && s.config.StorageDir != "" {
		app.Static("/storage", s.config.StorageDir)
	}

	// Everything below knows its client and, when signed in, its user.
	app.Use(middleware.ClientID())
	app.Use(s.OptionalAuth())

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "eureka-ssul Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/feature-flags", s.GetFeatureFlags)

	likesOn := s.RequireFeature(featureflags.Likes)

	profiles := api.Group("/profiles")
	profiles.Get("/", s.GetProfiles)
	profiles.Post("/", middleware.RateLimit(s.redis, middleware.ProfileCreateLimit), s.CreateProfile)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	profiles.Get("/:id/comments", s.GetComments)
	profiles.Post("/:id/comments", middleware.RateLimit(s.redis, middleware.CommentCreateLimit), s.CreateComment)
	profiles.Put("/:id/comments/:commentId", s.AuthRequired(),
		s.RequireFeature(featureflags.CommentEdit), s.UpdateComment)
	profiles.Delete("/:id/comments/:commentId", s.AuthRequired(), s.AdminRequired(), s.DeleteComment)
	profiles.Get("/:id/likes", likesOn, s.GetLikes)
	profiles.Post("/:id/like/toggle", likesOn, s.AuthRequired(), s.ToggleLike)
	profiles.Post("/:id/like", likesOn, s.AuthRequired(), s.LikeProfile)
	profiles.Delete("/:id/like", likesOn, s.AuthRequired(), s.UnlikeProfile)
	profiles.Get("/:id", s.GetProfile)
	profiles.Put("/:id", s.AuthRequired(), s.UpdateProfile)
	profiles.Delete("/:id", s.AuthRequired(), s.DeleteProfile)

	api.Post("/images", middleware.RateLimit(s.redis, middleware.ImageUploadLimit), s.UploadImage)

	authRoutes := api.Group("/auth")
	authRoutes.Get("/session", s.GetSession)
	authRoutes.Post("/refresh", middleware.RateLimit(s.redis, middleware.RefreshLimit), s.Refresh)
	authRoutes.Post("/logout", s.Logout)

	admin := api.Group("/admin")
	admin.Post("/login", middleware.RateLimit(s.redis, middleware.AdminLoginLimit), s.AdminLogin)
	admin.Get("/check", s.AdminCheck)
	admin.Post("/recount", s.AuthRequired(), s.AdminRequired(), s.RecountCounters)

	dialogs := api.Group("/dialogs")
	dialogs.Get("/", s.GetDialog)
	dialogs.Post("/", s.OpenDialog)
	dialogs.Post("/confirm", s.ConfirmDialog)
	dialogs.Post("/cancel", s.CancelDialog)

	api.Get("/ws", s.WebSocketUpgrade, s.WebSocketHandler())

	// Pages
	app.Get("/", s.HomePage)
	app.Get("/profiles", s.HomePage)
	app.Get("/profiles/:id/card", s.ProfileCardPage)
	app.Post("/profiles/:id/card/comments", middleware.RateLimit(s.redis, middleware.CommentCreateLimit), s.CardCommentPage)
	app.Post("/profiles/:id/card/like", likesOn, s.AuthRequired(), s.CardLikePage)
	app.Get("/profile/create", s.CreateProfilePage)
	app.Post("/profile/create", middleware.RateLimit(s.redis, middleware.ProfileCreateLimit), s.SubmitProfilePage)
	app.Get("/profile/:id", s.ProfilePage)
	app.Get("/login", s.LoginPage)
	app.Get("/auth/callback", s.AuthCallbackPage)
	app.Get("/auth/auth-code-error", s.AuthCodeErrorPage)
	app.Get("/test-api", s.TestAPIPage)
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports the database and Redis. Without Redis the app runs single-process,
// so a missing client is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired rejects callers without a valid session.
func (s *Server) AuthRequired() fiber.Handler {
	if s.services.Auth == nil {
		return func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Sign-in is not configured"))
		}
	}
	return middleware.AuthRequired(s.services.Auth)
}

// OptionalAuth attaches the caller's identity when a valid session token is present.
func (s *Server) OptionalAuth() fiber.Handler {
	if s.services.Auth == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.OptionalAuth(s.services.Auth)
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that the identity is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := middleware.IdentityFrom(c)
		if id == nil || !id.Admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// RequireFeature answers 404 while flag is off for the caller.
func (s *Server) RequireFeature(flag string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(flag, middleware.UserIDFrom(c)) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Feature", flag))
		}
		return c.Next()
	}
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "eureka-ssul",
		BodyLimit: (s.config.ImageMaxUploadMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled request error",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// startWiring subscribes every hub to the event channels until shutdown.
func (s *Server) startWiring() {
	for _, h := range s.hubs {
		h := h
		go func() {
			if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", h.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
}

// Start serves on the configured port until the app is shut down.
func (s *Server) Start() error {
	app := s.NewApp()
	s.startWiring()

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	if err := app.Listen(":" + s.config.Port); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server, hubs and per-client stores, then closes the DB and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", h.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.appCtx.Close()

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
