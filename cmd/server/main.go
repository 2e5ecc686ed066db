// Command server is the entry point for the eureka-ssul backend.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/pillow12360/eureka-ssul/docs"
	"github.com/pillow12360/eureka-ssul/internal/bootstrap"
	"github.com/pillow12360/eureka-ssul/internal/config"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/observability"
	"github.com/pillow12360/eureka-ssul/internal/server"
)

// @title eureka-ssul API
// @version 1.0
// @description Profile sharing board with features, comments, replies and likes
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@eureka-ssul.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name eureka_access

const (
	version       = "1.0"
	shutdownGrace = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		middleware.Logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFrom(cfg, version))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedDemo: !cfg.IsProduction()})
	if err != nil {
		return fmt.Errorf("init runtime: %w", err)
	}

	srv, err := server.NewServerWithDeps(cfg, rt.ServerDeps())
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	listenErr := make(chan error, 1)
	go func() { listenErr <- srv.Start() }()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	middleware.Logger.Info("shutting down", slog.Duration("grace", shutdownGrace))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		middleware.Logger.Error("server shutdown", slog.String("error", err.Error()))
	}
	return shutdownTracing(shutdownCtx)
}
