// Package bootstrap wires configuration into connected stores and services.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/auth"
	"github.com/pillow12360/eureka-ssul/internal/cache"
	"github.com/pillow12360/eureka-ssul/internal/config"
	"github.com/pillow12360/eureka-ssul/internal/database"
	"github.com/pillow12360/eureka-ssul/internal/imaging"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/notifications"
	"github.com/pillow12360/eureka-ssul/internal/repository"
	"github.com/pillow12360/eureka-ssul/internal/seed"
	"github.com/pillow12360/eureka-ssul/internal/server"
	"github.com/pillow12360/eureka-ssul/internal/service"
	"github.com/pillow12360/eureka-ssul/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty database with cfg.SeedDemoProfiles random profiles.
	SeedDemo bool
}

// Runtime is everything a process needs once connected.
type Runtime struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Services *service.Services
	Notifier *notifications.Notifier
	Admins   repository.AdminRepository
}

// ServerDeps adapts the runtime for server.NewServerWithDeps.
func (r *Runtime) ServerDeps() server.Deps {
	return server.Deps{DB: r.DB, Redis: r.Redis, Services: r.Services, Notifier: r.Notifier}
}

// InitRuntime connects to DB and Redis and builds the services.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	bucket, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	procs := repository.NewProcedures()
	notifier := notifications.NewNotifier(rdb)
	admins := repository.NewAdminRepository(db)

	var provider auth.Provider
	if cfg.KakaoClientID != "" {
		provider = auth.NewKakaoProvider(cfg)
	} else {
		middleware.Logger.Warn("KAKAO_CLIENT_ID not set, social sign-in disabled")
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret,
		time.Duration(cfg.AccessTokenMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenDays)*24*time.Hour,
	)
	authn := auth.NewAuthenticator(provider, repository.NewUserRepository(db), admins, tokens, rdb, notifier)

	svcs := service.New(service.Deps{
		Profiles: repository.NewProfileRepository(db, bucket),
		Comments: repository.NewCommentRepository(db, procs),
		Likes:    repository.NewProfileLikeRepository(db, procs),
		Auth:     authn,
		Images:   imaging.NewProcessor(cfg.ImageMaxUploadMB),
		Events:   notifier,
	})

	rt := &Runtime{DB: db, Redis: rdb, Services: svcs, Notifier: notifier, Admins: admins}

	if err := ensureDevAdmin(ctx, cfg, admins); err != nil {
		return nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.SeedDemo && cfg.SeedDemoProfiles > 0 {
		if err := seedIfEmpty(ctx, svcs, cfg.SeedDemoProfiles); err != nil {
			return nil, fmt.Errorf("failed to seed demo profiles: %w", err)
		}
	}

	return rt, nil
}

// ensureDevAdmin puts DEV_ADMIN_EMAIL on the admin allow-list in development.
func ensureDevAdmin(ctx context.Context, cfg *config.Config, admins repository.AdminRepository) error {
	if !strings.EqualFold(cfg.Env, "development") || cfg.DevAdminEmail == "" {
		return nil
	}
	if cfg.DevAdminPassword == "" {
		return fmt.Errorf("DEV_ADMIN_PASSWORD must be set when DEV_ADMIN_EMAIL is set")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.DevAdminEmail))
	_, found, err := admins.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	hash, err := auth.HashPassword(cfg.DevAdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := admins.Create(ctx, email, hash); err != nil {
		return err
	}
	middleware.Logger.Info("development admin ensured", slog.String("email", email))
	return nil
}

func seedIfEmpty(ctx context.Context, svcs *service.Services, n int) error {
	existing, err := svcs.Profiles.GetProfiles(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	_, err = seed.NewSeeder(svcs, seed.Options{Profiles: n}).Generate(ctx)
	return err
}
