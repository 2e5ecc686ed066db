// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	PublicBaseURL  string `mapstructure:"PUBLIC_BASE_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	DBPath     string `mapstructure:"DB_PATH"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	AccessTokenMinutes int    `mapstructure:"ACCESS_TOKEN_MINUTES"`
	RefreshTokenDays   int    `mapstructure:"REFRESH_TOKEN_DAYS"`

	DevAdminEmail    string `mapstructure:"DEV_ADMIN_EMAIL"`
	DevAdminPassword string `mapstructure:"DEV_ADMIN_PASSWORD"`
	SeedDemoProfiles int    `mapstructure:"SEED_DEMO_PROFILES"`

	KakaoClientID     string `mapstructure:"KAKAO_CLIENT_ID"`
	KakaoClientSecret string `mapstructure:"KAKAO_CLIENT_SECRET"`
	KakaoRedirectURL  string `mapstructure:"KAKAO_REDIRECT_URL"`
	KakaoAuthURL      string `mapstructure:"KAKAO_AUTH_URL"`
	KakaoTokenURL     string `mapstructure:"KAKAO_TOKEN_URL"`
	KakaoUserInfoURL  string `mapstructure:"KAKAO_USERINFO_URL"`

	StorageDriver    string `mapstructure:"STORAGE_DRIVER"`
	StorageDir       string `mapstructure:"STORAGE_DIR"`
	StorageBucket    string `mapstructure:"STORAGE_BUCKET"`
	StoragePublicURL string `mapstructure:"STORAGE_PUBLIC_URL"`
	CloudinaryURL    string `mapstructure:"CLOUDINARY_URL"`
	ImageMaxUploadMB int    `mapstructure:"IMAGE_MAX_UPLOAD_MB"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional and only ever fills variables that are not already set.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:8375")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "likes=true,comment_edit=false")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "eureka_ssul")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "eureka.db")

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ACCESS_TOKEN_MINUTES", 60)
	viper.SetDefault("REFRESH_TOKEN_DAYS", 14)

	viper.SetDefault("DEV_ADMIN_EMAIL", "")
	viper.SetDefault("DEV_ADMIN_PASSWORD", "")
	viper.SetDefault("SEED_DEMO_PROFILES", 0)

	viper.SetDefault("KAKAO_CLIENT_ID", "")
	viper.SetDefault("KAKAO_CLIENT_SECRET", "")
	viper.SetDefault("KAKAO_REDIRECT_URL", "http://localhost:8375/auth/callback")
	viper.SetDefault("KAKAO_AUTH_URL", "https://kauth.kakao.com/oauth/authorize")
	viper.SetDefault("KAKAO_TOKEN_URL", "https://kauth.kakao.com/oauth/token")
	viper.SetDefault("KAKAO_USERINFO_URL", "https://kapi.kakao.com/v2/user/me")

	viper.SetDefault("STORAGE_DRIVER", "local")
	viper.SetDefault("STORAGE_DIR", "uploads")
	viper.SetDefault("STORAGE_BUCKET", "profiles")
	viper.SetDefault("STORAGE_PUBLIC_URL", "http://localhost:8375/storage")
	viper.SetDefault("CLOUDINARY_URL", "")
	viper.SetDefault("IMAGE_MAX_UPLOAD_MB", 5)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	c.StoragePublicURL = strings.TrimRight(c.StoragePublicURL, "/")
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	switch c.StorageDriver {
	case "local":
	case "cloudinary":
		if c.CloudinaryURL == "" {
			return errors.New("CLOUDINARY_URL is required when STORAGE_DRIVER=cloudinary")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be local or cloudinary, got %q", c.StorageDriver)
	}
	if c.ImageMaxUploadMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_MB must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver == "sqlite" {
			return errors.New("DB_DRIVER=sqlite is not allowed in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.KakaoClientID == "" {
			return errors.New("KAKAO_CLIENT_ID is required in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
