package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey  string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthTokenTTLMin int      `mapstructure:"AUTH_TOKEN_TTL_MINUTES"`
	GeminiAPIKey    string   `mapstructure:"GEMINI_API_KEY"`
	GeminiModel     string   `mapstructure:"GEMINI_MODEL"`
	GeminiURL       string   `mapstructure:"GEMINI_URL"`
	WhisperURL      string   `mapstructure:"WHISPER_URL"`
	WhisperModel    string   `mapstructure:"WHISPER_MODEL"`
	ModelTimeoutSec int      `mapstructure:"MODEL_TIMEOUT_SECONDS"`
	MaxUploadBytes  int64    `mapstructure:"MAX_UPLOAD_BYTES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:8080")
	v.SetDefault("AUTH_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("GEMINI_MODEL", "gemini-pro")
	v.SetDefault("GEMINI_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("WHISPER_URL", "http://localhost:9000")
	v.SetDefault("WHISPER_MODEL", "base")
	v.SetDefault("MODEL_TIMEOUT_SECONDS", 120)
	v.SetDefault("MAX_UPLOAD_BYTES", 50*1024*1024)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("AUTH_TOKEN_TTL_MINUTES")
	v.BindEnv("GEMINI_API_KEY")
	v.BindEnv("GEMINI_MODEL")
	v.BindEnv("GEMINI_URL")
	v.BindEnv("WHISPER_URL")
	v.BindEnv("WHISPER_MODEL")
	v.BindEnv("MODEL_TIMEOUT_SECONDS")
	v.BindEnv("MAX_UPLOAD_BYTES")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ModelTimeout returns the bound placed on every external model call.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSec) * time.Second
}

// TokenTTL returns the lifetime of issued auth tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AuthTokenTTLMin) * time.Minute
}

// Validate checks that the configuration is safe to run. Outside development
// the auth signing key and model API key must be present so that issued tokens
// can be verified and report extraction can reach the generative model.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV is not development")
		}
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when ENV is not development")
		}
	}
	switch c.WhisperModel {
	case "tiny", "base", "small", "medium", "large":
	default:
		return fmt.Errorf("WHISPER_MODEL must be one of tiny, base, small, medium, large, got %q", c.WhisperModel)
	}
	if c.ModelTimeoutSec <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT_SECONDS must be positive, got %d", c.ModelTimeoutSec)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
