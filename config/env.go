package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store modes.
const (
	ModeLocal  = "local"
	ModeAtlas  = "atlas"
	ModeMemory = "memory"
)

// AppConfig holds every configuration value of the application.
type AppConfig struct {
	Port     string
	Env      string
	LogLevel slog.Level

	MongoMode         string
	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	PasetoSecretKey []byte
	TokenTTL        time.Duration

	CloudinaryURL string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	FrontendURL string
	CORSOrigins []string
	Location    *time.Location
}

// Production reports whether the app runs in production mode.
func (c *AppConfig) Production() bool { return c.Env == "production" }

// Load reads a .env file when present, then the environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	return fromEnv()
}

func fromEnv() (*AppConfig, error) {
	var errs []error

	cfg := &AppConfig{
		Port:          getEnv("PORT", "5000"),
		Env:           getEnv("ENVIRONMENT", "development"),
		MongoMode:     getEnv("MONGO_MODE", ModeLocal),
		MongoDB:       getEnv("MONGO_DB", "pos"),
		CloudinaryURL: getEnv("CLOUDINARY_URL", ""),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPass:      getEnv("SMTP_PASS", ""),
		MailFrom:      getEnv("MAIL_FROM", ""),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	switch cfg.MongoMode {
	case ModeAtlas:
		cfg.MongoURI = getEnv("MONGO_URI_ATLAS", "")
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_MODE 'atlas' but MONGO_URI_ATLAS is not set"))
		}
	case ModeLocal:
		cfg.MongoURI = getEnv("MONGO_URI_LOCAL", "mongodb://localhost:27017")
	case ModeMemory:
	default:
		errs = append(errs, fmt.Errorf("MONGO_MODE must be local, atlas or memory, got %q", cfg.MongoMode))
	}

	// A standalone local mongod rejects multi-document transactions.
	txDefault := "false"
	if cfg.MongoMode == ModeAtlas {
		txDefault = "true"
	}
	var err error
	if cfg.MongoTransactions, err = strconv.ParseBool(getEnv("MONGO_TRANSACTIONS", txDefault)); err != nil {
		errs = append(errs, fmt.Errorf("MONGO_TRANSACTIONS: %w", err))
	}

	key := getEnv("PASETO_SECRET_KEY", "")
	if len(key) != 32 {
		errs = append(errs, errors.New("PASETO_SECRET_KEY must be 32 characters long"))
	}
	cfg.PasetoSecretKey = []byte(key)

	if cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "168h")); err != nil || cfg.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be a positive duration, got %q", os.Getenv("TOKEN_TTL")))
	}

	if cfg.SMTPPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		errs = append(errs, fmt.Errorf("SMTP_PORT: %w", err))
	}

	if tz := getEnv("TIMEZONE", ""); tz == "" {
		cfg.Location = time.Local
	} else if cfg.Location, err = time.LoadLocation(tz); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
