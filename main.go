package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/HeliosCommand/server/internal/agent/model"
	"github.com/HeliosCommand/server/internal/core"
	"github.com/HeliosCommand/server/internal/flood"
	"github.com/HeliosCommand/server/internal/notify"
	"github.com/HeliosCommand/server/internal/websearch"
	logx "github.com/HeliosCommand/server/pkg/logger"
	pkgredis "github.com/HeliosCommand/server/pkg/redis"
)

// AppConfig defines every configurable parameter of the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Env      core.Environment `envconfig:"APP_ENV" default:"development"`
	LogLevel string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	LLM     model.LLMConfig
	Router  model.RouterModelConfig
	Utility model.UtilityModelConfig

	Conversation model.ConversationConfig

	// Capabilities
	MapsKey         string `envconfig:"GOOGLE_MAPS_KEY"`
	PlacesKey       string `envconfig:"GOOGLE_PLACES_KEY"`
	HospitalDataset string `envconfig:"HOSPITAL_DATASET_PATH" default:"data/hospitals.csv"`
	UserEmail       string `envconfig:"USER_EMAIL"`

	// Transports
	EmailTransport string `envconfig:"EMAIL_TRANSPORT" default:"gmail"`
	SMSTransport   string `envconfig:"SMS_TRANSPORT" default:"twilio"`
	Gmail          notify.GmailConfig
	SES            notify.SESConfig
	SNS            notify.SNSConfig
	Twilio         notify.TwilioConfig

	// Flood pipeline
	Search websearch.Config
	Flood  flood.Config
}

// placesKey falls back to the geocoding key when no dedicated Places key is set.
func (c *AppConfig) placesKey() string {
	if k := notify.CleanEnv(c.PlacesKey); k != "" {
		return k
	}
	return notify.CleanEnv(c.MapsKey)
}

func loadConfig() (*AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Env, Level: cfg.LogLevel})

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
