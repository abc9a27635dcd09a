// Package config loads runtime settings from the environment. Values come
// from the process environment first, then an optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ngmaloney/forecast-terminal/internal/basemap"
	"github.com/ngmaloney/forecast-terminal/internal/providers"
)

// Prefix is the environment variable prefix, e.g. FORECAST_DATA_DIR.
const Prefix = "FORECAST"

type Config struct {
	DataDir  string `envconfig:"DATA_DIR" default:"data" validate:"required"`
	LogFile  string `envconfig:"LOG_FILE" default:"forecast-terminal.log"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1h" validate:"min=1m"`
	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"10m" validate:"gt=0"`

	FMIBaseURL      string `envconfig:"FMI_BASE_URL" validate:"omitempty,url"`
	ECMWFBaseURL    string `envconfig:"ECMWF_BASE_URL" validate:"omitempty,url"`
	ECMWFModel      string `envconfig:"ECMWF_MODEL" default:"aifs-single" validate:"required"`
	ECMWFResolution string `envconfig:"ECMWF_RESOLUTION" default:"0p25" validate:"required"`

	// VerifyFallback downloads yesterday's 18Z run instead of assuming the
	// files on disk hold it.
	VerifyFallback bool `envconfig:"VERIFY_FALLBACK" default:"false"`

	CoastlineURL string `envconfig:"COASTLINE_URL" validate:"omitempty,url"`
	MetricsAddr  string `envconfig:"METRICS_ADDR" validate:"omitempty,hostname_port"`
}

// Load reads the dotenv file (if envFile is empty, ".env" in the working
// directory; a missing file is not an error), then the environment.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid %s_%s: %w", Prefix, envName(verrs[0].Field()), err)
		}
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.FMIBaseURL == "" {
		c.FMIBaseURL = providers.DefaultFMIBaseURL
	}
	if c.ECMWFBaseURL == "" {
		c.ECMWFBaseURL = providers.DefaultECMWFBaseURL
	}
	if c.CoastlineURL == "" {
		c.CoastlineURL = basemap.DefaultCoastlineURL
	}
}

var envNames = map[string]string{
	"DataDir":         "DATA_DIR",
	"LogFile":         "LOG_FILE",
	"LogLevel":        "LOG_LEVEL",
	"PollInterval":    "POLL_INTERVAL",
	"HTTPTimeout":     "HTTP_TIMEOUT",
	"FMIBaseURL":      "FMI_BASE_URL",
	"ECMWFBaseURL":    "ECMWF_BASE_URL",
	"ECMWFModel":      "ECMWF_MODEL",
	"ECMWFResolution": "ECMWF_RESOLUTION",
	"CoastlineURL":    "COASTLINE_URL",
	"MetricsAddr":     "METRICS_ADDR",
}

func envName(field string) string {
	if n, ok := envNames[field]; ok {
		return n
	}
	return field
}
