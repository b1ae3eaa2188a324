// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Download  DownloadConfig   `yaml:"download"`
	Spotify   SpotifyConfig    `yaml:"spotify"`
	Gateway   GatewayConfig    `yaml:"gateway"`
	Report    ReportConfig     `yaml:"report"`
	Packagers []PackagerConfig `yaml:"packagers"`
}

// DownloadConfig controls pacing and backoff of the download run.
type DownloadConfig struct {
	// BaseDir is the root of the produced directory tree.
	// Empty means the current working directory.
	BaseDir string `yaml:"base_dir"`
	// PacingSeconds is the delay between items within one group.
	PacingSeconds int `yaml:"pacing_seconds" default:"10" validate:"gte=0"`
	// PenaltyStepSeconds is added to the backoff delay on every key denial.
	PenaltyStepSeconds int `yaml:"penalty_step_seconds" default:"60" validate:"gt=0"`
	// PenaltyCeilingSeconds aborts the run once the cumulative delay passes it.
	PenaltyCeilingSeconds int `yaml:"penalty_ceiling_seconds" default:"300" validate:"gt=0"`
}

// Pacing returns the inter-item delay.
func (d DownloadConfig) Pacing() time.Duration {
	return time.Duration(d.PacingSeconds) * time.Second
}

// PenaltyStep returns the backoff increment.
func (d DownloadConfig) PenaltyStep() time.Duration {
	return time.Duration(d.PenaltyStepSeconds) * time.Second
}

// PenaltyCeiling returns the backoff abort threshold.
func (d DownloadConfig) PenaltyCeiling() time.Duration {
	return time.Duration(d.PenaltyCeilingSeconds) * time.Second
}

// SpotifyConfig represents Web API credentials for catalog lookups.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2"`
}

// GatewayConfig represents the streaming gateway endpoint.
type GatewayConfig struct {
	BaseURL        string `yaml:"base_url" validate:"required,url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds" default:"120" validate:"gt=0"`
}

// Timeout returns the per-request gateway timeout.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// ReportConfig represents the failure journal settings.
type ReportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:".trackbox/failures.db"`
}

// PackagerConfig represents one external packaging handler.
// Settings are handler-specific and decoded by the packaging layer.
type PackagerConfig struct {
	Extension string         `yaml:"extension" validate:"required"`
	Settings  map[string]any `yaml:"settings" validate:"required"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Defaults are applied before unmarshalling so an explicit zero in the
	// file stays zero instead of being treated as unset.
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("GATEWAY_TOKEN"); v != "" {
		c.Gateway.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	if c.Download.PenaltyStepSeconds > c.Download.PenaltyCeilingSeconds {
		return errors.Newf("penalty_step_seconds (%d) must not exceed penalty_ceiling_seconds (%d)",
			c.Download.PenaltyStepSeconds, c.Download.PenaltyCeilingSeconds)
	}
	return nil
}
