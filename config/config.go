// Package config loads app configuration from the environment and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Token match policies accepted by ATTENDANCE_MATCH_POLICY.
const (
	PolicyExact    = "exact"
	PolicyWindowed = "windowed"
)

// Token generation modes accepted by ATTENDANCE_TOKEN_MODE.
const (
	TokenModeCounter = "counter"
	TokenModeRandom  = "random"
)

// Device identity sources accepted by ATTENDANCE_IDENTITY_SOURCE.
const (
	IdentityFingerprint = "fingerprint"
	IdentityIP          = "ip"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabasePath is the sqlite database file for attendance records.
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	// SubmitBaseURL is the URL template embedded in QR codes, without query string.
	SubmitBaseURL string `mapstructure:"SUBMIT_BASE_URL"`
	// RotationInterval is how often the active token is replaced.
	RotationInterval time.Duration `mapstructure:"ATTENDANCE_ROTATION_INTERVAL"`
	// ValidityWindow is the grace period honored under the windowed policy.
	ValidityWindow time.Duration `mapstructure:"ATTENDANCE_VALIDITY_WINDOW"`
	// MatchPolicy is "exact" or "windowed".
	MatchPolicy string `mapstructure:"ATTENDANCE_MATCH_POLICY"`
	// TokenMode is "counter" or "random".
	TokenMode string `mapstructure:"ATTENDANCE_TOKEN_MODE"`
	// IdentitySource is "fingerprint" (client-supplied) or "ip" (server-observed).
	IdentitySource string `mapstructure:"ATTENDANCE_IDENTITY_SOURCE"`
	// AllowAnonymous permits claims without a device identity; duplicate
	// suppression cannot apply to such claims.
	AllowAnonymous bool `mapstructure:"ATTENDANCE_ALLOW_ANONYMOUS"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Missing .env is ignored; env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":6969")
	v.SetDefault("DATABASE_PATH", "attendance.db")
	v.SetDefault("SUBMIT_BASE_URL", "http://localhost:6969/submit")
	v.SetDefault("ATTENDANCE_ROTATION_INTERVAL", "30s")
	v.SetDefault("ATTENDANCE_VALIDITY_WINDOW", "30s")
	v.SetDefault("ATTENDANCE_MATCH_POLICY", PolicyWindowed)
	v.SetDefault("ATTENDANCE_TOKEN_MODE", TokenModeCounter)
	v.SetDefault("ATTENDANCE_IDENTITY_SOURCE", IdentityFingerprint)
	v.SetDefault("ATTENDANCE_ALLOW_ANONYMOUS", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants the rest of the app relies on.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.DatabasePath == "" {
		return errors.New("config: DATABASE_PATH must be set")
	}
	if c.RotationInterval <= 0 {
		return errors.New("config: ATTENDANCE_ROTATION_INTERVAL must be positive")
	}
	switch c.MatchPolicy {
	case PolicyExact:
	case PolicyWindowed:
		if c.ValidityWindow <= 0 {
			return errors.New("config: ATTENDANCE_VALIDITY_WINDOW must be positive under the windowed policy")
		}
	default:
		return errors.New("config: ATTENDANCE_MATCH_POLICY must be exact or windowed")
	}
	switch c.TokenMode {
	case TokenModeCounter, TokenModeRandom:
	default:
		return errors.New("config: ATTENDANCE_TOKEN_MODE must be counter or random")
	}
	switch c.IdentitySource {
	case IdentityFingerprint, IdentityIP:
	default:
		return errors.New("config: ATTENDANCE_IDENTITY_SOURCE must be fingerprint or ip")
	}
	return nil
}
