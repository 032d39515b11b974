// Package server implements the school registry service: validation,
// storage, and the HTTP surface the form client submits to.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeRequired AuthMode = "required"
	AuthModeOptional AuthMode = "optional"
	AuthModeDisabled AuthMode = "disabled"
)

type Config struct {
	Addr string

	AuthMode AuthMode
	APIKeys  map[string]struct{}

	DatabaseURL string

	// CORS allowlist; empty disables CORS handling entirely.
	CORSAllowedOrigins map[string]struct{}

	MaxBodyBytes int64

	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	HandlerTimeout      time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("SCHOOLREG_ADDR", ":8080"),
		AuthMode:            AuthMode(envOr("SCHOOLREG_AUTH_MODE", string(AuthModeRequired))),
		APIKeys:             make(map[string]struct{}),
		DatabaseURL:         strings.TrimSpace(os.Getenv("SCHOOLREG_DATABASE_URL")),
		CORSAllowedOrigins:  make(map[string]struct{}),
		MaxBodyBytes:        envInt64Or("SCHOOLREG_MAX_BODY_BYTES", 32<<20), // attachments ride in the body
		ReadHeaderTimeout:   envDurationOr("SCHOOLREG_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("SCHOOLREG_READ_TIMEOUT", 60*time.Second),
		HandlerTimeout:      envDurationOr("SCHOOLREG_TOTAL_REQUEST_TIMEOUT", 2*time.Minute),
		ShutdownGracePeriod: envDurationOr("SCHOOLREG_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	switch cfg.AuthMode {
	case AuthModeRequired, AuthModeOptional, AuthModeDisabled:
	default:
		return Config{}, fmt.Errorf("SCHOOLREG_AUTH_MODE must be one of required|optional|disabled")
	}

	for _, key := range splitCSV(os.Getenv("SCHOOLREG_API_KEYS")) {
		cfg.APIKeys[key] = struct{}{}
	}
	for _, origin := range splitCSV(os.Getenv("SCHOOLREG_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("SCHOOLREG_DATABASE_URL must be set")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("SCHOOLREG_MAX_BODY_BYTES must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("SCHOOLREG_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("SCHOOLREG_READ_TIMEOUT must be > 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return Config{}, fmt.Errorf("SCHOOLREG_TOTAL_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("SCHOOLREG_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.AuthMode == AuthModeRequired && len(cfg.APIKeys) == 0 {
		return Config{}, fmt.Errorf("SCHOOLREG_API_KEYS must be set when SCHOOLREG_AUTH_MODE=required")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
