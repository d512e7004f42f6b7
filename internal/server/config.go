// Package server implements the cloud sync service.
package server

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds sync service settings, loaded from SYNCD_* environment
// variables.
type Config struct {
	Port         string
	DatabasePath string
	JWTSecret    string
	TokenTTL     time.Duration

	// AccessKeys maps device access keys to user IDs.
	AccessKeys map[string]string
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:         envOrDefault("SYNCD_PORT", "8090"),
		DatabasePath: envOrDefault("SYNCD_DATABASE_PATH", "syncd.db"),
		JWTSecret:    strings.TrimSpace(os.Getenv("SYNCD_JWT_SECRET")),
		TokenTTL:     24 * time.Hour,
		AccessKeys:   map[string]string{},
	}
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}
	if ttl := strings.TrimSpace(os.Getenv("SYNCD_TOKEN_TTL")); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return cfg, fmt.Errorf("invalid SYNCD_TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = d
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("SYNCD_JWT_SECRET is required")
	}

	// SYNCD_ACCESS_KEYS holds comma-separated user=key pairs.
	raw := strings.TrimSpace(os.Getenv("SYNCD_ACCESS_KEYS"))
	if raw == "" {
		return cfg, fmt.Errorf("SYNCD_ACCESS_KEYS is required")
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		userID, key, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(userID) == "" || strings.TrimSpace(key) == "" {
			return cfg, fmt.Errorf("invalid SYNCD_ACCESS_KEYS entry %q", pair)
		}
		cfg.AccessKeys[strings.TrimSpace(key)] = strings.TrimSpace(userID)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
