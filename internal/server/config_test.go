package server

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SYNCD_JWT_SECRET", "secret")
	t.Setenv("SYNCD_ACCESS_KEYS", "user-1=key-1,user-2=key-2")
	t.Setenv("SYNCD_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("SYNCD_TOKEN_TTL", "")
	t.Setenv("SYNCD_DATABASE_PATH", "")
}

// TestLoadConfigDefaults verifies the fallback values.
func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("Port = %q, want 8090", cfg.Port)
	}
	if cfg.DatabasePath != "syncd.db" {
		t.Errorf("DatabasePath = %q, want syncd.db", cfg.DatabasePath)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
	}
	if cfg.AccessKeys["key-1"] != "user-1" || cfg.AccessKeys["key-2"] != "user-2" {
		t.Errorf("AccessKeys = %v", cfg.AccessKeys)
	}
}

// TestLoadConfigOverrides verifies env overrides, including the generic PORT.
func TestLoadConfigOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SYNCD_PORT", "9000")
	t.Setenv("PORT", "9001")
	t.Setenv("SYNCD_TOKEN_TTL", "30m")
	t.Setenv("SYNCD_DATABASE_PATH", "/tmp/sync.db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Port != "9001" {
		t.Errorf("Port = %q, want PORT to win", cfg.Port)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL = %v, want 30m", cfg.TokenTTL)
	}
	if cfg.DatabasePath != "/tmp/sync.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
}

// TestLoadConfigValidation verifies the required settings and formats.
func TestLoadConfigValidation(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SYNCD_JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Error("missing JWT secret should fail")
	}

	setBaseEnv(t)
	t.Setenv("SYNCD_ACCESS_KEYS", "")
	if _, err := LoadConfig(); err == nil {
		t.Error("missing access keys should fail")
	}

	setBaseEnv(t)
	t.Setenv("SYNCD_ACCESS_KEYS", "nonsense")
	if _, err := LoadConfig(); err == nil {
		t.Error("malformed access key pair should fail")
	}

	setBaseEnv(t)
	t.Setenv("SYNCD_TOKEN_TTL", "soon")
	if _, err := LoadConfig(); err == nil {
		t.Error("malformed TTL should fail")
	}
}
