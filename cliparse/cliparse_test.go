// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("HASHIDS_SALT", "test-salt")
}

func TestParseFlags_EnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_PENDING_TURNS", "4")
	t.Setenv("CODE_TTL", "2m")
	t.Setenv("CAUDA_SHOP_REGISTRATION_ENABLED", "1")
	t.Setenv("TRUST_PROXY", "1")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.MaxPendingTurns != 4 {
		t.Errorf("expected 4 pending turns, got %d", cfg.MaxPendingTurns)
	}
	if cfg.CodeTTL != 2*time.Minute {
		t.Errorf("expected CODE_TTL 2m, got %s", cfg.CodeTTL)
	}
	if !cfg.ShopRegistrationEnabled {
		t.Error("expected shop registration enabled")
	}
	if !cfg.TrustProxy {
		t.Error("expected proxy headers to be trusted")
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRUST_PROXY", "")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected default port 3318, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.MaxPendingTurns != 3 || cfg.MaxDailyTurns != 5 || cfg.GoToShopThreshold != 3 {
		t.Errorf("unexpected queue defaults: %+v", cfg)
	}
	if cfg.Location == nil {
		t.Error("expected location to be loaded")
	}
	if cfg.TrustProxy {
		t.Error("expected proxy headers to be ignored by default")
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "postgres://x", "-t", "postgres", "-session-secret", "s1"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.TokenSecret != "s1" {
		t.Errorf("expected secret from flag, got %s", cfg.TokenSecret)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing database", map[string]string{"DATABASE_URL": ""}, nil},
		{"missing secret", map[string]string{"SESSION_SECRET": ""}, nil},
		{"missing salt", map[string]string{"HASHIDS_SALT": ""}, nil},
		{"bad port", map[string]string{"PORT": "abc"}, nil},
		{"bad database type", nil, []string{"-t", "mysql"}},
		{"bad duration", map[string]string{"CODE_TTL": "soon"}, nil},
		{"zero quota", map[string]string{"MAX_DAILY_TURNS": "0"}, nil},
		{"bad timezone", map[string]string{"TZ_NAME": "Mars/Olympus"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseFlags_EnvFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("PORT=7777\nPHONE_REGION=UY\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PHONE_REGION") })

	cfg, err := ParseFlags([]string{"-env", path})
	if err != nil {
		t.Fatal(err)
	}

	// PORT is set (empty) in the environment, so the file must not override it
	if cfg.Port != 3318 {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
	if cfg.PhoneRegion != "UY" {
		t.Errorf("expected region from env file, got %s", cfg.PhoneRegion)
	}
}
