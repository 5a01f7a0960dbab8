package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
auth:
  secret: from-file
scoring:
  model: percentage
`)
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("ADMIN_EMAILS", "a@club.org,b@club.org")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected env port to win, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.URL != "postgres://example" {
		t.Fatalf("expected env database url, got %q", cfg.Postgres.URL)
	}
	if cfg.Scoring.Model != "percentage" || cfg.Scoring.Keying != "quiz" {
		t.Fatalf("unexpected scoring config %+v", cfg.Scoring)
	}
	if cfg.Leaderboard.Limit != 10 || cfg.Log.Mode != "development" {
		t.Fatalf("expected defaults, got limit=%d mode=%s", cfg.Leaderboard.Limit, cfg.Log.Mode)
	}
	if len(cfg.Auth.Admins) != 2 {
		t.Fatalf("expected two admins, got %v", cfg.Auth.Admins)
	}
}

func TestLoadMissingFileUsesEnvOnly(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.Secret != "env-secret" || cfg.Server.Port == "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := map[string]string{
		"no secret":     "scoring:\n  model: weighted\n",
		"bad model":     "auth:\n  secret: s\nscoring:\n  model: curved\n",
		"bad keying":    "auth:\n  secret: s\nscoring:\n  keying: chapter\n",
		"redis missing": "auth:\n  secret: s\nleaderboard:\n  useRedis: true\n",
	}
	for name, body := range cases {
		t.Setenv("JWT_SECRET", "")
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
