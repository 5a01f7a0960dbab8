package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New("production", path)
	log.Info("attempt submitted")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"attempt submitted"`) {
		t.Fatalf("expected JSON entry in file, got %s", data)
	}
}

func TestNewDevelopmentEnablesDebug(t *testing.T) {
	if !New("development", "").Core().Enabled(-1) {
		t.Fatalf("expected debug level in development mode")
	}
	if New("production", "").Core().Enabled(-1) {
		t.Fatalf("expected info level in production mode")
	}
}
