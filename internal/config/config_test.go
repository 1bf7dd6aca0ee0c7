package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.DBPath != "data/history.db" {
		t.Errorf("Expected default db path, got %s", cfg.DBPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %s", cfg.LogLevel)
	}
	if len(cfg.WatchDirs) != 0 {
		t.Errorf("Expected no watch dirs by default, got %v", cfg.WatchDirs)
	}
	if cfg.VideoFrameRate != 30 {
		t.Errorf("Expected default frame rate 30, got %d", cfg.VideoFrameRate)
	}
	if cfg.VideoBitsPerSecond != 2_500_000 {
		t.Errorf("Expected default bitrate 2500000, got %d", cfg.VideoBitsPerSecond)
	}
	if cfg.VideoCaptureCeiling != 30*time.Second {
		t.Errorf("Expected default ceiling 30s, got %s", cfg.VideoCaptureCeiling)
	}
	if cfg.AudioCaptureMargin != time.Second {
		t.Errorf("Expected default margin 1s, got %s", cfg.AudioCaptureMargin)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("WATCH_DIRS", "/in, /drop ,")
	t.Setenv("VIDEO_CAPTURE_CEILING_SEC", "10")

	cfg := Load()
	if cfg.HTTPPort != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected /tmp/test.db, got %s", cfg.DBPath)
	}
	if len(cfg.WatchDirs) != 2 || cfg.WatchDirs[0] != "/in" || cfg.WatchDirs[1] != "/drop" {
		t.Errorf("Expected trimmed watch dirs, got %v", cfg.WatchDirs)
	}
	if cfg.VideoCaptureCeiling != 10*time.Second {
		t.Errorf("Expected ceiling 10s, got %s", cfg.VideoCaptureCeiling)
	}
}

func TestLoadRejectsBadInt(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")
	cfg := Load()
	if cfg.HTTPPort != 8080 {
		t.Errorf("Expected fallback to 8080, got %d", cfg.HTTPPort)
	}
}

func TestHTTPAddr(t *testing.T) {
	cfg := &Config{HTTPPort: 8081}
	if cfg.HTTPAddr() != ":8081" {
		t.Errorf("Expected ':8081', got %s", cfg.HTTPAddr())
	}
}
