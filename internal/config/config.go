package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is loaded from environment variables. Every field has a default so
// the daemon starts with no configuration at all.
type Config struct {
	HTTPPort    int
	DBPath      string
	LogLevel    string
	WatchDirs   []string
	MaxUploadMB int64

	// Approximate capture pacing defaults for the video and audio strategies.
	VideoFrameRate      int
	VideoBitsPerSecond  int
	VideoCaptureCeiling time.Duration
	AudioCaptureMargin  time.Duration
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTPPort = getEnvInt("HTTP_PORT", 8080)
	cfg.DBPath = getEnv("DB_PATH", "data/history.db")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.WatchDirs = splitAndTrim(os.Getenv("WATCH_DIRS"))
	cfg.MaxUploadMB = int64(getEnvInt("MAX_UPLOAD_MB", 512))
	cfg.VideoFrameRate = getEnvInt("VIDEO_FRAME_RATE", 30)
	cfg.VideoBitsPerSecond = getEnvInt("VIDEO_BITRATE", 2_500_000)
	cfg.VideoCaptureCeiling = time.Duration(getEnvInt("VIDEO_CAPTURE_CEILING_SEC", 30)) * time.Second
	cfg.AudioCaptureMargin = time.Duration(getEnvInt("AUDIO_CAPTURE_MARGIN_SEC", 1)) * time.Second
	return cfg
}

func (c *Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

func splitAndTrim(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
