package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fileforge/fileforge/internal/api"
	"github.com/fileforge/fileforge/internal/config"
	"github.com/fileforge/fileforge/internal/convert"
	"github.com/fileforge/fileforge/internal/job"
	"github.com/fileforge/fileforge/internal/store"
	"github.com/fileforge/fileforge/internal/watcher"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting fileforged",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("db_path", cfg.DBPath),
		zap.Strings("watch_dirs", cfg.WatchDirs),
	)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("create data directory", zap.Error(err))
		}
	}
	hist, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open history store", zap.Error(err))
	}

	svc := convert.NewService(
		convert.WithVideoOptions(convert.VideoOptions{
			FrameRate:      cfg.VideoFrameRate,
			BitsPerSecond:  cfg.VideoBitsPerSecond,
			CaptureCeiling: cfg.VideoCaptureCeiling,
		}),
		convert.WithAudioOptions(convert.AudioOptions{
			CaptureMargin: cfg.AudioCaptureMargin,
		}),
	)
	mgr := job.NewManager(svc, hist, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.WatchDirs) > 0 {
		w, err := watcher.New(mgr, cfg.WatchDirs, logger)
		if err != nil {
			logger.Fatal("create watcher", zap.Error(err))
		}
		defer w.Close()
		go func() {
			if err := w.Start(ctx); err != nil {
				logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	server := api.NewServer(mgr, hist, logger)
	server.Router.MaxMultipartMemory = cfg.MaxUploadMB << 20
	go func() {
		if err := server.Run(cfg.HTTPAddr()); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()
	logger.Info("fileforged is running", zap.String("addr", cfg.HTTPAddr()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
