package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fileforge/fileforge/internal/job"
)

// settleDelay gives writers a moment to finish before the file is read.
const settleDelay = 500 * time.Millisecond

// Watcher queues jobs for files dropped into watched directories. It is the
// service-side analog of a file picker: each created file is classified and
// queued with the category's default target; unsupported files are skipped.
type Watcher struct {
	mgr   *job.Manager
	w     *fsnotify.Watcher
	roots []string
	log   *zap.Logger
}

func New(mgr *job.Manager, roots []string, log *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{mgr: mgr, w: w, roots: roots, log: log}, nil
}

// Start registers the roots and their subdirectories, then handles events
// until the context is cancelled.
func (wr *Watcher) Start(ctx context.Context) error {
	if err := wr.registerAll(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-wr.w.Events:
			if !ok {
				return nil
			}
			wr.handleEvent(ev)
		case err, ok := <-wr.w.Errors:
			if !ok {
				return nil
			}
			wr.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (wr *Watcher) Close() error { return wr.w.Close() }

func (wr *Watcher) registerAll() error {
	for _, root := range wr.roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				_ = wr.w.Add(path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (wr *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create == 0 {
		return
	}
	fi, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if fi.IsDir() {
		_ = wr.w.Add(ev.Name)
		return
	}

	// Settle off the event loop so one slow writer does not stall sibling
	// events.
	go func(path string) {
		time.Sleep(settleDelay)
		wr.ingest(path)
	}(ev.Name)
}

func (wr *Watcher) ingest(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		wr.log.Warn("read dropped file", zap.String("path", path), zap.Error(err))
		return
	}

	j, err := wr.mgr.Add(filepath.Base(path), int64(len(data)), data)
	if err != nil {
		wr.log.Info("skipping unsupported file", zap.String("path", path), zap.Error(err))
		return
	}
	wr.log.Info("queued from watch dir",
		zap.String("path", path),
		zap.String("job", j.ID.String()),
		zap.String("target", j.TargetExt),
	)
}
