package job

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fileforge/fileforge/internal/convert"
	"github.com/fileforge/fileforge/internal/format"
)

// Converter is the conversion entry point the manager drives. Satisfied by
// *convert.Service.
type Converter interface {
	Convert(ctx context.Context, category format.Category, req convert.Request, progress convert.ProgressFunc) (*convert.Artifact, error)
}

// Manager owns the job collection. The conversion service itself is
// stateless; every piece of job state lives here. Updates are applied by
// replacing the stored job with a modified copy, keyed by identity, so a
// progress callback for a removed job is a no-op.
type Manager struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*Job
	order   []uuid.UUID
	conv    Converter
	history HistorySink
	log     *zap.Logger
}

// NewManager creates a job manager. history may be nil; log may be nil.
func NewManager(conv Converter, history HistorySink, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		jobs:    map[uuid.UUID]*Job{},
		conv:    conv,
		history: history,
		log:     log,
	}
}

// Add classifies a file and queues a pending job with the category's default
// target. Unsupported extensions fail with a ClassificationError and do not
// affect sibling files.
func (m *Manager) Add(name string, size int64, data []byte) (Job, error) {
	ext := format.Normalize(filepath.Ext(name))
	category := format.Classify(ext)
	if category == format.Unsupported {
		return Job{}, &convert.ClassificationError{Ext: ext}
	}

	now := time.Now()
	j := &Job{
		ID:        uuid.New(),
		Name:      filepath.Base(name),
		Size:      size,
		SourceExt: ext,
		Category:  category,
		TargetExt: format.DefaultOutputFor(category),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		data:      data,
	}

	m.mu.Lock()
	m.jobs[j.ID] = j
	m.order = append(m.order, j.ID)
	m.mu.Unlock()

	m.log.Info("job queued",
		zap.String("job", j.ID.String()),
		zap.String("file", j.Name),
		zap.String("category", string(category)),
	)
	return *j, nil
}

// Get returns a snapshot of a job.
func (m *Manager) Get(id uuid.UUID) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns snapshots of all jobs in insertion order.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.order))
	for _, id := range m.order {
		if j, ok := m.jobs[id]; ok {
			out = append(out, *j)
		}
	}
	return out
}

// SetTarget changes a job's target format. The target is mutable until
// conversion starts.
func (m *Manager) SetTarget(id uuid.UUID, target string) error {
	target = format.Normalize(target)
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if j.Status == StatusConverting {
		return fmt.Errorf("job %s is converting; target is immutable", id)
	}
	if !format.IsOutput(j.Category, target) {
		return &convert.UnsupportedTargetError{Category: j.Category, Target: target}
	}
	next := *j
	next.TargetExt = target
	next.UpdatedAt = time.Now()
	m.jobs[id] = &next
	return nil
}

// Remove discards a job. An in-flight conversion is not interrupted; its
// later callbacks find no job under this identity and fall away. Removing a
// completed job releases the artifact reference.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.Artifact = nil
		delete(m.jobs, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}

// Clear discards every job.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		j.Artifact = nil
	}
	m.jobs = map[uuid.UUID]*Job{}
	m.order = nil
}

// Convert runs one job's conversion to completion. It is synchronous; the
// API layer decides whether to run it in the background.
func (m *Manager) Convert(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("job %s not found", id)
	}
	if j.Status == StatusConverting {
		m.mu.Unlock()
		return fmt.Errorf("job %s is already converting", id)
	}
	req := convert.Request{
		Data:      j.data,
		Name:      j.Name,
		Size:      j.Size,
		SourceExt: j.SourceExt,
		TargetExt: j.TargetExt,
	}
	category := j.Category
	started := *j
	started.Status = StatusConverting
	started.Progress = 0
	started.Error = ""
	started.Artifact = nil
	started.UpdatedAt = time.Now()
	m.jobs[id] = &started
	m.mu.Unlock()

	startTime := time.Now()
	artifact, err := m.conv.Convert(ctx, category, req, func(ev convert.Event) {
		m.applyProgress(id, ev)
	})

	entry := HistoryEntry{
		JobID:     id.String(),
		FileName:  req.Name,
		Category:  category,
		SourceExt: req.SourceExt,
		TargetExt: req.TargetExt,
		Duration:  time.Since(startTime),
	}

	if err != nil {
		entry.Status = StatusError
		entry.Error = err.Error()
		m.log.Warn("conversion failed",
			zap.String("job", id.String()),
			zap.String("file", req.Name),
			zap.Error(err),
		)
	} else {
		entry.Status = StatusCompleted
		entry.OutputLen = int64(len(artifact.Data))
		m.attachArtifact(id, artifact)
		m.log.Info("conversion completed",
			zap.String("job", id.String()),
			zap.String("file", req.Name),
			zap.Int("output_bytes", len(artifact.Data)),
			zap.Duration("duration", entry.Duration),
		)
	}
	if m.history != nil {
		m.history.Record(entry)
	}
	return err
}

// ConvertAll runs every pending job sequentially: one job's strategy must
// resolve or reject before the next begins. This bounds peak resource usage
// at the cost of total latency.
func (m *Manager) ConvertAll(ctx context.Context) {
	m.mu.Lock()
	pending := make([]uuid.UUID, 0, len(m.order))
	for _, id := range m.order {
		if j, ok := m.jobs[id]; ok && j.Status == StatusPending {
			pending = append(pending, id)
		}
	}
	m.mu.Unlock()

	for _, id := range pending {
		if ctx.Err() != nil {
			return
		}
		// Failures are scoped to the job that produced them.
		_ = m.Convert(ctx, id)
	}
}

// applyProgress folds a progress event into the job, replacing the stored
// record by identity. Events for removed jobs are dropped.
func (m *Manager) applyProgress(id uuid.UUID, ev convert.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return
	}
	next := *j
	next.UpdatedAt = time.Now()
	switch ev.Phase {
	case convert.PhaseConverting:
		next.Status = StatusConverting
		next.Progress = ev.Percent
	case convert.PhaseCompleted:
		next.Status = StatusCompleted
		next.Progress = 100
	case convert.PhaseError:
		next.Status = StatusError
		next.Error = ev.Message
	}
	m.jobs[id] = &next
}

func (m *Manager) attachArtifact(id uuid.UUID, artifact *convert.Artifact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		// The job was removed mid-conversion; the artifact is orphaned.
		return
	}
	next := *j
	next.Artifact = artifact
	next.Status = StatusCompleted
	next.Progress = 100
	next.UpdatedAt = time.Now()
	m.jobs[id] = &next
}

// Stats summarizes the collection by status.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Converting int `json:"converting"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Summary returns counts by status.
func (m *Manager) Summary() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	for _, j := range m.jobs {
		s.Total++
		switch j.Status {
		case StatusPending:
			s.Pending++
		case StatusConverting:
			s.Converting++
		case StatusCompleted:
			s.Completed++
		case StatusError:
			s.Failed++
		}
	}
	return s
}
