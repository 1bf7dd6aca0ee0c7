package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/fileforge/fileforge/internal/convert"
	"github.com/fileforge/fileforge/internal/format"
)

// Status is the job state machine: a job is created pending, moves to
// converting when execution starts, and terminates in exactly one of
// completed or error.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Job is one file's queued conversion record. The manager hands out copies;
// the authoritative instance is replaced wholesale on every update.
type Job struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Size      int64             `json:"size"`
	SourceExt string            `json:"source_ext"`
	Category  format.Category   `json:"category"`
	TargetExt string            `json:"target_ext"`
	Status    Status            `json:"status"`
	Progress  int               `json:"progress"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Artifact  *convert.Artifact `json:"-"`

	data []byte
}

// HasArtifact reports whether a downloadable output exists.
func (j *Job) HasArtifact() bool { return j.Artifact != nil && len(j.Artifact.Data) > 0 }

// OutputName is the artifact filename offered for download.
func (j *Job) OutputName() string {
	base := j.Name
	if i := lastDot(base); i >= 0 {
		base = base[:i]
	}
	return base + "." + j.TargetExt
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
		if s[i] == '/' {
			return -1
		}
	}
	return -1
}

// HistoryEntry is the terminal outcome of one conversion, handed to an
// optional audit sink.
type HistoryEntry struct {
	JobID     string
	FileName  string
	Category  format.Category
	SourceExt string
	TargetExt string
	Status    Status
	Error     string
	OutputLen int64
	Duration  time.Duration
}

// HistorySink records terminal conversion outcomes.
type HistorySink interface {
	Record(entry HistoryEntry)
}
