package convert

import (
	"context"

	"github.com/fileforge/fileforge/internal/format"
)

// Phase tags a progress event.
type Phase string

const (
	PhaseConverting Phase = "converting"
	PhaseCompleted  Phase = "completed"
	PhaseError      Phase = "error"
)

// Event is a transient status update emitted during one conversion
// invocation. Events are not persisted; callers fold them into their own job
// state.
type Event struct {
	Percent int    `json:"progress"`
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
}

// ProgressFunc receives progress events. It may be nil.
type ProgressFunc func(Event)

// Request describes one conversion invocation.
type Request struct {
	Data      []byte
	Name      string
	Size      int64
	SourceExt string
	TargetExt string
}

// Artifact is the binary output of a successful conversion. MIME describes
// the actual encoding of Data, which for approximated strategies may differ
// from what Ext suggests.
type Artifact struct {
	Data []byte
	Ext  string
	MIME string
}

// Strategy is the category-specific conversion procedure. Implementations
// emit zero or more converting events followed by exactly one completed
// event at 100%, or return an error without emitting a terminal event; the
// Service reports the error phase on their behalf.
type Strategy interface {
	Category() format.Category
	Convert(ctx context.Context, req Request, progress ProgressFunc) (*Artifact, error)
}

// Service dispatches conversion requests to category strategies. It holds no
// job state and is safe for concurrent use; all per-invocation state lives on
// the stack of Convert.
type Service struct {
	strategies map[format.Category]Strategy
}

// Option configures a Service.
type Option func(*Service)

// WithStrategy replaces the strategy for a category. Used to swap in genuine
// codec backends behind the same interface, and by tests.
func WithStrategy(s Strategy) Option {
	return func(svc *Service) {
		svc.strategies[s.Category()] = s
	}
}

// WithVideoOptions configures the built-in video strategy.
func WithVideoOptions(opts VideoOptions) Option {
	return WithStrategy(newVideoStrategy(opts))
}

// WithAudioOptions configures the built-in audio strategy.
func WithAudioOptions(opts AudioOptions) Option {
	return WithStrategy(newAudioStrategy(opts))
}

// NewService creates a conversion service with the built-in strategies.
func NewService(opts ...Option) *Service {
	svc := &Service{strategies: map[format.Category]Strategy{}}
	for _, s := range []Strategy{
		newImageStrategy(),
		newVideoStrategy(VideoOptions{}),
		newAudioStrategy(AudioOptions{}),
		newDocumentStrategy(),
	} {
		svc.strategies[s.Category()] = s
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Convert validates the request against the format registry, runs the
// category strategy, and relays its progress stream. Failures are reported
// once through progress with PhaseError and returned; they are never
// swallowed.
func (svc *Service) Convert(ctx context.Context, category format.Category, req Request, progress ProgressFunc) (*Artifact, error) {
	if progress == nil {
		progress = func(Event) {}
	}
	req.SourceExt = format.Normalize(req.SourceExt)
	req.TargetExt = format.Normalize(req.TargetExt)

	strat, ok := svc.strategies[category]
	if !ok {
		err := &ClassificationError{Ext: req.SourceExt}
		progress(Event{Percent: 0, Phase: PhaseError, Message: err.Error()})
		return nil, err
	}
	if !format.IsOutput(category, req.TargetExt) {
		err := &UnsupportedTargetError{Category: category, Target: req.TargetExt}
		progress(Event{Percent: 0, Phase: PhaseError, Message: err.Error()})
		return nil, err
	}

	artifact, err := strat.Convert(ctx, req, progress)
	if err != nil {
		progress(Event{Percent: 0, Phase: PhaseError, Message: err.Error()})
		return nil, err
	}
	if artifact == nil || len(artifact.Data) == 0 {
		err := &EncodeError{Target: req.TargetExt}
		progress(Event{Percent: 0, Phase: PhaseError, Message: err.Error()})
		return nil, err
	}
	return artifact, nil
}

// ConvertImage converts an image payload. All per-category entry points
// share the Convert shape.
func (svc *Service) ConvertImage(ctx context.Context, req Request, progress ProgressFunc) (*Artifact, error) {
	return svc.Convert(ctx, format.Image, req, progress)
}

// ConvertVideo converts a video payload.
func (svc *Service) ConvertVideo(ctx context.Context, req Request, progress ProgressFunc) (*Artifact, error) {
	return svc.Convert(ctx, format.Video, req, progress)
}

// ConvertAudio converts an audio payload.
func (svc *Service) ConvertAudio(ctx context.Context, req Request, progress ProgressFunc) (*Artifact, error) {
	return svc.Convert(ctx, format.Audio, req, progress)
}

// ConvertDocument converts a document payload.
func (svc *Service) ConvertDocument(ctx context.Context, req Request, progress ProgressFunc) (*Artifact, error) {
	return svc.Convert(ctx, format.Document, req, progress)
}
