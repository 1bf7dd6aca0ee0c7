package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abema/go-mp4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/fileforge/fileforge/internal/format"
)

// Default capture pacing: frame cadence, per-second byte budget, and the
// hard recording ceiling. Approximations exposed as configuration rather
// than hard invariants.
const (
	DefaultVideoFrameRate      = 30
	DefaultVideoBitsPerSecond  = 2_500_000
	DefaultVideoCaptureCeiling = 30 * time.Second
)

// videoTargetMIME is the fixed container fallback table: targets without a
// recordable native container are mapped onto one the platform can produce.
var videoTargetMIME = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/mp4",
	"avi":  "video/mp4",
	"wmv":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/webm",
}

// VideoMeta describes a loaded video source once its metadata is available.
type VideoMeta struct {
	Duration  time.Duration // zero when the container does not declare one
	Width     int
	Height    int
	Container string // "isobmff" or "ebml"
}

// VideoRecorder assembles captured chunks into the final artifact.
type VideoRecorder interface {
	Write(chunk []byte) error
	Finish() ([]byte, error)
}

// VideoEngine abstracts the platform's media facilities: metadata probing and
// chunk recording. The default engine remuxes compatible containers and
// refuses the rest; a genuine transcoder can be swapped in behind the same
// interface.
type VideoEngine interface {
	// Probe loads the source far enough to resolve duration and dimensions.
	Probe(data []byte, ext string) (*VideoMeta, error)
	// Recorder opens a recorder for the given MIME type, or returns a
	// CapabilityError when the platform cannot record it from this source.
	Recorder(meta *VideoMeta, mimeType string) (VideoRecorder, error)
}

// VideoOptions configures the video strategy. Zero values select defaults.
type VideoOptions struct {
	FrameRate      int
	BitsPerSecond  int
	CaptureCeiling time.Duration
	Clock          Clock
	Engine         VideoEngine
}

type videoStrategy struct {
	opts VideoOptions
}

func newVideoStrategy(opts VideoOptions) *videoStrategy {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultVideoFrameRate
	}
	if opts.BitsPerSecond <= 0 {
		opts.BitsPerSecond = DefaultVideoBitsPerSecond
	}
	if opts.CaptureCeiling <= 0 {
		opts.CaptureCeiling = DefaultVideoCaptureCeiling
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Engine == nil {
		opts.Engine = &remuxEngine{}
	}
	return &videoStrategy{opts: opts}
}

func (s *videoStrategy) Category() format.Category { return format.Video }

// Convert drives the capture pipeline: probe metadata, open a recorder for
// the mapped MIME type, then pump byte-budgeted chunks at the configured
// frame rate until the source is exhausted or the hard ceiling elapses.
// Audio tracks are not carried over.
func (s *videoStrategy) Convert(ctx context.Context, req Request, progress ProgressFunc) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta, err := s.opts.Engine.Probe(req.Data, req.SourceExt)
	if err != nil {
		var capErr *CapabilityError
		if errors.As(err, &capErr) {
			return nil, err
		}
		return nil, &DecodeError{Category: format.Video, Err: err}
	}
	progress(Event{Percent: 30, Phase: PhaseConverting, Message: "video metadata loaded"})

	mimeType, ok := videoTargetMIME[req.TargetExt]
	if !ok {
		return nil, &UnsupportedTargetError{Category: format.Video, Target: req.TargetExt}
	}
	rec, err := s.opts.Engine.Recorder(meta, mimeType)
	if err != nil {
		return nil, err
	}

	frameInterval := time.Second / time.Duration(s.opts.FrameRate)
	bytesPerFrame := s.opts.BitsPerSecond / 8 / s.opts.FrameRate
	if bytesPerFrame < 1 {
		bytesPerFrame = 1
	}

	clock := s.opts.Clock
	deadline := clock.Now().Add(s.opts.CaptureCeiling)
	ticks, stop := clock.Tick(frameInterval)
	defer stop()

	offset := 0
	for offset < len(req.Data) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticks:
		}
		if !clock.Now().Before(deadline) {
			// Hard ceiling: stop recording with whatever was captured.
			break
		}
		end := offset + bytesPerFrame
		if end > len(req.Data) {
			end = len(req.Data)
		}
		if err := rec.Write(req.Data[offset:end]); err != nil {
			return nil, &EncodeError{Target: req.TargetExt, Err: err}
		}
		offset = end
	}

	out, err := rec.Finish()
	if err != nil {
		return nil, &EncodeError{Target: req.TargetExt, Err: err}
	}
	if len(out) == 0 {
		return nil, &EncodeError{Target: req.TargetExt}
	}

	progress(Event{Percent: 100, Phase: PhaseCompleted})
	return &Artifact{Data: out, Ext: req.TargetExt, MIME: mimeType}, nil
}

// remuxEngine is the default platform backend. It performs no transcoding:
// ISO-BMFF sources can be recorded into an mp4 container (major brand
// rewritten), EBML sources into a webm container. Everything else is outside
// this platform's recording capability.
type remuxEngine struct{}

var ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

func (e *remuxEngine) Probe(data []byte, ext string) (*VideoMeta, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty video payload")
	}
	if bytes.HasPrefix(data, ebmlMagic) {
		// Matroska and WebM share the EBML framing; duration lives deep in
		// the Segment Information element and is left unknown here, so the
		// capture ceiling governs recording length.
		return &VideoMeta{Container: "ebml"}, nil
	}
	if isISOBMFF(data) {
		meta := &VideoMeta{Container: "isobmff"}
		probeISOBMFF(data, meta)
		return meta, nil
	}

	mtype := mimetype.Detect(data)
	return nil, fmt.Errorf("cannot decode %s container (detected %s)", ext, mtype.String())
}

func (e *remuxEngine) Recorder(meta *VideoMeta, mimeType string) (VideoRecorder, error) {
	switch {
	case meta.Container == "isobmff" && mimeType == "video/mp4":
		return &remuxRecorder{rewriteBrand: "isom"}, nil
	case meta.Container == "ebml" && mimeType == "video/webm":
		return &remuxRecorder{}, nil
	}
	return nil, &CapabilityError{MIME: mimeType, Reason: fmt.Sprintf("cannot record %s source without a codec", meta.Container)}
}

func isISOBMFF(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp"))
}

// probeISOBMFF fills duration and dimensions from the mvhd and tkhd boxes.
// Probing is best effort; a header-only or fragmented file leaves the zero
// values in place.
func probeISOBMFF(data []byte, meta *VideoMeta) {
	r := bytes.NewReader(data)
	if info, err := mp4.Probe(r); err == nil && info.Timescale > 0 {
		meta.Duration = time.Duration(float64(info.Duration) / float64(info.Timescale) * float64(time.Second))
	}

	r = bytes.NewReader(data)
	_, _ = mp4.ReadBoxStructure(r, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov(), mp4.BoxTypeTrak():
			return h.Expand()
		case mp4.BoxTypeTkhd():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, nil
			}
			tkhd, ok := box.(*mp4.Tkhd)
			if !ok {
				return nil, nil
			}
			// tkhd stores 16.16 fixed-point; the first video track wins.
			if meta.Width == 0 && tkhd.Width > 0 {
				meta.Width = int(tkhd.Width >> 16)
				meta.Height = int(tkhd.Height >> 16)
			}
		}
		return nil, nil
	})
}

// remuxRecorder buffers chunks and optionally rewrites the ftyp major brand
// of the assembled stream.
type remuxRecorder struct {
	buf          bytes.Buffer
	rewriteBrand string
}

func (r *remuxRecorder) Write(chunk []byte) error {
	_, err := r.buf.Write(chunk)
	return err
}

func (r *remuxRecorder) Finish() ([]byte, error) {
	out := r.buf.Bytes()
	if r.rewriteBrand != "" {
		out = rewriteMajorBrand(out, r.rewriteBrand)
	}
	return out, nil
}

// rewriteMajorBrand patches the ftyp major brand in place so a QuickTime
// stream presents as a plain mp4. A truncated header is returned unchanged.
func rewriteMajorBrand(data []byte, brand string) []byte {
	if !isISOBMFF(data) || len(brand) != 4 {
		return data
	}
	if bytes.Equal(data[8:12], []byte(brand)) {
		return data
	}
	out := make([]byte, len(data))
	copy(out, data)
	copy(out[8:12], brand)
	return out
}
