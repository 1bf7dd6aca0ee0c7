package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"

	"github.com/fileforge/fileforge/internal/format"
)

// DefaultAudioCaptureMargin is the extra recording time appended after the
// rendered source length so the capture never clips the tail.
const DefaultAudioCaptureMargin = time.Second

// audioCaptureBlock is how much rendered audio each capture tick delivers.
const audioCaptureBlock = 250 * time.Millisecond

// audioTargetMIME is the fixed container fallback table for audio targets.
// flac has no recordable native container and falls back to ogg; aac and m4a
// map to the mp4 family.
var audioTargetMIME = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"flac": "audio/ogg",
	"aac":  "audio/mp4",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
}

// audioNaturalMIME maps a source extension to the container it arrived in.
var audioNaturalMIME = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
	"wma":  "audio/x-ms-wma",
}

// AudioSource carries both the raw payload and the decoded sample buffer, so
// recorders may either re-encode PCM or pass the original container through.
type AudioSource struct {
	Ext    string
	Raw    []byte
	Buffer *audio.IntBuffer
}

// AudioCapture accumulates rendered sample blocks into the final artifact.
type AudioCapture interface {
	Write(block *audio.IntBuffer) error
	Finish() ([]byte, error)
}

// AudioRecorder opens captures for target MIME types. The default recorder
// produces PCM wav output and passes matching containers through unchanged;
// anything else is a CapabilityError.
type AudioRecorder interface {
	Record(mimeType string, src *AudioSource) (AudioCapture, error)
}

// AudioOptions configures the audio strategy. Zero values select defaults.
type AudioOptions struct {
	CaptureMargin time.Duration
	Clock         Clock
	Recorder      AudioRecorder
}

type audioStrategy struct {
	opts AudioOptions
}

func newAudioStrategy(opts AudioOptions) *audioStrategy {
	if opts.CaptureMargin <= 0 {
		opts.CaptureMargin = DefaultAudioCaptureMargin
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = &pcmRecorder{}
	}
	return &audioStrategy{opts: opts}
}

func (s *audioStrategy) Category() format.Category { return format.Audio }

// Convert decodes the payload to PCM, runs the offline render pass, then
// captures the rendered buffer in real time for the source duration plus the
// configured margin. Wall-clock time proportional to source length is an
// intentional consequence of the codec-free design.
func (s *audioStrategy) Convert(ctx context.Context, req Request, progress ProgressFunc) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf, err := decodeAudio(req.Data, req.SourceExt)
	if err != nil {
		return nil, err
	}
	progress(Event{Percent: 30, Phase: PhaseConverting, Message: "audio decoded"})

	rendered := renderOffline(buf)
	progress(Event{Percent: 60, Phase: PhaseConverting, Message: "offline render complete"})

	mimeType, ok := audioTargetMIME[req.TargetExt]
	if !ok {
		return nil, &UnsupportedTargetError{Category: format.Audio, Target: req.TargetExt}
	}
	capture, err := s.opts.Recorder.Record(mimeType, &AudioSource{Ext: req.SourceExt, Raw: req.Data, Buffer: rendered})
	if err != nil {
		return nil, err
	}

	if err := s.capture(ctx, rendered, capture); err != nil {
		return nil, err
	}

	out, err := capture.Finish()
	if err != nil {
		return nil, &EncodeError{Target: req.TargetExt, Err: err}
	}
	if len(out) == 0 {
		return nil, &EncodeError{Target: req.TargetExt}
	}

	progress(Event{Percent: 100, Phase: PhaseCompleted})
	return &Artifact{Data: out, Ext: req.TargetExt, MIME: mimeType}, nil
}

// capture feeds rendered blocks at real-time pace, then keeps recording for
// the margin before stopping.
func (s *audioStrategy) capture(ctx context.Context, rendered *audio.IntBuffer, capture AudioCapture) error {
	clock := s.opts.Clock
	end := clock.Now().Add(bufferDuration(rendered) + s.opts.CaptureMargin)
	ticks, stop := clock.Tick(audioCaptureBlock)
	defer stop()

	frames := rendered.NumFrames()
	blockFrames := int(float64(rendered.Format.SampleRate) * audioCaptureBlock.Seconds())
	if blockFrames < 1 {
		blockFrames = 1
	}

	offset := 0 // in frames
	for offset < frames || clock.Now().Before(end) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
		}
		if offset >= frames {
			continue
		}
		n := blockFrames
		if offset+n > frames {
			n = frames - offset
		}
		ch := rendered.Format.NumChannels
		block := &audio.IntBuffer{
			Format:         rendered.Format,
			SourceBitDepth: rendered.SourceBitDepth,
			Data:           rendered.Data[offset*ch : (offset+n)*ch],
		}
		if err := capture.Write(block); err != nil {
			return &EncodeError{Target: "", Err: err}
		}
		offset += n
	}
	return nil
}

func bufferDuration(buf *audio.IntBuffer) time.Duration {
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(buf.NumFrames()) / float64(buf.Format.SampleRate) * float64(time.Second))
}

// renderOffline reproduces the decoded buffer sample-for-sample through a
// non-real-time pass, mirroring the original offline rendering stage.
func renderOffline(buf *audio.IntBuffer) *audio.IntBuffer {
	out := &audio.IntBuffer{
		Format:         buf.Format,
		SourceBitDepth: buf.SourceBitDepth,
		Data:           make([]int, len(buf.Data)),
	}
	copy(out.Data, buf.Data)
	return out
}

// decodeAudio decodes the full payload into an interleaved PCM buffer at the
// source's native sample rate. Formats without a platform decoder surface as
// capability errors; corrupt payloads of supported formats as decode errors.
func decodeAudio(data []byte, ext string) (*audio.IntBuffer, error) {
	switch ext {
	case "wav":
		return decodeWAV(data)
	case "mp3":
		return decodeMP3(data)
	case "flac":
		return decodeFLAC(data)
	}
	return nil, &CapabilityError{MIME: audioNaturalMIME[ext], Reason: fmt.Sprintf("no %s decoder available", ext)}
}

func decodeWAV(data []byte) (*audio.IntBuffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, &DecodeError{Category: format.Audio, Err: errors.New("not a valid wav file")}
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Category: format.Audio, Err: err}
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(dec.BitDepth)
	}
	return buf, nil
}

func decodeMP3(data []byte) (*audio.IntBuffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Category: format.Audio, Err: err}
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, &DecodeError{Category: format.Audio, Err: err}
	}
	// go-mp3 emits 16-bit little-endian stereo.
	samples := make([]int, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		samples = append(samples, int(int16(uint16(raw[i])|uint16(raw[i+1])<<8)))
	}
	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: dec.SampleRate()},
		SourceBitDepth: 16,
		Data:           samples,
	}, nil
}

func decodeFLAC(data []byte) (*audio.IntBuffer, error) {
	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Category: format.Audio, Err: err}
	}
	info := stream.Info
	channels := int(info.NChannels)
	var samples []int
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Category: format.Audio, Err: err}
		}
		if len(f.Subframes) == 0 {
			continue
		}
		n := len(f.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels && ch < len(f.Subframes); ch++ {
				samples = append(samples, int(f.Subframes[ch].Samples[i]))
			}
		}
	}
	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: int(info.SampleRate)},
		SourceBitDepth: int(info.BitsPerSample),
		Data:           samples,
	}, nil
}

// pcmRecorder is the default platform backend: it can encode PCM into a wav
// container and pass a source through when it already sits in the target
// container. Every other MIME type is outside its recording capability.
type pcmRecorder struct{}

func (r *pcmRecorder) Record(mimeType string, src *AudioSource) (AudioCapture, error) {
	if mimeType == "audio/wav" {
		return newWAVCapture(src.Buffer), nil
	}
	if audioNaturalMIME[src.Ext] == mimeType {
		return &passthroughCapture{raw: src.Raw}, nil
	}
	return nil, &CapabilityError{MIME: mimeType, Reason: "cannot record this container without a codec"}
}

// wavCapture re-encodes captured PCM blocks into a wav container.
type wavCapture struct {
	ws  *memWriteSeeker
	enc *wav.Encoder
	err error
}

func newWAVCapture(ref *audio.IntBuffer) *wavCapture {
	ws := &memWriteSeeker{}
	bitDepth := ref.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	enc := wav.NewEncoder(ws, ref.Format.SampleRate, bitDepth, ref.Format.NumChannels, 1)
	return &wavCapture{ws: ws, enc: enc}
}

func (c *wavCapture) Write(block *audio.IntBuffer) error {
	if c.err != nil {
		return c.err
	}
	c.err = c.enc.Write(block)
	return c.err
}

func (c *wavCapture) Finish() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	if err := c.enc.Close(); err != nil {
		return nil, err
	}
	return c.ws.Bytes(), nil
}

// passthroughCapture ignores rendered blocks and emits the original payload;
// the source already sits in the requested container.
type passthroughCapture struct {
	raw []byte
}

func (c *passthroughCapture) Write(*audio.IntBuffer) error { return nil }

func (c *passthroughCapture) Finish() ([]byte, error) { return c.raw, nil }

// memWriteSeeker is an in-memory io.WriteSeeker; the wav encoder seeks back
// to patch the RIFF header on close.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		grown := make([]byte, need)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative seek position")
	}
	m.pos = int(abs)
	return abs, nil
}

func (m *memWriteSeeker) Bytes() []byte { return m.buf }
