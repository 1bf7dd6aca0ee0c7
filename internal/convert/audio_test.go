package convert

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func makeWAV(t *testing.T, frames, sampleRate int) []byte {
	t.Helper()
	ws := &memWriteSeeker{}
	enc := wav.NewEncoder(ws, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, frames),
	}
	for i := range buf.Data {
		buf.Data[i] = (i%256 - 128) * 64
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode test wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close test wav: %v", err)
	}
	return ws.Bytes()
}

func TestAudioWAVRoundTrip(t *testing.T) {
	const frames = 4000
	const rate = 8000
	src := makeWAV(t, frames, rate)

	svc := NewService(WithAudioOptions(AudioOptions{Clock: newFakeClock()}))
	var events []Event
	artifact, err := svc.ConvertAudio(context.Background(), Request{
		Name:      "tone.wav",
		SourceExt: "wav",
		TargetExt: "wav",
		Data:      src,
	}, collectEvents(&events))
	if err != nil {
		t.Fatalf("ConvertAudio failed: %v", err)
	}

	if artifact.MIME != "audio/wav" {
		t.Errorf("Expected MIME 'audio/wav', got '%s'", artifact.MIME)
	}
	dec := wav.NewDecoder(bytes.NewReader(artifact.Data))
	if !dec.IsValidFile() {
		t.Fatal("Output is not a valid wav file")
	}
	out, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("Decode output wav: %v", err)
	}
	if out.NumFrames() != frames {
		t.Errorf("Expected %d frames, got %d", frames, out.NumFrames())
	}
	if out.Format.SampleRate != rate {
		t.Errorf("Expected sample rate %d, got %d", rate, out.Format.SampleRate)
	}

	if len(events) < 3 {
		t.Fatalf("Expected at least 3 events, got %d", len(events))
	}
	if events[0].Percent != 30 || events[1].Percent != 60 {
		t.Errorf("Expected 30%% then 60%% milestones, got %d%% then %d%%", events[0].Percent, events[1].Percent)
	}
	last := events[len(events)-1]
	if last.Phase != PhaseCompleted || last.Percent != 100 {
		t.Errorf("Expected terminal completed@100, got %s@%d", last.Phase, last.Percent)
	}
}

func TestAudioDecoderUnavailable(t *testing.T) {
	svc := NewService(WithAudioOptions(AudioOptions{Clock: newFakeClock()}))
	for _, ext := range []string{"aac", "ogg", "m4a", "wma"} {
		_, err := svc.ConvertAudio(context.Background(), Request{
			Name:      "track." + ext,
			SourceExt: ext,
			TargetExt: "wav",
			Data:      []byte("opaque audio payload"),
		}, nil)
		if !IsCapabilityError(err) {
			t.Errorf("Expected CapabilityError for %s source, got %v", ext, err)
		}
	}
}

func TestAudioCorruptSource(t *testing.T) {
	svc := NewService(WithAudioOptions(AudioOptions{Clock: newFakeClock()}))
	_, err := svc.ConvertAudio(context.Background(), Request{
		Name:      "broken.wav",
		SourceExt: "wav",
		TargetExt: "wav",
		Data:      []byte("not RIFF data at all"),
	}, nil)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
}

func TestAudioTargetWithoutRecorder(t *testing.T) {
	svc := NewService(WithAudioOptions(AudioOptions{Clock: newFakeClock()}))
	// flac falls back to audio/ogg, which the default recorder cannot produce
	// from a wav source.
	_, err := svc.ConvertAudio(context.Background(), Request{
		Name:      "tone.wav",
		SourceExt: "wav",
		TargetExt: "flac",
		Data:      makeWAV(t, 100, 8000),
	}, nil)
	if !IsCapabilityError(err) {
		t.Fatalf("Expected CapabilityError for wav -> flac, got %v", err)
	}
}

func TestAudioTargetMIMEFallbacks(t *testing.T) {
	tests := []struct {
		target string
		mime   string
	}{
		{"mp3", "audio/mpeg"},
		{"wav", "audio/wav"},
		{"flac", "audio/ogg"},
		{"aac", "audio/mp4"},
		{"ogg", "audio/ogg"},
		{"m4a", "audio/mp4"},
	}
	for _, tt := range tests {
		got, ok := audioTargetMIME[tt.target]
		if !ok {
			t.Errorf("No MIME mapping for %s", tt.target)
			continue
		}
		if got != tt.mime {
			t.Errorf("Target %s: expected %s, got %s", tt.target, tt.mime, got)
		}
	}
}

func TestPCMRecorderPassthrough(t *testing.T) {
	raw := []byte("original mp3 container bytes")
	rec := &pcmRecorder{}
	capture, err := rec.Record("audio/mpeg", &AudioSource{Ext: "mp3", Raw: raw})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := capture.Write(&audio.IntBuffer{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out, err := capture.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Error("Passthrough capture must emit the original payload")
	}
}

func TestPCMRecorderRejectsForeignContainer(t *testing.T) {
	rec := &pcmRecorder{}
	_, err := rec.Record("audio/mp4", &AudioSource{Ext: "wav", Raw: []byte("riff")})
	if !IsCapabilityError(err) {
		t.Fatalf("Expected CapabilityError, got %v", err)
	}
}

func TestMemWriteSeekerPatchesHeader(t *testing.T) {
	ws := &memWriteSeeker{}
	if _, err := ws.Write([]byte("AAAABBBB")); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Write([]byte("CC")); err != nil {
		t.Fatal(err)
	}
	if got := string(ws.Bytes()); got != "CCAABBBB" {
		t.Errorf("Expected 'CCAABBBB', got %q", got)
	}
}
