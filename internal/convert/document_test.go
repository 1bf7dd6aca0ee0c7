package convert

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/image/font"
)

func TestTextToPageProducesLetterPNG(t *testing.T) {
	svc := NewService()
	var events []Event

	artifact, err := svc.ConvertDocument(context.Background(), Request{
		Name:      "notes.txt",
		SourceExt: "txt",
		TargetExt: "pdf",
		Size:      11,
		Data:      []byte("hello world"),
	}, collectEvents(&events))
	if err != nil {
		t.Fatalf("txt -> pdf failed: %v", err)
	}

	if artifact.Ext != "pdf" {
		t.Errorf("Expected ext 'pdf', got '%s'", artifact.Ext)
	}
	if artifact.MIME != "image/png" {
		t.Errorf("Expected MIME 'image/png', got '%s'", artifact.MIME)
	}
	img, err := png.Decode(bytes.NewReader(artifact.Data))
	if err != nil {
		t.Fatalf("Page is not valid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != pageWidth || b.Dy() != pageHeight {
		t.Errorf("Expected %dx%d page, got %dx%d", pageWidth, pageHeight, b.Dx(), b.Dy())
	}

	wantPercents := []int{50, 70, 90, 100}
	if len(events) != len(wantPercents) {
		t.Fatalf("Expected %d events, got %d: %+v", len(wantPercents), len(events), events)
	}
	for i, p := range wantPercents {
		if events[i].Percent != p {
			t.Errorf("Event %d: expected %d%%, got %d%%", i, p, events[i].Percent)
		}
	}
	if events[len(events)-1].Phase != PhaseCompleted {
		t.Errorf("Expected terminal completed event, got %s", events[len(events)-1].Phase)
	}
}

func TestPDFRasterizePlaceholder(t *testing.T) {
	svc := NewService()

	for _, target := range []string{"png", "jpg"} {
		artifact, err := svc.ConvertDocument(context.Background(), Request{
			Name:      "report.pdf",
			SourceExt: "pdf",
			TargetExt: target,
			Size:      1234,
			Data:      []byte("%PDF-1.4 stub"),
		}, nil)
		if err != nil {
			t.Fatalf("pdf -> %s failed: %v", target, err)
		}
		var decErr error
		if target == "jpg" {
			_, decErr = jpeg.Decode(bytes.NewReader(artifact.Data))
		} else {
			_, decErr = png.Decode(bytes.NewReader(artifact.Data))
		}
		if decErr != nil {
			t.Errorf("pdf -> %s produced undecodable output: %v", target, decErr)
		}
	}
}

func TestExtractTextPlaceholderEmbedsFileFacts(t *testing.T) {
	svc := NewService()

	artifact, err := svc.ConvertDocument(context.Background(), Request{
		Name:      "essay.docx",
		SourceExt: "docx",
		TargetExt: "txt",
		Size:      4096,
		Data:      []byte("PK\x03\x04 not actually parsed"),
	}, nil)
	if err != nil {
		t.Fatalf("docx -> txt failed: %v", err)
	}

	text := string(artifact.Data)
	for _, want := range []string{"essay.docx", "4096 bytes", "DOCX"} {
		if !strings.Contains(text, want) {
			t.Errorf("Placeholder text missing %q:\n%s", want, text)
		}
	}
	if artifact.MIME != "text/plain; charset=utf-8" {
		t.Errorf("Expected text/plain MIME, got '%s'", artifact.MIME)
	}
}

func TestDocumentUnsupportedPair(t *testing.T) {
	svc := NewService()
	_, err := svc.ConvertDocument(context.Background(), Request{
		Name:      "essay.docx",
		SourceExt: "docx",
		TargetExt: "rtf",
		Data:      []byte("x"),
	}, nil)
	var ucErr *UnsupportedConversionError
	if !errors.As(err, &ucErr) {
		t.Fatalf("Expected UnsupportedConversionError, got %v", err)
	}
}

func TestDecodeTextUTF8Passthrough(t *testing.T) {
	in := []byte("plain utf-8 text with accents: café")
	if got := decodeText(in); got != string(in) {
		t.Errorf("Valid UTF-8 should pass through unchanged, got %q", got)
	}
}

func TestDecodeTextNonUTF8(t *testing.T) {
	// Latin-1 bytes; 0xE9 is invalid as a standalone UTF-8 sequence.
	in := []byte("on parle fran\xe7ais au caf\xe9 pr\xe8s de la gare, c'est tr\xe8s agr\xe9able")
	got := decodeText(in)
	if !utf8.Valid([]byte(got)) {
		t.Errorf("Decoded text is not valid UTF-8: %q", got)
	}
}

func TestWrapTextWidthBound(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	maxWidth := 200
	lines := wrapText(text, maxWidth, pageFace)
	if len(lines) == 0 {
		t.Fatal("Expected wrapped lines")
	}
	for i, line := range lines {
		if strings.Contains(line, "  ") {
			t.Errorf("Line %d has collapsed spacing issue: %q", i, line)
		}
		if len(strings.Fields(line)) > 1 && font.MeasureString(pageFace, line).Ceil() > maxWidth {
			t.Errorf("Line %d exceeds max width: %q", i, line)
		}
	}
}

// Adding words never reduces the number of wrapped lines.
func TestWrapTextMonotonicLineCount(t *testing.T) {
	prev := 0
	for n := 1; n <= 200; n++ {
		lines := wrapText(strings.Repeat("word ", n), 200, pageFace)
		if len(lines) < prev {
			t.Fatalf("Line count shrank from %d to %d at %d words", prev, len(lines), n)
		}
		prev = len(lines)
	}
	if prev < 2 {
		t.Fatalf("Expected 200 words to wrap onto multiple lines, got %d", prev)
	}
}

func TestWrapTextEdgeCases(t *testing.T) {
	if lines := wrapText("", 100, pageFace); lines != nil {
		t.Errorf("Expected nil for empty text, got %v", lines)
	}
	if lines := wrapText("   \n\t ", 100, pageFace); lines != nil {
		t.Errorf("Expected nil for whitespace-only text, got %v", lines)
	}
	// A single word wider than the line occupies its own line unsplit.
	wide := strings.Repeat("x", 100)
	lines := wrapText("a "+wide+" b", 50, pageFace)
	found := false
	for _, l := range lines {
		if l == wide {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected oversize word on its own line, got %v", lines)
	}
}
