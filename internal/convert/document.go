package convert

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/fileforge/fileforge/internal/format"
)

type documentStrategy struct{}

func newDocumentStrategy() *documentStrategy { return &documentStrategy{} }

func (s *documentStrategy) Category() format.Category { return format.Document }

// Convert applies the document dispatch rules in order:
//  1. pdf -> png/jpg: rasterize a placeholder page (real page content is not
//     rendered; a deliberate stand-in).
//  2. txt -> pdf: read the text, run the text-to-page pipeline.
//  3. Otherwise extract a text representation, then: pdf target runs the
//     text-to-page pipeline, txt target wraps the text verbatim, anything
//     else is an unsupported conversion.
//
// "PDF" artifacts are image-encoded pages, not a real PDF container; the
// artifact MIME reports the actual encoding.
func (s *documentStrategy) Convert(ctx context.Context, req Request, progress ProgressFunc) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, tgt := req.SourceExt, req.TargetExt

	if src == "pdf" && (tgt == "png" || tgt == "jpg") {
		return s.rasterizePDF(req, progress)
	}
	if src == "txt" && tgt == "pdf" {
		text := decodeText(req.Data)
		return s.textToPage(text, progress)
	}

	text := extractText(req)
	switch tgt {
	case "pdf":
		return s.textToPage(text, progress)
	case "txt":
		progress(Event{Percent: 100, Phase: PhaseCompleted})
		return &Artifact{Data: []byte(text), Ext: "txt", MIME: "text/plain; charset=utf-8"}, nil
	}
	return nil, &UnsupportedConversionError{Source: src, Target: tgt}
}

// rasterizePDF produces a letter-sized image describing the source file.
// Actual PDF page rendering is out of scope for this platform.
func (s *documentStrategy) rasterizePDF(req Request, progress ProgressFunc) (*Artifact, error) {
	progress(Event{Percent: 30, Phase: PhaseConverting, Message: "reading document"})

	page := newPage()
	lines := []string{
		req.Name,
		fmt.Sprintf("%d bytes", req.Size),
		"PDF preview - page content rendering not available",
	}
	drawLines(page, lines, pageFace)

	progress(Event{Percent: 90, Phase: PhaseConverting, Message: "finalizing image"})
	var buf bytes.Buffer
	var err error
	if req.TargetExt == "jpg" {
		err = jpeg.Encode(&buf, page, &jpeg.Options{Quality: jpegQuality})
	} else {
		err = png.Encode(&buf, page)
	}
	if err != nil {
		return nil, &EncodeError{Target: req.TargetExt, Err: err}
	}

	progress(Event{Percent: 100, Phase: PhaseCompleted})
	return &Artifact{Data: buf.Bytes(), Ext: req.TargetExt, MIME: imageMIME(req.TargetExt)}, nil
}

// textToPage runs the text-to-"PDF" pipeline: wrap, draw, encode.
func (s *documentStrategy) textToPage(text string, progress ProgressFunc) (*Artifact, error) {
	progress(Event{Percent: 50, Phase: PhaseConverting, Message: "laying out text"})
	lines := wrapText(text, pageWidth-2*pageMargin, pageFace)

	progress(Event{Percent: 70, Phase: PhaseConverting, Message: "drawing page"})
	page := newPage()
	drawLines(page, lines, pageFace)

	progress(Event{Percent: 90, Phase: PhaseConverting, Message: "finalizing document"})
	var buf bytes.Buffer
	if err := png.Encode(&buf, page); err != nil {
		return nil, &EncodeError{Target: "pdf", Err: err}
	}

	progress(Event{Percent: 100, Phase: PhaseCompleted})
	return &Artifact{Data: buf.Bytes(), Ext: "pdf", MIME: "image/png"}, nil
}

// extractText produces a text representation of the source. Genuine text
// files decode to their literal content; PDF sources get best-effort real
// extraction; every other format yields a placeholder that embeds the
// filename and the file's size and type.
func extractText(req Request) string {
	switch req.SourceExt {
	case "txt":
		return decodeText(req.Data)
	case "pdf":
		if text, err := pdfPlainText(req.Data); err == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return fmt.Sprintf(
		"Content extracted from %s\n\n[This is placeholder content - the original %s file could not be fully parsed on this platform.]\n\nFile size: %d bytes\nFile type: %s",
		req.Name, req.SourceExt, req.Size, strings.ToUpper(req.SourceExt))
}

func pdfPlainText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// decodeText converts raw text bytes to UTF-8, detecting the charset when
// the payload is not already valid UTF-8.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	detector := chardet.NewTextDetector()
	if result, err := detector.DetectBest(data); err == nil {
		if enc := lookupEncoding(result.Charset); enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(decoded)
			}
		}
	}
	return string(data)
}

// lookupEncoding maps common charset names to decoders.
func lookupEncoding(charset string) encoding.Encoding {
	switch strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(charset, "-", ""), "_", "")) {
	case "utf8", "ascii", "usascii":
		return unicode.UTF8
	case "utf16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "utf16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "iso88591", "latin1":
		return charmap.ISO8859_1
	case "windows1251", "cp1251":
		return charmap.Windows1251
	case "windows1252", "cp1252":
		return charmap.Windows1252
	case "koi8r":
		return charmap.KOI8R
	case "shiftjis", "sjis", "cp932":
		return japanese.ShiftJIS
	case "eucjp":
		return japanese.EUCJP
	case "euckr", "cp949":
		return korean.EUCKR
	case "gb2312", "gbk", "gb18030", "cp936":
		return simplifiedchinese.GBK
	case "big5", "cp950":
		return traditionalchinese.Big5
	}
	return nil
}
