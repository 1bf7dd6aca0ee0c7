package convert

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Letter page geometry at 96 dpi, with a fixed margin. The text pipeline
// draws at most pageMaxLines wrapped lines before stopping.
const (
	pageWidth    = 816
	pageHeight   = 1056
	pageMargin   = 64
	pageLineSkip = 18
	pageMaxLines = 40
)

var pageFace font.Face = basicfont.Face7x13

// wrapText greedily word-wraps text to maxWidth using measured run widths.
// A single word wider than maxWidth occupies its own line unsplit.
func wrapText(text string, maxWidth int, face font.Face) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		cand := cur + " " + w
		if font.MeasureString(face, cand).Ceil() <= maxWidth {
			cur = cand
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	return append(lines, cur)
}

// newPage allocates a white letter-sized surface.
func newPage() *image.RGBA {
	page := image.NewRGBA(image.Rect(0, 0, pageWidth, pageHeight))
	draw.Draw(page, page.Bounds(), image.White, image.Point{}, draw.Src)
	return page
}

// drawLines writes lines top to bottom at the fixed line height, stopping
// early once the cursor passes the bottom margin.
func drawLines(page *image.RGBA, lines []string, face font.Face) {
	if len(lines) > pageMaxLines {
		lines = lines[:pageMaxLines]
	}
	d := &font.Drawer{
		Dst:  page,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	metrics := face.Metrics()
	y := pageMargin + metrics.Ascent.Ceil()
	for _, line := range lines {
		if y > pageHeight-pageMargin {
			break
		}
		d.Dot = fixed.P(pageMargin, y)
		d.DrawString(line)
		y += pageLineSkip
	}
}
