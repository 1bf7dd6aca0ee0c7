package convert

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	_ "golang.org/x/image/webp" // decode only

	"github.com/fileforge/fileforge/internal/format"
)

// jpegQuality mirrors the fixed 0.9 quality factor used for lossy targets.
const jpegQuality = 90

type imageStrategy struct{}

func newImageStrategy() *imageStrategy { return &imageStrategy{} }

func (s *imageStrategy) Category() format.Category { return format.Image }

func (s *imageStrategy) Convert(ctx context.Context, req Request, progress ProgressFunc) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.SourceExt == "svg" {
		// SVG is accepted as an input extension but this platform carries no
		// rasterizer for it.
		return nil, &CapabilityError{MIME: "image/svg+xml", Reason: "no SVG rasterizer available"}
	}

	progress(Event{Percent: 10, Phase: PhaseConverting, Message: "decoding image"})
	img, _, err := image.Decode(bytes.NewReader(req.Data))
	if err != nil {
		return nil, &DecodeError{Category: format.Image, Err: err}
	}
	if req.SourceExt == "jpg" || req.SourceExt == "jpeg" {
		img = applyEXIFOrientation(req.Data, img)
	}

	progress(Event{Percent: 50, Phase: PhaseConverting, Message: "encoding image"})
	var buf bytes.Buffer
	switch req.TargetExt {
	case "jpg", "jpeg":
		err = jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: jpegQuality})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, nil)
	case "webp":
		return nil, &CapabilityError{MIME: "image/webp", Reason: "no webp encoder available"}
	default:
		return nil, &UnsupportedTargetError{Category: format.Image, Target: req.TargetExt}
	}
	if err != nil {
		return nil, &EncodeError{Target: req.TargetExt, Err: err}
	}
	if buf.Len() == 0 {
		return nil, &EncodeError{Target: req.TargetExt}
	}

	progress(Event{Percent: 100, Phase: PhaseCompleted})
	return &Artifact{Data: buf.Bytes(), Ext: req.TargetExt, MIME: imageMIME(req.TargetExt)}, nil
}

func imageMIME(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	}
	return "application/octet-stream"
}

// flatten draws img onto an opaque RGBA surface. JPEG has no alpha channel;
// transparent regions become white.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// applyEXIFOrientation reads the JPEG orientation tag and rotates or mirrors
// the decoded pixels so the re-encoded output is upright. Missing or
// unreadable EXIF leaves the image untouched.
func applyEXIFOrientation(raw []byte, img image.Image) image.Image {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return img
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}

	if orientation < 2 || orientation > 8 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	swapped := orientation >= 5 // orientations 5-8 exchange width and height

	// Map each destination pixel back to its source pixel.
	var source func(x, y int) (int, int)
	switch orientation {
	case 2: // mirrored horizontally
		source = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotated 180
		source = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // mirrored vertically
		source = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transposed
		source = func(x, y int) (int, int) { return y, x }
	case 6: // rotated 90 clockwise
		source = func(x, y int) (int, int) { return y, h - 1 - x }
	case 7: // transversed
		source = func(x, y int) (int, int) { return w - 1 - y, h - 1 - x }
	case 8: // rotated 270 clockwise
		source = func(x, y int) (int, int) { return w - 1 - y, x }
	}

	dw, dh := w, h
	if swapped {
		dw, dh = h, w
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			sx, sy := source(x, y)
			dst.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}
