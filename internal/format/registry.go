package format

import "strings"

// Category partitions supported file extensions into media families.
type Category string

const (
	Image    Category = "image"
	Video    Category = "video"
	Audio    Category = "audio"
	Document Category = "document"

	// Unsupported is returned by Classify for extensions outside every
	// category's input set.
	Unsupported Category = "unsupported"
)

type entry struct {
	inputs  []string
	outputs []string
}

// The table is fixed at compile time. Input sets are pairwise disjoint so
// classification is unambiguous; output sets may overlap (png is both an
// image output and a document rasterization output).
var table = map[Category]entry{
	Image: {
		inputs:  []string{"jpg", "jpeg", "png", "gif", "bmp", "webp", "tiff", "svg"},
		outputs: []string{"jpg", "jpeg", "png", "gif", "bmp", "webp", "tiff"},
	},
	Video: {
		inputs:  []string{"mp4", "avi", "mov", "wmv", "flv", "mkv", "webm", "m4v"},
		outputs: []string{"mp4", "avi", "mov", "wmv", "webm", "mkv"},
	},
	Audio: {
		inputs:  []string{"mp3", "wav", "flac", "aac", "ogg", "m4a", "wma"},
		outputs: []string{"mp3", "wav", "flac", "aac", "ogg", "m4a"},
	},
	Document: {
		inputs:  []string{"pdf", "doc", "docx", "txt", "rtf", "odt"},
		outputs: []string{"pdf", "doc", "docx", "txt", "rtf", "png", "jpg"},
	},
}

// categories in a stable presentation order.
var ordered = []Category{Image, Video, Audio, Document}

// Normalize lowercases an extension and strips a leading dot.
func Normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Classify returns the unique category whose input set contains ext, or
// Unsupported if no category matches. Lookup is case-insensitive and
// tolerates a leading dot.
func Classify(ext string) Category {
	ext = Normalize(ext)
	if ext == "" {
		return Unsupported
	}
	for _, c := range ordered {
		for _, in := range table[c].inputs {
			if in == ext {
				return c
			}
		}
	}
	return Unsupported
}

// Categories returns all categories in presentation order.
func Categories() []Category {
	out := make([]Category, len(ordered))
	copy(out, ordered)
	return out
}

// InputsFor returns the accepted input extensions for a category.
func InputsFor(c Category) []string {
	e, ok := table[c]
	if !ok {
		return nil
	}
	out := make([]string, len(e.inputs))
	copy(out, e.inputs)
	return out
}

// OutputsFor returns the permitted output extensions for a category, in the
// order they should be offered to a user.
func OutputsFor(c Category) []string {
	e, ok := table[c]
	if !ok {
		return nil
	}
	out := make([]string, len(e.outputs))
	copy(out, e.outputs)
	return out
}

// DefaultOutputFor returns the first permitted output for a category. It is
// used to pre-select a target when a file is first classified.
func DefaultOutputFor(c Category) string {
	e, ok := table[c]
	if !ok || len(e.outputs) == 0 {
		return ""
	}
	return e.outputs[0]
}

// IsOutput reports whether ext is a permitted output for category c.
func IsOutput(c Category, ext string) bool {
	ext = Normalize(ext)
	for _, o := range OutputsFor(c) {
		if o == ext {
			return true
		}
	}
	return false
}
