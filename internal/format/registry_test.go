package format

import "testing"

func TestClassifyKnownExtensions(t *testing.T) {
	tests := []struct {
		ext      string
		expected Category
	}{
		{"jpg", Image},
		{"jpeg", Image},
		{"svg", Image},
		{"webp", Image},
		{"mp4", Video},
		{"m4v", Video},
		{"flv", Video},
		{"mp3", Audio},
		{"wma", Audio},
		{"pdf", Document},
		{"odt", Document},
		{"txt", Document},
	}

	for _, tt := range tests {
		if got := Classify(tt.ext); got != tt.expected {
			t.Errorf("Classify(%q) = %v, expected %v", tt.ext, got, tt.expected)
		}
	}
}

func TestClassifyCaseAndDot(t *testing.T) {
	tests := []struct {
		ext      string
		expected Category
	}{
		{"JPG", Image},
		{".JPEG", Image},
		{".Mp4", Video},
		{" wav ", Audio},
		{".PDF", Document},
	}

	for _, tt := range tests {
		if got := Classify(tt.ext); got != tt.expected {
			t.Errorf("Classify(%q) = %v, expected %v", tt.ext, got, tt.expected)
		}
	}
}

func TestClassifyUnsupported(t *testing.T) {
	for _, ext := range []string{"xyz", "exe", "heic", "", ".", "mp5"} {
		if got := Classify(ext); got != Unsupported {
			t.Errorf("Classify(%q) = %v, expected unsupported", ext, got)
		}
	}
}

// Every input extension must belong to exactly one category.
func TestInputSetsDisjoint(t *testing.T) {
	seen := map[string]Category{}
	total := 0
	for _, c := range Categories() {
		for _, ext := range InputsFor(c) {
			if prev, ok := seen[ext]; ok {
				t.Errorf("extension %q appears in both %v and %v", ext, prev, c)
			}
			seen[ext] = c
			total++
		}
	}
	if total != 27 {
		t.Errorf("expected 27 input extensions across categories, got %d", total)
	}
}

func TestDefaultOutputIsFirstOutput(t *testing.T) {
	for _, c := range Categories() {
		outputs := OutputsFor(c)
		if len(outputs) == 0 {
			t.Fatalf("category %v has no outputs", c)
		}
		def := DefaultOutputFor(c)
		if def != outputs[0] {
			t.Errorf("DefaultOutputFor(%v) = %q, expected first output %q", c, def, outputs[0])
		}
		if !IsOutput(c, def) {
			t.Errorf("DefaultOutputFor(%v) = %q is not a member of OutputsFor", c, def)
		}
	}
}

func TestSVGIsInputOnly(t *testing.T) {
	if Classify("svg") != Image {
		t.Fatal("svg should classify as image input")
	}
	if IsOutput(Image, "svg") {
		t.Error("svg must never be a valid output target")
	}
}

func TestIsOutputUnknownCategory(t *testing.T) {
	if IsOutput(Category("archive"), "zip") {
		t.Error("unknown category should have no outputs")
	}
	if DefaultOutputFor(Category("archive")) != "" {
		t.Error("unknown category should have empty default output")
	}
}
