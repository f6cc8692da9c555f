package qrcode

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
)

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	renderer := NewRenderer(0)
	data, err := renderer.Render("eyJhbGciOiJIUzI1NiJ9." + strings.Repeat("a", 120) + ".sig")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("expected a PNG image: %v", err)
	}
	if got := img.Bounds().Dx(); got != DefaultSize {
		t.Fatalf("expected %dpx image, got %d", DefaultSize, got)
	}

	if _, err := renderer.Render(""); err == nil {
		t.Fatalf("expected empty content to fail")
	}
}
