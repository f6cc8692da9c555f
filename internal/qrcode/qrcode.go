// Package qrcode renders attendance tokens as PNG images.
package qrcode

import (
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of rendered images.
const DefaultSize = 256

// Renderer encodes content into a PNG QR code.
type Renderer struct {
	Size  int
	Level goqrcode.RecoveryLevel
}

// NewRenderer returns a renderer with medium error correction.
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{Size: size, Level: goqrcode.Medium}
}

// Render returns the PNG encoding of content.
func (r *Renderer) Render(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	png, err := goqrcode.Encode(content, r.Level, r.Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
