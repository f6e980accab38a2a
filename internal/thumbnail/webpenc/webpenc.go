// Package webpenc encodes derivatives as lossy WebP through libwebp.
package webpenc

import (
	"fmt"
	"image"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Encoder implements thumbnail.Encoder.
type Encoder struct{}

func (Encoder) Encode(w io.Writer, img image.Image, quality int) error {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return fmt.Errorf("webp encoder options: %w", err)
	}
	return webp.Encode(w, img, options)
}

func (Encoder) Ext() string { return "webp" }
