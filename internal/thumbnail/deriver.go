package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	// WebP sources decode through image.Decode.
	_ "golang.org/x/image/webp"

	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/metrics"
)

// Quality is the fixed lossy encoding quality for every derivative.
const Quality = 80

// Encoder writes an image in the derivative output format.
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality int) error
	// Ext is the output file extension without the dot.
	Ext() string
}

// JPEGEncoder encodes derivatives as JPEG.
type JPEGEncoder struct{}

func (JPEGEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

func (JPEGEncoder) Ext() string { return "jpg" }

// Deriver produces resized derivatives of images.
type Deriver struct {
	enc       Encoder
	urlPrefix string
	log       *logger.Logger
}

// NewDeriver creates a Deriver. urlPrefix is the public prefix under which the
// storage root is served, e.g. "/uploads".
func NewDeriver(enc Encoder, urlPrefix string, log *logger.Logger) *Deriver {
	return &Deriver{enc: enc, urlPrefix: urlPrefix, log: log.With("component", "thumbnail")}
}

// Ext is the extension of every derivative this Deriver writes.
func (d *Deriver) Ext() string { return d.enc.Ext() }

// Derive writes the size derivative of sourcePath beside it and returns its
// public URL relative to root. It returns false for unsupported extensions
// and for any decode or encode failure; those failures are logged only.
func (d *Deriver) Derive(root, sourcePath string, size Size) (string, bool) {
	if !IsSupported(sourcePath) || !size.Valid() {
		return "", false
	}
	out := filepath.Join(filepath.Dir(sourcePath), DerivativeName(filepath.Base(sourcePath), size, d.enc.Ext()))
	err := d.deriveFile(sourcePath, out, size)
	metrics.ThumbnailsTotal.WithLabelValues(string(size), metrics.Status(err)).Inc()
	if err != nil {
		d.log.Warn("thumbnail derivation failed", "source", sourcePath, "size", size, "error", err)
		return "", false
	}

	rel, err := filepath.Rel(root, out)
	if err != nil {
		d.log.Warn("thumbnail outside storage root", "path", out, "root", root, "error", err)
		return "", false
	}
	return d.urlPrefix + "/" + filepath.ToSlash(rel), true
}

func (d *Deriver) deriveFile(src, dst string, size Size) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %q: %w", filepath.Base(src), err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %q: %w", filepath.Base(dst), err)
	}
	if err := d.enc.Encode(f, fit(img, size), Quality); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("encode %q: %w", filepath.Base(dst), err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close %q: %w", filepath.Base(dst), err)
	}
	return nil
}

// DeriveBytes is the in-memory variant of Derive: same resize, format and
// quality, returning the encoded derivative.
func (d *Deriver) DeriveBytes(data []byte, size Size) ([]byte, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("unknown size %q", size)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues(string(size), "error").Inc()
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := d.enc.Encode(&buf, fit(img, size), Quality); err != nil {
		metrics.ThumbnailsTotal.WithLabelValues(string(size), "error").Inc()
		return nil, fmt.Errorf("encode image: %w", err)
	}
	metrics.ThumbnailsTotal.WithLabelValues(string(size), "ok").Inc()
	return buf.Bytes(), nil
}

// fit scales img down to fit inside the size box, keeping aspect ratio.
// Images already inside the box are returned unscaled.
func fit(img image.Image, size Size) image.Image {
	w, h := size.Box()
	return imaging.Fit(img, w, h, imaging.Lanczos)
}
