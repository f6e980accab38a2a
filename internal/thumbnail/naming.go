// Package thumbnail derives fixed-size, re-encoded copies of uploaded images
// and owns the naming rules that tie a derivative to its original.
package thumbnail

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Size is a derivative size key.
type Size string

const (
	SizeThumbnail Size = "thumbnail"
	SizeMedium    Size = "medium"
	SizeLarge     Size = "large"
)

// Sizes lists every known size key.
var Sizes = []Size{SizeThumbnail, SizeMedium, SizeLarge}

// Box returns the bounding box a derivative of this size must fit inside.
func (s Size) Box() (width, height int) {
	switch s {
	case SizeThumbnail:
		return 400, 400
	case SizeMedium:
		return 800, 800
	case SizeLarge:
		return 1600, 1600
	default:
		return 0, 0
	}
}

// Valid reports whether s is a known size key.
func (s Size) Valid() bool {
	w, _ := s.Box()
	return w > 0
}

var supportedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// IsSupported reports whether name has an extension the deriver can decode.
func IsSupported(name string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(name))]
}

var derivativeRE = regexp.MustCompile(`^(.+)_(thumbnail|medium|large)\.[A-Za-z0-9]+$`)

// IsDerivativeName reports whether a file name follows "<base>_<size>.<ext>".
func IsDerivativeName(name string) bool {
	return derivativeRE.MatchString(name)
}

// DerivativeBase returns the original's base name (no extension) for a
// derivative file name.
func DerivativeBase(name string) (string, bool) {
	m := derivativeRE.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DerivativeName builds "<base>_<size>.<ext>" for an original file name.
func DerivativeName(original string, size Size, ext string) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	return base + "_" + string(size) + "." + strings.TrimPrefix(ext, ".")
}

// Derivatives lists the derivative files that sit beside original on disk.
func Derivatives(original string) ([]string, error) {
	dir := filepath.Dir(original)
	name := filepath.Base(original)
	base := strings.TrimSuffix(name, filepath.Ext(name))

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == name {
			continue
		}
		if b, ok := DerivativeBase(e.Name()); ok && b == base {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
