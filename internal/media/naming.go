package media

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameStem = 40

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// GenerateFileName returns a collision-resistant stored name:
// "<sanitized-stem>-<unix-millis>-<random>.<ext>". The stem is restricted to
// [a-z0-9-] and length-capped; it is omitted when nothing safe remains.
func GenerateFileName(original, contentType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !safeExt(ext) {
		ext = extForContentType(contentType)
	}
	stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	stem = unsafeNameChars.ReplaceAllString(strings.ToLower(stem), "-")
	stem = strings.Trim(stem, "-")
	if len(stem) > maxNameStem {
		stem = strings.TrimRight(stem[:maxNameStem], "-")
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%d-%s%s", now.UnixMilli(), suffix, ext)
	if stem != "" {
		name = stem + "-" + name
	}
	return name
}

func safeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

var preferredExt = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

func extForContentType(contentType string) string {
	if ext, ok := preferredExt[contentType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// KindOf classifies an upload by content type. When the declared type is
// missing or generic the leading bytes are sniffed.
func KindOf(contentType string, head []byte) (Kind, string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(head)
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = strings.TrimSpace(ct[:i])
		}
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage, ct, true
	case strings.HasPrefix(ct, "video/"):
		return KindVideo, ct, true
	default:
		return "", ct, false
	}
}
