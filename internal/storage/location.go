package storage

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrUnrecognizedURL is returned for URLs that belong to neither backend.
var ErrUnrecognizedURL = errors.New("unrecognized storage url")

// LocationKind tags a parsed storage URL.
type LocationKind int

const (
	LocationLocal LocationKind = iota + 1
	LocationCloud
)

func (k LocationKind) String() string {
	switch k {
	case LocationLocal:
		return "local"
	case LocationCloud:
		return "cloud"
	default:
		return "unknown"
	}
}

// Location is a storage URL parsed once at the boundary. Local locations carry
// only Key (relative to the storage root); cloud locations also carry the host
// and, when the host follows the "<bucket>.cos.<region>.<suffix>" shape, the
// bucket and region.
type Location struct {
	Kind   LocationKind
	Key    string
	Host   string
	Bucket string
	Region string
}

// ParseLocation classifies a stored URL.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrUnrecognizedURL)
	}

	if strings.HasPrefix(raw, LocalURLPrefix+"/") {
		p := raw
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
		key := strings.TrimPrefix(path.Clean(p), LocalURLPrefix+"/")
		if key == "" || key == "." || strings.HasPrefix(key, "..") || key == path.Clean(p) {
			return Location{}, fmt.Errorf("%w: %q", ErrUnrecognizedURL, raw)
		}
		return Location{Kind: LocationLocal, Key: key}, nil
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return Location{}, fmt.Errorf("%w: %q", ErrUnrecognizedURL, raw)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if key == "" {
			return Location{}, fmt.Errorf("%w: %q has no object key", ErrUnrecognizedURL, raw)
		}
		loc := Location{Kind: LocationCloud, Key: key, Host: u.Host}
		loc.Bucket, loc.Region = splitCOSHost(u.Hostname())
		return loc, nil
	}

	return Location{}, fmt.Errorf("%w: %q", ErrUnrecognizedURL, raw)
}

// LocalURL returns the public URL for a key under the local root.
func LocalURL(key string) string {
	return LocalURLPrefix + "/" + strings.TrimLeft(key, "/")
}

// splitCOSHost extracts bucket and region from "<bucket>.cos.<region>.<suffix>".
func splitCOSHost(host string) (bucket, region string) {
	parts := strings.Split(host, ".")
	if len(parts) < 4 || parts[1] != "cos" {
		return "", ""
	}
	return parts[0], parts[2]
}

// ensureHTTPS forces an absolute https URL when a provider hands back a bare host.
func ensureHTTPS(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "http://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	default:
		return "https://" + raw
	}
}
