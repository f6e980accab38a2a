package storage

import (
	"context"
	"net/http"
	"os"

	"github.com/campfolio/service/internal/settings"
)

// SettingsSource returns the current settings snapshot.
type SettingsSource interface {
	Current(ctx context.Context) (settings.Snapshot, error)
}

// FileServer serves LocalURLPrefix from the local root of the current
// settings, so a changed storage path is picked up without a restart.
// Directory listings are not served.
func FileServer(src SettingsSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, err := src.Current(r.Context())
		if err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		loc, err := ParseLocation(r.URL.Path)
		if err != nil || loc.Kind != LocationLocal {
			http.NotFound(w, r)
			return
		}
		p, err := NewLocalStorage(snap.LocalStoragePath).Path(loc.Key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if fi, err := os.Stat(p); err != nil || !fi.Mode().IsRegular() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000")
		http.ServeFile(w, r, p)
	})
}
