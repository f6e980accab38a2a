// Package reconcile removes files under the local storage root that no live
// record references.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/metrics"
	"github.com/campfolio/service/internal/storage"
	"github.com/campfolio/service/internal/thumbnail"
)

// Report is the outcome of one reconciliation pass.
type Report struct {
	Deleted []string `json:"deleted"`
	Errors  []string `json:"errors"`
}

func (r *Report) fail(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Reconciler deletes orphaned local files. Cloud objects are never scanned.
type Reconciler struct {
	log *logger.Logger
}

// New creates a Reconciler.
func New(log *logger.Logger) *Reconciler {
	return &Reconciler{log: log.With("component", "reconcile")}
}

// scan is the read-only result of walking the root.
type scan struct {
	// files maps a directory to the names of the regular files in it.
	files map[string][]string
	dirs  []string
}

// Reconcile walks root and deletes every original file whose URL is not in
// validURLs, together with those of its derivatives that are not referenced
// themselves. A derivative is left alone while
// its original exists beside it; one whose original is gone is an orphan too.
// Empty directories below root are removed afterwards. Per-file failures are
// collected in the report.
//
// The valid set is a snapshot: a file uploaded after it was taken may be
// removed as an orphan.
func (r *Reconciler) Reconcile(ctx context.Context, root string, validURLs []string) Report {
	rep := Report{Deleted: []string{}, Errors: []string{}}

	abs, err := filepath.Abs(root)
	if err != nil {
		rep.fail("resolve root %q: %v", root, err)
		return rep
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return rep
	}

	valid := localKeys(validURLs)
	sc := r.walk(abs, &rep)
	local := storage.NewLocalStorage(abs)
	keepValid := func(k string) bool {
		_, ok := valid[k]
		return ok
	}

	for _, key := range orphans(abs, sc, valid) {
		if err := ctx.Err(); err != nil {
			rep.fail("interrupted: %v", err)
			return rep
		}
		if err := local.DeleteExcept(ctx, key, keepValid); err != nil {
			rep.fail("delete %s: %v", key, err)
			metrics.ReconcileErrorsTotal.Inc()
			continue
		}
		rep.Deleted = append(rep.Deleted, storage.LocalURL(key))
		metrics.ReconcileDeletedTotal.Inc()
	}

	r.prune(abs, sc.dirs, &rep)
	return rep
}

func (r *Reconciler) walk(root string, rep *Report) scan {
	sc := scan{files: map[string][]string{}}
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			rep.fail("read %s: %v", p, err)
			metrics.ReconcileErrorsTotal.Inc()
			return nil
		}
		switch {
		case d.IsDir():
			if p != root {
				sc.dirs = append(sc.dirs, p)
			}
		case d.Type().IsRegular():
			dir := filepath.Dir(p)
			sc.files[dir] = append(sc.files[dir], d.Name())
		}
		return nil
	})
	return sc
}

// orphans returns the storage keys to delete, in a stable order.
func orphans(root string, sc scan, valid map[string]struct{}) []string {
	var keys []string
	for dir, names := range sc.files {
		originals := make(map[string]bool)
		for _, n := range names {
			if !thumbnail.IsDerivativeName(n) {
				originals[strings.TrimSuffix(n, filepath.Ext(n))] = true
			}
		}
		for _, n := range names {
			key := relKey(root, filepath.Join(dir, n))
			if _, ok := valid[key]; ok {
				continue
			}
			if base, ok := thumbnail.DerivativeBase(n); ok && originals[base] {
				continue
			}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// prune removes directories left empty, deepest first. The root is kept.
func (r *Reconciler) prune(root string, dirs []string, rep *Report) {
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], string(filepath.Separator)), strings.Count(dirs[j], string(filepath.Separator))
		if di != dj {
			return di > dj
		}
		return dirs[i] > dirs[j]
	})
	for _, d := range dirs {
		if d == root {
			continue
		}
		entries, err := os.ReadDir(d)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				rep.fail("read %s: %v", d, err)
			}
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(d); err != nil && !errors.Is(err, fs.ErrNotExist) {
			rep.fail("remove directory %s: %v", relKey(root, d), err)
			continue
		}
		r.log.Debug("removed empty directory", "dir", relKey(root, d))
	}
}

func relKey(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// localKeys maps local URLs to storage keys. Cloud and malformed URLs are dropped.
func localKeys(urls []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		loc, err := storage.ParseLocation(u)
		if err != nil || loc.Kind != storage.LocationLocal {
			continue
		}
		keys[loc.Key] = struct{}{}
	}
	return keys
}
