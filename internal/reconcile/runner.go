package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/settings"
)

// Source lists storage URLs referenced by one kind of record.
type Source interface {
	ReferencedURLs(ctx context.Context) ([]string, error)
}

// SettingsSource returns the current settings snapshot.
type SettingsSource interface {
	Current(ctx context.Context) (settings.Snapshot, error)
}

// Collect gathers the URLs referenced by every source.
func Collect(ctx context.Context, sources ...Source) ([]string, error) {
	results := make([][]string, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			urls, err := src.ReferencedURLs(ctx)
			if err != nil {
				return err
			}
			results[i] = urls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect referenced urls: %w", err)
	}
	var all []string
	for _, urls := range results {
		all = append(all, urls...)
	}
	return all, nil
}

// Runner runs reconciliation against the current settings, on demand or on a
// fixed interval. Runs never overlap.
type Runner struct {
	rec      *Reconciler
	settings SettingsSource
	sources  []Source
	log      *logger.Logger

	mu sync.Mutex
}

// NewRunner creates a Runner.
func NewRunner(rec *Reconciler, src SettingsSource, log *logger.Logger, sources ...Source) *Runner {
	return &Runner{rec: rec, settings: src, sources: sources, log: log.With("component", "reconcile_runner")}
}

// RunOnce reads settings and references, then reconciles the local root.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.settings.Current(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load settings: %w", err)
	}
	valid, err := Collect(ctx, r.sources...)
	if err != nil {
		return Report{}, err
	}

	start := time.Now()
	rep := r.rec.Reconcile(ctx, snap.LocalStoragePath, valid)
	r.log.Info("reconciliation finished",
		"root", snap.LocalStoragePath,
		"referenced", len(valid),
		"deleted", len(rep.Deleted),
		"errors", len(rep.Errors),
		"duration", time.Since(start),
	)
	for _, e := range rep.Errors {
		r.log.Warn("reconciliation error", "error", e)
	}
	return rep, nil
}

// Start runs RunOnce every interval until ctx is cancelled.
func (r *Runner) Start(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error("scheduled reconciliation failed", "error", err)
			}
		}
	}
}
