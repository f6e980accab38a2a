// Command reconcile runs one orphan-file reconciliation pass over the local
// storage root and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/campfolio/service/internal/config"
	"github.com/campfolio/service/internal/db"
	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/media"
	"github.com/campfolio/service/internal/reconcile"
	"github.com/campfolio/service/internal/settings"
	"github.com/campfolio/service/internal/user"
)

func main() {
	root := flag.String("root", "", "override the local storage root from settings")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	defer pool.Close()

	var src reconcile.SettingsSource = settings.NewRepository(pool, settings.Defaults(cfg))
	if *root != "" {
		src = rootOverride{SettingsSource: src, root: *root}
	}

	runner := reconcile.NewRunner(reconcile.New(log), src, log,
		media.NewRepository(pool),
		user.NewRepository(pool),
	)
	rep, err := runner.RunOnce(ctx)
	if err != nil {
		log.Fatal("reconciliation failed", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		log.Fatal("write report", "error", err)
	}
	if len(rep.Errors) > 0 {
		log.Sync()
		os.Exit(1)
	}
}

type rootOverride struct {
	reconcile.SettingsSource
	root string
}

func (o rootOverride) Current(ctx context.Context) (settings.Snapshot, error) {
	snap, err := o.SettingsSource.Current(ctx)
	snap.LocalStoragePath = o.root
	return snap, err
}
