package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"docsync/internal/config"
	"docsync/internal/database"
	"docsync/internal/database/migration"
	"docsync/internal/repository/postgres"
	"docsync/internal/service"
	"docsync/internal/store"
	"docsync/internal/store/browser"
)

// One-shot reconciliation runner, intended for cron-style scheduling next to
// the API server.
func main() {
	dryRun := flag.Bool("dry-run", false, "compute totals without touching the registry or the run ledger")
	flag.Parse()

	cfg := config.Load()
	loc := time.Local
	ctx := context.Background()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	gateway, err := store.NewGateway(cfg.Store.Binding, browser.Options{
		URL:          cfg.Store.URL,
		User:         cfg.Store.User,
		Password:     cfg.Store.Password,
		RepositoryID: cfg.Store.RepositoryID,
		Timeout:      time.Duration(cfg.Store.TimeoutSec) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to connect to content store: %v", err)
	}

	syncSvc := service.NewSyncService(gateway, postgres.NewTxManager(db), nil)

	totals, err := syncSvc.Sync(ctx, *dryRun)
	if err != nil {
		log.Fatalf("reconciliation failed: %v", err)
	}

	out, _ := json.Marshal(totals)
	log.SetFlags(0)
	log.Println(string(out))
}
