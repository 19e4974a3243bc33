package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docsync/internal/config"
	"docsync/internal/database"
	"docsync/internal/database/migration"
	handlers "docsync/internal/http/handler"
	"docsync/internal/http/middleware"
	"docsync/internal/otel"
	"docsync/internal/repository/postgres"
	"docsync/internal/service"
	"docsync/internal/storage"
	"docsync/internal/store"
	"docsync/internal/store/browser"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.Local

	ctx := context.Background()
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Content store gateway, selected by the configured binding
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

	// The audit archive bucket is optional; without an endpoint configured the
	// services skip archiving.
	var archive storage.Archive
	if cfg.MinIO.Endpoint != "" {
		archive, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize archive storage: %v", err)
		}
	}

	template := service.DefaultPathTemplate()
	if cfg.FolderTemplatePath != "" {
		template, err = service.LoadPathTemplate(cfg.FolderTemplatePath)
		if err != nil {
			log.Fatalf("failed to load folder template: %v", err)
		}
	}

	// Initialize repositories and services
	docRepo := postgres.NewDocumentPostgres(db)
	txManager := postgres.NewTxManager(db)

	folders, err := service.NewFolderResolver(gateway, template)
	if err != nil {
		log.Fatalf("invalid folder template: %v", err)
	}
	docSvc := service.NewDocumentService(gateway, docRepo, folders, archive, cfg.Store.SenderProperty)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	syncMetrics, err := service.NewSyncMetrics(registry)
	if err != nil {
		log.Fatalf("failed to register sync metrics: %v", err)
	}
	syncSvc := service.NewSyncService(gateway, txManager, syncMetrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMw, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	app.Use(promMw.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, docSvc, syncSvc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
