package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lysyi3m/keepit/app/api"
	"github.com/lysyi3m/keepit/app/cfg"
	"github.com/lysyi3m/keepit/app/database"
	"github.com/lysyi3m/keepit/app/enrich"
	"github.com/lysyi3m/keepit/app/events"
	"github.com/lysyi3m/keepit/app/items"
	"github.com/lysyi3m/keepit/app/search"
	"github.com/lysyi3m/keepit/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// help was shown
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting keepit", "version", appCfg.Version, "db_driver", appCfg.DBDriver)

	db, err := openDatabase(appCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	taxonomy, err := enrich.LoadTaxonomy(appCfg.TaxonomyFile)
	if err != nil {
		return fmt.Errorf("failed to load taxonomy %s: %w", appCfg.TaxonomyFile, err)
	}
	slog.Info("Taxonomy loaded", "categories", len(taxonomy.Categories), "fallback", taxonomy.Fallback)

	if appCfg.AIAPIKey == "" {
		slog.Warn("AI API key not set, analysis calls are sent without authorization")
	}

	scraper := enrich.NewHTTPScraper(&http.Client{Timeout: appCfg.ScrapeTimeout}, appCfg.UserAgent)
	analyzer := enrich.NewOpenAIAnalyzer(appCfg.AIBaseURL, appCfg.AIAPIKey, appCfg.AIModel,
		&http.Client{Timeout: appCfg.AITimeout}, taxonomy)
	enricher := enrich.NewEnricher(scraper, analyzer, taxonomy)

	index, err := search.Open(appCfg.SearchIndexPath)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}
	defer index.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	var publisher events.Publisher = bus

	if appCfg.RedisAddr != "" {
		relay, err := events.NewRedisRelay(appCfg.RedisAddr, bus)
		if err != nil {
			return err
		}
		defer relay.Close()

		go func() {
			if err := relay.Run(ctx); err != nil {
				slog.Error("Event relay failed", "error", err)
			}
		}()
		publisher = relay
	}

	repo := database.NewItemRepository(db)
	service := items.NewService(repo, enricher, index, publisher)

	scheduler := tasks.NewConfiguredScheduler(
		func() tasks.TaskInterface { return tasks.NewReindexSearchTask(index, repo) })
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(service, bus, repo, index, appCfg.Version)
	router := api.NewServer(handler, appCfg.JWTSecret)

	// No write timeout: event streams stay open and ingestion waits on two upstream calls.
	httpServer := &http.Server{
		Addr:              ":" + appCfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "base_url", appCfg.BaseUrl)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return nil
}

func openDatabase(appCfg *cfg.Cfg) (*database.DB, error) {
	switch appCfg.DBDriver {
	case database.DriverPostgres:
		db, err := database.NewPostgresConnection(appCfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		slog.Info("Connected to database", "driver", "postgres", "host", appCfg.DBHost, "name", appCfg.DBName)
		return db, nil

	default:
		if err := os.MkdirAll(filepath.Dir(appCfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := database.NewSQLiteConnection(appCfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		slog.Info("Connected to database", "driver", "sqlite", "path", appCfg.DBPath)
		return db, nil
	}
}
