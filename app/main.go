package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neverbiasu/daily-news-rss/app/api"
	"github.com/neverbiasu/daily-news-rss/app/cfg"
	"github.com/neverbiasu/daily-news-rss/app/classifier"
	"github.com/neverbiasu/daily-news-rss/app/crawler"
	"github.com/neverbiasu/daily-news-rss/app/database"
	"github.com/neverbiasu/daily-news-rss/app/feed"
	"github.com/neverbiasu/daily-news-rss/app/pipeline"
	"github.com/neverbiasu/daily-news-rss/app/sources"
	"github.com/neverbiasu/daily-news-rss/app/storage"
	"github.com/neverbiasu/daily-news-rss/app/tasks"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting daily-news-rss", "version", appCfg.Version, "serve", appCfg.Serve)

	sourcesFile, err := sources.Load(appCfg.SourcesFile)
	if err != nil {
		log.Fatalf("Failed to load sources: %v", err)
	}
	slog.Info("Sources loaded", "file", appCfg.SourcesFile, "sources", len(sourcesFile.All()), "groups", len(sourcesFile.GroupNames()))

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open archive database: %v", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Archive database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	archiveRepo := database.NewArchiveRepository(db)
	store := storage.NewSnapshotStore(appCfg.DataDir)

	httpClient := &http.Client{Timeout: time.Duration(appCfg.FetchTimeout) * time.Second}

	newsCrawler := crawler.New(crawler.Options{
		Fetcher:    feed.NewFetcher(time.Duration(appCfg.FetchTimeout)*time.Second, appCfg.UserAgent),
		Normalizer: feed.NewNormalizer(),
		Extractor:  feed.NewContentExtractor(),
		HTTPClient: httpClient,
		UserAgent:  appCfg.UserAgent,
		BatchSize:  appCfg.BatchSize,
		BatchDelay: time.Duration(appCfg.BatchDelayMs) * time.Millisecond,
	})

	var primary feed.Strategy
	if appCfg.ClassifierURL != "" {
		primary = classifier.NewClient(appCfg.ClassifierURL)
		slog.Info("Classifier strategy enabled", "url", appCfg.ClassifierURL)
	} else {
		slog.Info("No classifier configured, using keyword strategy")
	}
	filterer := feed.NewFilterer(primary, feed.NewKeywordStrategy(sourcesFile.Relevance), appCfg.ConfidenceThreshold)

	processor := pipeline.NewProcessor(pipeline.Options{
		Store:        store,
		Filterer:     filterer,
		Retention:    feed.NewRetention(),
		Archive:      archiveRepo,
		WindowDays:   appCfg.RollingWindowDays,
		RejectedDays: appCfg.RejectedCleanupDays,
		Threshold:    appCfg.ConfidenceThreshold,
		ItemLimit:    appCfg.ProcessItemLimit,
	})

	if !appCfg.Serve {
		if err := runOnce(sourcesFile, newsCrawler, processor, store); err != nil {
			log.Fatalf("Pipeline run failed: %v", err)
		}
		return
	}

	serve(appCfg, sourcesFile, newsCrawler, processor, store, archiveRepo)
}

// runOnce executes one crawl and processing cycle and exits. This is the
// cron-friendly default mode.
func runOnce(sourcesFile *sources.File, c *crawler.Crawler, processor *pipeline.Processor, store *storage.SnapshotStore) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result := c.Run(ctx, sourcesFile)

	if err := store.WriteLatestRaw(result.Snapshot); err != nil {
		return fmt.Errorf("failed to persist raw snapshot: %w", err)
	}
	for group, snap := range result.GroupSnapshots {
		if err := store.WriteGroupRaw(group, snap.CrawledAt, snap); err != nil {
			return fmt.Errorf("failed to persist group snapshot %s: %w", group, err)
		}
	}

	snapshot, stats, err := processor.Run(ctx, result.Snapshot)
	if err != nil {
		return err
	}

	slog.Info("Pipeline run completed",
		"sources", result.Stats.TotalSources,
		"failed_sources", result.Stats.FailedSources,
		"crawled", result.Stats.TotalArticles,
		"duplicates", result.Stats.Duplicates,
		"classified", stats.Classified,
		"kept", stats.Kept,
		"rejected", stats.Rejected,
		"total", snapshot.TotalArticles,
		"method", snapshot.ProcessingMethod)

	return nil
}

// serve runs the long-lived mode: a background scheduler plus the HTTP API.
func serve(appCfg *cfg.Cfg, sourcesFile *sources.File, c *crawler.Crawler,
	processor *pipeline.Processor, store *storage.SnapshotStore, archiveRepo database.ArchiveRepository) {

	scheduler := tasks.NewScheduler(sourcesFile, c, processor, store)
	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(store, sourcesFile, archiveRepo, scheduler, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
