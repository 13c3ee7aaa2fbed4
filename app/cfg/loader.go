package cfg

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	// Pipeline configuration
	DataDir             string  `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for JSON snapshot output"`
	SourcesFile         string  `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file with feed source groups"`
	DBPath              string  `long:"db-path" env:"DB_PATH" default:"./data/archive.db" description:"SQLite database path for the archive index"`
	RollingWindowDays   int     `long:"rolling-window-days" env:"ROLLING_WINDOW_DAYS" default:"15" description:"Retention window for articles in days"`
	RejectedCleanupDays int     `long:"rejected-cleanup-days" env:"REJECTED_CLEANUP_DAYS" default:"15" description:"Retention window for the rejected-article cache in days"`
	ConfidenceThreshold float64 `long:"confidence-threshold" env:"CONFIDENCE_THRESHOLD" default:"0.25" description:"Minimum classification confidence to keep an article"`
	BatchSize           int     `long:"batch-size" env:"CRAWL_BATCH_SIZE" default:"4" description:"Number of concurrent feed fetches per batch"`
	BatchDelayMs        int     `long:"batch-delay-ms" env:"CRAWL_BATCH_DELAY_MS" default:"1000" description:"Delay between crawl batches in milliseconds"`
	ProcessItemLimit    int     `long:"process-item-limit" env:"PROCESS_ITEM_LIMIT" default:"0" description:"Cap on articles classified per run (0 = unlimited, useful for test runs)"`

	// Fetching
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"20" description:"Per-feed fetch timeout in seconds"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"daily-news-rss/1.0" description:"User agent string for HTTP requests"`

	// Classification
	ClassifierURL string `long:"classifier-url" env:"CLASSIFIER_URL" description:"Base URL of the zero-shot classifier service (empty = keyword strategy only)"`

	// Serve mode
	Serve             bool   `long:"serve" env:"SERVE" description:"Run as a long-lived server with scheduled crawls and an HTTP API"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (serve mode)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authenticated endpoints (optional)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers for scheduled tasks (serve mode)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Interval between scheduled pipeline runs in seconds (serve mode)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DataDir:             raw.DataDir,
		SourcesFile:         raw.SourcesFile,
		DBPath:              raw.DBPath,
		RollingWindowDays:   raw.RollingWindowDays,
		RejectedCleanupDays: raw.RejectedCleanupDays,
		ConfidenceThreshold: raw.ConfidenceThreshold,
		BatchSize:           raw.BatchSize,
		BatchDelayMs:        raw.BatchDelayMs,
		ProcessItemLimit:    raw.ProcessItemLimit,
		FetchTimeout:        raw.FetchTimeout,
		UserAgent:           raw.UserAgent,
		ClassifierURL:       raw.ClassifierURL,
		Serve:               raw.Serve,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		WorkerCount:         raw.WorkerCount,
		SchedulerInterval:   raw.SchedulerInterval,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
