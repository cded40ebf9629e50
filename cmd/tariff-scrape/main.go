package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/port-tariffs/tariff-tracker/internal/common"
	"github.com/port-tariffs/tariff-tracker/internal/scrape"
	"github.com/port-tariffs/tariff-tracker/internal/store"
)

func main() {
	var (
		out    = flag.String("out", "", "scrape result JSON path (overrides OUTPUT_FILE)")
		noDB   = flag.Bool("no-db", false, "skip persisting PDF records to the database")
		dbPath = flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *out != "" {
		cfg.Scrape.OutputFile = *out
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if err := cfg.ValidateScrape(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if cfg.Scrape.RunBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Scrape.RunBudget)
		defer cancel()
	}

	logger.Info("starting detention and demurrage PDF scraping",
		"base_url", cfg.Scrape.BaseURL,
		"max_retries", cfg.Scrape.MaxRetries,
		"retry_delay", cfg.Scrape.RetryDelay,
	)

	client := &http.Client{Timeout: cfg.Scrape.HTTPTimeout}
	orchestrator := scrape.NewOrchestrator(
		scrape.NewRegionScraper(client, os.Getenv("REGION_SELECTOR"), logger),
		scrape.NewPDFScraper(client, os.Getenv("PDF_SELECTOR"), logger),
		scrape.NewRetrier(cfg.Scrape.MaxRetries, cfg.Scrape.RetryDelay, logger),
		cfg.Scrape.BaseURL,
		logger,
	)

	result, err := orchestrator.Run(ctx, cfg.Scrape.EntryPath)
	if err != nil {
		logger.Error("scraping process failed", "error", err)
		os.Exit(1)
	}

	if err := result.SaveFile(cfg.Scrape.OutputFile); err != nil {
		logger.Error("failed to save scrape results", "path", cfg.Scrape.OutputFile, "error", err)
		os.Exit(1)
	}
	logger.Info("scrape results saved", "path", cfg.Scrape.OutputFile)

	if !*noDB {
		st, err := store.Open(ctx, cfg.Store, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := st.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		rows, err := st.BulkInsertPDFRecords(ctx, result)
		if err != nil {
			logger.Error("failed to persist PDF records", "error", err)
			os.Exit(1)
		}
		logger.Info("PDF records persisted", "rows", rows)
	}

	logger.Info("scraping completed",
		"regions", len(result.Regions),
		"pdfs", result.TotalPDFs(),
	)
}
