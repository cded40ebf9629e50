package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"

	"github.com/port-tariffs/tariff-tracker/internal/common"
	"github.com/port-tariffs/tariff-tracker/internal/llm/openai"
	"github.com/port-tariffs/tariff-tracker/internal/pdftext"
	"github.com/port-tariffs/tariff-tracker/internal/pipeline"
	"github.com/port-tariffs/tariff-tracker/internal/store"
)

func main() {
	var (
		region = flag.String("region", "ALL", "region to process (ALL processes every region)")
		dbPath = flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if err := cfg.ValidateExtract(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if cfg.Scrape.RunBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Scrape.RunBudget)
		defer cancel()
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	extractor := openai.NewClient(openai.Config{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	fetcher := pdftext.NewFetcher(&http.Client{Timeout: cfg.Scrape.HTTPTimeout}, cfg.Files.BaseDir, logger)

	p := pipeline.New(st, fetcher, extractor, logger)
	results, err := p.ProcessRegion(ctx, *region)
	if err != nil {
		logger.Error("extraction run failed", "region", *region, "error", err)
		os.Exit(1)
	}

	paths := make([]string, 0, len(results))
	for path := range results {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	succeeded := 0
	for _, path := range paths {
		status := results[path]
		if status == pipeline.StatusOK {
			succeeded++
		}
		fmt.Printf("%s: %s\n", path, status)
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		logger.Error("failed to read store counts", "error", err)
		os.Exit(1)
	}
	logger.Info("extraction completed",
		"region", *region,
		"documents", len(results),
		"succeeded", succeeded,
		"failed", len(results)-succeeded,
		"tariffs", counts.Tariffs,
		"container_types", counts.ContainerTypes,
		"rate_tiers", counts.RateTiers,
	)
}
