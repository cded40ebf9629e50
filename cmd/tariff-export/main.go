package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/port-tariffs/tariff-tracker/internal/common"
	"github.com/port-tariffs/tariff-tracker/internal/export"
	"github.com/port-tariffs/tariff-tracker/internal/store"
)

func main() {
	var (
		out    = flag.String("out", "scraper_data_export.xlsx", "output XLSX path")
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

	ctx := context.Background()
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

	xlsx, err := export.NewService(st, logger).ExportXLSX(ctx)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0644); err != nil {
		logger.Error("failed to write workbook", "path", *out, "error", err)
		os.Exit(1)
	}

	abs, err := filepath.Abs(*out)
	if err != nil {
		abs = *out
	}
	logger.Info("export written", "path", abs, "bytes", len(xlsx))
	fmt.Printf("Data exported successfully to: %s\n", abs)
}
