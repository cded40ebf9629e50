package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/port-tariffs/tariff-tracker/internal/llm"
	"github.com/port-tariffs/tariff-tracker/internal/store"
)

// Status strings recorded per document. These are a compatibility contract
// for anything that re-runs subsets based on a previous run's output.
const (
	StatusOK            = "Successfully processed and saved tariff data"
	StatusExtractFailed = "Failed to extract text from PDF"
	statusSavePrefix    = "Failed to extract or save tariff data: "
)

// TextFetcher downloads one document and returns (destination path,
// extracted text, error). Empty text with a nil error means the PDF had no
// extractable text.
type TextFetcher interface {
	DownloadAndExtract(ctx context.Context, region, title, link string) (string, string, error)
}

// Pipeline turns indexed PDF rows into persisted tariff hierarchies. Every
// per-document failure is converted to a status string; one bad document
// never aborts the batch.
type Pipeline struct {
	store     *store.Store
	fetcher   TextFetcher
	extractor llm.TariffExtractor
	logger    *slog.Logger
}

func New(st *store.Store, fetcher TextFetcher, extractor llm.TariffExtractor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: st, fetcher: fetcher, extractor: extractor, logger: logger}
}

// ProcessRegion runs the extraction pipeline over every indexed PDF for the
// region ("all", any case, means every region) and returns a per-document
// status map keyed by destination path. The returned error covers only the
// initial row fetch and schema setup; everything after that is fail-soft.
func (p *Pipeline) ProcessRegion(ctx context.Context, region string) (map[string]string, error) {
	if err := p.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	records, err := p.store.PDFRecordsByRegion(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("fetch pdf records: %w", err)
	}
	p.logger.Info("pipeline.region.start", "region", region, "documents", len(records))

	results := make(map[string]string, len(records))
	for _, rec := range records {
		start := time.Now()
		path, status := p.processDocument(ctx, rec)
		if path == "" {
			path = rec.PDFLink
		}
		results[path] = status
		p.logger.Info("pipeline.document.done",
			"region", rec.Region,
			"title", rec.PDFTitle,
			"path", path,
			"status", status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	ok := 0
	for _, st := range results {
		if st == StatusOK {
			ok++
		}
	}
	p.logger.Info("pipeline.region.done", "region", region, "documents", len(records), "succeeded", ok, "failed", len(records)-ok)
	return results, nil
}

func (p *Pipeline) processDocument(ctx context.Context, rec store.PDFRecord) (string, string) {
	path, text, err := p.fetcher.DownloadAndExtract(ctx, rec.Region, rec.PDFTitle, rec.PDFLink)
	if err != nil || text == "" {
		// no retry here; a failed download/extraction is permanent for this run
		return path, StatusExtractFailed
	}

	ext, _, err := p.extractor.ExtractTariffs(ctx, llm.ExtractRequest{Region: rec.Region, Text: text})
	if err != nil {
		return path, statusSavePrefix + err.Error()
	}
	if err := llm.CheckRateTiers(ext); err != nil {
		return path, statusSavePrefix + err.Error()
	}
	if err := p.store.InsertTariffHierarchy(ctx, ext, &rec.ID); err != nil {
		return path, statusSavePrefix + err.Error()
	}
	return path, StatusOK
}
