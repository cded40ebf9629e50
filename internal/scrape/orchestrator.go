package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Orchestrator walks region discovery then per-region PDF discovery, both
// through the retrier. A failed region discovery aborts the whole run; a
// failed PDF discovery only marks that one region and the walk continues.
type Orchestrator struct {
	regions RegionDiscoverer
	pdfs    PDFDiscoverer
	retrier Retrier
	baseURL string
	logger  *slog.Logger
}

func NewOrchestrator(regions RegionDiscoverer, pdfs PDFDiscoverer, retrier Retrier, baseURL string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		regions: regions,
		pdfs:    pdfs,
		retrier: retrier,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Run scrapes the portal starting at entryPath (resolved against the base
// URL). Returns nil and an error when the region list itself cannot be
// obtained; downstream callers must treat that as fatal.
func (o *Orchestrator) Run(ctx context.Context, entryPath string) (*Result, error) {
	base, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	entryURL := resolve(base, entryPath)

	o.logger.Info("scrape.run.start", "entry_url", entryURL)

	regions, err := Do(ctx, o.retrier, entryURL, o.regions.DiscoverRegions)
	if err != nil {
		o.logger.Error("scrape.run.region_discovery_failed", "entry_url", entryURL, "error", err)
		return nil, fmt.Errorf("discover regions: %w", err)
	}

	result := &Result{Success: true, Regions: make([]RegionOutcome, 0, len(regions))}
	for _, region := range regions {
		regionURL := resolve(base, region.Link)
		o.logger.Info("scrape.region.start", "region", region.Region, "url", regionURL)

		pdfs, err := Do(ctx, o.retrier, regionURL, o.pdfs.DiscoverPDFs)
		if err != nil {
			// one bad region degrades completeness, never the rest of the run
			o.logger.Error("scrape.region.failed", "region", region.Region, "url", regionURL, "error", err)
			result.Regions = append(result.Regions, RegionOutcome{
				Region: region.Region,
				URL:    regionURL,
				PDFs:   []PDFLink{},
				Error:  err.Error(),
			})
			continue
		}
		if pdfs == nil {
			pdfs = []PDFLink{}
		}
		o.logger.Info("scrape.region.ok", "region", region.Region, "pdf_count", len(pdfs))
		result.Regions = append(result.Regions, RegionOutcome{
			Region: region.Region,
			URL:    regionURL,
			PDFs:   pdfs,
		})
	}

	o.logger.Info("scrape.run.done", "regions", len(result.Regions), "pdfs", result.TotalPDFs())
	return result, nil
}

// resolve joins a possibly-relative link against the portal base URL.
func resolve(base *url.URL, link string) string {
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}
