package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// RegionLink is one region entry discovered on the portal's top-level page.
// The link is usually relative and must be resolved against the base URL.
type RegionLink struct {
	Region string `json:"region"`
	Link   string `json:"link"`
}

// PDFLink is one published tariff document on a region's sub-page.
type PDFLink struct {
	Title string `json:"pdf_title"`
	URL   string `json:"pdf_link"`
}

// RegionOutcome records what one region produced. A failed region keeps its
// entry with an empty PDF list and a non-empty Error.
type RegionOutcome struct {
	Region string    `json:"region"`
	URL    string    `json:"url"`
	PDFs   []PDFLink `json:"pdfs"`
	Error  string    `json:"error,omitempty"`
}

// Result is the aggregate scrape output and the durable hand-off artifact
// between the scraping phase and ingestion. Field names are a compatibility
// contract for external consumers of the JSON file.
type Result struct {
	Success bool            `json:"success"`
	Regions []RegionOutcome `json:"regions"`
}

// TotalPDFs counts discovered documents across all regions.
func (r *Result) TotalPDFs() int {
	n := 0
	for _, reg := range r.Regions {
		n += len(reg.PDFs)
	}
	return n
}

// SaveFile writes the result tree as indented JSON.
func (r *Result) SaveFile(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scrape result: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write scrape result: %w", err)
	}
	return nil
}

// RegionDiscoverer lists the regions published on the portal entry page.
type RegionDiscoverer interface {
	DiscoverRegions(ctx context.Context, url string) ([]RegionLink, error)
}

// PDFDiscoverer lists the tariff PDFs published on one region sub-page.
type PDFDiscoverer interface {
	DiscoverPDFs(ctx context.Context, url string) ([]PDFLink, error)
}
