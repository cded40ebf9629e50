package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultRegionSelector = "a.region-link"
	defaultPDFSelector    = "a[href$='.pdf']"
)

// RegionScraper extracts region names and sub-page links from the portal's
// top-level detention & demurrage page.
type RegionScraper struct {
	client   *http.Client
	selector string
	logger   *slog.Logger
}

func NewRegionScraper(client *http.Client, selector string, logger *slog.Logger) *RegionScraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if selector == "" {
		selector = defaultRegionSelector
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegionScraper{client: client, selector: selector, logger: logger}
}

func (s *RegionScraper) DiscoverRegions(ctx context.Context, url string) ([]RegionLink, error) {
	doc, err := fetchDocument(ctx, s.client, url)
	if err != nil {
		return nil, err
	}

	var regions []RegionLink
	doc.Find(s.selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		name := strings.TrimSpace(sel.Text())
		if !ok || href == "" || name == "" {
			return
		}
		regions = append(regions, RegionLink{Region: name, Link: href})
	})
	if len(regions) == 0 {
		return nil, fmt.Errorf("no region links found at %s (selector %q)", url, s.selector)
	}
	s.logger.Info("scrape.regions.ok", "url", url, "count", len(regions))
	return regions, nil
}

// PDFScraper extracts the tariff PDF titles and links from one region page.
type PDFScraper struct {
	client   *http.Client
	selector string
	logger   *slog.Logger
}

func NewPDFScraper(client *http.Client, selector string, logger *slog.Logger) *PDFScraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if selector == "" {
		selector = defaultPDFSelector
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFScraper{client: client, selector: selector, logger: logger}
}

func (s *PDFScraper) DiscoverPDFs(ctx context.Context, url string) ([]PDFLink, error) {
	doc, err := fetchDocument(ctx, s.client, url)
	if err != nil {
		return nil, err
	}

	var pdfs []PDFLink
	doc.Find(s.selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = href[strings.LastIndex(href, "/")+1:]
		}
		pdfs = append(pdfs, PDFLink{Title: title, URL: href})
	})
	s.logger.Info("scrape.pdfs.ok", "url", url, "count", len(pdfs))
	return pdfs, nil
}

func fetchDocument(ctx context.Context, client *http.Client, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
