package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/port-tariffs/tariff-tracker/internal/common"
	"github.com/port-tariffs/tariff-tracker/internal/llm"
	"github.com/port-tariffs/tariff-tracker/internal/scrape"
	"github.com/port-tariffs/tariff-tracker/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFetcher struct {
	path string
	text string
	err  error
}

func (f *fakeFetcher) DownloadAndExtract(ctx context.Context, region, title, link string) (string, string, error) {
	return f.path, f.text, f.err
}

type fakeExtractor struct {
	ext *llm.TariffExtraction
	err error
}

func (f *fakeExtractor) ExtractTariffs(ctx context.Context, req llm.ExtractRequest) (*llm.TariffExtraction, []byte, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.ext, []byte("{}"), nil
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func validExtraction() *llm.TariffExtraction {
	return &llm.TariffExtraction{Tariffs: []llm.Tariff{{
		Area:       "Asia",
		Country:    "China",
		ChargeType: "Detention",
		Port:       "Shanghai",
		Currency:   "USD",
		ContainerTypes: []llm.ContainerType{{
			Type:     "Dry",
			Size:     "20'",
			FreeTime: llm.FreeTime{Days: intp(7), DayType: "Calendar"},
			RateTiers: []llm.RateTier{{
				TierName: "Tier 1", StartDay: intp(1), EndDay: intp(3), Rate: floatp(20), RateUnit: "per day",
			}},
		}},
	}}}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), common.StoreConfig{Path: ":memory:"}, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func seedPDFRecord(t *testing.T, s *store.Store) store.PDFRecord {
	t.Helper()
	res := &scrape.Result{Success: true, Regions: []scrape.RegionOutcome{
		{Region: "Asia", PDFs: []scrape.PDFLink{
			{Title: "China Tariff", URL: "https://portal.test/files/china.pdf"},
		}},
	}}
	if _, err := s.BulkInsertPDFRecords(context.Background(), res); err != nil {
		t.Fatal(err)
	}
	recs, err := s.PDFRecordsByRegion(context.Background(), "Asia")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("seeded records = %d, want 1", len(recs))
	}
	return recs[0]
}

func assertNoTariffRows(t *testing.T, s *store.Store) {
	t.Helper()
	counts, err := s.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts.Tariffs != 0 || counts.ContainerTypes != 0 || counts.RateTiers != 0 {
		t.Errorf("tariff tables must stay empty, got %+v", counts)
	}
}

func TestProcessRegionDownloadFailure(t *testing.T) {
	s := newTestStore(t)
	seedPDFRecord(t, s)

	p := New(s, &fakeFetcher{path: "files/Asia/China Tariff.pdf", err: errors.New("connection refused")},
		&fakeExtractor{}, testLogger())

	results, err := p.ProcessRegion(context.Background(), "Asia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if got := results["files/Asia/China Tariff.pdf"]; got != StatusExtractFailed {
		t.Errorf("status = %q, want %q", got, StatusExtractFailed)
	}
	assertNoTariffRows(t, s)
}

func TestProcessRegionEmptyTextIsExtractionFailure(t *testing.T) {
	s := newTestStore(t)
	seedPDFRecord(t, s)

	// scanned/image-only PDF: download ok, no extractable text
	p := New(s, &fakeFetcher{path: "files/Asia/China Tariff.pdf", text: ""},
		&fakeExtractor{}, testLogger())

	results, err := p.ProcessRegion(context.Background(), "Asia")
	if err != nil {
		t.Fatal(err)
	}
	if got := results["files/Asia/China Tariff.pdf"]; got != StatusExtractFailed {
		t.Errorf("status = %q, want %q", got, StatusExtractFailed)
	}
	assertNoTariffRows(t, s)
}

func TestProcessRegionMalformedLLMResponse(t *testing.T) {
	s := newTestStore(t)
	seedPDFRecord(t, s)

	p := New(s, &fakeFetcher{path: "files/Asia/China Tariff.pdf", text: "TARIFF TEXT"},
		&fakeExtractor{err: errors.New("schema validation failed: missing tariffs")}, testLogger())

	results, err := p.ProcessRegion(context.Background(), "Asia")
	if err != nil {
		t.Fatal(err)
	}
	got := results["files/Asia/China Tariff.pdf"]
	if !strings.HasPrefix(got, "Failed to extract or save tariff data") {
		t.Errorf("status = %q, want extraction-failure prefix", got)
	}
	if !strings.Contains(got, "missing tariffs") {
		t.Errorf("status %q must carry the underlying message", got)
	}
	assertNoTariffRows(t, s)
}

func TestProcessRegionRejectsInvalidTiers(t *testing.T) {
	s := newTestStore(t)
	seedPDFRecord(t, s)

	ext := validExtraction()
	ext.Tariffs[0].ContainerTypes[0].RateTiers[0].StartDay = intp(9)
	ext.Tariffs[0].ContainerTypes[0].RateTiers[0].EndDay = intp(2)

	p := New(s, &fakeFetcher{path: "files/Asia/China Tariff.pdf", text: "TARIFF TEXT"},
		&fakeExtractor{ext: ext}, testLogger())

	results, err := p.ProcessRegion(context.Background(), "Asia")
	if err != nil {
		t.Fatal(err)
	}
	got := results["files/Asia/China Tariff.pdf"]
	if !strings.HasPrefix(got, "Failed to extract or save tariff data") {
		t.Errorf("status = %q, want extraction-failure prefix", got)
	}
	assertNoTariffRows(t, s)
}

func TestProcessRegionSuccess(t *testing.T) {
	s := newTestStore(t)
	rec := seedPDFRecord(t, s)

	p := New(s, &fakeFetcher{path: "files/Asia/China Tariff.pdf", text: "TARIFF TEXT"},
		&fakeExtractor{ext: validExtraction()}, testLogger())

	results, err := p.ProcessRegion(context.Background(), "Asia")
	if err != nil {
		t.Fatal(err)
	}
	if got := results["files/Asia/China Tariff.pdf"]; got != StatusOK {
		t.Fatalf("status = %q, want %q", got, StatusOK)
	}

	tariffs, err := s.TariffsByArea(context.Background(), "Asia")
	if err != nil {
		t.Fatal(err)
	}
	if len(tariffs) != 1 {
		t.Fatalf("tariffs = %d, want 1", len(tariffs))
	}

	// provenance: the tariff is stamped with the pdf_data row it came from
	var sourceID int64
	if err := s.DB().QueryRow(`SELECT source_pdf_id FROM tariffs`).Scan(&sourceID); err != nil {
		t.Fatal(err)
	}
	if sourceID != rec.ID {
		t.Errorf("source_pdf_id = %d, want %d", sourceID, rec.ID)
	}
}

func TestProcessRegionAllSentinel(t *testing.T) {
	s := newTestStore(t)
	res := &scrape.Result{Success: true, Regions: []scrape.RegionOutcome{
		{Region: "Asia", PDFs: []scrape.PDFLink{{Title: "China Tariff", URL: "u1"}}},
		{Region: "Europe", PDFs: []scrape.PDFLink{{Title: "Rotterdam Tariff", URL: "u2"}}},
	}}
	if _, err := s.BulkInsertPDFRecords(context.Background(), res); err != nil {
		t.Fatal(err)
	}

	fetcher := &regionAwareFetcher{}
	p := New(s, fetcher, &fakeExtractor{ext: validExtraction()}, testLogger())

	results, err := p.ProcessRegion(context.Background(), "all")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want one status per document", len(results))
	}
}

type regionAwareFetcher struct{}

func (f *regionAwareFetcher) DownloadAndExtract(ctx context.Context, region, title, link string) (string, string, error) {
	return "files/" + region + "/" + title + ".pdf", "TARIFF TEXT", nil
}
