package store

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/port-tariffs/tariff-tracker/internal/common"
	"github.com/port-tariffs/tariff-tracker/internal/llm"
	"github.com/port-tariffs/tariff-tracker/internal/scrape"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(context.Background(), common.StoreConfig{Path: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func sampleHierarchy() *llm.TariffExtraction {
	return &llm.TariffExtraction{Tariffs: []llm.Tariff{{
		Area:       "Asia",
		Country:    "China",
		ChargeType: "Detention",
		Port:       "Shanghai",
		Currency:   "USD",
		ContainerTypes: []llm.ContainerType{{
			Type:      "Dry",
			Size:      "20'",
			FreeTime:  llm.FreeTime{Days: intp(7), DayType: "Calendar"},
			Detention: llm.Detention{Days: intp(3), DayType: "Calendar", Rate: floatp(50.0)},
			RateTiers: []llm.RateTier{{
				TierName: "Tier 1",
				StartDay: intp(1),
				EndDay:   intp(3),
				Rate:     floatp(20.0),
				RateUnit: "per day",
			}},
		}},
	}}}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema call failed: %v", err)
	}
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("third EnsureSchema call failed: %v", err)
	}
}

func TestBulkInsertToleratesErrorRegions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res := &scrape.Result{Success: true, Regions: []scrape.RegionOutcome{
		{
			Region: "Asia",
			URL:    "https://portal.test/regions/asia.html",
			PDFs: []scrape.PDFLink{
				{Title: "China Tariff", URL: "https://portal.test/files/china.pdf"},
				{Title: "Japan Tariff", URL: "https://portal.test/files/japan.pdf"},
			},
		},
		{
			Region: "Europe",
			URL:    "https://portal.test/regions/europe.html",
			PDFs:   []scrape.PDFLink{},
			Error:  "500 internal server error",
		},
	}}

	rows, err := s.BulkInsertPDFRecords(ctx, res)
	if err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	if rows != 2 {
		t.Errorf("rows = %d, want 2", rows)
	}

	all, err := s.PDFRecordsByRegion(ctx, "ALL")
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("stored rows = %d, want 2", len(all))
	}
}

func TestPDFRecordsByRegionFiltering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res := &scrape.Result{Success: true, Regions: []scrape.RegionOutcome{
		{Region: "Asia", PDFs: []scrape.PDFLink{
			{Title: "China Tariff", URL: "u1"},
			{Title: "Japan Tariff", URL: "u2"},
		}},
		{Region: "Europe", PDFs: []scrape.PDFLink{
			{Title: "Rotterdam Tariff", URL: "u3"},
		}},
	}}
	if _, err := s.BulkInsertPDFRecords(ctx, res); err != nil {
		t.Fatal(err)
	}

	for _, sentinel := range []string{"all", "ALL", "All"} {
		rows, err := s.PDFRecordsByRegion(ctx, sentinel)
		if err != nil {
			t.Fatalf("fetch %q: %v", sentinel, err)
		}
		if len(rows) != 3 {
			t.Errorf("fetch %q: rows = %d, want 3", sentinel, len(rows))
		}
	}

	asia, err := s.PDFRecordsByRegion(ctx, "Asia")
	if err != nil {
		t.Fatal(err)
	}
	if len(asia) != 2 {
		t.Errorf("Asia rows = %d, want 2", len(asia))
	}
	for _, r := range asia {
		if r.Region != "Asia" {
			t.Errorf("row region = %q, want Asia", r.Region)
		}
	}

	none, err := s.PDFRecordsByRegion(ctx, "Atlantis")
	if err != nil {
		t.Fatalf("unknown region must not error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unknown region rows = %d, want 0", len(none))
	}
}

func TestTariffHierarchyRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := sampleHierarchy()
	if err := s.InsertTariffHierarchy(ctx, want, nil); err != nil {
		t.Fatalf("insert hierarchy: %v", err)
	}

	got, err := s.TariffsByArea(ctx, "Asia")
	if err != nil {
		t.Fatalf("fetch by area: %v", err)
	}
	if !reflect.DeepEqual(got, want.Tariffs) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want.Tariffs)
	}
}

func TestTariffHierarchyPreservesNulls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := &llm.TariffExtraction{Tariffs: []llm.Tariff{{
		Area:     "Africa",
		Currency: "USD",
		ContainerTypes: []llm.ContainerType{{
			Type:      "Reefer",
			FreeTime:  llm.FreeTime{Days: nil, DayType: ""},
			Detention: llm.Detention{Days: nil, DayType: "", Rate: nil},
			RateTiers: []llm.RateTier{{
				TierName: "Tier 1",
				StartDay: nil,
				EndDay:   nil,
				Rate:     floatp(0), // zero is a real rate, distinct from unknown
				RateUnit: "per day",
			}},
		}},
	}}}
	if err := s.InsertTariffHierarchy(ctx, want, nil); err != nil {
		t.Fatal(err)
	}

	got, err := s.TariffsByArea(ctx, "Africa")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("tariffs = %d, want 1", len(got))
	}
	ct := got[0].ContainerTypes[0]
	if ct.FreeTime.Days != nil || ct.Detention.Days != nil || ct.Detention.Rate != nil {
		t.Errorf("NULL day/rate fields must come back nil: %+v", ct)
	}
	tier := ct.RateTiers[0]
	if tier.StartDay != nil || tier.EndDay != nil {
		t.Errorf("NULL tier bounds must come back nil: %+v", tier)
	}
	if tier.Rate == nil || *tier.Rate != 0 {
		t.Errorf("zero rate must survive as 0, got %v", tier.Rate)
	}
}

func TestFetchByUnknownAreaIsEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.TariffsByArea(context.Background(), "Nowhere")
	if err != nil {
		t.Fatalf("unknown area must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("tariffs = %d, want 0", len(got))
	}
}

func TestInsertTariffHierarchyStampsSourcePDF(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res := &scrape.Result{Regions: []scrape.RegionOutcome{
		{Region: "Asia", PDFs: []scrape.PDFLink{{Title: "China Tariff", URL: "u1"}}},
	}}
	if _, err := s.BulkInsertPDFRecords(ctx, res); err != nil {
		t.Fatal(err)
	}
	recs, err := s.PDFRecordsByRegion(ctx, "Asia")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InsertTariffHierarchy(ctx, sampleHierarchy(), &recs[0].ID); err != nil {
		t.Fatal(err)
	}

	var sourceID int64
	if err := s.db.QueryRow(`SELECT source_pdf_id FROM tariffs`).Scan(&sourceID); err != nil {
		t.Fatal(err)
	}
	if sourceID != recs[0].ID {
		t.Errorf("source_pdf_id = %d, want %d", sourceID, recs[0].ID)
	}
}

func TestInsertTariffHierarchyRejectsUnknownSourcePDF(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bogus := int64(9999)
	err := s.InsertTariffHierarchy(ctx, sampleHierarchy(), &bogus)
	if err == nil {
		t.Fatal("insert referencing a missing pdf_data row must fail")
	}

	counts, cerr := s.Counts(ctx)
	if cerr != nil {
		t.Fatal(cerr)
	}
	if counts.Tariffs != 0 || counts.ContainerTypes != 0 || counts.RateTiers != 0 {
		t.Errorf("failed insert left rows behind: %+v", counts)
	}
}

func TestInsertTariffHierarchyRollsBackMidTree(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// force a failure at the deepest level to prove parents roll back too
	_, err := s.db.ExecContext(ctx, `CREATE TRIGGER fail_tier BEFORE INSERT ON rate_tiers
		WHEN NEW.tier_name = 'boom'
		BEGIN SELECT RAISE(ABORT, 'tier rejected'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	ext := sampleHierarchy()
	ext.Tariffs[0].ContainerTypes[0].RateTiers[0].TierName = "boom"
	if err := s.InsertTariffHierarchy(ctx, ext, nil); err == nil {
		t.Fatal("expected insert to fail through the trigger")
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Tariffs != 0 || counts.ContainerTypes != 0 || counts.RateTiers != 0 {
		t.Errorf("partial hierarchy committed: %+v", counts)
	}
}

func TestDeleteTariffCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.InsertTariffHierarchy(ctx, sampleHierarchy(), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tariffs`); err != nil {
		t.Fatal(err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.ContainerTypes != 0 || counts.RateTiers != 0 {
		t.Errorf("children survived parent delete: %+v", counts)
	}
}

func TestRebindForPostgres(t *testing.T) {
	s := &Store{dialect: DialectPostgres}
	got := s.q(`INSERT INTO pdf_data (region, pdf_title, pdf_link) VALUES (?, ?, ?)`)
	if !strings.Contains(got, "$1") || !strings.Contains(got, "$3") || strings.Contains(got, "?") {
		t.Errorf("rebind produced %q", got)
	}

	sqlite := &Store{dialect: DialectSQLite}
	if got := sqlite.q(`SELECT 1 WHERE a = ?`); got != `SELECT 1 WHERE a = ?` {
		t.Errorf("sqlite query must pass through, got %q", got)
	}
}
