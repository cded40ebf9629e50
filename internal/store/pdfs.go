package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/port-tariffs/tariff-tracker/internal/scrape"
)

// RegionAll is the case-insensitive sentinel that disables region filtering.
const RegionAll = "all"

// PDFRecord is one indexed tariff document. Region and title are not unique
// together; each discovered PDF produces exactly one row.
type PDFRecord struct {
	ID       int64
	Region   string
	PDFTitle string
	PDFLink  string
}

// BulkInsertPDFRecords flattens a scrape result tree into pdf_data rows.
// Regions that failed discovery carry an error and zero PDFs; they are
// skipped without failing the batch. Returns the number of rows written.
func (s *Store) BulkInsertPDFRecords(ctx context.Context, res *scrape.Result) (int, error) {
	if res == nil {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	query := s.q(`INSERT INTO pdf_data (region, pdf_title, pdf_link) VALUES (?, ?, ?)`)
	for _, region := range res.Regions {
		for _, pdf := range region.PDFs {
			if _, err := tx.ExecContext(ctx, query, region.Region, pdf.Title, pdf.URL); err != nil {
				s.logger.Error("store.pdf_insert_failed", "region", region.Region, "title", pdf.Title, "error", err)
				return 0, fmt.Errorf("insert pdf record: %w", err)
			}
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("store.pdf_bulk_insert_ok", "rows", inserted, "regions", len(res.Regions))
	return inserted, nil
}

// PDFRecordsByRegion returns rows matching the region exactly, or every row
// when the sentinel "all" (any case) is given. An unknown region yields an
// empty slice, not an error.
func (s *Store) PDFRecordsByRegion(ctx context.Context, region string) ([]PDFRecord, error) {
	query := `SELECT id, region, pdf_title, pdf_link FROM pdf_data`
	var args []any
	if !strings.EqualFold(region, RegionAll) {
		query += ` WHERE region = ?`
		args = append(args, region)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		s.logger.Error("store.pdf_fetch_failed", "region", region, "error", err)
		return nil, fmt.Errorf("fetch pdf records: %w", err)
	}
	defer rows.Close()

	var records []PDFRecord
	for rows.Next() {
		var rec PDFRecord
		if err := rows.Scan(&rec.ID, &rec.Region, &rec.PDFTitle, &rec.PDFLink); err != nil {
			return nil, fmt.Errorf("scan pdf record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pdf records: %w", err)
	}
	return records, nil
}
