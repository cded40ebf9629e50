package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/port-tariffs/tariff-tracker/internal/store"
)

// Sheet names and column orders below are a compatibility contract for
// automated consumers of the workbook.
var sheets = []sheetSpec{
	{
		name:    "PDF Data",
		headers: []string{"id", "region", "pdf_title", "pdf_link"},
		query:   `SELECT id, region, pdf_title, pdf_link FROM pdf_data ORDER BY id`,
		widths:  []float64{10, 20, 40, 50},
	},
	{
		name:    "Tariffs",
		headers: []string{"id", "area", "country", "charge_type", "port", "currency"},
		query:   `SELECT id, area, country, charge_type, port, currency FROM tariffs ORDER BY id`,
		widths:  []float64{10, 20, 20, 20, 20, 15},
	},
	{
		name: "Container Types",
		headers: []string{"id", "area", "country", "port", "type", "size",
			"free_time_days", "free_time_day_type", "detention_days", "detention_day_type", "detention_rate"},
		query: `SELECT ct.id, t.area, t.country, t.port,
			ct.type, ct.size, ct.free_time_days, ct.free_time_day_type,
			ct.detention_days, ct.detention_day_type, ct.detention_rate
			FROM container_types ct
			JOIN tariffs t ON ct.tariff_id = t.id
			ORDER BY ct.id`,
		widths: uniformWidths(11, 18),
	},
	{
		name: "Rate Tiers",
		headers: []string{"id", "area", "country", "port", "type", "size",
			"tier_name", "start_day", "end_day", "rate", "rate_unit"},
		query: `SELECT rt.id, t.area, t.country, t.port,
			ct.type, ct.size,
			rt.tier_name, rt.start_day, rt.end_day, rt.rate, rt.rate_unit
			FROM rate_tiers rt
			JOIN container_types ct ON rt.container_type_id = ct.id
			JOIN tariffs t ON ct.tariff_id = t.id
			ORDER BY rt.id`,
		widths: uniformWidths(11, 18),
	},
	{
		name: "Comprehensive View",
		headers: []string{"area", "country", "charge_type", "port", "currency",
			"container_type", "container_size", "free_time_days", "free_time_day_type",
			"detention_days", "detention_day_type", "detention_rate",
			"tier_name", "start_day", "end_day", "rate", "rate_unit"},
		query: `SELECT t.area, t.country, t.charge_type, t.port, t.currency,
			ct.type AS container_type, ct.size AS container_size,
			ct.free_time_days, ct.free_time_day_type,
			ct.detention_days, ct.detention_day_type, ct.detention_rate,
			rt.tier_name, rt.start_day, rt.end_day, rt.rate, rt.rate_unit
			FROM tariffs t
			JOIN container_types ct ON t.id = ct.tariff_id
			JOIN rate_tiers rt ON ct.id = rt.container_type_id
			ORDER BY t.area, t.country, t.port, ct.type, ct.size, rt.start_day`,
		widths: uniformWidths(17, 18),
	},
}

type sheetSpec struct {
	name    string
	headers []string
	query   string
	widths  []float64
}

// Service renders the relational store into a multi-sheet XLSX workbook.
// Read-only over the store.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// ExportXLSX returns the workbook as bytes.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	db := s.store.DB()

	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"E1EFFF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	totalRows := 0
	for _, spec := range sheets {
		n, err := s.writeSheet(ctx, f, db, spec, headerStyle)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", spec.name, err)
		}
		totalRows += n
	}

	// drop the default sheet so the workbook holds exactly the five above
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(sheets[0].name); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"sheets", len(sheets),
		"rows", totalRows,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeSheet(ctx context.Context, f *excelize.File, db *sql.DB, spec sheetSpec, headerStyle int) (int, error) {
	if _, err := f.NewSheet(spec.name); err != nil {
		return 0, err
	}

	for i, h := range spec.headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(spec.name, cell, h); err != nil {
			return 0, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(spec.headers), 1)
	if err := f.SetCellStyle(spec.name, "A1", lastHeader, headerStyle); err != nil {
		return 0, err
	}

	rows, err := db.QueryContext(ctx, spec.query)
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	rowNum := 2
	for rows.Next() {
		values := make([]any, len(spec.headers))
		dests := make([]any, len(spec.headers))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return 0, fmt.Errorf("scan: %w", err)
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
			if err := f.SetCellValue(spec.name, cell, cellValue(v)); err != nil {
				return 0, err
			}
		}
		rowNum++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate: %w", err)
	}

	for i, w := range spec.widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(spec.name, col, col, w)
	}
	return rowNum - 2, nil
}

// cellValue keeps NULLs as empty cells and byte slices readable.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	default:
		return v
	}
}

func uniformWidths(n int, w float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = w
	}
	return out
}
