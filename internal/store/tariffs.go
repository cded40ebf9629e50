package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/port-tariffs/tariff-tracker/internal/llm"
)

// InsertTariffHierarchy writes one extraction result — tariffs, their
// container types, and their rate tiers — in parent-before-child order inside
// a single transaction. Either the whole hierarchy commits or none of it
// does; a failure mid-tree never leaves orphaned children behind.
//
// sourcePDFID, when non-nil, stamps every tariff with the pdf_data row it was
// extracted from.
func (s *Store) InsertTariffHierarchy(ctx context.Context, ext *llm.TariffExtraction, sourcePDFID *int64) error {
	if ext == nil {
		return fmt.Errorf("nil tariff extraction")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertTariff := s.q(`INSERT INTO tariffs (source_pdf_id, area, country, charge_type, port, currency)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	insertContainer := s.q(`INSERT INTO container_types
		(tariff_id, type, size, free_time_days, free_time_day_type, detention_days, detention_day_type, detention_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	insertTier := s.q(`INSERT INTO rate_tiers
		(container_type_id, tier_name, start_day, end_day, rate, rate_unit)
		VALUES (?, ?, ?, ?, ?, ?)`)

	for _, t := range ext.Tariffs {
		var tariffID int64
		err := tx.QueryRowContext(ctx, insertTariff,
			sourcePDFID, t.Area, t.Country, t.ChargeType, t.Port, t.Currency,
		).Scan(&tariffID)
		if err != nil {
			s.logger.Error("store.tariff_insert_failed", "area", t.Area, "port", t.Port, "error", err)
			return fmt.Errorf("insert tariff: %w", err)
		}

		for _, ct := range t.ContainerTypes {
			var containerID int64
			err := tx.QueryRowContext(ctx, insertContainer,
				tariffID, ct.Type, ct.Size,
				ct.FreeTime.Days, ct.FreeTime.DayType,
				ct.Detention.Days, ct.Detention.DayType, ct.Detention.Rate,
			).Scan(&containerID)
			if err != nil {
				s.logger.Error("store.container_insert_failed", "tariff_id", tariffID, "type", ct.Type, "error", err)
				return fmt.Errorf("insert container type: %w", err)
			}

			for _, tier := range ct.RateTiers {
				_, err := tx.ExecContext(ctx, insertTier,
					containerID, tier.TierName, tier.StartDay, tier.EndDay, tier.Rate, tier.RateUnit,
				)
				if err != nil {
					s.logger.Error("store.tier_insert_failed", "container_type_id", containerID, "tier", tier.TierName, "error", err)
					return fmt.Errorf("insert rate tier: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("store.tariff_hierarchy_ok", "tariffs", len(ext.Tariffs))
	return nil
}

// TariffsByArea reconstructs the nested tariff tree for one area from the
// flat tables, NULLs preserved as nil.
func (s *Store) TariffsByArea(ctx context.Context, area string) ([]llm.Tariff, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, area, country, charge_type, port, currency FROM tariffs WHERE area = ? ORDER BY id`), area)
	if err != nil {
		return nil, fmt.Errorf("fetch tariffs: %w", err)
	}
	defer rows.Close()

	type tariffRow struct {
		id     int64
		tariff llm.Tariff
	}
	var tariffRows []tariffRow
	for rows.Next() {
		var tr tariffRow
		if err := rows.Scan(&tr.id, &tr.tariff.Area, &tr.tariff.Country, &tr.tariff.ChargeType, &tr.tariff.Port, &tr.tariff.Currency); err != nil {
			return nil, fmt.Errorf("scan tariff: %w", err)
		}
		tariffRows = append(tariffRows, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tariffs: %w", err)
	}

	result := make([]llm.Tariff, 0, len(tariffRows))
	for _, tr := range tariffRows {
		containers, err := s.containerTypesByTariff(ctx, tr.id)
		if err != nil {
			return nil, err
		}
		tr.tariff.ContainerTypes = containers
		result = append(result, tr.tariff)
	}
	return result, nil
}

func (s *Store) containerTypesByTariff(ctx context.Context, tariffID int64) ([]llm.ContainerType, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, type, size, free_time_days, free_time_day_type, detention_days, detention_day_type, detention_rate
		 FROM container_types WHERE tariff_id = ? ORDER BY id`), tariffID)
	if err != nil {
		return nil, fmt.Errorf("fetch container types: %w", err)
	}
	defer rows.Close()

	type containerRow struct {
		id int64
		ct llm.ContainerType
	}
	var containerRows []containerRow
	for rows.Next() {
		var (
			cr      containerRow
			ftDays  sql.NullInt64
			detDays sql.NullInt64
			detRate sql.NullFloat64
			ftType  sql.NullString
			detType sql.NullString
			ctType  sql.NullString
			ctSize  sql.NullString
		)
		if err := rows.Scan(&cr.id, &ctType, &ctSize, &ftDays, &ftType, &detDays, &detType, &detRate); err != nil {
			return nil, fmt.Errorf("scan container type: %w", err)
		}
		cr.ct.Type = ctType.String
		cr.ct.Size = ctSize.String
		cr.ct.FreeTime = llm.FreeTime{Days: intPtr(ftDays), DayType: ftType.String}
		cr.ct.Detention = llm.Detention{Days: intPtr(detDays), DayType: detType.String, Rate: floatPtr(detRate)}
		containerRows = append(containerRows, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate container types: %w", err)
	}

	result := make([]llm.ContainerType, 0, len(containerRows))
	for _, cr := range containerRows {
		tiers, err := s.rateTiersByContainer(ctx, cr.id)
		if err != nil {
			return nil, err
		}
		cr.ct.RateTiers = tiers
		result = append(result, cr.ct)
	}
	return result, nil
}

func (s *Store) rateTiersByContainer(ctx context.Context, containerID int64) ([]llm.RateTier, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT tier_name, start_day, end_day, rate, rate_unit
		 FROM rate_tiers WHERE container_type_id = ? ORDER BY id`), containerID)
	if err != nil {
		return nil, fmt.Errorf("fetch rate tiers: %w", err)
	}
	defer rows.Close()

	var tiers []llm.RateTier
	for rows.Next() {
		var (
			tier     llm.RateTier
			name     sql.NullString
			startDay sql.NullInt64
			endDay   sql.NullInt64
			rate     sql.NullFloat64
			unit     sql.NullString
		)
		if err := rows.Scan(&name, &startDay, &endDay, &rate, &unit); err != nil {
			return nil, fmt.Errorf("scan rate tier: %w", err)
		}
		tier.TierName = name.String
		tier.StartDay = intPtr(startDay)
		tier.EndDay = intPtr(endDay)
		tier.Rate = floatPtr(rate)
		tier.RateUnit = unit.String
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate tiers: %w", err)
	}
	return tiers, nil
}

// Counts reports row totals per table, for run summaries.
type Counts struct {
	PDFRecords     int
	Tariffs        int
	ContainerTypes int
	RateTiers      int
}

func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	for _, t := range []struct {
		table string
		dst   *int
	}{
		{"pdf_data", &c.PDFRecords},
		{"tariffs", &c.Tariffs},
		{"container_types", &c.ContainerTypes},
		{"rate_tiers", &c.RateTiers},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", t.table, err)
		}
	}
	return c, nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
