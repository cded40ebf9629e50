package store

import (
	"context"
	"fmt"
)

// EnsureSchema creates the four tables when missing. Safe to call on every
// startup and before every ingestion pass.
//
// tariffs.source_pdf_id records which pdf_data row a tariff was extracted
// from; it is nullable so directly inserted hierarchies stay legal.
func (s *Store) EnsureSchema(ctx context.Context) error {
	var stmts []string
	switch s.dialect {
	case DialectPostgres:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS pdf_data (
				id BIGSERIAL PRIMARY KEY,
				region TEXT NOT NULL,
				pdf_title TEXT NOT NULL,
				pdf_link TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS tariffs (
				id BIGSERIAL PRIMARY KEY,
				source_pdf_id BIGINT REFERENCES pdf_data (id) ON DELETE SET NULL,
				area TEXT,
				country TEXT,
				charge_type TEXT,
				port TEXT,
				currency TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS container_types (
				id BIGSERIAL PRIMARY KEY,
				tariff_id BIGINT NOT NULL REFERENCES tariffs (id) ON DELETE CASCADE,
				type TEXT,
				size TEXT,
				free_time_days INTEGER,
				free_time_day_type TEXT,
				detention_days INTEGER,
				detention_day_type TEXT,
				detention_rate DOUBLE PRECISION
			)`,
			`CREATE TABLE IF NOT EXISTS rate_tiers (
				id BIGSERIAL PRIMARY KEY,
				container_type_id BIGINT NOT NULL REFERENCES container_types (id) ON DELETE CASCADE,
				tier_name TEXT,
				start_day INTEGER,
				end_day INTEGER,
				rate DOUBLE PRECISION,
				rate_unit TEXT
			)`,
		}
	default:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS pdf_data (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				region TEXT NOT NULL,
				pdf_title TEXT NOT NULL,
				pdf_link TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS tariffs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				source_pdf_id INTEGER REFERENCES pdf_data (id) ON DELETE SET NULL,
				area TEXT,
				country TEXT,
				charge_type TEXT,
				port TEXT,
				currency TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS container_types (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				tariff_id INTEGER NOT NULL REFERENCES tariffs (id) ON DELETE CASCADE,
				type TEXT,
				size TEXT,
				free_time_days INTEGER,
				free_time_day_type TEXT,
				detention_days INTEGER,
				detention_day_type TEXT,
				detention_rate REAL
			)`,
			`CREATE TABLE IF NOT EXISTS rate_tiers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				container_type_id INTEGER NOT NULL REFERENCES container_types (id) ON DELETE CASCADE,
				tier_name TEXT,
				start_day INTEGER,
				end_day INTEGER,
				rate REAL,
				rate_unit TEXT
			)`,
		}
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Error("store.ensure_schema_failed", "error", err)
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	s.logger.Debug("store.ensure_schema_ok")
	return nil
}
