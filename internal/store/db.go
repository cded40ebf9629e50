package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/port-tariffs/tariff-tracker/internal/common"
)

// Dialect selects the SQL flavor the store speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Store owns the four-table tariff hierarchy and all access to it. One Store
// wraps one *sql.DB; writes that must be atomic run inside a single
// transaction per call.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// Open connects using cfg: a Postgres DSN when set, otherwise a SQLite file
// (":memory:" is accepted for tests).
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		db      *sql.DB
		dialect Dialect
		err     error
	)
	if cfg.DSN != "" {
		logger.Info("store.open", "dialect", DialectPostgres)
		db, err = sql.Open("pgx", cfg.DSN)
		dialect = DialectPostgres
	} else {
		path := cfg.Path
		if path == "" {
			path = "scraper_data.db"
		}
		logger.Info("store.open", "dialect", DialectSQLite, "path", path)
		db, err = sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
		dialect = DialectSQLite
	}
	if err != nil {
		logger.Error("store.open_failed", "error", err)
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect == DialectSQLite {
		// single writer; also keeps :memory: databases on one connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("store.ping_failed", "error", err)
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, dialect: dialect, logger: logger}, nil
}

func (s *Store) Close() error {
	s.logger.Info("store.close")
	return s.db.Close()
}

// DB exposes the underlying handle for read-only consumers (export joins).
func (s *Store) DB() *sql.DB {
	return s.db
}

// q rewrites ?-placeholders to $n for Postgres. Queries in this package are
// written with ? and rebound once here.
func (s *Store) q(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
