package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"

	"github.com/padraicbc/trainerpages/config"
	"github.com/padraicbc/trainerpages/models"
)

// Setup opens the configured database and exits if it cannot be reached.
func Setup(cfg *config.Config) *bun.DB {
	db, err := Open(cfg.DSN(), cfg.Debug)
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	return db
}

// Open returns a bun.DB for dsn. postgres:// and postgresql:// DSNs use pgdriver;
// file: and sqlite: DSNs use the embedded SQLite driver, which is handy for local
// runs and tests.
func Open(dsn string, debug bool) (*bun.DB, error) {
	var db *bun.DB
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
	case strings.HasPrefix(dsn, "file:"), strings.HasPrefix(dsn, "sqlite:"):
		sqldb, err := sql.Open("sqlite", strings.TrimPrefix(dsn, "sqlite:"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One connection keeps in-memory databases alive and serialises writers.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unsupported database dsn %q", redact(dsn))
	}

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

// CreateTables creates all tables and their secondary indexes. Safe to re-run.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.Submission)(nil),
		(*models.DomainMapping)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model  interface{}
		name   string
		column string
	}{
		{(*models.Submission)(nil), "trainer_submissions_status_idx", "status"},
		{(*models.Submission)(nil), "trainer_submissions_created_at_idx", "created_at"},
		{(*models.DomainMapping)(nil), "domain_mappings_trainer_slug_idx", "trainer_slug"},
	}
	for _, ix := range indexes {
		if _, err := db.NewCreateIndex().Model(ix.model).Index(ix.name).Column(ix.column).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating index %s: %w", ix.name, err)
		}
	}

	return nil
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}
