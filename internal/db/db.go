package db

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goran-ethernal/ColorScanner/pkg/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/russross/meddler"
)

// Dialect bundles the driver specific pieces the stores need.
type Dialect struct {
	// Driver is the config driver name ("sqlite" or "postgres")
	Driver string
	// SQLDriver is the database/sql driver name
	SQLDriver string
	// MigrateDialect is the sql-migrate dialect name
	MigrateDialect string
	// Meddler is the meddler database flavour used for row mapping
	Meddler *meddler.Database
}

var (
	SQLite = Dialect{
		Driver:         config.DriverSQLite,
		SQLDriver:      "sqlite3",
		MigrateDialect: "sqlite3",
		Meddler:        meddler.SQLite,
	}
	Postgres = Dialect{
		Driver:         config.DriverPostgres,
		SQLDriver:      "pgx",
		MigrateDialect: "postgres",
		Meddler:        meddler.PostgreSQL,
	}
)

// DialectFor returns the dialect for a config driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverSQLite, "":
		return SQLite, nil
	case config.DriverPostgres:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Rebind rewrites '?' placeholders into the dialect's bind style.
func (d Dialect) Rebind(query string) string {
	if d.Driver != config.DriverPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8) //nolint:mnd
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// NewSQLiteDB creates a new SQLite DB
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", fmt.Sprintf(
		"file:%s?_txlock=immediate&_foreign_keys=on&_journal_mode=WAL&_busy_timeout=30000",
		dbPath,
	))
}

// NewFromConfig opens the database selected by cfg.Driver and returns it with its dialect.
func NewFromConfig(cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}

	var db *sql.DB
	switch dialect.Driver {
	case config.DriverPostgres:
		db, err = NewPostgresDBFromConfig(cfg)
	default:
		db, err = NewSQLiteDBFromConfig(cfg)
	}
	if err != nil {
		return nil, Dialect{}, err
	}

	return db, dialect, nil
}

// sqliteDSN builds the connection string for cfg. Every pragma travels in the DSN so that
// each pooled connection gets it.
func sqliteDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"file:%s?_txlock=immediate&_foreign_keys=on&_journal_mode=%s&_busy_timeout=%d&_synchronous=%s&_cache_size=%d",
		cfg.Path,
		cfg.JournalMode,
		cfg.BusyTimeout,
		cfg.Synchronous,
		cfg.CacheSize,
	)
}

// NewSQLiteDBFromConfig creates a new SQLite DB with the given configuration.
func NewSQLiteDBFromConfig(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// NewPostgresDBFromConfig opens a PostgreSQL pool through the pgx stdlib driver.
func NewPostgresDBFromConfig(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)

	return db, nil
}

// Vacuum runs VACUUM on a SQLite database.
func Vacuum(db *sql.DB) error {
	if _, err := db.Exec("VACUUM"); err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			return fmt.Errorf("cannot vacuum: database is locked (retry later)")
		}
		return fmt.Errorf("vacuum failed: %w", err)
	}

	return nil
}

// DBTotalSize returns the combined size of the SQLite file and its -wal and -shm companions.
// Missing files count as zero.
func DBTotalSize(dbPath string) (int64, error) {
	var total int64
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		total += info.Size()
	}

	return total, nil
}
