package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/ColorScanner/internal/db"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
)

//go:embed 001_scan_data.sql
var mig001 string

//go:embed 002_color_data.sql
var mig002 string

// All returns the schema migrations shared by the scan index and the color engine.
func All() []db.Migration {
	return []db.Migration{
		{ID: "001_scan_data.sql", SQL: mig001},
		{ID: "002_color_data.sql", SQL: mig002},
	}
}

// RunMigrations brings the database schema up to date.
func RunMigrations(log *logger.Logger, sqlDB *sql.DB, dialect db.Dialect) error {
	return db.RunMigrationsDB(log, sqlDB, dialect, All())
}
