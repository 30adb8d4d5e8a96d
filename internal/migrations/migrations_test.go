package migrations

import (
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/ColorScanner/internal/db"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_SQLite(t *testing.T) {
	sqlDB, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "schema.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log := logger.NewNopLogger()
	require.NoError(t, RunMigrations(log, sqlDB, db.SQLite))

	for _, table := range []string{"scan_data", "color_definitions", "color_values", "color_scanned_txs"} {
		var name string
		err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	// down migrations drop everything again
	require.NoError(t, db.RunMigrationsDBExtended(log, sqlDB, db.SQLite, All(), migrate.Down, db.NoLimitMigrations))

	var count int
	require.NoError(t, sqlDB.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('scan_data', 'color_values')`).Scan(&count))
	require.Zero(t, count)
}
