package helpers

import (
	"database/sql"
	"path"
	"testing"

	"github.com/goran-ethernal/ColorScanner/internal/db"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/internal/migrations"
	"github.com/goran-ethernal/ColorScanner/pkg/config"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a migrated temporary SQLite database that is closed when the test ends.
func NewTestDB(t *testing.T, dbName string) *sql.DB {
	t.Helper()

	dbConfig := config.DatabaseConfig{Path: path.Join(t.TempDir(), dbName)}
	dbConfig.ApplyDefaults()

	database, err := db.NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.RunMigrations(logger.NewNopLogger(), database, db.SQLite))

	return database
}
