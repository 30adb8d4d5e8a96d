package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/pkg/config"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	UpDownSeparator     = "-- +migrate Up"
	DownMarker          = "-- +migrate Down"
	NoLimitMigrations   = 0 // indicate that there is no limit on the number of migrations to run
	migrationDirections = 2

	// autoIDReplacer marks an auto-incrementing primary key column in migration files.
	autoIDReplacer = "/*autoid*/"
)

var autoIDColumn = map[string]string{
	config.DriverSQLite:   "INTEGER PRIMARY KEY AUTOINCREMENT",
	config.DriverPostgres: "BIGSERIAL PRIMARY KEY",
}

type Migration struct {
	ID  string
	SQL string
}

// RunMigrationsDB applies every pending up migration.
func RunMigrationsDB(log *logger.Logger, db *sql.DB, dialect Dialect, migrations []Migration) error {
	return RunMigrationsDBExtended(log, db, dialect, migrations, migrate.Up, NoLimitMigrations)
}

// RunMigrationsDBExtended is an extended version of RunMigrationsDB that allows
// dir: can be migrate.Up or migrate.Down
// maxMigrations: Will apply at most `max` migrations. Pass 0 for no limit (or use Exec)
func RunMigrationsDBExtended(log *logger.Logger,
	db *sql.DB,
	dialect Dialect,
	migrations []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int) error {
	source, err := buildMigrationSource(dialect, migrations)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(source.Migrations))
	for _, m := range source.Migrations {
		ids = append(ids, m.Id)
	}
	list := strings.Join(ids, ", ")

	log.Debugf("running %s migrations: (max %d/%d) migrations: %s", dialect.Driver, maxMigrations,
		len(source.Migrations), list)

	n, err := migrate.ExecMax(db, dialect.MigrateDialect, source, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("error executing migration (max %d/%d) migrations: %s . Err: %w",
			maxMigrations, len(source.Migrations), list, err)
	}

	log.Infof("successfully ran %d migrations from migrations: %s", n, list)
	return nil
}

// buildMigrationSource splits each file into its Down and Up halves and renders the
// dialect specific column types.
func buildMigrationSource(dialect Dialect, migrations []Migration) (*migrate.MemoryMigrationSource, error) {
	source := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}

	for _, m := range migrations {
		rendered := strings.ReplaceAll(m.SQL, autoIDReplacer, autoIDColumn[dialect.Driver])
		parts := strings.Split(rendered, UpDownSeparator)
		if len(parts) < migrationDirections {
			return nil, fmt.Errorf("migration %s missing '%s' separator", m.ID, UpDownSeparator)
		}

		down := parts[0]
		if idx := strings.Index(down, DownMarker); idx != -1 {
			down = down[idx+len(DownMarker):]
		}

		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   m.ID,
			Up:   []string{strings.TrimSpace(parts[1])},
			Down: []string{strings.TrimSpace(down)},
		})
	}

	return source, nil
}
