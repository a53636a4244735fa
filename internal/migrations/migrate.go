package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	db "github.com/playmatatu/carom/internal/database"
)

//go:embed sql/postgres/*.sql sql/sqlite/*.sql
var files embed.FS

const migrationsTable = "schema_migrations_migrate"

// RunMigrations applies the embedded migrations for the dialect named by the
// URL scheme.
func RunMigrations(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	dialect, dsn, err := db.ParseURL(databaseURL)
	if err != nil {
		return err
	}

	sqlDB, err := sql.Open(dialect, dsn)
	if err != nil {
		return fmt.Errorf("failed to open DB: %w", err)
	}
	defer sqlDB.Close()

	var driver database.Driver
	switch dialect {
	case db.DialectPostgres:
		driver, err = pg.WithInstance(sqlDB, &pg.Config{MigrationsTable: migrationsTable})
	case db.DialectSQLite:
		driver, err = sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: migrationsTable})
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	src, err := iofs.New(files, "sql/"+dialect)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		log.Printf("[MIGRATE] Could not read version: %v", verr)
	}
	log.Printf("[MIGRATE] %s schema at version %d (dirty=%v)", dialect, version, dirty)
	return nil
}
