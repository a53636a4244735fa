package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

func init() {
	// sqlx does not know the modernc driver name; queries are written with ? and rebound.
	sqlx.BindDriver(DialectSQLite, sqlx.QUESTION)
}

// ParseURL maps a DATABASE_URL to a driver name and the DSN that driver expects.
func ParseURL(databaseURL string) (dialect, dsn string, err error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite URL has no path")
		}
		return DialectSQLite, path, nil
	}
	return "", "", fmt.Errorf("unsupported database URL %q", databaseURL)
}

// Connect opens PostgreSQL or SQLite depending on the URL scheme
func Connect(databaseURL string) (*sqlx.DB, error) {
	dialect, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// A single writer avoids SQLITE_BUSY between the frame loop and HTTP handlers.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return db, nil
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
