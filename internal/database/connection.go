package database

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

// DB is the global database connection
var DB *sqlx.DB

// Options selects the database backend
type Options struct {
	Type    string // "sqlite" or "postgres"
	DSN     string // postgres DSN, or sqlite file path (defaults to DataDir/zeeguu.db)
	DataDir string
}

// Connect establishes the global connection and applies migrations
func Connect(opts Options) error {
	db, err := Open(opts)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return err
	}
	DB = db
	return nil
}

// Open connects without touching the schema
func Open(opts Options) (*sqlx.DB, error) {
	switch opts.Type {
	case "postgres":
		db, err := sqlx.Connect("postgres", opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		return db, nil
	case "sqlite", "":
		path := opts.DSN
		if path == "" {
			// Create data directory if it doesn't exist
			if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
			path = filepath.Join(opts.DataDir, "zeeguu.db")
		}
		db, err := sqlx.Connect("sqlite3", path)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", opts.Type)
	}
}

// Close closes the global database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// Migrate brings the schema up to date using the embedded migrations for the driver
func Migrate(db *sqlx.DB) error {
	var (
		dir    string
		driver migratedb.Driver
		err    error
	)
	switch db.DriverName() {
	case "postgres":
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case "sqlite3":
		dir = "migrations/sqlite"
		driver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", db.DriverName())
	}
	if err != nil {
		return fmt.Errorf("failed to init migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// m.Close would also close db, so it is deliberately not called here.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
