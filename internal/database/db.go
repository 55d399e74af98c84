package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"newsroom/web/internal/database/migrations"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB represents the database connection
type DB struct {
	*sqlx.DB
	driver string
}

// NewDB opens the feed database. Read-write connections run pending
// migrations unless the config says otherwise.
func NewDB(cfg *Config) (*DB, error) {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite:
		db, err = openSQLite(cfg)
	case DriverPostgres:
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	out := &DB{DB: db, driver: cfg.Driver}
	if !cfg.ReadOnly && !cfg.SkipMigrations {
		log.Info().Msg("Running database migrations...")
		if err := out.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("Database migrations completed successfully")
	} else {
		log.Debug().Str("mode", modeStr(cfg.ReadOnly)).Msg("Skipping migrations")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db (%s): %w", modeStr(cfg.ReadOnly), err)
	}

	log.Info().Str("driver", cfg.Driver).Str("mode", modeStr(cfg.ReadOnly)).Msg("Database connection successful")
	return out, nil
}

func openSQLite(cfg *Config) (*sqlx.DB, error) {
	dir := filepath.Dir(cfg.DSN)
	if dir != "." && !cfg.ReadOnly {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	// WAL mode allows concurrent reads while the ingestion side writes
	dsn := fmt.Sprintf("file:%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=%d",
		cfg.DSN, cfg.BusyTimeoutMS)

	if cfg.ReadOnly {
		dsn += "&mode=ro"
		log.Info().Str("path", cfg.DSN).Msg("Opening database in Read-Only mode (from config)")
	} else {
		log.Info().Str("path", cfg.DSN).Msg("Opening database in Read-Write mode (from config)")
	}

	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var pragmas []string
	if cfg.ReadOnly {
		pragmas = []string{
			fmt.Sprintf("PRAGMA cache_size = %d;", cfg.CacheSizeKB),
			"PRAGMA temp_store = MEMORY;",
			"PRAGMA query_only = ON;",
		}
	} else {
		pragmas = []string{
			fmt.Sprintf("PRAGMA cache_size = %d;", cfg.CacheSizeKB),
			"PRAGMA temp_store = MEMORY;",
		}
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Str("mode", modeStr(cfg.ReadOnly)).Msg("Failed to set PRAGMA")
		}
	}
	return db, nil
}

func openPostgres(cfg *Config) (*sqlx.DB, error) {
	log.Info().Bool("read_only", cfg.ReadOnly).Msg("Opening postgres connection")
	dsn := cfg.DSN
	if cfg.ReadOnly {
		var err error
		if dsn, err = readOnlyDSN(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

const readOnlyOption = "-c default_transaction_read_only=on"

// readOnlyDSN adds the server option that makes every session of the pool
// read-only. Both URL and key=value connection strings are accepted.
func readOnlyDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid postgres dsn: %w", err)
		}
		q := u.Query()
		q.Set("options", strings.TrimSpace(q.Get("options")+" "+readOnlyOption))
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	if strings.Contains(dsn, "options=") {
		return "", fmt.Errorf("read-only postgres dsn already sets options; add %q to it", readOnlyOption)
	}
	return strings.TrimSpace(dsn + " options='" + readOnlyOption + "'"), nil
}

func (db *DB) migrationRunner() (*migrations.Runner, []migrations.Migration, error) {
	migs, err := migrations.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return migrations.NewRunner(db.DB, db.Flavor()), migs, nil
}

// Migrate applies every embedded migration that has not run yet.
func (db *DB) Migrate(ctx context.Context) error {
	runner, migs, err := db.migrationRunner()
	if err != nil {
		return err
	}
	if err := runner.Up(ctx, migs); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Rollback reverts the last n migrations.
func (db *DB) Rollback(ctx context.Context, n int) error {
	runner, migs, err := db.migrationRunner()
	if err != nil {
		return err
	}
	return runner.Down(ctx, migs, n)
}

// SchemaVersions lists the applied migration versions, oldest first.
func (db *DB) SchemaVersions(ctx context.Context) ([]int, error) {
	return migrations.NewRunner(db.DB, db.Flavor()).Applied(ctx)
}

// Driver returns the driver name the connection was opened with.
func (db *DB) Driver() string { return db.driver }

// Flavor returns the SQL dialect for query builders.
func (db *DB) Flavor() sqlbuilder.Flavor {
	if db.driver == DriverPostgres {
		return sqlbuilder.PostgreSQL
	}
	return sqlbuilder.SQLite
}

// Helper for logging
func modeStr(readOnly bool) string {
	if readOnly {
		return "read-only"
	}
	return "read-write"
}
