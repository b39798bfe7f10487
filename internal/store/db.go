package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect holds the per-backend pieces of DDL and the sql driver name.
type dialect struct {
	driverName string
	ddl        *strings.Replacer
	tableCheck string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driverName: "sqlite",
		ddl: strings.NewReplacer(
			"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{bool}}", "INTEGER",
			"{{false}}", "0",
			"{{ts}}", "DATETIME",
		),
	},
	DriverPostgres: {
		driverName: "pgx",
		ddl: strings.NewReplacer(
			"{{pk}}", "BIGSERIAL PRIMARY KEY",
			"{{bool}}", "BOOLEAN",
			"{{false}}", "FALSE",
			"{{ts}}", "TIMESTAMPTZ",
		),
	},
}

// SQLStore implements Store on top of sqlx. The same code serves SQLite
// and PostgreSQL; queries are written with ? placeholders and rebound.
type SQLStore struct {
	db *sqlx.DB

	// q is db, or the open transaction for a Store handed out by InTx.
	q    sqlx.ExtContext
	bind int
	inTx bool
}

// Open connects to the database described by driver and dsn and runs any
// pending schema migrations.
func Open(driver, dsn string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}

	if driver == DriverSQLite {
		// One connection: an in-memory database is per connection, and
		// SQLite serialises writers regardless.
		db.SetMaxOpenConns(1)

		// Enable WAL mode for better concurrent read performance.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	} else if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}

	s := &SQLStore{db: db, q: db, bind: sqlx.BindType(d.driverName)}
	if err := s.runMigrations(d); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	return Open(DriverSQLite, dbPath)
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the highest applied migration.
func (s *SQLStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// InTx implements Store. Calling InTx on a transactional Store reuses the
// open transaction.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLStore{db: s.db, q: tx, bind: s.bind, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// rebind converts ? placeholders to the driver's bind style.
func (s *SQLStore) rebind(query string) string {
	return sqlx.Rebind(s.bind, query)
}

func (s *SQLStore) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, s.q, dest, s.rebind(query), args...)
}

func (s *SQLStore) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, s.q, dest, s.rebind(query), args...)
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := s.q.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func (s *SQLStore) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.get(ctx, &id, query+" RETURNING id", args...); err != nil {
		return 0, err
	}
	return id, nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLStore) runMigrations(d dialect) error {
	if _, err := s.db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(d.ddl.Replace(m.sql)); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}
