package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// Dialect names the SQL flavour of the underlying store. Its value is also the
// database/sql driver name.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func ParseDialect(name string) (Dialect, error) {
	switch Dialect(strings.ToLower(name)) {
	case SQLite:
		return SQLite, nil
	case Postgres, "postgresql", "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// Rebind rewrites ? placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// BoolLiteral renders v as a SQL literal. Queries that must match the partial
// index on checkouts.done use it instead of a bound parameter.
func (d Dialect) BoolLiteral(v bool) string {
	switch {
	case d == Postgres && v:
		return "TRUE"
	case d == Postgres:
		return "FALSE"
	case v:
		return "1"
	default:
		return "0"
	}
}

// ContainsFold renders a case-insensitive LIKE of column against one bound
// pattern. SQLite's own LOWER and LIKE fold ASCII only, so it goes through
// casefold; PostgreSQL has ILIKE.
func (d Dialect) ContainsFold(column string) string {
	if d == Postgres {
		return column + " ILIKE ?"
	}
	return "casefold(" + column + ") LIKE casefold(?)"
}

// DB is a connection pool that knows which dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Rebind is shorthand for d.Dialect.Rebind.
func (d *DB) Rebind(query string) string {
	return d.Dialect.Rebind(query)
}

// Open connects to the store and applies pending migrations. For SQLite, dsn
// is a file path; for PostgreSQL it is a connection URL.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	source := dsn
	if dialect == SQLite {
		source = sqliteDSN(dsn)
	}

	sqlDB, err := sql.Open(string(dialect), source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == Postgres {
		configurePool(sqlDB)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{DB: sqlDB, Dialect: dialect}
	if err := runMigrations(d); err != nil {
		if cerr := sqlDB.Close(); cerr != nil {
			return nil, fmt.Errorf("failed to run migrations: %w (also failed to close db: %v)", err, cerr)
		}
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

// sqliteDSN sets per-connection pragmas. _txlock=immediate makes every
// transaction take the write lock at BEGIN, so concurrent checkout writers
// queue on busy_timeout instead of failing on a stale snapshot.
func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
}

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func runMigrations(d *DB) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(d.Dialect))
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var driver database.Driver
	switch d.Dialect {
	case SQLite:
		driver, err = migratesqlite.WithInstance(d.DB, &migratesqlite.Config{})
	case Postgres:
		driver, err = migratepostgres.WithInstance(d.DB, &migratepostgres.Config{})
	default:
		err = fmt.Errorf("unsupported dialect %q", d.Dialect)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// m.Close is not called: it would close the shared *sql.DB.
	m, err := migrate.NewWithInstance("iofs", src, string(d.Dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
