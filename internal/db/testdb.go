package db

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// TestPostgresURLEnv names the variable holding a PostgreSQL URL for the
// opt-in PostgreSQL tests.
const TestPostgresURLEnv = "TEST_DATABASE_URL"

// OpenForTesting opens a migrated SQLite database in a per-test directory.
// A file is used rather than :memory: so that every pooled connection sees
// the same data and SQLite locking behaves as in production.
func OpenForTesting(t testing.TB) *DB {
	t.Helper()

	d, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "roadiebag.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	return d
}

// OpenPostgresForTesting opens a migrated PostgreSQL database in a fresh
// schema that is dropped when the test ends. The test is skipped unless
// TEST_DATABASE_URL is set.
func OpenPostgresForTesting(t testing.TB) *DB {
	t.Helper()

	rawURL := os.Getenv(TestPostgresURLEnv)
	if rawURL == "" {
		t.Skipf("%s not set", TestPostgresURLEnv)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parsing %s: %v", TestPostgresURLEnv, err)
	}

	admin, err := sql.Open(string(Postgres), rawURL)
	if err != nil {
		t.Fatalf("opening admin connection: %v", err)
	}
	schema := "roadiebag_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.Exec("CREATE SCHEMA " + schema); err != nil {
		_ = admin.Close()
		t.Fatalf("creating schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.Exec("DROP SCHEMA " + schema + " CASCADE")
		_ = admin.Close()
	})

	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	d, err := Open(context.Background(), Postgres, u.String())
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	return d
}
