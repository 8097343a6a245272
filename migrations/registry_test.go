package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ledgerflow "github.com/goliatone/go-ledgerflow"
	_ "github.com/mattn/go-sqlite3"
)

func TestSourceFor_ResolvesEachDialect(t *testing.T) {
	cases := map[string]string{
		DialectPostgres: "data/sql/migrations",
		DialectSQLite:   "data/sql/migrations/sqlite",
		" SQLite ":      "data/sql/migrations/sqlite",
	}
	for dialect, wantPath := range cases {
		source, err := SourceFor(dialect)
		if err != nil {
			t.Fatalf("source for %q: %v", dialect, err)
		}
		if source.Path != wantPath {
			t.Fatalf("expected %q path %q, got %q", dialect, wantPath, source.Path)
		}
		matches, err := fs.Glob(source.FS, "*.up.sql")
		if err != nil || len(matches) == 0 {
			t.Fatalf("expected %q migration files, got %v (%v)", dialect, matches, err)
		}
	}
	if _, err := SourceFor("mysql"); err == nil {
		t.Fatalf("expected unsupported dialect error")
	}
}

func TestRegister_HandsDialectFilesystemToCallback(t *testing.T) {
	var calls []string
	source, err := Register(context.Background(), DialectSQLite, func(_ context.Context, dialect string, fsys fs.FS) error {
		if _, err := fs.Stat(fsys, "00001_ledgerflow_core_schema.up.sql"); err != nil {
			return err
		}
		calls = append(calls, dialect)
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(calls) != 1 || calls[0] != DialectSQLite || source.Dialect != DialectSQLite {
		t.Fatalf("expected single sqlite registration, got %#v", calls)
	}

	if _, err := Register(context.Background(), DialectSQLite, nil); err == nil {
		t.Fatalf("expected nil register function to fail")
	}
	failing := func(context.Context, string, fs.FS) error { return errors.New("closed") }
	if _, err := Register(context.Background(), DialectPostgres, failing); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("expected callback failure to surface, got %v", err)
	}
}

func TestMigrationPairs_ExistForBothDialects(t *testing.T) {
	root := ledgerflow.GetMigrationsFS()
	for _, version := range []string{"00001_ledgerflow_core_schema", "00002_ledgerflow_proposal_submissions"} {
		for _, dir := range []string{"data/sql/migrations", "data/sql/migrations/sqlite"} {
			for _, direction := range []string{"up", "down"} {
				path := fmt.Sprintf("%s/%s.%s.sql", dir, version, direction)
				content, err := fs.ReadFile(root, path)
				if err != nil {
					t.Fatalf("read migration %s: %v", path, err)
				}
				if strings.TrimSpace(string(content)) == "" {
					t.Fatalf("expected migration %s to have SQL content", path)
				}
			}
		}
	}
}

func TestVersionsAndDialectForDriver(t *testing.T) {
	versions, err := Versions(DialectSQLite)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 2 || versions[0] != "00001_ledgerflow_core_schema" {
		t.Fatalf("unexpected versions %#v", versions)
	}
	if dialect, err := DialectForDriver("sqlite3"); err != nil || dialect != DialectSQLite {
		t.Fatalf("expected sqlite dialect, got %q (%v)", dialect, err)
	}
	if dialect, err := DialectForDriver("postgres"); err != nil || dialect != DialectPostgres {
		t.Fatalf("expected postgres dialect, got %q (%v)", dialect, err)
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestSQLiteMigrations_ApplyAndRollback(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:migrations-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	sqliteMigrations, err := fs.Sub(ledgerflow.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	for _, migration := range []string{
		"00001_ledgerflow_core_schema.up.sql",
		"00002_ledgerflow_proposal_submissions.up.sql",
	} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("apply %s: %v", migration, err)
		}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO ledgerflow_retry_queue (id, destination, operation, payload) VALUES (?, ?, ?, ?)`,
		"r1", "iywa7-ayaaa-aaaaf-aemga-cai", "c2c_submit_proposal_msgpack", []byte{0x80},
	); err != nil {
		t.Fatalf("insert retry row: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO ledgerflow_retry_queue (id, destination, operation, payload, status) VALUES (?, ?, ?, ?, ?)`,
		"r2", "iywa7-ayaaa-aaaaf-aemga-cai", "c2c_submit_proposal_msgpack", []byte{0x80}, "bogus",
	); err == nil {
		t.Fatalf("expected status check constraint to reject unknown status")
	}

	var status string
	if err := db.QueryRowContext(ctx, `SELECT status FROM ledgerflow_retry_queue WHERE id = ?`, "r1").Scan(&status); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status != "pending" {
		t.Fatalf("expected default pending status, got %q", status)
	}

	for _, migration := range []string{
		"00002_ledgerflow_proposal_submissions.down.sql",
		"00001_ledgerflow_core_schema.down.sql",
	} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("rollback %s: %v", migration, err)
		}
	}
	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name LIKE 'ledgerflow_%'`,
	).Scan(&count); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected all ledgerflow tables dropped, found %d", count)
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
