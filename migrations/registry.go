package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	ledgerflow "github.com/goliatone/go-ledgerflow"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const rootPath = "data/sql/migrations"

// Source is the migration set shipped for one dialect. Postgres files sit at
// the root of the tree and the sqlite variants under sqlite/.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type RegisterFunc func(ctx context.Context, dialect string, fsys fs.FS) error

// SourceFor resolves the embedded migrations for dialect and checks that the
// set is not empty.
func SourceFor(dialect string) (Source, error) {
	dialect = strings.TrimSpace(strings.ToLower(dialect))
	base, err := fs.Sub(ledgerflow.GetMigrationsFS(), rootPath)
	if err != nil {
		return Source{}, fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
	}

	source := Source{Dialect: dialect, Path: rootPath, FS: base}
	switch dialect {
	case DialectPostgres:
	case DialectSQLite:
		sqliteFS, err := fs.Sub(base, "sqlite")
		if err != nil {
			return Source{}, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
		}
		source.Path = path.Join(rootPath, "sqlite")
		source.FS = sqliteFS
	default:
		return Source{}, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	versions, err := upVersions(source.FS)
	if err != nil {
		return Source{}, fmt.Errorf("migrations: glob %s %s: %w", dialect, source.Path, err)
	}
	if len(versions) == 0 {
		return Source{}, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", dialect, source.Path)
	}
	return source, nil
}

// Register hands the migrations for dialect to registerFn.
func Register(ctx context.Context, dialect string, registerFn RegisterFunc) (Source, error) {
	if registerFn == nil {
		return Source{}, fmt.Errorf("migrations: register function is required")
	}
	source, err := SourceFor(dialect)
	if err != nil {
		return Source{}, err
	}
	if err := registerFn(ctx, source.Dialect, source.FS); err != nil {
		return source, fmt.Errorf("migrations: register %s (%s): %w", source.Dialect, source.Path, err)
	}
	return source, nil
}

// DialectForDriver maps a database/sql driver name onto a migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}

// Versions lists the migration versions shipped for a dialect, oldest first.
func Versions(dialect string) ([]string, error) {
	source, err := SourceFor(dialect)
	if err != nil {
		return nil, err
	}
	return upVersions(source.FS)
}

func upVersions(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(matches))
	for _, match := range matches {
		versions = append(versions, strings.TrimSuffix(match, ".up.sql"))
	}
	slices.Sort(versions)
	return versions, nil
}
