package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Migration flow:
// 1. preMigrate: if the database is not initialized, apply migration/{driver}/LATEST.sql
//    and record the schema version in system_setting.
// 2. demo mode: seed a freshly created database with the files under seed/{driver}/.

//go:embed migration
var migrationFS embed.FS

//go:embed seed
var seedFS embed.FS

const (
	// LatestSchemaFileName is the name of the latest schema file.
	LatestSchemaFileName = "LATEST.sql"

	schemaVersionSettingName = "schema_version"

	modeDemo = "demo"
)

// Migrate initializes the schema if needed and seeds demo data in demo mode.
// An initialized database is left untouched.
func (s *Store) Migrate(ctx context.Context) error {
	created, err := s.preMigrate(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	if created && s.profile.Mode == modeDemo {
		if err := s.seed(ctx); err != nil {
			return errors.Wrap(err, "failed to seed")
		}
	}
	return nil
}

// preMigrate applies the latest schema when the database is not initialized.
// It reports whether the schema was created.
func (s *Store) preMigrate(ctx context.Context) (bool, error) {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return false, nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return false, errors.Errorf("failed to read latest schema file: %s", err)
	}
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.execute(ctx, tx, string(bytes)); err != nil {
		return false, errors.Errorf("failed to execute SQL file %s, err %s", filePath, err)
	}
	schemaVersion := s.GetCurrentSchemaVersion()
	stmt := fmt.Sprintf("INSERT INTO system_setting (name, value) VALUES (%s, %s)", s.placeholder(1), s.placeholder(2))
	if _, err := tx.ExecContext(ctx, stmt, schemaVersionSettingName, schemaVersion); err != nil {
		return false, errors.Wrap(err, "failed to record schema version")
	}
	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "failed to commit transaction")
	}
	slog.Info("database initialized successfully", slog.String("schemaVersion", schemaVersion))
	return true, nil
}

// GetCurrentSchemaVersion returns the schema version this binary ships with.
func (s *Store) GetCurrentSchemaVersion() string {
	if s.profile.Version == "" {
		return "0.1.0"
	}
	return s.profile.Version
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

func (s *Store) getSeedBasePath() string {
	return fmt.Sprintf("seed/%s/", s.profile.Driver)
}

func (s *Store) placeholder(n int) string {
	if s.profile.Driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// seed executes the embedded seed files in name order.
// Only SQLite ships seed data.
func (s *Store) seed(ctx context.Context) error {
	if s.profile.Driver != "sqlite" {
		slog.Warn("seed is only supported for SQLite, skipping for other databases")
		return nil
	}

	filenames, err := fs.Glob(seedFS, fmt.Sprintf("%s*.sql", s.getSeedBasePath()))
	if err != nil {
		return errors.Wrap(err, "failed to read seed files")
	}
	sort.Strings(filenames)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()
	for _, filename := range filenames {
		bytes, err := seedFS.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "failed to read seed file, filename=%s", filename)
		}
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "seed error: %s", filename)
		}
	}
	return tx.Commit()
}

// execute runs a SQL script inside tx.
// PostgreSQL does not accept multiple statements in one ExecContext call, so the script is split.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, script string) error {
	if s.profile.Driver != "postgres" {
		if _, err := tx.ExecContext(ctx, script); err != nil {
			return errors.Wrap(err, "failed to execute statement")
		}
		return nil
	}
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, stmt)
		}
	}
	return nil
}

// splitSQL splits a script on semicolons outside single-quoted strings.
// Line comments are dropped.
func splitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	inSingleQuote := false

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		for i := 0; i < len(line); i++ {
			ch := line[i]
			if !inSingleQuote && ch == '-' && i+1 < len(line) && line[i+1] == '-' {
				break
			}
			switch {
			case ch == '\'':
				inSingleQuote = !inSingleQuote
				current.WriteByte(ch)
			case ch == ';' && !inSingleQuote:
				flush()
			default:
				current.WriteByte(ch)
			}
		}
		current.WriteByte('\n')
	}
	flush()
	return statements
}
