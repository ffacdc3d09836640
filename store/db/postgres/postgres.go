package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/netvalue/internal/profile"
	"github.com/hrygo/netvalue/store"
)

// ============================================================================
// POSTGRESQL SUPPORT (Production)
// ============================================================================
// PostgreSQL is the reference implementation for concurrent writers.
// Interactive mutations lock both endpoint rows with SELECT ... FOR UPDATE in
// ascending id order, so two transactions touching a shared participant
// serialize on that row and never deadlock on each other.
// ============================================================================

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		slog.Error("failed to open database", slog.String("error", err.Error()))
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		slog.Error("failed to ping database", slog.String("error", err.Error()))
		return nil, errors.Wrap(err, "failed to ping database")
	}

	var driver store.Driver = &DB{
		db:      db,
		profile: profile,
	}
	return driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_catalog = current_database() AND table_name = 'connection' AND table_type = 'BASE TABLE')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// BeginTx starts a READ COMMITTED transaction, or a REPEATABLE READ read-only
// one for snapshot reads.
func (d *DB) BeginTx(ctx context.Context, opts *store.TxOptions) (store.Tx, error) {
	sqlOpts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	if opts != nil && opts.ReadOnly {
		sqlOpts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	tx, err := d.db.BeginTx(ctx, sqlOpts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return &txn{tx: tx}, nil
}

type txn struct {
	tx *sql.Tx
}

func (t *txn) Commit() error {
	return t.tx.Commit()
}

func (t *txn) Rollback() error {
	return t.tx.Rollback()
}
