package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/netvalue/internal/profile"
	"github.com/hrygo/netvalue/store"
	"github.com/hrygo/netvalue/store/db"
)

// NewTestingStore returns a migrated store backed by a fresh SQLite file,
// or by PostgreSQL when DRIVER=postgres.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	profile := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(profile)
	require.NoError(t, err, "failed to create db driver")

	ts := store.New(dbDriver, profile)
	require.NoError(t, ts.Migrate(ctx), "failed to migrate db")
	t.Cleanup(func() {
		ts.Close()
	})
	return ts
}

func getTestingProfile(t *testing.T) *profile.Profile {
	driver := getDriverFromEnv()
	p := &profile.Profile{
		Mode:    "dev",
		Driver:  driver,
		Version: "0.1.0",
	}
	switch driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		dir := t.TempDir()
		p.Data = dir
		p.DSN = filepath.Join(dir, fmt.Sprintf("netvalue_%d.db", time.Now().UnixNano()))
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}

// CreateTestingParticipant registers a participant with only a username set.
func CreateTestingParticipant(ctx context.Context, t *testing.T, ts *store.Store, id string) *store.Participant {
	t.Helper()
	now := time.Now().UnixNano()
	p, err := ts.UpsertParticipant(ctx, &store.Participant{
		ID:        id,
		Username:  id,
		CreatedTs: now,
		UpdatedTs: now,
	})
	require.NoError(t, err)
	return p
}
