package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"NETVALUE_VALUE_SCALE",
	"NETVALUE_PROPAGATION_EPSILON",
	"NETVALUE_PROPAGATION_MAX_ITERATIONS",
	"NETVALUE_PROPAGATION_CEILING",
	"NETVALUE_RECALC_CHUNK_SIZE",
	"NETVALUE_RECALC_CHUNK_TIMEOUT",
	"NETVALUE_RECALC_CHUNK_RETRIES",
	"NETVALUE_RECALC_INTERVAL",
	"NETVALUE_RATE_LIMIT_PER_SECOND",
	"NETVALUE_RATE_LIMIT_BURST",
	"NETVALUE_DRIVER",
	"NETVALUE_DSN",
}

func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, DefaultValueScale, profile.ValueScale)
	assert.Equal(t, DefaultEpsilon, profile.Epsilon)
	assert.Equal(t, DefaultMaxIterations, profile.MaxIterations)
	assert.Equal(t, DefaultCeiling, profile.Ceiling)
	assert.Equal(t, DefaultChunkSize, profile.ChunkSize)
	assert.Equal(t, DefaultChunkTimeout, profile.ChunkTimeout)
	assert.Equal(t, DefaultChunkRetries, profile.ChunkRetries)
	assert.Equal(t, DefaultRecalcInterval, profile.RecalcInterval)
	assert.Equal(t, 10.0, profile.RateLimitPerSecond)
	assert.Equal(t, 20, profile.RateLimitBurst)
	assert.Equal(t, "sqlite", profile.Driver)
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		check    func(t *testing.T, p *Profile)
	}{
		{
			name:     "value scale",
			envVar:   "NETVALUE_VALUE_SCALE",
			envValue: "4",
			check:    func(t *testing.T, p *Profile) { assert.Equal(t, 4.0, p.ValueScale) },
		},
		{
			name:     "ceiling",
			envVar:   "NETVALUE_PROPAGATION_CEILING",
			envValue: "500",
			check:    func(t *testing.T, p *Profile) { assert.Equal(t, 500.0, p.Ceiling) },
		},
		{
			name:     "chunk timeout",
			envVar:   "NETVALUE_RECALC_CHUNK_TIMEOUT",
			envValue: "3s",
			check:    func(t *testing.T, p *Profile) { assert.Equal(t, 3*time.Second, p.ChunkTimeout) },
		},
		{
			name:     "interval disabled",
			envVar:   "NETVALUE_RECALC_INTERVAL",
			envValue: "0s",
			check:    func(t *testing.T, p *Profile) { assert.Equal(t, time.Duration(0), p.RecalcInterval) },
		},
		{
			name:     "malformed falls back",
			envVar:   "NETVALUE_PROPAGATION_MAX_ITERATIONS",
			envValue: "many",
			check:    func(t *testing.T, p *Profile) { assert.Equal(t, DefaultMaxIterations, p.MaxIterations) },
		},
		{
			name:     "driver",
			envVar:   "NETVALUE_DRIVER",
			envValue: "postgres",
			check:    func(t *testing.T, p *Profile) { assert.Equal(t, "postgres", p.Driver) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.envVar, tt.envValue)

			profile := &Profile{}
			profile.FromEnv()
			tt.check(t, profile)
		})
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	t.Run("sqlite dsn derived from data dir", func(t *testing.T) {
		dir := t.TempDir()
		profile := &Profile{Mode: "dev", Data: dir, Driver: "sqlite"}
		profile.FromEnv()
		require.NoError(t, profile.Validate())
		assert.Equal(t, filepath.Join(dir, "netvalue_dev.db"), profile.DSN)
	})

	t.Run("unknown mode becomes demo", func(t *testing.T) {
		profile := &Profile{Mode: "staging", Data: t.TempDir(), Driver: "sqlite"}
		profile.FromEnv()
		require.NoError(t, profile.Validate())
		assert.Equal(t, "demo", profile.Mode)
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Data: t.TempDir(), Driver: "postgres"}
		profile.FromEnv()
		assert.Error(t, profile.Validate())
	})

	t.Run("unsupported driver", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Data: t.TempDir(), Driver: "mysql"}
		assert.Error(t, profile.Validate())
	})

	t.Run("missing data dir", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Data: filepath.Join(os.TempDir(), "netvalue-missing-dir-for-test"), Driver: "sqlite"}
		profile.FromEnv()
		assert.Error(t, profile.Validate())
	})

	t.Run("non positive ceiling", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Data: t.TempDir(), Driver: "sqlite"}
		profile.FromEnv()
		profile.Ceiling = 0
		assert.Error(t, profile.Validate())
	})
}
