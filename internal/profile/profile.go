package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where netvalue stores its data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Propagation
	ValueScale    float64 // NETVALUE_VALUE_SCALE (default: 10)
	Epsilon       float64 // NETVALUE_PROPAGATION_EPSILON (default: 1e-4)
	MaxIterations int     // NETVALUE_PROPAGATION_MAX_ITERATIONS (default: 50)
	Ceiling       float64 // NETVALUE_PROPAGATION_CEILING (default: 1e6)

	// Recalculation job
	ChunkSize      int           // NETVALUE_RECALC_CHUNK_SIZE (default: 500)
	ChunkTimeout   time.Duration // NETVALUE_RECALC_CHUNK_TIMEOUT (default: 10s)
	ChunkRetries   int           // NETVALUE_RECALC_CHUNK_RETRIES (default: 3)
	RecalcInterval time.Duration // NETVALUE_RECALC_INTERVAL (default: 10m, 0 disables)

	// API rate limiting per client IP
	RateLimitPerSecond float64 // NETVALUE_RATE_LIMIT_PER_SECOND (default: 10)
	RateLimitBurst     int     // NETVALUE_RATE_LIMIT_BURST (default: 20)
}

const (
	DefaultValueScale     = 10.0
	DefaultEpsilon        = 1e-4
	DefaultMaxIterations  = 50
	DefaultCeiling        = 1e6
	DefaultChunkSize      = 500
	DefaultChunkTimeout   = 10 * time.Second
	DefaultChunkRetries   = 3
	DefaultRecalcInterval = 10 * time.Minute
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

// FromEnv loads the propagation, job and rate limit settings from NETVALUE_* variables.
// Unset or malformed values fall back to defaults.
func (p *Profile) FromEnv() {
	p.ValueScale = getFloatEnvOrDefault("NETVALUE_VALUE_SCALE", DefaultValueScale)
	p.Epsilon = getFloatEnvOrDefault("NETVALUE_PROPAGATION_EPSILON", DefaultEpsilon)
	p.MaxIterations = getIntEnvOrDefault("NETVALUE_PROPAGATION_MAX_ITERATIONS", DefaultMaxIterations)
	p.Ceiling = getFloatEnvOrDefault("NETVALUE_PROPAGATION_CEILING", DefaultCeiling)

	p.ChunkSize = getIntEnvOrDefault("NETVALUE_RECALC_CHUNK_SIZE", DefaultChunkSize)
	p.ChunkTimeout = getDurationEnvOrDefault("NETVALUE_RECALC_CHUNK_TIMEOUT", DefaultChunkTimeout)
	p.ChunkRetries = getIntEnvOrDefault("NETVALUE_RECALC_CHUNK_RETRIES", DefaultChunkRetries)
	p.RecalcInterval = getDurationEnvOrDefault("NETVALUE_RECALC_INTERVAL", DefaultRecalcInterval)

	p.RateLimitPerSecond = getFloatEnvOrDefault("NETVALUE_RATE_LIMIT_PER_SECOND", 10)
	p.RateLimitBurst = getIntEnvOrDefault("NETVALUE_RATE_LIMIT_BURST", 20)

	if p.Driver == "" {
		p.Driver = getEnvOrDefault("NETVALUE_DRIVER", "sqlite")
	}
	if p.DSN == "" {
		p.DSN = os.Getenv("NETVALUE_DSN")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/netvalue"
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("netvalue_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres")
	}

	if p.ValueScale <= 0 {
		return errors.Errorf("value scale must be positive, got %v", p.ValueScale)
	}
	if p.Ceiling <= 0 {
		return errors.Errorf("ceiling must be positive, got %v", p.Ceiling)
	}
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
	return nil
}
