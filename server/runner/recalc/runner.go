// Package recalc runs the periodic full recalculation of network values.
//
// A run loads the whole graph in one read transaction, iterates it to a
// fixed point and writes the results back in short chunked transactions. A
// value is only overwritten while it is still the one the snapshot saw, so a
// value committed by an interactive mutation after the snapshot is left in place.
package recalc

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/netvalue/plugin/propagation"
	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/server/internal/observability"
	"github.com/hrygo/netvalue/server/service/network"
	"github.com/hrygo/netvalue/store"
)

const (
	DefaultChunkSize      = 500
	DefaultChunkTimeout   = 10 * time.Second
	DefaultChunkRetries   = 3
	DefaultRetryBaseDelay = 200 * time.Millisecond
)

// Config configures the runner.
type Config struct {
	ValueScale  float64
	Propagation propagation.Options

	ChunkSize      int
	ChunkTimeout   time.Duration
	ChunkRetries   int
	RetryBaseDelay time.Duration

	// Interval between background runs. Zero disables the background loop.
	Interval time.Duration
}

// JobSummary reports the outcome of one run.
type JobSummary struct {
	NodesProcessed int           `json:"nodes_processed"`
	NodesWritten   int           `json:"nodes_written"`
	SkippedStale   int           `json:"skipped_stale"`
	Iterations     int           `json:"iterations"`
	Converged      bool          `json:"converged"`
	MaxDelta       float64       `json:"max_delta"`
	Saturated      int           `json:"saturated"`
	FailedChunks   int           `json:"failed_chunks"`
	Duration       time.Duration `json:"duration_ns"`
}

// Store is the interface for store operations needed by the runner.
type Store interface {
	LoadGraph(ctx context.Context) (*store.GraphSnapshot, error)
	RunInTx(ctx context.Context, opts *store.TxOptions, fn func(tx store.Tx) error) error
}

type Runner struct {
	store  Store
	config Config
	group  singleflight.Group
	now    func() time.Time
}

// NewRunner creates a recalculation runner.
func NewRunner(store Store, config Config) *Runner {
	if config.ValueScale <= 0 {
		config.ValueScale = propagation.DefaultValueScale
	}
	config.Propagation.Validate()
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkTimeout <= 0 {
		config.ChunkTimeout = DefaultChunkTimeout
	}
	if config.ChunkRetries <= 0 {
		config.ChunkRetries = DefaultChunkRetries
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = DefaultRetryBaseDelay
	}
	return &Runner{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	if r.config.Interval <= 0 {
		slog.Info("recalculation runner disabled")
		return
	}

	// Process once on startup
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("recalculation runner stopped")
			return
		}
	}
}

// RunOnce runs one recalculation and logs the outcome.
func (r *Runner) RunOnce(ctx context.Context) {
	summary, err := r.RecalculateAll(ctx)
	if err != nil {
		slog.Error("recalculation failed", "error", err)
		return
	}
	slog.Info("recalculation completed",
		"nodes", summary.NodesProcessed,
		"written", summary.NodesWritten,
		"skipped_stale", summary.SkippedStale,
		"iterations", summary.Iterations,
		"converged", summary.Converged,
		"saturated", summary.Saturated,
		"failed_chunks", summary.FailedChunks,
		"duration", summary.Duration)
}

// RecalculateAll recomputes every network value.
// Concurrent calls share one run. Failed chunks are counted, not returned;
// an error means the run could not load the graph or was canceled.
func (r *Runner) RecalculateAll(ctx context.Context) (*JobSummary, error) {
	v, err, _ := r.group.Do("recalculate", func() (any, error) {
		return r.recalculate(ctx)
	})
	summary, _ := v.(*JobSummary)
	return summary, err
}

func (r *Runner) recalculate(ctx context.Context) (summary *JobSummary, err error) {
	started := r.now()
	summary = &JobSummary{}
	defer func() {
		summary.Duration = time.Since(started)
		observability.RecordRecalc(observability.RecalcStats{
			Iterations:   summary.Iterations,
			NodesWritten: summary.NodesWritten,
			SkippedStale: summary.SkippedStale,
			FailedChunks: summary.FailedChunks,
			Duration:     summary.Duration,
		}, err)
	}()

	snapshot, err := r.store.LoadGraph(ctx)
	if err != nil {
		return summary, err
	}
	graph, err := r.buildGraph(snapshot)
	if err != nil {
		return summary, err
	}

	opts := r.config.Propagation
	result, err := propagation.Converge(ctx, graph, &opts)
	if err != nil {
		return summary, err
	}
	summary.Iterations = result.Iterations
	summary.Converged = result.Converged
	summary.MaxDelta = result.MaxDelta
	summary.Saturated = result.Saturated
	if !result.Converged {
		slog.Warn("recalculation did not converge",
			"iterations", result.Iterations, "max_delta", result.MaxDelta, "saturated", result.Saturated)
	}

	ids := graph.IDs()
	summary.NodesProcessed = len(ids)
	for i := 0; i < len(ids); i += r.config.ChunkSize {
		if err := ctx.Err(); err != nil {
			slog.Info("recalculation cancelled", "written", summary.NodesWritten, "total", len(ids))
			return summary, err
		}

		end := min(i+r.config.ChunkSize, len(ids))
		chunk := ids[i:end]
		written, skipped, err := r.writeChunkWithRetry(ctx, chunk, result.Values, snapshot.ValueTs)
		if err != nil && ctx.Err() != nil {
			slog.Info("recalculation cancelled", "written", summary.NodesWritten, "total", len(ids))
			return summary, ctx.Err()
		}
		if err != nil {
			summary.FailedChunks++
			chunkErr := errors.JobChunkFailure(fmt.Sprintf("chunk %d-%d", i, end), err)
			slog.Error("failed to write chunk", "error", chunkErr, "first", chunk[0], "size", len(chunk))
			continue
		}
		summary.NodesWritten += written
		summary.SkippedStale += skipped
	}
	return summary, nil
}

func (r *Runner) buildGraph(snapshot *store.GraphSnapshot) (*propagation.Graph, error) {
	graph := propagation.NewGraph()
	for _, p := range snapshot.Participants {
		graph.AddNode(p.ID, propagation.Base(network.CompletenessOf(p), r.config.ValueScale))
	}
	for _, c := range snapshot.Connections {
		if err := graph.AddEdge(c.UserID1, c.UserID2, c.Strength); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// writeChunkWithRetry retries a chunk with exponential backoff.
func (r *Runner) writeChunkWithRetry(ctx context.Context, ids []string, values map[string]float64, seen map[string]int64) (written, skipped int, err error) {
	for attempt := 0; attempt < r.config.ChunkRetries; attempt++ {
		written, skipped, err = r.writeChunk(ctx, ids, values, seen)
		if err == nil {
			return written, skipped, nil
		}
		if attempt < r.config.ChunkRetries-1 {
			waitTime := time.Duration(math.Pow(2, float64(attempt))) * r.config.RetryBaseDelay
			slog.Debug("chunk write failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", err)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return 0, 0, ctx.Err()
			}
		}
	}
	return 0, 0, err
}

func (r *Runner) writeChunk(ctx context.Context, ids []string, values map[string]float64, seen map[string]int64) (written, skipped int, err error) {
	chunkCtx, cancel := context.WithTimeout(ctx, r.config.ChunkTimeout)
	defer cancel()

	err = r.store.RunInTx(chunkCtx, nil, func(tx store.Tx) error {
		written, skipped = 0, 0
		now := r.now().UnixNano()
		for _, id := range ids {
			var seenTs *int64
			if ts, ok := seen[id]; ok {
				seenTs = &ts
			}
			ok, err := tx.UpsertNetworkValueIfUnchanged(chunkCtx, &store.NetworkValue{
				UserID:       id,
				Value:        values[id],
				CalculatedTs: now,
			}, seenTs)
			if err != nil {
				return err
			}
			if ok {
				written++
			} else {
				skipped++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return written, skipped, nil
}
