// Package stats summarises the connection graph and its network values.
package stats

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/hrygo/netvalue/store"
)

// DefaultMaxAge is how long collected statistics are served before they are collected again.
const DefaultMaxAge = time.Minute

// Stats represents graph statistics.
type Stats struct {
	// Graph
	Participants         int     `json:"participants"`
	Connections          int     `json:"connections"`
	IsolatedParticipants int     `json:"isolated_participants"`
	MeanDegree           float64 `json:"mean_degree"`
	MeanStrength         float64 `json:"mean_strength"`

	// Network values
	ValuedParticipants int     `json:"valued_participants"`
	MeanValue          float64 `json:"mean_value"`
	MedianValue        float64 `json:"median_value"`
	MaxValue           float64 `json:"max_value"`
	// LastCalculatedTs is the newest calculated_ts of any value, unix nanoseconds.
	LastCalculatedTs int64 `json:"last_calculated_ts"`

	LastUpdated time.Time `json:"last_updated"`
}

// Store is the interface for store operations needed by the collector.
type Store interface {
	LoadGraph(ctx context.Context) (*store.GraphSnapshot, error)
	ListNetworkValues(ctx context.Context, find *store.FindNetworkValue) ([]*store.NetworkValue, error)
}

// Collector collects statistics and caches them for maxAge.
type Collector struct {
	store  Store
	maxAge time.Duration
	now    func() time.Time

	mu    sync.Mutex
	stats *Stats
}

// NewCollector creates a new statistics collector.
func NewCollector(st Store, maxAge time.Duration) *Collector {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Collector{
		store:  st,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// GetStats returns a copy of the current statistics, collecting them first when missing or expired.
func (c *Collector) GetStats(ctx context.Context) (*Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stats == nil || c.now().Sub(c.stats.LastUpdated) >= c.maxAge {
		stats, err := c.collect(ctx)
		if err != nil {
			return nil, err
		}
		c.stats = stats
	}
	copied := *c.stats
	return &copied, nil
}

// collect gathers current statistics from the store.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	snapshot, err := c.store.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	values, err := c.store.ListNetworkValues(ctx, &store.FindNetworkValue{})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Participants: len(snapshot.Participants),
		Connections:  len(snapshot.Connections),
		LastUpdated:  c.now(),
	}

	degree := make(map[string]int, len(snapshot.Participants))
	strengths := make([]float64, 0, len(snapshot.Connections))
	for _, connection := range snapshot.Connections {
		degree[connection.UserID1]++
		degree[connection.UserID2]++
		strengths = append(strengths, connection.Strength)
	}
	for _, p := range snapshot.Participants {
		if degree[p.ID] == 0 {
			stats.IsolatedParticipants++
		}
	}
	if stats.Participants > 0 {
		stats.MeanDegree = 2 * float64(stats.Connections) / float64(stats.Participants)
	}
	if len(strengths) > 0 {
		stats.MeanStrength = stat.Mean(strengths, nil)
	}

	stats.ValuedParticipants = len(values)
	if len(values) > 0 {
		sorted := make([]float64, 0, len(values))
		for _, v := range values {
			sorted = append(sorted, v.Value)
			if v.CalculatedTs > stats.LastCalculatedTs {
				stats.LastCalculatedTs = v.CalculatedTs
			}
		}
		sort.Float64s(sorted)
		stats.MeanValue = stat.Mean(sorted, nil)
		stats.MedianValue = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		stats.MaxValue = sorted[len(sorted)-1]
	}
	return stats, nil
}

// Summary returns a human-readable summary.
func (s *Stats) Summary() string {
	return fmt.Sprintf(
		`Network statistics (updated %s)

Graph
  Participants: %d (%d isolated)
  Connections:  %d
  Mean degree:  %.2f
  Mean strength: %.3f

Network values
  Valued participants: %d
  Mean:   %.3f
  Median: %.3f
  Max:    %.3f
  Last calculated: %s`,
		s.LastUpdated.Format("2006-01-02 15:04"),
		s.Participants, s.IsolatedParticipants,
		s.Connections,
		s.MeanDegree,
		s.MeanStrength,
		s.ValuedParticipants,
		s.MeanValue,
		s.MedianValue,
		s.MaxValue,
		formatLastCalculated(s.LastCalculatedTs),
	)
}

func formatLastCalculated(ts int64) string {
	if ts == 0 {
		return "never"
	}
	return time.Unix(0, ts).Format(time.RFC3339)
}
