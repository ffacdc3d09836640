package stats

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/netvalue/store"
	"github.com/hrygo/netvalue/store/test"
)

func TestCollectorGetStats(t *testing.T) {
	ctx := context.Background()
	ts := test.NewTestingStore(ctx, t)
	for _, id := range []string{"a", "b", "c", "d"} {
		test.CreateTestingParticipant(ctx, t, ts, id)
	}
	err := ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		for _, c := range []*store.Connection{
			{UserID1: "a", UserID2: "b", Strength: 0.2},
			{UserID1: "b", UserID2: "c", Strength: 0.6},
		} {
			if _, err := tx.CreateConnection(ctx, c); err != nil {
				return err
			}
		}
		for i, id := range []string{"a", "b", "c"} {
			if _, err := tx.UpsertNetworkValue(ctx, &store.NetworkValue{UserID: id, Value: float64(i + 1), CalculatedTs: int64(100 + i)}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	collector := NewCollector(ts, time.Hour)
	stats, err := collector.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Participants)
	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, 1, stats.IsolatedParticipants)
	assert.InDelta(t, 1.0, stats.MeanDegree, 1e-12)
	assert.InDelta(t, 0.4, stats.MeanStrength, 1e-12)
	assert.Equal(t, 3, stats.ValuedParticipants)
	assert.InDelta(t, 2.0, stats.MeanValue, 1e-12)
	assert.InDelta(t, 2.0, stats.MedianValue, 1e-12)
	assert.InDelta(t, 3.0, stats.MaxValue, 1e-12)
	assert.Equal(t, int64(102), stats.LastCalculatedTs)
	assert.False(t, stats.LastUpdated.IsZero())
}

func TestCollectorCachesUntilExpired(t *testing.T) {
	ctx := context.Background()
	ts := test.NewTestingStore(ctx, t)
	test.CreateTestingParticipant(ctx, t, ts, "a")

	now := time.Now()
	collector := NewCollector(ts, time.Minute)
	collector.now = func() time.Time { return now }

	stats, err := collector.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Participants)

	test.CreateTestingParticipant(ctx, t, ts, "b")
	stats, err = collector.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Participants, "served from cache")

	now = now.Add(time.Minute)
	stats, err = collector.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Participants)
}

func TestCollectorEmptyStore(t *testing.T) {
	ctx := context.Background()
	ts := test.NewTestingStore(ctx, t)

	stats, err := NewCollector(ts, 0).GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Participants)
	assert.Zero(t, stats.MeanDegree)
	assert.Zero(t, stats.MeanValue)
	assert.Contains(t, stats.Summary(), "Last calculated: never")
}

func TestStatsSummary(t *testing.T) {
	stats := &Stats{
		Participants:         10,
		Connections:          12,
		IsolatedParticipants: 2,
		MeanDegree:           2.4,
		MeanStrength:         0.35,
		ValuedParticipants:   8,
		MeanValue:            4.5,
		MedianValue:          4,
		MaxValue:             9.25,
		LastCalculatedTs:     time.Now().UnixNano(),
		LastUpdated:          time.Now(),
	}

	summary := stats.Summary()
	for _, section := range []string{"Graph", "Network values", "Participants: 10 (2 isolated)", "Max:    9.250"} {
		assert.True(t, strings.Contains(summary, section), "summary should contain %q", section)
	}
}
