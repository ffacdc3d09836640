package network

import (
	"context"
	"math"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/store"
	storetest "github.com/hrygo/netvalue/store/test"
)

// With scale 4 a participant that only has a username has base value 1.
func newTestService(ctx context.Context, t *testing.T, ids ...string) (Service, *store.Store) {
	t.Helper()
	ts := storetest.NewTestingStore(ctx, t)
	for _, id := range ids {
		storetest.CreateTestingParticipant(ctx, t, ts, id)
	}
	return NewService(ts, Config{ValueScale: 4}), ts
}

func valueOf(ctx context.Context, t *testing.T, ts *store.Store, id string) float64 {
	t.Helper()
	v, err := ts.GetNetworkValue(ctx, id)
	require.NoError(t, err)
	return v.Value
}

func TestCreateConnection(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(ctx, t, "a", "b")

	created, err := svc.CreateConnection(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", created.UserID1)
	assert.Equal(t, "b", created.UserID2)
	assert.Equal(t, InitialStrength, created.Strength)
	assert.NotZero(t, created.ConnectedTs)

	// Fresh pair with base 1 and no stored values: 1 + 0.1·1 on both sides.
	assert.InDelta(t, 1.1, valueOf(ctx, t, ts, "a"), 1e-9)
	assert.InDelta(t, 1.1, valueOf(ctx, t, ts, "b"), 1e-9)
}

func TestCreateConnectionErrors(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(ctx, t, "a", "b")

	_, err := svc.CreateConnection(ctx, "a", "b")
	require.NoError(t, err)

	_, err = svc.CreateConnection(ctx, "a", "b")
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict), err)
	_, err = svc.CreateConnection(ctx, "b", "a")
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict), err)

	_, err = svc.CreateConnection(ctx, "a", "a")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), err)
	_, err = svc.CreateConnection(ctx, "", "a")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), err)

	_, err = svc.CreateConnection(ctx, "a", "ghost")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), err)
	_, err = ts.GetConnection(ctx, store.NewEdgeKey("a", "ghost"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Failed attempts leave the first values untouched.
	assert.InDelta(t, 1.1, valueOf(ctx, t, ts, "a"), 1e-9)
}

func TestUpdateStrength(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(ctx, t, "a", "b")
	key := store.NewEdgeKey("a", "b")

	_, err := svc.CreateConnection(ctx, "a", "b")
	require.NoError(t, err)

	for _, invalid := range []float64{-0.1, 1.1, math.NaN(), math.Inf(1)} {
		_, err := svc.UpdateStrength(ctx, key, invalid)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), "strength %v: %v", invalid, err)
	}
	c, err := ts.GetConnection(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, InitialStrength, c.Strength)

	updated, err := svc.UpdateStrength(ctx, store.EdgeKey{UserID1: "b", UserID2: "a"}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, updated.Strength)
	assert.Equal(t, c.ConnectedTs, updated.ConnectedTs)

	// Both endpoints read the other's committed 1.1.
	assert.InDelta(t, 1.55, valueOf(ctx, t, ts, "a"), 1e-9)
	assert.InDelta(t, 1.55, valueOf(ctx, t, ts, "b"), 1e-9)

	for _, boundary := range []float64{0, 1} {
		_, err := svc.UpdateStrength(ctx, key, boundary)
		require.NoError(t, err)
	}

	_, err = svc.UpdateStrength(ctx, store.NewEdgeKey("a", "ghost"), 0.5)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), err)
}

func TestRemoveAndRecreate(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(ctx, t, "a", "b")
	key := store.NewEdgeKey("a", "b")

	_, err := svc.CreateConnection(ctx, "a", "b")
	require.NoError(t, err)
	_, err = svc.UpdateStrength(ctx, key, 0.8)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveConnection(ctx, key))
	_, err = svc.GetConnection(ctx, key)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), err)
	// No neighbours left: back to base.
	assert.InDelta(t, 1.0, valueOf(ctx, t, ts, "a"), 1e-9)
	assert.InDelta(t, 1.0, valueOf(ctx, t, ts, "b"), 1e-9)

	err = svc.RemoveConnection(ctx, key)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), err)

	recreated, err := svc.CreateConnection(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, InitialStrength, recreated.Strength)
}

func TestConcurrentUpdatesSharingParticipant(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(ctx, t, "x", "y", "z")

	_, err := svc.CreateConnection(ctx, "x", "y")
	require.NoError(t, err)
	_, err = svc.CreateConnection(ctx, "x", "z")
	require.NoError(t, err)
	// x = 1 + 0.1·1.1 + 0.1·1 = 1.21, z = 1 + 0.1·1.1 = 1.11, y = 1.1
	require.InDelta(t, 1.21, valueOf(ctx, t, ts, "x"), 1e-9)
	require.InDelta(t, 1.11, valueOf(ctx, t, ts, "z"), 1e-9)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := svc.UpdateStrength(gctx, store.NewEdgeKey("x", "y"), 1)
		return err
	})
	g.Go(func() error {
		_, err := svc.UpdateStrength(gctx, store.NewEdgeKey("x", "z"), 1)
		return err
	})
	require.NoError(t, g.Wait())

	// Whichever update commits second sees both new strengths:
	// x-y first gives x = 1 + 2.21 + 1.11 = 4.32, x-z first gives x = 1 + 1.1 + 2.21 = 4.31.
	// A lost update would leave x near 2.2.
	x := valueOf(ctx, t, ts, "x")
	assert.True(t, math.Abs(x-4.32) < 1e-9 || math.Abs(x-4.31) < 1e-9, "x = %v", x)

	for _, key := range []store.EdgeKey{store.NewEdgeKey("x", "y"), store.NewEdgeKey("x", "z")} {
		c, err := ts.GetConnection(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 1.0, c.Strength)
	}
}

type failingStore struct {
	*store.Store
}

func (f *failingStore) RunInTx(ctx context.Context, opts *store.TxOptions, fn func(tx store.Tx) error) error {
	return f.Store.RunInTx(ctx, opts, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx})
	})
}

type failingTx struct {
	store.Tx
}

func (t *failingTx) UpsertNetworkValue(context.Context, *store.NetworkValue) (*store.NetworkValue, error) {
	return nil, pkgerrors.New("disk full")
}

func TestConsistencyFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	_, ts := newTestService(ctx, t, "a", "b")
	svc := NewService(&failingStore{Store: ts}, Config{ValueScale: 4})

	_, err := svc.CreateConnection(ctx, "a", "b")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConsistencyFailure), err)

	_, err = ts.GetConnection(ctx, store.NewEdgeKey("a", "b"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = ts.GetNetworkValue(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestComputeNetworkValue(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(ctx, t, "a", "b")

	v, err := svc.ComputeNetworkValue(ctx, "a")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v.Value, 1e-9)

	_, err = svc.CreateConnection(ctx, "a", "b")
	require.NoError(t, err)
	v, err = svc.ComputeNetworkValue(ctx, "a")
	require.NoError(t, err)
	assert.InDelta(t, 1.11, v.Value, 1e-9)

	got, err := svc.GetNetworkValue(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, v.Value, got.Value)

	_, err = svc.ComputeNetworkValue(ctx, "ghost")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), err)
	_, err = svc.GetNetworkValue(ctx, "ghost")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), err)
}

func TestGetTopNetworkValues(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(ctx, t, "a", "b", "c", "d")

	_, err := svc.CreateConnection(ctx, "a", "b")
	require.NoError(t, err)
	_, err = svc.CreateConnection(ctx, "b", "c")
	require.NoError(t, err)
	_, err = svc.ComputeNetworkValue(ctx, "d")
	require.NoError(t, err)

	top, err := svc.GetTopNetworkValues(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, "b", top[0].UserID)
	assert.Equal(t, "b", top[0].Username)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Value, top[i].Value)
	}

	top, err = svc.GetTopNetworkValues(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	top, err = svc.GetTopNetworkValues(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, top, 4)
}

func TestListParticipantConnections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(ctx, t, "a", "b", "c")

	_, err := svc.CreateConnection(ctx, "a", "b")
	require.NoError(t, err)
	_, err = svc.CreateConnection(ctx, "c", "a")
	require.NoError(t, err)

	list, err := svc.ListParticipantConnections(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.ListParticipantConnections(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListParticipantConnections(ctx, "ghost")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), err)
}

func TestConnectionStrengthEstimate(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(ctx, t)
	for _, p := range []*store.Participant{
		{ID: "a", Username: "a", Industries: []string{"Fintech", "AI", "retail"}, Interests: []string{"chess"}},
		{ID: "b", Username: "b", Industries: []string{"ai"}, Interests: []string{"Chess", "golf"}},
		{ID: "c", Username: "c", Industries: []string{"fintech", "ai", "retail"}, Interests: []string{"chess"}},
	} {
		_, err := ts.UpsertParticipant(ctx, p)
		require.NoError(t, err)
	}
	_, err := svc.CreateConnection(ctx, "a", "b")
	require.NoError(t, err)
	_, err = svc.CreateConnection(ctx, "a", "c")
	require.NoError(t, err)

	score, err := svc.ConnectionStrengthEstimate(ctx, store.NewEdgeKey("b", "a"))
	require.NoError(t, err)
	// one shared industry, one shared interest, strength 0.1
	assert.InDelta(t, 0.3+0.2+0.05, score, 1e-9)

	score, err = svc.ConnectionStrengthEstimate(ctx, store.NewEdgeKey("a", "c"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	_, err = svc.ConnectionStrengthEstimate(ctx, store.NewEdgeKey("b", "c"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), err)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	_, err := ts.UpsertParticipant(ctx, &store.Participant{ID: "a", Username: "a", Location: "Oslo", Interests: []string{"ski"}})
	require.NoError(t, err)

	dir := NewDirectory(ts)
	exists, err := dir.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, exists)

	c, err := dir.GetProfileCompleteness(ctx, "a")
	require.NoError(t, err)
	assert.True(t, c.HasUsername)
	assert.True(t, c.HasLocation)
	assert.Equal(t, 0, c.IndustryCount)
	assert.Equal(t, 1, c.InterestCount)

	_, err = dir.GetProfileCompleteness(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err := dir.ListProfileCompleteness(ctx, []string{"a", "ghost"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
