package test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/netvalue/store"
)

func TestConnectionStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	CreateTestingParticipant(ctx, t, ts, "u1")
	CreateTestingParticipant(ctx, t, ts, "u2")
	CreateTestingParticipant(ctx, t, ts, "u3")

	// Created in reverse order, stored canonically.
	err := ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		c, err := tx.CreateConnection(ctx, &store.Connection{UserID1: "u2", UserID2: "u1", Strength: 0.1, ConnectedTs: 1, UpdatedTs: 1})
		require.NoError(t, err)
		require.Equal(t, "u1", c.UserID1)
		require.Equal(t, "u2", c.UserID2)
		_, err = tx.CreateConnection(ctx, &store.Connection{UserID1: "u2", UserID2: "u3", Strength: 0.4, ConnectedTs: 1, UpdatedTs: 1})
		return err
	})
	require.NoError(t, err)

	c, err := ts.GetConnection(ctx, store.EdgeKey{UserID1: "u2", UserID2: "u1"})
	require.NoError(t, err)
	require.Equal(t, 0.1, c.Strength)
	require.Equal(t, store.NewEdgeKey("u1", "u2"), c.Key())

	neighbors, err := ts.ListNeighbors(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	require.Equal(t, "u1", neighbors[0].ID)
	require.Equal(t, "u3", neighbors[1].ID)
	require.Equal(t, 0.4, neighbors[1].Strength)

	userID := "u1"
	list, err := ts.ListConnections(ctx, &store.FindConnection{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, list, 1)

	err = ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		updated, err := tx.UpdateConnectionStrength(ctx, store.EdgeKey{UserID1: "u3", UserID2: "u2"}, 0.9, 2)
		require.NoError(t, err)
		require.Equal(t, 0.9, updated.Strength)
		require.Equal(t, int64(1), updated.ConnectedTs)
		return nil
	})
	require.NoError(t, err)

	err = ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		return tx.DeleteConnection(ctx, store.NewEdgeKey("u1", "u2"))
	})
	require.NoError(t, err)
	_, err = ts.GetConnection(ctx, store.NewEdgeKey("u1", "u2"))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConnectionStoreErrors(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	CreateTestingParticipant(ctx, t, ts, "u1")
	CreateTestingParticipant(ctx, t, ts, "u2")

	err := ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		_, err := tx.CreateConnection(ctx, &store.Connection{UserID1: "u1", UserID2: "u2", Strength: 0.1})
		return err
	})
	require.NoError(t, err)

	err = ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		_, err := tx.CreateConnection(ctx, &store.Connection{UserID1: "u2", UserID2: "u1", Strength: 0.1})
		return err
	})
	require.ErrorIs(t, err, store.ErrConflict)

	err = ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		_, err := tx.CreateConnection(ctx, &store.Connection{UserID1: "u1", UserID2: "u1", Strength: 0.1})
		return err
	})
	require.Error(t, err)

	err = ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		_, err := tx.UpdateConnectionStrength(ctx, store.NewEdgeKey("u1", "nobody"), 0.5, 1)
		return err
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	err = ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		return tx.DeleteConnection(ctx, store.NewEdgeKey("u1", "nobody"))
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunInTxRollback(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	CreateTestingParticipant(ctx, t, ts, "u1")
	CreateTestingParticipant(ctx, t, ts, "u2")

	boom := errors.New("boom")
	err := ts.RunInTx(ctx, nil, func(tx store.Tx) error {
		if _, err := tx.CreateConnection(ctx, &store.Connection{UserID1: "u1", UserID2: "u2", Strength: 0.1}); err != nil {
			return err
		}
		if _, err := tx.UpsertNetworkValue(ctx, &store.NetworkValue{UserID: "u1", Value: 3, CalculatedTs: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = ts.GetConnection(ctx, store.NewEdgeKey("u1", "u2"))
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = ts.GetNetworkValue(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound)
}
