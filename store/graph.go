package store

import (
	"context"

	"github.com/pkg/errors"
)

// GraphSnapshot is a consistent view of the whole graph read in one transaction.
type GraphSnapshot struct {
	Participants []*Participant
	Connections  []*Connection
	// ValueTs maps each participant with a stored value to that value's CalculatedTs.
	ValueTs map[string]int64
}

// LoadGraph reads every participant, connection and value timestamp inside a single read-only transaction.
func (s *Store) LoadGraph(ctx context.Context) (*GraphSnapshot, error) {
	snapshot := &GraphSnapshot{}
	err := s.RunInTx(ctx, &TxOptions{ReadOnly: true}, func(tx Tx) error {
		participants, err := tx.ListParticipants(ctx, &FindParticipant{})
		if err != nil {
			return err
		}
		connections, err := tx.ListConnections(ctx, &FindConnection{})
		if err != nil {
			return err
		}
		values, err := tx.ListNetworkValues(ctx, &FindNetworkValue{})
		if err != nil {
			return err
		}
		snapshot.Participants = participants
		snapshot.Connections = connections
		snapshot.ValueTs = make(map[string]int64, len(values))
		for _, v := range values {
			snapshot.ValueTs[v.UserID] = v.CalculatedTs
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load graph")
	}
	return snapshot, nil
}
