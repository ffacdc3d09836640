package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/netvalue/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.GetDB().PingContext(ctx)
}

func (s *Store) BeginTx(ctx context.Context, opts *TxOptions) (Tx, error) {
	if opts == nil {
		opts = &TxOptions{}
	}
	return s.driver.BeginTx(ctx, opts)
}

// RunInTx runs fn in a transaction, committing when fn returns nil and rolling back otherwise.
func (s *Store) RunInTx(ctx context.Context, opts *TxOptions, fn func(tx Tx) error) error {
	tx, err := s.BeginTx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (s *Store) UpsertParticipant(ctx context.Context, upsert *Participant) (*Participant, error) {
	return s.driver.UpsertParticipant(ctx, upsert)
}

func (s *Store) ListParticipants(ctx context.Context, find *FindParticipant) ([]*Participant, error) {
	return s.driver.ListParticipants(ctx, find)
}

func (s *Store) GetParticipant(ctx context.Context, id string) (*Participant, error) {
	list, err := s.driver.ListParticipants(ctx, &FindParticipant{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) ParticipantExists(ctx context.Context, id string) (bool, error) {
	_, err := s.GetParticipant(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListConnections(ctx context.Context, find *FindConnection) ([]*Connection, error) {
	return s.driver.ListConnections(ctx, find)
}

func (s *Store) GetConnection(ctx context.Context, key EdgeKey) (*Connection, error) {
	key = key.Canonical()
	list, err := s.driver.ListConnections(ctx, &FindConnection{Key: &key})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) ListNeighbors(ctx context.Context, userID string) ([]*Neighbor, error) {
	return s.driver.ListNeighbors(ctx, userID)
}

func (s *Store) ListNetworkValues(ctx context.Context, find *FindNetworkValue) ([]*NetworkValue, error) {
	return s.driver.ListNetworkValues(ctx, find)
}

func (s *Store) GetNetworkValue(ctx context.Context, userID string) (*NetworkValue, error) {
	list, err := s.driver.ListNetworkValues(ctx, &FindNetworkValue{UserID: &userID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}
