package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// BeginTx starts a transaction. All graph mutations go through a Tx.
	BeginTx(ctx context.Context, opts *TxOptions) (Tx, error)

	// Participant model related methods.
	UpsertParticipant(ctx context.Context, upsert *Participant) (*Participant, error)
	ListParticipants(ctx context.Context, find *FindParticipant) ([]*Participant, error)

	// Connection model related methods.
	ListConnections(ctx context.Context, find *FindConnection) ([]*Connection, error)
	ListNeighbors(ctx context.Context, userID string) ([]*Neighbor, error)

	// NetworkValue model related methods.
	ListNetworkValues(ctx context.Context, find *FindNetworkValue) ([]*NetworkValue, error)
}

// Tx is a driver transaction. Reads observe the transaction's own writes.
type Tx interface {
	Commit() error
	Rollback() error

	// LockParticipants locks the given participant rows in ascending id order
	// and returns the ids that exist.
	LockParticipants(ctx context.Context, ids ...string) ([]string, error)
	ListParticipants(ctx context.Context, find *FindParticipant) ([]*Participant, error)

	ListConnections(ctx context.Context, find *FindConnection) ([]*Connection, error)
	ListNeighbors(ctx context.Context, userID string) ([]*Neighbor, error)
	// CreateConnection returns ErrConflict when the canonical pair already exists.
	CreateConnection(ctx context.Context, create *Connection) (*Connection, error)
	// UpdateConnectionStrength returns ErrNotFound when the pair does not exist.
	UpdateConnectionStrength(ctx context.Context, key EdgeKey, strength float64, updatedTs int64) (*Connection, error)
	// DeleteConnection returns ErrNotFound when the pair does not exist.
	DeleteConnection(ctx context.Context, key EdgeKey) error

	ListNetworkValues(ctx context.Context, find *FindNetworkValue) ([]*NetworkValue, error)
	UpsertNetworkValue(ctx context.Context, upsert *NetworkValue) (*NetworkValue, error)
	// UpsertNetworkValueIfUnchanged writes the value only if the stored row still
	// has CalculatedTs == *seenTs, or is still absent when seenTs is nil.
	// It reports whether the row was written.
	UpsertNetworkValueIfUnchanged(ctx context.Context, upsert *NetworkValue, seenTs *int64) (bool, error)
}
