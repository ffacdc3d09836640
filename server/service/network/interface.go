package network

import (
	"context"

	"github.com/hrygo/netvalue/store"
)

// Service manages connections and keeps the network values of their endpoints
// current. Every mutation and its local value update commit together.
type Service interface {
	// CreateConnection connects a and b with InitialStrength.
	// Argument order does not matter.
	CreateConnection(ctx context.Context, a, b string) (*store.Connection, error)

	// UpdateStrength sets the strength of an existing connection. strength must be in [0, 1].
	UpdateStrength(ctx context.Context, key store.EdgeKey, strength float64) (*store.Connection, error)

	// RemoveConnection deletes a connection. Recreating it starts again at InitialStrength.
	RemoveConnection(ctx context.Context, key store.EdgeKey) error

	GetConnection(ctx context.Context, key store.EdgeKey) (*store.Connection, error)

	// ListParticipantConnections returns every connection of a participant.
	ListParticipantConnections(ctx context.Context, userID string) ([]*store.Connection, error)

	// GetNetworkValue returns the stored value of a participant.
	GetNetworkValue(ctx context.Context, userID string) (*store.NetworkValue, error)

	// GetTopNetworkValues returns the highest values. limit defaults to DefaultTopLimit and is capped at MaxTopLimit.
	GetTopNetworkValues(ctx context.Context, limit int) ([]*RankedValue, error)

	// ComputeNetworkValue runs the local update for one participant and stores the result.
	ComputeNetworkValue(ctx context.Context, userID string) (*store.NetworkValue, error)

	// ConnectionStrengthEstimate scores a connection from shared profile attributes and its strength.
	ConnectionStrengthEstimate(ctx context.Context, key store.EdgeKey) (float64, error)
}

// RankedValue is an entry of the network value ranking.
type RankedValue struct {
	UserID       string
	Username     string
	Value        float64
	CalculatedTs int64
}

// Store is the interface for store operations needed by the network service.
type Store interface {
	RunInTx(ctx context.Context, opts *store.TxOptions, fn func(tx store.Tx) error) error
	ListParticipants(ctx context.Context, find *store.FindParticipant) ([]*store.Participant, error)
	GetConnection(ctx context.Context, key store.EdgeKey) (*store.Connection, error)
	ListConnections(ctx context.Context, find *store.FindConnection) ([]*store.Connection, error)
	GetNetworkValue(ctx context.Context, userID string) (*store.NetworkValue, error)
	ListNetworkValues(ctx context.Context, find *store.FindNetworkValue) ([]*store.NetworkValue, error)
}
