package store

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when the requested participant, connection or value does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a connection already exists for a canonical pair.
	ErrConflict = errors.New("conflict")
)

// TxOptions configures a transaction started through Store.BeginTx.
type TxOptions struct {
	// ReadOnly marks the transaction as a snapshot read.
	ReadOnly bool
}
