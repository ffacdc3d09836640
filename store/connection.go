package store

import (
	"strings"

	"github.com/pkg/errors"
)

// EdgeKeySeparator joins the two participant ids of an EdgeKey in its textual form.
const EdgeKeySeparator = "~"

// EdgeKey identifies a connection by its canonical pair, UserID1 < UserID2.
type EdgeKey struct {
	UserID1 string
	UserID2 string
}

// NewEdgeKey returns the canonical key for the unordered pair {a, b}.
func NewEdgeKey(a, b string) EdgeKey {
	if b < a {
		a, b = b, a
	}
	return EdgeKey{UserID1: a, UserID2: b}
}

// ParseEdgeKey parses the "A~B" form. The result is canonical regardless of the input order.
func ParseEdgeKey(s string) (EdgeKey, error) {
	a, b, ok := strings.Cut(s, EdgeKeySeparator)
	if !ok || a == "" || b == "" || strings.Contains(b, EdgeKeySeparator) {
		return EdgeKey{}, errors.Errorf("invalid edge key %q", s)
	}
	return NewEdgeKey(a, b), nil
}

func (k EdgeKey) String() string {
	return k.UserID1 + EdgeKeySeparator + k.UserID2
}

func (k EdgeKey) IsSelfLoop() bool {
	return k.UserID1 == k.UserID2
}

// Canonical returns the key with its ids in canonical order.
func (k EdgeKey) Canonical() EdgeKey {
	return NewEdgeKey(k.UserID1, k.UserID2)
}

// Connection is an undirected weighted edge between two participants.
type Connection struct {
	UserID1     string
	UserID2     string
	Strength    float64
	ConnectedTs int64
	UpdatedTs   int64
}

func (c *Connection) Key() EdgeKey {
	return EdgeKey{UserID1: c.UserID1, UserID2: c.UserID2}
}

type FindConnection struct {
	Key *EdgeKey
	// UserID matches connections with the participant on either side.
	UserID *string

	Limit *int
}

// Neighbor is the far endpoint of a connection as seen from one participant.
type Neighbor struct {
	ID       string
	Strength float64
}
