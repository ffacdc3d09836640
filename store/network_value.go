package store

// NetworkValue is the derived value of a participant.
// CalculatedTs is in unix nanoseconds.
type NetworkValue struct {
	UserID       string
	Value        float64
	CalculatedTs int64
}

type FindNetworkValue struct {
	UserID  *string
	UserIDs []string

	// Limit applies to the value-descending order used for rankings.
	Limit *int
}
