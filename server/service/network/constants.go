package network

const (
	// InitialStrength is the strength of a newly created connection.
	InitialStrength = 0.1

	// DefaultTopLimit is the ranking size when no limit is given.
	DefaultTopLimit = 10
	// MaxTopLimit caps the ranking size.
	MaxTopLimit = 100

	// Weights of ConnectionStrengthEstimate.
	sharedIndustryWeight = 0.3
	sharedInterestWeight = 0.2
	strengthWeight       = 0.5

	opCreateConnection = "create_connection"
	opUpdateStrength   = "update_strength"
	opRemoveConnection = "remove_connection"
	opComputeValue     = "compute_value"
)
