package propagation

// Contribution is one neighbour's input to a local update.
type Contribution struct {
	Strength float64
	// Value is the neighbour's last stored value, or its base value when none is stored.
	Value float64
}

// LocalValue returns base + Σ strength·value clamped to [0, ceiling].
// Contributions are summed in the order given.
func LocalValue(base float64, contributions []Contribution, ceiling float64) float64 {
	v := base
	for _, c := range contributions {
		v += c.Strength * c.Value
	}
	return Clamp(v, ceiling)
}
