package propagation

// DefaultValueScale is the base value of a participant with a complete profile.
const DefaultValueScale = 10.0

// Completeness lists the profile inputs that make up a base value.
type Completeness struct {
	HasUsername   bool
	HasLocation   bool
	IndustryCount int
	InterestCount int
}

// Base returns the base value for c. Each present input adds scale/4.
func Base(c Completeness, scale float64) float64 {
	part := scale / 4
	base := 0.0
	if c.HasUsername {
		base += part
	}
	if c.HasLocation {
		base += part
	}
	if c.IndustryCount > 0 {
		base += part
	}
	if c.InterestCount > 0 {
		base += part
	}
	return base
}

// Clamp bounds v to [0, ceiling]. NaN is treated as zero.
func Clamp(v, ceiling float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > ceiling:
		return ceiling
	default:
		return v
	}
}
