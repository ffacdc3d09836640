package propagation

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultEpsilon       = 1e-4
	DefaultMaxIterations = 50
	DefaultCeiling       = 1e6
)

// Options configures Converge.
type Options struct {
	// Epsilon is the L∞ delta below which iteration stops.
	Epsilon float64
	// MaxIterations caps the number of iterations.
	MaxIterations int
	// Ceiling is the upper clamp applied after every iteration.
	Ceiling float64
}

// Validate fills in defaults for unset fields.
func (o *Options) Validate() {
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Ceiling <= 0 {
		o.Ceiling = DefaultCeiling
	}
}

// Result is the outcome of Converge.
type Result struct {
	Values     map[string]float64
	Iterations int
	Converged  bool
	// MaxDelta is the L∞ delta of the last iteration.
	MaxDelta float64
	// Saturated counts nodes held at Ceiling by the clamp in the last iteration.
	// A run with saturated nodes is not reported as converged.
	Saturated int
}

// Converge runs synchronous fixed-point iteration v' = clamp(base + A·v) from v = base.
// It stops when the L∞ delta drops below Epsilon or after MaxIterations.
// Converged is false when it stopped on MaxIterations or with saturated nodes.
// Nodes and neighbour sums are visited in id order, so equal inputs give
// bit-identical results. ctx is checked between iterations; on cancellation
// the values of the last completed iteration are returned with ctx.Err().
func Converge(ctx context.Context, g *Graph, opts *Options) (*Result, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	o.Validate()

	sorted := g.compact()
	n := sorted.Len()
	cur := make([]float64, n)
	for i, b := range sorted.base {
		cur[i] = Clamp(b, o.Ceiling)
	}
	next := make([]float64, n)

	result := &Result{}
	if n == 0 {
		result.Values = map[string]float64{}
		result.Converged = true
		return result, nil
	}

	var err error
	for result.Iterations < o.MaxIterations {
		if err = ctx.Err(); err != nil {
			break
		}
		result.Saturated = 0
		for i := 0; i < n; i++ {
			v := sorted.base[i]
			for _, e := range sorted.adj[i] {
				v += e.strength * cur[e.to]
			}
			if v > o.Ceiling {
				result.Saturated++
			}
			next[i] = Clamp(v, o.Ceiling)
		}
		result.Iterations++
		result.MaxDelta = floats.Distance(next, cur, math.Inf(1))
		cur, next = next, cur
		if result.MaxDelta < o.Epsilon {
			result.Converged = result.Saturated == 0
			break
		}
	}

	result.Values = make(map[string]float64, n)
	for i, id := range sorted.ids {
		result.Values[id] = cur[i]
	}
	return result, err
}
