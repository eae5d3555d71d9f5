// Package noise draws the integer noise added to locally differentially
// private releases.
package noise

// The sampling routines follow google-dp's laplace_noise.go:
// https://github.com/google/differential-privacy/tree/main/go/v2/noise
import (
	"fmt"
	"math"

	"github.com/google/differential-privacy/go/v2/rand"
)

// GeomDistribution samples the two-sided geometric (discrete Laplace)
// distribution with parameter λ = ε / Δ.
type GeomDistribution struct {
	lambda float64
}

// NewGeomDistribution returns a sampler for a query of the given L1
// sensitivity released under privacy budget epsilon.
func NewGeomDistribution(epsilon, sensitivity float64) (*GeomDistribution, error) {
	if !(epsilon > 0) || math.IsInf(epsilon, 0) {
		return nil, fmt.Errorf("epsilon must be a positive finite number, got %v", epsilon)
	}
	if !(sensitivity > 0) || math.IsInf(sensitivity, 0) {
		return nil, fmt.Errorf("sensitivity must be a positive finite number, got %v", sensitivity)
	}
	lambda := epsilon / sensitivity
	// Below 2^-59 the truncation at MaxInt64 is no longer negligible.
	if lambda < math.Exp2(-59) {
		return nil, fmt.Errorf("epsilon/sensitivity = %v is too small", lambda)
	}
	return &GeomDistribution{lambda: lambda}, nil
}

// Lambda returns ε / Δ.
func (geom *GeomDistribution) Lambda() float64 { return geom.lambda }

// geometric returns the number of Bernoulli trials up to and including the
// first success, with success probability p = 1 - e^-λ, truncated to
// MaxInt64.
func (geom *GeomDistribution) geometric() int64 {
	if rand.Uniform() > -1.0*math.Expm1(-1.0*geom.lambda*math.MaxInt64) {
		return math.MaxInt64
	}

	// Binary search over (left, right]. The midpoint splits the remaining
	// probability mass roughly in half rather than the interval.
	var left int64 = 0
	var right int64 = math.MaxInt64

	for left+1 < right {
		mid := left - int64(math.Floor((math.Log(0.5)+math.Log1p(math.Exp(geom.lambda*float64(left-right))))/geom.lambda))
		if mid <= left {
			mid = left + 1
		} else if mid >= right {
			mid = right - 1
		}

		// q = Pr[X <= mid | left < X <= right]
		q := math.Expm1(geom.lambda*float64(left-mid)) / math.Expm1(geom.lambda*float64(left-right))
		if rand.Uniform() <= q {
			right = mid
		} else {
			left = mid
		}
	}
	return right
}

// TwoSidedGeometric samples the geometric distribution shifted left by one
// and mirrored at 0.
func (geom *GeomDistribution) TwoSidedGeometric() int64 {
	var sample int64 = 0
	var sign int64 = -1
	// A zero drawn with a negative sign is redrawn, otherwise 0 would carry
	// twice its mass.
	for sample == 0 && sign == -1 {
		sample = geom.geometric() - 1
		sign = int64(rand.Sign())
	}
	return sample * sign
}

// AddNoise returns x perturbed by one two-sided geometric sample.
func (geom *GeomDistribution) AddNoise(x int64) int64 {
	return x + geom.TwoSidedGeometric()
}
