package noise

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeomDistribution(t *testing.T) {
	geom, err := NewGeomDistribution(1.0, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, geom.Lambda())

	for _, tc := range []struct{ eps, sens float64 }{
		{0, 1}, {-1, 1}, {1, 0}, {math.Inf(1), 1}, {math.NaN(), 1}, {1e-30, 1},
	} {
		_, err := NewGeomDistribution(tc.eps, tc.sens)
		assert.Error(t, err, "eps=%v sens=%v", tc.eps, tc.sens)
	}
}

func TestGeometric_Positive(t *testing.T) {
	geom, err := NewGeomDistribution(1.0, 1.0)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		assert.GreaterOrEqual(t, geom.geometric(), int64(1))
	}
}

func TestTwoSidedGeometric_Moments(t *testing.T) {
	// Var of the two-sided geometric is 2e^-λ / (1-e^-λ)^2.
	lambda := 1.0
	geom, err := NewGeomDistribution(lambda, 1.0)
	require.NoError(t, err)

	const n = 20000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		x := float64(geom.TwoSidedGeometric())
		sum += x
		sumSq += x * x
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	q := math.Exp(-lambda)
	want := 2 * q / ((1 - q) * (1 - q))
	assert.InDelta(t, 0, mean, 0.1)
	assert.InDelta(t, want, variance, want*0.15)
}

func TestAddNoise_LargeBudgetIsNearExact(t *testing.T) {
	geom, err := NewGeomDistribution(50, 1)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.Equal(t, int64(42), geom.AddNoise(42))
	}
}
