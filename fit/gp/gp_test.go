package gp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]float64{1, 2, 2})
	assert.Error(t, err)

	_, err = New([]float64{3, 2})
	assert.Error(t, err)

	in, err := New([]float64{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, in.Len())
}

func TestPredict_InterpolatesControlValues(t *testing.T) {
	in, err := New([]float64{0, 1, 2, 3})
	require.NoError(t, err)

	values := []float64{1, 2, 0, 3}
	got, err := in.Predict([]float64{0, 1, 2, 3}, values, 0.5)
	require.NoError(t, err)
	for i, v := range values {
		assert.InDelta(t, v, got[i], 1e-5, "posterior mean must pass through control point %d", i)
	}
}

func TestPredict_RevertsToMeanFarAway(t *testing.T) {
	in, err := New([]float64{0, 1, 2})
	require.NoError(t, err)

	mu, err := in.PredictOne(100, []float64{5, 6, 7}, 2.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, mu, 1e-8)
}

func TestPredict_ConstantValuesCollapseToMean(t *testing.T) {
	in, err := New([]float64{10, 11, 12, 13, 14})
	require.NoError(t, err)

	values := []float64{4, 4, 4, 4, 4}
	got, err := in.Predict([]float64{10.3, 12.5, 13.9}, values, 4)
	require.NoError(t, err)
	for _, v := range got {
		assert.InDelta(t, 4.0, v, 1e-9)
	}
}

func TestNegLogMarginal_SinglePoint(t *testing.T) {
	in, err := New([]float64{0})
	require.NoError(t, err)

	v, m := 1.7, 0.2
	got, err := in.NegLogMarginal([]float64{v}, m)
	require.NoError(t, err)

	k := 1.0 + jitter
	r := v - m
	want := 0.5*r*r/k + 0.5*math.Log(k) + 0.5*math.Log(2*math.Pi)
	assert.InDelta(t, want, got, 1e-10)
}

func TestNegLogMarginal_MeanShiftInvariance(t *testing.T) {
	in, err := New([]float64{0, 1, 2, 3, 4})
	require.NoError(t, err)

	values := []float64{1.2, 0.7, -0.3, 2.2, 1.1}
	a, err := in.NegLogMarginal(values, 0.5)
	require.NoError(t, err)

	shifted := make([]float64, len(values))
	for i, v := range values {
		shifted[i] = v + 10
	}
	b, err := in.NegLogMarginal(shifted, 10.5)
	require.NoError(t, err)
	assert.InDelta(t, a, b, 1e-8)
}

func TestNegLogMarginal_PenalizesRoughness(t *testing.T) {
	in, err := New([]float64{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)

	smooth, err := in.NegLogMarginal([]float64{1, 1.1, 1.2, 1.3, 1.4, 1.5}, 1.25)
	require.NoError(t, err)
	rough, err := in.NegLogMarginal([]float64{1, 5, -3, 6, -2, 4}, 1.8)
	require.NoError(t, err)
	assert.Greater(t, rough, smooth)
}

func TestValueLengthMismatch(t *testing.T) {
	in, err := New([]float64{0, 1})
	require.NoError(t, err)

	_, err = in.NegLogMarginal([]float64{1}, 0)
	assert.Error(t, err)

	_, err = in.Predict([]float64{0.5}, []float64{1, 2, 3}, 0)
	assert.Error(t, err)
}
