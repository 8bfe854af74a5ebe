package fit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLossChi2(t *testing.T) {
	// Simulated curve 1 + offset 10 = 11 against observed 10 with sigma
	// 2: each residual is -0.5, so chi2 = 4*0.25 and the loss is 0.5.
	f := stubFitter(t, &stubModel{ssProd: 1.5, curve: []float64{1, 1, 1, 1}})
	params := []float64{101, 1, 0.5, 1}

	loss, err := f.LossChi2(params)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, loss, 1e-12)
}

func TestLossChi2_Deterministic(t *testing.T) {
	f := stubFitter(t, &stubModel{ssProd: 1.5, curve: []float64{0.3, -1.2, 4.7, 0.01}})
	params := []float64{101, 1, 0.5, 1}

	a, err := f.LossChi2(params)
	require.NoError(t, err)
	b, err := f.LossChi2(params)
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical inputs must yield bit-identical loss")
}

func TestLossChi2Avg_Normalization(t *testing.T) {
	f := stubFitter(t, &stubModel{ssProd: 1.5, curve: []float64{1, 1, 1, 1}})
	params := []float64{101, 1, 0.5, 1}

	loss, err := f.LossChi2(params)
	require.NoError(t, err)

	n := float64(f.Series().Len() - 1)
	for _, k := range []float64{0.5, 1, 2, 10} {
		avg, err := f.LossChi2Avg(params, k)
		require.NoError(t, err)
		assert.InDelta(t, loss/(k*n), avg, 1e-15)
	}
}

func TestLogPrior(t *testing.T) {
	f := stubFitter(t, &stubModel{ssProd: 1.5})
	tests := []struct {
		name   string
		params []float64
		want   float64
	}{
		{"all positive", []float64{1, 2, 3}, 0},
		{"tiny positive", []float64{1e-300}, 0},
		{"contains zero", []float64{1, 0, 3}, math.Inf(-1)},
		{"contains negative", []float64{1, -2, 3}, math.Inf(-1)},
		{"single negative", []float64{-0.001}, math.Inf(-1)},
		{"longer vector", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.LogPrior(tt.params))
		})
	}
}

func TestLogLikelihoodAndPosterior(t *testing.T) {
	f := stubFitter(t, &stubModel{ssProd: 1.5, curve: []float64{1, 1, 1, 1}})
	params := []float64{101, 1, 0.5, 1}

	loss, err := f.LossChi2(params)
	require.NoError(t, err)
	ll, err := f.LogLikelihood(params)
	require.NoError(t, err)
	assert.Equal(t, -loss, ll)

	post, err := f.LogPosterior(params)
	require.NoError(t, err)
	assert.Equal(t, ll, post, "flat prior adds zero for positive parameters")

	// A prior violation dominates regardless of the data term.
	post, err = f.LogPosterior([]float64{101, -1, 0.5, 1})
	require.NoError(t, err)
	assert.True(t, math.IsInf(post, -1))
}

func TestGPLikelihood_RequiresGPVariant(t *testing.T) {
	f := stubFitter(t, &stubModel{ssProd: 1.5})
	_, err := f.GPLikelihood([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestGPLikelihood_AddsRegularizer(t *testing.T) {
	series, grids := flatSeries(t)
	f, err := NewFitter(&stubModel{ssProd: 1.5}, series, grids,
		ProductionConfig{UseControlPoints: true, Interp: "gp"}, 707)
	require.NoError(t, err)

	params := make([]float64, f.Production().NumParams())
	for i := range params {
		params[i] = 1.5
	}

	chi2, err := f.LossChi2(params)
	require.NoError(t, err)
	nll, err := f.Production().GP().NegLogMarginal(params[:len(params)-1], params[len(params)-1])
	require.NoError(t, err)

	got, err := f.GPLikelihood(params)
	require.NoError(t, err)
	assert.InDelta(t, chi2+nll, got, 1e-12)

	for _, k := range []float64{1, 2, 8} {
		avg, err := f.GPLikelihoodAvg(params, k)
		require.NoError(t, err)
		assert.InDelta(t, got/k, avg, 1e-12)
	}
}

func TestGPLikelihood_WrongParamCount(t *testing.T) {
	series, grids := flatSeries(t)
	f, err := NewFitter(&stubModel{ssProd: 1.5}, series, grids,
		ProductionConfig{UseControlPoints: true, Interp: "gp"}, 707)
	require.NoError(t, err)

	_, err = f.GPLikelihood([]float64{1, 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
