package fit

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gappySeries(t *testing.T) (*Series, *TimeGrids) {
	t.Helper()
	series, err := NewSeries(
		[]float64{100, 101, 110, 200},
		[]float64{0, 0, 0, 0},
		[]float64{1, 1, 1, 1},
	)
	require.NoError(t, err)
	grids, err := BuildTimeGrids(series, GridConfig{Resolution: 10, FineStep: 0.5, Oversample: 4, NumOffset: 2})
	require.NoError(t, err)
	return series, grids
}

func TestControlPointTimes_GreedySpacing(t *testing.T) {
	series, grids := gappySeries(t)
	p, err := NewProduction(ProductionConfig{UseControlPoints: true, Interp: "linear"}, series, grids, 1.0)
	require.NoError(t, err)

	// Greedy single-pass: (99, 100) seeded, 101 densely brackets at
	// 101+3, 110 and 200 extend sparse runs. Order dependence is part of
	// the contract.
	assert.Equal(t, []float64{99, 100, 104, 110, 200}, p.ControlTimes())
	assert.Equal(t, KindLinearControl, p.Kind())
	assert.Equal(t, 5, p.NumParams())
}

func TestControlPointTimes_DropsPointsBeyondEnd(t *testing.T) {
	series, err := NewSeries(
		[]float64{100, 101, 102},
		[]float64{0, 0, 0},
		[]float64{1, 1, 1},
	)
	require.NoError(t, err)
	grids, err := BuildTimeGrids(series, GridConfig{Resolution: 10, FineStep: 0.5, Oversample: 4, NumOffset: 2})
	require.NoError(t, err)

	p, err := NewProduction(ProductionConfig{UseControlPoints: true, Interp: "linear"}, series, grids, 1.0)
	require.NoError(t, err)
	// 101 generates 104 and 102... nothing: both beyond end=102 are dropped.
	for _, ct := range p.ControlTimes() {
		assert.LessOrEqual(t, ct, 102.0)
	}
	assert.Equal(t, []float64{99, 100}, p.ControlTimes())
}

func TestNewProduction_FallbackWarns(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	series, grids := gappySeries(t)
	p, err := NewProduction(ProductionConfig{}, series, grids, 2.0)
	require.NoError(t, err)
	assert.Equal(t, KindMiyakeFixed, p.Kind())

	require.NotNil(t, hook.LastEntry(), "fallback must emit a visible warning")
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "no matching production function")
}

func TestNewProduction_InvalidIdentifiers(t *testing.T) {
	series, grids := gappySeries(t)

	_, err := NewProduction(ProductionConfig{Production: "welf"}, series, grids, 1.0)
	assert.ErrorIs(t, err, ErrInvalidModel)

	_, err = NewProduction(ProductionConfig{UseControlPoints: true, Interp: "cubic"}, series, grids, 1.0)
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestNewProduction_CustomFunction(t *testing.T) {
	series, grids := gappySeries(t)
	p, err := NewProduction(ProductionConfig{
		Custom: func(t float64, params []float64) float64 { return 2 * t },
	}, series, grids, 1.0)
	require.NoError(t, err)
	assert.Equal(t, KindCustom, p.Kind())
	assert.Equal(t, 6.0, p.Evaluate(3, nil))
}

func TestMiyakeFixedSolar(t *testing.T) {
	series, grids := gappySeries(t)
	ss := 2.0
	p, err := NewProduction(ProductionConfig{Production: "miyake"}, series, grids, ss)
	require.NoError(t, err)
	require.Equal(t, KindMiyakeFixed, p.Kind())
	assert.Equal(t, 4, p.NumParams())

	params := []float64{775, 2, 0.5, 10} // start, duration, phase, area

	// Far from the burst the super-Gaussian underflows to zero and only
	// the solar cycle remains.
	tt := 100.0
	wantBaseline := ss + 0.18*ss*math.Sin(2*math.Pi/11*tt+0.5)
	assert.InDelta(t, wantBaseline, p.Evaluate(tt, params), 1e-12)

	// At the pulse center the excess equals area/duration.
	center := 776.0
	baseline := ss + 0.18*ss*math.Sin(2*math.Pi/11*center+0.5)
	assert.InDelta(t, baseline+10.0/2, p.Evaluate(center, params), 1e-9)
}

func TestMiyakeFlexibleSolar(t *testing.T) {
	series, grids := gappySeries(t)
	ss := 2.0
	p, err := NewProduction(ProductionConfig{Production: "miyake", FitSolar: true}, series, grids, ss)
	require.NoError(t, err)
	require.Equal(t, KindMiyakeFlexible, p.Kind())
	assert.Equal(t, 6, p.NumParams())

	// omega and amplitude come from the parameter vector.
	params := []float64{775, 2, 0, 10, math.Pi, 0.5}
	tt := 0.5 // sin(pi * 0.5) = 1, far from the burst
	assert.InDelta(t, ss+0.5*ss, p.Evaluate(tt, params), 1e-9)
}

func TestLinearControlInterpolation(t *testing.T) {
	series, grids := gappySeries(t)
	p, err := NewProduction(ProductionConfig{UseControlPoints: true, Interp: "linear"}, series, grids, 1.0)
	require.NoError(t, err)
	require.Equal(t, []float64{99, 100, 104, 110, 200}, p.ControlTimes())

	values := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, p.Evaluate(99, values))
	assert.Equal(t, 2.0, p.Evaluate(100, values))
	assert.InDelta(t, 2.5, p.Evaluate(102, values), 1e-12)
	assert.Equal(t, 3.0, p.Evaluate(104, values))
	// Clamped at both ends, np.interp-style.
	assert.Equal(t, 1.0, p.Evaluate(-50, values))
	assert.Equal(t, 5.0, p.Evaluate(300, values))
}

func TestGPControlPoints(t *testing.T) {
	series, grids := gappySeries(t)
	p, err := NewProduction(ProductionConfig{UseControlPoints: true, Interp: "gp"}, series, grids, 1.0)
	require.NoError(t, err)
	require.Equal(t, KindGPControl, p.Kind())

	// GP control points sit on the annual grid, with one extra slot for
	// the GP mean.
	assert.Equal(t, grids.Annual(), p.ControlTimes())
	assert.Equal(t, len(grids.Annual())+1, p.NumParams())
	require.NotNil(t, p.GP())

	// Values identical to the mean collapse the posterior onto the mean
	// everywhere.
	params := make([]float64, p.NumParams())
	for i := range params {
		params[i] = 3.0
	}
	assert.InDelta(t, 3.0, p.Evaluate(grids.Start()+0.37, params), 1e-9)
	assert.InDelta(t, 3.0, p.Evaluate(grids.Start()+42.0, params), 1e-9)
}
