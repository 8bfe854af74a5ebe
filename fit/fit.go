package fit

import (
	"fmt"

	"github.com/carbonfit/carbonfit/fit/optimize"
)

// FitOptions configure a point-estimation run.
type FitOptions struct {
	LowBound float64            // lower bound applied to every parameter (upper is unbounded)
	Avg      bool               // use the per-point normalized objective
	K        float64            // normalization constant for Avg (default 1)
	Settings *optimize.Settings // optional minimizer settings
}

// FitControlPoints point-estimates control-point values with the bounded
// minimizer. The initial guess broadcasts the steady-state production
// rate across all control points, plus one extra slot for the GP mean
// when the gp variant is active. The optimizer's result record is
// returned unmodified; non-convergence is surfaced in its Status, never
// retried here.
func (f *Fitter) FitControlPoints(opts FitOptions) (*optimize.Result, error) {
	kind := f.prod.Kind()
	if kind != KindLinearControl && kind != KindGPControl {
		return nil, fmt.Errorf("%w: control-point fit requires a control-point variant, active is %s",
			ErrInvalidModel, kind)
	}
	initial := make([]float64, f.prod.NumParams())
	for i := range initial {
		initial[i] = f.ssProd
	}
	return f.FitParams(initial, opts)
}

// FitParams runs the bounded minimizer from an explicit initial guess.
// The objective follows the active variant: the GP-regularized likelihood
// for gp control points, plain half chi-square otherwise, each with a
// per-point normalized flavor behind opts.Avg.
func (f *Fitter) FitParams(initial []float64, opts FitOptions) (*optimize.Result, error) {
	k := opts.K
	if k == 0 {
		k = 1
	}

	var obj optimize.Objective
	switch {
	case f.prod.Kind() == KindGPControl && opts.Avg:
		obj = func(x []float64) (float64, error) { return f.GPLikelihoodAvg(x, k) }
	case f.prod.Kind() == KindGPControl:
		obj = f.GPLikelihood
	case opts.Avg:
		obj = func(x []float64) (float64, error) { return f.LossChi2Avg(x, k) }
	default:
		obj = f.LossChi2
	}

	lower := make([]float64, len(initial))
	for i := range lower {
		lower[i] = opts.LowBound
	}
	return optimize.Minimize(obj, initial, lower, nil, opts.Settings)
}
