package fit

import (
	"fmt"
	"math"
)

// Likelihood machinery. All functions here are pure and deterministic
// given the parameter vector: identical inputs yield bit-identical
// results whether called once by an optimizer or many times in parallel
// by an ensemble sampler. Observed arrays are truncated [:len-1]
// throughout to match the alignment-mask design.

// LossChi2 is the half chi-square data-fit term:
//
//	0.5 * sum(((observed[:-1] - simulated) / sigma[:-1])^2)
func (f *Fitter) LossChi2(params []float64) (float64, error) {
	sim, err := f.PredictObserved(params)
	if err != nil {
		return 0, err
	}
	obs, sigma := f.series.Value(), f.series.Sigma()
	var chi2 float64
	for i, s := range sim {
		r := (obs[i] - s) / sigma[i]
		chi2 += r * r
	}
	return 0.5 * chi2, nil
}

// LossChi2Avg normalizes LossChi2 per point: loss / (k*n) with
// n = len(series)-1. Comparable across datasets of different size.
func (f *Fitter) LossChi2Avg(params []float64, k float64) (float64, error) {
	loss, err := f.LossChi2(params)
	if err != nil {
		return 0, err
	}
	n := float64(f.series.Len() - 1)
	return loss / (k * n), nil
}

// LogPrior is the flat non-negative prior: -Inf if any parameter is <= 0,
// else 0. A hard constraint, not a soft penalty.
func (f *Fitter) LogPrior(params []float64) float64 {
	for _, p := range params {
		if p <= 0 {
			return math.Inf(-1)
		}
	}
	return 0
}

// LogLikelihood is -LossChi2.
func (f *Fitter) LogLikelihood(params []float64) (float64, error) {
	loss, err := f.LossChi2(params)
	if err != nil {
		return 0, err
	}
	return -loss, nil
}

// LogPosterior is LogPrior + LogLikelihood. A rejected prior short-circuits
// the simulation: the result is -Inf regardless of the data term.
func (f *Fitter) LogPosterior(params []float64) (float64, error) {
	lp := f.LogPrior(params)
	if math.IsInf(lp, -1) {
		return lp, nil
	}
	ll, err := f.LogLikelihood(params)
	if err != nil {
		return 0, err
	}
	return lp + ll, nil
}

// GPLikelihood adds the GP smoothness regularizer to the data-fit term:
//
//	LossChi2(params) + NegLogMarginal(values, mean)
//
// where params = values ++ [mean]. Only valid when the gp-control-points
// variant is active.
func (f *Fitter) GPLikelihood(params []float64) (float64, error) {
	nll, err := f.gpPenalty(params)
	if err != nil {
		return 0, err
	}
	chi2, err := f.LossChi2(params)
	if err != nil {
		return 0, err
	}
	return chi2 + nll, nil
}

// GPLikelihoodAvg is (LossChi2 + NegLogMarginal) / k.
func (f *Fitter) GPLikelihoodAvg(params []float64, k float64) (float64, error) {
	v, err := f.GPLikelihood(params)
	if err != nil {
		return 0, err
	}
	return v / k, nil
}

func (f *Fitter) gpPenalty(params []float64) (float64, error) {
	if f.prod.Kind() != KindGPControl {
		return 0, fmt.Errorf("%w: gp likelihood requires the gp-control-points variant, active is %s",
			ErrInvalidModel, f.prod.Kind())
	}
	n := len(params)
	if n != f.prod.NumParams() {
		return 0, fmt.Errorf("%w: got %d parameters, gp variant expects %d",
			ErrShapeMismatch, n, f.prod.NumParams())
	}
	return f.prod.GP().NegLogMarginal(params[:n-1], params[n-1])
}
