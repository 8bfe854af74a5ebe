// Package gp implements the squared-exponential Gaussian process used to
// interpolate production-rate control points and to penalize rough
// control-point histories.
package gp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// lengthScale of the squared-exponential kernel is fixed at one year.
	lengthScale = 1.0

	// jitter added to the kernel diagonal so the Cholesky factorization
	// stays numerically positive definite on dense annual grids.
	jitter = 1e-8

	log2Pi = 1.8378770664093453
)

// ErrNotPositiveDefinite reports a kernel matrix whose Cholesky
// factorization failed.
var ErrNotPositiveDefinite = errors.New("gp: kernel matrix is not positive definite")

// Interpolator is a zero-noise Gaussian process conditioned on values at a
// fixed set of control-point times. The control locations are fixed at
// construction; values and the scalar mean arrive with every call, so a
// fresh factorization happens per parameter vector and nothing is cached
// across proposals.
type Interpolator struct {
	times []float64
}

// New fixes the control-point locations. Times must be strictly
// increasing so the kernel matrix is non-singular.
func New(times []float64) (*Interpolator, error) {
	if len(times) == 0 {
		return nil, errors.New("gp: need at least one control-point time")
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("gp: control-point times must be strictly increasing at index %d", i)
		}
	}
	return &Interpolator{times: append([]float64(nil), times...)}, nil
}

// Len is the number of control points.
func (in *Interpolator) Len() int { return len(in.times) }

// Times exposes the control-point locations; callers must not modify.
func (in *Interpolator) Times() []float64 { return in.times }

func kernel(a, b float64) float64 {
	d := (a - b) / lengthScale
	return math.Exp(-0.5 * d * d)
}

func (in *Interpolator) factorize() (*mat.Cholesky, error) {
	n := len(in.times)
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := kernel(in.times[i], in.times[j])
			if i == j {
				v += jitter
			}
			k.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return nil, ErrNotPositiveDefinite
	}
	return &chol, nil
}

// solve returns alpha = K^-1 (values - mean) along with the factorization.
func (in *Interpolator) solve(values []float64, mean float64) (*mat.Cholesky, *mat.VecDense, error) {
	if len(values) != len(in.times) {
		return nil, nil, fmt.Errorf("gp: got %d values for %d control points", len(values), len(in.times))
	}
	chol, err := in.factorize()
	if err != nil {
		return nil, nil, err
	}
	r := mat.NewVecDense(len(values), nil)
	for i, v := range values {
		r.SetVec(i, v-mean)
	}
	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, r); err != nil {
		return nil, nil, fmt.Errorf("gp: solve failed: %w", err)
	}
	return chol, &alpha, nil
}

// NegLogMarginal is the negative log marginal likelihood of values under
// the GP with the given constant mean:
//
//	0.5 r' K^-1 r + 0.5 log|K| + n/2 log(2 pi),  r = values - mean
//
// It doubles as the smoothness regularizer in GP-based control-point fits.
func (in *Interpolator) NegLogMarginal(values []float64, mean float64) (float64, error) {
	chol, alpha, err := in.solve(values, mean)
	if err != nil {
		return 0, err
	}
	var quad float64
	for i, v := range values {
		quad += (v - mean) * alpha.AtVec(i)
	}
	n := float64(len(values))
	return 0.5*quad + 0.5*chol.LogDet() + 0.5*n*log2Pi, nil
}

// Predict evaluates the posterior mean at the query times:
//
//	mu(t) = mean + k(t, X) K^-1 (values - mean)
func (in *Interpolator) Predict(query, values []float64, mean float64) ([]float64, error) {
	_, alpha, err := in.solve(values, mean)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(query))
	for qi, t := range query {
		mu := mean
		for i, x := range in.times {
			mu += kernel(t, x) * alpha.AtVec(i)
		}
		out[qi] = mu
	}
	return out, nil
}

// PredictOne is Predict for a single query time.
func (in *Interpolator) PredictOne(t float64, values []float64, mean float64) (float64, error) {
	out, err := in.Predict([]float64{t}, values, mean)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}
