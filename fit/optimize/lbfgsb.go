// Package optimize implements a bounded quasi-Newton minimizer: limited
// memory BFGS with gradient projection onto box constraints and numeric
// central-difference gradients. It is the local-minimizer collaborator
// behind control-point and burst-parameter point estimation.
package optimize

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

// Objective is the function being minimized. It must be pure; evaluation
// errors abort the run.
type Objective func(x []float64) (float64, error)

// Settings tune the minimizer. Zero values select the defaults.
type Settings struct {
	Tol      float64 // relative function-decrease tolerance (default 2.220446049250313e-09)
	GradTol  float64 // projected-gradient sup-norm tolerance (default 1e-5)
	MaxIter  int     // iteration cap (default 1000)
	Memory   int     // stored curvature pairs (default 10)
	MaxFEval int     // objective evaluation cap, numeric gradients included (default 1e6)
}

func (s *Settings) withDefaults() Settings {
	out := Settings{Tol: 2.220446049250313e-09, GradTol: 1e-5, MaxIter: 1000, Memory: 10, MaxFEval: 1000000}
	if s == nil {
		return out
	}
	if s.Tol > 0 {
		out.Tol = s.Tol
	}
	if s.GradTol > 0 {
		out.GradTol = s.GradTol
	}
	if s.MaxIter > 0 {
		out.MaxIter = s.MaxIter
	}
	if s.Memory > 0 {
		out.Memory = s.Memory
	}
	if s.MaxFEval > 0 {
		out.MaxFEval = s.MaxFEval
	}
	return out
}

// Result is the minimizer's result record, returned unmodified to
// callers: non-convergence is reported in Status, never retried here.
type Result struct {
	X          []float64
	F          float64
	Iterations int
	FuncEvals  int
	Converged  bool
	Status     string
}

const (
	armijoC1       = 1e-4
	backtrackRatio = 0.5
	maxBacktracks  = 40
)

type pair struct{ s, y []float64 }

// Minimize runs projected L-BFGS from x0 subject to lower <= x <= upper
// elementwise. Nil bounds mean unbounded on that side; individual entries
// may be +/-Inf. The initial point is clipped into the box.
func Minimize(obj Objective, x0, lower, upper []float64, settings *Settings) (*Result, error) {
	n := len(x0)
	if n == 0 {
		return nil, errors.New("optimize: empty initial point")
	}
	if lower == nil {
		lower = fill(n, math.Inf(-1))
	}
	if upper == nil {
		upper = fill(n, math.Inf(1))
	}
	if len(lower) != n || len(upper) != n {
		return nil, fmt.Errorf("optimize: bounds length %d/%d does not match dimension %d",
			len(lower), len(upper), n)
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return nil, fmt.Errorf("optimize: lower[%d]=%v exceeds upper[%d]=%v", i, lower[i], i, upper[i])
		}
	}
	cfg := settings.withDefaults()

	evals := 0
	var evalErr error
	scalar := func(x []float64) float64 {
		evals++
		v, err := obj(x)
		if err != nil && evalErr == nil {
			evalErr = err
		}
		if err != nil {
			return math.Inf(1)
		}
		return v
	}
	gradient := func(dst, x []float64) {
		fd.Gradient(dst, scalar, x, &fd.Settings{Formula: fd.Central})
	}

	x := clip(append([]float64(nil), x0...), lower, upper)
	f := scalar(x)
	if evalErr != nil {
		return nil, fmt.Errorf("optimize: objective failed at initial point: %w", evalErr)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("optimize: objective is %v at initial point", f)
	}
	g := make([]float64, n)
	gradient(g, x)
	if evalErr != nil {
		return nil, fmt.Errorf("optimize: gradient failed at initial point: %w", evalErr)
	}

	var history []pair
	res := &Result{}
	for iter := 0; iter < cfg.MaxIter; iter++ {
		res.Iterations = iter + 1

		pg := projectedGradNorm(x, g, lower, upper)
		if pg < cfg.GradTol {
			res.Converged = true
			res.Status = "projected gradient below tolerance"
			break
		}
		if evals >= cfg.MaxFEval {
			res.Status = "objective evaluation limit reached"
			break
		}

		d := direction(history, g)
		if floats.Dot(d, g) >= 0 {
			// Curvature information turned useless; fall back to
			// steepest descent.
			copy(d, g)
			floats.Scale(-1, d)
			history = history[:0]
		}

		xn, fn, ok := lineSearch(scalar, x, f, g, d, lower, upper)
		if evalErr != nil {
			return nil, fmt.Errorf("optimize: objective failed during line search: %w", evalErr)
		}
		if !ok {
			res.Status = "line search failed to find sufficient decrease"
			break
		}

		gn := make([]float64, n)
		gradient(gn, xn)
		if evalErr != nil {
			return nil, fmt.Errorf("optimize: gradient failed: %w", evalErr)
		}

		s := make([]float64, n)
		floats.SubTo(s, xn, x)
		y := make([]float64, n)
		floats.SubTo(y, gn, g)
		if floats.Dot(s, y) > 1e-10 {
			history = append(history, pair{s: s, y: y})
			if len(history) > cfg.Memory {
				history = history[1:]
			}
		}

		prevF := f
		x, f, g = xn, fn, gn

		if math.Abs(prevF-f) <= cfg.Tol*math.Max(1, math.Max(math.Abs(prevF), math.Abs(f))) {
			res.Converged = true
			res.Status = "function decrease below tolerance"
			break
		}
	}
	if res.Status == "" {
		res.Status = "iteration limit reached"
	}
	res.X = x
	res.F = f
	res.FuncEvals = evals
	return res, nil
}

// direction runs the standard two-loop recursion over the stored
// curvature pairs, scaled by the most recent pair's gamma.
func direction(history []pair, g []float64) []float64 {
	n := len(g)
	q := append([]float64(nil), g...)
	alphas := make([]float64, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		rho := 1 / floats.Dot(h.y, h.s)
		alphas[i] = rho * floats.Dot(h.s, q)
		floats.AddScaled(q, -alphas[i], h.y)
	}
	if len(history) > 0 {
		last := history[len(history)-1]
		gamma := floats.Dot(last.s, last.y) / floats.Dot(last.y, last.y)
		floats.Scale(gamma, q)
	}
	for i := range history {
		h := history[i]
		rho := 1 / floats.Dot(h.y, h.s)
		beta := rho * floats.Dot(h.y, q)
		floats.AddScaled(q, alphas[i]-beta, h.s)
	}
	d := make([]float64, n)
	floats.ScaleTo(d, -1, q)
	return d
}

// lineSearch backtracks along the projected path x(alpha) =
// clip(x + alpha d) until the Armijo condition holds on the actual step
// taken.
func lineSearch(scalar func([]float64) float64, x []float64, f float64, g, d, lower, upper []float64) ([]float64, float64, bool) {
	n := len(x)
	alpha := 1.0
	xn := make([]float64, n)
	step := make([]float64, n)
	for k := 0; k < maxBacktracks; k++ {
		floats.AddScaledTo(xn, x, alpha, d)
		clipInPlace(xn, lower, upper)
		floats.SubTo(step, xn, x)
		if floats.Norm(step, math.Inf(1)) == 0 {
			return nil, 0, false
		}
		fn := scalar(xn)
		if !math.IsNaN(fn) && fn <= f+armijoC1*floats.Dot(g, step) {
			return append([]float64(nil), xn...), fn, true
		}
		alpha *= backtrackRatio
	}
	return nil, 0, false
}

// projectedGradNorm is the sup-norm of the gradient with components
// pointing out of the feasible box zeroed at active bounds.
func projectedGradNorm(x, g, lower, upper []float64) float64 {
	var norm float64
	for i := range x {
		gi := g[i]
		if x[i] <= lower[i] && gi > 0 {
			gi = 0
		}
		if x[i] >= upper[i] && gi < 0 {
			gi = 0
		}
		norm = math.Max(norm, math.Abs(gi))
	}
	return norm
}

func clip(x, lower, upper []float64) []float64 {
	clipInPlace(x, lower, upper)
	return x
}

func clipInPlace(x, lower, upper []float64) {
	for i := range x {
		if x[i] < lower[i] {
			x[i] = lower[i]
		}
		if x[i] > upper[i] {
			x[i] = upper[i]
		}
	}
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
