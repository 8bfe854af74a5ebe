package fit

import "fmt"

// Fitter couples an observation series, its derived time grids and a
// resolved production function to a box model. Everything is fixed at
// construction — the steady state is computed once and treated as a
// constant for the fitter's lifetime — so every prediction and likelihood
// method is a pure function of its parameter vector. That makes
// single-call (optimization) and many-parallel-call (ensemble sampling)
// use interchangeable.
type Fitter struct {
	model   BoxModel
	series  *Series
	grids   *TimeGrids
	prod    *Production
	ssProd  float64
	ssState []float64
}

// NewFitter compiles the box model, equilibrates it against the target
// baseline and resolves the production-function variant. Configuration
// errors surface here, never at evaluation time.
func NewFitter(model BoxModel, series *Series, grids *TimeGrids, cfg ProductionConfig, target float64) (*Fitter, error) {
	if err := model.Compile(); err != nil {
		return nil, fmt.Errorf("compiling box model: %w", err)
	}
	ssProd, err := model.EquilibrateProduction(target)
	if err != nil {
		return nil, fmt.Errorf("equilibrating production for target %v: %w", target, err)
	}
	ssState, err := model.EquilibrateState(ssProd)
	if err != nil {
		return nil, fmt.Errorf("equilibrating state: %w", err)
	}
	prod, err := NewProduction(cfg, series, grids, ssProd)
	if err != nil {
		return nil, err
	}
	return &Fitter{
		model:   model,
		series:  series,
		grids:   grids,
		prod:    prod,
		ssProd:  ssProd,
		ssState: ssState,
	}, nil
}

// Series, Grids and Production expose the fitter's immutable context.
func (f *Fitter) Series() *Series         { return f.series }
func (f *Fitter) Grids() *TimeGrids       { return f.grids }
func (f *Fitter) Production() *Production { return f.prod }

// SteadyStateProduction is the equilibrium production rate matching the
// target baseline.
func (f *Fitter) SteadyStateProduction() float64 { return f.ssProd }

// PredictObserved maps a parameter vector to the predicted observable
// curve aligned with the observation times:
//
//  1. run the box model across the burn-in grid from the steady state and
//     take the final state as the settled initial condition,
//  2. run across the annual grid with oversampling and convert to the
//     observable unit,
//  3. select the entries coinciding with real observation times via the
//     alignment mask,
//  4. add the baseline offset.
//
// The result always has length len(series)-1; anything else is a
// grid-construction bug reported as ErrShapeMismatch.
func (f *Fitter) PredictObserved(params []float64) ([]float64, error) {
	settled, err := f.settle(params)
	if err != nil {
		return nil, err
	}
	curve, err := f.model.RunObservable(f.grids.Annual(), f.grids.Oversample(),
		f.prod.Func(), params, settled, f.ssState)
	if err != nil {
		return nil, fmt.Errorf("observable run: %w", err)
	}
	mask := f.grids.Mask()
	if len(curve) != len(mask) {
		return nil, fmt.Errorf("%w: observable run returned %d values for %d mask entries",
			ErrShapeMismatch, len(curve), len(mask))
	}
	out := make([]float64, 0, f.series.Len()-1)
	for i, keep := range mask {
		if keep {
			out = append(out, curve[i]+f.grids.Offset())
		}
	}
	if len(out) != f.series.Len()-1 {
		return nil, fmt.Errorf("%w: %d mask-selected values for %d observations",
			ErrShapeMismatch, len(out), f.series.Len())
	}
	return out, nil
}

// PredictFine runs the same pipeline on the fine diagnostic grid. The
// result is for visualization only and never enters a likelihood.
func (f *Fitter) PredictFine(params []float64) ([]float64, error) {
	settled, err := f.settle(params)
	if err != nil {
		return nil, err
	}
	traj, err := f.model.Run(f.grids.Fine(), f.prod.Func(), params, settled)
	if err != nil {
		return nil, fmt.Errorf("fine-grid run: %w", err)
	}
	curve := f.model.ToObservable(traj, f.ssState)
	out := make([]float64, len(curve))
	for i, v := range curve {
		out[i] = v + f.grids.Offset()
	}
	return out, nil
}

// settle equilibrates across the burn-in grid and returns the final state.
func (f *Fitter) settle(params []float64) ([]float64, error) {
	traj, err := f.model.Run(f.grids.BurnIn(), f.prod.Func(), params, f.ssState)
	if err != nil {
		return nil, fmt.Errorf("burn-in run: %w", err)
	}
	if len(traj) == 0 {
		return nil, fmt.Errorf("%w: burn-in run returned empty trajectory", ErrShapeMismatch)
	}
	return traj[len(traj)-1], nil
}
