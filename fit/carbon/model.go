// Package carbon provides a linear N-box carbon-cycle model implementing
// the fit.BoxModel contract: reservoirs exchanging carbon through
// first-order fluxes, radioactive decay of 14C, and a time-varying
// production rate injected into the atmosphere box. The observable is
// d14C per mil relative to the steady state.
package carbon

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/carbonfit/carbonfit/fit"
)

// Radiocarbon decay constant for a 5730-year half-life, per year.
var decayRate = math.Ln2 / 5730

// Physical constants converting a production rate in atoms/cm^2/s into a
// global 14C mass rate in kg/yr.
const (
	avogadro       = 6.02214076e23
	molarMass14C   = 14.003242e-3 // kg/mol
	earthSurfaceCm = 5.101e18     // cm^2
	secondsPerYear = 3.15576e7
)

// DefaultProductionScale is kg of 14C per year per unit production
// (atoms/cm^2/s).
var DefaultProductionScale = molarMass14C / avogadro * earthSurfaceCm * secondsPerYear

// rk4Substeps subdivides each requested grid interval in Run; burn-in
// grids can be several years per point.
const rk4Substeps = 4

// Box is a carbon reservoir. Reservoir sizes only enter through the
// first-order transfer rates flux/reservoir.
type Box struct {
	Name      string
	Reservoir float64 // Gt C
}

// Flux is a one-way carbon flow between named boxes, in Gt C per year.
type Flux struct {
	From string
	To   string
	Rate float64
}

// Model is a compiled linear system dy/dt = M y + scale*p(t)*e_atm where
// M combines transfer rates and radioactive decay. It is immutable after
// Compile, so concurrent runs off the same model are safe.
type Model struct {
	boxes      []Box
	fluxes     []Flux
	atmosphere string
	prodScale  float64

	transfer *mat.Dense
	atmIdx   int
	compiled bool
}

// New assembles an uncompiled model. prodScale <= 0 selects
// DefaultProductionScale.
func New(boxes []Box, fluxes []Flux, atmosphere string, prodScale float64) *Model {
	if prodScale <= 0 {
		prodScale = DefaultProductionScale
	}
	return &Model{
		boxes:      append([]Box(nil), boxes...),
		fluxes:     append([]Flux(nil), fluxes...),
		atmosphere: atmosphere,
		prodScale:  prodScale,
	}
}

// Default is a four-box troposphere/biosphere/surface-ocean/deep-ocean
// model with conventional gross exchange fluxes.
func Default() *Model {
	return New(
		[]Box{
			{Name: "atmosphere", Reservoir: 590},
			{Name: "biosphere", Reservoir: 2300},
			{Name: "surface ocean", Reservoir: 900},
			{Name: "deep ocean", Reservoir: 37100},
		},
		[]Flux{
			{From: "atmosphere", To: "surface ocean", Rate: 75},
			{From: "surface ocean", To: "atmosphere", Rate: 65},
			{From: "atmosphere", To: "biosphere", Rate: 60},
			{From: "biosphere", To: "atmosphere", Rate: 60},
			{From: "surface ocean", To: "deep ocean", Rate: 45},
			{From: "deep ocean", To: "surface ocean", Rate: 45},
		},
		"atmosphere", 0)
}

// Compile validates the configuration and builds the transfer matrix.
func (m *Model) Compile() error {
	if len(m.boxes) == 0 {
		return errors.New("carbon: model has no boxes")
	}
	idx := make(map[string]int, len(m.boxes))
	for i, b := range m.boxes {
		if b.Name == "" {
			return fmt.Errorf("carbon: box %d has no name", i)
		}
		if _, dup := idx[b.Name]; dup {
			return fmt.Errorf("carbon: duplicate box %q", b.Name)
		}
		if b.Reservoir <= 0 {
			return fmt.Errorf("carbon: box %q reservoir must be > 0, got %v", b.Name, b.Reservoir)
		}
		idx[b.Name] = i
	}
	atm, ok := idx[m.atmosphere]
	if !ok {
		return fmt.Errorf("carbon: atmosphere box %q not defined", m.atmosphere)
	}

	n := len(m.boxes)
	tr := mat.NewDense(n, n, nil)
	for _, f := range m.fluxes {
		from, ok := idx[f.From]
		if !ok {
			return fmt.Errorf("carbon: flux from unknown box %q", f.From)
		}
		to, ok := idx[f.To]
		if !ok {
			return fmt.Errorf("carbon: flux to unknown box %q", f.To)
		}
		if f.Rate < 0 {
			return fmt.Errorf("carbon: flux %q->%q rate must be >= 0, got %v", f.From, f.To, f.Rate)
		}
		k := f.Rate / m.boxes[from].Reservoir
		tr.Set(to, from, tr.At(to, from)+k)
		tr.Set(from, from, tr.At(from, from)-k)
	}
	for i := 0; i < n; i++ {
		tr.Set(i, i, tr.At(i, i)-decayRate)
	}

	m.transfer = tr
	m.atmIdx = atm
	m.compiled = true
	return nil
}

// unitSteady solves M u = -scale*e_atm: the steady state per unit
// production rate. The decay term makes M strictly diagonally dominant
// column-wise, so the system is non-singular.
func (m *Model) unitSteady() (*mat.VecDense, error) {
	n := len(m.boxes)
	b := mat.NewVecDense(n, nil)
	b.SetVec(m.atmIdx, -m.prodScale)
	var u mat.VecDense
	if err := u.SolveVec(m.transfer, b); err != nil {
		return nil, fmt.Errorf("carbon: steady-state solve: %w", err)
	}
	return &u, nil
}

// EquilibrateProduction returns the constant production rate whose steady
// atmosphere content equals target. Content scales linearly with
// production, so one linear solve suffices.
func (m *Model) EquilibrateProduction(target float64) (float64, error) {
	if !m.compiled {
		return 0, errors.New("carbon: model not compiled")
	}
	u, err := m.unitSteady()
	if err != nil {
		return 0, err
	}
	atm := u.AtVec(m.atmIdx)
	if atm <= 0 {
		return 0, fmt.Errorf("carbon: degenerate steady state (unit atmosphere content %v)", atm)
	}
	return target / atm, nil
}

// EquilibrateState returns the reservoir state sustained by a constant
// production rate.
func (m *Model) EquilibrateState(prodRate float64) ([]float64, error) {
	if !m.compiled {
		return nil, errors.New("carbon: model not compiled")
	}
	u, err := m.unitSteady()
	if err != nil {
		return nil, err
	}
	out := make([]float64, u.Len())
	for i := range out {
		out[i] = prodRate * u.AtVec(i)
	}
	return out, nil
}

// derivative writes M y + scale*p(t)*e_atm into dy.
func (m *Model) derivative(t float64, y, dy []float64, prod fit.ProductionFunc, params []float64) {
	n := len(y)
	for i := 0; i < n; i++ {
		var v float64
		for j := 0; j < n; j++ {
			v += m.transfer.At(i, j) * y[j]
		}
		dy[i] = v
	}
	dy[m.atmIdx] += m.prodScale * prod(t, params)
}

// rk4Step advances y in place by h from time t.
func (m *Model) rk4Step(t, h float64, y []float64, prod fit.ProductionFunc, params []float64, k1, k2, k3, k4, tmp []float64) {
	n := len(y)
	m.derivative(t, y, k1, prod, params)
	for i := 0; i < n; i++ {
		tmp[i] = y[i] + h/2*k1[i]
	}
	m.derivative(t+h/2, tmp, k2, prod, params)
	for i := 0; i < n; i++ {
		tmp[i] = y[i] + h/2*k2[i]
	}
	m.derivative(t+h/2, tmp, k3, prod, params)
	for i := 0; i < n; i++ {
		tmp[i] = y[i] + h*k3[i]
	}
	m.derivative(t+h, tmp, k4, prod, params)
	for i := 0; i < n; i++ {
		y[i] += h / 6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
	}
}

func (m *Model) checkRun(times []float64, y0 []float64) error {
	if !m.compiled {
		return errors.New("carbon: model not compiled")
	}
	if len(y0) != len(m.boxes) {
		return fmt.Errorf("carbon: initial state has %d entries for %d boxes", len(y0), len(m.boxes))
	}
	if len(times) < 2 {
		return fmt.Errorf("carbon: need at least 2 grid times, got %d", len(times))
	}
	return nil
}

// Run integrates across the given grid times, returning one state row per
// grid time (the first row is y0).
func (m *Model) Run(times []float64, prod fit.ProductionFunc, params, y0 []float64) ([][]float64, error) {
	if err := m.checkRun(times, y0); err != nil {
		return nil, err
	}
	n := len(m.boxes)
	y := append([]float64(nil), y0...)
	k1, k2, k3, k4, tmp := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)

	traj := make([][]float64, len(times))
	traj[0] = append([]float64(nil), y...)
	for i := 1; i < len(times); i++ {
		h := (times[i] - times[i-1]) / rk4Substeps
		t := times[i-1]
		for s := 0; s < rk4Substeps; s++ {
			m.rk4Step(t, h, y, prod, params, k1, k2, k3, k4, tmp)
			t += h
		}
		traj[i] = append([]float64(nil), y...)
	}
	return traj, nil
}

// RunObservable integrates each interval [out[i], out[i+1]) with
// `oversample` internal steps, averages the atmosphere content over the
// interval (tree rings integrate over the growth year) and converts to
// d14C per mil relative to the steady state. Returns len(out)-1 values.
func (m *Model) RunObservable(out []float64, oversample int, prod fit.ProductionFunc, params, y0, steady []float64) ([]float64, error) {
	if err := m.checkRun(out, y0); err != nil {
		return nil, err
	}
	if oversample < 1 {
		return nil, fmt.Errorf("carbon: oversample must be >= 1, got %d", oversample)
	}
	if len(steady) != len(m.boxes) {
		return nil, fmt.Errorf("carbon: steady state has %d entries for %d boxes", len(steady), len(m.boxes))
	}
	steadyAtm := steady[m.atmIdx]
	if steadyAtm == 0 {
		return nil, errors.New("carbon: steady atmosphere content is zero")
	}

	n := len(m.boxes)
	y := append([]float64(nil), y0...)
	k1, k2, k3, k4, tmp := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)

	curve := make([]float64, len(out)-1)
	for i := 0; i < len(out)-1; i++ {
		h := (out[i+1] - out[i]) / float64(oversample)
		t := out[i]
		sum := 0.0
		for s := 0; s < oversample; s++ {
			sum += y[m.atmIdx]
			m.rk4Step(t, h, y, prod, params, k1, k2, k3, k4, tmp)
			t += h
		}
		avg := sum / float64(oversample)
		curve[i] = (avg/steadyAtm - 1) * 1000
	}
	return curve, nil
}

// ToObservable converts a trajectory to d14C per mil relative to the
// steady state.
func (m *Model) ToObservable(traj [][]float64, steady []float64) []float64 {
	steadyAtm := steady[m.atmIdx]
	out := make([]float64, len(traj))
	for i, row := range traj {
		out[i] = (row[m.atmIdx]/steadyAtm - 1) * 1000
	}
	return out
}
