package fit

// BoxModel is the contract for the external carbon-cycle simulator that
// drives the fit. The core never looks inside the model's chemistry or
// integration scheme; it only needs equilibration, trajectory runs and
// conversion to the observable unit.
//
// All methods taking a ProductionFunc must treat it as pure and may call
// it at arbitrary times within the requested span.
type BoxModel interface {
	// Compile finalizes the model's internal structure. Must be called
	// once before any other method.
	Compile() error

	// EquilibrateProduction returns the constant production rate whose
	// long-term equilibrium matches the target observable baseline.
	EquilibrateProduction(target float64) (float64, error)

	// EquilibrateState returns the steady reservoir state sustained by a
	// constant production rate.
	EquilibrateState(prodRate float64) ([]float64, error)

	// Run integrates the model across the given times from state y0 and
	// returns the trajectory, one state row per grid time.
	Run(times []float64, prod ProductionFunc, params, y0 []float64) ([][]float64, error)

	// RunObservable integrates across consecutive intervals of out with
	// `oversample` internal samples per interval and returns the
	// per-interval observable values relative to the steady state.
	// The result has length len(out)-1.
	RunObservable(out []float64, oversample int, prod ProductionFunc, params, y0, steady []float64) ([]float64, error)

	// ToObservable converts a trajectory to the observable unit using
	// the steady state as reference.
	ToObservable(traj [][]float64, steady []float64) []float64
}
