// Package fit couples a carbon-cycle box model to a Bayesian inference
// pipeline: it fits a time-dependent atmospheric production-rate signal
// (e.g. a Miyake event) to sparse, noisy d14C measurements.
//
// # Reading Guide
//
// Start with these three files to understand the pipeline:
//   - grid.go: time-grid construction (burn-in/annual/fine grids, alignment mask)
//   - production.go: the production-rate variants and their parameter schemas
//   - fitter.go: the forward simulation mapping parameters to a predicted curve
//
// likelihood.go builds the loss/prior/posterior surface on top of the
// forward simulation; fit.go and sampling.go drive the bounded optimizer
// and the ensemble sampler against it.
//
// # Architecture
//
// The fit package defines the pipeline and the BoxModel contract;
// collaborators live in sub-packages:
//   - fit/carbon/: reference linear N-box carbon-cycle model
//   - fit/gp/: squared-exponential Gaussian process interpolation
//   - fit/optimize/: bounded L-BFGS minimizer
//   - fit/mcmc/: affine-invariant ensemble sampler
//   - fit/dataset/: delimited-text observation loading
//
// Everything a likelihood evaluation touches (grids, steady state,
// observation data) is fixed at construction, so all production-function
// and likelihood calls are stateless and side-effect-free; batching them
// across an ensemble is a pure performance optimization, never a
// correctness concern.
package fit
