package fit

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/carbonfit/carbonfit/fit/mcmc"
)

// walkersPerDim fixes the ensemble size at five walkers per parameter.
const walkersPerDim = 5

// initJitter is the scale of the uniform perturbation spreading the
// walkers around the initial guess.
const initJitter = 1e-5

// SamplingConfig configures a two-phase ensemble-sampling run. Burn-in
// and production lengths are external configuration; the sampler applies
// no step-size tuning beyond what the stretch move provides.
type SamplingConfig struct {
	BurnIn      int   // burn-in sweeps, discarded
	Production  int   // production sweeps, retained as the chain
	LogLikeOnly bool  // target the bare log-likelihood instead of the full posterior
	Seed        int64 // RNG seed for walker init and proposals
}

// Sampling draws posterior samples over the active parameter vector.
// Walker count is 5x the dimensionality; each walker starts at
// initial + small uniform jitter. The burn-in chain is discarded via
// Reset, then the production run fills the returned sampler's flat chain.
func (f *Fitter) Sampling(initial []float64, cfg SamplingConfig) (*mcmc.Sampler, error) {
	if cfg.BurnIn < 1 || cfg.Production < 1 {
		return nil, fmt.Errorf("%w: burn-in and production lengths must be >= 1, got %d/%d",
			ErrInvalidGridConfig, cfg.BurnIn, cfg.Production)
	}
	nDim := len(initial)
	nWalkers := walkersPerDim * nDim

	var target mcmc.LogProbFunc
	if cfg.LogLikeOnly {
		target = f.LogLikelihood
	} else {
		target = f.LogPosterior
	}
	sampler, err := mcmc.New(nWalkers, nDim, target, cfg.Seed)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	p0 := make([][]float64, nWalkers)
	for i := range p0 {
		p0[i] = make([]float64, nDim)
		for d := range p0[i] {
			p0[i][d] = initial[d] + initJitter*rng.Float64()
		}
	}

	logrus.Infof("running burn-in (%d sweeps, %d walkers)...", cfg.BurnIn, nWalkers)
	pos, err := sampler.Run(p0, cfg.BurnIn)
	if err != nil {
		return nil, fmt.Errorf("burn-in phase: %w", err)
	}
	sampler.Reset()

	logrus.Infof("running production (%d sweeps)...", cfg.Production)
	if _, err := sampler.Run(pos, cfg.Production); err != nil {
		return nil, fmt.Errorf("production phase: %w", err)
	}
	return sampler, nil
}
