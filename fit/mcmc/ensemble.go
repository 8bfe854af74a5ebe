// Package mcmc implements the affine-invariant ensemble sampler
// (Goodman & Weare stretch move) used for posterior sampling. Runs are
// deterministic for a fixed seed.
package mcmc

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// LogProbFunc is the target log-density. Returning -Inf rejects the point
// naturally; a non-nil error aborts the whole run (it signals a bug, not
// a bad sample).
type LogProbFunc func(x []float64) (float64, error)

// stretchScale is the stretch-move scale parameter a; 2 is the standard
// choice.
const stretchScale = 2.0

// Sampler advances an ensemble of walkers with the stretch move. The
// chain accumulates across Run calls until Reset; the usual protocol is a
// burn-in Run, a Reset, then a production Run seeded from the burn-in's
// final positions.
type Sampler struct {
	nWalkers int
	nDim     int
	logProb  LogProbFunc
	rng      *rand.Rand

	chain    [][]float64
	chainLP  []float64
	accepted int
	proposed int
}

// New validates the ensemble geometry. The ensemble is split in halves
// for complementary updates, so at least four walkers are required, and
// affine invariance needs more walkers than dimensions.
func New(nWalkers, nDim int, logProb LogProbFunc, seed int64) (*Sampler, error) {
	if nDim < 1 {
		return nil, fmt.Errorf("mcmc: dimension must be >= 1, got %d", nDim)
	}
	if nWalkers < 4 || nWalkers <= nDim {
		return nil, fmt.Errorf("mcmc: need more than max(3, ndim=%d) walkers, got %d", nDim, nWalkers)
	}
	if logProb == nil {
		return nil, fmt.Errorf("mcmc: nil log-probability function")
	}
	return &Sampler{
		nWalkers: nWalkers,
		nDim:     nDim,
		logProb:  logProb,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

func (s *Sampler) NumWalkers() int { return s.nWalkers }
func (s *Sampler) NumDim() int     { return s.nDim }

// Run advances the ensemble by `steps` stretch-move sweeps starting from
// p0 (one position per walker) and returns the final positions. Every
// post-sweep position is appended to the chain.
func (s *Sampler) Run(p0 [][]float64, steps int) ([][]float64, error) {
	if len(p0) != s.nWalkers {
		return nil, fmt.Errorf("mcmc: got %d initial positions for %d walkers", len(p0), s.nWalkers)
	}
	pos := make([][]float64, s.nWalkers)
	lp := make([]float64, s.nWalkers)
	for i, p := range p0 {
		if len(p) != s.nDim {
			return nil, fmt.Errorf("mcmc: walker %d has dimension %d, want %d", i, len(p), s.nDim)
		}
		pos[i] = append([]float64(nil), p...)
		v, err := s.logProb(pos[i])
		if err != nil {
			return nil, fmt.Errorf("mcmc: log-probability failed for walker %d: %w", i, err)
		}
		lp[i] = v
	}

	half := s.nWalkers / 2
	prop := make([]float64, s.nDim)
	for step := 0; step < steps; step++ {
		// Update each half against the complementary half so that the
		// move stays a valid Markov transition.
		for _, split := range [][2]int{{0, half}, {half, s.nWalkers}} {
			lo, hi := split[0], split[1]
			clo, chi := half, s.nWalkers
			if lo == half {
				clo, chi = 0, half
			}
			for i := lo; i < hi; i++ {
				j := clo + s.rng.Intn(chi-clo)
				u := s.rng.Float64()
				z := (stretchScale - 1) * u
				z = (z + 1) * (z + 1) / stretchScale
				for d := 0; d < s.nDim; d++ {
					prop[d] = pos[j][d] + z*(pos[i][d]-pos[j][d])
				}
				lpProp, err := s.logProb(prop)
				if err != nil {
					return nil, fmt.Errorf("mcmc: log-probability failed at step %d: %w", step, err)
				}
				s.proposed++
				logQ := float64(s.nDim-1)*math.Log(z) + lpProp - lp[i]
				if math.Log(s.rng.Float64()) < logQ {
					copy(pos[i], prop)
					lp[i] = lpProp
					s.accepted++
				}
			}
		}
		for i := 0; i < s.nWalkers; i++ {
			s.chain = append(s.chain, append([]float64(nil), pos[i]...))
			s.chainLP = append(s.chainLP, lp[i])
		}
	}
	return pos, nil
}

// Reset discards the accumulated chain and acceptance counters. Used
// between the burn-in and production phases.
func (s *Sampler) Reset() {
	s.chain = nil
	s.chainLP = nil
	s.accepted = 0
	s.proposed = 0
}

// FlatChain returns the accumulated samples, one row per walker per
// sweep. The returned slice is shared; callers must not modify it.
func (s *Sampler) FlatChain() [][]float64 { return s.chain }

// FlatLogProb returns the log-density history matching FlatChain.
func (s *Sampler) FlatLogProb() []float64 { return s.chainLP }

// AcceptanceFraction is the fraction of accepted proposals since the last
// Reset.
func (s *Sampler) AcceptanceFraction() float64 {
	if s.proposed == 0 {
		return 0
	}
	return float64(s.accepted) / float64(s.proposed)
}

// Mean is the per-dimension mean of the flat chain.
func (s *Sampler) Mean() []float64 {
	return s.columnStat(func(col []float64) float64 { return stat.Mean(col, nil) })
}

// Std is the per-dimension sample standard deviation of the flat chain.
func (s *Sampler) Std() []float64 {
	return s.columnStat(func(col []float64) float64 { return stat.StdDev(col, nil) })
}

func (s *Sampler) columnStat(f func([]float64) float64) []float64 {
	if len(s.chain) == 0 {
		return nil
	}
	out := make([]float64, s.nDim)
	col := make([]float64, len(s.chain))
	for d := 0; d < s.nDim; d++ {
		for i, row := range s.chain {
			col[i] = row[d]
		}
		out[d] = f(col)
	}
	return out
}
