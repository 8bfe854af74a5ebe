package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// burnInYears is the length of the pre-observation window used to relax
// the box model into a self-consistent state.
const burnInYears = 1000.0

// GridConfig groups the grid-construction parameters for BuildTimeGrids.
type GridConfig struct {
	Resolution int     // point count of the burn-in grid (must be >= 2)
	FineStep   float64 // step of the diagnostic fine grid (must be > 0)
	Oversample int     // internal samples per annual interval (must be >= 1)
	NumOffset  int     // leading observations averaged into the baseline offset
}

// DefaultGridConfig mirrors the conventional fitting setup: a 1000-point
// burn-in grid, a 0.05-year fine grid, 1000x oversampling and a 4-point
// baseline offset.
func DefaultGridConfig() GridConfig {
	return GridConfig{Resolution: 1000, FineStep: 0.05, Oversample: 1000, NumOffset: 4}
}

// TimeGrids holds every simulation/observation grid derived from an
// observation series. All fields are fixed at construction; accessors
// hand out the internal slices read-only.
type TimeGrids struct {
	start      float64
	end        float64
	burnIn     []float64
	annual     []float64
	fine       []float64
	mask       []bool
	oversample int
	offset     float64
}

// BuildTimeGrids derives all grids deterministically from the series:
//
//   - burn-in grid: Resolution points spanning [start-1000, start]
//   - annual grid: unit-step grid spanning [start, end] inclusive
//   - alignment mask: marks annual points coinciding with observation
//     times, truncated to exclude the final annual entry
//   - fine grid: FineStep-step grid over [start, end), diagnostics only
//   - offset: mean of the first NumOffset observed values
//
// Invalid configuration is a fatal error (ErrInvalidGridConfig); there is
// no silent defaulting.
func BuildTimeGrids(series *Series, cfg GridConfig) (*TimeGrids, error) {
	if cfg.Resolution < 2 {
		return nil, fmt.Errorf("%w: resolution must be >= 2, got %d", ErrInvalidGridConfig, cfg.Resolution)
	}
	if cfg.FineStep <= 0 {
		return nil, fmt.Errorf("%w: fine-grid step must be > 0, got %v", ErrInvalidGridConfig, cfg.FineStep)
	}
	if cfg.Oversample < 1 {
		return nil, fmt.Errorf("%w: oversample must be >= 1, got %d", ErrInvalidGridConfig, cfg.Oversample)
	}
	if cfg.NumOffset < 1 || cfg.NumOffset > series.Len() {
		return nil, fmt.Errorf("%w: offset count must be in [1, %d], got %d",
			ErrInvalidGridConfig, series.Len(), cfg.NumOffset)
	}

	start, end := series.Start(), series.End()

	burnIn := make([]float64, cfg.Resolution)
	for i := range burnIn {
		burnIn[i] = start - burnInYears + burnInYears*float64(i)/float64(cfg.Resolution-1)
	}

	// Unit-step grid over [start, end+1), i.e. start..end inclusive for
	// integer-spanned windows.
	n := int(math.Floor(end-start)) + 1
	annual := make([]float64, n)
	for i := range annual {
		annual[i] = start + float64(i)
	}

	observed := make(map[float64]bool, series.Len())
	for _, t := range series.Time() {
		observed[t] = true
	}
	// The final annual entry is always excluded from the mask; callers
	// truncate raw observation arrays the same way ([:len-1]) when
	// comparing against mask-filtered simulator output.
	mask := make([]bool, len(annual)-1)
	for i := range mask {
		mask[i] = observed[annual[i]]
	}

	var fine []float64
	for i := 0; ; i++ {
		t := start + float64(i)*cfg.FineStep
		if t >= end {
			break
		}
		fine = append(fine, t)
	}

	return &TimeGrids{
		start:      start,
		end:        end,
		burnIn:     burnIn,
		annual:     annual,
		fine:       fine,
		mask:       mask,
		oversample: cfg.Oversample,
		offset:     stat.Mean(series.Value()[:cfg.NumOffset], nil),
	}, nil
}

func (g *TimeGrids) Start() float64 { return g.start }
func (g *TimeGrids) End() float64   { return g.end }

// BurnIn is the pre-observation equilibration grid.
func (g *TimeGrids) BurnIn() []float64 { return g.burnIn }

// Annual is the unit-step simulation grid spanning the observation window.
func (g *TimeGrids) Annual() []float64 { return g.annual }

// Fine is the dense diagnostic grid; it never participates in fitting.
func (g *TimeGrids) Fine() []float64 { return g.fine }

// Mask marks which annual-grid points coincide with observation times.
// Its length is len(Annual())-1.
func (g *TimeGrids) Mask() []bool { return g.mask }

func (g *TimeGrids) Oversample() int { return g.oversample }

// Offset is the baseline correction added to every simulated curve.
func (g *TimeGrids) Offset() float64 { return g.offset }
