package fit

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/carbonfit/carbonfit/fit/gp"
)

// ProductionFunc maps (time, parameter vector) to a scalar production
// rate. Implementations must be pure: no hidden state, no I/O, so that
// repeated and batched evaluation inside optimizers and samplers is safe.
type ProductionFunc func(t float64, params []float64) float64

// ProductionKind tags the active production-function variant. Exactly one
// variant is active per Production; they are mutually exclusive
// alternatives, not subclasses.
type ProductionKind int

const (
	KindCustom ProductionKind = iota
	KindMiyakeFixed
	KindMiyakeFlexible
	KindLinearControl
	KindGPControl
)

func (k ProductionKind) String() string {
	switch k {
	case KindCustom:
		return "custom"
	case KindMiyakeFixed:
		return "miyake-fixed-solar"
	case KindMiyakeFlexible:
		return "miyake-flexible-solar"
	case KindLinearControl:
		return "linear-control-points"
	case KindGPControl:
		return "gp-control-points"
	}
	return fmt.Sprintf("ProductionKind(%d)", int(k))
}

// Fixed-solar burst model constants: an 11-year Schwabe cycle at 18%
// relative amplitude, and the super-Gaussian width factor that makes the
// `area` parameter the integrated excess production.
const (
	solarPeriodYears   = 11.0
	solarRelAmplitude  = 0.18
	superGaussianWidth = 1.93516
)

// Defaults for the adaptive control-point spacing rule.
const (
	defaultDenseYears = 3.0
	defaultGapYears   = 5.0
)

// ProductionConfig selects one production-rate variant. Option precedence
// follows the configuration surface: `Production` picks the burst model,
// a non-nil `Custom` overrides it, `UseControlPoints` overrides both.
// When nothing matches, the fixed-solar burst model is used and a warning
// is logged so silent misconfiguration is avoided.
type ProductionConfig struct {
	Custom           ProductionFunc // caller-supplied function, used directly when non-nil
	Production       string         // "miyake" selects the solar-cycle burst model
	FitSolar         bool           // free solar period/amplitude parameters (burst model only)
	UseControlPoints bool           // interpolation over control points
	Interp           string         // "linear" (default) or "gp"
	DenseYears       float64        // dense-bracket spacing (default 3)
	GapYears         float64        // sparse spacing threshold (default 5)
}

// Production is the resolved production-rate function plus its auxiliary
// state. Resolution happens once at construction; Evaluate dispatches
// through a closure bound at that point, never by re-inspecting the
// configuration.
type Production struct {
	kind         ProductionKind
	eval         ProductionFunc
	controlTimes []float64
	interp       *gp.Interpolator
	ssProd       float64
}

// NewProduction selects exactly one production-function variant from cfg.
// Unrecognized identifiers are fatal (ErrInvalidModel); an empty
// configuration falls back to the fixed-solar burst model with a visible
// warning.
func NewProduction(cfg ProductionConfig, series *Series, grids *TimeGrids, ssProd float64) (*Production, error) {
	p := &Production{kind: -1, ssProd: ssProd}

	switch cfg.Production {
	case "":
	case "miyake":
		if cfg.FitSolar {
			p.kind = KindMiyakeFlexible
			p.eval = p.miyakeFlexibleSolar
		} else {
			p.kind = KindMiyakeFixed
			p.eval = p.miyakeFixedSolar
		}
	default:
		return nil, fmt.Errorf("%w: unknown production %q", ErrInvalidModel, cfg.Production)
	}

	if cfg.Custom != nil {
		p.kind = KindCustom
		p.eval = cfg.Custom
	}

	if cfg.UseControlPoints {
		interp := cfg.Interp
		if interp == "" {
			interp = "linear"
		}
		switch interp {
		case "linear":
			dense := cfg.DenseYears
			if dense == 0 {
				dense = defaultDenseYears
			}
			gap := cfg.GapYears
			if gap == 0 {
				gap = defaultGapYears
			}
			p.controlTimes = controlPointTimes(series.Time(), grids.End(), dense, gap)
			p.kind = KindLinearControl
			p.eval = p.interpLinear
		case "gp":
			p.controlTimes = grids.Annual()
			in, err := gp.New(p.controlTimes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
			}
			p.interp = in
			p.kind = KindGPControl
			p.eval = p.interpGP
		default:
			return nil, fmt.Errorf("%w: unknown interpolation %q", ErrInvalidModel, interp)
		}
	}

	if p.kind == -1 {
		logrus.Warnf("no matching production function, using default miyake production "+
			"with fixed solar cycle (%g yrs) and amplitude (%g)", solarPeriodYears, solarRelAmplitude)
		p.kind = KindMiyakeFixed
		p.eval = p.miyakeFixedSolar
	}
	return p, nil
}

// controlPointTimes implements the greedy single-pass spacing rule.
// Starting from two fixed points at (start-1, start), each observation
// time either densely brackets a rapid feature (gap in (0, 2] years, new
// point at time+dense) or extends a sparse run (gap >= gapYears, new point
// at the observation time). Points past the observation window are
// dropped. The rule is order-dependent on purpose; it must stay a literal
// single pass.
func controlPointTimes(obsTimes []float64, end, dense, gap float64) []float64 {
	start := obsTimes[0]
	cp := []float64{start - 1, start}
	for _, t := range obsTimes {
		d := t - cp[len(cp)-1]
		if d > 0 && d <= 2 {
			cp = append(cp, t+dense)
		} else if d >= gap {
			cp = append(cp, t)
		}
	}
	out := cp[:0]
	for _, t := range cp {
		if t <= end {
			out = append(out, t)
		}
	}
	return out
}

func (p *Production) Kind() ProductionKind { return p.kind }

// ControlTimes exposes the control-point locations of interpolation-based
// variants; nil for burst/custom variants.
func (p *Production) ControlTimes() []float64 { return p.controlTimes }

// GP is the interpolator behind the gp-control-points variant, nil
// otherwise.
func (p *Production) GP() *gp.Interpolator { return p.interp }

// NumParams is the expected parameter-vector length, or -1 when the
// variant does not constrain it (custom functions).
func (p *Production) NumParams() int {
	switch p.kind {
	case KindMiyakeFixed:
		return 4
	case KindMiyakeFlexible:
		return 6
	case KindLinearControl:
		return len(p.controlTimes)
	case KindGPControl:
		// Control-point values plus the trailing GP mean. The extra
		// slot stays specific to this variant.
		return len(p.controlTimes) + 1
	}
	return -1
}

// Evaluate computes the production rate at time t for the given parameter
// vector. Pure and deterministic.
func (p *Production) Evaluate(t float64, params []float64) float64 {
	return p.eval(t, params)
}

// Func returns the resolved production function for handing to a box
// model.
func (p *Production) Func() ProductionFunc { return p.eval }

// superGaussian is a flat-topped pulse of the given integrated area:
// height area/duration centered at start+duration/2, exponent 16.
func superGaussian(t, startTime, duration, area float64) float64 {
	middle := startTime + duration/2
	height := area / duration
	x := (t - middle) / (duration / superGaussianWidth)
	return height * math.Exp(-math.Pow(x, 16))
}

// miyakeFixedSolar: params = (startTime, duration, phase, area).
func (p *Production) miyakeFixedSolar(t float64, params []float64) float64 {
	height := superGaussian(t, params[0], params[1], params[3])
	return p.ssProd +
		solarRelAmplitude*p.ssProd*math.Sin(2*math.Pi/solarPeriodYears*t+params[2]) +
		height
}

// miyakeFlexibleSolar: params = (startTime, duration, phase, area, omega, amplitude).
func (p *Production) miyakeFlexibleSolar(t float64, params []float64) float64 {
	height := superGaussian(t, params[0], params[1], params[3])
	return p.ssProd + params[5]*p.ssProd*math.Sin(params[4]*t+params[2]) + height
}

// interpLinear: params are the control-point values; piecewise-linear
// interpolation clamped at the ends (np.interp semantics).
func (p *Production) interpLinear(t float64, params []float64) float64 {
	xs := p.controlTimes
	switch {
	case t <= xs[0]:
		return params[0]
	case t >= xs[len(xs)-1]:
		return params[len(xs)-1]
	}
	i := sort.SearchFloat64s(xs, t)
	if xs[i] == t {
		return params[i]
	}
	w := (t - xs[i-1]) / (xs[i] - xs[i-1])
	return params[i-1] + w*(params[i]-params[i-1])
}

// interpGP: params are the control-point values plus a trailing GP mean.
// A non-positive-definite kernel yields NaN, which the optimizer's line
// search and the sampler's accept step both reject.
func (p *Production) interpGP(t float64, params []float64) float64 {
	n := len(params)
	mu, err := p.interp.PredictOne(t, params[:n-1], params[n-1])
	if err != nil {
		return math.NaN()
	}
	return mu
}
