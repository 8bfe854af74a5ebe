package fit

import "fmt"

// Series is an ordered observation series of (time, value, uncertainty)
// triples. It is immutable once constructed: NewSeries copies its inputs
// and accessors hand out the internal slices read-only.
type Series struct {
	time  []float64
	value []float64
	sigma []float64
}

// NewSeries validates and copies the three observation columns.
// Times must be non-decreasing and uncertainties strictly positive.
func NewSeries(time, value, sigma []float64) (*Series, error) {
	if len(time) != len(value) || len(time) != len(sigma) {
		return nil, fmt.Errorf("%w: time=%d value=%d sigma=%d",
			ErrDatasetLenMismatch, len(time), len(value), len(sigma))
	}
	if len(time) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d",
			ErrDatasetLenMismatch, len(time))
	}
	for i := 1; i < len(time); i++ {
		if time[i] < time[i-1] {
			return nil, fmt.Errorf("%w: time must be non-decreasing at index %d (%v < %v)",
				ErrInvalidGridConfig, i, time[i], time[i-1])
		}
	}
	for i, s := range sigma {
		if s <= 0 {
			return nil, fmt.Errorf("%w: uncertainty must be > 0 at index %d (%v)",
				ErrInvalidGridConfig, i, s)
		}
	}
	s := &Series{
		time:  append([]float64(nil), time...),
		value: append([]float64(nil), value...),
		sigma: append([]float64(nil), sigma...),
	}
	return s, nil
}

func (s *Series) Len() int { return len(s.time) }

// Start and End are the first and last observation times.
func (s *Series) Start() float64 { return s.time[0] }
func (s *Series) End() float64   { return s.time[len(s.time)-1] }

// Time, Value and Sigma expose the observation columns.
// The returned slices are shared; callers must not modify them.
func (s *Series) Time() []float64  { return s.time }
func (s *Series) Value() []float64 { return s.value }
func (s *Series) Sigma() []float64 { return s.sigma }
