package fit

import "errors"

var (
	// ErrInvalidModel reports an unrecognized production-function or
	// box-model identifier. Configuration errors are fatal: they are
	// returned at construction time, never deferred to evaluation.
	ErrInvalidModel = errors.New("invalid model")

	// ErrInvalidGridConfig reports malformed grid parameters
	// (resolution, fine step, oversampling, offset count).
	ErrInvalidGridConfig = errors.New("invalid grid configuration")

	// ErrShapeMismatch reports a simulated curve whose length does not
	// match the masked observation length. This indicates a
	// grid-construction bug; output is never truncated or padded to fit.
	ErrShapeMismatch = errors.New("simulated curve length mismatch")

	// ErrDatasetLenMismatch reports observation columns of unequal length.
	ErrDatasetLenMismatch = errors.New("time series columns have different lengths")
)
