package regression

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoSamples is returned when fitting on an empty design matrix.
	ErrNoSamples = errors.New("regression: no samples")
	// ErrNotFitted is returned when predicting before a successful Fit.
	ErrNotFitted = errors.New("regression: model not fitted")
	// ErrNonFinite is returned when inputs or the fitted solution hold NaN
	// or infinite values.
	ErrNonFinite = errors.New("regression: non-finite value")
)

// Regressor maps a feature vector to a single target value.
type Regressor interface {
	// Fit trains on the rows of X with targets y.
	Fit(X mat.Matrix, y []float64) error
	// Predict returns the target estimate for one sample.
	Predict(x []float64) (float64, error)
}

// Factory creates an untrained Regressor.
type Factory func() Regressor
