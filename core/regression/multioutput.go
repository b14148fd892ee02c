package regression

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MultiOutput fits one regressor per target column.
type MultiOutput struct {
	newModel Factory
	models   []Regressor
}

// NewMultiOutput creates a MultiOutput whose per-target models come from f.
func NewMultiOutput(f Factory) *MultiOutput {
	return &MultiOutput{newModel: f}
}

// Fit trains an independent model on each column of Y.
func (m *MultiOutput) Fit(X mat.Matrix, Y mat.Matrix) error {
	n, _ := X.Dims()
	rows, targets := Y.Dims()
	if rows != n {
		return fmt.Errorf("regression: %d target rows for %d samples", rows, n)
	}
	models := make([]Regressor, targets)
	for j := 0; j < targets; j++ {
		col := mat.Col(nil, j, Y)
		r := m.newModel()
		if err := r.Fit(X, col); err != nil {
			return fmt.Errorf("target %d: %w", j, err)
		}
		models[j] = r
	}
	m.models = models
	return nil
}

// Predict returns one estimate per target for the sample x.
func (m *MultiOutput) Predict(x []float64) ([]float64, error) {
	if len(m.models) == 0 {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(m.models))
	for j, r := range m.models {
		v, err := r.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", j, err)
		}
		out[j] = v
	}
	return out, nil
}
