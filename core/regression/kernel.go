package regression

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GammaScale selects gamma from the data as 1/(n_features * Var(X)).
const GammaScale = 0

// RBF is the radial basis function kernel exp(-gamma * |a-b|^2).
type RBF struct {
	Gamma float64
}

// Eval computes the kernel between two samples.
func (k RBF) Eval(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-k.Gamma * d * d)
}

// scaleGamma returns 1/(d*Var(X)) over every element of X, or 1 when X
// has no spread.
func scaleGamma(X mat.Matrix) float64 {
	r, c := X.Dims()
	vals := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			vals = append(vals, X.At(i, j))
		}
	}
	_, v := stat.PopMeanVariance(vals, nil)
	if v == 0 || math.IsNaN(v) {
		return 1
	}
	return 1 / (float64(c) * v)
}
