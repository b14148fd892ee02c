package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// KernelRidge is an RBF kernel ridge regressor. Targets are centred before
// solving so predictions far from the training data revert to the mean.
type KernelRidge struct {
	// Gamma is the RBF width; GammaScale derives it from the data.
	Gamma float64
	// Alpha is the ridge penalty added to the kernel diagonal. Must be > 0.
	Alpha float64

	kernel RBF
	train  *mat.Dense
	dual   *mat.VecDense
	offset float64
}

// NewKernelRidge returns a Factory producing KernelRidge models with the
// given hyperparameters.
func NewKernelRidge(gamma, alpha float64) Factory {
	return func() Regressor {
		return &KernelRidge{Gamma: gamma, Alpha: alpha}
	}
}

// Fit solves (K + alpha*I) a = y - mean(y) with a Cholesky factorization.
func (m *KernelRidge) Fit(X mat.Matrix, y []float64) error {
	n, _ := X.Dims()
	if n == 0 {
		return ErrNoSamples
	}
	if len(y) != n {
		return fmt.Errorf("regression: %d targets for %d samples", len(y), n)
	}
	if m.Alpha <= 0 {
		return fmt.Errorf("regression: alpha must be positive, got %v", m.Alpha)
	}
	if err := checkFinite(X, y); err != nil {
		return err
	}
	gamma := m.Gamma
	if gamma == GammaScale {
		gamma = scaleGamma(X)
	}
	train := mat.DenseCopyOf(X)
	kernel := RBF{Gamma: gamma}

	gram := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		ri := train.RawRowView(i)
		for j := i; j < n; j++ {
			v := kernel.Eval(ri, train.RawRowView(j))
			if i == j {
				v += m.Alpha
			}
			gram.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return fmt.Errorf("regression: kernel matrix is not positive definite")
	}

	offset := stat.Mean(y, nil)
	centred := make([]float64, n)
	for i, v := range y {
		centred[i] = v - offset
	}
	dual := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(dual, mat.NewVecDense(n, centred)); err != nil {
		return fmt.Errorf("regression: solve: %w", err)
	}
	if !allFinite(dual.RawVector().Data) {
		return fmt.Errorf("dual coefficients: %w", ErrNonFinite)
	}

	m.kernel = kernel
	m.train = train
	m.dual = dual
	m.offset = offset
	return nil
}

// Predict evaluates the fitted model at x.
func (m *KernelRidge) Predict(x []float64) (float64, error) {
	if m.train == nil {
		return 0, ErrNotFitted
	}
	n, d := m.train.Dims()
	if len(x) != d {
		return 0, fmt.Errorf("regression: expected %d features, got %d", d, len(x))
	}
	if !allFinite(x) {
		return 0, fmt.Errorf("sample: %w", ErrNonFinite)
	}
	sum := m.offset
	for i := 0; i < n; i++ {
		sum += m.dual.AtVec(i) * m.kernel.Eval(x, m.train.RawRowView(i))
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, fmt.Errorf("estimate: %w", ErrNonFinite)
	}
	return sum, nil
}

func checkFinite(X mat.Matrix, y []float64) error {
	r, c := X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := X.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("sample %d: %w", i, ErrNonFinite)
			}
		}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("target %d: %w", i, ErrNonFinite)
		}
	}
	return nil
}

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
