package sequence

import "github.com/kilianp07/simforecast/core/model"

// Split builds every contiguous window of length n paired with the value
// that follows it. A sequence of length L yields max(L-n, 0) windows.
func Split(seq []float64, n int) []model.Window {
	if n <= 0 || len(seq) <= n {
		return nil
	}
	out := make([]model.Window, 0, len(seq)-n)
	for i := 0; i+n < len(seq); i++ {
		in := make([]float64, n)
		copy(in, seq[i:i+n])
		out = append(out, model.Window{Inputs: in, Target: seq[i+n]})
	}
	return out
}

// QueryWindow synthesizes the n-value arithmetic progression start,
// start+step, ... used as the prediction input.
func QueryWindow(start float64, n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
