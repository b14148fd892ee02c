package sequence

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptySequence is returned when an input holds no numeric tokens.
var ErrEmptySequence = errors.New("sequence: empty input")

// ParseTokens reads whitespace or tab separated floats from r.
func ParseTokens(r io.Reader) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\t", " ")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, ErrEmptySequence
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("sequence: token %d %q: %w", i, f, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("sequence: token %d %q is not a finite number", i, f)
		}
		out[i] = v
	}
	return out, nil
}

// ReadFile parses the numeric tokens stored at path.
func ReadFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	vals, err := ParseTokens(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vals, nil
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptySequence
	}
	return stat.Mean(values, nil), nil
}
