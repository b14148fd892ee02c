package output

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/simforecast/core/model"
)

// PositionLine renders a position the way the simulator parses it: two
// values, a space, a newline and a trailing space. The fallback position is
// written with integer zeros.
func PositionLine(p model.Position, o model.Outcome) string {
	if o == model.OutcomeFallback {
		return "0 0 \n "
	}
	return fmt.Sprintf("%s %s \n ", FormatFloat(p.X), FormatFloat(p.Y))
}

// ScalarLine renders a sequence prediction followed by a newline.
func ScalarLine(v float64) string {
	return FormatScalar(v) + "\n"
}

// FormatFloat returns the shortest round-trip representation of v, always
// with a fractional part or an exponent ("12.0", "1e-05", "1e+16").
func FormatFloat(v float64) string {
	if s, ok := special(v); ok {
		return s
	}
	abs := math.Abs(v)
	if v != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatScalar renders v at single precision with at most eight fractional
// digits. Integral values keep a bare trailing point ("5.") and magnitudes
// outside [1e-4, 1e8) use an exponent ("1.5e+08").
func FormatScalar(v float64) string {
	if s, ok := special(v); ok {
		return s
	}
	f := float64(float32(v))
	abs := math.Abs(f)
	if f != 0 && (abs < 1e-4 || abs >= 1e8) {
		s := strconv.FormatFloat(f, 'e', -1, 32)
		mant, exp, _ := strings.Cut(s, "e")
		if !strings.Contains(mant, ".") {
			mant += "."
		}
		return mant + "e" + exp
	}
	s := strconv.FormatFloat(f, 'f', -1, 32)
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > 8 {
		s = strings.TrimRight(strconv.FormatFloat(f, 'f', 8, 64), "0")
	}
	if !strings.Contains(s, ".") {
		s += "."
	}
	return s
}

func special(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return "nan", true
	case math.IsInf(v, 1):
		return "inf", true
	case math.IsInf(v, -1):
		return "-inf", true
	}
	return "", false
}
