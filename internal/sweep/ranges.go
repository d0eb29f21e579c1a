package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxValues caps how many values one range may expand to.
const maxValues = 10000

// Range is an inclusive "lo:hi:step" sweep axis.
type Range[T float64 | int] struct {
	Lo, Hi, Step T
}

// Len is the number of values in r, or -1 when r is empty or its step is
// not positive. A float range keeps hi when it lies within rounding error
// of a step.
func (r Range[T]) Len() int {
	if r.Step <= 0 || r.Lo > r.Hi {
		return -1
	}
	steps := math.Floor(float64(r.Hi-r.Lo)/float64(r.Step) + 1e-9)
	if steps >= maxValues {
		return maxValues + 1
	}
	return int(steps) + 1
}

// Values expands r. It fails when r is empty or longer than maxValues.
func (r Range[T]) Values() ([]T, error) {
	n := r.Len()
	switch {
	case n < 0:
		return nil, fmt.Errorf("range %v:%v:%v is empty", r.Lo, r.Hi, r.Step)
	case n > maxValues:
		return nil, fmt.Errorf("range %v:%v:%v has more than %d values", r.Lo, r.Hi, r.Step, maxValues)
	}
	out := make([]T, n)
	for i := range out {
		out[i] = r.Lo + T(i)*r.Step
	}
	return out, nil
}

func parseRange[T float64 | int](s string, parse func(string) (T, error)) (Range[T], error) {
	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return Range[T]{}, fmt.Errorf("invalid range %q: want lo:hi:step", s)
	}
	var vals [3]T
	for i, name := range []string{"lo", "hi", "step"} {
		v, err := parse(strings.TrimSpace(fields[i]))
		if err != nil {
			return Range[T]{}, fmt.Errorf("range %q: bad %s: %w", s, name, err)
		}
		vals[i] = v
	}
	if vals[2] <= 0 {
		return Range[T]{}, fmt.Errorf("range %q: step must be positive", s)
	}
	return Range[T]{Lo: vals[0], Hi: vals[1], Step: vals[2]}, nil
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// ParseFloatRange parses "lo:hi:step" with float bounds.
func ParseFloatRange(s string) (Range[float64], error) {
	return parseRange(s, parseFloat)
}

// ParseIntRange parses "lo:hi:step" with integer bounds.
func ParseIntRange(s string) (Range[int], error) {
	return parseRange(s, strconv.Atoi)
}

// ParseParamList accepts either a comma-separated list ("0.7,1.4") or a
// range ("0.5:2:0.5"). Range values are rounded to millimetres.
func ParseParamList(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	if !strings.Contains(s, ":") {
		return ParseCSVFloat64s(s)
	}
	r, err := ParseFloatRange(s)
	if err != nil {
		return nil, err
	}
	vals, err := r.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		vals[i] = math.Round(v*1000) / 1000
	}
	return vals, nil
}

// ParseIntParamList is ParseParamList for integer parameters.
func ParseIntParamList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	if !strings.Contains(s, ":") {
		return ParseCSVInts(s)
	}
	r, err := ParseIntRange(s)
	if err != nil {
		return nil, err
	}
	return r.Values()
}
