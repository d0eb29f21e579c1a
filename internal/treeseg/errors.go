package treeseg

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when a separation is requested over no points.
var ErrEmptyInput = errors.New("treeseg: empty input")

// InvalidParameterError reports a parameter outside its valid range.
type InvalidParameterError struct {
	Param string
	Value any
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("treeseg: invalid parameter %s: %v", e.Param, e.Value)
}

// InvalidPointError reports an input point with a NaN or infinite coordinate.
type InvalidPointError struct {
	Index int
}

func (e *InvalidPointError) Error() string {
	return fmt.Sprintf("treeseg: point %d has a non-finite coordinate", e.Index)
}

// DegenerateBandError is returned by the layer clusterer for a band that
// holds no points. It is not fatal: the band contributes no clusters.
type DegenerateBandError struct {
	Band int
}

func (e *DegenerateBandError) Error() string {
	return fmt.Sprintf("treeseg: band %d is empty", e.Band)
}
