package vecmath

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when two vectors (or a vector and a store) disagree on length
	ErrDimensionMismatch = errors.New("vector dimensions do not match")

	// ErrUnknownMetric is returned when a metric name cannot be parsed
	ErrUnknownMetric = errors.New("unknown metric")
)

/*
DimensionMismatchError carries the lengths involved in a dimension check.

It matches ErrDimensionMismatch under errors.Is.
*/
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

func checkSameLength(a, b []float32) error {
	if len(a) != len(b) {
		return &DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	return nil
}
