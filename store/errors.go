package store

import (
	"errors"

	"vector-store/vecmath"
)

var (
	// ErrDimensionMismatch is returned when an embedding's length doesn't match the store dimension
	ErrDimensionMismatch = vecmath.ErrDimensionMismatch

	// ErrInvalidDimension is returned when a store is constructed with a non-positive dimension
	ErrInvalidDimension = errors.New("invalid store dimension")
)
