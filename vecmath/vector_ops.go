/*
Package vecmath holds the dense-vector arithmetic used to compare embeddings.

Every function is pure and safe for concurrent use.
*/
package vecmath

import (
	"math"
)

/*
DotProduct computes the dot product of two vectors

Parameters:
a, b: []float32 - The vectors to compute the dot product of
*/
func DotProduct(a, b []float32) (float32, error) {
	if err := checkSameLength(a, b); err != nil {
		return 0, err
	}

	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot, nil
}

/*
EuclideanDistance computes the L2 distance between two vectors

Returns:
float32 - A non-negative value, zero only when a and b are equal
*/
func EuclideanDistance(a, b []float32) (float32, error) {
	if err := checkSameLength(a, b); err != nil {
		return 0, err
	}

	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum))), nil
}

/*
CosineSimilarity calculates the cosine similarity between two vectors

Returns:
float32 - A value between -1 and 1, where 1 means identical direction,
0 means orthogonal, and -1 means opposite directions.
If either vector has zero magnitude the result is exactly 0.
*/
func CosineSimilarity(a, b []float32) (float32, error) {
	if err := checkSameLength(a, b); err != nil {
		return 0, err
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))), nil
}

/*
Magnitude computes the magnitude (length) of a vector

Parameters:
v: []float32 - The vector to compute the magnitude of
*/
func Magnitude(v []float32) float32 {
	var sum float32
	for _, val := range v {
		sum += val * val
	}
	return float32(math.Sqrt(float64(sum)))
}

/*
Normalize returns a unit-length copy of v.

A zero vector normalizes to a zero vector of the same length. v is left untouched.
*/
func Normalize(v []float32) []float32 {
	result := make([]float32, len(v))

	norm := Magnitude(v)
	if norm == 0 {
		return result
	}

	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
