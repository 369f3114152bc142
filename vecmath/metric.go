package vecmath

import (
	"fmt"
	"strings"
)

/*
Metric selects one of the pairwise comparisons.
*/
type Metric int

const (
	MetricCosine Metric = iota
	MetricEuclidean
	MetricDot
)

/*
String returns the string representation of the metric
*/
func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricEuclidean:
		return "euclidean"
	case MetricDot:
		return "dot"
	default:
		return "unknown"
	}
}

/*
ParseMetric converts a string to a Metric. The empty string means cosine.
*/
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine":
		return MetricCosine, nil
	case "euclidean", "l2":
		return MetricEuclidean, nil
	case "dot":
		return MetricDot, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

/*
Compare applies the metric to a and b.
*/
func Compare(m Metric, a, b []float32) (float32, error) {
	switch m {
	case MetricCosine:
		return CosineSimilarity(a, b)
	case MetricEuclidean:
		return EuclideanDistance(a, b)
	case MetricDot:
		return DotProduct(a, b)
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownMetric, int(m))
	}
}
