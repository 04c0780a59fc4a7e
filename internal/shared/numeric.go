package shared

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Missing returns the sentinel used for absent numeric values.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}

// SafeDivide returns num/den, or 0 when den is zero, NaN or infinite.
func SafeDivide(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0
	}
	out := num / den
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0
	}
	return out
}

// Percent returns num/den*100 with SafeDivide's zero guard.
func Percent(num, den float64) float64 {
	return SafeDivide(num, den) * 100
}

// Present filters out missing values.
func Present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// Sum adds the non-missing values. An empty input sums to 0.
func Sum(values []float64) float64 {
	return floats.Sum(Present(values))
}

// Mean averages the non-missing values; NaN when there are none.
func Mean(values []float64) float64 {
	p := Present(values)
	if len(p) == 0 {
		return math.NaN()
	}
	return stat.Mean(p, nil)
}

// SampleStdDev is the n-1 standard deviation of the non-missing values;
// NaN when fewer than two are present.
func SampleStdDev(values []float64) float64 {
	p := Present(values)
	if len(p) < 2 {
		return math.NaN()
	}
	return stat.StdDev(p, nil)
}

// Median of the non-missing values, averaging the two middle values for even
// counts; NaN when there are none.
func Median(values []float64) float64 {
	p := Present(values)
	if len(p) == 0 {
		return math.NaN()
	}
	sort.Float64s(p)
	mid := len(p) / 2
	if len(p)%2 == 1 {
		return p[mid]
	}
	return (p[mid-1] + p[mid]) / 2
}

// MeanOrZero is Mean with an empty result reported as 0.
func MeanOrZero(values []float64) float64 {
	m := Mean(values)
	if math.IsNaN(m) {
		return 0
	}
	return m
}
