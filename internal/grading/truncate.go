// Package grading computes subject averages from raw grade records.
//
// Every value flows sub-period -> period -> general average and is truncated
// (never rounded) to two decimals by Truncate. Functions here are pure and do
// no I/O, so they can be called concurrently without locking.
package grading

import "math"

// Decimals is the precision every average is truncated to.
const Decimals = 2

// snapEpsilon absorbs binary representation error, e.g. 0.29*100 = 28.999999999999996.
const snapEpsilon = 1e-9

// Truncate cuts value to two decimals without rounding: 7.999 becomes 7.99.
func Truncate(value float64) float64 {
	return TruncateTo(value, Decimals)
}

// TruncateTo cuts value to the given number of decimals without rounding.
func TruncateTo(value float64, decimals int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	if decimals < 0 {
		decimals = 0
	}
	factor := math.Pow(10, float64(decimals))
	scaled := value * factor
	if nearest := math.Round(scaled); math.Abs(scaled-nearest) < snapEpsilon {
		scaled = nearest
	}
	return math.Floor(scaled) / factor
}
