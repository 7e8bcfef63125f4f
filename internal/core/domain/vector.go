package domain

import "math"

// Normalize returns a unit-length copy of vec. A vector with zero norm or any
// non-finite component is returned as all zeros of the same length.
func Normalize(vec []float32) []float32 {
	out := make([]float32, len(vec))
	var sum float64
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return out
		}
		sum += f * f
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsInf(norm, 0) || math.IsNaN(norm) {
		return out
	}
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// Dot computes the inner product over the shared prefix of a and b.
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
