package embedding

import "strings"

// Zero returns a zero vector of length dimensions.
func Zero(dimensions int) []float32 {
	return make([]float32, dimensions)
}

// IsZero reports whether every component of v is zero. An empty vector is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// CountDegraded returns how many non-blank texts were answered with a zero
// vector. texts and vectors are aligned by position.
func CountDegraded(texts []string, vectors [][]float32) int {
	n := 0
	for i, text := range texts {
		if i < len(vectors) && strings.TrimSpace(text) != "" && IsZero(vectors[i]) {
			n++
		}
	}
	return n
}
