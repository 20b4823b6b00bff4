// Package matching scores, ranks and compares profiles against job postings.
package matching

import (
	"math"

	"github.com/spigell/job-matcher/internal/fingerprint"
)

// Score returns the cosine similarity of a and b on a 0-100 scale, rounded
// to two decimals. Vectors of different lengths are compared over the
// shorter one. An empty or zero vector on either side scores exactly 0.
func Score(a, b fingerprint.Fingerprint) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(similarity) {
		return 0
	}

	similarity = math.Max(0, math.Min(1, similarity))
	return round(similarity*100, 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
