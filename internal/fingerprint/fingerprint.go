// Package fingerprint turns profile and job texts into fixed-size vectors.
//
// The scheme is a bucketed term-frequency hash: no model, no weights, the
// same text always yields the same vector on every platform.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Dimension is the length of every fingerprint produced by New.
const Dimension = 128

// Fingerprint is a non-negative vector that sums to 1, or the zero vector
// when there was no text to encode.
type Fingerprint []float64

// Sum returns the sum of all components.
func (f Fingerprint) Sum() float64 {
	var sum float64
	for _, v := range f {
		sum += v
	}
	return sum
}

// IsZero reports whether every component is zero (or the vector is empty).
func (f Fingerprint) IsZero() bool {
	for _, v := range f {
		if v != 0 {
			return false
		}
	}
	return true
}

// Encoder builds fingerprints. It holds no state besides its settings and
// is safe for concurrent use.
type Encoder struct {
	dim     int
	workers int
	logger  *zap.Logger
}

// New returns an encoder producing Dimension-sized fingerprints.
func New(logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Encoder{
		dim:     Dimension,
		workers: runtime.GOMAXPROCS(0),
		logger:  logger,
	}
}

// SetWorkers bounds the parallelism of EncodeJobs. Non-positive values keep the default.
func (e *Encoder) SetWorkers(n int) {
	if n > 0 {
		e.workers = n
	}
}

// Dimension is the length of every fingerprint the encoder produces.
func (e *Encoder) Dimension() int {
	return e.dim
}

// Encode fingerprints free text. Empty or whitespace-only text gives the zero vector.
//
// Every distinct word adds 1/len(tokens) to its bucket once, however many
// times it occurs, and the vector is normalized afterwards.
func (e *Encoder) Encode(text string) Fingerprint {
	vec := make(Fingerprint, e.dim)

	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return vec
	}

	weight := 1.0 / float64(len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	// first-occurrence order keeps the float accumulation reproducible
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		vec[Bucket(token, e.dim)] += weight
	}

	sum := vec.Sum()
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		e.logger.Warn("fingerprint normalization failed, using zero vector",
			zap.Int("tokens", len(tokens)),
			zap.Float64("sum", sum),
		)
		return make(Fingerprint, e.dim)
	}

	for i := range vec {
		vec[i] /= sum
	}

	return vec
}

// Bucket maps a word to its fingerprint component: the first eight bytes of
// its SHA-256 digest as a big-endian integer, modulo dim.
func Bucket(word string, dim int) int {
	if dim <= 0 {
		return 0
	}
	sum := sha256.Sum256([]byte(word))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(dim))
}
