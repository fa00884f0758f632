package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/yanqian/knowledgebase/internal/domain/question"
	"github.com/yanqian/knowledgebase/pkg/metrics"
)

// DeterministicEmbedder avoids network calls by hashing text into a vector.
//
// Each normalised token is hashed onto a signed bucket, so texts sharing words land
// close together under cosine distance. Text without any token falls back to a dense
// pseudo-random vector seeded from the raw bytes. The result is L2-normalised.
type DeterministicEmbedder struct {
	dim int
}

// NewDeterministicEmbedder constructs the embedder.
func NewDeterministicEmbedder(dim int) *DeterministicEmbedder {
	if dim <= 0 {
		dim = question.EmbeddingDimensions
	}
	return &DeterministicEmbedder{dim: dim}
}

// Embed converts text into a unit vector.
func (e *DeterministicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.EmbeddingDuration.WithLabelValues("deterministic").Observe(time.Since(start).Seconds()) }()

	vector := make([]float64, e.dim)
	tokens := strings.Fields(normalizeText(text))
	for _, token := range tokens {
		sum := hash64(token)
		idx := int(sum % uint64(e.dim))
		if sum&(1<<63) != 0 {
			vector[idx]--
		} else {
			vector[idx]++
		}
	}
	if len(tokens) == 0 {
		seed := hash64(text)
		for j := 0; j < e.dim; j++ {
			seed = seed*1099511628211 + 1469598103934665603
			vector[j] = float64(seed%997)/498.5 - 1
		}
	}
	return normalize(vector), nil
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func normalize(v []float64) []float32 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}

// normalizeText lowercases and keeps letters and digits, collapsing everything else to single spaces.
func normalizeText(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	var builder strings.Builder
	builder.Grow(len(lowered))
	lastSpace := true
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
			lastSpace = false
			continue
		}
		// punctuation and whitespace both separate tokens
		if !lastSpace {
			builder.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(builder.String())
}

var _ question.Embedder = (*DeterministicEmbedder)(nil)
