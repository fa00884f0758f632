package questionrepo

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yanqian/knowledgebase/internal/domain/question"
)

// cosineDistance returns 1 - cos(a, b), or NaN when either vector has no magnitude.
func cosineDistance(a, b []float32) float64 {
	length := len(a)
	if len(b) < length {
		length = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < length; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// sortMatches orders by ascending distance then ascending id; NaN distances sort last.
func sortMatches(matches []question.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		di, dj := matches[i].Distance, matches[j].Distance
		ni, nj := math.IsNaN(di), math.IsNaN(dj)
		switch {
		case ni != nj:
			return nj
		case !ni && di != dj:
			return di < dj
		}
		return matches[i].Question.ID < matches[j].Question.ID
	})
}

func topK(matches []question.Match, k int) []question.Match {
	sortMatches(matches)
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// encodeVector packs float32 values little-endian for blob columns.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has %d bytes, not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

// parseVectorText parses pgvector's text form, e.g. "[0.1,0.2]".
func parseVectorText(raw string) ([]float32, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	if strings.TrimSpace(trimmed) == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector component %q: %w", part, err)
		}
		vec = append(vec, float32(v))
	}
	return vec, nil
}

func cloneVector(vec []float32) []float32 {
	if vec == nil {
		return nil
	}
	return append([]float32(nil), vec...)
}
