package question

import "math"

// rank shapes nearest-neighbour matches into search results.
//
// The top match decides between hit and miss mode. In miss mode a single synthetic
// record carrying the best score is returned. In hit mode every match is checked
// against the threshold on its own and distance order is preserved.
func rank(query string, matches []Match, cfg Config) []ScoredQuestion {
	best := 0.0
	if len(matches) > 0 {
		best = similarity(matches[0].Distance)
	}
	if len(matches) == 0 || best < cfg.SimilarityThreshold {
		return []ScoredQuestion{{
			ID:           MissID,
			QuestionText: query,
			AnswerText:   cfg.FallbackAnswer,
			Score:        best,
		}}
	}

	out := make([]ScoredQuestion, 0, len(matches))
	for _, m := range matches {
		score := similarity(m.Distance)
		if score < cfg.SimilarityThreshold {
			continue
		}
		out = append(out, ScoredQuestion{
			ID:           m.Question.ID,
			QuestionText: m.Question.QuestionText,
			AnswerText:   m.Question.AnswerText,
			Score:        score,
		})
	}
	return out
}

// similarity converts a cosine distance into a score; a missing distance scores zero.
func similarity(distance float64) float64 {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0
	}
	return 1 - distance
}
