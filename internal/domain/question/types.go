package question

import (
	"strings"
	"time"
)

// MissID marks the synthetic record returned when no stored question is similar enough.
// Real ids start at 1, so it never collides with a stored question.
const MissID int64 = -1

// Question is a stored question/answer pair together with its embedding.
type Question struct {
	ID           int64     `json:"id"`
	QuestionText string    `json:"question_text"`
	AnswerText   string    `json:"answer_text"`
	Embedding    []float32 `json:"embedding"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary is the list projection of a Question; it omits the embedding.
type Summary struct {
	ID           int64     `json:"id"`
	QuestionText string    `json:"question_text"`
	AnswerText   string    `json:"answer_text"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary projects q for listings.
func (q Question) Summary() Summary {
	return Summary{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		AnswerText:   q.AnswerText,
		Active:       q.Active,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
}

// NewQuestion carries the fields a repository needs to insert a row.
type NewQuestion struct {
	QuestionText string
	AnswerText   string
	Embedding    []float32
	Active       bool
}

// CreateRequest is the payload for creating a single question.
type CreateRequest struct {
	QuestionText string `json:"question_text" binding:"required"`
	AnswerText   string `json:"answer_text" binding:"required"`
	Active       *bool  `json:"active"`
}

// BulkCreateRequest creates many questions in one transaction.
type BulkCreateRequest struct {
	Questions []CreateRequest `json:"questions" binding:"required,min=1,dive"`
}

// UpdateRequest lists the fields a partial update may touch. Nil means "leave unchanged".
type UpdateRequest struct {
	QuestionText *string `json:"question_text"`
	AnswerText   *string `json:"answer_text"`
	Active       *bool   `json:"active"`
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateRequest) IsEmpty() bool {
	return r.QuestionText == nil && r.AnswerText == nil && r.Active == nil
}

// ChangesText reports whether the embedding must be recomputed.
func (r UpdateRequest) ChangesText() bool {
	return r.QuestionText != nil || r.AnswerText != nil
}

func (r UpdateRequest) apply(current Question) Question {
	next := current
	if r.QuestionText != nil {
		next.QuestionText = *r.QuestionText
	}
	if r.AnswerText != nil {
		next.AnswerText = *r.AnswerText
	}
	if r.Active != nil {
		next.Active = *r.Active
	}
	return next
}

// SearchRequest is the similarity search payload.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

// ScoredQuestion is a search result. ID is MissID for the fallback record.
type ScoredQuestion struct {
	ID           int64   `json:"id"`
	QuestionText string  `json:"question_text"`
	AnswerText   string  `json:"answer_text"`
	Score        float64 `json:"score"`
}

// IsMiss reports whether the result is the synthetic no-match record.
func (s ScoredQuestion) IsMiss() bool {
	return s.ID == MissID
}

// Page is an offset/limit window.
type Page struct {
	Limit  int
	Offset int
}

// ListResult is a page of questions plus the total row count.
type ListResult struct {
	Total int64     `json:"total"`
	Items []Summary `json:"items"`
}

// CombineText builds the text that is embedded for a question/answer pair.
func CombineText(question, answer string) string {
	return question + " — " + answer
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
