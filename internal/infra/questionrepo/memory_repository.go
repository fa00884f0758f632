package questionrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/knowledgebase/internal/domain/question"
	"github.com/yanqian/knowledgebase/pkg/util"
)

// MemoryRepository is an in-memory question.Repository used for tests/dev.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	now    util.Clock

	records map[int64]question.Question
}

// NewMemoryRepository constructs a repo backed by memory. A nil clock uses UTC wall time.
func NewMemoryRepository(clock util.Clock) *MemoryRepository {
	return &MemoryRepository{
		nextID:  1,
		now:     util.ClockOrDefault(clock),
		records: make(map[int64]question.Question),
	}
}

// Insert implements question.Repository.
func (r *MemoryRepository) Insert(_ context.Context, q question.NewQuestion) (question.Question, error) {
	if err := question.CheckDimensions(q.Embedding); err != nil {
		return question.Question{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(q), nil
}

// InsertBatch implements question.Repository. Vectors are checked before anything is stored.
func (r *MemoryRepository) InsertBatch(_ context.Context, qs []question.NewQuestion) ([]question.Question, error) {
	for _, q := range qs {
		if err := question.CheckDimensions(q.Embedding); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]question.Question, 0, len(qs))
	for _, q := range qs {
		out = append(out, r.insertLocked(q))
	}
	return out, nil
}

func (r *MemoryRepository) insertLocked(q question.NewQuestion) question.Question {
	id := r.nextID
	r.nextID++
	now := r.now()
	rec := question.Question{
		ID:           id,
		QuestionText: q.QuestionText,
		AnswerText:   q.AnswerText,
		Embedding:    cloneVector(q.Embedding),
		Active:       q.Active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.records[id] = rec
	return cloneQuestion(rec)
}

// Get implements question.Repository.
func (r *MemoryRepository) Get(_ context.Context, id int64) (question.Question, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return question.Question{}, false, nil
	}
	return cloneQuestion(rec), true, nil
}

// List implements question.Repository.
func (r *MemoryRepository) List(_ context.Context, page question.Page) ([]question.Question, int64, error) {
	r.mu.RLock()
	all := make([]question.Question, 0, len(r.records))
	for _, rec := range r.records {
		all = append(all, rec)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := int64(len(all))
	start := page.Offset
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	out := make([]question.Question, 0, end-start)
	for _, rec := range all[start:end] {
		rec.Embedding = nil
		out = append(out, rec)
	}
	return out, total, nil
}

// Update implements question.Repository. The write lock is held while mutate runs.
func (r *MemoryRepository) Update(_ context.Context, id int64, mutate question.MutateFunc) (question.Question, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[id]
	if !ok {
		return question.Question{}, false, nil
	}
	next, err := mutate(cloneQuestion(current))
	if err != nil {
		return question.Question{}, false, err
	}
	if err := question.CheckDimensions(next.Embedding); err != nil {
		return question.Question{}, false, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.now()
	next.Embedding = cloneVector(next.Embedding)
	r.records[id] = next
	return cloneQuestion(next), true, nil
}

// Delete implements question.Repository.
func (r *MemoryRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

// Nearest implements question.Repository with a linear cosine scan.
func (r *MemoryRepository) Nearest(_ context.Context, embedding []float32, k int) ([]question.Match, error) {
	if err := question.CheckDimensions(embedding); err != nil {
		return nil, err
	}
	r.mu.RLock()
	matches := make([]question.Match, 0, len(r.records))
	for _, rec := range r.records {
		matches = append(matches, question.Match{
			Question: cloneQuestion(rec),
			Distance: cosineDistance(embedding, rec.Embedding),
		})
	}
	r.mu.RUnlock()
	return topK(matches, k), nil
}

func cloneQuestion(q question.Question) question.Question {
	q.Embedding = cloneVector(q.Embedding)
	return q
}

var _ question.Repository = (*MemoryRepository)(nil)
