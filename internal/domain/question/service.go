package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/yanqian/knowledgebase/pkg/errors"
	"github.com/yanqian/knowledgebase/pkg/metrics"
)

const maxUpdateAttempts = 3

var errStaleEmbedding = errors.New("question text changed during update")

// Service exposes question CRUD and similarity search.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (Question, error)
	BulkCreate(ctx context.Context, req BulkCreateRequest) ([]Question, error)
	Get(ctx context.Context, id int64) (Question, bool, error)
	List(ctx context.Context, page Page) (ListResult, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (Question, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Search(ctx context.Context, req SearchRequest) ([]ScoredQuestion, error)
}

type service struct {
	cfg      Config
	repo     Repository
	embedder Embedder
	logger   *slog.Logger
}

// NewService wires up the question domain.
func NewService(cfg Config, repo Repository, embedder Embedder, logger *slog.Logger) Service {
	return &service{
		cfg:      cfg.withDefaults(),
		repo:     repo,
		embedder: embedder,
		logger:   logger.With("component", "question.service"),
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (Question, error) {
	if problem := validateCreate(req); problem != "" {
		return Question{}, apperrors.Invalid(problem)
	}
	item, err := s.prepare(ctx, req)
	if err != nil {
		return Question{}, err
	}
	created, err := s.repo.Insert(ctx, item)
	if err != nil {
		return Question{}, apperrors.Wrap(apperrors.CodeStorageError, "failed to insert question", err)
	}
	metrics.QuestionMutations.WithLabelValues("create").Inc()
	return created, nil
}

func (s *service) BulkCreate(ctx context.Context, req BulkCreateRequest) ([]Question, error) {
	if len(req.Questions) == 0 {
		return nil, apperrors.Invalid("questions cannot be empty")
	}
	// Validate everything before embedding anything so a bad item costs no upstream calls.
	for i, item := range req.Questions {
		if problem := validateCreate(item); problem != "" {
			return nil, apperrors.Invalid(fmt.Sprintf("questions[%d]: %s", i, problem))
		}
	}
	items := make([]NewQuestion, 0, len(req.Questions))
	for _, item := range req.Questions {
		prepared, err := s.prepare(ctx, item)
		if err != nil {
			return nil, err
		}
		items = append(items, prepared)
	}
	created, err := s.repo.InsertBatch(ctx, items)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to insert questions", err)
	}
	metrics.QuestionMutations.WithLabelValues("bulk_create").Add(float64(len(created)))
	return created, nil
}

func (s *service) Get(ctx context.Context, id int64) (Question, bool, error) {
	rec, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return Question{}, false, apperrors.Wrap(apperrors.CodeStorageError, "failed to load question", err)
	}
	return rec, found, nil
}

func (s *service) List(ctx context.Context, page Page) (ListResult, error) {
	if page.Limit < 1 || page.Limit > MaxListLimit {
		return ListResult{}, apperrors.Invalid(fmt.Sprintf("limit must be between 1 and %d", MaxListLimit))
	}
	if page.Offset < 0 {
		return ListResult{}, apperrors.Invalid("offset cannot be negative")
	}
	rows, total, err := s.repo.List(ctx, page)
	if err != nil {
		return ListResult{}, apperrors.Wrap(apperrors.CodeStorageError, "failed to list questions", err)
	}
	items := make([]Summary, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Summary())
	}
	return ListResult{Total: total, Items: items}, nil
}

func (s *service) Update(ctx context.Context, id int64, req UpdateRequest) (Question, bool, error) {
	if req.QuestionText != nil && blank(*req.QuestionText) {
		return Question{}, false, apperrors.Invalid("question_text cannot be empty")
	}
	if req.AnswerText != nil && blank(*req.AnswerText) {
		return Question{}, false, apperrors.Invalid("answer_text cannot be empty")
	}
	if req.IsEmpty() {
		return s.Get(ctx, id)
	}

	var (
		updated Question
		found   bool
		err     error
	)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		updated, found, err = s.updateOnce(ctx, id, req)
		if !errors.Is(err, errStaleEmbedding) {
			break
		}
		s.logger.Debug("question text changed while embedding, retrying", "id", id, "attempt", attempt+1)
	}
	if err != nil {
		if apperrors.CodeOf(err) != "" {
			return Question{}, false, err
		}
		return Question{}, false, apperrors.Wrap(apperrors.CodeStorageError, "failed to update question", err)
	}
	if found {
		metrics.QuestionMutations.WithLabelValues("update").Inc()
	}
	return updated, found, nil
}

// updateOnce embeds the merged text from an unlocked read, then writes it under the
// repository lock. The write is refused with errStaleEmbedding when the text moved in between.
func (s *service) updateOnce(ctx context.Context, id int64, req UpdateRequest) (Question, bool, error) {
	var (
		embedding []float32
		embedded  string
	)
	if req.ChangesText() {
		current, found, err := s.repo.Get(ctx, id)
		if err != nil {
			return Question{}, false, apperrors.Wrap(apperrors.CodeStorageError, "failed to load question", err)
		}
		if !found {
			return Question{}, false, nil
		}
		next := req.apply(current)
		embedded = CombineText(next.QuestionText, next.AnswerText)
		if embedding, err = s.embed(ctx, embedded); err != nil {
			return Question{}, false, err
		}
	}

	return s.repo.Update(ctx, id, func(current Question) (Question, error) {
		next := req.apply(current)
		if req.ChangesText() {
			if CombineText(next.QuestionText, next.AnswerText) != embedded {
				return Question{}, errStaleEmbedding
			}
			next.Embedding = embedding
		}
		return next, nil
	})
}

func (s *service) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeStorageError, "failed to delete question", err)
	}
	if deleted {
		metrics.QuestionMutations.WithLabelValues("delete").Inc()
	}
	return deleted, nil
}

func (s *service) Search(ctx context.Context, req SearchRequest) ([]ScoredQuestion, error) {
	if blank(req.Query) {
		return nil, apperrors.Invalid("query cannot be empty")
	}
	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	embedding, err := s.embed(ctx, req.Query)
	if err != nil {
		metrics.SearchRequests.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	matches, err := s.repo.Nearest(ctx, embedding, s.cfg.TopK)
	if err != nil {
		metrics.SearchRequests.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "similarity lookup failed", err)
	}

	results := rank(req.Query, matches, s.cfg)
	outcome := metrics.OutcomeHit
	if len(results) == 1 && results[0].IsMiss() {
		outcome = metrics.OutcomeMiss
	}
	metrics.SearchRequests.WithLabelValues(outcome).Inc()
	s.logger.Debug("search ranked", "candidates", len(matches), "results", len(results), "outcome", outcome)
	return results, nil
}

func (s *service) prepare(ctx context.Context, req CreateRequest) (NewQuestion, error) {
	embedding, err := s.embed(ctx, CombineText(req.QuestionText, req.AnswerText))
	if err != nil {
		return NewQuestion{}, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return NewQuestion{
		QuestionText: req.QuestionText,
		AnswerText:   req.AnswerText,
		Embedding:    embedding,
		Active:       active,
	}, nil
}

func (s *service) embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeInvalidInput) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeEmbeddingError, "embedding failed", err)
	}
	if err := CheckDimensions(vector); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEmbeddingError, "embedding rejected", err)
	}
	return vector, nil
}

// validateCreate returns a description of the first problem, or "" when req is valid.
func validateCreate(req CreateRequest) string {
	if blank(req.QuestionText) {
		return "question_text cannot be empty"
	}
	if blank(req.AnswerText) {
		return "answer_text cannot be empty"
	}
	return ""
}
