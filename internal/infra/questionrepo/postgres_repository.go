package questionrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/knowledgebase/internal/domain/question"
)

const (
	questionColumns = `id, question_text, answer_text, embedding::text, active, created_at, updated_at`
	summaryColumns  = `id, question_text, answer_text, active, created_at, updated_at`
)

// PostgresRepository implements question.Repository using pgx and pgvector.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Insert stores a single question.
func (r *PostgresRepository) Insert(ctx context.Context, q question.NewQuestion) (question.Question, error) {
	if err := question.CheckDimensions(q.Embedding); err != nil {
		return question.Question{}, err
	}
	return insertQuestion(ctx, r.pool, q)
}

// InsertBatch stores every question inside one transaction.
func (r *PostgresRepository) InsertBatch(ctx context.Context, qs []question.NewQuestion) ([]question.Question, error) {
	for _, q := range qs {
		if err := question.CheckDimensions(q.Embedding); err != nil {
			return nil, err
		}
	}
	out := make([]question.Question, 0, len(qs))
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i, q := range qs {
			rec, err := insertQuestion(ctx, tx, q)
			if err != nil {
				return fmt.Errorf("insert questions[%d]: %w", i, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertQuestion(ctx context.Context, db queryRower, q question.NewQuestion) (question.Question, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO questions (question_text, answer_text, embedding, active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+questionColumns,
		q.QuestionText, q.AnswerText, pgvector.NewVector(q.Embedding), q.Active)
	return scanQuestion(row)
}

// Get fetches by primary key.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (question.Question, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	rec, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return question.Question{}, false, nil
		}
		return question.Question{}, false, err
	}
	return rec, true, nil
}

// List returns one page, newest first, without embeddings.
func (r *PostgresRepository) List(ctx context.Context, page question.Page) ([]question.Question, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM questions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]question.Question, 0, page.Limit)
	for rows.Next() {
		var rec question.Question
		if err := rows.Scan(&rec.ID, &rec.QuestionText, &rec.AnswerText, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// Update locks the row with FOR UPDATE, applies mutate and writes the result back.
func (r *PostgresRepository) Update(ctx context.Context, id int64, mutate question.MutateFunc) (question.Question, bool, error) {
	var (
		updated question.Question
		found   bool
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanQuestion(tx.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		found = true
		next, err := mutate(current)
		if err != nil {
			return err
		}
		if err := question.CheckDimensions(next.Embedding); err != nil {
			return err
		}
		updated, err = scanQuestion(tx.QueryRow(ctx, `
			UPDATE questions
			SET question_text = $2, answer_text = $3, embedding = $4, active = $5, updated_at = NOW()
			WHERE id = $1
			RETURNING `+questionColumns,
			id, next.QuestionText, next.AnswerText, pgvector.NewVector(next.Embedding), next.Active))
		return err
	})
	if err != nil {
		return question.Question{}, false, err
	}
	return updated, found, nil
}

// Delete removes by primary key.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Nearest returns the k closest rows by cosine distance.
func (r *PostgresRepository) Nearest(ctx context.Context, embedding []float32, k int) ([]question.Match, error) {
	if err := question.CheckDimensions(embedding); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+questionColumns+`, embedding <=> $1 AS distance
		FROM questions
		ORDER BY embedding <=> $1, id ASC
		LIMIT $2
	`, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]question.Match, 0, k)
	for rows.Next() {
		var distance sql.NullFloat64
		rec, err := scanQuestion(rows, &distance)
		if err != nil {
			return nil, err
		}
		match := question.Match{Question: rec, Distance: math.NaN()}
		if distance.Valid {
			match.Distance = distance.Float64
		}
		out = append(out, match)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner, extras ...any) (question.Question, error) {
	var (
		rec       question.Question
		embedding sql.NullString
	)
	args := []any{&rec.ID, &rec.QuestionText, &rec.AnswerText, &embedding, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt}
	args = append(args, extras...)
	if err := row.Scan(args...); err != nil {
		return question.Question{}, err
	}
	if embedding.Valid {
		vec, err := parseVectorText(embedding.String)
		if err != nil {
			return question.Question{}, err
		}
		rec.Embedding = vec
	}
	return rec, nil
}

var _ question.Repository = (*PostgresRepository)(nil)
