package questionrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yanqian/knowledgebase/internal/domain/question"
)

// questionRow is the gorm model for the questions table.
type questionRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	QuestionText string    `gorm:"type:text;not null"`
	AnswerText   string    `gorm:"type:text;not null"`
	Embedding    []byte    `gorm:"type:blob;not null"`
	Active       bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (questionRow) TableName() string { return "questions" }

func (row questionRow) toDomain() (question.Question, error) {
	rec := question.Question{
		ID:           row.ID,
		QuestionText: row.QuestionText,
		AnswerText:   row.AnswerText,
		Active:       row.Active,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if len(row.Embedding) > 0 {
		vec, err := decodeVector(row.Embedding)
		if err != nil {
			return question.Question{}, fmt.Errorf("question %d: %w", row.ID, err)
		}
		rec.Embedding = vec
	}
	return rec, nil
}

// SQLiteRepository implements question.Repository on gorm. Embeddings are stored as
// little-endian float32 blobs and similarity is computed in process.
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository constructs the repository, migrating the table when asked.
func NewSQLiteRepository(db *gorm.DB, autoMigrate bool) (*SQLiteRepository, error) {
	if autoMigrate {
		if err := db.AutoMigrate(&questionRow{}); err != nil {
			return nil, fmt.Errorf("migrate questions: %w", err)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

// Insert stores a single question.
func (r *SQLiteRepository) Insert(ctx context.Context, q question.NewQuestion) (question.Question, error) {
	if err := question.CheckDimensions(q.Embedding); err != nil {
		return question.Question{}, err
	}
	row := newRow(q)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return question.Question{}, err
	}
	return row.toDomain()
}

// InsertBatch stores every question inside one transaction.
func (r *SQLiteRepository) InsertBatch(ctx context.Context, qs []question.NewQuestion) ([]question.Question, error) {
	rows := make([]questionRow, 0, len(qs))
	for _, q := range qs {
		if err := question.CheckDimensions(q.Embedding); err != nil {
			return nil, err
		}
		rows = append(rows, newRow(q))
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := tx.Create(&rows[i]).Error; err != nil {
				return fmt.Errorf("insert questions[%d]: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]question.Question, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func newRow(q question.NewQuestion) questionRow {
	return questionRow{
		QuestionText: q.QuestionText,
		AnswerText:   q.AnswerText,
		Embedding:    encodeVector(q.Embedding),
		Active:       q.Active,
	}
}

// Get fetches by primary key.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (question.Question, bool, error) {
	var row questionRow
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return question.Question{}, false, nil
		}
		return question.Question{}, false, err
	}
	rec, err := row.toDomain()
	if err != nil {
		return question.Question{}, false, err
	}
	return rec, true, nil
}

// List returns one page, newest first, without embeddings.
func (r *SQLiteRepository) List(ctx context.Context, page question.Page) ([]question.Question, int64, error) {
	db := r.db.WithContext(ctx)
	var total int64
	if err := db.Model(&questionRow{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []questionRow
	err := db.Select("id", "question_text", "answer_text", "active", "created_at", "updated_at").
		Order("created_at DESC").Order("id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]question.Question, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, nil
}

// Update applies mutate inside a transaction; SQLite serialises writers.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, mutate question.MutateFunc) (question.Question, bool, error) {
	var (
		updated question.Question
		found   bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row questionRow
		if err := tx.Where("id = ?", id).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true
		current, err := row.toDomain()
		if err != nil {
			return err
		}
		next, err := mutate(current)
		if err != nil {
			return err
		}
		if err := question.CheckDimensions(next.Embedding); err != nil {
			return err
		}
		row.QuestionText = next.QuestionText
		row.AnswerText = next.AnswerText
		row.Active = next.Active
		row.Embedding = encodeVector(next.Embedding)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		updated, err = row.toDomain()
		return err
	})
	if err != nil {
		return question.Question{}, false, err
	}
	return updated, found, nil
}

// Delete removes by primary key.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&questionRow{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Nearest scans every row and ranks by cosine distance.
func (r *SQLiteRepository) Nearest(ctx context.Context, embedding []float32, k int) ([]question.Match, error) {
	if err := question.CheckDimensions(embedding); err != nil {
		return nil, err
	}
	var rows []questionRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	matches := make([]question.Match, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		matches = append(matches, question.Match{
			Question: rec,
			Distance: cosineDistance(embedding, rec.Embedding),
		})
	}
	return topK(matches, k), nil
}

var _ question.Repository = (*SQLiteRepository)(nil)
