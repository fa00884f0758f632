package questionrepo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/knowledgebase/internal/domain/question"
	"github.com/yanqian/knowledgebase/internal/infra/sqlite"
)

// axis returns a unit vector pointing along dimension i.
func axis(i int) []float32 {
	v := make([]float32, question.EmbeddingDimensions)
	v[i] = 1
	return v
}

// blend returns a unit vector with cosine similarity sim to axis(0).
func blend(sim float64) []float32 {
	v := make([]float32, question.EmbeddingDimensions)
	v[0] = float32(sim)
	v[1] = float32(math.Sqrt(1 - sim*sim))
	return v
}

func newQ(text string, vec []float32) question.NewQuestion {
	return question.NewQuestion{QuestionText: text, AnswerText: text + " answer", Embedding: vec, Active: true}
}

type steppingClock struct{ t time.Time }

func (c *steppingClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func backends() map[string]func(t *testing.T) question.Repository {
	return map[string]func(t *testing.T) question.Repository{
		"memory": func(*testing.T) question.Repository {
			clock := &steppingClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			return NewMemoryRepository(clock.now)
		},
		"sqlite": func(t *testing.T) question.Repository {
			db, err := sqlite.Open(":memory:", nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = sqlite.Close(db) })
			repo, err := NewSQLiteRepository(db, true)
			require.NoError(t, err)
			return repo
		},
	}
}

func TestRepositoryCRUD(t *testing.T) {
	for name, build := range backends() {
		t.Run(name, func(t *testing.T) {
			repo := build(t)
			ctx := context.Background()

			created, err := repo.Insert(ctx, newQ("what is go", axis(3)))
			require.NoError(t, err)
			require.Positive(t, created.ID)
			require.True(t, created.Active)
			require.False(t, created.CreatedAt.IsZero())

			got, found, err := repo.Get(ctx, created.ID)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, axis(3), got.Embedding)
			require.Equal(t, "what is go answer", got.AnswerText)

			updated, found, err := repo.Update(ctx, created.ID, func(current question.Question) (question.Question, error) {
				current.Active = false
				return current, nil
			})
			require.NoError(t, err)
			require.True(t, found)
			require.False(t, updated.Active)
			require.Equal(t, axis(3), updated.Embedding)
			require.Equal(t, created.ID, updated.ID)

			_, found, err = repo.Update(ctx, 9999, func(current question.Question) (question.Question, error) {
				t.Fatal("mutate must not run for a missing row")
				return current, nil
			})
			require.NoError(t, err)
			require.False(t, found)

			deleted, err := repo.Delete(ctx, created.ID)
			require.NoError(t, err)
			require.True(t, deleted)

			_, found, err = repo.Get(ctx, created.ID)
			require.NoError(t, err)
			require.False(t, found)

			deleted, err = repo.Delete(ctx, created.ID)
			require.NoError(t, err)
			require.False(t, deleted)
		})
	}
}

func TestRepositoryRejectsWrongDimensions(t *testing.T) {
	for name, build := range backends() {
		t.Run(name, func(t *testing.T) {
			repo := build(t)
			ctx := context.Background()

			_, err := repo.Insert(ctx, newQ("short", []float32{1, 2, 3}))
			require.ErrorIs(t, err, question.ErrDimensionMismatch)

			_, err = repo.InsertBatch(ctx, []question.NewQuestion{newQ("ok", axis(0)), newQ("bad", []float32{1})})
			require.ErrorIs(t, err, question.ErrDimensionMismatch)

			_, total, err := repo.List(ctx, question.Page{Limit: 10})
			require.NoError(t, err)
			require.Zero(t, total)
		})
	}
}

func TestRepositoryListOrder(t *testing.T) {
	for name, build := range backends() {
		t.Run(name, func(t *testing.T) {
			repo := build(t)
			ctx := context.Background()
			var ids []int64
			for i := 0; i < 12; i++ {
				created, err := repo.Insert(ctx, newQ("q", axis(i)))
				require.NoError(t, err)
				ids = append(ids, created.ID)
			}

			items, total, err := repo.List(ctx, question.Page{Limit: 10})
			require.NoError(t, err)
			require.EqualValues(t, 12, total)
			require.Len(t, items, 10)
			require.Equal(t, ids[11], items[0].ID)
			for i := 1; i < len(items); i++ {
				require.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt))
				require.Less(t, items[i].ID, items[i-1].ID)
			}

			tail, _, err := repo.List(ctx, question.Page{Limit: 10, Offset: 10})
			require.NoError(t, err)
			require.Len(t, tail, 2)
			require.Equal(t, ids[0], tail[1].ID)
		})
	}
}

func TestRepositoryNearest(t *testing.T) {
	for name, build := range backends() {
		t.Run(name, func(t *testing.T) {
			repo := build(t)
			ctx := context.Background()

			matches, err := repo.Nearest(ctx, axis(0), 5)
			require.NoError(t, err)
			require.Empty(t, matches)

			batch, err := repo.InsertBatch(ctx, []question.NewQuestion{
				newQ("far", blend(0.60)),
				newQ("near", blend(0.90)),
				newQ("mid", blend(0.75)),
				newQ("twin", blend(0.90)),
				newQ("orthogonal", axis(7)),
				newQ("unrelated", axis(9)),
			})
			require.NoError(t, err)
			require.Len(t, batch, 6)

			matches, err = repo.Nearest(ctx, axis(0), 3)
			require.NoError(t, err)
			require.Len(t, matches, 3)
			require.Equal(t, "near", matches[0].Question.QuestionText)
			require.Equal(t, "twin", matches[1].Question.QuestionText)
			require.Equal(t, "mid", matches[2].Question.QuestionText)
			require.InDelta(t, 0.10, matches[0].Distance, 1e-6)
			require.InDelta(t, 0.25, matches[2].Distance, 1e-6)
		})
	}
}

func TestCosineDistance(t *testing.T) {
	require.InDelta(t, 0, cosineDistance(axis(1), axis(1)), 1e-9)
	require.InDelta(t, 1, cosineDistance(axis(1), axis(2)), 1e-9)
	require.True(t, math.IsNaN(cosineDistance(make([]float32, 4), []float32{1, 0, 0, 0})))
}

func TestVectorCodecs(t *testing.T) {
	vec := []float32{0.5, -1.25, 3}
	decoded, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	require.Equal(t, vec, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	require.Error(t, err)

	parsed, err := parseVectorText("[0.5,-1.25,3]")
	require.NoError(t, err)
	require.Equal(t, vec, parsed)

	_, err = parseVectorText("[0.5,abc]")
	require.Error(t, err)
}

func TestSortMatchesPutsNaNLast(t *testing.T) {
	matches := []question.Match{
		{Question: question.Question{ID: 3}, Distance: math.NaN()},
		{Question: question.Question{ID: 2}, Distance: 0.2},
		{Question: question.Question{ID: 1}, Distance: 0.2},
	}
	sortMatches(matches)
	require.Equal(t, int64(1), matches[0].Question.ID)
	require.Equal(t, int64(2), matches[1].Question.ID)
	require.Equal(t, int64(3), matches[2].Question.ID)
}
