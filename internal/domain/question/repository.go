package question

import "context"

// Match pairs a stored question with its cosine distance to a query vector.
// Distance is NaN when the store could not compute one.
type Match struct {
	Question Question
	Distance float64
}

// MutateFunc receives the current row and returns the row to persist.
type MutateFunc func(current Question) (Question, error)

// Repository encapsulates question persistence and nearest-neighbour lookups.
// Lookups by id report absence through the bool result, never through an error.
type Repository interface {
	Insert(ctx context.Context, q NewQuestion) (Question, error)
	// InsertBatch persists all rows or none of them.
	InsertBatch(ctx context.Context, qs []NewQuestion) ([]Question, error)
	Get(ctx context.Context, id int64) (Question, bool, error)
	// List orders by created_at descending, then id descending. The count ignores the window.
	List(ctx context.Context, page Page) ([]Question, int64, error)
	// Update locks the row, applies mutate and persists the result with a fresh updated_at.
	// mutate runs under the lock and must not call out to other services.
	Update(ctx context.Context, id int64, mutate MutateFunc) (Question, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// Nearest orders by ascending cosine distance, then ascending id.
	Nearest(ctx context.Context, embedding []float32, k int) ([]Match, error)
}
