package question

import (
	"context"
	"errors"
	"fmt"
)

// EmbeddingDimensions is the width of the persisted vector column.
const EmbeddingDimensions = 384

// ErrDimensionMismatch is returned for any vector whose width is not EmbeddingDimensions.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder turns text into a fixed-width vector. Implementations must be safe for
// concurrent use and deterministic for a given model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CheckDimensions fails fast on vectors that do not fit the schema.
func CheckDimensions(vector []float32) error {
	if len(vector) != EmbeddingDimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), EmbeddingDimensions)
	}
	return nil
}
