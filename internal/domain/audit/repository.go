package audit

import "context"

// Repository persists audit entries. Append is the only write; entries are never edited.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	// List orders by timestamp descending. The count ignores the window.
	List(ctx context.Context, page Page) ([]Entry, int64, error)
}
