package auditrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/knowledgebase/internal/domain/audit"
)

// MemoryRepository keeps audit entries in process for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

// NewMemoryRepository constructs an empty log.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append implements audit.Repository.
func (r *MemoryRepository) Append(_ context.Context, entry audit.Entry) error {
	entry.RequestBody = cloneBody(entry.RequestBody)
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	return nil
}

// List implements audit.Repository. Entries sharing a timestamp come back newest-appended first.
func (r *MemoryRepository) List(_ context.Context, page audit.Page) ([]audit.Entry, int64, error) {
	r.mu.RLock()
	ordered := make([]audit.Entry, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		ordered = append(ordered, r.entries[i])
	}
	r.mu.RUnlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.After(ordered[j].Timestamp)
	})
	total := int64(len(ordered))
	start := page.Offset
	if start > len(ordered) {
		start = len(ordered)
	}
	end := len(ordered)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	out := make([]audit.Entry, 0, end-start)
	for _, entry := range ordered[start:end] {
		entry.RequestBody = cloneBody(entry.RequestBody)
		out = append(out, entry)
	}
	return out, total, nil
}

func cloneBody(body []byte) []byte {
	if body == nil {
		return nil
	}
	return append([]byte(nil), body...)
}

var _ audit.Repository = (*MemoryRepository)(nil)
