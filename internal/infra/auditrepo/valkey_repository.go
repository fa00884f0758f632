package auditrepo

import (
	"context"
	"encoding/json"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/knowledgebase/internal/domain/audit"
)

// ValkeyRepository keeps the audit log in a Valkey list, newest entry at the head.
type ValkeyRepository struct {
	client valkey.Client
	key    string
}

// NewValkeyRepository constructs a repository storing entries under key.
func NewValkeyRepository(client valkey.Client, key string) *ValkeyRepository {
	if key == "" {
		key = "knowledgebase:audit"
	}
	return &ValkeyRepository{client: client, key: key}
}

// Append pushes the JSON encoded entry onto the head of the list.
func (r *ValkeyRepository) Append(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.Do(ctx, r.client.B().Lpush().Key(r.key).Element(string(payload)).Build()).Error()
}

// List reads one window with LRANGE; the total comes from LLEN.
func (r *ValkeyRepository) List(ctx context.Context, page audit.Page) ([]audit.Entry, int64, error) {
	total, err := r.client.Do(ctx, r.client.B().Llen().Key(r.key).Build()).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	if page.Limit <= 0 || int64(page.Offset) >= total {
		return []audit.Entry{}, total, nil
	}
	start := int64(page.Offset)
	stop := start + int64(page.Limit) - 1
	items, err := r.client.Do(ctx, r.client.B().Lrange().Key(r.key).Start(start).Stop(stop).Build()).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return []audit.Entry{}, total, nil
		}
		return nil, 0, err
	}
	out := make([]audit.Entry, 0, len(items))
	for _, item := range items {
		var entry audit.Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, 0, err
		}
		out = append(out, entry)
	}
	return out, total, nil
}

var _ audit.Repository = (*ValkeyRepository)(nil)
