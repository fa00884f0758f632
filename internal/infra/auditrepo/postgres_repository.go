package auditrepo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/knowledgebase/internal/domain/audit"
)

// PostgresRepository stores audit entries in the audit_logs table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append inserts one entry. The pooled connection is released before returning.
func (r *PostgresRepository) Append(ctx context.Context, entry audit.Entry) error {
	var body *string
	if len(entry.RequestBody) > 0 {
		raw := string(entry.RequestBody)
		body = &raw
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, ip_address, endpoint, method, user_agent, request_body, response_status, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
	`, entry.ID, entry.IPAddress, entry.Endpoint, entry.Method, entry.UserAgent, body, entry.ResponseStatus, entry.Timestamp)
	return err
}

// List returns one page, newest first.
func (r *PostgresRepository) List(ctx context.Context, page audit.Page) ([]audit.Entry, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, ip_address, endpoint, method, user_agent, request_body::text, response_status, timestamp
		FROM audit_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]audit.Entry, 0, page.Limit)
	for rows.Next() {
		var (
			entry audit.Entry
			body  sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.IPAddress, &entry.Endpoint, &entry.Method, &entry.UserAgent, &body, &entry.ResponseStatus, &entry.Timestamp); err != nil {
			return nil, 0, err
		}
		if body.Valid {
			entry.RequestBody = json.RawMessage(body.String)
		}
		out = append(out, entry)
	}
	return out, total, rows.Err()
}

var _ audit.Repository = (*PostgresRepository)(nil)
