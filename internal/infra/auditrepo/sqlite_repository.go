package auditrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yanqian/knowledgebase/internal/domain/audit"
)

type auditRow struct {
	ID             string         `gorm:"primaryKey;size:36"`
	IPAddress      string         `gorm:"size:45;not null"`
	Endpoint       string         `gorm:"not null"`
	Method         string         `gorm:"size:10;not null"`
	UserAgent      string         `gorm:"not null"`
	RequestBody    datatypes.JSON `gorm:"type:json"`
	ResponseStatus int            `gorm:"not null"`
	Timestamp      time.Time      `gorm:"not null;index"`
}

func (auditRow) TableName() string { return "audit_logs" }

// SQLiteRepository stores audit entries through gorm.
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository constructs the repository, migrating the table when asked.
func NewSQLiteRepository(db *gorm.DB, autoMigrate bool) (*SQLiteRepository, error) {
	if autoMigrate {
		if err := db.AutoMigrate(&auditRow{}); err != nil {
			return nil, fmt.Errorf("migrate audit_logs: %w", err)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

// Append implements audit.Repository.
func (r *SQLiteRepository) Append(ctx context.Context, entry audit.Entry) error {
	row := auditRow{
		ID:             entry.ID.String(),
		IPAddress:      entry.IPAddress,
		Endpoint:       entry.Endpoint,
		Method:         entry.Method,
		UserAgent:      entry.UserAgent,
		ResponseStatus: entry.ResponseStatus,
		Timestamp:      entry.Timestamp.UTC(),
	}
	if len(entry.RequestBody) > 0 {
		row.RequestBody = datatypes.JSON(entry.RequestBody)
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// List implements audit.Repository. rowid breaks timestamp ties in insertion order.
func (r *SQLiteRepository) List(ctx context.Context, page audit.Page) ([]audit.Entry, int64, error) {
	db := r.db.WithContext(ctx)
	var total int64
	if err := db.Model(&auditRow{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []auditRow
	err := db.Order("timestamp DESC").Order("rowid DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("audit entry id %q: %w", row.ID, err)
		}
		entry := audit.Entry{
			ID:             id,
			IPAddress:      row.IPAddress,
			Endpoint:       row.Endpoint,
			Method:         row.Method,
			UserAgent:      row.UserAgent,
			ResponseStatus: row.ResponseStatus,
			Timestamp:      row.Timestamp.UTC(),
		}
		if len(row.RequestBody) > 0 {
			entry.RequestBody = json.RawMessage(row.RequestBody)
		}
		out = append(out, entry)
	}
	return out, total, nil
}

var _ audit.Repository = (*SQLiteRepository)(nil)
