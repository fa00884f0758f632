package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/knowledgebase/pkg/errors"
	"github.com/yanqian/knowledgebase/pkg/util"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Service records and lists audit entries.
type Service interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	List(ctx context.Context, page Page) (ListResult, error)
}

type service struct {
	repo   Repository
	now    util.Clock
	logger *slog.Logger
}

// NewService wires up the audit domain. A nil clock uses UTC wall time.
func NewService(repo Repository, clock util.Clock, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		now:    util.ClockOrDefault(clock),
		logger: logger.With("component", "audit.service"),
	}
}

// Record fills in id, timestamp and the user agent default before appending.
func (s *service) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if strings.TrimSpace(entry.UserAgent) == "" {
		entry.UserAgent = UnknownUserAgent
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeStorageError, "failed to append audit entry", err)
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, page Page) (ListResult, error) {
	if page.Limit < 1 || page.Limit > MaxListLimit {
		return ListResult{}, apperrors.Invalid(fmt.Sprintf("limit must be between 1 and %d", MaxListLimit))
	}
	if page.Offset < 0 {
		return ListResult{}, apperrors.Invalid("offset cannot be negative")
	}
	logs, total, err := s.repo.List(ctx, page)
	if err != nil {
		return ListResult{}, apperrors.Wrap(apperrors.CodeStorageError, "failed to list audit entries", err)
	}
	if logs == nil {
		logs = []Entry{}
	}
	return ListResult{Total: total, Logs: logs}, nil
}
