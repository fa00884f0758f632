package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/knowledgebase/internal/domain/audit"
	"github.com/yanqian/knowledgebase/internal/infra/auditrepo"
	apperrors "github.com/yanqian/knowledgebase/pkg/errors"
)

type failingRepository struct{}

func (failingRepository) Append(context.Context, audit.Entry) error {
	return errors.New("store offline")
}

func (failingRepository) List(context.Context, audit.Page) ([]audit.Entry, int64, error) {
	return nil, 0, errors.New("store offline")
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordFillsDefaults(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	repo := auditrepo.NewMemoryRepository()
	svc := audit.NewService(repo, func() time.Time { return fixed }, newLogger())

	entry, err := svc.Record(context.Background(), audit.Entry{
		IPAddress:      "192.0.2.1",
		Endpoint:       "/questions",
		Method:         "GET",
		ResponseStatus: 200,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, entry.ID)
	require.Equal(t, fixed, entry.Timestamp)
	require.Equal(t, audit.UnknownUserAgent, entry.UserAgent)

	page, err := svc.List(context.Background(), audit.Page{Limit: audit.DefaultListLimit})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, entry, page.Logs[0])
}

func TestListValidatesWindow(t *testing.T) {
	svc := audit.NewService(auditrepo.NewMemoryRepository(), nil, newLogger())
	ctx := context.Background()

	page, err := svc.List(ctx, audit.Page{Limit: 10})
	require.NoError(t, err)
	require.NotNil(t, page.Logs)
	require.Zero(t, page.Total)

	for _, p := range []audit.Page{{Limit: 0}, {Limit: 101}, {Limit: 10, Offset: -1}} {
		_, err := svc.List(ctx, p)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput), "page %+v", p)
	}
}

func TestStoreFailuresAreStorageErrors(t *testing.T) {
	svc := audit.NewService(failingRepository{}, nil, newLogger())
	ctx := context.Background()

	_, err := svc.Record(ctx, audit.Entry{Endpoint: "/health"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeStorageError))

	_, err = svc.List(ctx, audit.Page{Limit: 1})
	require.True(t, apperrors.IsCode(err, apperrors.CodeStorageError))
}
