package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/knowledgebase/internal/domain/audit"
	"github.com/yanqian/knowledgebase/internal/domain/question"
	"github.com/yanqian/knowledgebase/internal/infra/embedder"
	"github.com/yanqian/knowledgebase/internal/infra/questionrepo"
)

type stubAudit struct {
	mu       sync.Mutex
	entries  []audit.Entry
	ctxErrs  []error
	recordFn func(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

func (s *stubAudit) Record(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	s.mu.Unlock()
	if s.recordFn != nil {
		return s.recordFn(ctx, entry)
	}
	return entry, nil
}

func (s *stubAudit) List(context.Context, audit.Page) (audit.ListResult, error) {
	return audit.ListResult{Logs: []audit.Entry{}}, nil
}

func newAuditedServer(t *testing.T, auditSvc audit.Service) *http.Server {
	t.Helper()
	logger := newTestLogger()
	questionSvc := question.NewService(question.Config{}, questionrepo.NewMemoryRepository(nil), embedder.NewDeterministicEmbedder(0), logger)
	return NewRouter(newTestConfig(), NewHandler(questionSvc, auditSvc, logger), logger)
}

func TestAudit_RecordsJSONBodyAndStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.create(t, "q", "a")

	logs, total, err := env.audit.List(context.Background(), audit.Page{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	entry := logs[0]
	require.Equal(t, "/questions", entry.Endpoint)
	require.Equal(t, http.MethodPost, entry.Method)
	require.Equal(t, http.StatusCreated, entry.ResponseStatus)
	require.Equal(t, "192.0.2.1", entry.IPAddress)
	require.Equal(t, audit.UnknownUserAgent, entry.UserAgent)
	require.JSONEq(t, `{"question_text":"q","answer_text":"a"}`, string(entry.RequestBody))
	require.False(t, entry.Timestamp.IsZero())
}

func TestAudit_InvalidJSONBodyIsNullButRequestContinues(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/questions", strings.NewReader("not json"))
	req.Header.Set("User-Agent", "curl/8.4.0")
	rec := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	logs, _, err := env.audit.List(context.Background(), audit.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Nil(t, logs[0].RequestBody)
	require.Equal(t, "curl/8.4.0", logs[0].UserAgent)
	require.Equal(t, http.StatusBadRequest, logs[0].ResponseStatus)
}

func TestAudit_BodyIsRestoredForHandlers(t *testing.T) {
	stub := &stubAudit{}
	server := newAuditedServer(t, stub)

	payload := `{"question_text":"` + strings.Repeat("x", 2048) + `","answer_text":"a"}`
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/questions", bytes.NewBufferString(payload)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created question.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.QuestionText, 2048)
	require.Len(t, stub.entries, 1)
	require.JSONEq(t, payload, string(stub.entries[0].RequestBody))
}

func TestAudit_OversizedBodyIsNotCaptured(t *testing.T) {
	stub := &stubAudit{}
	server := newAuditedServer(t, stub)

	payload := `{"query":"` + strings.Repeat("y", maxAuditBody) + `"}`
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/questions/search", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, "handler still sees the full body")
	require.Len(t, stub.entries, 1)
	require.Nil(t, stub.entries[0].RequestBody)
}

func TestAudit_StoreFailureDoesNotChangeResponse(t *testing.T) {
	stub := &stubAudit{recordFn: func(context.Context, audit.Entry) (audit.Entry, error) {
		return audit.Entry{}, errors.New("audit store down")
	}}
	server := newAuditedServer(t, stub)

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Len(t, stub.entries, 1)
}

func TestAudit_WriteSurvivesCancelledRequest(t *testing.T) {
	stub := &stubAudit{}
	server := newAuditedServer(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)
	server.Handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, stub.ctxErrs, 1)
	require.NoError(t, stub.ctxErrs[0])
}

func TestAudit_ErrorResponsesAreRecordedWithFinalStatus(t *testing.T) {
	stub := &stubAudit{}
	server := newAuditedServer(t, stub)

	server.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/questions/42", nil))
	require.Len(t, stub.entries, 1)
	require.Equal(t, http.StatusNotFound, stub.entries[0].ResponseStatus)
	require.Equal(t, "/questions/42", stub.entries[0].Endpoint)
}

func TestAudit_RecordsPreflightAndUnmatchedRoutes(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/nope", "").Code)
	require.Equal(t, http.StatusNoContent, env.do(http.MethodOptions, "/questions", "").Code)

	logs, total, err := env.audit.List(context.Background(), audit.Page{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, http.MethodOptions, logs[0].Method)
	require.Equal(t, "/questions", logs[0].Endpoint)
	require.Equal(t, http.StatusNoContent, logs[0].ResponseStatus)
	require.Equal(t, http.MethodGet, logs[1].Method)
	require.Equal(t, "/nope", logs[1].Endpoint)
	require.Equal(t, http.StatusNotFound, logs[1].ResponseStatus)
}

func TestAudit_SkipsMetricsScrapes(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/metrics", "").Code)

	_, total, err := env.audit.List(context.Background(), audit.Page{Limit: 10})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestLogsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodGet, "/health", "")
	env.do(http.MethodGet, "/questions/7", "")

	rec := env.do(http.MethodGet, "/logs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page audit.ListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.EqualValues(t, 2, page.Total)
	require.Len(t, page.Logs, 1)
	require.Equal(t, "/questions/7", page.Logs[0].Endpoint)

	rec = env.do(http.MethodGet, "/logs?limit=500", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
