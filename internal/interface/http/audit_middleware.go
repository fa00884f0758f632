package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/knowledgebase/internal/domain/audit"
	"github.com/yanqian/knowledgebase/pkg/metrics"
)

// maxAuditBody caps how much of a request body is captured for the audit log.
const maxAuditBody = 1 << 20

// auditMiddleware records one entry per request after downstream handlers have run,
// including preflights and unmatched routes. Routes listed in skip are not recorded.
// Store failures are logged and counted; they never change the response.
func auditMiddleware(svc audit.Service, writeTimeout time.Duration, logger *slog.Logger, skip ...string) gin.HandlerFunc {
	logger = logger.With("component", "http.audit")
	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := skipped[c.FullPath()]; ok && c.FullPath() != "" {
			c.Next()
			return
		}
		body := captureBody(c)

		c.Next()

		entry := audit.Entry{
			IPAddress:      c.ClientIP(),
			Endpoint:       c.Request.URL.Path,
			Method:         c.Request.Method,
			UserAgent:      c.Request.UserAgent(),
			RequestBody:    body,
			ResponseStatus: c.Writer.Status(),
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), writeTimeout)
		defer cancel()
		if _, err := svc.Record(ctx, entry); err != nil {
			metrics.AuditWriteFailures.Inc()
			logger.Warn("audit write failed", "method", entry.Method, "path", entry.Endpoint, "status", entry.ResponseStatus, "error", err)
		}
	}
}

// captureBody reads up to maxAuditBody bytes and puts them back in front of the unread
// remainder. It returns nil unless the captured bytes are a complete JSON document.
func captureBody(c *gin.Context) json.RawMessage {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	original := c.Request.Body
	buf, err := io.ReadAll(io.LimitReader(original, maxAuditBody+1))
	c.Request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(buf), original), Closer: original}
	if err != nil || len(buf) == 0 || len(buf) > maxAuditBody {
		return nil
	}
	if !json.Valid(buf) {
		return nil
	}
	return json.RawMessage(append([]byte(nil), buf...))
}

type readCloser struct {
	io.Reader
	io.Closer
}
