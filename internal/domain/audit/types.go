package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UnknownUserAgent is recorded when the request carries no User-Agent header.
const UnknownUserAgent = "unknown"

// Entry is one audited HTTP request.
type Entry struct {
	ID             uuid.UUID       `json:"id"`
	IPAddress      string          `json:"ip_address"`
	Endpoint       string          `json:"endpoint"`
	Method         string          `json:"method"`
	UserAgent      string          `json:"user_agent"`
	RequestBody    json.RawMessage `json:"request_body"`
	ResponseStatus int             `json:"response_status"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Page is an offset/limit window over the log.
type Page struct {
	Limit  int
	Offset int
}

// ListResult is a page of entries, newest first, plus the total count.
type ListResult struct {
	Total int64   `json:"total"`
	Logs  []Entry `json:"logs"`
}
