package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes recorded on SearchRequests.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

var (
	// SearchRequests counts similarity searches by outcome.
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledgebase_search_requests_total",
		Help: "Total number of similarity searches by outcome",
	}, []string{"outcome"})

	// SearchDuration covers embedding plus nearest-neighbour retrieval.
	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "knowledgebase_search_duration_seconds",
		Help:    "Time taken to embed a query and rank stored questions",
		Buckets: prometheus.DefBuckets,
	})

	// QuestionMutations counts create/update/delete operations that reached the store.
	QuestionMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledgebase_question_mutations_total",
		Help: "Question mutations by operation",
	}, []string{"operation"})

	// EmbeddingDuration measures a single call to the embedding provider.
	EmbeddingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "knowledgebase_embedding_duration_seconds",
		Help:    "Time taken by the embedding provider",
		Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"provider"})

	// HTTPRequestDuration is recorded by the HTTP middleware per route template.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "knowledgebase_http_request_duration_seconds",
		Help:    "HTTP request latency by route, method and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	// AuditWriteFailures counts audit entries that could not be persisted.
	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knowledgebase_audit_write_failures_total",
		Help: "Audit log entries dropped because the store rejected them",
	})
)
