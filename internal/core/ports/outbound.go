package ports

import (
	"context"
	"time"

	"github.com/halden-labs/answercore/internal/core/domain"
)

// SearchIndex is the external lexical/semantic index capability. Raw scores
// carry each index's own scale; the retriever normalizes per result set.
type SearchIndex interface {
	SearchLexical(ctx context.Context, tenant, query string, k int) ([]domain.IndexHit, error)
	SearchSemantic(ctx context.Context, tenant string, vector []float32, k int) ([]domain.IndexHit, error)
}

// Embedder builds vectors for query text and, during reranking, for
// candidate text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// PassageStore exposes spans adjacent to a cited passage. Optional: absence
// or errors degrade citation quality, never the request.
type PassageStore interface {
	Neighbors(ctx context.Context, sourceID string) (domain.NeighborSpans, error)
}

// AnswerCache is a per-tenant, per-endpoint key/value store with TTL.
// Implementations fail open: a miss and a backing-store outage are
// indistinguishable to callers.
type AnswerCache interface {
	Get(ctx context.Context, tenant, endpoint, params string) ([]byte, bool)
	Put(ctx context.Context, tenant, endpoint, params string, value []byte, ttl time.Duration)
}

// AuditSink records safety-gate outcomes for later review.
type AuditSink interface {
	PublishSafetyEvent(ctx context.Context, event domain.SafetyEvent) error
}

// MetricsEmitter records per-tenant pipeline counters. Implementations must
// never propagate recording failures to the request path.
type MetricsEmitter interface {
	RecordCacheLookup(endpoint, tenant string, hit bool)
	RecordAnswer(tenant, mode string, reranked bool)
	RecordLowConfidence(tenant string)
	RecordRerankStrategy(tenant, strategy string)
	SetLowConfidenceRate(tenant string, rate float64)
}
