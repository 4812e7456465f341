package domain

import "fmt"

// Mode selects which index lookups the retriever issues.
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLexical, ModeSemantic, ModeHybrid:
		return Mode(s), nil
	case "":
		return ModeHybrid, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
	}
}

// Query is a single request-scoped retrieval question. It is owned by the
// request handler and never shared across requests.
type Query struct {
	Tenant     string `json:"tenant"`
	Text       string `json:"text"`
	Mode       Mode   `json:"mode"`
	K          int    `json:"k"`
	Rerank     bool   `json:"rerank"`
	RerankTopK int    `json:"rerank_topk"`
}

// IndexHit is a raw passage returned by an external index lookup.
type IndexHit struct {
	SourceID string  `json:"source_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// Candidate is a retrieved passage with per-signal and blended scores.
// CombinedScore is always alpha*semantic + (1-alpha)*lexical over the
// normalized per-list scores; when one component list is empty the combined
// score degrades to the other component.
type Candidate struct {
	SourceID      string  `json:"source_id"`
	Text          string  `json:"text"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
	CombinedScore float64 `json:"combined_score"`
}

// RerankStrategy reports which second-pass scoring signal produced the
// final ordering. Callers branch on the reported strategy, never on errors.
type RerankStrategy string

const (
	StrategyEmbed RerankStrategy = "embed"
	StrategyToken RerankStrategy = "token"
	StrategyNone  RerankStrategy = "none"
)

type RerankedCandidate struct {
	Candidate
	RerankScore float64        `json:"rerank_score"`
	Strategy    RerankStrategy `json:"rerank_strategy"`
}

// SearchResult is the outcome of the retrieve+rerank half of the pipeline.
type SearchResult struct {
	Candidates []RerankedCandidate `json:"candidates"`
	Reranked   bool                `json:"reranked"`
	RerankUsed RerankStrategy      `json:"rerank_used"`
}

// NeighborSpans are the passages adjacent to a cited span. Absence of a
// passage store degrades citation quality only.
type NeighborSpans struct {
	Before string
	After  string
}
