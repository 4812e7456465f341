package domain

import "time"

// HighlightSpan is a character range of a query-token match inside a
// citation snippet. Start and End are rune offsets.
type HighlightSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Citation is a deduplicated evidence pointer. Citations are unique by
// SourceID and Count reflects how many retrieved candidates shared it.
type Citation struct {
	SourceID   string          `json:"source_id"`
	Snippet    string          `json:"snippet"`
	Count      int             `json:"count"`
	Highlights []HighlightSpan `json:"highlights,omitempty"`
}

// Answer is a synthesized, confidence-scored response. When PIIBlocked is
// true the text is a fixed safe-disclosure message and citations are dropped
// so the response cannot carry the redaction marker in any field.
type Answer struct {
	Text       string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Citations  []Citation     `json:"citations"`
	Reranked   bool           `json:"reranked"`
	RerankUsed RerankStrategy `json:"rerank_used"`
	PIIBlocked bool           `json:"pii_blocked"`
}

// SafetyEvent is an audit record for a policy-driven response substitution.
type SafetyEvent struct {
	Tenant     string    `json:"tenant"`
	Endpoint   string    `json:"endpoint"`
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

const (
	SafetyReasonPIIBlocked    = "pii_blocked"
	SafetyReasonLowConfidence = "low_confidence"
)
