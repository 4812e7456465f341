package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/halden-labs/answercore/internal/core/domain"
	"github.com/halden-labs/answercore/internal/core/ports"
)

const (
	endpointSearch = "search"
	endpointAnswer = "answer"
)

// Config carries every tunable of the pipeline so thresholds and weights can
// be changed without code changes.
type Config struct {
	Alpha               float64
	DefaultK            int
	MaxK                int
	MaxRerankCandidates int
	RerankQueryTokenCap int

	SnippetMaxChars int
	MaxCitations    int
	MaxHighlights   int
	AnswerMaxChars  int

	CoverageWeight     float64
	StrengthWeight     float64
	SentenceNormFactor float64
	AbstainThreshold   float64
	StatsWindowSize    int

	CacheTTL         time.Duration
	RetrievalTimeout time.Duration
	EmbedTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Alpha:               0.6,
		DefaultK:            5,
		MaxK:                50,
		MaxRerankCandidates: 50,
		RerankQueryTokenCap: 8,

		SnippetMaxChars: 220,
		MaxCitations:    3,
		MaxHighlights:   4,
		AnswerMaxChars:  480,

		CoverageWeight:     0.6,
		StrengthWeight:     0.4,
		SentenceNormFactor: 0.5,
		AbstainThreshold:   0.25,
		StatsWindowSize:    50,

		CacheTTL:         60 * time.Second,
		RetrievalTimeout: 3 * time.Second,
		EmbedTimeout:     3 * time.Second,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.Alpha < 0 || out.Alpha > 1 {
		out.Alpha = def.Alpha
	}
	if out.DefaultK <= 0 {
		out.DefaultK = def.DefaultK
	}
	if out.MaxK <= 0 {
		out.MaxK = def.MaxK
	}
	if out.MaxRerankCandidates <= 0 {
		out.MaxRerankCandidates = def.MaxRerankCandidates
	}
	if out.RerankQueryTokenCap <= 0 {
		out.RerankQueryTokenCap = def.RerankQueryTokenCap
	}
	if out.SnippetMaxChars <= 0 {
		out.SnippetMaxChars = def.SnippetMaxChars
	}
	if out.MaxCitations <= 0 {
		out.MaxCitations = def.MaxCitations
	}
	if out.MaxHighlights <= 0 {
		out.MaxHighlights = def.MaxHighlights
	}
	if out.AnswerMaxChars <= 0 {
		out.AnswerMaxChars = def.AnswerMaxChars
	}
	if out.CoverageWeight <= 0 {
		out.CoverageWeight = def.CoverageWeight
	}
	if out.StrengthWeight <= 0 {
		out.StrengthWeight = def.StrengthWeight
	}
	if out.SentenceNormFactor <= 0 {
		out.SentenceNormFactor = def.SentenceNormFactor
	}
	if out.AbstainThreshold <= 0 {
		out.AbstainThreshold = def.AbstainThreshold
	}
	if out.StatsWindowSize <= 0 {
		out.StatsWindowSize = def.StatsWindowSize
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = def.CacheTTL
	}
	if out.RetrievalTimeout <= 0 {
		out.RetrievalTimeout = def.RetrievalTimeout
	}
	if out.EmbedTimeout <= 0 {
		out.EmbedTimeout = def.EmbedTimeout
	}
	return out
}

// Pipeline implements the search and answer services. All request state is
// local; only the cache, metrics, and tenant stats are shared across
// concurrent requests.
type Pipeline struct {
	cfg      Config
	index    ports.SearchIndex
	embedder ports.Embedder
	passages ports.PassageStore
	cache    ports.AnswerCache
	audit    ports.AuditSink
	metrics  ports.MetricsEmitter
	stats    *TenantStats
}

func NewPipeline(
	cfg Config,
	index ports.SearchIndex,
	embedder ports.Embedder,
	passages ports.PassageStore,
	cache ports.AnswerCache,
	audit ports.AuditSink,
	metrics ports.MetricsEmitter,
) *Pipeline {
	cfg = cfg.normalize()
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Pipeline{
		cfg:      cfg,
		index:    index,
		embedder: embedder,
		passages: passages,
		cache:    cache,
		audit:    audit,
		metrics:  metrics,
		stats:    NewTenantStats(cfg.StatsWindowSize, cfg.AbstainThreshold),
	}
}

// Search retrieves, optionally reranks, and returns scored candidates.
func (p *Pipeline) Search(ctx context.Context, query domain.Query) (*domain.SearchResult, error) {
	query, err := p.validate(query)
	if err != nil {
		return nil, err
	}

	params := cacheParams(query)
	if cached, ok := p.cacheGet(ctx, query.Tenant, endpointSearch, params); ok {
		var result domain.SearchResult
		if err := json.Unmarshal(cached, &result); err == nil {
			p.metrics.RecordCacheLookup(endpointSearch, query.Tenant, true)
			return &result, nil
		}
	}
	p.metrics.RecordCacheLookup(endpointSearch, query.Tenant, false)

	result := p.runSearch(ctx, query)
	p.cachePut(ctx, query.Tenant, endpointSearch, params, result)
	return result, nil
}

// Answer runs the full pipeline and returns a confidence-scored, guarded
// answer. Degraded evidence is absorbed into lower confidence, never into an
// error.
func (p *Pipeline) Answer(ctx context.Context, query domain.Query) (*domain.Answer, error) {
	query, err := p.validate(query)
	if err != nil {
		return nil, err
	}

	params := cacheParams(query)
	if cached, ok := p.cacheGet(ctx, query.Tenant, endpointAnswer, params); ok {
		var answer domain.Answer
		if err := json.Unmarshal(cached, &answer); err == nil {
			p.metrics.RecordCacheLookup(endpointAnswer, query.Tenant, true)
			p.recordAnswer(query, &answer)
			return &answer, nil
		}
	}
	p.metrics.RecordCacheLookup(endpointAnswer, query.Tenant, false)

	result := p.runSearch(ctx, query)
	answer := p.composeAnswer(ctx, query, result)

	p.cachePut(ctx, query.Tenant, endpointAnswer, params, answer)
	p.recordAnswer(query, answer)
	p.publishSafetyEvents(ctx, query, answer)
	return answer, nil
}

func (p *Pipeline) runSearch(ctx context.Context, query domain.Query) *domain.SearchResult {
	fetch := query.K
	rerankRequested := query.Rerank && query.RerankTopK > query.K
	if rerankRequested {
		fetch = query.RerankTopK
	}

	candidates := p.retrieve(ctx, query, fetch)

	if rerankRequested {
		ranked, strategy := p.rerank(ctx, query, candidates, query.K)
		p.metrics.RecordRerankStrategy(query.Tenant, string(strategy))
		return &domain.SearchResult{Candidates: ranked, Reranked: true, RerankUsed: strategy}
	}

	limit := query.K
	if limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]domain.RerankedCandidate, 0, limit)
	for _, c := range candidates[:limit] {
		out = append(out, domain.RerankedCandidate{Candidate: c, Strategy: domain.StrategyNone})
	}
	return &domain.SearchResult{Candidates: out, Reranked: false, RerankUsed: domain.StrategyNone}
}

func (p *Pipeline) composeAnswer(ctx context.Context, query domain.Query, result *domain.SearchResult) *domain.Answer {
	text := synthesizeAnswer(result.Candidates, p.cfg.AnswerMaxChars)
	confidence := p.scoreConfidence(query.Text, text, result.Candidates)

	answer := &domain.Answer{
		Text:       text,
		Confidence: confidence,
		Reranked:   result.Reranked,
		RerankUsed: result.RerankUsed,
		Citations:  []domain.Citation{},
	}

	// The guard scans the synthesized text and takes precedence over
	// abstention: a blocked answer stays blocked whatever its confidence.
	if _, blocked := guardPII(text); blocked {
		answer.Text = safeDisclosureMessage
		answer.PIIBlocked = true
		return answer
	}

	if confidence < p.cfg.AbstainThreshold {
		answer.Text = abstentionMessage
		return answer
	}

	answer.Citations = p.assembleCitations(ctx, query, result.Candidates)
	return answer
}

func (p *Pipeline) validate(query domain.Query) (domain.Query, error) {
	if strings.TrimSpace(query.Tenant) == "" {
		return query, fmt.Errorf("%w: tenant is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(query.Text) == "" {
		return query, fmt.Errorf("%w: query text is required", domain.ErrInvalidInput)
	}

	mode, err := domain.ParseMode(string(query.Mode))
	if err != nil {
		return query, err
	}
	query.Mode = mode

	if query.K == 0 {
		query.K = p.cfg.DefaultK
	}
	if query.K < 1 || query.K > p.cfg.MaxK {
		return query, fmt.Errorf("%w: k must be within [1,%d]", domain.ErrInvalidInput, p.cfg.MaxK)
	}

	if query.Rerank {
		if query.RerankTopK == 0 {
			query.RerankTopK = query.K * 4
			if query.RerankTopK > p.cfg.MaxRerankCandidates {
				query.RerankTopK = p.cfg.MaxRerankCandidates
			}
		}
		if query.RerankTopK < 1 || query.RerankTopK > p.cfg.MaxRerankCandidates {
			return query, fmt.Errorf("%w: rerank_topk must be within [1,%d]", domain.ErrInvalidInput, p.cfg.MaxRerankCandidates)
		}
	} else {
		query.RerankTopK = 0
	}

	return query, nil
}

// cacheParams normalizes query parameters into a stable key fragment so
// semantically identical requests collide.
func cacheParams(query domain.Query) string {
	text := strings.Join(strings.Fields(strings.ToLower(query.Text)), " ")
	return fmt.Sprintf("k=%d&mode=%s&q=%s&rerank=%t&rerank_topk=%d",
		query.K, query.Mode, text, query.Rerank, query.RerankTopK)
}

func (p *Pipeline) cacheGet(ctx context.Context, tenant, endpoint, params string) ([]byte, bool) {
	if p.cache == nil {
		return nil, false
	}
	return p.cache.Get(ctx, tenant, endpoint, params)
}

func (p *Pipeline) cachePut(ctx context.Context, tenant, endpoint, params string, value any) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache_put_skipped", "endpoint", endpoint, "tenant", tenant, "error", err)
		return
	}
	p.cache.Put(ctx, tenant, endpoint, params, data, p.cfg.CacheTTL)
}

func (p *Pipeline) recordAnswer(query domain.Query, answer *domain.Answer) {
	p.metrics.RecordAnswer(query.Tenant, string(query.Mode), answer.Reranked)
	if answer.Confidence < p.cfg.AbstainThreshold {
		p.metrics.RecordLowConfidence(query.Tenant)
	}
	rate := p.stats.Observe(query.Tenant, answer.Confidence)
	p.metrics.SetLowConfidenceRate(query.Tenant, rate)
}

func (p *Pipeline) publishSafetyEvents(ctx context.Context, query domain.Query, answer *domain.Answer) {
	if p.audit == nil {
		return
	}

	reason := ""
	switch {
	case answer.PIIBlocked:
		reason = domain.SafetyReasonPIIBlocked
	case answer.Confidence < p.cfg.AbstainThreshold:
		reason = domain.SafetyReasonLowConfidence
	default:
		return
	}

	event := domain.SafetyEvent{
		Tenant:     query.Tenant,
		Endpoint:   endpointAnswer,
		Reason:     reason,
		Confidence: answer.Confidence,
		At:         time.Now().UTC(),
	}
	if err := p.audit.PublishSafetyEvent(ctx, event); err != nil {
		slog.Warn("audit_publish_failed", "tenant", query.Tenant, "reason", reason, "error", err)
	}
}

// nopMetrics keeps the pipeline usable without an injected registry.
type nopMetrics struct{}

func (nopMetrics) RecordCacheLookup(string, string, bool) {}
func (nopMetrics) RecordAnswer(string, string, bool)      {}
func (nopMetrics) RecordLowConfidence(string)             {}
func (nopMetrics) RecordRerankStrategy(string, string)    {}
func (nopMetrics) SetLowConfidenceRate(string, float64)   {}
