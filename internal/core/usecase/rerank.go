package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/halden-labs/answercore/internal/core/domain"
)

// rerank narrows an over-fetched candidate set to topK using a fallback
// chain of strategies: embedding cosine similarity, then deterministic token
// overlap, then none (original order preserved). The reported strategy lets
// callers branch without error inspection.
func (p *Pipeline) rerank(
	ctx context.Context,
	query domain.Query,
	candidates []domain.Candidate,
	topK int,
) ([]domain.RerankedCandidate, domain.RerankStrategy) {
	if len(candidates) == 0 {
		return nil, domain.StrategyNone
	}
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}

	if scores, ok := p.embedScores(ctx, query.Tenant, query.Text, candidates); ok {
		return orderByScore(candidates, scores, topK, domain.StrategyEmbed), domain.StrategyEmbed
	}

	// Query tokens are capped at the first distinct terms by position; the
	// truncation order is part of the contract so reruns stay deterministic.
	tokens := uniqueTokens(query.Text, p.cfg.RerankQueryTokenCap)
	if len(tokens) == 0 {
		return keepOriginalOrder(candidates, topK), domain.StrategyNone
	}

	scores := make([]float64, len(candidates))
	for i, candidate := range candidates {
		scores[i] = tokenOverlap(tokens, candidate.Text)
	}
	return orderByScore(candidates, scores, topK, domain.StrategyToken), domain.StrategyToken
}

func (p *Pipeline) embedScores(ctx context.Context, tenant, text string, candidates []domain.Candidate) ([]float64, bool) {
	if p.embedder == nil {
		return nil, false
	}

	embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
	defer cancel()

	queryVector, err := p.embedder.EmbedQuery(embedCtx, text)
	if err != nil || len(queryVector) == 0 {
		slog.Warn("rerank_embed_degraded", "tenant", tenant, "error", err)
		return nil, false
	}

	texts := make([]string, len(candidates))
	for i, candidate := range candidates {
		texts[i] = candidate.Text
	}
	vectors, err := p.embedder.Embed(embedCtx, texts)
	if err != nil || len(vectors) != len(candidates) {
		slog.Warn("rerank_embed_degraded", "tenant", tenant, "error", err)
		return nil, false
	}

	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = cosineSimilarity(queryVector, vectors[i])
	}
	return scores, true
}

// tokenOverlap counts query tokens present in the candidate text.
func tokenOverlap(queryTokens []string, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	candidateTokens := tokenSet(text)
	matches := 0
	for _, token := range queryTokens {
		if _, ok := candidateTokens[token]; ok {
			matches++
		}
	}
	return float64(matches)
}

// cosineSimilarity fails safe to 0 when either vector has zero norm or the
// dimensions disagree.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func orderByScore(
	candidates []domain.Candidate,
	scores []float64,
	topK int,
	strategy domain.RerankStrategy,
) []domain.RerankedCandidate {
	out := make([]domain.RerankedCandidate, len(candidates))
	for i, candidate := range candidates {
		out[i] = domain.RerankedCandidate{
			Candidate:   candidate,
			RerankScore: scores[i],
			Strategy:    strategy,
		}
	}

	// Stable sort keeps the original order as tie-break.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankScore > out[j].RerankScore
	})
	return out[:topK]
}

func keepOriginalOrder(candidates []domain.Candidate, topK int) []domain.RerankedCandidate {
	out := make([]domain.RerankedCandidate, 0, topK)
	for _, candidate := range candidates[:topK] {
		out = append(out, domain.RerankedCandidate{Candidate: candidate, Strategy: domain.StrategyNone})
	}
	return out
}
