package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/halden-labs/answercore/internal/core/domain"
)

// retrieve issues the index lookups selected by the query mode and blends
// the results. Lookup failures and timeouts degrade to empty evidence.
func (p *Pipeline) retrieve(ctx context.Context, query domain.Query, k int) []domain.Candidate {
	var semantic, lexical []domain.IndexHit

	switch query.Mode {
	case domain.ModeLexical:
		lexical = p.lexicalHits(ctx, query.Tenant, query.Text, k)
	case domain.ModeSemantic:
		semantic = p.semanticHits(ctx, query.Tenant, query.Text, k)
	default:
		semantic = p.semanticHits(ctx, query.Tenant, query.Text, k)
		lexical = p.lexicalHits(ctx, query.Tenant, query.Text, k)
	}

	return blendCandidates(semantic, lexical, p.cfg.Alpha)
}

func (p *Pipeline) lexicalHits(ctx context.Context, tenant, text string, k int) []domain.IndexHit {
	if p.index == nil {
		return nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.RetrievalTimeout)
	defer cancel()

	hits, err := p.index.SearchLexical(lookupCtx, tenant, text, k)
	if err != nil {
		slog.Warn("lexical_lookup_degraded", "tenant", tenant, "error", err)
		return nil
	}
	return hits
}

func (p *Pipeline) semanticHits(ctx context.Context, tenant, text string, k int) []domain.IndexHit {
	if p.index == nil || p.embedder == nil {
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
	vector, err := p.embedder.EmbedQuery(embedCtx, text)
	cancel()
	if err != nil || len(vector) == 0 {
		slog.Warn("query_embedding_degraded", "tenant", tenant, "error", err)
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.RetrievalTimeout)
	defer cancel()

	hits, err := p.index.SearchSemantic(lookupCtx, tenant, vector, k)
	if err != nil {
		slog.Warn("semantic_lookup_degraded", "tenant", tenant, "error", err)
		return nil
	}
	return hits
}

// blendCandidates merges the two result lists by source id and computes
// combined = alpha*semantic + (1-alpha)*lexical over per-list normalized
// scores. When one list is empty the combined score degrades to the other
// component. Ties keep the semantic sub-query order.
func blendCandidates(semantic, lexical []domain.IndexHit, alpha float64) []domain.Candidate {
	if len(semantic) == 0 && len(lexical) == 0 {
		return nil
	}
	if len(semantic) == 0 {
		alpha = 0
	}
	if len(lexical) == 0 {
		alpha = 1
	}

	semScores := normalizeScores(semantic)
	lexScores := normalizeScores(lexical)

	out := make([]domain.Candidate, 0, len(semantic)+len(lexical))
	bySource := make(map[string]int, len(semantic)+len(lexical))

	for i, hit := range semantic {
		bySource[hit.SourceID] = len(out)
		out = append(out, domain.Candidate{
			SourceID:      hit.SourceID,
			Text:          hit.Text,
			SemanticScore: semScores[i],
		})
	}
	for i, hit := range lexical {
		if at, ok := bySource[hit.SourceID]; ok {
			out[at].LexicalScore = lexScores[i]
			if out[at].Text == "" {
				out[at].Text = hit.Text
			}
			continue
		}
		bySource[hit.SourceID] = len(out)
		out = append(out, domain.Candidate{
			SourceID:     hit.SourceID,
			Text:         hit.Text,
			LexicalScore: lexScores[i],
		})
	}

	for i := range out {
		out[i].CombinedScore = clamp01(alpha*out[i].SemanticScore + (1-alpha)*out[i].LexicalScore)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CombinedScore > out[j].CombinedScore
	})
	return out
}

// normalizeScores maps raw index scores to [0,1] within their own result
// set. A degenerate set maps positive scores to 1 and the rest to 0.
func normalizeScores(hits []domain.IndexHit) []float64 {
	if len(hits) == 0 {
		return nil
	}

	minScore := hits[0].Score
	maxScore := hits[0].Score
	for _, hit := range hits[1:] {
		if hit.Score < minScore {
			minScore = hit.Score
		}
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}

	out := make([]float64, len(hits))
	scoreRange := maxScore - minScore
	for i, hit := range hits {
		if scoreRange <= 0 {
			if hit.Score > 0 {
				out[i] = 1
			}
			continue
		}
		out[i] = (hit.Score - minScore) / scoreRange
	}
	return out
}
