package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/halden-labs/answercore/internal/core/domain"
)

// assembleCitations deduplicates candidates by source id, keeps the
// highest-scoring occurrence as representative, expands it with neighboring
// spans when the passage store offers them, and marks query-token
// highlights.
func (p *Pipeline) assembleCitations(
	ctx context.Context,
	query domain.Query,
	candidates []domain.RerankedCandidate,
) []domain.Citation {
	if len(candidates) == 0 {
		return nil
	}

	type group struct {
		best  domain.RerankedCandidate
		count int
	}

	groups := make(map[string]*group, len(candidates))
	ordered := make([]*group, 0, len(candidates))
	for _, candidate := range candidates {
		g, ok := groups[candidate.SourceID]
		if !ok {
			g = &group{best: candidate}
			groups[candidate.SourceID] = g
			ordered = append(ordered, g)
		}
		g.count++
		if rankScore(candidate) > rankScore(g.best) {
			g.best = candidate
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return rankScore(ordered[i].best) > rankScore(ordered[j].best)
	})
	if len(ordered) > p.cfg.MaxCitations {
		ordered = ordered[:p.cfg.MaxCitations]
	}

	queryTokens := uniqueTokens(query.Text, 0)
	out := make([]domain.Citation, 0, len(ordered))
	for _, g := range ordered {
		snippet := p.expandSnippet(ctx, g.best)
		out = append(out, domain.Citation{
			SourceID:   g.best.SourceID,
			Snippet:    snippet,
			Count:      g.count,
			Highlights: highlightSpans(snippet, queryTokens, p.cfg.MaxHighlights),
		})
	}
	return out
}

func rankScore(candidate domain.RerankedCandidate) float64 {
	if candidate.Strategy != domain.StrategyNone {
		return candidate.RerankScore
	}
	return candidate.CombinedScore
}

func (p *Pipeline) expandSnippet(ctx context.Context, candidate domain.RerankedCandidate) string {
	text := strings.TrimSpace(candidate.Text)
	if p.passages != nil {
		neighbors, err := p.passages.Neighbors(ctx, candidate.SourceID)
		if err != nil {
			slog.Debug("neighbor_lookup_degraded", "source_id", candidate.SourceID, "error", err)
		} else {
			parts := make([]string, 0, 3)
			if neighbors.Before != "" {
				parts = append(parts, neighbors.Before)
			}
			parts = append(parts, text)
			if neighbors.After != "" {
				parts = append(parts, neighbors.After)
			}
			text = strings.Join(parts, " ")
		}
	}
	return truncateRunes(text, p.cfg.SnippetMaxChars)
}

// highlightSpans finds case-insensitive, non-overlapping query-token ranges
// within the snippet, capped at limit spans, ordered by start offset. Offsets
// count runes, not bytes, so multi-byte snippets stay addressable; lowering
// happens rune by rune because strings.ToLower can change byte lengths.
func highlightSpans(snippet string, tokens []string, limit int) []domain.HighlightSpan {
	if snippet == "" || len(tokens) == 0 || limit <= 0 {
		return nil
	}

	runes := []rune(snippet)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	var spans []domain.HighlightSpan
	for _, token := range tokens {
		needle := []rune(token)
		if len(needle) == 0 {
			continue
		}
		offset := 0
		for len(spans) < limit {
			idx := indexRunes(lower[offset:], needle)
			if idx < 0 {
				break
			}
			start := offset + idx
			end := start + len(needle)
			if !overlapsAny(spans, start, end) {
				spans = append(spans, domain.HighlightSpan{Start: start, End: end})
			}
			offset = end
		}
		if len(spans) >= limit {
			break
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

func indexRunes(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		matched := true
		for j, r := range needle {
			if haystack[i+j] != r {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}

func overlapsAny(spans []domain.HighlightSpan, start, end int) bool {
	for _, span := range spans {
		if start < span.End && end > span.Start {
			return true
		}
	}
	return false
}
