package usecase

import "github.com/halden-labs/answercore/internal/core/domain"

// scoreConfidence blends token coverage of the answer against the query with
// the strength of the retrieved evidence. Both components live in [0,1], so
// with weights summing to one the result does too.
func (p *Pipeline) scoreConfidence(queryText, answerText string, candidates []domain.RerankedCandidate) float64 {
	coverage := tokenCoverage(queryText, answerText, p.cfg.SentenceNormFactor)
	strength := retrievalStrength(candidates)
	return clamp01(p.cfg.CoverageWeight*coverage + p.cfg.StrengthWeight*strength)
}

// tokenCoverage measures how many distinct query tokens appear in the
// answer, normalized by the distinct-token count scaled by a sentence-length
// factor so that long rambling answers do not inflate the score.
func tokenCoverage(queryText, answerText string, sentenceNormFactor float64) float64 {
	queryTokens := uniqueTokens(queryText, 0)
	if len(queryTokens) == 0 || answerText == "" {
		return 0
	}

	answerTokens := tokenSet(answerText)
	matches := 0
	for _, token := range queryTokens {
		if _, ok := answerTokens[token]; ok {
			matches++
		}
	}

	sentenceNorm := float64(countSentences(answerText)) * sentenceNormFactor
	if sentenceNorm < 1 {
		sentenceNorm = 1
	}
	return clamp01(float64(matches) / (float64(len(queryTokens)) * sentenceNorm))
}

// retrievalStrength is the mean combined score of the top three candidates,
// and 0 when fewer than three exist. Thin evidence reads as weak evidence.
func retrievalStrength(candidates []domain.RerankedCandidate) float64 {
	if len(candidates) < 3 {
		return 0
	}

	var sum float64
	for _, candidate := range candidates[:3] {
		sum += candidate.CombinedScore
	}
	return clamp01(sum / 3)
}
