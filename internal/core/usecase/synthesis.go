package usecase

import (
	"strings"

	"github.com/halden-labs/answercore/internal/core/domain"
)

const (
	abstentionMessage = "I don't have enough supporting evidence to answer this question reliably."

	safeDisclosureMessage = "The response was withheld because the supporting material contains redacted personal information."
)

// synthesizeAnswer builds an extractive answer from the leading sentences of
// the top candidates. It is fully deterministic: the same candidate set
// always yields byte-identical text, which keeps cached answers stable.
func synthesizeAnswer(candidates []domain.RerankedCandidate, maxChars int) string {
	if len(candidates) == 0 {
		return ""
	}

	var b strings.Builder
	seen := make(map[string]struct{})
	for _, candidate := range candidates {
		for _, sentence := range splitSentences(candidate.Text) {
			key := strings.ToLower(sentence)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			next := sentence
			if b.Len() > 0 {
				next = " " + sentence
			}
			if maxChars > 0 && b.Len()+len(next) > maxChars {
				if b.Len() == 0 {
					return truncateRunes(sentence, maxChars)
				}
				return b.String()
			}
			b.WriteString(next)
		}
	}
	return b.String()
}
