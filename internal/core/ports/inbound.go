package ports

import (
	"context"

	"github.com/halden-labs/answercore/internal/core/domain"
)

// SearchService returns scored candidates without synthesis.
type SearchService interface {
	Search(ctx context.Context, query domain.Query) (*domain.SearchResult, error)
}

// AnswerService runs the full cache/retrieve/rerank/cite/score/guard
// pipeline.
type AnswerService interface {
	Answer(ctx context.Context, query domain.Query) (*domain.Answer, error)
}
