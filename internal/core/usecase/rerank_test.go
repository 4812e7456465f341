package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/halden-labs/answercore/internal/core/domain"
)

func rerankPipeline(embedder *fakeEmbedder) *Pipeline {
	if embedder == nil {
		return NewPipeline(DefaultConfig(), nil, nil, nil, nil, nil, nil)
	}
	return NewPipeline(DefaultConfig(), nil, embedder, nil, nil, nil, nil)
}

func TestRerankEmbedStrategy(t *testing.T) {
	candidates := []domain.Candidate{
		{SourceID: "far", Text: "far text", CombinedScore: 0.9},
		{SourceID: "near", Text: "near text", CombinedScore: 0.1},
	}
	embedder := &fakeEmbedder{
		queryVector: []float32{1, 0},
		vectors: map[string][]float32{
			"far text":  {0, 1},
			"near text": {1, 0},
		},
	}
	p := rerankPipeline(embedder)

	ranked, strategy := p.rerank(context.Background(), domain.Query{Tenant: "acme", Text: "near"}, candidates, 2)
	if strategy != domain.StrategyEmbed {
		t.Fatalf("strategy = %q, want embed", strategy)
	}
	if ranked[0].SourceID != "near" {
		t.Errorf("top = %q, want near (cosine beats combined score)", ranked[0].SourceID)
	}
	if ranked[0].Strategy != domain.StrategyEmbed {
		t.Errorf("candidate strategy = %q, want embed", ranked[0].Strategy)
	}
}

func TestRerankFallsBackToTokenOnEmbedFailure(t *testing.T) {
	candidates := []domain.Candidate{
		{SourceID: "a", Text: "nothing shared here"},
		{SourceID: "b", Text: "valve overhaul checklist"},
	}
	p := rerankPipeline(&fakeEmbedder{queryErr: errors.New("embedder down")})

	ranked, strategy := p.rerank(context.Background(), domain.Query{Tenant: "acme", Text: "valve overhaul"}, candidates, 2)
	if strategy != domain.StrategyToken {
		t.Fatalf("strategy = %q, want token fallback", strategy)
	}
	if ranked[0].SourceID != "b" || ranked[0].RerankScore != 2 {
		t.Errorf("top = %q score %v, want b with overlap 2", ranked[0].SourceID, ranked[0].RerankScore)
	}
}

func TestRerankNoneWhenQueryHasNoTokens(t *testing.T) {
	candidates := []domain.Candidate{
		{SourceID: "first", Text: "one"},
		{SourceID: "second", Text: "two"},
	}
	p := rerankPipeline(nil)

	ranked, strategy := p.rerank(context.Background(), domain.Query{Tenant: "acme", Text: "!!! ???"}, candidates, 2)
	if strategy != domain.StrategyNone {
		t.Fatalf("strategy = %q, want none", strategy)
	}
	if ranked[0].SourceID != "first" || ranked[1].SourceID != "second" {
		t.Errorf("order changed under none strategy: %+v", ranked)
	}
}

func TestRerankCapsQueryTokens(t *testing.T) {
	// Nine distinct query tokens; only the first eight participate, so a
	// candidate matching just the ninth scores zero.
	query := "t1 t2 t3 t4 t5 t6 t7 t8 t9"
	candidates := []domain.Candidate{
		{SourceID: "late", Text: "t9 only appears here"},
		{SourceID: "early", Text: "t1 opens the document"},
	}
	p := rerankPipeline(nil)

	ranked, strategy := p.rerank(context.Background(), domain.Query{Tenant: "acme", Text: query}, candidates, 2)
	if strategy != domain.StrategyToken {
		t.Fatalf("strategy = %q, want token", strategy)
	}
	if ranked[0].SourceID != "early" {
		t.Errorf("top = %q, want early (t9 is past the token cap)", ranked[0].SourceID)
	}
	if ranked[1].RerankScore != 0 {
		t.Errorf("late score = %v, want 0", ranked[1].RerankScore)
	}
}

func TestRerankStableTies(t *testing.T) {
	candidates := []domain.Candidate{
		{SourceID: "first", Text: "shared token"},
		{SourceID: "second", Text: "shared token"},
		{SourceID: "third", Text: "shared token"},
	}
	p := rerankPipeline(nil)

	ranked, _ := p.rerank(context.Background(), domain.Query{Tenant: "acme", Text: "shared"}, candidates, 3)
	for i, want := range []string{"first", "second", "third"} {
		if ranked[i].SourceID != want {
			t.Fatalf("tie order broken at %d: got %q, want %q", i, ranked[i].SourceID, want)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero norm", []float32{0, 0}, []float32{1, 1}, 0},
		{"dimension mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cosineSimilarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("cosine = %v, want %v", got, tc.want)
			}
		})
	}
}
