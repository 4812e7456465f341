package usecase

import (
	"math"
	"testing"

	"github.com/halden-labs/answercore/internal/core/domain"
)

func TestBlendCandidatesHybrid(t *testing.T) {
	semantic := []domain.IndexHit{
		{SourceID: "a", Text: "alpha", Score: 0.9},
		{SourceID: "b", Text: "beta", Score: 0.5},
	}
	lexical := []domain.IndexHit{
		{SourceID: "b", Text: "beta", Score: 12},
		{SourceID: "c", Text: "gamma", Score: 4},
	}

	out := blendCandidates(semantic, lexical, 0.6)
	if len(out) != 3 {
		t.Fatalf("candidates = %d, want 3 merged by source id", len(out))
	}

	byID := make(map[string]domain.Candidate, len(out))
	for _, c := range out {
		byID[c.SourceID] = c
	}

	// a: semantic-only, normalized semantic 1 -> 0.6*1.
	if got := byID["a"].CombinedScore; math.Abs(got-0.6) > 1e-9 {
		t.Errorf("a combined = %v, want 0.6", got)
	}
	// b: normalized semantic 0, normalized lexical 1 -> 0.4*1.
	if got := byID["b"].CombinedScore; math.Abs(got-0.4) > 1e-9 {
		t.Errorf("b combined = %v, want 0.4", got)
	}
	// c: lexical-only, normalized lexical 0.
	if got := byID["c"].CombinedScore; got != 0 {
		t.Errorf("c combined = %v, want 0", got)
	}

	if out[0].SourceID != "a" {
		t.Errorf("top candidate = %q, want a", out[0].SourceID)
	}
}

func TestBlendCandidatesDegradesToSingleSignal(t *testing.T) {
	lexical := []domain.IndexHit{
		{SourceID: "a", Score: 10},
		{SourceID: "b", Score: 5},
	}

	out := blendCandidates(nil, lexical, 0.6)
	if len(out) != 2 {
		t.Fatalf("candidates = %d, want 2", len(out))
	}
	if out[0].CombinedScore != 1 || out[1].CombinedScore != 0 {
		t.Errorf("combined = %v/%v, want full lexical weight 1/0", out[0].CombinedScore, out[1].CombinedScore)
	}

	semantic := []domain.IndexHit{{SourceID: "a", Score: 0.7}}
	out = blendCandidates(semantic, nil, 0.6)
	if len(out) != 1 || out[0].CombinedScore != 1 {
		t.Errorf("semantic-only combined = %+v, want single candidate at 1", out)
	}

	if out := blendCandidates(nil, nil, 0.6); out != nil {
		t.Errorf("empty inputs = %v, want nil", out)
	}
}

func TestBlendCandidatesStableTies(t *testing.T) {
	semantic := []domain.IndexHit{
		{SourceID: "first", Score: 3},
		{SourceID: "second", Score: 3},
		{SourceID: "third", Score: 3},
	}

	out := blendCandidates(semantic, nil, 0.6)
	for i, want := range []string{"first", "second", "third"} {
		if out[i].SourceID != want {
			t.Fatalf("tie order broken at %d: got %q, want %q", i, out[i].SourceID, want)
		}
	}
}

func TestNormalizeScores(t *testing.T) {
	hits := []domain.IndexHit{{Score: 2}, {Score: 6}, {Score: 4}}
	got := normalizeScores(hits)
	want := []float64{0, 1, 0.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("normalized[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNormalizeScoresDegenerate(t *testing.T) {
	got := normalizeScores([]domain.IndexHit{{Score: 5}, {Score: 5}})
	if got[0] != 1 || got[1] != 1 {
		t.Errorf("equal positive scores = %v, want all 1", got)
	}

	got = normalizeScores([]domain.IndexHit{{Score: 0}, {Score: 0}})
	if got[0] != 0 || got[1] != 0 {
		t.Errorf("equal zero scores = %v, want all 0", got)
	}
}
