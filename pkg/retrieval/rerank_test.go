package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type fakeScorer struct {
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeScorer) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(documents))
	for i, doc := range documents {
		out[i] = f.scores[doc]
	}
	return out, nil
}

func newTestReranker(scorer *fakeScorer) *Reranker {
	r := NewReranker(scorer, DefaultRerankerConfig(), nil)
	// Pin the clock so recency math is stable in tests.
	r.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func caseLawCand(id string, year int, authority string) Candidate {
	return Candidate{
		Doc: DocumentRef{
			ID:         id,
			Collection: CollectionCaseLaw,
			Text:       "text-" + id,
			Year:       year,
			Authority:  authority,
		},
		FusedScore: 0.01,
	}
}

func TestRerankRecencyScore(t *testing.T) {
	tests := []struct {
		name string
		doc  DocumentRef
		want float64
	}{
		{"current year", DocumentRef{Collection: CollectionCaseLaw, Year: 2025}, 1.0},
		{"floor year", DocumentRef{Collection: CollectionCaseLaw, Year: 1900}, 0.0},
		{"pre-floor clipped", DocumentRef{Collection: CollectionCaseLaw, Year: 1850}, 0.0},
		{"future clipped", DocumentRef{Collection: CollectionCaseLaw, Year: 2030}, 1.0},
		{"midpoint", DocumentRef{Collection: CollectionCaseLaw, Year: 2000}, 0.8},
		{"statute is neutral", DocumentRef{Collection: CollectionStatute, Year: 2024}, 0.5},
		{"undated is neutral", DocumentRef{Collection: CollectionCaseLaw, Year: 0}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recencyScore(tt.doc, 2025); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("recencyScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRerankAuthorityBoost(t *testing.T) {
	tests := []struct {
		authority string
		want      float64
	}{
		{AuthoritySupreme, 1},
		{AuthorityPublished, 1},
		{AuthorityCantonal, 0},
		{AuthorityUnrated, 0},
	}

	for _, tt := range tests {
		doc := DocumentRef{Authority: tt.authority}
		if got := authorityBoost(doc); got != tt.want {
			t.Errorf("authorityBoost(%q) = %v, want %v", tt.authority, got, tt.want)
		}
	}
}

func TestRerankCombinesSignals(t *testing.T) {
	// Equal base scores: the newer, higher-authority decision must win.
	scorer := &fakeScorer{scores: map[string]float64{
		"text-old": 0.8,
		"text-new": 0.8,
	}}
	r := newTestReranker(scorer)

	candidates := []Candidate{
		caseLawCand("old", 1990, AuthorityUnrated),
		caseLawCand("new", 2024, AuthoritySupreme),
	}

	got := r.Rerank(context.Background(), "q", candidates, 10)
	if got.Degraded {
		t.Fatal("Degraded = true with a healthy scorer")
	}
	if got.Results[0].Doc.ID != "new" {
		t.Errorf("top result = %s, want new", got.Results[0].Doc.ID)
	}

	top := got.Results[0]
	wantFinal := 0.8 + 0.10*top.RecencyScore + 0.10*1.0
	if math.Abs(top.FinalScore-wantFinal) > 1e-9 {
		t.Errorf("FinalScore = %v, want %v", top.FinalScore, wantFinal)
	}
}

func TestRerankBaseScoreDominates(t *testing.T) {
	// A clearly better base score must not be overturned by the boosts.
	scorer := &fakeScorer{scores: map[string]float64{
		"text-relevant":   0.9,
		"text-irrelevant": 0.3,
	}}
	r := newTestReranker(scorer)

	candidates := []Candidate{
		caseLawCand("irrelevant", 2025, AuthoritySupreme),
		caseLawCand("relevant", 1950, AuthorityUnrated),
	}

	got := r.Rerank(context.Background(), "q", candidates, 10)
	if got.Results[0].Doc.ID != "relevant" {
		t.Errorf("top result = %s, want relevant despite boosts", got.Results[0].Doc.ID)
	}
}

func TestRerankDegradedFallback(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("scorer down")}
	r := newTestReranker(scorer)

	candidates := []Candidate{
		caseLawCand("weak", 0, AuthorityUnrated),
		caseLawCand("strong", 0, AuthorityUnrated),
	}
	candidates[0].FusedScore = 0.01
	candidates[1].FusedScore = 0.03

	got := r.Rerank(context.Background(), "q", candidates, 10)
	if !got.Degraded {
		t.Fatal("Degraded = false after scorer failure")
	}
	if got.Results[0].Doc.ID != "strong" {
		t.Errorf("top result = %s, want fused-score ordering", got.Results[0].Doc.ID)
	}
	for _, sc := range got.Results {
		if !sc.Degraded {
			t.Errorf("result %s not flagged degraded", sc.Doc.ID)
		}
	}
}

func TestRerankContentDedup(t *testing.T) {
	scorer := &fakeScorer{scores: map[string]float64{
		"text-a": 0.9,
		"text-b": 0.8,
		"text-c": 0.7,
	}}
	r := newTestReranker(scorer)

	a := caseLawCand("a", 2020, AuthorityUnrated)
	a.Doc.ContentKey = "BGE 147 III 89 chunk 1"
	b := caseLawCand("b", 2020, AuthorityUnrated)
	b.Doc.ContentKey = "bge 147 iii 89_chunk_2"
	c := caseLawCand("c", 2020, AuthorityUnrated)
	c.Doc.ContentKey = "BGE 150 II 14 chunk 1"

	got := r.Rerank(context.Background(), "q", []Candidate{a, b, c}, 10)
	if len(got.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2 after content dedup", len(got.Results))
	}
	if got.Results[0].Doc.ID != "a" {
		t.Errorf("kept occurrence = %s, want the higher-ranked a", got.Results[0].Doc.ID)
	}
	if got.Results[1].Doc.ID != "c" {
		t.Errorf("second result = %s, want c", got.Results[1].Doc.ID)
	}
}

func TestRerankTruncatesToFinalCount(t *testing.T) {
	scores := map[string]float64{}
	var candidates []Candidate
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		cand := caseLawCand(id, 2000+i, AuthorityUnrated)
		scores[cand.Doc.Text] = float64(i) / 20
		candidates = append(candidates, cand)
	}
	r := newTestReranker(&fakeScorer{scores: scores})

	got := r.Rerank(context.Background(), "q", candidates, 10)
	if len(got.Results) != 10 {
		t.Errorf("len(results) = %d, want 10", len(got.Results))
	}
}

func TestRerankEmptyInput(t *testing.T) {
	r := newTestReranker(&fakeScorer{})
	got := r.Rerank(context.Background(), "q", nil, 10)
	if len(got.Results) != 0 || got.Degraded {
		t.Errorf("empty input: results=%d degraded=%v, want 0/false", len(got.Results), got.Degraded)
	}
}

func TestNormalizedContentKey(t *testing.T) {
	tests := []struct {
		name string
		doc  DocumentRef
		want string
	}{
		{"chunk suffix stripped", DocumentRef{ContentKey: "BGE 147 III 89 chunk 3"}, "BGE-147-III-89"},
		{"underscore separators", DocumentRef{ContentKey: "bge_147_iii_89_chunk_12"}, "BGE_147_III_89"},
		{"falls back to id", DocumentRef{ID: "doc-9"}, "DOC-9"},
		{"collapses spaces", DocumentRef{ContentKey: "Art  123  OR"}, "ART-123-OR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.NormalizedContentKey(); got != tt.want {
				t.Errorf("NormalizedContentKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
