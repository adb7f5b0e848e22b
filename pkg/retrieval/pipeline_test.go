package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestPipeline(index Index, scorer *fakeScorer) *Pipeline {
	lane := NewHybridLane(&fakeEmbedder{pair: queryPair()}, index, 60, nil)
	coord := NewCoordinator(lane, CoordinatorConfig{OverFetch: 50, LaneTimeout: time.Second}, nil)
	rr := NewReranker(scorer, DefaultRerankerConfig(), nil)
	return NewPipeline(coord, rr, PipelineConfig{MMRLambda: 0.85, MMRPoolSize: 20, FinalCount: 10}, nil, nil)
}

func TestPipelineEndToEnd(t *testing.T) {
	index := newLaneIndex()
	scorer := &fakeScorer{scores: map[string]float64{}}
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("c%02d", i)
		text := "text-" + id
		index.hits[CollectionCaseLaw] = append(index.hits[CollectionCaseLaw], Hit{
			Doc: DocumentRef{ID: id, Collection: CollectionCaseLaw, Text: text, Year: 2000 + i%20},
		})
		scorer.scores[text] = float64(30-i) / 30
	}
	index.hits[CollectionStatute] = []Hit{
		{Doc: DocumentRef{ID: "s1", Collection: CollectionStatute, Text: "text-s1"}},
	}
	scorer.scores["text-s1"] = 0.95

	p := newTestPipeline(index, scorer)
	got, err := p.Run(context.Background(), "q", Scope{UserID: "u", FirmID: "f"}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(got.Results) != 10 {
		t.Fatalf("len(results) = %d, want final count 10", len(got.Results))
	}
	if got.Status.Degraded() {
		t.Error("Status.Degraded() = true on a healthy run")
	}
	if scorer.calls != 1 {
		t.Errorf("scorer called %d times, want 1 batch call", scorer.calls)
	}
	// MMR pool caps what reaches the scorer.
	if got.Results[0].Doc.ID != "s1" && got.Results[0].BaseScore < got.Results[1].BaseScore {
		t.Error("results not ordered by final score")
	}
}

func TestPipelineSurvivesLaneAndScorerFailure(t *testing.T) {
	index := newLaneIndex()
	index.hits[CollectionStatute] = []Hit{
		{Doc: DocumentRef{ID: "s1", Collection: CollectionStatute, Text: "t1"}, Score: 0.9},
	}
	index.fail[CollectionCaseLaw] = errors.New("pg down")
	index.fail[CollectionUserDocs] = errors.New("pg down")

	p := newTestPipeline(index, &fakeScorer{err: errors.New("scorer down")})
	got, err := p.Run(context.Background(), "q", Scope{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v, want degraded success", err)
	}

	if len(got.Results) != 1 {
		t.Fatalf("len(results) = %d, want 1 from the surviving lane", len(got.Results))
	}
	if !got.Status.DegradedRanking {
		t.Error("DegradedRanking = false after scorer failure")
	}
	available := 0
	for _, ls := range got.Status.Lanes {
		if ls.Available {
			available++
		}
	}
	if available != 1 {
		t.Errorf("available lanes = %d, want 1", available)
	}
}

func TestPipelineAllLanesDownIsFatal(t *testing.T) {
	index := newLaneIndex()
	index.fail[CollectionStatute] = errors.New("down")
	index.fail[CollectionCaseLaw] = errors.New("down")
	index.fail[CollectionUserDocs] = errors.New("down")

	p := newTestPipeline(index, &fakeScorer{})
	_, err := p.Run(context.Background(), "q", Scope{}, nil)
	if !errors.Is(err, ErrAllLanesUnavailable) {
		t.Errorf("Run() error = %v, want ErrAllLanesUnavailable", err)
	}
}

func TestPipelineEmptyCorpus(t *testing.T) {
	p := newTestPipeline(newLaneIndex(), &fakeScorer{})
	got, err := p.Run(context.Background(), "q", Scope{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v, want clean empty result", err)
	}
	if len(got.Results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(got.Results))
	}
	if got.Status.Degraded() {
		t.Error("empty corpus must not report degradation")
	}
}
