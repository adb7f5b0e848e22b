package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"legal-research-be/pkg/embedding"
)

type fakeEmbedder struct {
	pair *embedding.Pair
	err  error
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string, kind embedding.Kind) (*embedding.Pair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pair, nil
}

type fakeIndex struct {
	dense     map[Collection][]Hit
	sparse    map[Collection][]Hit
	denseErr  error
	sparseErr error
}

func (f *fakeIndex) SearchDense(ctx context.Context, collection Collection, dense []float32, filter *Filter, limit int) ([]Hit, error) {
	if f.denseErr != nil {
		return nil, f.denseErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := f.dense[collection]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeIndex) SearchSparse(ctx context.Context, collection Collection, sparse map[uint32]float32, filter *Filter, limit int) ([]Hit, error) {
	if f.sparseErr != nil {
		return nil, f.sparseErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := f.sparse[collection]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func hit(id string) Hit {
	return Hit{Doc: DocumentRef{ID: id, Collection: CollectionCaseLaw}}
}

func queryPair() *embedding.Pair {
	return &embedding.Pair{
		Dense:  []float32{1, 0, 0},
		Sparse: map[uint32]float32{7: 0.5},
	}
}

func TestHybridLaneRRFScores(t *testing.T) {
	// doc-a: dense rank 1, sparse rank 2. doc-b: dense rank 2, sparse
	// rank 1. doc-c: dense rank 3 only.
	index := &fakeIndex{
		dense: map[Collection][]Hit{
			CollectionCaseLaw: {hit("doc-a"), hit("doc-b"), hit("doc-c")},
		},
		sparse: map[Collection][]Hit{
			CollectionCaseLaw: {hit("doc-b"), hit("doc-a")},
		},
	}
	lane := NewHybridLane(&fakeEmbedder{pair: queryPair()}, index, 60, nil)

	got, err := lane.Search(context.Background(), "q", LaneConfig{Collection: CollectionCaseLaw, Limit: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(candidates) = %d, want 3", len(got))
	}

	scores := map[string]float64{}
	for _, cand := range got {
		scores[cand.Doc.ID] = cand.FusedScore
	}

	wantA := 1.0/61 + 1.0/62
	wantB := 1.0/62 + 1.0/61
	wantC := 1.0 / 63
	for id, want := range map[string]float64{"doc-a": wantA, "doc-b": wantB, "doc-c": wantC} {
		if math.Abs(scores[id]-want) > 1e-12 {
			t.Errorf("fused score for %s = %v, want %v", id, scores[id], want)
		}
	}

	// a and b tie on fused score; the better dense rank wins.
	if got[0].Doc.ID != "doc-a" || got[1].Doc.ID != "doc-b" {
		t.Errorf("tie-break order = [%s %s], want [doc-a doc-b]", got[0].Doc.ID, got[1].Doc.ID)
	}
	if got[2].Doc.ID != "doc-c" {
		t.Errorf("last candidate = %s, want doc-c", got[2].Doc.ID)
	}
}

func TestHybridLaneAbsenceContributesZero(t *testing.T) {
	index := &fakeIndex{
		dense: map[Collection][]Hit{
			CollectionStatute: {hit("only-dense")},
		},
		sparse: map[Collection][]Hit{
			CollectionStatute: {hit("only-sparse")},
		},
	}
	lane := NewHybridLane(&fakeEmbedder{pair: queryPair()}, index, 60, nil)

	got, err := lane.Search(context.Background(), "q", LaneConfig{Collection: CollectionStatute, Limit: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	for _, cand := range got {
		want := 1.0 / 61
		if math.Abs(cand.FusedScore-want) > 1e-12 {
			t.Errorf("%s fused = %v, want %v (single-list contribution only)", cand.Doc.ID, cand.FusedScore, want)
		}
	}

	// only-dense has DenseRank 1 / SparseRank 0; only-sparse the reverse.
	for _, cand := range got {
		switch cand.Doc.ID {
		case "only-dense":
			if cand.DenseRank != 1 || cand.SparseRank != 0 {
				t.Errorf("only-dense ranks = (%d,%d), want (1,0)", cand.DenseRank, cand.SparseRank)
			}
		case "only-sparse":
			if cand.DenseRank != 0 || cand.SparseRank != 1 {
				t.Errorf("only-sparse ranks = (%d,%d), want (0,1)", cand.DenseRank, cand.SparseRank)
			}
		}
	}
}

func TestHybridLaneDenseOnlyWhenNoSparseVector(t *testing.T) {
	index := &fakeIndex{
		dense: map[Collection][]Hit{
			CollectionCaseLaw: {hit("a"), hit("b")},
		},
		sparseErr: errors.New("must not be called"),
	}
	pair := &embedding.Pair{Dense: []float32{1, 0, 0}} // no sparse weights
	lane := NewHybridLane(&fakeEmbedder{pair: pair}, index, 60, nil)

	got, err := lane.Search(context.Background(), "q", LaneConfig{Collection: CollectionCaseLaw, Limit: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(got))
	}
}

func TestHybridLaneErrors(t *testing.T) {
	tests := []struct {
		name    string
		embed   *fakeEmbedder
		index   *fakeIndex
		wantErr error
	}{
		{
			name:    "embedding failure",
			embed:   &fakeEmbedder{err: errors.New("model down")},
			index:   &fakeIndex{},
			wantErr: ErrEmbeddingUnavailable,
		},
		{
			name:    "dense search failure",
			embed:   &fakeEmbedder{pair: queryPair()},
			index:   &fakeIndex{denseErr: errors.New("pg down")},
			wantErr: ErrRetrievalUnavailable,
		},
		{
			name:  "sparse search failure",
			embed: &fakeEmbedder{pair: queryPair()},
			index: &fakeIndex{
				dense:     map[Collection][]Hit{CollectionCaseLaw: {hit("a")}},
				sparseErr: errors.New("pg down"),
			},
			wantErr: ErrRetrievalUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lane := NewHybridLane(tt.embed, tt.index, 60, nil)
			_, err := lane.Search(context.Background(), "q", LaneConfig{Collection: CollectionCaseLaw, Limit: 10})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHybridLaneLimit(t *testing.T) {
	var hits []Hit
	for i := 0; i < 20; i++ {
		hits = append(hits, hit(fmt.Sprintf("doc-%02d", i)))
	}
	index := &fakeIndex{dense: map[Collection][]Hit{CollectionCaseLaw: hits}}
	pair := &embedding.Pair{Dense: []float32{1}}
	lane := NewHybridLane(&fakeEmbedder{pair: pair}, index, 60, nil)

	got, err := lane.Search(context.Background(), "q", LaneConfig{Collection: CollectionCaseLaw, Limit: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("len(candidates) = %d, want 5", len(got))
	}
}
