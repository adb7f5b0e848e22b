package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"
)

// laneIndex serves per-collection results and failures, and records the
// filters each lane was queried with.
type laneIndex struct {
	hits    map[Collection][]Hit
	fail    map[Collection]error
	filters map[Collection]*Filter
}

func newLaneIndex() *laneIndex {
	return &laneIndex{
		hits:    map[Collection][]Hit{},
		fail:    map[Collection]error{},
		filters: map[Collection]*Filter{},
	}
}

func (f *laneIndex) SearchDense(ctx context.Context, collection Collection, dense []float32, filter *Filter, limit int) ([]Hit, error) {
	f.filters[collection] = filter
	if err := f.fail[collection]; err != nil {
		return nil, err
	}
	return f.hits[collection], nil
}

func (f *laneIndex) SearchSparse(ctx context.Context, collection Collection, sparse map[uint32]float32, filter *Filter, limit int) ([]Hit, error) {
	if err := f.fail[collection]; err != nil {
		return nil, err
	}
	return nil, nil
}

func newTestCoordinator(index Index) *Coordinator {
	lane := NewHybridLane(&fakeEmbedder{pair: queryPair()}, index, 60, nil)
	return NewCoordinator(lane, CoordinatorConfig{OverFetch: 50, LaneTimeout: time.Second}, nil)
}

func TestTriadMergesAllLanes(t *testing.T) {
	index := newLaneIndex()
	index.hits[CollectionStatute] = []Hit{hit("s1")}
	index.hits[CollectionCaseLaw] = []Hit{hit("c1"), hit("c2")}
	index.hits[CollectionUserDocs] = []Hit{hit("u1")}

	got, err := newTestCoordinator(index).Search(context.Background(), "q", Scope{UserID: "u", FirmID: "f"}, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got.Candidates) != 4 {
		t.Fatalf("len(candidates) = %d, want 4", len(got.Candidates))
	}
	for _, ls := range got.Status.Lanes {
		if !ls.Available {
			t.Errorf("lane %s unavailable: %s", ls.Lane, ls.Error)
		}
	}
	if got.Status.Degraded() {
		t.Error("Status.Degraded() = true on a clean run")
	}
}

func TestTriadPartialFailure(t *testing.T) {
	index := newLaneIndex()
	index.hits[CollectionStatute] = []Hit{hit("s1")}
	index.hits[CollectionUserDocs] = []Hit{hit("u1")}
	index.fail[CollectionCaseLaw] = errors.New("pg down")

	got, err := newTestCoordinator(index).Search(context.Background(), "q", Scope{}, nil)
	if err != nil {
		t.Fatalf("Search() error = %v, want nil on partial failure", err)
	}
	if len(got.Candidates) != 2 {
		t.Errorf("len(candidates) = %d, want 2", len(got.Candidates))
	}

	var caseLaw LaneStatus
	for _, ls := range got.Status.Lanes {
		if ls.Lane == CollectionCaseLaw {
			caseLaw = ls
		}
	}
	if caseLaw.Available {
		t.Error("case_law lane reported available after failure")
	}
	if caseLaw.Error == "" {
		t.Error("failed lane carries no error text")
	}
	if !got.Status.Degraded() {
		t.Error("Status.Degraded() = false with a failed lane")
	}
}

func TestTriadAllLanesFail(t *testing.T) {
	index := newLaneIndex()
	index.fail[CollectionStatute] = errors.New("down")
	index.fail[CollectionCaseLaw] = errors.New("down")
	index.fail[CollectionUserDocs] = errors.New("down")

	_, err := newTestCoordinator(index).Search(context.Background(), "q", Scope{}, nil)
	if !errors.Is(err, ErrAllLanesUnavailable) {
		t.Errorf("Search() error = %v, want ErrAllLanesUnavailable", err)
	}
}

func TestTriadEmbeddingFailureIsFatal(t *testing.T) {
	lane := NewHybridLane(&fakeEmbedder{err: errors.New("model down")}, newLaneIndex(), 60, nil)
	coord := NewCoordinator(lane, DefaultCoordinatorConfig(), nil)

	_, err := coord.Search(context.Background(), "q", Scope{}, nil)
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Errorf("Search() error = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestTriadDeduplicatesAcrossLanes(t *testing.T) {
	index := newLaneIndex()
	// The same document surfaces in two lanes; the merged set keeps one.
	index.hits[CollectionStatute] = []Hit{hit("shared")}
	index.hits[CollectionCaseLaw] = []Hit{hit("shared"), hit("c1")}

	got, err := newTestCoordinator(index).Search(context.Background(), "q", Scope{}, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got.Candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2 after dedup", len(got.Candidates))
	}
	seen := map[string]int{}
	for _, cand := range got.Candidates {
		seen[cand.Doc.ID]++
	}
	if seen["shared"] != 1 {
		t.Errorf("shared document appears %d times, want 1", seen["shared"])
	}
}

func TestTriadLaneScoping(t *testing.T) {
	index := newLaneIndex()
	index.hits[CollectionCaseLaw] = []Hit{hit("c1")}

	filter := &Filter{Language: "de", YearMin: 2000, YearMax: 2020}
	_, err := newTestCoordinator(index).Search(context.Background(), "q", Scope{UserID: "user-1", FirmID: "firm-1"}, filter)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	// Statutes keep the language filter but never a year range.
	statute := index.filters[CollectionStatute]
	if statute == nil || statute.Language != "de" {
		t.Fatalf("statute filter = %+v, want language preserved", statute)
	}
	if statute.YearMin != 0 || statute.YearMax != 0 {
		t.Errorf("statute year range = [%d,%d], want unset", statute.YearMin, statute.YearMax)
	}

	// Case law keeps the caller's filter untouched.
	caseLaw := index.filters[CollectionCaseLaw]
	if caseLaw == nil || caseLaw.YearMin != 2000 || caseLaw.YearMax != 2020 {
		t.Errorf("case_law filter = %+v, want caller's year range", caseLaw)
	}

	// User docs get the requester's scope stamped on.
	userDocs := index.filters[CollectionUserDocs]
	if userDocs == nil || userDocs.OwnerID != "user-1" || userDocs.FirmID != "firm-1" {
		t.Errorf("user_docs filter = %+v, want owner/firm scope", userDocs)
	}
}
