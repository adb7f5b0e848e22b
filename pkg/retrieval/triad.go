package retrieval

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"legal-research-be/pkg/embedding"
)

// Scope identifies whose user-document collection the third lane searches.
type Scope struct {
	UserID string
	FirmID string
}

// CoordinatorConfig tunes the triad query. OverFetch is deliberately large
// (roughly 25x the final result count) to leave room for diversity
// filtering and reranking downstream.
type CoordinatorConfig struct {
	OverFetch   int
	LaneTimeout time.Duration
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		OverFetch:   250,
		LaneTimeout: 10 * time.Second,
	}
}

// Coordinator fans a query out to the statute, case-law, and user-document
// lanes concurrently and merges the results. A failed or timed-out lane
// contributes an empty result set; the coordinator only fails outright when
// all three lanes fail.
type Coordinator struct {
	lane   *HybridLane
	cfg    CoordinatorConfig
	logger *log.Logger
}

func NewCoordinator(lane *HybridLane, cfg CoordinatorConfig, logger *log.Logger) *Coordinator {
	if cfg.OverFetch <= 0 {
		cfg.OverFetch = 250
	}
	if cfg.LaneTimeout <= 0 {
		cfg.LaneTimeout = 10 * time.Second
	}
	return &Coordinator{
		lane:   lane,
		cfg:    cfg,
		logger: logger,
	}
}

// TriadResult is the merged, deduplicated candidate set plus the query's
// dense vector (reused by the diversity selector) and per-lane status.
type TriadResult struct {
	Candidates []Candidate
	QueryDense []float32
	Status     Status
}

// Search embeds the query once, then runs the three lanes in parallel. The
// query embedding itself failing is fatal for the whole turn.
func (c *Coordinator) Search(ctx context.Context, query string, scope Scope, filter *Filter) (*TriadResult, error) {
	vectors, err := c.lane.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.SearchWithVectors(ctx, vectors, scope, filter)
}

func (c *Coordinator) SearchWithVectors(ctx context.Context, vectors *embedding.Pair, scope Scope, filter *Filter) (*TriadResult, error) {
	lanes := []LaneConfig{
		{Collection: CollectionStatute, Filter: statuteFilter(filter), Limit: c.cfg.OverFetch},
		{Collection: CollectionCaseLaw, Filter: filter, Limit: c.cfg.OverFetch},
		{Collection: CollectionUserDocs, Filter: scopedFilter(filter, scope), Limit: c.cfg.OverFetch},
	}

	results := make([][]Candidate, len(lanes))
	laneErrs := make([]error, len(lanes))

	var wg sync.WaitGroup
	for i, laneCfg := range lanes {
		wg.Add(1)
		go func(i int, laneCfg LaneConfig) {
			defer wg.Done()

			laneCtx, cancel := context.WithTimeout(ctx, c.cfg.LaneTimeout)
			defer cancel()

			cands, err := c.lane.SearchWithVectors(laneCtx, vectors, laneCfg)
			if err != nil {
				// A timed-out lane is treated identically to an
				// unavailable one.
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(laneCtx.Err(), context.DeadlineExceeded) {
					err = errors.Join(ErrRetrievalUnavailable, err)
				}
				laneErrs[i] = err
				return
			}
			results[i] = cands
		}(i, laneCfg)
	}
	wg.Wait()

	status := Status{Lanes: make([]LaneStatus, len(lanes))}
	failed := 0
	for i, laneCfg := range lanes {
		ls := LaneStatus{Lane: laneCfg.Collection, Available: true, Candidates: len(results[i])}
		if laneErrs[i] != nil {
			ls.Available = false
			ls.Error = laneErrs[i].Error()
			failed++
			if c.logger != nil {
				c.logger.Printf("[TRIAD] lane %s unavailable: %v", laneCfg.Collection, laneErrs[i])
			}
		}
		status.Lanes[i] = ls
	}

	if failed == len(lanes) {
		return nil, ErrAllLanesUnavailable
	}

	return &TriadResult{
		Candidates: mergeCandidates(results),
		QueryDense: vectors.Dense,
		Status:     status,
	}, nil
}

// mergeCandidates concatenates the lane results, deduplicates by document
// identity keeping the higher fused score, and orders by fused score
// descending (stable on ties).
func mergeCandidates(results [][]Candidate) []Candidate {
	byID := make(map[string]int)
	var merged []Candidate

	for _, laneResults := range results {
		for _, cand := range laneResults {
			if idx, seen := byID[cand.Doc.ID]; seen {
				if cand.FusedScore > merged[idx].FusedScore {
					merged[idx] = cand
				}
				continue
			}
			byID[cand.Doc.ID] = len(merged)
			merged = append(merged, cand)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FusedScore > merged[j].FusedScore
	})
	return merged
}

// statuteFilter strips year bounds: statutes don't carry decision years the
// way case law does, so a year range would wrongly exclude them.
func statuteFilter(filter *Filter) *Filter {
	if filter == nil {
		return nil
	}
	f := *filter
	f.YearMin = 0
	f.YearMax = 0
	return &f
}

func scopedFilter(filter *Filter, scope Scope) *Filter {
	var f Filter
	if filter != nil {
		f = *filter
	}
	f.OwnerID = scope.UserID
	f.FirmID = scope.FirmID
	return &f
}
