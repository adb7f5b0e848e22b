package retrieval

import (
	"context"
	"fmt"
	"log"
	"sort"

	"legal-research-be/pkg/embedding"
)

// DefaultRRFConstant is the k in 1/(k+rank). 60 is the value from the
// original RRF paper and works well without per-corpus tuning.
const DefaultRRFConstant = 60

// LaneConfig parameterizes one hybrid query. Lanes share all fusion and
// retry logic; only the target collection and filter differ.
type LaneConfig struct {
	Collection Collection
	Filter     *Filter
	Limit      int
}

// HybridLane queries one collection with fused dense+lexical ranking.
// The two nearest-neighbor queries are combined with Reciprocal Rank
// Fusion, which is rank-based, so the two score scales never need
// calibration.
type HybridLane struct {
	embedder embedding.Provider
	index    Index
	rrfK     int
	logger   *log.Logger
}

func NewHybridLane(embedder embedding.Provider, index Index, rrfK int, logger *log.Logger) *HybridLane {
	if rrfK <= 0 {
		rrfK = DefaultRRFConstant
	}
	return &HybridLane{
		embedder: embedder,
		index:    index,
		rrfK:     rrfK,
		logger:   logger,
	}
}

// EmbedQuery computes the query's dense and sparse representations once so
// they can be reused across lanes.
func (l *HybridLane) EmbedQuery(ctx context.Context, query string) (*embedding.Pair, error) {
	pair, err := l.embedder.Generate(ctx, query, embedding.KindBoth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	return pair, nil
}

// Search embeds the query and runs the hybrid query against one collection.
func (l *HybridLane) Search(ctx context.Context, query string, cfg LaneConfig) ([]Candidate, error) {
	vectors, err := l.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return l.SearchWithVectors(ctx, vectors, cfg)
}

// SearchWithVectors runs the hybrid query with pre-computed query vectors.
// It issues two independent nearest-neighbor queries against the same
// collection and fuses the rankings. If the provider produced no sparse
// weights the lane degrades to dense-only ranking.
func (l *HybridLane) SearchWithVectors(ctx context.Context, vectors *embedding.Pair, cfg LaneConfig) ([]Candidate, error) {
	if vectors == nil || len(vectors.Dense) == 0 {
		return nil, fmt.Errorf("%w: missing dense query vector", ErrEmbeddingUnavailable)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}

	denseHits, err := l.index.SearchDense(ctx, cfg.Collection, vectors.Dense, cfg.Filter, cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: dense search on %s: %v", ErrRetrievalUnavailable, cfg.Collection, err)
	}

	var sparseHits []Hit
	if len(vectors.Sparse) > 0 {
		sparseHits, err = l.index.SearchSparse(ctx, cfg.Collection, vectors.Sparse, cfg.Filter, cfg.Limit)
		if err != nil {
			return nil, fmt.Errorf("%w: sparse search on %s: %v", ErrRetrievalUnavailable, cfg.Collection, err)
		}
	}

	fused := l.fuse(cfg.Collection, denseHits, sparseHits)
	if len(fused) > cfg.Limit {
		fused = fused[:cfg.Limit]
	}

	if l.logger != nil {
		l.logger.Printf("[LANE] %s: %d dense + %d sparse hits fused into %d candidates",
			cfg.Collection, len(denseHits), len(sparseHits), len(fused))
	}

	return fused, nil
}

// fuse combines the two rankings with Reciprocal Rank Fusion. Each
// document's fused score is the sum over the rankings in which it appears
// of 1/(k+rank); absence from a ranking contributes exactly zero.
func (l *HybridLane) fuse(lane Collection, denseHits, sparseHits []Hit) []Candidate {
	type fusion struct {
		cand  Candidate
		order int
	}
	byID := make(map[string]*fusion)
	var ordered []*fusion

	add := func(hit Hit, rank int, dense bool) {
		f, ok := byID[hit.Doc.ID]
		if !ok {
			f = &fusion{
				cand:  Candidate{Doc: hit.Doc, Lane: lane},
				order: len(ordered),
			}
			byID[hit.Doc.ID] = f
			ordered = append(ordered, f)
		}
		f.cand.FusedScore += 1.0 / float64(l.rrfK+rank)
		if dense {
			f.cand.DenseRank = rank
		} else {
			f.cand.SparseRank = rank
		}
	}

	for i, hit := range denseHits {
		add(hit, i+1, true)
	}
	for i, hit := range sparseHits {
		add(hit, i+1, false)
	}

	// Descending fused score; ties broken by the better (lower) dense
	// rank, absent treated as worst; then stable input order.
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.cand.FusedScore != b.cand.FusedScore {
			return a.cand.FusedScore > b.cand.FusedScore
		}
		ar, br := denseRankOrWorst(a.cand), denseRankOrWorst(b.cand)
		if ar != br {
			return ar < br
		}
		return a.order < b.order
	})

	out := make([]Candidate, len(ordered))
	for i, f := range ordered {
		out[i] = f.cand
	}
	return out
}

func denseRankOrWorst(c Candidate) int {
	if c.DenseRank == 0 {
		return int(^uint(0) >> 1) // max int
	}
	return c.DenseRank
}
