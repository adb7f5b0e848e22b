package retrieval

import (
	"context"
	"log"
	"sort"
	"time"

	"legal-research-be/pkg/reranker"
)

const (
	// DefaultRecencyWeight and DefaultAuthorityWeight are fixed design
	// constants, small enough that base relevance always dominates; they
	// only sway ties among near-equal base scores.
	DefaultRecencyWeight   = 0.10
	DefaultAuthorityWeight = 0.10

	// recencyFloorYear anchors the normalization: a document from this
	// year scores 0.0, one from the current year scores 1.0.
	recencyFloorYear = 1900

	// neutralRecency is assigned to statutes and non-dated documents.
	neutralRecency = 0.5
)

// RerankerConfig carries the fixed scoring constants.
type RerankerConfig struct {
	RecencyWeight   float64
	AuthorityWeight float64
}

func DefaultRerankerConfig() RerankerConfig {
	return RerankerConfig{
		RecencyWeight:   DefaultRecencyWeight,
		AuthorityWeight: DefaultAuthorityWeight,
	}
}

// Reranker applies the cross-encoder plus recency and authority
// adjustments to produce the final ranked list.
type Reranker struct {
	scorer reranker.Scorer
	cfg    RerankerConfig
	now    func() time.Time
	logger *log.Logger
}

func NewReranker(scorer reranker.Scorer, cfg RerankerConfig, logger *log.Logger) *Reranker {
	return &Reranker{
		scorer: scorer,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// RerankResult holds the scored candidates and whether ranking degraded to
// fused retrieval scores because the cross-encoder was unavailable.
type RerankResult struct {
	Results  []ScoredCandidate
	Degraded bool
}

// Rerank scores every candidate (no count reduction during scoring), then
// deduplicates by content identity and truncates to finalCount. When the
// scorer is unavailable it falls back to the fused retrieval score: a
// degraded but available ranking, never an error.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, finalCount int) *RerankResult {
	if len(candidates) == 0 {
		return &RerankResult{}
	}

	texts := make([]string, len(candidates))
	for i, cand := range candidates {
		texts[i] = cand.Doc.Text
	}

	degraded := false
	baseScores, err := r.scorer.Score(ctx, query, texts)
	if err != nil || len(baseScores) != len(candidates) {
		if r.logger != nil {
			r.logger.Printf("[RERANK] scorer unavailable, falling back to fused ordering: %v", err)
		}
		degraded = true
		baseScores = make([]float64, len(candidates))
		for i, cand := range candidates {
			baseScores[i] = cand.FusedScore
		}
	}

	currentYear := r.now().Year()
	scored := make([]ScoredCandidate, len(candidates))
	for i, cand := range candidates {
		recency := recencyScore(cand.Doc, currentYear)
		authority := authorityBoost(cand.Doc)

		scored[i] = ScoredCandidate{
			Candidate:      cand,
			BaseScore:      baseScores[i],
			RecencyScore:   recency,
			AuthorityBoost: authority,
			FinalScore:     baseScores[i] + r.cfg.RecencyWeight*recency + r.cfg.AuthorityWeight*authority,
			Degraded:       degraded,
		}
	}

	// Descending final score; ties by recency (newer first), then stable
	// input order.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].FinalScore != scored[j].FinalScore {
			return scored[i].FinalScore > scored[j].FinalScore
		}
		return scored[i].Doc.Year > scored[j].Doc.Year
	})

	return &RerankResult{
		Results:  dedupeByContent(scored, finalCount),
		Degraded: degraded,
	}
}

// recencyScore normalizes the document year into [0,1], newer is higher.
// Statutes and undated documents get a neutral fixed value: recency is a
// signal about decisions, not legislation.
func recencyScore(doc DocumentRef, currentYear int) float64 {
	if doc.Collection == CollectionStatute || doc.Year == 0 {
		return neutralRecency
	}

	year := doc.Year
	if year < recencyFloorYear {
		year = recencyFloorYear
	}
	if year > currentYear {
		year = currentYear
	}
	return float64(year-recencyFloorYear) / float64(currentYear-recencyFloorYear)
}

// authorityBoost is 1 for the highest tiers (supreme court, published
// leading decisions), 0 otherwise. The weight is applied by the caller.
func authorityBoost(doc DocumentRef) float64 {
	switch doc.Authority {
	case AuthoritySupreme, AuthorityPublished:
		return 1
	default:
		return 0
	}
}

// dedupeByContent drops near-duplicate documents ingested from different
// sources (same decision, different chunking), keeping the highest-ranked
// occurrence, then truncates to finalCount.
func dedupeByContent(scored []ScoredCandidate, finalCount int) []ScoredCandidate {
	if finalCount <= 0 {
		finalCount = len(scored)
	}

	seen := make(map[string]bool, len(scored))
	out := make([]ScoredCandidate, 0, finalCount)
	for _, sc := range scored {
		key := sc.Doc.NormalizedContentKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sc)
		if len(out) == finalCount {
			break
		}
	}
	return out
}
