package retrieval

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Collection identifies a logical partition of the vector index.
type Collection string

const (
	CollectionStatute  Collection = "statute"
	CollectionCaseLaw  Collection = "case_law"
	CollectionUserDocs Collection = "user_docs"
)

// Authority tiers. Documents in the top tiers get the reranker's
// authority boost.
const (
	AuthoritySupreme   = "supreme"
	AuthorityPublished = "published"
	AuthorityCantonal  = "cantonal"
	AuthorityUnrated   = ""
)

var (
	// ErrRetrievalUnavailable marks one retrieval source down. The triad
	// coordinator recovers by treating the lane as empty.
	ErrRetrievalUnavailable = errors.New("retrieval source unavailable")

	// ErrAllLanesUnavailable is fatal for the turn: no lane produced
	// candidates because every source failed.
	ErrAllLanesUnavailable = errors.New("all retrieval lanes unavailable")

	// ErrEmbeddingUnavailable covers a failed query embedding, which is
	// fatal for the whole turn.
	ErrEmbeddingUnavailable = errors.New("query embedding unavailable")

	// ErrScorerUnavailable means the cross-encoder is down; ranking
	// degrades to fused retrieval scores.
	ErrScorerUnavailable = errors.New("cross-encoder scorer unavailable")
)

// DocumentRef is the read-only view of an indexed document that the index
// returns with each hit. Dense carries the stored embedding so the
// diversity selector can compute pairwise similarity without refetching.
type DocumentRef struct {
	ID         string
	Collection Collection
	Title      string
	Text       string
	Language   string
	Year       int
	Authority  string
	ContentKey string
	Dense      []float32
	Metadata   map[string]interface{}
}

// Hit is one nearest-neighbor result from the index.
type Hit struct {
	Doc   DocumentRef
	Score float64
}

// Candidate is the transient output of one lane query: a document plus its
// fused retrieval score. It lives for a single retrieval cycle.
type Candidate struct {
	Doc        DocumentRef
	Lane       Collection
	FusedScore float64
	DenseRank  int // 1-based rank in the dense result list, 0 when absent
	SparseRank int // 1-based rank in the sparse result list, 0 when absent
}

// ScoredCandidate is a Candidate after reranking. Ordering is descending
// FinalScore, ties broken by recency then stable input order.
type ScoredCandidate struct {
	Candidate
	BaseScore      float64
	RecencyScore   float64
	AuthorityBoost float64
	FinalScore     float64
	Degraded       bool
}

// Filter narrows a lane query by metadata.
type Filter struct {
	OwnerID  string
	FirmID   string
	Language string
	YearMin  int
	YearMax  int
}

// Index abstracts the vector database. Both queries are read-only and safe
// to retry; implementations must honor the context deadline.
type Index interface {
	SearchDense(ctx context.Context, collection Collection, dense []float32, filter *Filter, limit int) ([]Hit, error)
	SearchSparse(ctx context.Context, collection Collection, sparse map[uint32]float32, filter *Filter, limit int) ([]Hit, error)
}

// LaneStatus reports the outcome of one lane within a triad query.
type LaneStatus struct {
	Lane       Collection `json:"lane"`
	Available  bool       `json:"available"`
	Candidates int        `json:"candidates"`
	Error      string     `json:"error,omitempty"`
}

// Status accompanies every pipeline result so consumers can distinguish a
// correct empty answer from a degraded one. No failure is silently dropped.
type Status struct {
	Lanes           []LaneStatus `json:"lanes"`
	DegradedRanking bool         `json:"degraded_ranking"`
}

// Degraded reports whether any part of the pipeline ran in a reduced mode.
func (s Status) Degraded() bool {
	if s.DegradedRanking {
		return true
	}
	for _, lane := range s.Lanes {
		if !lane.Available {
			return true
		}
	}
	return false
}

var chunkSuffixPattern = regexp.MustCompile(`(?i)[\s_]+chunk[\s_]+\d+.*$`)

// ContentKey returns the identity used for near-duplicate deduplication.
// Different ingestion sources produce the same decision with varying chunk
// suffixes and separator styles, so the key is the normalized base id.
func (d DocumentRef) NormalizedContentKey() string {
	key := d.ContentKey
	if key == "" {
		key = d.ID
	}
	key = chunkSuffixPattern.ReplaceAllString(key, "")
	key = strings.ToUpper(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "-")
	for strings.Contains(key, "--") {
		key = strings.ReplaceAll(key, "--", "-")
	}
	return key
}
