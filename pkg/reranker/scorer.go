package reranker

import "context"

// Scorer defines the cross-encoder contract: joint (query, document)
// relevance scoring. Scores come back in the same order as documents.
// Implementations call an external rerank service; callers pass a context
// with an explicit timeout and should fall back to retrieval-score ordering
// when the scorer is unavailable.
type Scorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}
