package reranker

import (
	"context"

	"legal-research-be/pkg/resilience"
)

// ResilientScorer decorates a Scorer with the shared retry/breaker executor.
type ResilientScorer struct {
	inner Scorer
	exec  *resilience.Executor
}

var _ Scorer = &ResilientScorer{}

func NewResilientScorer(inner Scorer, exec *resilience.Executor) *ResilientScorer {
	return &ResilientScorer{inner: inner, exec: exec}
}

func (s *ResilientScorer) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	var scores []float64
	err := s.exec.Execute(ctx, "reranker.score", func(ctx context.Context) error {
		var innerErr error
		scores, innerErr = s.inner.Score(ctx, query, documents)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}
