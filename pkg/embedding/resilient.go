package embedding

import (
	"context"

	"legal-research-be/pkg/resilience"
)

// ResilientProvider decorates a Provider with the shared retry/breaker
// executor. Throttling rejections from the embedding service come back as
// plain errors and get the bounded-backoff treatment before surfacing.
type ResilientProvider struct {
	inner Provider
	exec  *resilience.Executor
}

var _ Provider = &ResilientProvider{}

func NewResilientProvider(inner Provider, exec *resilience.Executor) *ResilientProvider {
	return &ResilientProvider{inner: inner, exec: exec}
}

func (p *ResilientProvider) Generate(ctx context.Context, text string, kind Kind) (*Pair, error) {
	var pair *Pair
	err := p.exec.Execute(ctx, "embedding.generate", func(ctx context.Context) error {
		var innerErr error
		pair, innerErr = p.inner.Generate(ctx, text, kind)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}
