package embedding

import "context"

// Kind selects which representations a provider should return.
type Kind string

const (
	KindDense  Kind = "dense"
	KindSparse Kind = "sparse"
	KindBoth   Kind = "both"
)

// Pair holds the two representations of one text: a dense semantic vector
// and a sparse lexical weight map (token id -> weight). Sparse may be empty
// for providers that only support dense embeddings.
type Pair struct {
	Dense  []float32
	Sparse map[uint32]float32
}

// Provider defines the interface for generating text embeddings.
// Generate is an externally-blocking call; callers pass a context with an
// explicit timeout.
type Provider interface {
	Generate(ctx context.Context, text string, kind Kind) (*Pair, error)
}
