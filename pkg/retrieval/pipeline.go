package retrieval

import (
	"context"
	"log"
	"time"

	"legal-research-be/internal/observability/metrics"
)

// PipelineConfig tunes the full retrieve-diversify-rerank chain.
type PipelineConfig struct {
	// MMRLambda trades relevance against diversity; see DefaultMMRLambda.
	MMRLambda float64
	// MMRPoolSize is how many diversified candidates feed the reranker.
	MMRPoolSize int
	// FinalCount is the externally requested result count.
	FinalCount int
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MMRLambda:   DefaultMMRLambda,
		MMRPoolSize: 20,
		FinalCount:  10,
	}
}

// Pipeline runs the full retrieval chain: triad fan-out, diversity
// selection, reranking. Component-local failures are absorbed and reported
// in Status; only the loss of every usable candidate source surfaces an
// error.
type Pipeline struct {
	coordinator *Coordinator
	reranker    *Reranker
	cfg         PipelineConfig
	metrics     *metrics.Pipeline
	logger      *log.Logger
}

func NewPipeline(coordinator *Coordinator, reranker *Reranker, cfg PipelineConfig, m *metrics.Pipeline, logger *log.Logger) *Pipeline {
	if cfg.MMRLambda <= 0 || cfg.MMRLambda > 1 {
		cfg.MMRLambda = DefaultMMRLambda
	}
	if cfg.MMRPoolSize <= 0 {
		cfg.MMRPoolSize = 20
	}
	if cfg.FinalCount <= 0 {
		cfg.FinalCount = 10
	}
	return &Pipeline{
		coordinator: coordinator,
		reranker:    reranker,
		cfg:         cfg,
		metrics:     m,
		logger:      logger,
	}
}

// Result carries the ranked candidates plus the structured degradation
// status so callers can tell a correct empty answer from a degraded one.
type Result struct {
	Results []ScoredCandidate
	Status  Status
}

func (p *Pipeline) Run(ctx context.Context, query string, scope Scope, filter *Filter) (*Result, error) {
	p.metrics.TurnStarted()

	start := time.Now()
	triad, err := p.coordinator.Search(ctx, query, scope, filter)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage("triad", time.Since(start))
	for _, lane := range triad.Status.Lanes {
		if !lane.Available {
			p.metrics.LaneFailed(string(lane.Lane))
		}
	}

	start = time.Now()
	diverse := SelectDiverse(triad.Candidates, triad.QueryDense, p.cfg.MMRLambda, p.cfg.MMRPoolSize)
	p.metrics.ObserveStage("mmr", time.Since(start))

	start = time.Now()
	reranked := p.reranker.Rerank(ctx, query, diverse, p.cfg.FinalCount)
	p.metrics.ObserveStage("rerank", time.Since(start))

	status := triad.Status
	status.DegradedRanking = reranked.Degraded
	if reranked.Degraded {
		p.metrics.DegradedRanking()
	}

	if p.logger != nil {
		p.logger.Printf("[PIPELINE] %d merged -> %d diverse -> %d final (degraded=%v)",
			len(triad.Candidates), len(diverse), len(reranked.Results), reranked.Degraded)
	}

	return &Result{
		Results: reranked.Results,
		Status:  status,
	}, nil
}
