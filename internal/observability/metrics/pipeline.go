package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds the retrieval pipeline instruments. Stages are labeled
// "triad", "mmr", and "rerank".
type Pipeline struct {
	stageDuration   *prometheus.HistogramVec
	laneFailures    *prometheus.CounterVec
	degradedRanking prometheus.Counter
	turns           prometheus.Counter
}

func NewPipeline(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)
	return &Pipeline{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "legal_research",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of one retrieval pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		laneFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legal_research",
			Subsystem: "pipeline",
			Name:      "lane_failures_total",
			Help:      "Retrieval lane failures by collection.",
		}, []string{"lane"}),
		degradedRanking: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "legal_research",
			Subsystem: "pipeline",
			Name:      "degraded_rankings_total",
			Help:      "Turns answered with fused-score ordering because the cross-encoder was unavailable.",
		}),
		turns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "legal_research",
			Subsystem: "pipeline",
			Name:      "turns_total",
			Help:      "Retrieval pipeline executions.",
		}),
	}
}

func (p *Pipeline) ObserveStage(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *Pipeline) LaneFailed(lane string) {
	if p == nil {
		return
	}
	p.laneFailures.WithLabelValues(lane).Inc()
}

func (p *Pipeline) DegradedRanking() {
	if p == nil {
		return
	}
	p.degradedRanking.Inc()
}

func (p *Pipeline) TurnStarted() {
	if p == nil {
		return
	}
	p.turns.Inc()
}
