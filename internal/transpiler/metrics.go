package transpiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// stageRuns counts stage executions by outcome
	stageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qtranspile_stage_runs_total",
		Help: "Pipeline stage executions by stage and result",
	}, []string{"stage", "result"})

	// stageDuration tracks wall time per stage
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qtranspile_stage_duration_seconds",
		Help:    "Pipeline stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"stage"})

	// stageOpDelta tracks how many operations a transformation adds
	stageOpDelta = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qtranspile_stage_op_delta",
		Help:    "Operation count after minus before, per transformation stage",
		Buckets: []float64{-10, -1, 0, 1, 5, 10, 50, 100, 500},
	}, []string{"stage"})

	// pipelineRuns counts complete pipeline runs by outcome
	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qtranspile_pipeline_runs_total",
		Help: "Pipeline runs by result",
	}, []string{"result"})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
