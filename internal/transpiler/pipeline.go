package transpiler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"qtranspile/internal/dag"
)

// Stage is one step of a Pipeline: an AnalysisPass or a TransformationPass.
type Stage interface {
	Name() string
}

// AnalysisPass inspects a graph and records results in the property set.
type AnalysisPass interface {
	Stage
	Analyze(d *dag.DAG, props *PropertySet) error
}

// TransformationPass rewrites a graph. It reads properties but cannot
// write them.
type TransformationPass interface {
	Stage
	Run(d *dag.DAG, props Properties) (*dag.DAG, error)
}

// Result is the outcome of a pipeline run.
type Result struct {
	RunID      string
	DAG        *dag.DAG
	Properties *PropertySet
}

// Pipeline runs stages in order.
type Pipeline struct {
	stages []Stage
	logger *zap.Logger
}

// New builds a pipeline; a nil logger disables logging.
func New(logger *zap.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{stages: stages, logger: logger}
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes every stage on d. props may be nil. Cancellation is checked
// between stages; a stage in progress is not interrupted.
func (p *Pipeline) Run(ctx context.Context, d *dag.DAG, props *PropertySet) (*Result, error) {
	if props == nil {
		props = NewPropertySet()
	}
	res := &Result{RunID: uuid.NewString(), DAG: d, Properties: props}
	log := p.logger.With(zap.String("run_id", res.RunID))
	log.Debug("pipeline start", zap.Strings("stages", p.Stages()), zap.Int("ops", d.Size()))

	err := p.run(ctx, log, res)
	pipelineRuns.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		log.Error("pipeline failed", zap.Error(err))
		return nil, err
	}
	log.Info("pipeline done", zap.Int("ops", res.DAG.Size()), zap.Int("depth", res.DAG.Depth()))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, res *Result) error {
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("before stage %s: %w", s.Name(), err)
		}
		before := res.DAG.Size()
		start := time.Now()

		var err error
		switch st := s.(type) {
		case AnalysisPass:
			err = st.Analyze(res.DAG, res.Properties)
		case TransformationPass:
			var out *dag.DAG
			out, err = st.Run(res.DAG, res.Properties.View())
			if err == nil {
				res.DAG = out
				stageOpDelta.WithLabelValues(s.Name()).Observe(float64(out.Size() - before))
			}
		default:
			err = fmt.Errorf("stage %s is neither an analysis nor a transformation pass", s.Name())
		}

		elapsed := time.Since(start)
		stageRuns.WithLabelValues(s.Name(), resultLabel(err)).Inc()
		stageDuration.WithLabelValues(s.Name()).Observe(elapsed.Seconds())
		if err != nil {
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
		log.Debug("stage done",
			zap.String("stage", s.Name()),
			zap.Int("ops_before", before),
			zap.Int("ops_after", res.DAG.Size()),
			zap.Int("depth", res.DAG.Depth()),
			zap.Duration("duration", elapsed),
		)
	}
	return nil
}
