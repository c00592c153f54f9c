// Package compiler drives the default compilation pipeline for a target.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qtranspile/internal/dag"
	"qtranspile/internal/passes"
	"qtranspile/internal/sim"
	"qtranspile/internal/target"
	"qtranspile/internal/transpiler"
)

// ErrVerificationFailed is returned when Verify is set and the compiled
// circuit does not implement the input unitary.
var ErrVerificationFailed = errors.New("compiled circuit is not equivalent to its input")

// verifyTolerance is the entrywise tolerance of the equivalence check.
const verifyTolerance = 1e-6

type Options struct {
	Logger *zap.Logger
	// Verify simulates both circuits and compares their unitaries. Circuits
	// with measurements, resets or conditions are not verified.
	Verify bool
	// Parallelism bounds CompileAll; zero means GOMAXPROCS.
	Parallelism int
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Report summarises one compilation.
type Report struct {
	RunID             string
	DAG               *dag.DAG
	InputFingerprint  string
	OutputFingerprint string
	OpsBefore         map[string]int
	OpsAfter          map[string]int
	DepthBefore       int
	DepthAfter        int
	// Verified is true when the equivalence check ran and passed.
	Verified bool
}

// Pipeline builds the default stage list for t: initial layout, unitary
// synthesis, then unrolling to the basis.
func Pipeline(t *target.Target, logger *zap.Logger) *transpiler.Pipeline {
	synth := &passes.UnitarySynthesis{
		Basis:             t.Basis,
		CouplingMap:       t.Coupling(),
		SynthesisFidelity: t.SynthesisFidelity,
		PulseOptimize:     t.PulseOptimize,
		Logger:            logger,
	}
	if cal := t.Properties(); cal != nil {
		synth.Properties = cal
	}
	return transpiler.New(logger,
		&passes.SetLayout{Layout: transpiler.Layout(t.Layout)},
		synth,
		&passes.Unroller{Basis: t.Basis, MaxDepth: t.MaxUnrollDepth},
	)
}

// Compile lowers d to t's basis. d is not modified.
func Compile(ctx context.Context, d *dag.DAG, t *target.Target, opts Options) (*Report, error) {
	if t == nil {
		t = target.Default()
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	log := opts.logger()

	res, err := Pipeline(t, log).Run(ctx, d, nil)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		RunID:             res.RunID,
		DAG:               res.DAG,
		InputFingerprint:  d.Fingerprint(),
		OutputFingerprint: res.DAG.Fingerprint(),
		OpsBefore:         d.CountOps(),
		OpsAfter:          res.DAG.CountOps(),
		DepthBefore:       d.Depth(),
		DepthAfter:        res.DAG.Depth(),
	}
	if opts.Verify {
		if err := verify(d, res.DAG, rep, log); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func verify(in, out *dag.DAG, rep *Report, log *zap.Logger) error {
	if in.NumQubits() > sim.MaxQubits {
		log.Warn("circuit too large to verify", zap.String("run_id", rep.RunID), zap.Int("qubits", in.NumQubits()))
		return nil
	}
	ok, err := sim.Equivalent(in, out, verifyTolerance)
	switch {
	case errors.Is(err, sim.ErrNonUnitary):
		log.Info("skipping verification of non-unitary circuit", zap.String("run_id", rep.RunID), zap.Error(err))
		return nil
	case err != nil:
		return fmt.Errorf("verifying run %s: %w", rep.RunID, err)
	case !ok:
		return fmt.Errorf("%w (run %s)", ErrVerificationFailed, rep.RunID)
	}
	rep.Verified = true
	return nil
}

// CompileAll compiles independent circuits concurrently. Reports are in
// input order; the first failure cancels the remaining work.
func CompileAll(ctx context.Context, circuits []*dag.DAG, t *target.Target, opts Options) ([]*Report, error) {
	reports := make([]*Report, len(circuits))
	g, ctx := errgroup.WithContext(ctx)
	limit := opts.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)
	for i, d := range circuits {
		g.Go(func() error {
			rep, err := Compile(ctx, d, t, opts)
			if err != nil {
				return fmt.Errorf("circuit %d: %w", i, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
