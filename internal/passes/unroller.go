// Package passes holds the compiler passes: rule-based unrolling to a basis,
// unitary synthesis and initial layout selection.
package passes

import (
	"fmt"
	"slices"

	"qtranspile/internal/dag"
	"qtranspile/internal/gates"
	"qtranspile/internal/target"
	"qtranspile/internal/transpiler"
)

// primitiveBasis is the unrolling target when no basis is given.
var primitiveBasis = []string{"U", "CX"}

// Unroller expands every operation outside Basis using the first
// decomposition rule of its gate, recursively, until only basis gates and
// opaque operations remain.
type Unroller struct {
	// Basis lists the allowed gate names; empty means U and CX.
	Basis []string
	// MaxDepth bounds nested rule expansion; zero means
	// target.DefaultMaxUnrollDepth.
	MaxDepth int
}

func (u *Unroller) Name() string { return "unroller" }

// Run returns an unrolled copy of d. On error no partial graph is returned.
func (u *Unroller) Run(d *dag.DAG, _ transpiler.Properties) (*dag.DAG, error) {
	out := d.Copy()
	if err := u.unroll(out, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Unroller) maxDepth() int {
	if u.MaxDepth > 0 {
		return u.MaxDepth
	}
	return target.DefaultMaxUnrollDepth
}

func (u *Unroller) basis() []string {
	if len(u.Basis) == 0 {
		return primitiveBasis
	}
	return u.Basis
}

func (u *Unroller) unroll(d *dag.DAG, depth int) error {
	basis := u.basis()
	for _, n := range d.OpNodes() {
		if slices.Contains(basis, n.Name()) {
			continue
		}
		rules, opaque := gates.RulesFor(n.Op)
		if opaque {
			continue
		}
		if len(rules) == 0 {
			return fmt.Errorf("%w: %s (basis %v)", ErrNoDecompositionRule, n.Op, basis)
		}
		if depth >= u.maxDepth() {
			return fmt.Errorf("%w: %s still outside the basis after %d levels", ErrUnrollDepthExceeded, n.Op, depth)
		}
		repl, err := replacementFor(d, n, rules[0])
		if err != nil {
			return err
		}
		if err := u.unroll(repl, depth+1); err != nil {
			return err
		}
		if err := d.SubstituteNodeWithDAG(n.ID, repl, nil); err != nil {
			return fmt.Errorf("splicing %s: %w", n.Name(), err)
		}
	}
	return nil
}
