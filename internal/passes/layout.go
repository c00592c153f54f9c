package passes

import (
	"fmt"

	"qtranspile/internal/dag"
	"qtranspile/internal/transpiler"
)

// SetLayout records the initial logical→physical qubit assignment. An empty
// Layout selects the trivial layout.
type SetLayout struct {
	Layout transpiler.Layout
}

func (s *SetLayout) Name() string { return "set_layout" }

func (s *SetLayout) Analyze(d *dag.DAG, props *transpiler.PropertySet) error {
	layout := s.Layout
	if len(layout) == 0 {
		layout = transpiler.TrivialLayout(d.NumQubits())
	}
	if len(layout) < d.NumQubits() {
		return fmt.Errorf("layout covers %d qubits, circuit has %d", len(layout), d.NumQubits())
	}
	return props.Set(transpiler.LayoutKey, layout)
}
