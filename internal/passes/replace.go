package passes

import (
	"fmt"

	"qtranspile/internal/dag"
	"qtranspile/internal/gates"
)

// replacementFor builds the graph that stands in for op node n of d. Its
// wires line up with d.NodeWires(n.ID): n's qubits, n's clbits, then n's
// condition register, and every operation inherits n's condition.
func replacementFor(d *dag.DAG, n *dag.Node, rule gates.Rule) (*dag.DAG, error) {
	qreg, creg := "q", "c"
	if n.Condition != nil {
		if n.Condition.Reg == qreg {
			qreg = "q_"
		}
		if n.Condition.Reg == creg {
			creg = "c_"
		}
	}

	repl := dag.New()
	if err := repl.AddQReg(qreg, len(n.Qargs)); err != nil {
		return nil, err
	}
	if len(n.Cargs) > 0 {
		if err := repl.AddCReg(creg, len(n.Cargs)); err != nil {
			return nil, err
		}
	}
	var cond *dag.Condition
	if n.Condition != nil {
		r, ok := d.Register(n.Condition.Reg)
		if !ok {
			return nil, fmt.Errorf("%w: condition register %s", dag.ErrUnknownWire, n.Condition.Reg)
		}
		if err := repl.AddCReg(r.Name, r.Size); err != nil {
			return nil, err
		}
		cond = &dag.Condition{Reg: r.Name, Value: n.Condition.Value}
	}
	if err := repl.AppendRule(rule, qreg, creg, cond); err != nil {
		return nil, fmt.Errorf("expanding %s: %w", n.Name(), err)
	}
	return repl, nil
}
