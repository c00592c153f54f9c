package dag

import (
	"fmt"
	"slices"

	"qtranspile/internal/gates"
)

type plannedOp struct {
	op    *gates.Gate
	qargs []Wire
	cargs []Wire
	cond  *Condition
}

// SubstituteNodeWithDAG replaces op node id with the operations of repl.
// wires lists repl's wires in the order they bind to the node's wires
// (quantum operands, classical operands, then condition bits); nil means
// repl.Wires(). Nodes outside the replacement keep their ids. On error the
// graph is left untouched.
func (d *DAG) SubstituteNodeWithDAG(id NodeID, repl *DAG, wires []Wire) error {
	n, ok := d.nodes[id]
	if !ok || n.Type != OpNode {
		return &GraphError{Kind: ErrNodeNotFound, Msg: fmt.Sprintf("op node %d", id)}
	}
	if wires == nil {
		wires = repl.Wires()
	}
	target := d.NodeWires(id)
	if len(wires) != len(target) {
		return mismatchf("replacement binds %d wires, %s touches %d", len(wires), n.Name(), len(target))
	}
	if len(wires) != len(repl.qubits)+len(repl.clbits) {
		return mismatchf("mapping covers %d of %d replacement wires", len(wires), len(repl.qubits)+len(repl.clbits))
	}
	mapping := make(map[Wire]Wire, len(wires))
	for i, w := range wires {
		if !repl.hasWire(w) {
			return mismatchf("%s is not a wire of the replacement", w)
		}
		if w.Kind != target[i].Kind {
			return mismatchf("cannot bind %s to %s: wire kinds differ", w, target[i])
		}
		if _, dup := mapping[w]; dup {
			return mismatchf("%s bound twice", w)
		}
		mapping[w] = target[i]
	}

	plan, err := d.planReplacement(repl, mapping)
	if err != nil {
		return err
	}

	frontier := make(map[Wire]NodeID, len(target))
	after := make(map[Wire]NodeID, len(target))
	for _, w := range target {
		frontier[w] = d.pred[id][w]
		after[w] = d.succ[id][w]
	}
	d.drop(id)

	for _, p := range plan {
		nid := d.newNode(&Node{Type: OpNode, Op: p.op, Qargs: p.qargs, Cargs: p.cargs, Condition: p.cond})
		for _, w := range d.opWires(p.qargs, p.cargs, p.cond) {
			d.link(frontier[w], nid, w)
			frontier[w] = nid
		}
	}
	for _, w := range target {
		d.link(frontier[w], after[w], w)
	}
	return nil
}

// planReplacement translates repl's operations into this graph's wires
// before anything is mutated.
func (d *DAG) planReplacement(repl *DAG, mapping map[Wire]Wire) ([]plannedOp, error) {
	var plan []plannedOp
	for _, rn := range repl.OpNodes() {
		p := plannedOp{op: rn.Op}
		for _, w := range rn.Qargs {
			p.qargs = append(p.qargs, mapping[w])
		}
		for _, w := range rn.Cargs {
			p.cargs = append(p.cargs, mapping[w])
		}
		if rn.Condition != nil {
			c, err := d.mapCondition(repl, rn.Condition, mapping)
			if err != nil {
				return nil, err
			}
			p.cond = c
		}
		plan = append(plan, p)
	}
	return plan, nil
}

// mapCondition requires the condition register to land on a whole register
// of this graph, bit for bit.
func (d *DAG) mapCondition(repl *DAG, c *Condition, mapping map[Wire]Wire) (*Condition, error) {
	bits := repl.conditionWires(c)
	if len(bits) == 0 {
		return nil, mismatchf("replacement condition register %s is undeclared", c.Reg)
	}
	first := mapping[bits[0]]
	r, ok := d.Register(first.Reg)
	if !ok || r.Size != len(bits) {
		return nil, mismatchf("condition register %s does not map onto a whole register", c.Reg)
	}
	for i, b := range bits {
		if mapping[b] != (Wire{Kind: ClassicalWire, Reg: r.Name, Index: i}) {
			return nil, mismatchf("condition bit %s maps to %s", b, mapping[b])
		}
	}
	return &Condition{Reg: r.Name, Value: c.Value}, nil
}

// ReverseQubits returns the quantum wires of d reversed, followed by its
// classical wires; used to splice a mirrored synthesis.
func (d *DAG) ReverseQubits() []Wire {
	q := d.Qubits()
	slices.Reverse(q)
	return append(q, d.clbits...)
}
