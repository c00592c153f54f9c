// Package dag is the circuit intermediate representation: an arena of input,
// output and operation nodes addressed by stable integer ids, with one edge
// per wire between consecutive nodes on that wire.
package dag

import (
	"fmt"
	"slices"

	"qtranspile/internal/gates"
)

// NodeID addresses a node in the arena. Ids are never reused.
type NodeID int

// NodeType distinguishes wire endpoints from operations.
type NodeType int

const (
	InNode NodeType = iota
	OutNode
	OpNode
)

// WireKind is quantum or classical.
type WireKind int

const (
	QuantumWire WireKind = iota
	ClassicalWire
)

// Wire is one bit of a register.
type Wire struct {
	Kind  WireKind
	Reg   string
	Index int
}

func (w Wire) String() string { return fmt.Sprintf("%s[%d]", w.Reg, w.Index) }

// Register is a named, sized group of wires.
type Register struct {
	Name string
	Size int
	Kind WireKind
}

// Condition gates an operation on a classical register holding Value.
type Condition struct {
	Reg   string
	Value int
}

// Node is a vertex of the graph. Op nodes carry the gate and operands;
// in/out nodes carry their wire.
type Node struct {
	ID        NodeID
	Type      NodeType
	Wire      Wire
	Op        *gates.Gate
	Qargs     []Wire
	Cargs     []Wire
	Condition *Condition
}

// Name returns the operation name, or "" for wire endpoints.
func (n *Node) Name() string {
	if n.Type != OpNode {
		return ""
	}
	return n.Op.Name()
}

// DAG is the circuit graph.
type DAG struct {
	regs     []Register
	regIndex map[string]int
	qubits   []Wire
	clbits   []Wire
	inputs   map[Wire]NodeID
	outputs  map[Wire]NodeID
	nodes    map[NodeID]*Node
	succ     map[NodeID]map[Wire]NodeID
	pred     map[NodeID]map[Wire]NodeID
	nextID   NodeID
}

// New returns an empty graph.
func New() *DAG {
	return &DAG{
		regIndex: make(map[string]int),
		inputs:   make(map[Wire]NodeID),
		outputs:  make(map[Wire]NodeID),
		nodes:    make(map[NodeID]*Node),
		succ:     make(map[NodeID]map[Wire]NodeID),
		pred:     make(map[NodeID]map[Wire]NodeID),
	}
}

// AddQReg declares a quantum register.
func (d *DAG) AddQReg(name string, size int) error {
	return d.addReg(Register{Name: name, Size: size, Kind: QuantumWire})
}

// AddCReg declares a classical register.
func (d *DAG) AddCReg(name string, size int) error {
	return d.addReg(Register{Name: name, Size: size, Kind: ClassicalWire})
}

func (d *DAG) addReg(r Register) error {
	if _, ok := d.regIndex[r.Name]; ok {
		return &GraphError{Kind: ErrDuplicateRegister, Msg: r.Name}
	}
	if r.Size <= 0 {
		return invalidf("register %s has size %d", r.Name, r.Size)
	}
	d.regIndex[r.Name] = len(d.regs)
	d.regs = append(d.regs, r)
	for i := range r.Size {
		w := Wire{Kind: r.Kind, Reg: r.Name, Index: i}
		if r.Kind == QuantumWire {
			d.qubits = append(d.qubits, w)
		} else {
			d.clbits = append(d.clbits, w)
		}
		in := d.newNode(&Node{Type: InNode, Wire: w})
		out := d.newNode(&Node{Type: OutNode, Wire: w})
		d.inputs[w] = in
		d.outputs[w] = out
		d.link(in, out, w)
	}
	return nil
}

func (d *DAG) newNode(n *Node) NodeID {
	n.ID = d.nextID
	d.nextID++
	d.nodes[n.ID] = n
	d.succ[n.ID] = make(map[Wire]NodeID)
	d.pred[n.ID] = make(map[Wire]NodeID)
	return n.ID
}

func (d *DAG) link(from, to NodeID, w Wire) {
	d.succ[from][w] = to
	d.pred[to][w] = from
}

// Registers returns the registers in declaration order.
func (d *DAG) Registers() []Register { return slices.Clone(d.regs) }

// Register looks a register up by name.
func (d *DAG) Register(name string) (Register, bool) {
	i, ok := d.regIndex[name]
	if !ok {
		return Register{}, false
	}
	return d.regs[i], true
}

// Qubits returns quantum wires in declaration order.
func (d *DAG) Qubits() []Wire { return slices.Clone(d.qubits) }

// Clbits returns classical wires in declaration order.
func (d *DAG) Clbits() []Wire { return slices.Clone(d.clbits) }

// Wires returns quantum wires followed by classical wires.
func (d *DAG) Wires() []Wire {
	return append(d.Qubits(), d.clbits...)
}

func (d *DAG) NumQubits() int { return len(d.qubits) }
func (d *DAG) NumClbits() int { return len(d.clbits) }

// QubitIndex returns the flat position of a quantum wire, or -1.
func (d *DAG) QubitIndex(w Wire) int { return slices.Index(d.qubits, w) }

// ClbitIndex returns the flat position of a classical wire, or -1.
func (d *DAG) ClbitIndex(w Wire) int { return slices.Index(d.clbits, w) }

// Node returns the node with the given id.
func (d *DAG) Node(id NodeID) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Successor returns the next node on w after id.
func (d *DAG) Successor(id NodeID, w Wire) (NodeID, bool) {
	s, ok := d.succ[id][w]
	return s, ok
}

// Predecessor returns the previous node on w before id.
func (d *DAG) Predecessor(id NodeID, w Wire) (NodeID, bool) {
	p, ok := d.pred[id][w]
	return p, ok
}

func (d *DAG) hasWire(w Wire) bool {
	_, ok := d.inputs[w]
	return ok
}

func (d *DAG) conditionWires(c *Condition) []Wire {
	if c == nil {
		return nil
	}
	r, ok := d.Register(c.Reg)
	if !ok {
		return nil
	}
	out := make([]Wire, r.Size)
	for i := range r.Size {
		out[i] = Wire{Kind: ClassicalWire, Reg: r.Name, Index: i}
	}
	return out
}

// NodeWires lists every wire an op node touches: quantum operands,
// classical operands, then condition bits not already among the operands.
func (d *DAG) NodeWires(id NodeID) []Wire {
	n, ok := d.nodes[id]
	if !ok {
		return nil
	}
	if n.Type != OpNode {
		return []Wire{n.Wire}
	}
	return d.opWires(n.Qargs, n.Cargs, n.Condition)
}

func (d *DAG) opWires(qargs, cargs []Wire, cond *Condition) []Wire {
	out := make([]Wire, 0, len(qargs)+len(cargs))
	out = append(out, qargs...)
	out = append(out, cargs...)
	for _, w := range d.conditionWires(cond) {
		if !slices.Contains(cargs, w) {
			out = append(out, w)
		}
	}
	return out
}

// ApplyOperationBack appends an operation at the end of its wires.
func (d *DAG) ApplyOperationBack(op *gates.Gate, qargs, cargs []Wire, cond *Condition) (NodeID, error) {
	if err := d.checkOperands(op, qargs, cargs, cond); err != nil {
		return 0, err
	}
	n := &Node{
		Type:      OpNode,
		Op:        op,
		Qargs:     slices.Clone(qargs),
		Cargs:     slices.Clone(cargs),
		Condition: cloneCondition(cond),
	}
	id := d.newNode(n)
	for _, w := range d.opWires(n.Qargs, n.Cargs, n.Condition) {
		out := d.outputs[w]
		prev := d.pred[out][w]
		d.link(prev, id, w)
		d.link(id, out, w)
	}
	return id, nil
}

func (d *DAG) checkOperands(op *gates.Gate, qargs, cargs []Wire, cond *Condition) error {
	if len(qargs) != op.NumQubits() || len(cargs) != op.NumClbits() {
		return mismatchf("%s takes %d qubits and %d clbits, got %d and %d",
			op.Name(), op.NumQubits(), op.NumClbits(), len(qargs), len(cargs))
	}
	seen := make(map[Wire]bool, len(qargs)+len(cargs))
	for _, w := range qargs {
		if w.Kind != QuantumWire || !d.hasWire(w) {
			return wiref("%s is not a qubit of this circuit", w)
		}
		if seen[w] {
			return mismatchf("%s used twice by %s", w, op.Name())
		}
		seen[w] = true
	}
	for _, w := range cargs {
		if w.Kind != ClassicalWire || !d.hasWire(w) {
			return wiref("%s is not a clbit of this circuit", w)
		}
		if seen[w] {
			return mismatchf("%s used twice by %s", w, op.Name())
		}
		seen[w] = true
	}
	if cond != nil {
		r, ok := d.Register(cond.Reg)
		if !ok || r.Kind != ClassicalWire {
			return wiref("condition register %s is not a classical register", cond.Reg)
		}
		if cond.Value < 0 || (r.Size < 62 && cond.Value >= 1<<r.Size) {
			return invalidf("condition value %d does not fit register %s", cond.Value, cond.Reg)
		}
	}
	return nil
}

func cloneCondition(c *Condition) *Condition {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}

// RemoveOpNode deletes an operation and reconnects its wires.
func (d *DAG) RemoveOpNode(id NodeID) error {
	n, ok := d.nodes[id]
	if !ok || n.Type != OpNode {
		return &GraphError{Kind: ErrNodeNotFound, Msg: fmt.Sprintf("op node %d", id)}
	}
	for _, w := range d.NodeWires(id) {
		d.link(d.pred[id][w], d.succ[id][w], w)
	}
	d.drop(id)
	return nil
}

func (d *DAG) drop(id NodeID) {
	delete(d.nodes, id)
	delete(d.succ, id)
	delete(d.pred, id)
}

// Copy returns an independent graph with identical ids. Gates are shared;
// they are immutable.
func (d *DAG) Copy() *DAG {
	c := New()
	c.regs = slices.Clone(d.regs)
	for k, v := range d.regIndex {
		c.regIndex[k] = v
	}
	c.qubits = slices.Clone(d.qubits)
	c.clbits = slices.Clone(d.clbits)
	for k, v := range d.inputs {
		c.inputs[k] = v
	}
	for k, v := range d.outputs {
		c.outputs[k] = v
	}
	for id, n := range d.nodes {
		nn := *n
		nn.Qargs = slices.Clone(n.Qargs)
		nn.Cargs = slices.Clone(n.Cargs)
		nn.Condition = cloneCondition(n.Condition)
		c.nodes[id] = &nn
		c.succ[id] = make(map[Wire]NodeID, len(d.succ[id]))
		for w, s := range d.succ[id] {
			c.succ[id][w] = s
		}
		c.pred[id] = make(map[Wire]NodeID, len(d.pred[id]))
		for w, p := range d.pred[id] {
			c.pred[id][w] = p
		}
	}
	c.nextID = d.nextID
	return c
}

// FromRule builds a graph over fresh registers "q" and "c" holding rule.
func FromRule(rule gates.Rule, numQubits, numClbits int) (*DAG, error) {
	d := New()
	if err := d.AddQReg("q", numQubits); err != nil {
		return nil, err
	}
	if numClbits > 0 {
		if err := d.AddCReg("c", numClbits); err != nil {
			return nil, err
		}
	}
	if err := d.AppendRule(rule, "q", "c", nil); err != nil {
		return nil, err
	}
	return d, nil
}

// AppendRule applies every instruction of rule, resolving local indices
// against the named registers and tagging each with cond.
func (d *DAG) AppendRule(rule gates.Rule, qreg, creg string, cond *Condition) error {
	for _, in := range rule {
		qargs := make([]Wire, len(in.Qubits))
		for i, q := range in.Qubits {
			qargs[i] = Wire{Kind: QuantumWire, Reg: qreg, Index: q}
		}
		cargs := make([]Wire, len(in.Clbits))
		for i, c := range in.Clbits {
			cargs[i] = Wire{Kind: ClassicalWire, Reg: creg, Index: c}
		}
		if _, err := d.ApplyOperationBack(in.Gate, qargs, cargs, cond); err != nil {
			return err
		}
	}
	return nil
}
