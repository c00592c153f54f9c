package dag

import (
	"container/heap"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/sha3"
)

type idMinHeap []NodeID

func (h idMinHeap) Len() int           { return len(h) }
func (h idMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idMinHeap) Push(x any)        { *h = append(*h, x.(NodeID)) }
func (h *idMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopologicalOrder returns every node id in a linear extension of the edges.
// Among ready nodes the lowest id goes first, so the order follows
// insertion order wherever the wires allow.
func (d *DAG) TopologicalOrder() []NodeID {
	indeg := make(map[NodeID]int, len(d.nodes))
	ready := &idMinHeap{}
	for id := range d.nodes {
		indeg[id] = len(d.pred[id])
		if indeg[id] == 0 {
			*ready = append(*ready, id)
		}
	}
	heap.Init(ready)
	order := make([]NodeID, 0, len(d.nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(NodeID)
		order = append(order, id)
		for _, s := range d.succ[id] {
			indeg[s]--
			if indeg[s] == 0 {
				heap.Push(ready, s)
			}
		}
	}
	return order
}

// OpNodes returns the operation nodes in topological order.
func (d *DAG) OpNodes() []*Node {
	var out []*Node
	for _, id := range d.TopologicalOrder() {
		if n := d.nodes[id]; n.Type == OpNode {
			out = append(out, n)
		}
	}
	return out
}

// FindNodesByName returns op nodes whose name is one of names, in
// topological order.
func (d *DAG) FindNodesByName(names ...string) []*Node {
	var out []*Node
	for _, n := range d.OpNodes() {
		if slices.Contains(names, n.Name()) {
			out = append(out, n)
		}
	}
	return out
}

// CountOps tallies operations by name.
func (d *DAG) CountOps() map[string]int {
	counts := make(map[string]int)
	for _, n := range d.nodes {
		if n.Type == OpNode {
			counts[n.Name()]++
		}
	}
	return counts
}

// Size is the number of operation nodes.
func (d *DAG) Size() int {
	n := 0
	for _, node := range d.nodes {
		if node.Type == OpNode {
			n++
		}
	}
	return n
}

// Layers groups op nodes by longest-path distance from the inputs.
func (d *DAG) Layers() [][]*Node {
	level := make(map[NodeID]int, len(d.nodes))
	var layers [][]*Node
	for _, id := range d.TopologicalOrder() {
		n := d.nodes[id]
		if n.Type != OpNode {
			continue
		}
		l := 0
		for _, p := range d.pred[id] {
			if d.nodes[p].Type == OpNode && level[p]+1 > l {
				l = level[p] + 1
			}
		}
		level[id] = l
		for len(layers) <= l {
			layers = append(layers, nil)
		}
		layers[l] = append(layers[l], n)
	}
	return layers
}

// Depth is the number of layers.
func (d *DAG) Depth() int { return len(d.Layers()) }

// Fingerprint hashes registers and the topologically ordered op stream.
func (d *DAG) Fingerprint() string {
	h := sha3.New256()
	for _, r := range d.regs {
		fmt.Fprintf(h, "reg %d %s %d\n", r.Kind, r.Name, r.Size)
	}
	for _, n := range d.OpNodes() {
		var sb strings.Builder
		sb.WriteString(n.Name())
		for _, p := range n.Op.Params() {
			fmt.Fprintf(&sb, " %.12g", p)
		}
		for _, w := range n.Qargs {
			sb.WriteString(" " + w.String())
		}
		for _, w := range n.Cargs {
			sb.WriteString(" " + w.String())
		}
		if n.Condition != nil {
			fmt.Fprintf(&sb, " if %s==%d", n.Condition.Reg, n.Condition.Value)
		}
		if m := n.Op.UnitaryMatrix(); m != nil {
			sb.WriteString(" " + m.String())
		}
		fmt.Fprintln(h, sb.String())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks the structural invariants: one input and output per wire,
// every op node connected once per touched wire, and acyclicity.
func (d *DAG) Validate() error {
	for _, w := range d.Wires() {
		in, ok1 := d.inputs[w]
		out, ok2 := d.outputs[w]
		if !ok1 || !ok2 {
			return invalidf("wire %s lacks an endpoint", w)
		}
		cur, steps := in, 0
		for cur != out {
			next, ok := d.succ[cur][w]
			if !ok {
				return invalidf("wire %s is broken after node %d", w, cur)
			}
			cur = next
			steps++
			if steps > len(d.nodes) {
				return invalidf("wire %s does not terminate", w)
			}
		}
	}
	for id, n := range d.nodes {
		if n.Type != OpNode {
			continue
		}
		wires := d.NodeWires(id)
		if len(d.pred[id]) != len(wires) || len(d.succ[id]) != len(wires) {
			return invalidf("node %d (%s) has degree %d/%d, touches %d wires",
				id, n.Name(), len(d.pred[id]), len(d.succ[id]), len(wires))
		}
		for _, w := range wires {
			if _, ok := d.pred[id][w]; !ok {
				return invalidf("node %d missing incoming edge on %s", id, w)
			}
		}
	}
	if len(d.TopologicalOrder()) != len(d.nodes) {
		return invalidf("cycle detected")
	}
	return nil
}
