package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtranspile/internal/gates"
)

func q(i int) Wire { return Wire{Kind: QuantumWire, Reg: "q", Index: i} }
func c(i int) Wire { return Wire{Kind: ClassicalWire, Reg: "c", Index: i} }

func bell(t *testing.T) *DAG {
	t.Helper()
	d := New()
	require.NoError(t, d.AddQReg("q", 2))
	require.NoError(t, d.AddCReg("c", 2))
	_, err := d.ApplyOperationBack(gates.H(), []Wire{q(0)}, nil, nil)
	require.NoError(t, err)
	_, err = d.ApplyOperationBack(gates.CX(), []Wire{q(0), q(1)}, nil, nil)
	require.NoError(t, err)
	_, err = d.ApplyOperationBack(gates.Measure(), []Wire{q(0)}, []Wire{c(0)}, nil)
	require.NoError(t, err)
	return d
}

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

func TestApplyAndOrder(t *testing.T) {
	d := bell(t)
	require.NoError(t, d.Validate())
	assert.Equal(t, []string{"h", "cx", "measure"}, names(d.OpNodes()))
	assert.Equal(t, 3, d.Size())
	assert.Equal(t, 3, d.Depth())
	assert.Equal(t, map[string]int{"h": 1, "cx": 1, "measure": 1}, d.CountOps())
}

func TestTopologicalOrderBreaksTiesByInsertion(t *testing.T) {
	d := New()
	require.NoError(t, d.AddQReg("q", 3))
	for _, i := range []int{2, 0, 1} {
		_, err := d.ApplyOperationBack(gates.X(), []Wire{q(i)}, nil, nil)
		require.NoError(t, err)
	}
	ops := d.OpNodes()
	require.Len(t, ops, 3)
	assert.Equal(t, []Wire{q(2)}, ops[0].Qargs)
	assert.Equal(t, []Wire{q(0)}, ops[1].Qargs)
	assert.Equal(t, []Wire{q(1)}, ops[2].Qargs)
	assert.Equal(t, d.TopologicalOrder(), d.TopologicalOrder())
}

func TestApplyOperationErrors(t *testing.T) {
	d := bell(t)
	_, err := d.ApplyOperationBack(gates.CX(), []Wire{q(0)}, nil, nil)
	assert.ErrorIs(t, err, ErrStructuralMismatch)
	_, err = d.ApplyOperationBack(gates.CX(), []Wire{q(0), q(0)}, nil, nil)
	assert.ErrorIs(t, err, ErrStructuralMismatch)
	_, err = d.ApplyOperationBack(gates.H(), []Wire{q(5)}, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownWire)
	_, err = d.ApplyOperationBack(gates.H(), []Wire{q(0)}, nil, &Condition{Reg: "nope", Value: 1})
	assert.ErrorIs(t, err, ErrUnknownWire)
	assert.ErrorIs(t, d.AddQReg("q", 1), ErrDuplicateRegister)
}

func TestSubstituteKeepsOtherIDs(t *testing.T) {
	d := bell(t)
	ops := d.OpNodes()
	hID, cxID, mID := ops[0].ID, ops[1].ID, ops[2].ID

	repl, err := FromRule(gates.CZ().Decompositions()[0], 2, 0)
	require.NoError(t, err)
	require.NoError(t, d.SubstituteNodeWithDAG(cxID, repl, nil))
	require.NoError(t, d.Validate())

	_, ok := d.Node(cxID)
	assert.False(t, ok)
	for _, id := range []NodeID{hID, mID} {
		_, ok := d.Node(id)
		assert.True(t, ok)
	}
	// measure is older than the spliced trailing h, so it sorts first.
	assert.Equal(t, []string{"h", "h", "cx", "measure", "h"}, names(d.OpNodes()))
}

func TestSubstituteReversedWires(t *testing.T) {
	d := New()
	require.NoError(t, d.AddQReg("q", 2))
	id, err := d.ApplyOperationBack(gates.CZ(), []Wire{q(0), q(1)}, nil, nil)
	require.NoError(t, err)

	repl, err := FromRule(gates.Rule{{Gate: gates.CX(), Qubits: []int{0, 1}}}, 2, 0)
	require.NoError(t, err)
	require.NoError(t, d.SubstituteNodeWithDAG(id, repl, repl.ReverseQubits()))
	ops := d.OpNodes()
	require.Len(t, ops, 1)
	assert.Equal(t, []Wire{q(1), q(0)}, ops[0].Qargs)
}

func TestSubstituteMismatch(t *testing.T) {
	d := bell(t)
	cx := d.FindNodesByName("cx")[0]
	before := d.Fingerprint()

	one, err := FromRule(gates.Rule{{Gate: gates.H(), Qubits: []int{0}}}, 1, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, d.SubstituteNodeWithDAG(cx.ID, one, nil), ErrStructuralMismatch)

	withClbit := New()
	require.NoError(t, withClbit.AddQReg("q", 1))
	require.NoError(t, withClbit.AddCReg("c", 1))
	mixed := []Wire{q(0), c(0)}
	assert.ErrorIs(t, d.SubstituteNodeWithDAG(cx.ID, withClbit, mixed), ErrStructuralMismatch)

	assert.Equal(t, before, d.Fingerprint())
	assert.NoError(t, d.Validate())
}

func TestSubstituteNotFound(t *testing.T) {
	d := bell(t)
	repl, err := FromRule(nil, 1, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, d.SubstituteNodeWithDAG(NodeID(999), repl, nil), ErrNodeNotFound)
}

func TestConditionTouchesRegister(t *testing.T) {
	d := bell(t)
	id, err := d.ApplyOperationBack(gates.X(), []Wire{q(1)}, nil, &Condition{Reg: "c", Value: 1})
	require.NoError(t, err)
	assert.Equal(t, []Wire{q(1), c(0), c(1)}, d.NodeWires(id))
	require.NoError(t, d.Validate())

	// The conditioned X must follow the measurement that writes c[0].
	assert.Equal(t, []string{"h", "cx", "measure", "x"}, names(d.OpNodes()))
}

func TestRemoveOpNode(t *testing.T) {
	d := bell(t)
	h := d.FindNodesByName("h")[0]
	require.NoError(t, d.RemoveOpNode(h.ID))
	require.NoError(t, d.Validate())
	assert.Equal(t, []string{"cx", "measure"}, names(d.OpNodes()))
	assert.ErrorIs(t, d.RemoveOpNode(h.ID), ErrNodeNotFound)
}

func TestCopyIsIndependent(t *testing.T) {
	d := bell(t)
	cp := d.Copy()
	assert.Equal(t, d.Fingerprint(), cp.Fingerprint())
	require.NoError(t, cp.RemoveOpNode(cp.FindNodesByName("h")[0].ID))
	assert.NotEqual(t, d.Fingerprint(), cp.Fingerprint())
	assert.Equal(t, 3, d.Size())
}

func TestLayers(t *testing.T) {
	d := New()
	require.NoError(t, d.AddQReg("q", 3))
	for _, args := range [][]Wire{{q(0)}, {q(1)}, {q(0), q(1)}, {q(2)}} {
		g := gates.H()
		if len(args) == 2 {
			g = gates.CX()
		}
		_, err := d.ApplyOperationBack(g, args, nil, nil)
		require.NoError(t, err)
	}
	layers := d.Layers()
	require.Len(t, layers, 2)
	assert.Len(t, layers[0], 3)
	assert.Equal(t, []string{"cx"}, names(layers[1]))
}

func TestWalkWire(t *testing.T) {
	d := bell(t)
	assert.Equal(t, []Wire{c(0), c(1)}, d.Clbits())
	assert.Equal(t, 1, d.ClbitIndex(c(1)))
	assert.Equal(t, -1, d.ClbitIndex(q(0)))

	ops := d.OpNodes()
	h, cx, m := ops[0].ID, ops[1].ID, ops[2].ID

	next, ok := d.Successor(h, q(0))
	require.True(t, ok)
	assert.Equal(t, cx, next)
	next, ok = d.Successor(cx, q(0))
	require.True(t, ok)
	assert.Equal(t, m, next)

	prev, ok := d.Predecessor(h, q(0))
	require.True(t, ok)
	in, _ := d.Node(prev)
	assert.Equal(t, InNode, in.Type)

	last, ok := d.Successor(m, c(0))
	require.True(t, ok)
	out, _ := d.Node(last)
	assert.Equal(t, OutNode, out.Type)
	assert.Equal(t, c(0), out.Wire)

	_, ok = d.Successor(h, q(1))
	assert.False(t, ok)
}
