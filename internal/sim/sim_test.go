package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtranspile/internal/dag"
	"qtranspile/internal/gates"
	"qtranspile/internal/linalg"
)

func q(i int) dag.Wire { return dag.Wire{Kind: dag.QuantumWire, Reg: "q", Index: i} }

func build(t *testing.T, n int, ops ...func(d *dag.DAG)) *dag.DAG {
	t.Helper()
	d := dag.New()
	require.NoError(t, d.AddQReg("q", n))
	require.NoError(t, d.AddCReg("c", n))
	for _, op := range ops {
		op(d)
	}
	return d
}

func apply(t *testing.T, g *gates.Gate, wires ...dag.Wire) func(*dag.DAG) {
	return func(d *dag.DAG) {
		_, err := d.ApplyOperationBack(g, wires, nil, nil)
		require.NoError(t, err)
	}
}

func TestSimulateBell(t *testing.T) {
	d := build(t, 2, apply(t, gates.H(), q(0)), apply(t, gates.CX(), q(0), q(1)))
	s, err := Simulate(d)
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt2, real(s.Amplitudes[0]), 1e-12)
	assert.InDelta(t, 1/math.Sqrt2, real(s.Amplitudes[3]), 1e-12)

	probs := s.QubitProbabilities()
	require.Len(t, probs, 2)
	assert.InDelta(t, 0.5, probs[1].Prob1, 1e-12)

	states := s.BasisStates()
	require.Len(t, states, 2)
	assert.Equal(t, 0, states[0].Hamming)
	assert.Equal(t, 2, states[1].Hamming)
}

func TestUnitaryLittleEndian(t *testing.T) {
	d := build(t, 2, apply(t, gates.X(), q(0)))
	u, err := Unitary(d)
	require.NoError(t, err)
	assert.Equal(t, complex(1, 0), u.At(1, 0))

	cx := build(t, 2, apply(t, gates.CX(), q(0), q(1)))
	u, err = Unitary(cx)
	require.NoError(t, err)
	want, err := gates.CX().Matrix()
	require.NoError(t, err)
	assert.True(t, linalg.Equal(want, u, 1e-12))
}

func TestUnitaryRejectsMeasurement(t *testing.T) {
	d := build(t, 1, func(d *dag.DAG) {
		_, err := d.ApplyOperationBack(gates.Measure(), []dag.Wire{q(0)}, []dag.Wire{{Kind: dag.ClassicalWire, Reg: "c", Index: 0}}, nil)
		require.NoError(t, err)
	})
	_, err := Unitary(d)
	assert.ErrorIs(t, err, ErrNonUnitary)

	_, err = Simulate(d)
	assert.NoError(t, err)
}

func TestEquivalent(t *testing.T) {
	a := build(t, 1, apply(t, gates.H(), q(0)))
	b := build(t, 1, apply(t, gates.RY(math.Pi/2), q(0)), apply(t, gates.RZ(math.Pi), q(0)))
	ok, err := Equivalent(a, b, 1e-9)
	require.NoError(t, err)
	assert.False(t, ok)

	c := build(t, 1, apply(t, gates.RZ(math.Pi), q(0)), apply(t, gates.RY(math.Pi/2), q(0)))
	ok, err = Equivalent(a, c, 1e-9)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReset(t *testing.T) {
	d := build(t, 1, apply(t, gates.X(), q(0)), apply(t, gates.Reset(), q(0)))
	s, err := Simulate(d)
	require.NoError(t, err)
	assert.InDelta(t, 1, real(s.Amplitudes[0]), 1e-12)
}
