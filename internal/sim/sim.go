// Package sim is a small state-vector simulator used to check that compiled
// circuits act like their sources.
package sim

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"

	"qtranspile/internal/dag"
	"qtranspile/internal/gates"
	"qtranspile/internal/linalg"
)

// ErrNonUnitary is returned when a circuit contains measurement, reset or
// classically conditioned operations.
var ErrNonUnitary = errors.New("circuit is not unitary")

// MaxQubits bounds simulation; a full unitary needs 4^n amplitudes.
const MaxQubits = 12

type StateVector struct {
	Amplitudes []complex128
	NumQubits  int
}

// NewStateVector returns |0…0⟩.
func NewStateVector(numQubits int) *StateVector {
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

// Apply applies g to the given qubits. Barriers are ignored.
func (s *StateVector) Apply(g *gates.Gate, qubits []int) error {
	switch g.Kind() {
	case gates.KindBarrier:
		return nil
	case gates.KindReset:
		s.reset(qubits[0])
		return nil
	}
	m, err := g.Matrix()
	if err != nil {
		return err
	}
	linalg.Apply(s.Amplitudes, m, qubits)
	return nil
}

// reset collapses q onto its more likely outcome and, if that was |1⟩,
// flips it back to |0⟩.
func (s *StateVector) reset(q int) {
	bit := 1 << q
	prob0 := 0.0
	for i, a := range s.Amplitudes {
		if i&bit == 0 {
			prob0 += real(a * cmplx.Conj(a))
		}
	}
	keep, norm := 0, math.Sqrt(prob0)
	if prob0 < 0.5 {
		keep, norm = bit, math.Sqrt(1-prob0)
	}
	for i := range s.Amplitudes {
		if i&bit != 0 {
			continue
		}
		s.Amplitudes[i] = s.Amplitudes[i|keep] / complex(norm, 0)
		s.Amplitudes[i|bit] = 0
	}
}

type QubitProbability struct {
	Prob0 float64
	Prob1 float64
}

// QubitProbabilities returns the marginal distribution of every qubit.
func (s *StateVector) QubitProbabilities() []QubitProbability {
	probs := make([]QubitProbability, s.NumQubits)
	for i, a := range s.Amplitudes {
		p := real(a * cmplx.Conj(a))
		for q := range s.NumQubits {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += p
			} else {
				probs[q].Prob0 += p
			}
		}
	}
	return probs
}

// BasisState is one non-negligible amplitude of a state.
type BasisState struct {
	Index     int
	Amplitude complex128
	Prob      float64
	Phase     float64
	Hamming   int
}

// BasisStates lists amplitudes with probability above 1e-10.
func (s *StateVector) BasisStates() []BasisState {
	var out []BasisState
	for i, a := range s.Amplitudes {
		p := real(a * cmplx.Conj(a))
		if p > 1e-10 {
			out = append(out, BasisState{
				Index:     i,
				Amplitude: a,
				Prob:      p,
				Phase:     cmplx.Phase(a),
				Hamming:   bits.OnesCount(uint(i)),
			})
		}
	}
	return out
}

func operandIndices(d *dag.DAG, n *dag.Node) []int {
	qs := make([]int, len(n.Qargs))
	for i, w := range n.Qargs {
		qs[i] = d.QubitIndex(w)
	}
	return qs
}

func checkSize(d *dag.DAG) error {
	if d.NumQubits() > MaxQubits {
		return fmt.Errorf("simulating %d qubits exceeds the limit of %d", d.NumQubits(), MaxQubits)
	}
	return nil
}

// Simulate runs d on |0…0⟩. Measurements and conditioned operations are
// skipped; resets are applied.
func Simulate(d *dag.DAG) (*StateVector, error) {
	if err := checkSize(d); err != nil {
		return nil, err
	}
	s := NewStateVector(d.NumQubits())
	for _, n := range d.OpNodes() {
		if n.Op.Kind() == gates.KindMeasure || n.Condition != nil {
			continue
		}
		if err := s.Apply(n.Op, operandIndices(d, n)); err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", n.ID, n.Name(), err)
		}
	}
	return s, nil
}

// Unitary returns the matrix of d over its qubits in wire order, qubit 0
// least significant.
func Unitary(d *dag.DAG) (*linalg.Matrix, error) {
	if err := checkSize(d); err != nil {
		return nil, err
	}
	dim := 1 << d.NumQubits()
	cols := make([][]complex128, dim)
	for j := range dim {
		cols[j] = make([]complex128, dim)
		cols[j][j] = 1
	}
	for _, n := range d.OpNodes() {
		switch {
		case n.Op.Kind() == gates.KindBarrier:
			continue
		case n.Op.Kind() == gates.KindMeasure, n.Op.Kind() == gates.KindReset, n.Condition != nil:
			return nil, fmt.Errorf("%w: node %d (%s)", ErrNonUnitary, n.ID, n.Name())
		}
		m, err := n.Op.Matrix()
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", n.ID, n.Name(), err)
		}
		qs := operandIndices(d, n)
		for _, col := range cols {
			linalg.Apply(col, m, qs)
		}
	}
	u := linalg.New(dim)
	for j, col := range cols {
		for i, v := range col {
			u.Set(i, j, v)
		}
	}
	return u, nil
}

// Equivalent reports whether a and b implement the same unitary up to
// global phase.
func Equivalent(a, b *dag.DAG, tol float64) (bool, error) {
	if a.NumQubits() != b.NumQubits() {
		return false, nil
	}
	ua, err := Unitary(a)
	if err != nil {
		return false, err
	}
	ub, err := Unitary(b)
	if err != nil {
		return false, err
	}
	return linalg.EqualUpToPhase(ua, ub, tol), nil
}
