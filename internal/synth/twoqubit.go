package synth

import (
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"qtranspile/internal/gates"
	"qtranspile/internal/linalg"
)

// kakPriority is the order in which entangling gates are picked from a basis.
var kakPriority = []string{"cx", "cz", "rxx"}

// ChooseKAKGate returns the entangling gate used for two-qubit synthesis.
func ChooseKAKGate(basis []string) (*gates.Gate, bool) {
	for _, name := range kakPriority {
		if !slices.Contains(basis, name) {
			continue
		}
		switch name {
		case "cx":
			return gates.CX(), true
		case "cz":
			return gates.CZ(), true
		case "rxx":
			return gates.RXX(math.Pi / 2), true
		}
	}
	return nil, false
}

// TwoQubitBasisDecomposer writes a 4×4 unitary as one-qubit gates in a
// fixed Euler basis around at most three applications of a supercontrolled
// entangling gate.
type TwoQubitBasisDecomposer struct {
	kak   *gates.Gate
	euler *OneQubitEulerDecomposer
}

// NewTwoQubitBasisDecomposer accepts cx, cz or rxx(π/2) as the basis gate.
func NewTwoQubitBasisDecomposer(kak *gates.Gate, basis EulerBasis) (*TwoQubitBasisDecomposer, error) {
	switch kak.Kind() {
	case gates.KindCX, gates.KindCZ:
	case gates.KindRXX:
		if math.Abs(mod2pi(kak.Params()[0]-math.Pi/2)) > 1e-9 {
			return nil, fmt.Errorf("%w: rxx(%g) is not supercontrolled", ErrInvalidOperand, kak.Params()[0])
		}
	default:
		return nil, fmt.Errorf("%w: unsupported basis gate %s", ErrInvalidOperand, kak.Name())
	}
	e, err := NewOneQubitEulerDecomposer(basis)
	if err != nil {
		return nil, err
	}
	return &TwoQubitBasisDecomposer{kak: kak, euler: e}, nil
}

// Gate is the entangling gate the decomposer emits.
func (d *TwoQubitBasisDecomposer) Gate() *gates.Gate { return d.kak }

// traceFidelities are the average gate fidelities of the best approximation
// of the Weyl point (a, b, c) using 0..3 basis gates.
func traceFidelities(w *Weyl) [4]float64 {
	a, b, c := w.A, w.B, w.C
	traces := [4]complex128{
		4 * complex(math.Cos(a)*math.Cos(b)*math.Cos(c), math.Sin(a)*math.Sin(b)*math.Sin(c)),
		4 * complex(math.Cos(math.Pi/4-a)*math.Cos(b)*math.Cos(c), math.Sin(math.Pi/4-a)*math.Sin(b)*math.Sin(c)),
		complex(4*math.Cos(c), 0),
		4,
	}
	var out [4]float64
	for i, t := range traces {
		abs := cmplx.Abs(t)
		out[i] = (4 + abs*abs) / 20
	}
	return out
}

// NumBasisGates picks how many entangling gates maximise the expected
// fidelity when each application has fidelity basisFidelity. Values outside
// (0, 1] are treated as 1.
func NumBasisGates(w *Weyl, basisFidelity float64) int {
	if basisFidelity <= 0 || basisFidelity > 1 {
		basisFidelity = 1
	}
	best, bestFid := 0, -1.0
	for n, tr := range traceFidelities(w) {
		f := tr * math.Pow(basisFidelity, float64(n))
		if f > bestFid+1e-12 {
			best, bestFid = n, f
		}
	}
	return best
}

// Decompose synthesises u over local qubits 0 and 1. With basisFidelity 1
// the result is exact up to global phase.
func (d *TwoQubitBasisDecomposer) Decompose(u *linalg.Matrix, basisFidelity float64) (gates.Rule, error) {
	w, err := DecomposeWeyl(u)
	if err != nil {
		return nil, err
	}
	n := NumBasisGates(w, basisFidelity)

	var b circuitBuilder
	b.local(0, w.K2r)
	b.local(1, w.K2l)
	switch n {
	case 1:
		b.local(0, gates.HMatrix())
		b.local(1, gates.HMatrix())
		b.cz()
		b.local(0, gates.RZMatrix(-math.Pi/2))
		b.local(1, gates.RZMatrix(-math.Pi/2))
		b.local(0, gates.HMatrix())
		b.local(1, gates.HMatrix())
	case 2:
		b.local(0, gates.RXMatrix(math.Pi/2))
		b.cxOnto(1)
		b.local(0, gates.RXMatrix(-2*w.A))
		b.local(1, gates.RYMatrix(-2*w.B))
		b.cxOnto(1)
		b.local(0, gates.RXMatrix(-math.Pi/2))
	case 3:
		b.local(0, gates.RXMatrix(math.Pi/2))
		b.cxOnto(1)
		b.local(0, gates.RXMatrix(math.Pi/2-2*w.A))
		b.local(1, gates.RYMatrix(math.Pi/2-2*w.B))
		b.cxOnto(0)
		b.local(1, gates.RXMatrix(-math.Pi/2))
		b.local(1, gates.RZMatrix(math.Pi/2-2*w.C))
		b.cxOnto(1)
	}
	b.local(0, w.K1r)
	b.local(1, w.K1l)

	return d.lower(b.steps)
}

// step is either a one-qubit matrix on qubit q or, when m is nil, a CZ.
type step struct {
	q int
	m *linalg.Matrix
}

type circuitBuilder struct {
	steps []step
}

func (b *circuitBuilder) local(q int, m *linalg.Matrix) {
	b.steps = append(b.steps, step{q: q, m: m})
}

func (b *circuitBuilder) cz() { b.steps = append(b.steps, step{}) }

// cxOnto is a CX from the other qubit onto target: a CZ conjugated by
// Hadamards on the target.
func (b *circuitBuilder) cxOnto(target int) {
	b.local(target, gates.HMatrix())
	b.cz()
	b.local(target, gates.HMatrix())
}

// lower rewrites every CZ in terms of the basis gate, merges adjacent
// one-qubit matrices and runs them through the Euler decomposer.
func (d *TwoQubitBasisDecomposer) lower(steps []step) (gates.Rule, error) {
	var out gates.Rule
	pending := [2]*linalg.Matrix{linalg.Identity(2), linalg.Identity(2)}

	flush := func() error {
		for q := range 2 {
			seq, err := d.euler.Decompose(pending[q])
			if err != nil {
				return err
			}
			for _, in := range seq {
				out = append(out, gates.Instruction{Gate: in.Gate, Qubits: []int{q}})
			}
			pending[q] = linalg.Identity(2)
		}
		return nil
	}
	apply := func(q int, m *linalg.Matrix) {
		pending[q] = m.Mul(pending[q])
	}

	for _, s := range steps {
		if s.m != nil {
			apply(s.q, s.m)
			continue
		}
		switch d.kak.Kind() {
		case gates.KindCZ:
			if err := flush(); err != nil {
				return nil, err
			}
			out = append(out, gates.Instruction{Gate: d.kak, Qubits: []int{0, 1}})
		case gates.KindCX:
			apply(1, gates.HMatrix())
			if err := flush(); err != nil {
				return nil, err
			}
			out = append(out, gates.Instruction{Gate: d.kak, Qubits: []int{0, 1}})
			apply(1, gates.HMatrix())
		case gates.KindRXX:
			apply(0, gates.HMatrix())
			apply(1, gates.HMatrix())
			if err := flush(); err != nil {
				return nil, err
			}
			out = append(out, gates.Instruction{Gate: d.kak, Qubits: []int{0, 1}})
			for q := range 2 {
				apply(q, gates.HMatrix())
				apply(q, gates.RZMatrix(-math.Pi/2))
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}
