package synth

import (
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"

	"qtranspile/internal/gates"
	"qtranspile/internal/linalg"
)

const givensTol = 1e-14

// Isometry synthesises an arbitrary 2^n×2^n unitary into u3, u1, rz, ry, x,
// cx and ccx gates over local qubits 0..n-1. The output is exact up to global
// phase but not necessarily short; callers unroll it into their basis.
func Isometry(u *linalg.Matrix) (gates.Rule, error) {
	n, ok := linalg.NumQubits(u.Dim())
	if !ok || n == 0 {
		return nil, fmt.Errorf("%w: %dx%d is not a qubit operator", ErrInvalidOperand, u.Dim(), u.Dim())
	}
	if !u.IsUnitary(1e-8) {
		return nil, fmt.Errorf("%w: matrix is not unitary", ErrInvalidOperand)
	}
	if n == 1 {
		theta, phi, lam, _ := ZYZAngles(u)
		return gates.Rule{on0(gates.U3(theta, phi, lam))}, nil
	}

	levels := givens(u)
	var out gates.Rule
	for i := len(levels) - 1; i >= 0; i-- {
		out = append(out, twoLevel(n, levels[i])...)
	}
	return out, nil
}

// level is a unitary acting on the span of basis states a < b.
type level struct {
	a, b int
	g    *linalg.Matrix
}

// givens factors u = L_1·L_2·…·L_m into two-level unitaries. The last
// factor acts first in time.
func givens(u *linalg.Matrix) []level {
	m := u.Clone()
	dim := m.Dim()
	var undo []level

	rotate := func(a, b int, g *linalg.Matrix) {
		for col := range dim {
			x, y := m.At(a, col), m.At(b, col)
			m.Set(a, col, g.At(0, 0)*x+g.At(0, 1)*y)
			m.Set(b, col, g.At(1, 0)*x+g.At(1, 1)*y)
		}
		undo = append(undo, level{a: a, b: b, g: g.Dagger()})
	}

	for c := 0; c < dim-1; c++ {
		for r := dim - 1; r > c; r-- {
			x, y := m.At(c, c), m.At(r, c)
			if cmplx.Abs(y) < givensTol {
				continue
			}
			norm := complex(math.Hypot(cmplx.Abs(x), cmplx.Abs(y)), 0)
			rotate(c, r, linalg.MustFromRows([][]complex128{
				{cmplx.Conj(x) / norm, cmplx.Conj(y) / norm},
				{-y / norm, x / norm},
			}))
		}
		if d := m.At(c, c); cmplx.Abs(d-1) > givensTol {
			rotate(c, dim-1, linalg.MustFromRows([][]complex128{
				{cmplx.Conj(d), 0},
				{0, d},
			}))
		}
	}
	// m is now diag(1, …, 1, d) and u = undo[0]·undo[1]·…·diag(1, …, d).
	if d := m.At(dim-1, dim-1); cmplx.Abs(d-1) > givensTol {
		undo = append(undo, level{a: dim - 2, b: dim - 1, g: linalg.MustFromRows([][]complex128{
			{1, 0},
			{0, d},
		})})
	}
	return undo
}

// twoLevel emits a two-level unitary on an n-qubit register. A CX ladder
// moves a and b to neighbours that differ in a single bit t, the operator
// becomes a multi-controlled gate on t, and the ladder is undone.
func twoLevel(n int, l level) gates.Rule {
	diff := l.a ^ l.b
	t := bits.TrailingZeros(uint(diff))

	var ladder gates.Rule
	for d := range n {
		if d != t && diff&(1<<d) != 0 {
			ladder = append(ladder, gates.Instruction{Gate: gates.CX(), Qubits: []int{t, d}})
		}
	}
	a := permute(l.a, t, diff)

	var flips gates.Rule
	var controls []int
	for q := range n {
		if q == t {
			continue
		}
		controls = append(controls, q)
		if a&(1<<q) == 0 {
			flips = append(flips, gates.Instruction{Gate: gates.X(), Qubits: []int{q}})
		}
	}

	g := l.g
	if a&(1<<t) != 0 {
		x := linalg.MustFromRows([][]complex128{{0, 1}, {1, 0}})
		g = x.Mul(g).Mul(x)
	}

	var out gates.Rule
	out = append(out, ladder...)
	out = append(out, flips...)
	out = append(out, multiControlled(g, controls, t)...)
	out = append(out, flips...)
	for i := len(ladder) - 1; i >= 0; i-- {
		out = append(out, ladder[i])
	}
	return out
}

// permute applies the ladder: when bit t is set, flip every other bit of diff.
func permute(x, t, diff int) int {
	if x&(1<<t) == 0 {
		return x
	}
	return x ^ (diff &^ (1 << t))
}

// multiControlled applies u to target when every control is 1.
func multiControlled(u *linalg.Matrix, controls []int, target int) gates.Rule {
	switch len(controls) {
	case 0:
		theta, phi, lam, _ := ZYZAngles(u)
		return gates.Rule{{Gate: gates.U3(theta, phi, lam), Qubits: []int{target}}}
	case 1:
		return controlledABC(u, controls[0], target)
	case 2:
		if isPauliX(u) {
			return gates.Rule{{Gate: gates.CCX(), Qubits: []int{controls[0], controls[1], target}}}
		}
	}
	last := controls[len(controls)-1]
	rest := controls[:len(controls)-1]
	v := sqrtUnitary(u)
	x := linalg.MustFromRows([][]complex128{{0, 1}, {1, 0}})

	var out gates.Rule
	out = append(out, controlledABC(v, last, target)...)
	out = append(out, multiControlled(x, rest, last)...)
	out = append(out, controlledABC(v.Dagger(), last, target)...)
	out = append(out, multiControlled(x, rest, last)...)
	out = append(out, multiControlled(v, rest, target)...)
	return out
}

// controlledABC writes C(U) as C·CX·B·CX·A with ABC = I and a phase on the
// control.
func controlledABC(u *linalg.Matrix, control, target int) gates.Rule {
	if isPauliX(u) {
		return gates.Rule{{Gate: gates.CX(), Qubits: []int{control, target}}}
	}
	theta, phi, lam, alpha := ZYZAngles(u)
	on := func(g *gates.Gate, q int) gates.Instruction {
		return gates.Instruction{Gate: g, Qubits: []int{q}}
	}
	cx := gates.Instruction{Gate: gates.CX(), Qubits: []int{control, target}}
	return gates.Rule{
		on(gates.RZ((lam-phi)/2), target),
		cx,
		on(gates.RZ(-(lam+phi)/2), target),
		on(gates.RY(-theta/2), target),
		cx,
		on(gates.RY(theta/2), target),
		on(gates.RZ(phi), target),
		on(gates.U1(alpha), control),
	}
}

func isPauliX(u *linalg.Matrix) bool {
	return cmplx.Abs(u.At(0, 0)) < 1e-12 && cmplx.Abs(u.At(1, 1)) < 1e-12 &&
		cmplx.Abs(u.At(0, 1)-1) < 1e-12 && cmplx.Abs(u.At(1, 0)-1) < 1e-12
}

// sqrtUnitary returns V with V·V = u via the spectral decomposition of u.
func sqrtUnitary(u *linalg.Matrix) *linalg.Matrix {
	u00, u01, u10, u11 := u.At(0, 0), u.At(0, 1), u.At(1, 0), u.At(1, 1)
	if cmplx.Abs(u01) < 1e-12 && cmplx.Abs(u10) < 1e-12 {
		return linalg.MustFromRows([][]complex128{
			{cmplx.Sqrt(u00), 0},
			{0, cmplx.Sqrt(u11)},
		})
	}
	tr, det := u00+u11, u00*u11-u01*u10
	disc := cmplx.Sqrt(tr*tr - 4*det)
	v := linalg.New(2)
	for _, ev := range []complex128{(tr + disc) / 2, (tr - disc) / 2} {
		var x, y complex128
		if cmplx.Abs(u01) >= cmplx.Abs(u10) {
			x, y = u01, ev-u00
		} else {
			x, y = ev-u11, u10
		}
		norm := complex(math.Hypot(cmplx.Abs(x), cmplx.Abs(y)), 0)
		x, y = x/norm, y/norm
		s := cmplx.Sqrt(ev)
		v.Set(0, 0, v.At(0, 0)+s*x*cmplx.Conj(x))
		v.Set(0, 1, v.At(0, 1)+s*x*cmplx.Conj(y))
		v.Set(1, 0, v.At(1, 0)+s*y*cmplx.Conj(x))
		v.Set(1, 1, v.At(1, 1)+s*y*cmplx.Conj(y))
	}
	return v
}
