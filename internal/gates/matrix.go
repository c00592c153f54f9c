package gates

import (
	"fmt"
	"math"
	"math/cmplx"

	"qtranspile/internal/linalg"
)

func expi(x float64) complex128 { return cmplx.Exp(complex(0, x)) }

// U3Matrix is the standard three-angle single-qubit unitary.
func U3Matrix(theta, phi, lam float64) *linalg.Matrix {
	c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
	return linalg.MustFromRows([][]complex128{
		{c, -expi(lam) * s},
		{expi(phi) * s, expi(phi+lam) * c},
	})
}

// RXMatrix is exp(-iθX/2).
func RXMatrix(theta float64) *linalg.Matrix {
	c, s := complex(math.Cos(theta/2), 0), complex(0, -math.Sin(theta/2))
	return linalg.MustFromRows([][]complex128{{c, s}, {s, c}})
}

// RYMatrix is exp(-iθY/2).
func RYMatrix(theta float64) *linalg.Matrix {
	c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
	return linalg.MustFromRows([][]complex128{{c, -s}, {s, c}})
}

// RZMatrix is exp(-iφZ/2).
func RZMatrix(phi float64) *linalg.Matrix {
	return linalg.MustFromRows([][]complex128{{expi(-phi / 2), 0}, {0, expi(phi / 2)}})
}

// PhaseMatrix is diag(1, e^{iλ}).
func PhaseMatrix(lam float64) *linalg.Matrix {
	return linalg.MustFromRows([][]complex128{{1, 0}, {0, expi(lam)}})
}

func rMatrix(theta, phi float64) *linalg.Matrix {
	c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
	return linalg.MustFromRows([][]complex128{
		{c, complex(0, -1) * expi(-phi) * s},
		{complex(0, -1) * expi(phi) * s, c},
	})
}

// controlled lifts u to a two-qubit gate controlled by qubit 0 acting on
// qubit 1.
func controlled(u *linalg.Matrix) *linalg.Matrix {
	m := linalg.Identity(4)
	m.Set(1, 1, u.At(0, 0))
	m.Set(1, 3, u.At(0, 1))
	m.Set(3, 1, u.At(1, 0))
	m.Set(3, 3, u.At(1, 1))
	return m
}

var (
	pauliX = linalg.MustFromRows([][]complex128{{0, 1}, {1, 0}})
	pauliY = linalg.MustFromRows([][]complex128{{0, -1i}, {1i, 0}})
	pauliZ = linalg.MustFromRows([][]complex128{{1, 0}, {0, -1}})
	hadam  = linalg.MustFromRows([][]complex128{
		{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
		{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	})
)

// HMatrix is the Hadamard matrix.
func HMatrix() *linalg.Matrix { return hadam.Clone() }

// Matrix returns the unitary of g in little-endian order: the first qubit
// operand is the least significant bit.
func (g *Gate) Matrix() (*linalg.Matrix, error) {
	p := g.params
	switch g.kind {
	case KindU, KindU3:
		return U3Matrix(p[0], p[1], p[2]), nil
	case KindU2:
		return U3Matrix(math.Pi/2, p[0], p[1]), nil
	case KindU1:
		return PhaseMatrix(p[0]), nil
	case KindID:
		return linalg.Identity(2), nil
	case KindX:
		return pauliX.Clone(), nil
	case KindY:
		return pauliY.Clone(), nil
	case KindZ:
		return pauliZ.Clone(), nil
	case KindH:
		return hadam.Clone(), nil
	case KindS:
		return PhaseMatrix(math.Pi / 2), nil
	case KindSdg:
		return PhaseMatrix(-math.Pi / 2), nil
	case KindT:
		return PhaseMatrix(math.Pi / 4), nil
	case KindTdg:
		return PhaseMatrix(-math.Pi / 4), nil
	case KindRX:
		return RXMatrix(p[0]), nil
	case KindRY:
		return RYMatrix(p[0]), nil
	case KindRZ:
		return RZMatrix(p[0]), nil
	case KindR:
		return rMatrix(p[0], p[1]), nil
	case KindCX, KindCXBase:
		return controlled(pauliX), nil
	case KindCY:
		return controlled(pauliY), nil
	case KindCZ:
		return controlled(pauliZ), nil
	case KindCH:
		return controlled(hadam), nil
	case KindCRX:
		return controlled(RXMatrix(p[0])), nil
	case KindCRY:
		return controlled(RYMatrix(p[0])), nil
	case KindCRZ:
		return controlled(RZMatrix(p[0])), nil
	case KindCU1:
		return controlled(PhaseMatrix(p[0])), nil
	case KindCU3:
		// Controlled Rz(φ)·Ry(θ)·Rz(λ): u3 without its e^{i(φ+λ)/2} phase.
		return controlled(U3Matrix(p[0], p[1], p[2]).Scale(expi(-(p[1] + p[2]) / 2))), nil
	case KindSwap:
		return linalg.MustFromRows([][]complex128{
			{1, 0, 0, 0},
			{0, 0, 1, 0},
			{0, 1, 0, 0},
			{0, 0, 0, 1},
		}), nil
	case KindASwap:
		return linalg.MustFromRows([][]complex128{
			{1, 0, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 1},
			{0, 1, 0, 0},
		}), nil
	case KindCCX:
		m := linalg.Identity(8)
		m.Set(3, 3, 0)
		m.Set(7, 7, 0)
		m.Set(3, 7, 1)
		m.Set(7, 3, 1)
		return m, nil
	case KindRZZ:
		a, b := expi(-p[0]/2), expi(p[0]/2)
		return linalg.MustFromRows([][]complex128{
			{a, 0, 0, 0},
			{0, b, 0, 0},
			{0, 0, b, 0},
			{0, 0, 0, a},
		}), nil
	case KindRXX:
		c, s := complex(math.Cos(p[0]/2), 0), complex(0, -math.Sin(p[0]/2))
		return linalg.MustFromRows([][]complex128{
			{c, 0, 0, s},
			{0, c, s, 0},
			{0, s, c, 0},
			{s, 0, 0, c},
		}), nil
	case KindUnitary:
		return g.matrix.Clone(), nil
	case KindCustom:
		rules := g.Decompositions()
		if len(rules) == 0 {
			break
		}
		return RuleMatrix(rules[0], g.numQubits)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoMatrix, g.name)
}

// RuleMatrix composes the unitary of a rule over n local qubits.
func RuleMatrix(rule Rule, n int) (*linalg.Matrix, error) {
	total := linalg.Identity(1 << n)
	for _, in := range rule {
		if in.Gate.kind == KindBarrier {
			continue
		}
		m, err := in.Gate.Matrix()
		if err != nil {
			return nil, err
		}
		total = linalg.Embed(m, in.Qubits, n).Mul(total)
	}
	return total, nil
}
