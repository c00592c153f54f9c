// Package synth turns unitary matrices into gate sequences: Euler-angle
// decomposition for one qubit, a KAK basis decomposition for two qubits and
// a general two-level factorisation for larger operators.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"qtranspile/internal/gates"
	"qtranspile/internal/linalg"
)

var (
	// ErrInvalidOperand is returned for matrices of the wrong dimension or
	// that are not unitary.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrDecompositionFailed signals a numerical breakdown.
	ErrDecompositionFailed = errors.New("decomposition failed")
)

const angleTol = 1e-12

// EulerBasis names a family of single-qubit rotations.
type EulerBasis string

const (
	BasisU3  EulerBasis = "U3"
	BasisU1X EulerBasis = "U1X"
	BasisRR  EulerBasis = "RR"
	BasisZYZ EulerBasis = "ZYZ"
	BasisZXZ EulerBasis = "ZXZ"
	BasisXYX EulerBasis = "XYX"
)

// eulerPriority is checked in order; the first family fully contained in
// the target basis wins.
var eulerPriority = []struct {
	basis EulerBasis
	gates []string
}{
	{BasisU3, []string{"u3"}},
	{BasisU1X, []string{"u1", "rx"}},
	{BasisRR, []string{"r"}},
	{BasisZYZ, []string{"rz", "ry"}},
	{BasisZXZ, []string{"rz", "rx"}},
	{BasisXYX, []string{"rx", "ry"}},
}

// ChooseEulerBasis picks the Euler basis for a target gate set.
func ChooseEulerBasis(basis []string) (EulerBasis, bool) {
	for _, cand := range eulerPriority {
		ok := true
		for _, g := range cand.gates {
			if !slices.Contains(basis, g) {
				ok = false
				break
			}
		}
		if ok {
			return cand.basis, true
		}
	}
	return "", false
}

// OneQubitEulerDecomposer synthesises 2×2 unitaries in one Euler basis.
type OneQubitEulerDecomposer struct {
	basis EulerBasis
}

// NewOneQubitEulerDecomposer validates the basis name.
func NewOneQubitEulerDecomposer(basis EulerBasis) (*OneQubitEulerDecomposer, error) {
	for _, cand := range eulerPriority {
		if cand.basis == basis {
			return &OneQubitEulerDecomposer{basis: basis}, nil
		}
	}
	return nil, fmt.Errorf("unknown euler basis %q", basis)
}

func (e *OneQubitEulerDecomposer) Basis() EulerBasis { return e.basis }

// ZYZAngles returns θ, φ, λ and a phase with u = e^{i·phase}·Rz(φ)·Ry(θ)·Rz(λ).
func ZYZAngles(u *linalg.Matrix) (theta, phi, lam, phase float64) {
	coeff := 1 / cmplx.Sqrt(u.Det())
	phase = -cmplx.Phase(coeff)
	v00, v10, v11 := coeff*u.At(0, 0), coeff*u.At(1, 0), coeff*u.At(1, 1)
	theta = 2 * math.Atan2(cmplx.Abs(v10), cmplx.Abs(v00))
	sum := 2 * cmplx.Phase(v11)
	diff := 2 * cmplx.Phase(v10)
	phi = (sum + diff) / 2
	lam = (sum - diff) / 2
	return theta, phi, lam, phase
}

// Decompose returns the rotation sequence on local qubit 0, in time order.
func (e *OneQubitEulerDecomposer) Decompose(u *linalg.Matrix) (gates.Rule, error) {
	if u.Dim() != 2 {
		return nil, fmt.Errorf("%w: one-qubit decomposer got a %dx%d matrix", ErrInvalidOperand, u.Dim(), u.Dim())
	}
	if !u.IsUnitary(1e-8) {
		return nil, fmt.Errorf("%w: matrix is not unitary", ErrInvalidOperand)
	}
	if e.basis == BasisXYX {
		h := gates.HMatrix()
		theta, phi, lam, _ := ZYZAngles(h.Mul(u).Mul(h))
		// H·Rz·H = Rx and H·Ry·H = Ry(-).
		if isZero(theta) {
			return emit(nil, gates.RX(mod2pi(phi+lam))), nil
		}
		return emit(nil, gates.RX(mod2pi(lam)), gates.RY(-theta), gates.RX(mod2pi(phi))), nil
	}

	theta, phi, lam, _ := ZYZAngles(u)
	switch e.basis {
	case BasisU3:
		if isZero(theta) && isZero(phi+lam) {
			return nil, nil
		}
		return gates.Rule{on0(gates.U3(theta, mod2pi(phi), mod2pi(lam)))}, nil
	case BasisU1X:
		if isZero(theta) {
			return emit(nil, gates.U1(mod2pi(phi+lam))), nil
		}
		return emit(nil,
			gates.U1(mod2pi(lam)),
			gates.RX(math.Pi/2),
			gates.U1(mod2pi(theta+math.Pi)),
			gates.RX(math.Pi/2),
			gates.U1(mod2pi(phi+math.Pi)),
		), nil
	case BasisRR:
		if isZero(theta) && isZero(phi+lam) {
			return nil, nil
		}
		return emit(nil,
			gates.R(theta+math.Pi, mod2pi(math.Pi/2-lam)),
			gates.R(math.Pi, mod2pi((phi-lam+math.Pi)/2)),
		), nil
	case BasisZYZ:
		if isZero(theta) {
			return emit(nil, gates.RZ(mod2pi(phi+lam))), nil
		}
		return emit(nil, gates.RZ(mod2pi(lam)), gates.RY(theta), gates.RZ(mod2pi(phi))), nil
	case BasisZXZ:
		if isZero(theta) {
			return emit(nil, gates.RZ(mod2pi(phi+lam))), nil
		}
		return emit(nil,
			gates.RZ(mod2pi(lam-math.Pi/2)),
			gates.RX(theta),
			gates.RZ(mod2pi(phi+math.Pi/2)),
		), nil
	}
	return nil, fmt.Errorf("unknown euler basis %q", e.basis)
}

func on0(g *gates.Gate) gates.Instruction {
	return gates.Instruction{Gate: g, Qubits: []int{0}}
}

// emit appends gates, dropping rotations whose angle is a multiple of 2π.
func emit(r gates.Rule, gs ...*gates.Gate) gates.Rule {
	for _, g := range gs {
		if p := g.Params(); len(p) > 0 && isZero(p[0]) {
			continue
		}
		r = append(r, on0(g))
	}
	return r
}

// mod2pi wraps an angle into [-π, π).
func mod2pi(x float64) float64 {
	return x - 2*math.Pi*math.Floor((x+math.Pi)/(2*math.Pi))
}

func isZero(angle float64) bool {
	return math.Abs(mod2pi(angle)) < angleTol*1e3
}
