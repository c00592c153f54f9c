package gates

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"qtranspile/internal/linalg"
)

// Instruction places a gate on local qubit and clbit indices.
type Instruction struct {
	Gate   *Gate
	Qubits []int
	Clbits []int
}

// Rule is an ordered expansion of one gate over a fresh local register.
type Rule []Instruction

// RuleFunc builds the rules of a custom gate from its parameters.
type RuleFunc func(params []float64) []Rule

// Gate is an immutable operation instance. Parameters are fixed at
// construction; the decomposition rules are computed on first use and then
// shared by every caller.
type Gate struct {
	kind      Kind
	name      string
	numQubits int
	numClbits int
	params    []float64
	matrix    *linalg.Matrix
	ruleFn    RuleFunc

	once  sync.Once
	rules []Rule
}

// New builds a standard gate by name.
func New(name string, params ...float64) (*Gate, error) {
	k, ok := kindByName[name]
	if !ok || k == KindUnitary || k == KindBarrier {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGate, name)
	}
	info := kinds[k]
	if len(params) != info.numParams {
		return nil, fmt.Errorf("%w: %s takes %d parameters, got %d", ErrArity, name, info.numParams, len(params))
	}
	return newKind(k, params...), nil
}

func newKind(k Kind, params ...float64) *Gate {
	info := kinds[k]
	return &Gate{
		kind:      k,
		name:      info.name,
		numQubits: info.numQubits,
		numClbits: info.numClbits,
		params:    append([]float64(nil), params...),
	}
}

// Barrier spans n qubits.
func Barrier(n int) *Gate {
	g := newKind(KindBarrier)
	g.numQubits = n
	return g
}

// NewUnitary wraps a unitary matrix whose dimension is a power of two.
func NewUnitary(m *linalg.Matrix) (*Gate, error) {
	n, ok := linalg.NumQubits(m.Dim())
	if !ok {
		return nil, fmt.Errorf("%w: dimension %d is not a power of two", ErrInvalidMatrix, m.Dim())
	}
	if !m.IsUnitary(1e-8) {
		return nil, fmt.Errorf("%w: matrix is not unitary", ErrInvalidMatrix)
	}
	g := newKind(KindUnitary)
	g.numQubits = n
	g.matrix = m.Clone()
	return g, nil
}

// NewCustom declares a user gate expanded by rules.
func NewCustom(name string, numQubits int, params []float64, rules RuleFunc) *Gate {
	return &Gate{
		kind:      KindCustom,
		name:      name,
		numQubits: numQubits,
		params:    append([]float64(nil), params...),
		ruleFn:    rules,
	}
}

// NewOpaque declares a gate whose structure is hidden from decomposition.
func NewOpaque(name string, numQubits, numClbits int, params []float64) *Gate {
	return &Gate{
		kind:      KindOpaque,
		name:      name,
		numQubits: numQubits,
		numClbits: numClbits,
		params:    append([]float64(nil), params...),
	}
}

// Constructors used by rules and decomposers.

func U(theta, phi, lam float64) *Gate  { return newKind(KindU, theta, phi, lam) }
func U1(lam float64) *Gate             { return newKind(KindU1, lam) }
func U2(phi, lam float64) *Gate        { return newKind(KindU2, phi, lam) }
func U3(theta, phi, lam float64) *Gate { return newKind(KindU3, theta, phi, lam) }
func RX(theta float64) *Gate           { return newKind(KindRX, theta) }
func RY(theta float64) *Gate           { return newKind(KindRY, theta) }
func RZ(phi float64) *Gate             { return newKind(KindRZ, phi) }
func R(theta, phi float64) *Gate       { return newKind(KindR, theta, phi) }
func RXX(theta float64) *Gate          { return newKind(KindRXX, theta) }
func CU3(theta, phi, lam float64) *Gate {
	return newKind(KindCU3, theta, phi, lam)
}
func H() *Gate       { return newKind(KindH) }
func X() *Gate       { return newKind(KindX) }
func S() *Gate       { return newKind(KindS) }
func Sdg() *Gate     { return newKind(KindSdg) }
func T() *Gate       { return newKind(KindT) }
func Tdg() *Gate     { return newKind(KindTdg) }
func CX() *Gate      { return newKind(KindCX) }
func CZ() *Gate      { return newKind(KindCZ) }
func CCX() *Gate     { return newKind(KindCCX) }
func Swap() *Gate    { return newKind(KindSwap) }
func Measure() *Gate { return newKind(KindMeasure) }
func Reset() *Gate   { return newKind(KindReset) }

func (g *Gate) Kind() Kind     { return g.kind }
func (g *Gate) Name() string   { return g.name }
func (g *Gate) NumQubits() int { return g.numQubits }
func (g *Gate) NumClbits() int { return g.numClbits }

// Params returns a copy of the parameters.
func (g *Gate) Params() []float64 { return append([]float64(nil), g.params...) }

// IsOpaque reports whether the gate must never be expanded.
func (g *Gate) IsOpaque() bool {
	if g.kind == KindOpaque {
		return true
	}
	return kinds[g.kind].directive
}

// UnitaryMatrix returns the payload of a unitary gate, or nil.
func (g *Gate) UnitaryMatrix() *linalg.Matrix {
	if g.matrix == nil {
		return nil
	}
	return g.matrix.Clone()
}

// Decompositions returns the candidate rules, built once per instance.
func (g *Gate) Decompositions() []Rule {
	g.once.Do(func() {
		if g.kind == KindCustom {
			if g.ruleFn != nil {
				g.rules = g.ruleFn(g.Params())
			}
			return
		}
		g.rules = standardRules(g)
	})
	return g.rules
}

// RulesFor is the rule-store view used by the unroller.
func RulesFor(g *Gate) (rules []Rule, opaque bool) {
	if g.IsOpaque() {
		return nil, true
	}
	return g.Decompositions(), false
}

// Inverse returns a new gate implementing g†. g itself is unchanged.
func (g *Gate) Inverse() (*Gate, error) {
	p := g.params
	switch g.kind {
	case KindU, KindU3:
		return newKind(g.kind, -p[0], -p[2], -p[1]), nil
	case KindCU3:
		return newKind(KindCU3, -p[0], -p[2], -p[1]), nil
	case KindU2:
		return newKind(KindU2, -p[1]-math.Pi, -p[0]+math.Pi), nil
	case KindU1, KindRX, KindRY, KindRZ, KindCRX, KindCRY, KindCRZ, KindCU1, KindRZZ, KindRXX:
		return newKind(g.kind, -p[0]), nil
	case KindR:
		return newKind(KindR, -p[0], p[1]), nil
	case KindS:
		return newKind(KindSdg), nil
	case KindSdg:
		return newKind(KindS), nil
	case KindT:
		return newKind(KindTdg), nil
	case KindTdg:
		return newKind(KindT), nil
	case KindCXBase, KindID, KindX, KindY, KindZ, KindH, KindCX, KindCY, KindCZ, KindCH, KindSwap, KindCCX:
		return newKind(g.kind), nil
	case KindBarrier:
		return Barrier(g.numQubits), nil
	case KindUnitary:
		return NewUnitary(g.matrix.Dagger())
	case KindMeasure, KindReset, KindOpaque:
		return nil, fmt.Errorf("%w: %s", ErrNoInverse, g.name)
	}
	return g.reversedInverse()
}

// reversedInverse inverts the first rule gate by gate in reverse order.
func (g *Gate) reversedInverse() (*Gate, error) {
	rules := g.Decompositions()
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInverse, g.name)
	}
	inv := make(Rule, 0, len(rules[0]))
	for i := len(rules[0]) - 1; i >= 0; i-- {
		in := rules[0][i]
		ig, err := in.Gate.Inverse()
		if err != nil {
			return nil, fmt.Errorf("inverting %s: %w", g.name, err)
		}
		inv = append(inv, Instruction{Gate: ig, Qubits: in.Qubits, Clbits: in.Clbits})
	}
	name := strings.TrimSuffix(g.name, "_dg")
	if name == g.name {
		name += "_dg"
	}
	return NewCustom(name, g.numQubits, g.params, func([]float64) []Rule { return []Rule{inv} }), nil
}

func (g *Gate) String() string {
	if len(g.params) == 0 {
		return g.name
	}
	parts := make([]string, len(g.params))
	for i, v := range g.params {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return g.name + "(" + strings.Join(parts, ",") + ")"
}
