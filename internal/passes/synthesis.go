package passes

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"qtranspile/internal/dag"
	"qtranspile/internal/gates"
	"qtranspile/internal/synth"
	"qtranspile/internal/target"
	"qtranspile/internal/transpiler"
)

// BackendProperties exposes calibration data per gate and physical qubits.
// Lookups that have no data return an error; the synthesis pass treats that
// as missing information.
type BackendProperties interface {
	GateLength(name string, qubits []int) (float64, error)
	GateError(name string, qubits []int) (float64, error)
}

// UnitarySynthesis replaces "unitary" operations (and "swap" when
// PulseOptimize is set) with gate sequences over Basis.
type UnitarySynthesis struct {
	Basis       []string
	CouplingMap *target.CouplingMap
	Properties  BackendProperties
	// SynthesisFidelity is the per-gate fidelity budget for two-qubit
	// approximation; zero means unset.
	SynthesisFidelity float64
	PulseOptimize     bool
	Logger            *zap.Logger
}

func (s *UnitarySynthesis) Name() string { return "unitary_synthesis" }

type decomposers struct {
	oneQ *synth.OneQubitEulerDecomposer
	twoQ *synth.TwoQubitBasisDecomposer
}

// decomposers configures one- and two-qubit synthesis for Basis. Without an
// Euler basis, one-qubit operations are left alone and the two-qubit
// decomposer writes its local layers as u3.
func (s *UnitarySynthesis) decomposers() (decomposers, error) {
	var out decomposers
	var err error
	euler, ok := synth.ChooseEulerBasis(s.Basis)
	if ok {
		if out.oneQ, err = synth.NewOneQubitEulerDecomposer(euler); err != nil {
			return out, err
		}
	} else {
		euler = synth.BasisU3
	}
	if kak, ok := synth.ChooseKAKGate(s.Basis); ok {
		if out.twoQ, err = synth.NewTwoQubitBasisDecomposer(kak, euler); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *UnitarySynthesis) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Run returns a copy of d with the selected operations synthesised.
func (s *UnitarySynthesis) Run(d *dag.DAG, props transpiler.Properties) (*dag.DAG, error) {
	dec, err := s.decomposers()
	if err != nil {
		return nil, err
	}
	names := []string{"unitary"}
	if s.PulseOptimize {
		names = append(names, "swap")
	}

	out := d.Copy()
	for _, n := range out.FindNodesByName(names...) {
		if err := s.synthesize(out, n, dec, props); err != nil {
			return nil, fmt.Errorf("synthesising node %d (%s): %w", n.ID, n.Name(), err)
		}
	}
	return out, nil
}

func (s *UnitarySynthesis) synthesize(d *dag.DAG, n *dag.Node, dec decomposers, props transpiler.Properties) error {
	m, err := n.Op.Matrix()
	if err != nil {
		return err
	}

	var rule gates.Rule
	mirrored := false
	switch len(n.Qargs) {
	case 1:
		if dec.oneQ == nil {
			return nil
		}
		if rule, err = dec.oneQ.Decompose(m); err != nil {
			return err
		}
	case 2:
		if dec.twoQ == nil {
			return nil
		}
		natural, hasNatural := s.naturalDirection(d, n, props)
		fidelity := s.fidelity(d, n, props, natural, hasNatural)
		if rule, err = dec.twoQ.Decompose(m, fidelity); err != nil {
			return err
		}
		if hasNatural && s.PulseOptimize {
			if first, ok := firstTwoQubitOperands(rule); ok && !slices.Equal(first, natural) {
				if rule, err = dec.twoQ.Decompose(m.MirrorQubits(), fidelity); err != nil {
					return err
				}
				mirrored = true
			}
		}
	default:
		if rule, err = synth.Isometry(m); err != nil {
			return err
		}
	}

	repl, err := replacementFor(d, n, rule)
	if err != nil {
		return err
	}
	var wires []dag.Wire
	if mirrored {
		wires = repl.ReverseQubits()
	}
	return d.SubstituteNodeWithDAG(n.ID, repl, wires)
}

func firstTwoQubitOperands(rule gates.Rule) ([]int, bool) {
	for _, in := range rule {
		if len(in.Qubits) == 2 {
			return in.Qubits, true
		}
	}
	return nil, false
}

// physicalPair maps n's two qubits through the layout property.
func physicalPair(d *dag.DAG, n *dag.Node, props transpiler.Properties) (p0, p1 int, ok bool) {
	if props == nil {
		return 0, 0, false
	}
	layout, ok := props.Layout()
	if !ok {
		return 0, 0, false
	}
	p0, ok0 := layout.Physical(d.QubitIndex(n.Qargs[0]))
	p1, ok1 := layout.Physical(d.QubitIndex(n.Qargs[1]))
	return p0, p1, ok0 && ok1
}

// naturalDirection returns [0, 1] or [1, 0] when the device prefers one
// orientation of the entangling gate on n's qubits.
func (s *UnitarySynthesis) naturalDirection(d *dag.DAG, n *dag.Node, props transpiler.Properties) ([]int, bool) {
	p0, p1, ok := physicalPair(d, n, props)
	if !ok {
		return nil, false
	}
	if s.CouplingMap != nil {
		fwd, back := s.CouplingMap.Has(p0, p1), s.CouplingMap.Has(p1, p0)
		switch {
		case fwd && !back:
			return []int{0, 1}, true
		case back && !fwd:
			return []int{1, 0}, true
		}
		return nil, false
	}
	if s.Properties == nil {
		return nil, false
	}
	name := s.kakName()
	fwd, errF := s.Properties.GateLength(name, []int{p0, p1})
	back, errB := s.Properties.GateLength(name, []int{p1, p0})
	if errF != nil || errB != nil {
		s.logMiss(errors.Join(errF, errB))
		return nil, false
	}
	switch {
	case fwd < back:
		return []int{0, 1}, true
	case back < fwd:
		return []int{1, 0}, true
	}
	return nil, false
}

// fidelity picks the approximation budget: the configured value, else the
// calibrated fidelity of the gate in its natural direction, else exact.
func (s *UnitarySynthesis) fidelity(d *dag.DAG, n *dag.Node, props transpiler.Properties, natural []int, hasNatural bool) float64 {
	if s.SynthesisFidelity > 0 {
		return s.SynthesisFidelity
	}
	if !hasNatural || s.Properties == nil {
		return 1
	}
	p0, p1, _ := physicalPair(d, n, props)
	phys := [2]int{p0, p1}
	e, err := s.Properties.GateError(s.kakName(), []int{phys[natural[0]], phys[natural[1]]})
	if err != nil {
		s.logMiss(err)
		return 1
	}
	return 1 - e
}

func (s *UnitarySynthesis) kakName() string {
	if g, ok := synth.ChooseKAKGate(s.Basis); ok {
		return g.Name()
	}
	return "cx"
}

func (s *UnitarySynthesis) logMiss(err error) {
	s.logger().Debug("calibration lookup miss", zap.Error(err))
}
