// Package target describes the device a circuit is compiled for: its basis
// gates, qubit connectivity, initial layout and calibration data.
package target

import (
	"errors"
	"fmt"
	"slices"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// DefaultMaxUnrollDepth bounds rule expansion when a target does not set one.
const DefaultMaxUnrollDepth = 50

var (
	// ErrInvalidTarget is returned for malformed target descriptions.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrPropertyNotFound is returned by calibration lookups with no data
	// for the requested gate and qubits.
	ErrPropertyNotFound = errors.New("property not found")
)

// Target is the TOML description of a device.
type Target struct {
	Basis             []string          `toml:"basis"`
	CouplingMap       [][]int           `toml:"coupling_map"`
	Layout            []int             `toml:"layout"`
	SynthesisFidelity float64           `toml:"synthesis_fidelity"`
	PulseOptimize     bool              `toml:"pulse_optimize"`
	MaxUnrollDepth    int               `toml:"max_unroll_depth"`
	Gates             []GateCalibration `toml:"gates"`
}

// GateCalibration is one measured gate on specific physical qubits.
type GateCalibration struct {
	Name   string  `toml:"name"`
	Qubits []int   `toml:"qubits"`
	Length float64 `toml:"length"`
	Error  float64 `toml:"error"`
}

// Default targets the u3/cx basis with no connectivity constraints.
func Default() *Target {
	return &Target{
		Basis:          []string{"u3", "cx"},
		MaxUnrollDepth: DefaultMaxUnrollDepth,
	}
}

// Load reads a target from a TOML file. Missing keys keep Default values.
func Load(path string) (*Target, error) {
	t := Default()
	md, err := toml.DecodeFile(path, t)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTarget, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		zap.L().Warn("ignoring unknown target keys", zap.String("path", path), zap.Stringers("keys", undecoded))
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a target from TOML text.
func Parse(blob string) (*Target, error) {
	t := Default()
	if _, err := toml.Decode(blob, t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks shapes that TOML decoding cannot.
func (t *Target) Validate() error {
	if len(t.Basis) == 0 {
		return fmt.Errorf("%w: empty basis", ErrInvalidTarget)
	}
	for _, e := range t.CouplingMap {
		if len(e) != 2 || e[0] == e[1] || e[0] < 0 || e[1] < 0 {
			return fmt.Errorf("%w: coupling edge %v", ErrInvalidTarget, e)
		}
	}
	seen := make(map[int]bool, len(t.Layout))
	for _, p := range t.Layout {
		if p < 0 || seen[p] {
			return fmt.Errorf("%w: layout %v is not injective", ErrInvalidTarget, t.Layout)
		}
		seen[p] = true
	}
	if t.SynthesisFidelity < 0 || t.SynthesisFidelity > 1 {
		return fmt.Errorf("%w: synthesis_fidelity %g outside [0, 1]", ErrInvalidTarget, t.SynthesisFidelity)
	}
	if t.MaxUnrollDepth < 0 {
		return fmt.Errorf("%w: max_unroll_depth %d", ErrInvalidTarget, t.MaxUnrollDepth)
	}
	for _, g := range t.Gates {
		if g.Name == "" || len(g.Qubits) == 0 {
			return fmt.Errorf("%w: calibration row %+v", ErrInvalidTarget, g)
		}
	}
	return nil
}

// Coupling returns the connectivity map, or nil when none is configured.
func (t *Target) Coupling() *CouplingMap {
	if len(t.CouplingMap) == 0 {
		return nil
	}
	return NewCouplingMap(t.CouplingMap)
}

// Properties returns the calibration table, or nil when there is none.
func (t *Target) Properties() *Calibration {
	if len(t.Gates) == 0 {
		return nil
	}
	return NewCalibration(t.Gates)
}

// HasBasisGate reports whether name is one of the basis gates.
func (t *Target) HasBasisGate(name string) bool {
	return slices.Contains(t.Basis, name)
}
