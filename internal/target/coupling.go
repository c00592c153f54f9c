package target

import (
	"cmp"
	"fmt"
	"slices"
)

// Edge is a directed physical qubit pair: control, then target.
type Edge [2]int

// CouplingMap is the set of directed two-qubit interactions a device supports.
type CouplingMap struct {
	edges map[Edge]struct{}
}

// NewCouplingMap builds a map from [control, target] pairs; malformed pairs
// are skipped.
func NewCouplingMap(pairs [][]int) *CouplingMap {
	c := &CouplingMap{edges: make(map[Edge]struct{}, len(pairs))}
	for _, p := range pairs {
		if len(p) == 2 {
			c.edges[Edge{p[0], p[1]}] = struct{}{}
		}
	}
	return c
}

// Has reports whether control→target is a supported interaction.
func (c *CouplingMap) Has(control, target int) bool {
	if c == nil {
		return false
	}
	_, ok := c.edges[Edge{control, target}]
	return ok
}

// Edges returns the edges sorted by control then target.
func (c *CouplingMap) Edges() []Edge {
	out := make([]Edge, 0, len(c.edges))
	for e := range c.edges {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Edge) int {
		if n := cmp.Compare(a[0], b[0]); n != 0 {
			return n
		}
		return cmp.Compare(a[1], b[1])
	})
	return out
}

// Calibration is a per-(gate, physical qubits) table of durations and
// error rates.
type Calibration struct {
	rows map[string]GateCalibration
}

func calibrationKey(name string, qubits []int) string {
	return fmt.Sprintf("%s%v", name, qubits)
}

// NewCalibration indexes calibration rows; later rows win.
func NewCalibration(rows []GateCalibration) *Calibration {
	c := &Calibration{rows: make(map[string]GateCalibration, len(rows))}
	for _, r := range rows {
		c.rows[calibrationKey(r.Name, r.Qubits)] = r
	}
	return c
}

func (c *Calibration) lookup(name string, qubits []int) (GateCalibration, error) {
	var r GateCalibration
	ok := false
	if c != nil {
		r, ok = c.rows[calibrationKey(name, qubits)]
	}
	if !ok {
		return GateCalibration{}, fmt.Errorf("%w: %s on %v", ErrPropertyNotFound, name, qubits)
	}
	return r, nil
}

// GateLength returns the calibrated duration of name on qubits.
func (c *Calibration) GateLength(name string, qubits []int) (float64, error) {
	r, err := c.lookup(name, qubits)
	return r.Length, err
}

// GateError returns the calibrated error rate of name on qubits.
func (c *Calibration) GateError(name string, qubits []int) (float64, error) {
	r, err := c.lookup(name, qubits)
	return r.Error, err
}
