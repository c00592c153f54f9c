package tui

import (
	"slices"
	"strconv"
	"strings"

	"qtranspile/internal/dag"
)

type cellRole int

const (
	roleEmpty cellRole = iota
	roleBox
	roleControl
	roleTarget
	roleSwap
	rolePass
	roleBarrier
)

// cell is what one column draws on one qubit wire.
type cell struct {
	node      *dag.Node
	role      cellRole
	label     string
	vertAbove bool
	vertBelow bool
}

// column is a set of operations drawn side by side. Operations in a column
// never overlap in their vertical span.
type column struct {
	cells []cell
	// marks holds the classical annotation per creg: "╩i" for a measurement
	// into bit i, "?" for a condition on the register.
	marks map[string]string
}

// controlled lists gates drawn as controls plus a target symbol or box.
var controlled = map[string]struct {
	controls int
	target   string
}{
	"cx":  {1, "⊕"},
	"CX":  {1, "⊕"},
	"ccx": {2, "⊕"},
	"cz":  {1, "●"},
	"cy":  {1, "Y"},
	"ch":  {1, "H"},
	"crx": {1, "RX"},
	"cry": {1, "RY"},
	"crz": {1, "RZ"},
	"cu1": {1, "U1"},
	"cu3": {1, "U3"},
}

func displayName(n *dag.Node) string {
	switch n.Name() {
	case "measure":
		return "M"
	case "reset":
		return "|0⟩"
	}
	return strings.ToUpper(n.Name())
}

// buildGrid lays d out as columns: one or more per layer, splitting a layer
// where operation spans would cross.
func buildGrid(d *dag.DAG) []column {
	nq := d.NumQubits()
	var cols []column
	for _, layer := range d.Layers() {
		var spans [][][2]int
		var layerCols []column
		for _, n := range layer {
			qs := make([]int, len(n.Qargs))
			for i, w := range n.Qargs {
				qs[i] = d.QubitIndex(w)
			}
			lo, hi := -1, -1
			if len(qs) > 0 {
				lo, hi = slices.Min(qs), slices.Max(qs)
			}
			ci := slices.IndexFunc(spans, func(used [][2]int) bool {
				return !slices.ContainsFunc(used, func(s [2]int) bool { return lo <= s[1] && s[0] <= hi })
			})
			if ci < 0 {
				spans = append(spans, nil)
				layerCols = append(layerCols, column{cells: make([]cell, nq), marks: map[string]string{}})
				ci = len(layerCols) - 1
			}
			spans[ci] = append(spans[ci], [2]int{lo, hi})
			place(&layerCols[ci], n, qs, lo, hi)
		}
		cols = append(cols, layerCols...)
	}
	return cols
}

func place(col *column, n *dag.Node, qs []int, lo, hi int) {
	for _, w := range n.Cargs {
		col.marks[w.Reg] = "╩" + strconv.Itoa(w.Index)
	}
	if n.Condition != nil {
		if _, ok := col.marks[n.Condition.Reg]; !ok {
			col.marks[n.Condition.Reg] = "?"
		}
	}
	if len(qs) == 0 {
		return
	}
	for q := lo; q <= hi; q++ {
		c := cell{node: n, role: rolePass, vertAbove: q > lo, vertBelow: q < hi}
		col.cells[q] = c
	}
	set := func(q int, role cellRole, label string) {
		col.cells[q].role = role
		col.cells[q].label = label
	}

	name := n.Name()
	switch {
	case name == "barrier":
		for _, q := range qs {
			set(q, roleBarrier, "")
		}
	case name == "swap":
		for _, q := range qs {
			set(q, roleSwap, "×")
		}
	case controlled[name].controls > 0 && len(qs) == controlled[name].controls+1:
		cs := controlled[name]
		for _, q := range qs[:cs.controls] {
			set(q, roleControl, "●")
		}
		role := roleBox
		if cs.target == "⊕" || cs.target == "●" {
			role = roleTarget
		}
		set(qs[cs.controls], role, cs.target)
	default:
		label := displayName(n)
		for i, q := range qs {
			l := label
			if len(qs) > 1 {
				l = label + strconv.Itoa(i)
			}
			set(q, roleBox, l)
		}
	}
}
