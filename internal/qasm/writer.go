package qasm

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"qtranspile/internal/dag"
	"qtranspile/internal/gates"
)

// writer emits one program. Custom gates are written as parameterless
// definitions of their first rule, one per distinct instance.
type writer struct {
	defs  strings.Builder
	named map[*gates.Gate]string
	// instances counts distinct custom instances per base name.
	instances map[string][]*gates.Gate
	opaque    map[string]bool
}

// Write emits d as OpenQASM 2.0.
func Write(w io.Writer, d *dag.DAG) error {
	s, err := Format(d)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// Format renders d as OpenQASM 2.0 text.
func Format(d *dag.DAG) (string, error) {
	wr := &writer{
		named:     make(map[*gates.Gate]string),
		instances: make(map[string][]*gates.Gate),
		opaque:    make(map[string]bool),
	}
	var body strings.Builder
	for _, r := range d.Registers() {
		kw := "qreg"
		if r.Kind == dag.ClassicalWire {
			kw = "creg"
		}
		fmt.Fprintf(&body, "%s %s[%d];\n", kw, r.Name, r.Size)
	}
	for _, n := range d.OpNodes() {
		if err := wr.op(&body, n); err != nil {
			return "", fmt.Errorf("node %d (%s): %w", n.ID, n.Name(), err)
		}
	}

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n")
	if wr.defs.Len() > 0 {
		sb.WriteString(wr.defs.String())
	}
	sb.WriteString(body.String())
	return sb.String(), nil
}

func wireList(ws []dag.Wire) string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = w.String()
	}
	return strings.Join(parts, ",")
}

func paramList(ps []float64) string {
	if len(ps) == 0 {
		return ""
	}
	parts := make([]string, len(ps))
	for i, v := range ps {
		parts[i] = FormatParam(v)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (wr *writer) op(sb *strings.Builder, n *dag.Node) error {
	if n.Condition != nil {
		fmt.Fprintf(sb, "if(%s==%d) ", n.Condition.Reg, n.Condition.Value)
	}
	g := n.Op
	switch g.Kind() {
	case gates.KindMeasure:
		fmt.Fprintf(sb, "measure %s -> %s;\n", n.Qargs[0], n.Cargs[0])
		return nil
	case gates.KindUnitary:
		m := g.UnitaryMatrix()
		rows := make([][][2]float64, m.Dim())
		for i := range rows {
			rows[i] = make([][2]float64, m.Dim())
			for j := range rows[i] {
				v := m.At(i, j)
				rows[i][j] = [2]float64{real(v), imag(v)}
			}
		}
		blob, err := json.Marshal(rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "%s %s %s;\n", pragmaPrefix, blob, wireList(n.Qargs))
		return nil
	}
	name, err := wr.name(g)
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, "%s %s;\n", name, wireList(n.Qargs))
	return nil
}

// name returns the application text before the operands, declaring custom
// and opaque gates on first use.
func (wr *writer) name(g *gates.Gate) (string, error) {
	switch g.Kind() {
	case gates.KindCustom:
		return wr.custom(g)
	case gates.KindOpaque:
		if !wr.opaque[g.Name()] {
			wr.opaque[g.Name()] = true
			fmt.Fprintf(&wr.defs, "opaque %s%s %s;\n", g.Name(), formals("p", len(g.Params()), true), formals("a", g.NumQubits(), false))
		}
	case gates.KindUnitary:
		return "", fmt.Errorf("unitary inside a gate definition cannot be written")
	}
	return g.Name() + paramList(g.Params()), nil
}

func formals(prefix string, n int, paren bool) string {
	if n == 0 {
		return ""
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	s := strings.Join(parts, ",")
	if paren {
		return "(" + s + ")"
	}
	return s
}

func (wr *writer) custom(g *gates.Gate) (string, error) {
	if name, ok := wr.named[g]; ok {
		return name, nil
	}
	for _, other := range wr.instances[g.Name()] {
		if sameInstance(g, other) {
			wr.named[g] = wr.named[other]
			return wr.named[g], nil
		}
	}
	name := g.Name()
	if k := len(wr.instances[g.Name()]); k > 0 || len(g.Params()) > 0 {
		name = fmt.Sprintf("%s_%d", g.Name(), k+1)
	}

	rules := g.Decompositions()
	if len(rules) == 0 {
		fmt.Fprintf(&wr.defs, "opaque %s %s;\n", name, formals("a", g.NumQubits(), false))
	} else {
		var body strings.Builder
		for _, in := range rules[0] {
			inner, err := wr.name(in.Gate)
			if err != nil {
				return "", err
			}
			args := make([]string, len(in.Qubits))
			for i, q := range in.Qubits {
				args[i] = fmt.Sprintf("a%d", q)
			}
			fmt.Fprintf(&body, "  %s %s;\n", inner, strings.Join(args, ","))
		}
		fmt.Fprintf(&wr.defs, "gate %s %s {\n%s}\n", name, formals("a", g.NumQubits(), false), body.String())
	}
	wr.named[g] = name
	wr.instances[g.Name()] = append(wr.instances[g.Name()], g)
	return name, nil
}

func sameInstance(a, b *gates.Gate) bool {
	pa, pb := a.Params(), b.Params()
	if a.NumQubits() != b.NumQubits() || len(pa) != len(pb) {
		return false
	}
	for i := range pa {
		if pa[i] != pb[i] {
			return false
		}
	}
	return true
}
