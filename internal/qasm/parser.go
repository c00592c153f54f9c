// Package qasm reads and writes OpenQASM 2.0 circuits.
//
// Besides the standard statements the dialect accepts a comment pragma for
// explicit matrices, which other tools ignore:
//
//	// @unitary [[[re, im], ...], ...] q[0], q[1];
//
// Rows are listed top to bottom; the first operand is the least
// significant bit of the matrix index.
package qasm

import (
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"text/scanner"

	"qtranspile/internal/dag"
	"qtranspile/internal/gates"
	"qtranspile/internal/linalg"
)

// definition is a "gate" block.
type definition struct {
	name   string
	params []string
	qargs  []string
	body   []bodyOp
}

type bodyOp struct {
	name   string
	params []expr
	args   []int
}

type parser struct {
	toks []token
	pos  int

	d       *dag.DAG
	defs    map[string]*definition
	opaques map[string][2]int // name -> {params, qubits}
}

// Parse builds a circuit graph from OpenQASM 2.0 source.
func Parse(src string) (*dag.DAG, error) {
	toks, err := lex(src, 1)
	if err != nil {
		return nil, err
	}
	p := &parser{
		toks:    toks,
		d:       dag.New(),
		defs:    make(map[string]*definition),
		opaques: make(map[string][2]int),
	}
	if err := p.program(); err != nil {
		return nil, err
	}
	return p.d, nil
}

// ParseFile reads and parses a QASM file.
func ParseFile(path string) (*dag.DAG, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != scanner.EOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Line: t.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) wrap(t token, msg string, err error) error {
	return &SyntaxError{Line: t.line, Msg: msg, Err: err}
}

func (p *parser) expect(kind rune) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, found %s", scanner.TokenString(kind), t)
	}
	return t, nil
}

func (p *parser) accept(kind rune) bool {
	if p.peek().kind == kind {
		p.next()
		return true
	}
	return false
}

func (p *parser) keyword(word string) bool {
	t := p.peek()
	return t.kind == scanner.Ident && t.text == word
}

func (p *parser) program() error {
	if p.keyword("OPENQASM") {
		p.next()
		v := p.next()
		if v.text != "2.0" && v.text != "2" {
			return p.errorf(v, "unsupported OPENQASM version %s", v.text)
		}
		if _, err := p.expect(';'); err != nil {
			return err
		}
	}
	for p.peek().kind != scanner.EOF {
		if err := p.statement(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) statement() error {
	t := p.peek()
	if t.kind == tokPragma {
		return p.unitary(nil)
	}
	if t.kind != scanner.Ident {
		return p.errorf(t, "unexpected %s", t)
	}
	switch t.text {
	case "include":
		p.next()
		if _, err := p.expect(scanner.String); err != nil {
			return err
		}
		_, err := p.expect(';')
		return err
	case "qreg", "creg":
		return p.register()
	case "gate":
		return p.gateDef()
	case "opaque":
		return p.opaqueDecl()
	case "if":
		return p.conditional()
	}
	return p.quantumOp(nil)
}

func (p *parser) register() error {
	kw := p.next()
	name, err := p.expect(scanner.Ident)
	if err != nil {
		return err
	}
	size, err := p.index()
	if err != nil {
		return err
	}
	if _, err := p.expect(';'); err != nil {
		return err
	}
	if size <= 0 {
		return p.errorf(name, "register %s must have positive size", name.text)
	}
	if kw.text == "qreg" {
		err = p.d.AddQReg(name.text, size)
	} else {
		err = p.d.AddCReg(name.text, size)
	}
	if err != nil {
		return p.wrap(name, "declaring "+name.text, err)
	}
	return nil
}

// index parses "[n]".
func (p *parser) index() (int, error) {
	if _, err := p.expect('['); err != nil {
		return 0, err
	}
	t, err := p.expect(scanner.Int)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.wrap(t, "bad index", err)
	}
	_, err = p.expect(']')
	return n, err
}

func (p *parser) identList(close rune) ([]string, error) {
	var out []string
	for {
		t, err := p.expect(scanner.Ident)
		if err != nil {
			return nil, err
		}
		if slices.Contains(out, t.text) {
			return nil, p.errorf(t, "duplicate name %s", t.text)
		}
		out = append(out, t.text)
		if !p.accept(',') {
			break
		}
	}
	if close != 0 {
		if _, err := p.expect(close); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// signature parses "name [(params)] qargs".
func (p *parser) signature() (name token, params, qargs []string, err error) {
	p.next()
	if name, err = p.expect(scanner.Ident); err != nil {
		return
	}
	if p.isDefined(name.text) {
		err = p.errorf(name, "gate %s is already defined", name.text)
		return
	}
	if p.accept('(') && !p.accept(')') {
		if params, err = p.identList(')'); err != nil {
			return
		}
	}
	qargs, err = p.identList(0)
	return
}

func (p *parser) isDefined(name string) bool {
	_, custom := p.defs[name]
	_, opaque := p.opaques[name]
	return custom || opaque || gates.Standard(name)
}

func (p *parser) opaqueDecl() error {
	name, params, qargs, err := p.signature()
	if err != nil {
		return err
	}
	if _, err := p.expect(';'); err != nil {
		return err
	}
	p.opaques[name.text] = [2]int{len(params), len(qargs)}
	return nil
}

func (p *parser) gateDef() error {
	name, params, qargs, err := p.signature()
	if err != nil {
		return err
	}
	def := &definition{name: name.text, params: params, qargs: qargs}
	if _, err := p.expect('{'); err != nil {
		return err
	}
	for !p.accept('}') {
		op, err := p.bodyOp(def)
		if err != nil {
			return err
		}
		def.body = append(def.body, op)
	}
	// Expanding once with zero parameters catches unknown gates and arity
	// errors at the definition.
	if _, err := p.expand(def, make([]float64, len(params))); err != nil {
		return p.wrap(name, "in gate "+name.text, err)
	}
	p.defs[name.text] = def
	return nil
}

func (p *parser) bodyOp(def *definition) (bodyOp, error) {
	t, err := p.expect(scanner.Ident)
	if err != nil {
		return bodyOp{}, err
	}
	op := bodyOp{name: t.text}
	if t.text != "barrier" && p.accept('(') && !p.accept(')') {
		if op.params, err = p.exprList(def.params); err != nil {
			return bodyOp{}, err
		}
	}
	for {
		a, err := p.expect(scanner.Ident)
		if err != nil {
			return bodyOp{}, err
		}
		i := slices.Index(def.qargs, a.text)
		if i < 0 {
			return bodyOp{}, p.errorf(a, "unknown qubit argument %s", a.text)
		}
		op.args = append(op.args, i)
		if !p.accept(',') {
			break
		}
	}
	_, err = p.expect(';')
	return op, err
}

// expand instantiates def's body for concrete parameter values.
func (p *parser) expand(def *definition, params []float64) (gates.Rule, error) {
	env := make(map[string]float64, len(params)+1)
	for i, name := range def.params {
		env[name] = params[i]
	}
	rule := make(gates.Rule, 0, len(def.body))
	for _, op := range def.body {
		vals, err := evalAll(op.params, env)
		if err != nil {
			return nil, err
		}
		g, err := p.resolve(op.name, vals, len(op.args))
		if err != nil {
			return nil, err
		}
		rule = append(rule, gates.Instruction{Gate: g, Qubits: op.args})
	}
	return rule, nil
}

// resolve maps a name and evaluated parameters to a gate on n qubits.
func (p *parser) resolve(name string, params []float64, n int) (*gates.Gate, error) {
	var g *gates.Gate
	switch {
	case name == "barrier":
		return gates.Barrier(n), nil
	case name == "measure" || name == "reset" || name == "unitary":
		return nil, fmt.Errorf("%w: %s cannot be applied as a gate", gates.ErrUnknownGate, name)
	case p.defs[name] != nil:
		def := p.defs[name]
		if len(params) != len(def.params) {
			return nil, fmt.Errorf("%w: %s takes %d parameters, got %d", gates.ErrArity, name, len(def.params), len(params))
		}
		g = gates.NewCustom(name, len(def.qargs), params, func(vals []float64) []gates.Rule {
			rule, err := p.expand(def, vals)
			if err != nil {
				return nil
			}
			return []gates.Rule{rule}
		})
	default:
		if shape, ok := p.opaques[name]; ok {
			if len(params) != shape[0] {
				return nil, fmt.Errorf("%w: %s takes %d parameters, got %d", gates.ErrArity, name, shape[0], len(params))
			}
			g = gates.NewOpaque(name, shape[1], 0, params)
			break
		}
		var err error
		if g, err = gates.New(name, params...); err != nil {
			return nil, err
		}
	}
	if g.NumQubits() != n {
		return nil, fmt.Errorf("%w: %s acts on %d qubits, got %d", gates.ErrArity, name, g.NumQubits(), n)
	}
	return g, nil
}

func (p *parser) exprList(names []string) ([]expr, error) {
	var out []expr
	for {
		x, err := p.expr(names)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
		if p.accept(')') {
			return out, nil
		}
		if _, err := p.expect(','); err != nil {
			return nil, err
		}
	}
}

func (p *parser) expr(names []string) (expr, error) {
	l, err := p.term(names)
	if err != nil {
		return nil, err
	}
	for k := p.peek().kind; k == '+' || k == '-'; k = p.peek().kind {
		p.next()
		r, err := p.term(names)
		if err != nil {
			return nil, err
		}
		l = binary{op: k, l: l, r: r}
	}
	return l, nil
}

func (p *parser) term(names []string) (expr, error) {
	l, err := p.unary(names)
	if err != nil {
		return nil, err
	}
	for k := p.peek().kind; k == '*' || k == '/'; k = p.peek().kind {
		p.next()
		r, err := p.unary(names)
		if err != nil {
			return nil, err
		}
		l = binary{op: k, l: l, r: r}
	}
	return l, nil
}

func (p *parser) unary(names []string) (expr, error) {
	if k := p.peek().kind; k == '-' || k == '+' {
		p.next()
		x, err := p.unary(names)
		if err != nil {
			return nil, err
		}
		return unary{op: k, x: x}, nil
	}
	base, err := p.primary(names)
	if err != nil {
		return nil, err
	}
	if p.accept('^') {
		exp, err := p.unary(names)
		if err != nil {
			return nil, err
		}
		return binary{op: '^', l: base, r: exp}, nil
	}
	return base, nil
}

func (p *parser) primary(names []string) (expr, error) {
	t := p.next()
	switch t.kind {
	case scanner.Int, scanner.Float:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.wrap(t, "bad number", err)
		}
		return number(v), nil
	case '(':
		x, err := p.expr(names)
		if err != nil {
			return nil, err
		}
		_, err = p.expect(')')
		return x, err
	case scanner.Ident:
		if t.text == "pi" {
			return number(math.Pi), nil
		}
		if _, ok := unaryFuncs[t.text]; ok {
			if _, err := p.expect('('); err != nil {
				return nil, err
			}
			arg, err := p.expr(names)
			if err != nil {
				return nil, err
			}
			_, err = p.expect(')')
			return call{fn: t.text, arg: arg}, err
		}
		if slices.Contains(names, t.text) {
			return ident(t.text), nil
		}
		return nil, p.errorf(t, "unknown identifier %s", t.text)
	}
	return nil, p.errorf(t, "unexpected %s in expression", t)
}

// operand is "reg" or "reg[i]", resolved to its wires.
func (p *parser) operand(kind dag.WireKind) ([]dag.Wire, token, error) {
	t, err := p.expect(scanner.Ident)
	if err != nil {
		return nil, t, err
	}
	r, ok := p.d.Register(t.text)
	if !ok || r.Kind != kind {
		what := "quantum"
		if kind == dag.ClassicalWire {
			what = "classical"
		}
		return nil, t, p.errorf(t, "unknown %s register %s", what, t.text)
	}
	if p.peek().kind != '[' {
		wires := make([]dag.Wire, r.Size)
		for i := range wires {
			wires[i] = dag.Wire{Kind: kind, Reg: r.Name, Index: i}
		}
		return wires, t, nil
	}
	i, err := p.index()
	if err != nil {
		return nil, t, err
	}
	if i >= r.Size {
		return nil, t, p.errorf(t, "index %d out of range for %s[%d]", i, r.Name, r.Size)
	}
	return []dag.Wire{{Kind: kind, Reg: r.Name, Index: i}}, t, nil
}

func (p *parser) operands(kind dag.WireKind) ([][]dag.Wire, error) {
	var out [][]dag.Wire
	for {
		w, _, err := p.operand(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
		if !p.accept(',') {
			break
		}
	}
	_, err := p.expect(';')
	return out, err
}

// broadcast expands register operands: every whole register must have the
// same size and single bits are repeated.
func broadcast(args [][]dag.Wire) ([][]dag.Wire, error) {
	n := 1
	for _, a := range args {
		if len(a) == 1 {
			continue
		}
		if n != 1 && len(a) != n {
			return nil, fmt.Errorf("register operands of sizes %d and %d", n, len(a))
		}
		n = len(a)
	}
	out := make([][]dag.Wire, n)
	for i := range n {
		out[i] = make([]dag.Wire, len(args))
		for j, a := range args {
			if len(a) == 1 {
				out[i][j] = a[0]
			} else {
				out[i][j] = a[i]
			}
		}
	}
	return out, nil
}

func (p *parser) apply(t token, g *gates.Gate, qargs, cargs []dag.Wire, cond *dag.Condition) error {
	if _, err := p.d.ApplyOperationBack(g, qargs, cargs, cond); err != nil {
		return p.wrap(t, "applying "+g.Name(), err)
	}
	return nil
}

func (p *parser) conditional() error {
	p.next()
	if _, err := p.expect('('); err != nil {
		return err
	}
	reg, err := p.expect(scanner.Ident)
	if err != nil {
		return err
	}
	if r, ok := p.d.Register(reg.text); !ok || r.Kind != dag.ClassicalWire {
		return p.errorf(reg, "unknown classical register %s", reg.text)
	}
	if _, err := p.expect('='); err != nil {
		return err
	}
	if _, err := p.expect('='); err != nil {
		return err
	}
	v, err := p.expect(scanner.Int)
	if err != nil {
		return err
	}
	if _, err := p.expect(')'); err != nil {
		return err
	}
	val, err := strconv.Atoi(v.text)
	if err != nil {
		return p.wrap(v, "bad condition value", err)
	}
	cond := &dag.Condition{Reg: reg.text, Value: val}
	if p.peek().kind == tokPragma {
		return p.unitary(cond)
	}
	return p.quantumOp(cond)
}

func (p *parser) quantumOp(cond *dag.Condition) error {
	t := p.next()
	if t.kind != scanner.Ident {
		return p.errorf(t, "expected an operation, found %s", t)
	}
	switch t.text {
	case "measure":
		return p.measure(t, cond)
	case "reset":
		args, err := p.operands(dag.QuantumWire)
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return p.errorf(t, "reset takes one operand")
		}
		for _, q := range args[0] {
			if err := p.apply(t, gates.Reset(), []dag.Wire{q}, nil, cond); err != nil {
				return err
			}
		}
		return nil
	case "barrier":
		args, err := p.operands(dag.QuantumWire)
		if err != nil {
			return err
		}
		var qargs []dag.Wire
		for _, a := range args {
			qargs = append(qargs, a...)
		}
		return p.apply(t, gates.Barrier(len(qargs)), qargs, nil, cond)
	}

	var params []float64
	if p.accept('(') && !p.accept(')') {
		xs, err := p.exprList(nil)
		if err != nil {
			return err
		}
		if params, err = evalAll(xs, nil); err != nil {
			return p.wrap(t, "parameters of "+t.text, err)
		}
	}
	args, err := p.operands(dag.QuantumWire)
	if err != nil {
		return err
	}
	g, err := p.resolve(t.text, params, len(args))
	if err != nil {
		return p.wrap(t, "gate "+t.text, err)
	}
	rows, err := broadcast(args)
	if err != nil {
		return p.wrap(t, t.text, err)
	}
	for _, qargs := range rows {
		if err := p.apply(t, g, qargs, nil, cond); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) measure(t token, cond *dag.Condition) error {
	q, _, err := p.operand(dag.QuantumWire)
	if err != nil {
		return err
	}
	if _, err := p.expect('-'); err != nil {
		return err
	}
	if _, err := p.expect('>'); err != nil {
		return err
	}
	c, _, err := p.operand(dag.ClassicalWire)
	if err != nil {
		return err
	}
	if _, err := p.expect(';'); err != nil {
		return err
	}
	if len(q) != len(c) {
		return p.errorf(t, "measure operands of sizes %d and %d", len(q), len(c))
	}
	for i := range q {
		if err := p.apply(t, gates.Measure(), q[i:i+1], c[i:i+1], cond); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) unitary(cond *dag.Condition) error {
	t := p.next()
	m, err := matrixFromRows(t.matrix)
	if err != nil {
		return p.wrap(t, "@unitary matrix", err)
	}
	args, err := p.operands(dag.QuantumWire)
	if err != nil {
		return err
	}
	var qargs []dag.Wire
	for _, a := range args {
		if len(a) != 1 {
			return p.errorf(t, "@unitary operands must be single qubits")
		}
		qargs = append(qargs, a[0])
	}
	g, err := gates.NewUnitary(m)
	if err != nil {
		return p.wrap(t, "@unitary matrix", err)
	}
	if g.NumQubits() != len(qargs) {
		return p.errorf(t, "%d-qubit matrix applied to %d qubits", g.NumQubits(), len(qargs))
	}
	return p.apply(t, g, qargs, nil, cond)
}

func matrixFromRows(rows [][][2]float64) (*linalg.Matrix, error) {
	m := linalg.New(len(rows))
	for i, row := range rows {
		if len(row) != len(rows) {
			return nil, fmt.Errorf("row %d has %d entries, want %d", i, len(row), len(rows))
		}
		for j, v := range row {
			m.Set(i, j, complex(v[0], v[1]))
		}
	}
	return m, nil
}
