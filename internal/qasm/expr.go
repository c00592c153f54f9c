package qasm

import (
	"fmt"
	"math"
	"strconv"
	"text/scanner"
)

// expr is a parameter expression. Identifiers are gate parameters bound at
// expansion time.
type expr interface {
	eval(env map[string]float64) (float64, error)
}

type number float64

func (n number) eval(map[string]float64) (float64, error) { return float64(n), nil }

type ident string

func (id ident) eval(env map[string]float64) (float64, error) {
	if v, ok := env[string(id)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unbound parameter %s", string(id))
}

type unary struct {
	op rune
	x  expr
}

func (u unary) eval(env map[string]float64) (float64, error) {
	v, err := u.x.eval(env)
	if u.op == '-' {
		v = -v
	}
	return v, err
}

type binary struct {
	op   rune
	l, r expr
}

func (b binary) eval(env map[string]float64) (float64, error) {
	l, err := b.l.eval(env)
	if err != nil {
		return 0, err
	}
	r, err := b.r.eval(env)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		return l / r, nil
	case '^':
		return math.Pow(l, r), nil
	}
	return 0, fmt.Errorf("unknown operator %q", b.op)
}

var unaryFuncs = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"exp":  math.Exp,
	"ln":   math.Log,
	"sqrt": math.Sqrt,
}

type call struct {
	fn  string
	arg expr
}

func (c call) eval(env map[string]float64) (float64, error) {
	v, err := c.arg.eval(env)
	if err != nil {
		return 0, err
	}
	return unaryFuncs[c.fn](v), nil
}

func evalAll(xs []expr, env map[string]float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		v, err := x.eval(env)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("parameter %d is not finite", i)
		}
		out[i] = v
	}
	return out, nil
}

// piForms are the multiples of pi FormatParam spells symbolically.
var piForms = []struct {
	value   float64
	display string
}{
	{2 * math.Pi, "2*pi"},
	{math.Pi, "pi"},
	{math.Pi / 2, "pi/2"},
	{math.Pi / 3, "pi/3"},
	{math.Pi / 4, "pi/4"},
	{math.Pi / 6, "pi/6"},
	{math.Pi / 8, "pi/8"},
	{3 * math.Pi / 4, "3*pi/4"},
	{3 * math.Pi / 2, "3*pi/2"},
	{2 * math.Pi / 3, "2*pi/3"},
}

// FormatParam renders an angle, using pi notation for common fractions and
// the shortest exact decimal otherwise.
func FormatParam(val float64) string {
	if val == 0 {
		return "0"
	}
	for _, pf := range piForms {
		if math.Abs(val-pf.value) < 1e-14 {
			return pf.display
		}
		if math.Abs(val+pf.value) < 1e-14 {
			return "-" + pf.display
		}
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

// ParseExpr evaluates a standalone parameter expression such as "-3*pi/4"
// or "2*sin(pi/6)".
func ParseExpr(s string) (float64, error) {
	toks, err := lex(s, 1)
	if err != nil {
		return 0, err
	}
	p := &parser{toks: toks}
	x, err := p.expr(nil)
	if err != nil {
		return 0, err
	}
	if t := p.peek(); t.kind != scanner.EOF {
		return 0, p.errorf(t, "unexpected %s after expression", t)
	}
	vals, err := evalAll([]expr{x}, nil)
	if err != nil {
		return 0, &SyntaxError{Line: 1, Msg: s, Err: err}
	}
	return vals[0], nil
}
