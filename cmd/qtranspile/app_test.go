package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtranspile/internal/qasm"
	"qtranspile/internal/result"
)

const bell = `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
creg c[2];
h q[0];
cx q[0],q[1];
measure q -> c;
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).RunContext(context.Background(), append([]string{"qtranspile"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCompileToFile(t *testing.T) {
	src := writeFile(t, "bell.qasm", bell)
	dst := filepath.Join(t.TempDir(), "out.qasm")
	metrics := filepath.Join(t.TempDir(), "metrics.txt")

	_, err := run(t, "compile", "--basis", "u2,cx", "--verify", "-o", dst, "--metrics", metrics, src)
	require.NoError(t, err)

	d, err := qasm.ParseFile(dst)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"u2": 1, "cx": 1, "measure": 2}, d.CountOps())

	blob, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(blob), "qtranspile_stage_runs_total")
}

func TestCompileToStdout(t *testing.T) {
	a := writeFile(t, "a.qasm", bell)
	b := writeFile(t, "b.qasm", bell)

	out, err := run(t, "compile", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "// "+a)
	assert.Contains(t, out, "// "+b)
	assert.Contains(t, out, "cx q[0],q[1];")
}

func TestCompileWithTargetFile(t *testing.T) {
	src := writeFile(t, "bell.qasm", bell)
	tgt := writeFile(t, "device.toml", `
basis = ["u3", "cx"]
coupling_map = [[1, 0]]
layout = [0, 1]
`)
	out, err := run(t, "compile", "-t", tgt, "--pulse-optimize", src)
	require.NoError(t, err)
	assert.Contains(t, out, "OPENQASM 2.0;")
}

func TestCompileErrors(t *testing.T) {
	_, err := run(t, "compile")
	require.Error(t, err)

	_, err = run(t, "compile", "--fidelity", "1.5", writeFile(t, "bell.qasm", bell))
	require.Error(t, err)

	_, err = run(t, "compile", writeFile(t, "bad.qasm", "OPENQASM 2.0;\nqreg q[1];\nfoo q[0];\n"))
	require.ErrorIs(t, err, qasm.ErrSyntax)
}

func TestMarginal(t *testing.T) {
	counts := writeFile(t, "counts.json", `{"000": 10, "011": 5, "101": 3, "110": 2}`)

	out, err := run(t, "marginal", "--indices", "0", counts)
	require.NoError(t, err)
	var got result.Counts
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, result.Counts{"0": 12, "1": 8}, got)

	out, err = run(t, "marginal", "--indices", "0,1", "--pad-zeros", counts)
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, result.Counts{"00": 10, "01": 3, "10": 2, "11": 5}, got)

	_, err = run(t, "marginal", "--indices", "7", counts)
	require.ErrorIs(t, err, result.ErrIndexOutOfRange)
}

func TestMarginalLayout(t *testing.T) {
	counts := writeFile(t, "counts.json", `{"01": 4, "10": 1}`)
	out, err := run(t, "marginal", "--layout", "1,0", counts)
	require.NoError(t, err)
	var got result.Counts
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, result.Counts{"10": 4, "01": 1}, got)
}
