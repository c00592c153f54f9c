package synth

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtranspile/internal/gates"
	"qtranspile/internal/linalg"
)

const tol = 1e-8

// randomUnitary orthonormalises the columns of a complex Gaussian matrix.
func randomUnitary(rng *rand.Rand, dim int) *linalg.Matrix {
	cols := make([][]complex128, dim)
	for j := range cols {
		v := make([]complex128, dim)
		for i := range v {
			v[i] = complex(rng.NormFloat64(), rng.NormFloat64())
		}
		for _, prev := range cols[:j] {
			var dot complex128
			for i := range v {
				dot += cmplx.Conj(prev[i]) * v[i]
			}
			for i := range v {
				v[i] -= dot * prev[i]
			}
		}
		var norm float64
		for _, x := range v {
			norm += real(x)*real(x) + imag(x)*imag(x)
		}
		for i := range v {
			v[i] /= complex(math.Sqrt(norm), 0)
		}
		cols[j] = v
	}
	m := linalg.New(dim)
	for i := range dim {
		for j := range dim {
			m.Set(i, j, cols[j][i])
		}
	}
	return m
}

func ruleNames(r gates.Rule) map[string]int {
	out := map[string]int{}
	for _, in := range r {
		out[in.Gate.Name()]++
	}
	return out
}

func TestChooseEulerBasis(t *testing.T) {
	cases := []struct {
		basis []string
		want  EulerBasis
		ok    bool
	}{
		{[]string{"u3", "cx"}, BasisU3, true},
		{[]string{"u1", "rx", "cz"}, BasisU1X, true},
		{[]string{"r", "rxx"}, BasisRR, true},
		{[]string{"rz", "ry", "cx"}, BasisZYZ, true},
		{[]string{"rz", "rx", "cz"}, BasisZXZ, true},
		{[]string{"rx", "ry"}, BasisXYX, true},
		{[]string{"u1", "rz", "rx"}, BasisU1X, true},
		{[]string{"h", "cx"}, "", false},
	}
	for _, tc := range cases {
		got, ok := ChooseEulerBasis(tc.basis)
		assert.Equal(t, tc.ok, ok, "%v", tc.basis)
		assert.Equal(t, tc.want, got, "%v", tc.basis)
	}
}

func TestEulerHadamardZYZ(t *testing.T) {
	e, err := NewOneQubitEulerDecomposer(BasisZYZ)
	require.NoError(t, err)
	rule, err := e.Decompose(gates.HMatrix())
	require.NoError(t, err)
	require.NotEmpty(t, rule)
	for _, in := range rule {
		assert.Contains(t, []string{"rz", "ry"}, in.Gate.Name())
	}
	got, err := gates.RuleMatrix(rule, 1)
	require.NoError(t, err)
	assert.True(t, linalg.EqualUpToPhase(gates.HMatrix(), got, tol))
}

func TestEulerBasesRandom(t *testing.T) {
	allowed := map[EulerBasis][]string{
		BasisU3:  {"u3"},
		BasisU1X: {"u1", "rx"},
		BasisRR:  {"r"},
		BasisZYZ: {"rz", "ry"},
		BasisZXZ: {"rz", "rx"},
		BasisXYX: {"rx", "ry"},
	}
	rng := rand.New(rand.NewSource(11))
	for basis, names := range allowed {
		t.Run(string(basis), func(t *testing.T) {
			e, err := NewOneQubitEulerDecomposer(basis)
			require.NoError(t, err)
			inputs := []*linalg.Matrix{linalg.Identity(2), gates.RZMatrix(0.3), gates.RXMatrix(math.Pi)}
			for range 25 {
				inputs = append(inputs, randomUnitary(rng, 2))
			}
			for _, u := range inputs {
				rule, err := e.Decompose(u)
				require.NoError(t, err)
				for _, in := range rule {
					assert.Contains(t, names, in.Gate.Name())
				}
				got, err := gates.RuleMatrix(rule, 1)
				require.NoError(t, err)
				assert.True(t, linalg.EqualUpToPhase(u, got, tol), "input\n%v\ngot\n%v", u, got)
			}
		})
	}
}

func TestEulerRejectsBadInput(t *testing.T) {
	e, err := NewOneQubitEulerDecomposer(BasisU3)
	require.NoError(t, err)
	_, err = e.Decompose(linalg.Identity(4))
	assert.ErrorIs(t, err, ErrInvalidOperand)
	_, err = e.Decompose(linalg.New(2))
	assert.ErrorIs(t, err, ErrInvalidOperand)

	_, err = NewOneQubitEulerDecomposer("ZZZ")
	assert.Error(t, err)
}

func TestWeylReconstructs(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cx, err := gates.CX().Matrix()
	require.NoError(t, err)
	inputs := []*linalg.Matrix{linalg.Identity(4), cx, Interaction(0.2, 0.1, -0.05)}
	for range 20 {
		inputs = append(inputs, randomUnitary(rng, 4))
	}
	for _, u := range inputs {
		w, err := DecomposeWeyl(u)
		require.NoError(t, err)
		assert.True(t, linalg.Equal(u, w.Reconstruct(), 1e-7), "input\n%v\nrebuilt\n%v", u, w.Reconstruct())
		assert.LessOrEqual(t, w.A, math.Pi/4+1e-9)
		assert.GreaterOrEqual(t, w.A, w.B-1e-9)
		assert.GreaterOrEqual(t, w.B, math.Abs(w.C)-1e-9)
	}
}

func TestWeylCoordinatesOfCX(t *testing.T) {
	cx, err := gates.CX().Matrix()
	require.NoError(t, err)
	w, err := DecomposeWeyl(cx)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4, w.A, 1e-9)
	assert.InDelta(t, 0, w.B, 1e-9)
	assert.InDelta(t, 0, w.C, 1e-9)
}

func TestChooseKAKGate(t *testing.T) {
	g, ok := ChooseKAKGate([]string{"rxx", "cz", "cx"})
	require.True(t, ok)
	assert.Equal(t, "cx", g.Name())
	g, ok = ChooseKAKGate([]string{"rxx", "cz"})
	require.True(t, ok)
	assert.Equal(t, "cz", g.Name())
	g, ok = ChooseKAKGate([]string{"rxx", "u3"})
	require.True(t, ok)
	assert.Equal(t, "rxx", g.Name())
	_, ok = ChooseKAKGate([]string{"iswap", "u3"})
	assert.False(t, ok)
}

func TestTwoQubitExact(t *testing.T) {
	cases := []struct {
		kak   *gates.Gate
		euler EulerBasis
		names []string
	}{
		{gates.CX(), BasisU3, []string{"cx", "u3"}},
		{gates.CX(), BasisZYZ, []string{"cx", "rz", "ry"}},
		{gates.CZ(), BasisU1X, []string{"cz", "u1", "rx"}},
		{gates.RXX(math.Pi / 2), BasisRR, []string{"rxx", "r"}},
	}
	rng := rand.New(rand.NewSource(5))
	for _, tc := range cases {
		t.Run(tc.kak.Name()+"/"+string(tc.euler), func(t *testing.T) {
			d, err := NewTwoQubitBasisDecomposer(tc.kak, tc.euler)
			require.NoError(t, err)
			for range 10 {
				u := randomUnitary(rng, 4)
				rule, err := d.Decompose(u, 1)
				require.NoError(t, err)
				counts := ruleNames(rule)
				for name := range counts {
					assert.Contains(t, tc.names, name)
				}
				assert.LessOrEqual(t, counts[tc.kak.Name()], 3)
				got, err := gates.RuleMatrix(rule, 2)
				require.NoError(t, err)
				assert.True(t, linalg.EqualUpToPhase(u, got, tol), "input\n%v\ngot\n%v", u, got)
			}
		})
	}
}

func TestTwoQubitGateCounts(t *testing.T) {
	d, err := NewTwoQubitBasisDecomposer(gates.CX(), BasisU3)
	require.NoError(t, err)

	cz, err := gates.CZ().Matrix()
	require.NoError(t, err)
	swap, err := gates.Swap().Matrix()
	require.NoError(t, err)
	local := linalg.Kron(gates.U3Matrix(0.1, 0.2, 0.3), gates.U3Matrix(1, 2, 3))

	cases := []struct {
		name string
		u    *linalg.Matrix
		want int
	}{
		{"local", local, 0},
		{"cz", cz, 1},
		{"partial", Interaction(0.3, 0.2, 0), 2},
		{"swap", swap, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, err := d.Decompose(tc.u, 1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ruleNames(rule)["cx"])
			got, err := gates.RuleMatrix(rule, 2)
			require.NoError(t, err)
			assert.True(t, linalg.EqualUpToPhase(tc.u, got, tol))
		})
	}
}

func TestTwoQubitApproximation(t *testing.T) {
	d, err := NewTwoQubitBasisDecomposer(gates.CX(), BasisU3)
	require.NoError(t, err)
	u := Interaction(0.01, 0, 0)

	exact, err := d.Decompose(u, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, ruleNames(exact)["cx"])

	approx, err := d.Decompose(u, 0.9)
	require.NoError(t, err)
	assert.Zero(t, ruleNames(approx)["cx"])

	w, err := DecomposeWeyl(u)
	require.NoError(t, err)
	assert.Equal(t, 0, NumBasisGates(w, 0.9))
	assert.Equal(t, 2, NumBasisGates(w, 0))
}

func TestTwoQubitRejectsBadInput(t *testing.T) {
	d, err := NewTwoQubitBasisDecomposer(gates.CZ(), BasisZYZ)
	require.NoError(t, err)
	_, err = d.Decompose(linalg.Identity(2), 1)
	assert.ErrorIs(t, err, ErrInvalidOperand)
	_, err = d.Decompose(linalg.New(4), 1)
	assert.ErrorIs(t, err, ErrInvalidOperand)

	_, err = NewTwoQubitBasisDecomposer(gates.RXX(0.3), BasisZYZ)
	assert.ErrorIs(t, err, ErrInvalidOperand)
	_, err = NewTwoQubitBasisDecomposer(gates.H(), BasisZYZ)
	assert.ErrorIs(t, err, ErrInvalidOperand)
}

func TestIsometry(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	ccx, err := gates.CCX().Matrix()
	require.NoError(t, err)
	inputs := []*linalg.Matrix{randomUnitary(rng, 2), randomUnitary(rng, 4), randomUnitary(rng, 8), ccx, linalg.Identity(8)}
	for _, u := range inputs {
		n, _ := linalg.NumQubits(u.Dim())
		rule, err := Isometry(u)
		require.NoError(t, err)
		for _, in := range rule {
			assert.Contains(t, []string{"u3", "u1", "rz", "ry", "x", "cx", "ccx"}, in.Gate.Name())
		}
		got, err := gates.RuleMatrix(rule, n)
		require.NoError(t, err)
		assert.True(t, linalg.EqualUpToPhase(u, got, 1e-7), "%d qubits", n)
	}

	_, err = Isometry(linalg.New(3))
	assert.ErrorIs(t, err, ErrInvalidOperand)
}

func TestSqrtUnitary(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	inputs := []*linalg.Matrix{gates.HMatrix(), gates.PhaseMatrix(1.2), randomUnitary(rng, 2)}
	for _, u := range inputs {
		v := sqrtUnitary(u)
		assert.True(t, linalg.Equal(u, v.Mul(v), 1e-10))
		assert.True(t, v.IsUnitary(1e-10))
	}
}
