package gates

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtranspile/internal/linalg"
)

const tol = 1e-9

func randomAngles(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * 2 * math.Pi
	}
	return out
}

func TestRulesMatchMatrices(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for k, info := range kinds {
		if info.directive || k == KindUnitary || k == KindU || k == KindCXBase {
			continue
		}
		t.Run(info.name, func(t *testing.T) {
			for range 20 {
				g, err := New(info.name, randomAngles(rng, info.numParams)...)
				require.NoError(t, err)
				rules := g.Decompositions()
				require.NotEmpty(t, rules)
				want, err := g.Matrix()
				require.NoError(t, err)
				got, err := RuleMatrix(rules[0], g.NumQubits())
				require.NoError(t, err)
				assert.True(t, linalg.EqualUpToPhase(want, got, tol), "%s rule differs:\nwant\n%v\ngot\n%v", g, want, got)
			}
		})
	}
}

func TestCU3RuleAngles(t *testing.T) {
	g := CU3(math.Pi/2, 0, 0)
	rule := g.Decompositions()[0]
	require.Len(t, rule, 5)

	names := []string{"u1", "cx", "u3", "cx", "u3"}
	wires := [][]int{{1}, {0, 1}, {1}, {0, 1}, {1}}
	params := [][]float64{{0}, nil, {-math.Pi / 4, 0, 0}, nil, {math.Pi / 4, 0, 0}}
	for i, in := range rule {
		assert.Equal(t, names[i], in.Gate.Name())
		assert.Equal(t, wires[i], in.Qubits)
		assert.InDeltaSlice(t, params[i], in.Gate.Params(), tol)
	}
}

func TestDecompositionsBuiltOnce(t *testing.T) {
	g := U3(0.1, 0.2, 0.3)
	a := g.Decompositions()
	b := g.Decompositions()
	assert.Same(t, a[0][0].Gate, b[0][0].Gate)
}

func TestInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for k, info := range kinds {
		if info.directive || k == KindUnitary {
			continue
		}
		t.Run(info.name, func(t *testing.T) {
			var g *Gate
			switch k {
			case KindU:
				a := randomAngles(rng, 3)
				g = U(a[0], a[1], a[2])
			case KindCXBase:
				g = newKind(KindCXBase)
			default:
				var err error
				g, err = New(info.name, randomAngles(rng, info.numParams)...)
				require.NoError(t, err)
			}
			before := g.Params()
			inv, err := g.Inverse()
			require.NoError(t, err)
			assert.NotSame(t, g, inv)
			assert.Equal(t, before, g.Params())

			m, err := g.Matrix()
			require.NoError(t, err)
			mi, err := inv.Matrix()
			require.NoError(t, err)
			assert.True(t, linalg.EqualUpToPhase(linalg.Identity(m.Dim()), m.Mul(mi), tol))
		})
	}
}

func TestInverseRebuildsRule(t *testing.T) {
	g := U3(0.4, 0.5, 0.6)
	_ = g.Decompositions()
	inv, err := g.Inverse()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-0.4, -0.6, -0.5}, inv.Params(), tol)
	assert.InDeltaSlice(t, []float64{-0.4, -0.6, -0.5}, inv.Decompositions()[0][0].Gate.Params(), tol)
	assert.InDeltaSlice(t, []float64{0.4, 0.5, 0.6}, g.Decompositions()[0][0].Gate.Params(), tol)
}

func TestASwapInverseReversesRule(t *testing.T) {
	g, err := New("aswap")
	require.NoError(t, err)
	inv, err := g.Inverse()
	require.NoError(t, err)
	assert.Equal(t, "aswap_dg", inv.Name())
	rule := inv.Decompositions()[0]
	require.Len(t, rule, 2)
	assert.Equal(t, []int{0, 1}, rule[0].Qubits)
	assert.Equal(t, []int{1, 0}, rule[1].Qubits)
}

func TestNewErrors(t *testing.T) {
	_, err := New("frobnicate")
	assert.ErrorIs(t, err, ErrUnknownGate)
	_, err = New("rx")
	assert.ErrorIs(t, err, ErrArity)
	_, err = NewUnitary(linalg.Identity(3))
	assert.ErrorIs(t, err, ErrInvalidMatrix)
	_, err = Measure().Inverse()
	assert.ErrorIs(t, err, ErrNoInverse)
}

func TestRulesFor(t *testing.T) {
	rules, opaque := RulesFor(NewOpaque("magic", 2, 0, nil))
	assert.True(t, opaque)
	assert.Empty(t, rules)

	rules, opaque = RulesFor(Measure())
	assert.True(t, opaque)
	assert.Empty(t, rules)

	rules, opaque = RulesFor(H())
	assert.False(t, opaque)
	assert.Len(t, rules, 1)

	m, _ := H().Matrix()
	u, err := NewUnitary(m)
	require.NoError(t, err)
	rules, opaque = RulesFor(u)
	assert.False(t, opaque)
	assert.Empty(t, rules)
}

func TestCustomGateMatrixFromRule(t *testing.T) {
	bell := NewCustom("bell", 2, nil, func([]float64) []Rule {
		return []Rule{{on(H(), 0), on(CX(), 0, 1)}}
	})
	m, err := bell.Matrix()
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt2, real(m.At(0, 0)), tol)
	assert.InDelta(t, 1/math.Sqrt2, real(m.At(3, 0)), tol)
}
