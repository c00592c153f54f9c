package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtranspile/internal/dag"
	"qtranspile/internal/gates"
)

func q(i int) dag.Wire { return dag.Wire{Kind: dag.QuantumWire, Reg: "q", Index: i} }

func sample(t *testing.T) *dag.DAG {
	t.Helper()
	d := dag.New()
	require.NoError(t, d.AddQReg("q", 3))
	require.NoError(t, d.AddCReg("c", 1))
	apply := func(g *gates.Gate, qargs, cargs []dag.Wire, cond *dag.Condition) {
		_, err := d.ApplyOperationBack(g, qargs, cargs, cond)
		require.NoError(t, err)
	}
	apply(gates.H(), []dag.Wire{q(0)}, nil, nil)
	apply(gates.CX(), []dag.Wire{q(0), q(2)}, nil, nil)
	apply(gates.X(), []dag.Wire{q(1)}, nil, nil)
	apply(gates.Measure(), []dag.Wire{q(2)}, []dag.Wire{{Kind: dag.ClassicalWire, Reg: "c", Index: 0}}, nil)
	z, err := gates.New("z")
	require.NoError(t, err)
	apply(z, []dag.Wire{q(1)}, nil, &dag.Condition{Reg: "c", Value: 1})
	return d
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBuildGrid(t *testing.T) {
	grid := buildGrid(sample(t))
	// h and x | cx | measure | conditioned z
	require.Len(t, grid, 4)

	assert.Equal(t, roleBox, grid[0].cells[0].role)
	assert.Equal(t, "H", grid[0].cells[0].label)

	cx := grid[1]
	assert.Equal(t, roleControl, cx.cells[0].role)
	assert.Equal(t, rolePass, cx.cells[1].role)
	assert.Equal(t, roleTarget, cx.cells[2].role)
	assert.True(t, cx.cells[1].vertAbove && cx.cells[1].vertBelow)

	assert.Equal(t, "X", grid[0].cells[1].label)
	assert.Equal(t, "╩0", grid[2].marks["c"])
	assert.Equal(t, "?", grid[3].marks["c"])
}

func TestModelNavigation(t *testing.T) {
	before := sample(t)
	after := dag.New()
	require.NoError(t, after.AddQReg("q", 1))

	var m tea.Model = New(before, after, "run-1")
	m, _ = m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	for _, k := range []string{"right", "down", "down"} {
		m, _ = m.Update(keyMsg(k))
	}
	vm := m.(Model)
	assert.Equal(t, 1, vm.cursorCol)
	assert.Equal(t, 2, vm.cursorQubit)
	require.NotNil(t, vm.cursorNode())
	assert.Equal(t, "cx", vm.cursorNode().Name())

	view := vm.View()
	assert.Contains(t, view, "Source circuit")
	assert.Contains(t, view, "cx q[0] q[2]")
	assert.Contains(t, view, "measure")

	m, _ = m.Update(keyMsg("tab"))
	vm = m.(Model)
	assert.Equal(t, 1, vm.active)
	assert.Equal(t, 0, vm.cursorCol)
	assert.Equal(t, 0, vm.cursorQubit)
	assert.Nil(t, vm.cursorNode())
	assert.Contains(t, vm.View(), "Compiled circuit (run-1)")

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestPadCenter(t *testing.T) {
	assert.Equal(t, "  H  ", padCenter("H", 5))
	assert.Equal(t, "UNITA", padCenter("UNITARY", 5))
	assert.Equal(t, 5, len([]rune(padCenter("×", 5))))
	assert.True(t, strings.HasPrefix(padCenter("ab", 5), " "))
}

func TestBuildGridSplitsCrossingSpans(t *testing.T) {
	d := dag.New()
	require.NoError(t, d.AddQReg("q", 3))
	_, err := d.ApplyOperationBack(gates.Swap(), []dag.Wire{q(0), q(2)}, nil, nil)
	require.NoError(t, err)
	_, err = d.ApplyOperationBack(gates.H(), []dag.Wire{q(1)}, nil, nil)
	require.NoError(t, err)

	grid := buildGrid(d)
	require.Len(t, grid, 2, "h on q[1] lies inside the swap span")
	assert.Equal(t, roleSwap, grid[0].cells[0].role)
	assert.Equal(t, rolePass, grid[0].cells[1].role)
	assert.Equal(t, roleBox, grid[1].cells[1].role)
	assert.Equal(t, roleEmpty, grid[1].cells[0].role)
}
