// Package tui is an interactive before/after viewer for a compilation.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"qtranspile/internal/dag"
	"qtranspile/internal/qasm"
)

type keyMap struct {
	Up, Down, Left, Right key.Binding
	Switch                key.Binding
	ScrollUp, ScrollDown  key.Binding
	Quit                  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Left, k.Switch, k.ScrollDown, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Left, k.Right}, {k.Switch, k.ScrollUp, k.ScrollDown, k.Quit}}
}

var defaultKeys = keyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑↓/jk", "qubit")),
	Down:       key.NewBinding(key.WithKeys("down", "j")),
	Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←→/hl", "column")),
	Right:      key.NewBinding(key.WithKeys("right", "l")),
	Switch:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "before/after")),
	ScrollUp:   key.NewBinding(key.WithKeys("pgup", "K")),
	ScrollDown: key.NewBinding(key.WithKeys("pgdown", "J"), key.WithHelp("J/K", "scroll qasm")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model shows one of two circuits, the source and the compiled result.
type Model struct {
	circuits [2]*dag.DAG
	grids    [2][]column
	qasm     [2]string
	titles   [2]string
	active   int

	cursorCol   int
	cursorQubit int
	width       int
	height      int

	qasmView viewport.Model
	keys     keyMap
	help     help.Model
}

// New builds a viewer for before and after. runID labels the compiled
// pane and may be empty.
func New(before, after *dag.DAG, runID string) Model {
	m := Model{
		circuits: [2]*dag.DAG{before, after},
		titles:   [2]string{"Source circuit", "Compiled circuit"},
		qasmView: viewport.New(40, 20),
		keys:     defaultKeys,
		help:     help.New(),
	}
	if runID != "" {
		m.titles[1] += " (" + runID + ")"
	}
	for i, d := range m.circuits {
		m.grids[i] = buildGrid(d)
		text, err := qasm.Format(d)
		if err != nil {
			text = "cannot render QASM: " + err.Error()
		}
		m.qasm[i] = text
	}
	m.qasmView.SetContent(m.qasm[0])
	return m
}

// Run starts the viewer on the terminal.
func Run(before, after *dag.DAG, runID string) error {
	_, err := tea.NewProgram(New(before, after, runID), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) cursorNode() *dag.Node {
	grid := m.grids[m.active]
	if m.cursorCol >= len(grid) || m.cursorQubit >= len(grid[m.cursorCol].cells) {
		return nil
	}
	return grid[m.cursorCol].cells[m.cursorQubit].node
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.qasmView.Width = max(msg.Width/3-6, 20)
		m.qasmView.Height = max(msg.Height-16, 4)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Switch):
			m.active = 1 - m.active
			m.qasmView.SetContent(m.qasm[m.active])
			m.qasmView.GotoTop()
			m.cursorCol = min(m.cursorCol, max(len(m.grids[m.active])-1, 0))
			m.cursorQubit = min(m.cursorQubit, max(m.circuits[m.active].NumQubits()-1, 0))
		case key.Matches(msg, m.keys.Up):
			if m.cursorQubit > 0 {
				m.cursorQubit--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursorQubit < m.circuits[m.active].NumQubits()-1 {
				m.cursorQubit++
			}
		case key.Matches(msg, m.keys.Left):
			if m.cursorCol > 0 {
				m.cursorCol--
			}
		case key.Matches(msg, m.keys.Right):
			if m.cursorCol < len(m.grids[m.active])-1 {
				m.cursorCol++
			}
		case key.Matches(msg, m.keys.ScrollUp):
			m.qasmView.SetYOffset(m.qasmView.YOffset - m.qasmView.Height/2)
		case key.Matches(msg, m.keys.ScrollDown):
			m.qasmView.SetYOffset(m.qasmView.YOffset + m.qasmView.Height/2)
		}
	}
	return m, nil
}

func (m Model) View() string {
	w, h := m.width, m.height
	if w == 0 {
		w, h = 120, 40
	}
	sideW := max(w/3, 28)
	circW := max(w-sideW-4, 30)
	panelH := max(h-6, 10)

	d := m.circuits[m.active]
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCircuit(d, m.grids[m.active], circW, panelH),
		m.renderSide(d, sideW, panelH),
	)
	return lipgloss.JoinVertical(lipgloss.Left, top, m.renderControls(w-2))
}
