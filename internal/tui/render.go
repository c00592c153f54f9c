package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"qtranspile/internal/dag"
	"qtranspile/internal/qasm"
)

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	total := width - len(r)
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// renderCell returns 3 lines (top, mid, bot) for a single cell, each cellW
// visual characters wide.
func renderCell(c cell, cursor bool) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	vertRow := strings.Repeat(" ", halfW) + "│" + strings.Repeat(" ", cellW-halfW-1)
	dashL := (cellW - 1) / 2
	dashR := cellW - dashL - 1

	top, bot = emptyRow, emptyRow
	if c.vertAbove {
		top = vertRow
	}
	if c.vertBelow {
		bot = vertRow
	}

	switch c.role {
	case roleBarrier:
		top, bot = vertRow, vertRow
		mid = strings.Repeat("─", dashL) + "│" + strings.Repeat("─", dashR)
	case roleControl, roleTarget, roleSwap:
		mid = strings.Repeat("─", dashL) + gateStyle.Render(c.label) + strings.Repeat("─", dashR)
	case rolePass:
		mid = strings.Repeat("─", dashL) + "┼" + strings.Repeat("─", dashR)
	case roleBox:
		margin := (cellW - gateBoxW) / 2
		rightMargin := cellW - margin - gateBoxW
		name := padCenter(c.label, gateNameW)
		boxTop := strings.Repeat(" ", margin) + gateStyle.Render("┌"+strings.Repeat("─", gateNameW)+"┐") + strings.Repeat(" ", rightMargin)
		boxBot := strings.Repeat(" ", margin) + gateStyle.Render("└"+strings.Repeat("─", gateNameW)+"┘") + strings.Repeat(" ", rightMargin)
		if !c.vertAbove {
			top = boxTop
		}
		if !c.vertBelow {
			bot = boxBot
		}
		mid = strings.Repeat("─", margin) + gateStyle.Render("┤"+name+"├") + strings.Repeat("─", rightMargin)
	default:
		mid = strings.Repeat("─", cellW)
	}

	if cursor {
		innerW := cellW - 2
		top = cursorBoxStyle.Render("╔" + strings.Repeat("═", innerW) + "╗")
		bot = cursorBoxStyle.Render("╚" + strings.Repeat("═", innerW) + "╝")
		label := c.label
		if c.role == roleEmpty {
			label = ""
		} else if c.role == rolePass {
			label = "┼"
		}
		inner := strings.Repeat("─", innerW)
		if label != "" {
			inner = "─" + padCenter(label, innerW-2) + "─"
		}
		mid = cursorBoxStyle.Render("║") + gateStyle.Render(inner) + cursorBoxStyle.Render("║")
	}
	return top, mid, bot
}

// renderCircuit draws the visible columns of grid for d.
func (m Model) renderCircuit(d *dag.DAG, grid []column, width, height int) string {
	var sb strings.Builder

	title := m.titles[m.active]
	sb.WriteString(titleStyle.Render(title))
	fmt.Fprintf(&sb, "  %s\n\n", dimStyle.Render(fmt.Sprintf("%d ops, depth %d", d.Size(), d.Depth())))

	availWidth := width - labelVisualW - 4
	maxCols := max(availWidth/cellW, 1)
	start := 0
	if m.cursorCol >= maxCols {
		start = m.cursorCol - maxCols + 1
	}
	end := min(start+maxCols, len(grid))
	if start > 0 {
		fmt.Fprintf(&sb, "  ◀ showing columns %d–%d\n", start, end-1)
	}

	header := strings.Repeat(" ", labelVisualW)
	for col := start; col < end; col++ {
		header += dimStyle.Render(padCenter(fmt.Sprintf("%d", col), cellW))
	}
	sb.WriteString(header + "\n")

	for q, w := range d.Qubits() {
		topLine := strings.Repeat(" ", labelVisualW)
		midLine := qubitLabelStyle.Render(fmt.Sprintf("%-*s", labelVisualW-2, w.String())) + "──"
		botLine := strings.Repeat(" ", labelVisualW)
		for col := start; col < end; col++ {
			top, mid, bot := renderCell(grid[col].cells[q], col == m.cursorCol && q == m.cursorQubit)
			topLine += top
			midLine += mid
			botLine += bot
		}
		sb.WriteString(topLine + "\n" + midLine + "\n" + botLine + "\n")
	}

	for _, r := range d.Registers() {
		if r.Kind != dag.ClassicalWire {
			continue
		}
		line := cbitLabelStyle.Render(fmt.Sprintf("%-*s", labelVisualW-2, fmt.Sprintf("%s[%d]", r.Name, r.Size))) + cbitWireStyle.Render("══")
		for col := start; col < end; col++ {
			mark, ok := grid[col].marks[r.Name]
			if !ok {
				line += cbitWireStyle.Render(strings.Repeat("═", cellW))
				continue
			}
			dashL := (cellW - 1) / 2
			dashR := max(cellW-dashL-len([]rune(mark)), 0)
			line += cbitWireStyle.Render(strings.Repeat("═", dashL)) +
				cbitConnectorStyle.Render(mark) +
				cbitWireStyle.Render(strings.Repeat("═", dashR))
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\n  " + m.describeCursor())
	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

// describeCursor summarises the operation under the cursor.
func (m Model) describeCursor() string {
	n := m.cursorNode()
	if n == nil {
		return fmt.Sprintf("Column %d, qubit %d", m.cursorCol, m.cursorQubit)
	}
	var sb strings.Builder
	sb.WriteString(activeStyle.Render(n.Name()))
	if ps := n.Op.Params(); len(ps) > 0 {
		parts := make([]string, len(ps))
		for i, p := range ps {
			parts[i] = qasm.FormatParam(p)
		}
		sb.WriteString("(" + strings.Join(parts, ", ") + ")")
	}
	for _, w := range n.Qargs {
		sb.WriteString(" " + w.String())
	}
	if len(n.Cargs) > 0 {
		sb.WriteString(" ->")
		for _, w := range n.Cargs {
			sb.WriteString(" " + w.String())
		}
	}
	if n.Condition != nil {
		fmt.Fprintf(&sb, "  if %s==%d", n.Condition.Reg, n.Condition.Value)
	}
	return sb.String()
}

// renderSide shows op counts and the QASM of the active circuit.
func (m Model) renderSide(d *dag.DAG, width, height int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Operations"))
	sb.WriteString("\n")
	counts := d.CountOps()
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(&sb, "  %-10s %d\n", name, counts[name])
	}
	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("QASM"))
	sb.WriteString("\n")
	sb.WriteString(m.qasmView.View())
	return qasmStyle.Width(width).Height(height).Render(sb.String())
}

func (m Model) renderControls(width int) string {
	return controlsStyle.Width(width).Render(m.help.View(m.keys))
}
