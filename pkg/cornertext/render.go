package cornertext

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	frameStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	cellStyle  = lipgloss.NewStyle()
)

// Render lays the annotations out as a terminal view of the given outer
// width: corners and top/bottom edges in three bands, left/right edges in
// the middle.
func Render(annotations [NumPositions]Annotation, width int) string {
	inner := width - frameStyle.GetHorizontalFrameSize()
	if inner < 3 {
		inner = 3
	}
	third := inner / 3
	half := inner / 2

	band := func(left, center, right Position) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			cell(annotations[left], third, lipgloss.Left),
			cell(annotations[center], inner-2*third, lipgloss.Center),
			cell(annotations[right], third, lipgloss.Right),
		)
	}
	middle := lipgloss.JoinHorizontal(lipgloss.Top,
		cell(annotations[Left], half, lipgloss.Left),
		cell(annotations[Right], inner-half, lipgloss.Right),
	)

	body := lipgloss.JoinVertical(lipgloss.Left,
		band(TopLeft, Top, TopRight),
		middle,
		band(BottomLeft, Bottom, BottomRight),
	)
	return frameStyle.Render(body)
}

func cell(a Annotation, width int, align lipgloss.Position) string {
	return cellStyle.Width(width).Align(align).Render(strings.TrimRight(a.Text, "\n"))
}
