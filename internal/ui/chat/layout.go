package chat

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/buildfast/internal/theme"
)

// layout splits the terminal into a header, a todo sidebar, the chat pane
// and a status bar.
type layout struct {
	width           int
	height          int
	headerHeight    int
	statusBarHeight int
}

func newLayout(width, height int) layout {
	return layout{
		width:           width,
		height:          height,
		headerHeight:    1,
		statusBarHeight: 1,
	}
}

// contentHeight is the height between the header and the status bar.
func (l layout) contentHeight() int {
	return max(l.height-l.headerHeight-l.statusBarHeight, 6)
}

// sidebarWidth is a third of the screen, clamped to a readable range.
func (l layout) sidebarWidth() int {
	return min(max(l.width/3, 24), 48)
}

func (l layout) chatWidth() int {
	return max(l.width-l.sidebarWidth(), 30)
}

// header renders the title bar with a right-aligned status.
func (l layout) header(title, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	gap := max(l.width-lipgloss.Width(titleRendered)-lipgloss.Width(statusRendered), 0)

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, titleRendered, filler, statusRendered)
}

// statusBar renders keyboard hints padded to the full width.
func (l layout) statusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)
	gap := max(l.width-lipgloss.Width(rendered), 0)

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.StatusBarStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}
