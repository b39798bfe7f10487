// Package chat is the terminal view of a step section: its todos on the
// left and the section chat on the right.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/buildfast/internal/ai"
	"github.com/nhle/buildfast/internal/client"
	"github.com/nhle/buildfast/internal/keys"
	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/theme"
)

// Backend is the subset of the API client the view needs.
type Backend interface {
	ListTodos(ctx context.Context, sectionID int64) ([]model.StepTodo, error)
	UpdateTodo(ctx context.Context, id int64, patch model.TodoPatch) (*client.TodoChange, error)
	SetSectionCompleted(ctx context.Context, sectionID int64, completed bool) (*model.StepSection, error)
	SectionHistory(ctx context.Context, sectionID int64) ([]ai.HistoryEntry, error)
	SectionChat(ctx context.Context, sectionID int64, message string, onDelta func(string)) (string, error)
}

type focus int

const (
	focusInput focus = iota
	focusTodos
)

type todosLoadedMsg struct {
	todos []model.StepTodo
	err   error
}

type historyLoadedMsg struct {
	entries []ai.HistoryEntry
	err     error
}

type todoChangedMsg struct {
	change *client.TodoChange
	err    error
}

type sectionToggledMsg struct {
	section *model.StepSection
	err     error
}

// streamStartedMsg hands the chunk channel of a running reply to Update.
type streamStartedMsg struct {
	ch <-chan chunkMsg
}

// chunkMsg carries one streamed piece of the assistant reply.
type chunkMsg struct {
	text string
	done bool
	err  error
}

// displayMessage is a message rendered in the conversation viewport.
type displayMessage struct {
	role    model.Role
	content string
}

// Model is the Bubble Tea model for one section.
type Model struct {
	backend   Backend
	sectionID int64
	title     string
	keys      *keys.KeyMap

	todos            []model.StepTodo
	selectedIdx      int
	sectionCompleted bool

	messages  []displayMessage
	stream    <-chan chunkMsg
	streaming bool

	input    textarea.Model
	viewport viewport.Model
	help     help.Model
	renderer *glamour.TermRenderer
	focus    focus
	showHelp bool

	statusMsg string
	layout    layout
}

// New creates the section view.
func New(b Backend, sectionID int64, title string, k *keys.KeyMap, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about this section..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 4000
	ta.Focus()

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	m := Model{
		backend:   b,
		sectionID: sectionID,
		title:     title,
		keys:      k,
		input:     ta,
		viewport:  viewport.New(0, 0),
		help:      help.New(),
		renderer:  renderer,
		messages:  make([]displayMessage, 0),
	}
	m.SetSize(width, height)
	return m
}

// Init loads todos and history.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadTodos(), m.loadHistory())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case todosLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.todos = msg.todos
		if m.selectedIdx >= len(m.todos) {
			m.selectedIdx = max(len(m.todos)-1, 0)
		}
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.messages = m.messages[:0]
		for _, e := range msg.entries {
			m.messages = append(m.messages, displayMessage{role: e.Role, content: e.Content})
		}
		m.refreshViewport()
		return m, nil

	case todoChangedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.sectionCompleted = msg.change.SectionCompleted
		m.statusMsg = ""
		return m, m.loadTodos()

	case sectionToggledMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.sectionCompleted = msg.section.IsCompleted
		return m, m.loadTodos()

	case streamStartedMsg:
		m.stream = msg.ch
		return m, waitForChunk(m.stream)

	case chunkMsg:
		return m.handleChunk(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		if m.streaming {
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput {
			m.focus = focusTodos
			m.input.Blur()
			return m, nil
		}
		m.focus = focusInput
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.loadTodos(), m.loadHistory())
	}

	if m.focus == focusTodos {
		return m.handleTodoKey(msg)
	}

	if key.Matches(msg, m.keys.Send) {
		if m.streaming {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.messages = append(m.messages, displayMessage{role: model.RoleUser, content: text})
		m.streaming = true
		m.statusMsg = ""
		m.refreshViewport()
		return m, m.sendMessage(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleTodoKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.todos) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.todos)
		}
	case key.Matches(msg, m.keys.Up):
		if len(m.todos) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.todos) - 1
			}
		}
	case key.Matches(msg, m.keys.Toggle):
		if len(m.todos) == 0 {
			return m, nil
		}
		return m, m.toggleTodo(m.todos[m.selectedIdx])
	case key.Matches(msg, m.keys.Section):
		return m, m.toggleSection(!m.sectionCompleted)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// handleChunk appends streamed text to the trailing assistant message.
func (m Model) handleChunk(msg chunkMsg) (tea.Model, tea.Cmd) {
	if msg.text != "" {
		n := len(m.messages)
		if n > 0 && m.messages[n-1].role == model.RoleAssistant && m.streaming {
			m.messages[n-1].content += msg.text
		} else {
			m.messages = append(m.messages, displayMessage{role: model.RoleAssistant, content: msg.text})
		}
	}

	if !msg.done {
		m.refreshViewport()
		return m, waitForChunk(m.stream)
	}

	m.streaming = false
	m.stream = nil
	if msg.err != nil {
		m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
	}
	m.refreshViewport()

	// The assistant may have changed todos through tools.
	return m, m.loadTodos()
}

func (m Model) loadTodos() tea.Cmd {
	b, id := m.backend, m.sectionID
	return func() tea.Msg {
		todos, err := b.ListTodos(context.Background(), id)
		return todosLoadedMsg{todos: todos, err: err}
	}
}

func (m Model) loadHistory() tea.Cmd {
	b, id := m.backend, m.sectionID
	return func() tea.Msg {
		entries, err := b.SectionHistory(context.Background(), id)
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (m Model) toggleTodo(t model.StepTodo) tea.Cmd {
	b := m.backend
	done := !t.IsCompleted
	return func() tea.Msg {
		change, err := b.UpdateTodo(context.Background(), t.ID, model.TodoPatch{IsCompleted: &done})
		return todoChangedMsg{change: change, err: err}
	}
}

func (m Model) toggleSection(completed bool) tea.Cmd {
	b, id := m.backend, m.sectionID
	return func() tea.Msg {
		section, err := b.SetSectionCompleted(context.Background(), id, completed)
		return sectionToggledMsg{section: section, err: err}
	}
}

// sendMessage starts the request in the background and returns the channel
// its chunks arrive on.
func (m Model) sendMessage(text string) tea.Cmd {
	b, id := m.backend, m.sectionID
	return func() tea.Msg {
		ch := make(chan chunkMsg, 64)
		go func() {
			defer close(ch)
			_, err := b.SectionChat(context.Background(), id, text, func(delta string) {
				ch <- chunkMsg{text: delta}
			})
			ch <- chunkMsg{done: true, err: err}
		}()
		return streamStartedMsg{ch: ch}
	}
}

// waitForChunk returns a command that waits for the next chunk from the
// streaming channel.
func waitForChunk(ch <-chan chunkMsg) tea.Cmd {
	return func() tea.Msg {
		chunk, ok := <-ch
		if !ok {
			return chunkMsg{done: true}
		}
		return chunk
	}
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.messages) == 0 {
		return theme.HelpStyle.Render("No messages yet. Ask how to approach this section.")
	}

	var parts []string
	for i, msg := range m.messages {
		label := "You:"
		if msg.role == model.RoleAssistant {
			label = "Assistant:"
		}
		parts = append(parts, theme.RoleStyle(string(msg.role)).Render(label))

		// Markdown is rendered once the reply is complete.
		live := m.streaming && i == len(m.messages)-1
		if msg.role == model.RoleAssistant && !live && m.renderer != nil {
			if out, err := m.renderer.Render(msg.content); err == nil {
				parts = append(parts, strings.TrimRight(out, "\n"))
				continue
			}
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorWhite).Render(msg.content), "")
	}

	if m.streaming {
		parts = append(parts, theme.HelpStyle.Render("..."))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderTodos() string {
	var b strings.Builder

	heading := "Todos"
	if m.sectionCompleted {
		heading += " (done)"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(heading))
	b.WriteString("\n\n")

	if len(m.todos) == 0 {
		b.WriteString(theme.HelpStyle.Render("No todos yet."))
	}
	for i, t := range m.todos {
		box := "[ ]"
		if t.IsCompleted {
			box = "[x]"
		}
		line := theme.TodoStyle(t.IsCompleted).Render(fmt.Sprintf("%s %s", box, t.Title))
		if m.focus == focusTodos && i == m.selectedIdx {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	style := theme.BorderStyle
	if m.focus == focusTodos {
		style = style.BorderForeground(theme.ColorBlue)
	}
	return style.
		Width(m.layout.sidebarWidth() - 2).
		Height(m.layout.contentHeight() - 2).
		Render(b.String())
}

// View renders the section view.
func (m Model) View() string {
	status := "ready"
	if m.streaming {
		status = "thinking..."
	}
	header := m.layout.header(m.title, status)

	sep := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(m.layout.chatWidth()-6, 1)))
	chat := theme.DetailPanelStyle.
		Width(m.layout.chatWidth() - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), sep, m.input.View()))

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderTodos(), chat)
	if m.showHelp {
		m.help.ShowAll = true
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.help.View(m.keys))
	}

	hints := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.statusMsg != "" {
		hints = theme.ErrorStyle.Render(m.statusMsg)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.layout.statusBar(hints))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.layout = newLayout(width, height)
	m.help.Width = width

	inner := m.layout.chatWidth() - 6
	m.input.SetWidth(max(inner, 10))
	m.viewport.Width = max(inner, 10)
	m.viewport.Height = max(m.layout.contentHeight()-8, 4)
}
