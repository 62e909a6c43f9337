package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// outputMsg carries the result of a command run off the UI goroutine.
type outputMsg struct {
	input  string
	output Output
}

// Model is the Bubble Tea model: a scrolling transcript above a command
// input.
type Model struct {
	ctx        context.Context
	session    *Session
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	busy       bool
	ready      bool
}

func NewModel(ctx context.Context, s *Session) Model {
	ti := textinput.New()
	ti.Prompt = s.Prompt()
	ti.Placeholder = "index <dir> | load <file> | search <query> | help | exit"
	ti.Focus()
	return Model{
		ctx:        ctx,
		session:    s,
		input:      ti,
		viewport:   viewport.New(0, 0),
		transcript: []string{statusStyle.Render(banner)},
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := boxStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-frame-4)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			line := m.input.Value()
			m.input.SetValue("")
			m.busy = true
			return m, m.execute(line)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	case outputMsg:
		m.busy = false
		m.record(msg)
		if msg.output.Quit {
			return m, tea.Quit
		}
		m.input.Prompt = msg.output.Prompt
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	status := "ready"
	if m.busy {
		status = "working..."
	} else if st := m.session.engine.Status(); st.Loaded {
		status = formatStatus(st)
	}
	return titleStyle.Render("textsearch") + "\n" +
		boxStyle.Render(m.viewport.View()) + "\n" +
		m.input.View() + "\n" +
		statusStyle.Render(status)
}

// execute runs the session command as a tea.Cmd so indexing does not block
// rendering.
func (m Model) execute(line string) tea.Cmd {
	prompt := m.input.Prompt
	return func() tea.Msg {
		return outputMsg{input: prompt + line, output: m.session.Execute(m.ctx, line)}
	}
}

func (m *Model) record(msg outputMsg) {
	m.transcript = append(m.transcript, msg.input)
	out := msg.output
	switch {
	case out.Response != nil:
		m.transcript = append(m.transcript, FormatResults(out.Response, highlightTerms))
	case strings.HasPrefix(out.Text, "Error: "):
		m.transcript = append(m.transcript, errorStyle.Render(out.Text))
	case out.Text != "":
		m.transcript = append(m.transcript, out.Text)
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}
