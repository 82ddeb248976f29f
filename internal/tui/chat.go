package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"paperrag/internal/port"
	"paperrag/internal/usecase"
)

// Asker is the TUI-facing subset of the query engine.
type Asker interface {
	Ask(ctx context.Context, question string) (port.AnswerStream, bool, error)
}

type fragmentMsg struct{ text string }
type streamDoneMsg struct{}
type streamErrMsg struct{ err error }

// Model is the Bubble Tea model for the interactive chat.
type Model struct {
	engine   Asker
	input    textinput.Model
	viewport viewport.Model
	history  string
	status   string
	ready    bool

	streaming bool
	fragments chan tea.Msg
	cancel    context.CancelFunc
}

// New creates a chat model over an opened query engine.
func New(engine Asker) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the paper and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		engine:   engine,
		input:    ti,
		viewport: vp,
		status:   "Ready.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frameH := chatBoxStyle.GetFrameSize()
		_, inputH := inputBoxStyle.GetFrameSize()
		vh := msg.Height - frameH - inputH - 3
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width-2)
		m.viewport.Height = vh
		m.viewport.SetContent(m.history)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.streaming {
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			m.input.Reset()
			m.appendLine(questionStyle.Render("you: ") + question)
			m.history += answerStyle.Render("paper: ")
			m.viewport.SetContent(m.history)
			return m.startAsk(question)
		}

	case fragmentMsg:
		m.history += msg.text
		m.viewport.SetContent(m.history)
		m.viewport.GotoBottom()
		return m, m.waitFragment()

	case streamDoneMsg:
		m.streaming = false
		m.cancel = nil
		m.status = "Ready."
		m.appendLine("")
		return m, nil

	case streamErrMsg:
		m.streaming = false
		m.cancel = nil
		m.status = "Error: " + msg.err.Error()
		m.appendLine("")
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
	header := lipgloss.NewStyle().Bold(true).Render("paperrag chat")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

// startAsk kicks off retrieval and generation in the background. The
// stream is pumped into a channel so fragments arrive as messages; the
// stored cancel func aborts generation when the user quits mid-answer.
func (m Model) startAsk(question string) (Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.streaming = true
	m.status = "Thinking..."
	m.fragments = make(chan tea.Msg, 16)

	ch := m.fragments
	engine := m.engine
	go func() {
		defer close(ch)

		stream, ok, err := engine.Ask(ctx, question)
		if err != nil {
			ch <- streamErrMsg{err: err}
			return
		}
		if !ok {
			ch <- fragmentMsg{text: usecase.OutOfContextAnswer}
			ch <- streamDoneMsg{}
			return
		}
		defer stream.Close()

		for {
			frag, err := stream.Recv()
			if err == io.EOF {
				ch <- streamDoneMsg{}
				return
			}
			if err != nil {
				ch <- streamErrMsg{err: err}
				return
			}
			ch <- fragmentMsg{text: frag}
		}
	}()

	return m, m.waitFragment()
}

// waitFragment blocks on the next stream message.
func (m Model) waitFragment() tea.Cmd {
	ch := m.fragments
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamDoneMsg{}
		}
		return msg
	}
}

func (m *Model) appendLine(line string) {
	m.history += line + "\n"
	m.viewport.SetContent(m.history)
	m.viewport.GotoBottom()
}

// Run starts the chat program and blocks until the user quits.
func Run(engine Asker) error {
	p := tea.NewProgram(New(engine), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	return nil
}

var (
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
