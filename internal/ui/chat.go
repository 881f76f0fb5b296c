package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/planqa/internal/answer"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/store"
)

// Asker answers questions about one document.
type Asker interface {
	Ask(ctx context.Context, documentID, question string, level answer.Level) (*answer.Answer, error)
}

// ChatOptions configures a chat session.
type ChatOptions struct {
	DocumentID string
	// Title names the document in the header, usually its filename.
	Title   string
	Level   answer.Level
	History []store.Message
	NoColor bool
}

const chatHelp = "Commands: /level beginner|intermediate|advanced, /help, /quit"

// chatCommand is a parsed slash command.
type chatCommand struct {
	name string
	arg  string
}

// parseChatCommand reports whether line is a slash command.
func parseChatCommand(line string) (chatCommand, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return chatCommand{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return chatCommand{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

// RunChat runs the full-screen chat until the user quits.
func RunChat(ctx context.Context, asker Asker, opts ChatOptions) error {
	m := newChatModel(ctx, asker, opts)
	_, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}

type answerMsg struct {
	question string
	ans      *answer.Answer
	err      error
}

type chatModel struct {
	ctx      context.Context
	asker    Asker
	opts     ChatOptions
	styles   Styles
	input    textinput.Model
	view     viewport.Model
	spinner  spinner.Model
	history  []store.Message
	notice   string
	thinking bool
	width    int
}

func newChatModel(ctx context.Context, asker Asker, opts ChatOptions) *chatModel {
	if opts.Level == "" {
		opts.Level = answer.LevelIntermediate
	}

	in := textinput.New()
	in.Placeholder = "Ask about your plan…"
	in.Prompt = "› "
	in.CharLimit = 1000
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &chatModel{
		ctx:     ctx,
		asker:   asker,
		opts:    opts,
		styles:  GetStyles(opts.NoColor),
		input:   in,
		view:    viewport.New(80, 20),
		spinner: s,
		history: append([]store.Message(nil), opts.History...),
		notice:  chatHelp,
		width:   80,
	}
}

func (m *chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-5, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
			return m, nil
		}

	case answerMsg:
		m.thinking = false
		if msg.err != nil {
			m.notice = m.styles.Error.Render(strings.TrimSpace(planerrors.FormatForCLI(msg.err)))
		} else {
			m.notice = ""
			m.history = append(m.history, store.Message{
				Role:       store.RoleAssistant,
				Content:    msg.ans.Text,
				Citations:  msg.ans.Citations,
				Confidence: string(msg.ans.Confidence),
			})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.thinking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit handles the input line. It returns the command to run, if any.
func (m *chatModel) submit() tea.Cmd {
	if m.thinking {
		return nil
	}
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return nil
	}

	if c, ok := parseChatCommand(line); ok {
		switch c.name {
		case "quit", "exit":
			return tea.Quit
		case "level":
			level, err := answer.ParseLevel(c.arg)
			if err != nil || c.arg == "" {
				m.notice = m.styles.Warning.Render("Level must be beginner, intermediate, or advanced")
			} else {
				m.opts.Level = level
				m.notice = "Level set to " + string(level)
			}
		default:
			m.notice = chatHelp
		}
		m.refresh()
		return nil
	}

	m.history = append(m.history, store.Message{Role: store.RoleUser, Content: line})
	m.thinking = true
	m.notice = ""
	m.refresh()

	ctx, asker, docID, level := m.ctx, m.asker, m.opts.DocumentID, m.opts.Level
	ask := func() tea.Msg {
		ans, err := asker.Ask(ctx, docID, line, level)
		return answerMsg{question: line, ans: ans, err: err}
	}
	return tea.Batch(ask, m.spinner.Tick)
}

func (m *chatModel) refresh() {
	m.view.SetContent(m.transcript())
	m.view.GotoBottom()
}

func (m *chatModel) transcript() string {
	wrap := lipgloss.NewStyle().Width(max(m.width-2, 20))
	var sb strings.Builder
	for _, msg := range m.history {
		if msg.Role == store.RoleUser {
			sb.WriteString(m.styles.User.Render("You") + "\n")
			sb.WriteString(wrap.Render(msg.Content) + "\n\n")
			continue
		}
		sb.WriteString(m.styles.Bot.Render("Assistant") + "\n")
		sb.WriteString(wrap.Render(msg.Content) + "\n")
		for _, c := range msg.Citations {
			sb.WriteString(m.styles.Citation.Render(fmt.Sprintf("  Page %d: %s", c.PageNumber, c.Snippet)) + "\n")
		}
		if msg.Confidence != "" {
			sb.WriteString(m.styles.Dim.Render("  Confidence: "+msg.Confidence) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *chatModel) View() string {
	title := m.opts.Title
	if title == "" {
		title = m.opts.DocumentID
	}
	header := m.styles.Header.Render(title) + m.styles.Dim.Render("  •  level "+string(m.opts.Level))

	status := m.notice
	if m.thinking {
		status = m.spinner.View() + " Thinking…"
	}
	return strings.Join([]string{header, m.view.View(), status, m.input.View()}, "\n")
}
