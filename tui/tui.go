// Package tui provides the interactive terminal chat interface: a scrolling
// transcript, an input line, a model picker, and an ad-hoc sandbox command
// box.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/martinemde/sandchat/agent"
	"github.com/martinemde/sandchat/llm"
)

const turnTimeout = 5 * time.Minute

// mode selects which surface owns the input line.
type mode int

const (
	modeChat mode = iota
	modeCommand
	modePicker
)

var (
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	agentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("5")).Padding(0, 1)
	pickedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Messages delivered by background commands.
type turnResultMsg struct {
	answer string
	err    error
}

type commandResultMsg struct {
	command string
	output  string
	err     error
}

// Model is the bubbletea model for the chat session.
type Model struct {
	orch    *agent.Orchestrator
	input   textinput.Model
	view    viewport.Model
	spin    spinner.Model
	mode    mode
	busy    bool
	ready   bool
	width   int
	height  int
	lines   []string
	models  []llm.ModelInfo
	pickIdx int
}

// New creates the chat model over an orchestrator.
func New(orch *agent.Orchestrator) Model {
	input := textinput.New()
	input.Placeholder = "Ask something..."
	input.Focus()
	input.CharLimit = 0

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		orch:   orch,
		input:  input,
		spin:   spin,
		mode:   modeChat,
		models: llm.ListModels(""),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewHeight := msg.Height - 4
		if viewHeight < 1 {
			viewHeight = 1
		}
		if !m.ready {
			m.view = viewport.New(msg.Width, viewHeight)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = viewHeight
		}
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case turnResultMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLine(errorStyle.Render("error: " + msg.err.Error()))
		} else {
			m.appendLine(agentStyle.Render("assistant: ") + msg.answer)
		}
		m.appendLine("")
		return m, nil

	case commandResultMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLine(errorStyle.Render("command error: " + msg.err.Error()))
		} else {
			output := msg.output
			if strings.TrimSpace(output) == "" {
				output = mutedStyle.Render("(no output)")
			}
			m.appendLine(commandStyle.Render("$ "+msg.command) + "\n" + output)
		}
		m.appendLine("")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyCtrlP:
		if m.mode == modePicker {
			m.mode = modeChat
		} else {
			m.mode = modePicker
			m.pickIdx = m.activeModelIndex()
		}
		return m, nil

	case tea.KeyCtrlR:
		if m.mode == modeCommand {
			m.mode = modeChat
			m.input.Placeholder = "Ask something..."
		} else {
			m.mode = modeCommand
			m.input.Placeholder = "Shell command..."
		}
		return m, nil

	case tea.KeyEsc:
		m.mode = modeChat
		m.input.Placeholder = "Ask something..."
		return m, nil

	case tea.KeyUp:
		if m.mode == modePicker {
			if m.pickIdx > 0 {
				m.pickIdx--
			}
			return m, nil
		}

	case tea.KeyDown:
		if m.mode == modePicker {
			if m.pickIdx < len(m.models)-1 {
				m.pickIdx++
			}
			return m, nil
		}

	case tea.KeyEnter:
		return m.handleEnter()
	}

	if m.mode == modePicker {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.mode == modePicker {
		if m.pickIdx >= 0 && m.pickIdx < len(m.models) {
			picked := m.models[m.pickIdx]
			if err := m.orch.SelectModel(picked.ID); err != nil {
				m.appendLine(errorStyle.Render("model switch failed: " + err.Error()))
			} else {
				m.appendLine(mutedStyle.Render("switched to " + picked.ID))
			}
			m.appendLine("")
		}
		m.mode = modeChat
		return m, nil
	}

	if m.busy {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.busy = true

	if m.mode == modeCommand {
		m.appendLine(commandStyle.Render("$ " + text))
		return m, tea.Batch(m.spin.Tick, m.runCommand(text))
	}
	m.appendLine(userStyle.Render("you: ") + text)
	return m, tea.Batch(m.spin.Tick, m.runTurn(text))
}

func (m Model) runTurn(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		answer, err := m.orch.RunTurn(ctx, text)
		return turnResultMsg{answer: answer, err: err}
	}
}

func (m Model) runCommand(command string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		result, err := m.orch.RunCommand(ctx, command)
		if err != nil {
			return commandResultMsg{command: command, err: err}
		}
		return commandResultMsg{command: command, output: formatCommandOutput(result.Stdout, result.Stderr, result.ExitCode)}
	}
}

// formatCommandOutput merges stdout and stderr for display, noting non-zero
// exits.
func formatCommandOutput(stdout, stderr string, exitCode int) string {
	var parts []string
	if stdout != "" {
		parts = append(parts, stdout)
	}
	if stderr != "" {
		parts = append(parts, stderr)
	}
	if exitCode != 0 {
		parts = append(parts, fmt.Sprintf("(exit code %d)", exitCode))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.view.SetContent(strings.Join(m.lines, "\n"))
	m.view.GotoBottom()
}

func (m Model) activeModelIndex() int {
	active := m.orch.ActiveModel()
	for i, info := range m.models {
		if info.ID == active {
			return i
		}
	}
	return 0
}

func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	title := titleStyle.Render("sandchat") + mutedStyle.Render("  model: "+m.orch.ActiveModel())

	if m.mode == modePicker {
		return title + "\n\n" + m.pickerView()
	}

	status := ""
	if m.busy {
		status = m.spin.View() + " working"
	}
	help := mutedStyle.Render("enter send · ctrl+p models · ctrl+r command · ctrl+c quit")
	if m.mode == modeCommand {
		help = mutedStyle.Render("enter run in sandbox · esc back to chat · ctrl+c quit")
	}

	return fmt.Sprintf("%s\n%s\n%s %s\n%s", title, m.view.View(), m.input.View(), status, help)
}

func (m Model) pickerView() string {
	var b strings.Builder
	b.WriteString("Select a model:\n\n")
	for i, info := range m.models {
		cursor := "  "
		line := fmt.Sprintf("%s (%s)", info.ID, info.Provider)
		if i == m.pickIdx {
			cursor = "> "
			line = pickedStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render("enter select · ctrl+p cancel"))
	return b.String()
}
