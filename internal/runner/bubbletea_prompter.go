package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	promptCardWidth = 64
	// Two columns of padding on each side inside the border.
	promptInnerWidth = promptCardWidth - 4
)

var errPromptCancelled = errors.New("setup cancelled")

type bubbleTeaPrompter struct {
	in       io.Reader
	out      io.Writer
	theme    promptTheme
	version  string
	fallback *terminalPrompter
}

func newBubbleTeaPrompter(in io.Reader, out io.Writer) *bubbleTeaPrompter {
	return &bubbleTeaPrompter{
		in:       in,
		out:      out,
		theme:    newPromptTheme(supportsColor(out)),
		version:  versionTag(),
		fallback: newTerminalPrompter(in, out),
	}
}

func (p *bubbleTeaPrompter) Ask(ctx context.Context, question, defaultValue string) (string, error) {
	model := newAskModel(question, defaultValue, p.version, p.theme)
	final, err := p.run(ctx, model)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return p.fallback.Ask(ctx, question, defaultValue)
	}
	if final.cancelled {
		return "", errPromptCancelled
	}
	return final.answer, nil
}

func (p *bubbleTeaPrompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	model := newConfirmModel(question, defaultYes, p.version, p.theme)
	final, err := p.run(ctx, model)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return p.fallback.Confirm(ctx, question, defaultYes)
	}
	if final.cancelled {
		return false, errPromptCancelled
	}
	return final.yes, nil
}

func (p *bubbleTeaPrompter) run(ctx context.Context, model *promptModel) (*promptModel, error) {
	restore := normalizeTERMForBubbleTea()
	defer restore()

	prog := tea.NewProgram(model, tea.WithInput(p.in), tea.WithOutput(p.out), tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(*promptModel)
	if !ok || !m.done {
		return nil, fmt.Errorf("prompt ended without an answer")
	}
	return m, nil
}

type promptTheme struct {
	color       bool
	accentColor lipgloss.Color
	title       lipgloss.Style
	subtitle    lipgloss.Style
	question    lipgloss.Style
	input       lipgloss.Style
	placeholder lipgloss.Style
	choice      lipgloss.Style
	choiceOn    lipgloss.Style
	help        lipgloss.Style
	key         lipgloss.Style
	prefix      string
}

func newPromptTheme(color bool) promptTheme {
	if !color {
		return promptTheme{
			title:       lipgloss.NewStyle().Bold(true),
			subtitle:    lipgloss.NewStyle().Bold(true),
			question:    lipgloss.NewStyle().Bold(true),
			input:       lipgloss.NewStyle(),
			placeholder: lipgloss.NewStyle().Faint(true),
			choice:      lipgloss.NewStyle().Padding(0, 1),
			choiceOn:    lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true),
			help:        lipgloss.NewStyle().Faint(true),
			key:         lipgloss.NewStyle().Bold(true),
			prefix:      ">",
		}
	}

	accent := lipgloss.Color("#58d4ff")
	muted := lipgloss.Color("#9fb3c8")

	return promptTheme{
		color:       true,
		accentColor: accent,
		title:       lipgloss.NewStyle().Foreground(accent).Bold(true),
		subtitle:    lipgloss.NewStyle().Foreground(accent).Faint(true),
		question:    lipgloss.NewStyle().Bold(true),
		input:       lipgloss.NewStyle().Foreground(accent).Bold(true),
		placeholder: lipgloss.NewStyle().Foreground(muted),
		choice:      lipgloss.NewStyle().Padding(0, 1).Foreground(muted),
		choiceOn:    lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#0b1215")).Background(accent).Bold(true),
		help:        lipgloss.NewStyle().Faint(true),
		key:         lipgloss.NewStyle().Foreground(accent).Bold(true),
		prefix:      lipgloss.NewStyle().Foreground(accent).Render("❯"),
	}
}

func (t promptTheme) keyCap(k string) string {
	return t.key.Render(k)
}

type promptKind int

const (
	promptAsk promptKind = iota
	promptConfirm
)

type promptModel struct {
	theme   promptTheme
	version string
	kind    promptKind

	question     string
	defaultValue string
	input        []rune
	yes          bool

	answer    string
	done      bool
	cancelled bool
}

func newAskModel(question, defaultValue, version string, theme promptTheme) *promptModel {
	return &promptModel{
		theme:        theme,
		version:      version,
		kind:         promptAsk,
		question:     question,
		defaultValue: defaultValue,
	}
}

func newConfirmModel(question string, defaultYes bool, version string, theme promptTheme) *promptModel {
	return &promptModel{
		theme:    theme,
		version:  version,
		kind:     promptConfirm,
		question: question,
		yes:      defaultYes,
	}
}

func (m *promptModel) Init() tea.Cmd {
	return nil
}

func (m *promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.cancelled = true
		m.done = true
		return m, tea.Quit
	case tea.KeyEnter:
		m.finish()
		return m, tea.Quit
	}
	if m.kind == promptConfirm {
		return m.updateConfirm(key)
	}
	return m.updateAsk(key)
}

func (m *promptModel) updateAsk(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyRunes:
		m.input = append(m.input, key.Runes...)
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyCtrlU:
		m.input = nil
	case tea.KeyTab:
		if len(m.input) == 0 {
			m.input = []rune(m.defaultValue)
		}
	}
	return m, nil
}

func (m *promptModel) updateConfirm(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(key.String()) {
	case "left", "right", "tab", "h", "l":
		m.yes = !m.yes
	case "y":
		m.yes = true
		m.finish()
		return m, tea.Quit
	case "n":
		m.yes = false
		m.finish()
		return m, tea.Quit
	}
	return m, nil
}

func (m *promptModel) finish() {
	if m.kind == promptAsk {
		m.answer = strings.TrimSpace(string(m.input))
		if m.answer == "" {
			m.answer = m.defaultValue
		}
	}
	m.done = true
}

func (m *promptModel) View() string {
	if m.done {
		return ""
	}
	center := lipgloss.NewStyle().Width(promptInnerWidth).Align(lipgloss.Center)

	body := []string{m.theme.question.Render(m.question), ""}
	var help string
	if m.kind == promptConfirm {
		yes, no := m.theme.choice, m.theme.choice
		if m.yes {
			yes = m.theme.choiceOn
		} else {
			no = m.theme.choiceOn
		}
		body = append(body, fmt.Sprintf("%s %s %s", m.theme.prefix, yes.Render("Yes"), no.Render("No")))
		help = fmt.Sprintf("Press %s or %s, or use ←/→ and Enter. Esc cancels.", m.theme.keyCap("y"), m.theme.keyCap("n"))
	} else {
		field := m.theme.input.Render(string(m.input))
		if len(m.input) == 0 {
			field = m.theme.placeholder.Render(m.defaultValue)
		}
		body = append(body, fmt.Sprintf("%s %s", m.theme.prefix, field))
		help = fmt.Sprintf("Enter accepts; %s fills the suggestion; Esc cancels.", m.theme.keyCap("Tab"))
		if m.defaultValue == "" {
			help = "Enter accepts; Esc cancels."
		}
	}
	body = append(body, "", m.theme.help.Render(help))

	rows := []string{
		center.Render(m.theme.title.Render("devshell " + m.version)),
		center.Render(m.theme.subtitle.Render("Host setup")),
		"",
		lipgloss.JoinVertical(lipgloss.Left, body...),
	}
	content := lipgloss.JoinVertical(lipgloss.Left, rows...)
	lines := strings.Split(content, "\n")

	card := make([]string, 0, len(lines)+2)
	card = append(card, m.renderBorderLine("╭", "╮"))
	for _, line := range lines {
		card = append(card, m.renderContentLine(line))
	}
	card = append(card, m.renderBorderLine("╰", "╯"))
	return "\n" + strings.Join(card, "\n") + "\n"
}

func (m *promptModel) renderBorderLine(left, right string) string {
	line := left + strings.Repeat("─", promptCardWidth) + right
	if m.theme.color && m.theme.accentColor != "" {
		return lipgloss.NewStyle().Foreground(m.theme.accentColor).Render(line)
	}
	return line
}

func (m *promptModel) renderContentLine(inner string) string {
	if width := lipgloss.Width(inner); width < promptInnerWidth {
		inner += strings.Repeat(" ", promptInnerWidth-width)
	}
	border := "│"
	if m.theme.color && m.theme.accentColor != "" {
		border = lipgloss.NewStyle().Foreground(m.theme.accentColor).Render("│")
	}
	return border + "  " + inner + "  " + border
}

func canUseBubbleTea(in io.Reader, out io.Writer) bool {
	type fd interface {
		Fd() uintptr
	}
	_, okIn := in.(fd)
	_, okOut := out.(fd)
	return okIn && okOut
}
