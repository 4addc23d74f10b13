package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type terminalPrompter struct {
	in          *bufio.Reader
	out         io.Writer
	color       bool
	accentColor string
	introShown  bool
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	p := &terminalPrompter{
		in:          bufio.NewReader(in),
		out:         out,
		color:       supportsColor(out),
		accentColor: "\033[38;5;45m",
	}
	return p
}

// Ask prints question with defaultValue in brackets and returns the trimmed
// answer, or defaultValue for an empty line or end of input.
func (p *terminalPrompter) Ask(ctx context.Context, question, defaultValue string) (string, error) {
	if err := p.renderIntro(); err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("%s %s ", p.promptArrow(), p.bold(question))
	if defaultValue != "" {
		prompt += p.muted("["+defaultValue+"]") + " "
	}
	if _, err := fmt.Fprint(p.out, prompt); err != nil {
		return "", err
	}
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}

func (p *terminalPrompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	if err := p.renderIntro(); err != nil {
		return false, err
	}
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	prompt := fmt.Sprintf("%s %s %s ", p.promptArrow(), p.bold(question), p.muted(hint))

	for {
		if _, err := fmt.Fprint(p.out, prompt); err != nil {
			return false, err
		}
		line, err := p.readLine()
		if err != nil {
			return false, err
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			if _, err := fmt.Fprintf(p.out, "%s Please respond with %s or %s.\n", p.muted("•"), p.bold("y"), p.bold("n")); err != nil {
				return false, err
			}
		}
	}
}

func (p *terminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// renderIntro prints the header once per session, before the first question.
func (p *terminalPrompter) renderIntro() error {
	if p.introShown {
		return nil
	}
	p.introShown = true
	lines := []string{
		"",
		fmt.Sprintf("%s %s", p.accent("╭"), p.bold("devshell host setup")),
		fmt.Sprintf("│ %s", p.muted("Press Enter to accept the suggested value.")),
		p.accent("╰──────────────────────────────────────"),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
	}
	return nil
}

func (p *terminalPrompter) accent(text string) string {
	return p.wrap(p.accentColor, text)
}

func (p *terminalPrompter) bold(text string) string {
	return p.wrap("\033[1m", text)
}

func (p *terminalPrompter) muted(text string) string {
	return p.wrap("\033[2m", text)
}

func (p *terminalPrompter) promptArrow() string {
	if p.color {
		return p.accent("›")
	}
	return ">"
}

func (p *terminalPrompter) wrap(code, text string) string {
	if !p.color || code == "" {
		return text
	}
	return code + text + "\033[0m"
}

func supportsColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	type fd interface {
		Fd() uintptr
	}
	f, ok := w.(fd)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
