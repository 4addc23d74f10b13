package runner

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeKeys(m *promptModel, msgs ...tea.KeyMsg) *promptModel {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(*promptModel)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestAskModelDefaultOnEnter(t *testing.T) {
	m := newAskModel("Container socket path?", "/var/run/docker.sock", "v0.0.0", newPromptTheme(false))
	m = typeKeys(m, tea.KeyMsg{Type: tea.KeyEnter})

	if !m.done || m.cancelled {
		t.Fatalf("model should finish without cancelling")
	}
	if m.answer != "/var/run/docker.sock" {
		t.Fatalf("answer = %q, want default", m.answer)
	}
}

func TestAskModelTypedAnswer(t *testing.T) {
	m := newAskModel("External IP address?", "10.0.0.5", "v0.0.0", newPromptTheme(false))
	m = typeKeys(m,
		runes("192.168.1.2"),
		runes("x"),
		tea.KeyMsg{Type: tea.KeyBackspace},
		runes("0"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	if m.answer != "192.168.1.20" {
		t.Fatalf("answer = %q, want 192.168.1.20", m.answer)
	}
}

func TestAskModelTabFillsSuggestion(t *testing.T) {
	m := newAskModel("SSH keys directory?", "/home/dev/.ssh", "v0.0.0", newPromptTheme(false))
	m = typeKeys(m, tea.KeyMsg{Type: tea.KeyTab}, runes("2"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.answer != "/home/dev/.ssh2" {
		t.Fatalf("answer = %q", m.answer)
	}
}

func TestPromptModelEscCancels(t *testing.T) {
	m := newAskModel("Question?", "x", "v0.0.0", newPromptTheme(false))
	m = typeKeys(m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.cancelled || !m.done {
		t.Fatalf("esc should cancel: %+v", m)
	}
}

func TestConfirmModelKeys(t *testing.T) {
	tests := []struct {
		name       string
		defaultYes bool
		keys       []tea.KeyMsg
		want       bool
	}{
		{name: "enter keeps default yes", defaultYes: true, keys: []tea.KeyMsg{{Type: tea.KeyEnter}}, want: true},
		{name: "enter keeps default no", defaultYes: false, keys: []tea.KeyMsg{{Type: tea.KeyEnter}}, want: false},
		{name: "n answers no", defaultYes: true, keys: []tea.KeyMsg{runes("n")}, want: false},
		{name: "y answers yes", defaultYes: false, keys: []tea.KeyMsg{runes("y")}, want: true},
		{name: "arrow toggles", defaultYes: true, keys: []tea.KeyMsg{{Type: tea.KeyRight}, {Type: tea.KeyEnter}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newConfirmModel("Choose a different address?", tt.defaultYes, "v0.0.0", newPromptTheme(false))
			m = typeKeys(m, tt.keys...)
			if !m.done {
				t.Fatalf("model not finished")
			}
			if m.yes != tt.want {
				t.Fatalf("yes = %v, want %v", m.yes, tt.want)
			}
		})
	}
}

func TestPromptModelViewFitsCard(t *testing.T) {
	for _, color := range []bool{false, true} {
		m := newAskModel("Container socket path?", "/var/run/docker.sock", "v1.2.3", newPromptTheme(color))
		view := m.View()
		if !strings.Contains(view, "devshell v1.2.3") {
			t.Fatalf("view missing title:\n%s", view)
		}
		if !strings.Contains(view, "/var/run/docker.sock") {
			t.Fatalf("view missing default value:\n%s", view)
		}
		if color {
			continue
		}
		for _, line := range strings.Split(strings.Trim(view, "\n"), "\n") {
			if w := len([]rune(line)); w != promptCardWidth+2 {
				t.Fatalf("line %q has width %d, want %d", line, w, promptCardWidth+2)
			}
		}
	}
}
