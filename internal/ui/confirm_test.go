package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fenilsonani/media-dedup/internal/cleaner"
)

func TestLineConfirmer(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      bool
		wantErr   error
		reprompts int
	}{
		{"yes", "yes\n", true, nil, 0},
		{"no", "no\n", false, nil, 0},
		{"crlf", "yes\r\n", true, nil, 0},
		{"yes without newline", "yes", true, nil, 0},
		{"re-prompt until valid", "y\nYES\nmaybe\nno\n", false, nil, 3},
		{"empty line re-prompts", "\nyes\n", true, nil, 1},
		{"eof aborts", "", false, cleaner.ErrPromptAborted, 0},
		{"eof after invalid", "Yes\n", false, cleaner.ErrPromptAborted, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewLineConfirmer(strings.NewReader(tt.input), &out)

			got, err := c.Confirm("Delete 2 duplicates?")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Confirm() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}

			if n := strings.Count(out.String(), "Please answer yes or no."); n != tt.reprompts {
				t.Errorf("re-prompted %d times, want %d\n%s", n, tt.reprompts, out.String())
			}
			if !strings.HasPrefix(out.String(), "Delete 2 duplicates? [yes/no]: ") {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

// typeKeys feeds text and then enter to the model
func typeKeys(t *testing.T, m confirmModel, text string) (confirmModel, tea.Cmd) {
	t.Helper()

	if text != "" {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
		m = next.(confirmModel)
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(confirmModel), cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestConfirmModelAnswers(t *testing.T) {
	tests := []struct {
		text   string
		answer bool
	}{
		{"yes", true},
		{"no", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			m, cmd := typeKeys(t, newConfirmModel("Proceed?"), tt.text)

			if !m.answered || m.answer != tt.answer {
				t.Errorf("answered = %v, answer = %v", m.answered, m.answer)
			}
			if !isQuit(cmd) {
				t.Error("expected the program to quit after an answer")
			}
		})
	}
}

func TestConfirmModelRejectsOtherInput(t *testing.T) {
	for _, text := range []string{"y", "Yes", "NO", ""} {
		t.Run(text, func(t *testing.T) {
			m, cmd := typeKeys(t, newConfirmModel("Proceed?"), text)

			if m.answered {
				t.Errorf("%q accepted as an answer", text)
			}
			if !m.invalid {
				t.Error("expected invalid flag")
			}
			if m.input.Value() != "" {
				t.Errorf("input not reset: %q", m.input.Value())
			}
			if isQuit(cmd) {
				t.Error("program quit on invalid input")
			}
			if !strings.Contains(m.View(), "Please type yes or no.") {
				t.Error("View() does not show the error")
			}
		})
	}
}

func TestConfirmModelAbort(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		next, cmd := newConfirmModel("Proceed?").Update(tea.KeyMsg{Type: key})
		m := next.(confirmModel)

		if !m.aborted || m.answered {
			t.Errorf("key %v: aborted = %v, answered = %v", key, m.aborted, m.answered)
		}
		if !isQuit(cmd) {
			t.Errorf("key %v: expected quit", key)
		}
	}
}

func TestConfirmModelView(t *testing.T) {
	m := newConfirmModel("Move 3 duplicates to /trash?")

	view := m.View()
	if !strings.Contains(view, "Move 3 duplicates to /trash?") {
		t.Errorf("View() missing prompt:\n%s", view)
	}
	if !strings.Contains(view, "esc: abort") {
		t.Errorf("View() missing help:\n%s", view)
	}
}
