package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fenilsonani/media-dedup/internal/cleaner"
	"github.com/fenilsonani/media-dedup/internal/ui/styles"
)

const (
	answerYes = "yes"
	answerNo  = "no"
)

// LineConfirmer reads "yes" or "no" lines from a reader. Any other line
// re-prompts; end of input aborts.
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineConfirmer creates a confirmer reading from in and prompting on out
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm implements cleaner.Confirmer
func (c *LineConfirmer) Confirm(prompt string) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s [yes/no]: ", prompt)

		line, err := c.in.ReadString('\n')
		answer := strings.TrimRight(line, "\r\n")

		switch answer {
		case answerYes:
			return true, nil
		case answerNo:
			return false, nil
		}

		if err != nil {
			fmt.Fprintln(c.out)
			if errors.Is(err, io.EOF) {
				return false, cleaner.ErrPromptAborted
			}
			return false, err
		}

		fmt.Fprintln(c.out, "Please answer yes or no.")
	}
}

// PromptConfirmer asks the question with an interactive text input.
// Ctrl+C or Esc aborts.
type PromptConfirmer struct {
	in  io.Reader
	out io.Writer
}

// NewPromptConfirmer creates a confirmer for a terminal
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: in, out: out}
}

// Confirm implements cleaner.Confirmer
func (c *PromptConfirmer) Confirm(prompt string) (bool, error) {
	p := tea.NewProgram(newConfirmModel(prompt), tea.WithInput(c.in), tea.WithOutput(c.out))

	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("error running prompt: %w", err)
	}

	m, ok := final.(confirmModel)
	if !ok || m.aborted || !m.answered {
		return false, cleaner.ErrPromptAborted
	}
	return m.answer, nil
}

// confirmModel is the bubbletea model behind PromptConfirmer
type confirmModel struct {
	prompt   string
	input    textinput.Model
	invalid  bool
	answered bool
	answer   bool
	aborted  bool
}

func newConfirmModel(prompt string) confirmModel {
	input := textinput.New()
	input.Placeholder = "yes / no"
	input.Prompt = "> "
	input.CharLimit = 16
	input.Focus()

	return confirmModel{prompt: prompt, input: input}
}

// Init starts the cursor blinking
func (m confirmModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses
func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			switch m.input.Value() {
			case answerYes:
				m.answered, m.answer = true, true
				return m, tea.Quit
			case answerNo:
				m.answered, m.answer = true, false
				return m, tea.Quit
			default:
				m.invalid = true
				m.input.Reset()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the question and the input line
func (m confirmModel) View() string {
	var b strings.Builder

	b.WriteString(styles.WarningStyle.Render(m.prompt))
	b.WriteString("\n")

	if m.answered {
		b.WriteString(styles.DimStyle.Render("> " + m.input.Value()))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.invalid {
		b.WriteString(styles.ErrorStyle.Render("Please type yes or no."))
		b.WriteString("\n")
	}
	b.WriteString(styles.HelpStyle.Render("enter: answer  esc: abort"))
	b.WriteString("\n")

	return b.String()
}
