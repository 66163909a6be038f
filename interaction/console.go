// Package interaction is the single interactive channel shared by the
// conversation loop and the confirmation gate.
//
// A Console is created once in main and handed to every component that needs
// to talk to the human. Line input and yes/no questions read from the same
// buffered reader, so typed-ahead input is never lost between the two.
package interaction

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/LTKSK/go-coding-agent/logging"
)

// Asker asks the human a yes/no question and blocks until it is answered.
type Asker interface {
	Ask(question string) bool
}

// AskerFunc adapts a function to the Asker interface.
type AskerFunc func(question string) bool

func (f AskerFunc) Ask(question string) bool {
	return f(question)
}

var (
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))
)

// Console is a line-oriented terminal channel.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewConsole wraps in and out. Both are required.
func NewConsole(in io.Reader, out io.Writer) *Console {
	if in == nil || out == nil {
		panic("interaction: NewConsole requires both an input and an output")
	}
	return &Console{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Out returns the writer the console prints to.
func (c *Console) Out() io.Writer {
	return c.out
}

// Printf writes formatted text to the console output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// ReadLine prints prompt and returns the next input line without its line
// terminator. At end of input it returns io.EOF; a final unterminated line is
// returned first.
func (c *Console) ReadLine(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prompt != "" {
		fmt.Fprint(c.out, promptStyle.Render(prompt))
	}
	return c.readLine()
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Ask prints question and waits for an answer. Only one question is ever
// outstanding; concurrent callers wait their turn. Any read failure counts as
// a denial.
func (c *Console) Ask(question string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.out, questionStyle.Render(question)+" (yes/no): ")
	answer, err := c.readLine()
	if err != nil {
		logging.Warn().Err(err).Msg("failed to read confirmation answer, treating as denial")
		fmt.Fprintln(c.out)
		return false
	}
	return IsAffirmative(answer)
}

// IsAffirmative reports whether answer grants permission: exactly "yes" or "y"
// after trimming whitespace, ignoring case.
func IsAffirmative(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "yes" || a == "y"
}
