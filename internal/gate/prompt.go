package gate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// ConsolePrompter shows the script on a terminal and reads a y/N answer.
// A single goroutine owns the reader so that a prompt can be abandoned when
// its context ends without losing the next answer.
type ConsolePrompter struct {
	Reader *bufio.Reader
	Writer io.Writer
	// Plain skips styling and syntax highlighting.
	Plain bool

	once   sync.Once
	lines  chan lineResult
	closed bool
}

type lineResult struct {
	line string
	err  error
}

// NewConsolePrompter reads from stdin and writes to stdout.
func NewConsolePrompter(plain bool) *ConsolePrompter {
	return &ConsolePrompter{
		Reader: bufio.NewReader(os.Stdin),
		Writer: os.Stdout,
		Plain:  plain,
	}
}

// Confirm implements Prompter. Only "y" or "yes" approves; end of input
// declines. If ctx ends first, Confirm returns ctx's error. Calls must not
// overlap.
func (p *ConsolePrompter) Confirm(ctx context.Context, req Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintln(p.Writer, p.render(req))
	fmt.Fprint(p.Writer, "Execute this script? [y/N]: ")

	if p.closed {
		fmt.Fprintln(p.Writer)
		return false, nil
	}
	p.startReader()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.Writer)
		return false, ctx.Err()
	case r, ok := <-p.lines:
		if !ok {
			p.closed = true
			fmt.Fprintln(p.Writer)
			return false, nil
		}
		if r.err != nil {
			p.closed = true
			if !errors.Is(r.err, io.EOF) {
				return false, r.err
			}
			if r.line == "" {
				fmt.Fprintln(p.Writer)
			}
		}
		return IsApproval(r.line), nil
	}
}

func (p *ConsolePrompter) startReader() {
	p.once.Do(func() {
		p.lines = make(chan lineResult, 1)
		go func() {
			defer close(p.lines)
			for {
				line, err := p.Reader.ReadString('\n')
				p.lines <- lineResult{line: line, err: err}
				if err != nil {
					return
				}
			}
		}()
	})
}

// IsApproval reports whether answer approves execution.
func IsApproval(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (p *ConsolePrompter) render(req Request) string {
	header := fmt.Sprintf("Bundle %s\nTarget %s", req.Label, req.Dir)
	if p.Plain {
		rule := strings.Repeat("-", 60)
		return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", rule, header, rule, req.Script, rule)
	}

	body := highlight(req.Script)
	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Approval required"),
		dimStyle.Render(header),
		"",
		body,
	)
	return frameStyle.Render(content)
}

// highlight colours the script as PowerShell. Every byte of the script is
// kept; the raw text is returned if the lexer fails.
func highlight(script string) string {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, script, "powershell", "terminal256", "monokai"); err != nil {
		return script
	}
	return strings.TrimRight(buf.String(), "\n")
}
