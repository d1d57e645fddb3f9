// Package verify holds the two operator-driven review flows: per-file
// target speaker identification and cluster consistency verification. Both
// commit decisions per unit (one file, one cluster) so an interrupted run
// resumes at the first undecided unit.
package verify

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator a question and returns the answer line.
type Prompter interface {
	Ask(prompt string) (string, error)
}

// LinePrompter reads answers line by line, e.g. from stdin.
type LinePrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewLinePrompter creates a Prompter reading from in and echoing prompts
// to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{reader: bufio.NewReader(in), out: out}
}

var _ Prompter = (*LinePrompter)(nil)

// Ask prints the prompt and returns the trimmed answer.
func (p *LinePrompter) Ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
