package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// ErrInvalidOperatorInput is returned when a menu choice or prompted value
// cannot be accepted.
var ErrInvalidOperatorInput = errors.New("invalid operator input")

// prompter reads operator answers line by line. Prompts go to out so stdout
// stays clean for reports.
type prompter struct {
	in      *bufio.Reader
	out     io.Writer
	colored bool
}

func newPrompter(in io.Reader, out io.Writer, colored bool) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, colored: colored}
}

// readLine returns the next line without its terminator. EOF after a partial
// line is not an error; EOF with nothing read is reported as io.EOF.
func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask prints "label [def]: " and returns the answer, or def when the answer
// is empty.
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	ans, err := p.readLine()
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if ans == "" {
		return def, nil
	}
	return ans, nil
}

// choose prints a numbered menu and returns the zero-based index picked.
// Anything other than a listed number is ErrInvalidOperatorInput.
func (p *prompter) choose(title string, options []string) (int, error) {
	fmt.Fprintln(p.out, title)
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	fmt.Fprint(p.out, "Choice: ")

	ans, err := p.readLine()
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	n, convErr := strconv.Atoi(ans)
	if convErr != nil || n < 1 || n > len(options) {
		return 0, fmt.Errorf("%w: %q is not one of 1-%d", ErrInvalidOperatorInput, ans, len(options))
	}
	return n - 1, nil
}

// confirm asks a yes/no question. Only "y" or "yes" (any case) confirm; an
// empty answer or EOF declines.
func (p *prompter) confirm(question string) (bool, error) {
	q := question + " (y/n): "
	if p.colored {
		q = color.New(color.FgYellow).Sprint(q)
	}
	fmt.Fprint(p.out, q)

	ans, err := p.readLine()
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
