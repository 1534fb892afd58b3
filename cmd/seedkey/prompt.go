package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errNotInteractive = errors.New("no terminal available for prompt")

type prompter interface {
	Interactive() bool
	Password(label string) ([]byte, error)
	Confirm(label string, def bool) (bool, error)
}

type terminalPrompter struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

func newTerminalPrompter(in *os.File, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *terminalPrompter) Interactive() bool {
	return p.in != nil && term.IsTerminal(int(p.in.Fd()))
}

// Password reads a line without echo.
func (p *terminalPrompter) Password(label string) ([]byte, error) {
	if !p.Interactive() {
		return nil, errNotInteractive
	}
	if _, err := fmt.Fprint(p.out, label); err != nil {
		return nil, err
	}
	pw, err := term.ReadPassword(int(p.in.Fd()))
	if _, werr := fmt.Fprintln(p.out); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func (p *terminalPrompter) Confirm(label string, def bool) (bool, error) {
	if !p.Interactive() {
		return false, errNotInteractive
	}
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	if _, err := fmt.Fprintf(p.out, "%s [%s] ", label, hint); err != nil {
		return false, err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return parseYesNo(line, def), nil
}

func parseYesNo(line string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}
