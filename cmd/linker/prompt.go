package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from the terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd())
	}
	return p
}

func (p *prompter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// ask prints question and returns the trimmed answer, or def when the answer is empty.
func (p *prompter) ask(question, def string) (string, error) {
	if def != "" {
		p.printf("%s [%s]: ", question, def)
	} else {
		p.printf("%s: ", question)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// secret reads a line without echo when attached to a terminal.
func (p *prompter) secret(question string) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.ask(question, "")
	}
	p.printf("%s: ", question)
	b, err := term.ReadPassword(p.fd)
	p.printf("\n")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.ask(question+" (y/n)", "y")
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToLower(answer), "y"), nil
}
