// Package credentials supplies the passwords that unlock node keys.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptyPassword is returned when the operator enters an empty password.
var ErrEmptyPassword = errors.New("password is empty")

// Provider returns the password bound to an account.
type Provider interface {
	Password(account string) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(account string) (string, error)

func (f ProviderFunc) Password(account string) (string, error) { return f(account) }

// Static serves fixed passwords, falling back to Default for accounts that
// are not listed.
type Static struct {
	Passwords map[string]string
	Default   string
}

func (s Static) Password(account string) (string, error) {
	if pw, ok := s.Passwords[account]; ok {
		return pw, nil
	}
	if s.Default == "" {
		return "", fmt.Errorf("no password configured for account %q", account)
	}
	return s.Default, nil
}

// Terminal prompts the operator. Echo is disabled when In is a terminal;
// otherwise one line is read from In, which lets passwords be piped in.
type Terminal struct {
	In  *os.File
	Out io.Writer

	reader *bufio.Reader
}

// NewTerminal returns a Terminal prompting on stderr and reading stdin.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

func (t *Terminal) Password(account string) (string, error) {
	fmt.Fprintf(t.Out, "Please enter a password for the account=%s: \n", account)

	fd := int(t.In.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(t.Out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return checkPassword(string(pw))
	}

	// Stdin is piped: read one line without prompting twice.
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return checkPassword(strings.TrimRight(line, "\r\n"))
}

func checkPassword(pw string) (string, error) {
	if pw == "" {
		return "", ErrEmptyPassword
	}
	return pw, nil
}
