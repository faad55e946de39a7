package vault

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/term"
)

// PasswordPrompt asks the user for a secret
type PasswordPrompt func(label string) (string, error)

// TerminalPrompt reads a password from stdin without echo. It fails when
// stdin is not a terminal.
func TerminalPrompt(out io.Writer) PasswordPrompt {
	return func(label string) (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("cannot prompt for %s: stdin is not a terminal", label)
		}

		fmt.Fprintf(out, "%s: ", label)
		pass, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(pass)), nil
	}
}

// CompleteCredentials fills in a missing password for a proxy URL that names
// a user but no password, e.g. http://alice@host:8080
func CompleteCredentials(raw string, prompt PasswordPrompt) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.User == nil {
		return raw, nil
	}
	if _, set := u.User.Password(); set {
		return raw, nil
	}

	pass, err := prompt(fmt.Sprintf("Password for %s@%s", u.User.Username(), u.Host))
	if err != nil {
		return "", err
	}
	u.User = url.UserPassword(u.User.Username(), pass)
	return u.String(), nil
}
