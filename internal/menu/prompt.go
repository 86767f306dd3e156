package menu

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// ErrQuit is returned by PromptCredentials when the user chooses to quit.
var ErrQuit = errors.New("quit")

// Credentials identify the device to connect to and the user to authenticate as.
type Credentials struct {
	Host     string
	Username string
	Password string
}

// PasswordReader reads a password without echoing it.
type PasswordReader func() ([]byte, error)

// PromptCredentials asks for the device address and username until valid values are
// entered, then for the password. Values already present in defaults are not asked for.
func PromptCredentials(in io.Reader, out io.Writer, readPassword PasswordReader, defaults Credentials) (*Credentials, error) {
	scanner := bufio.NewScanner(in)
	creds := defaults

	ask := func(text string) (string, error) {
		_, _ = fmt.Fprint(out, text)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", ErrQuit
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	for creds.Host == "" {
		answer, err := ask(fmt.Sprintf("NETCONF server IP address (%s - quit): ", QuitKey))
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(answer, QuitKey) {
			return nil, ErrQuit
		}
		if net.ParseIP(answer) == nil {
			_, _ = fmt.Fprintf(out, "Error: %q is not a valid IP address\n", answer)
			continue
		}
		creds.Host = answer
	}

	for creds.Username == "" {
		answer, err := ask("Username: ")
		if err != nil {
			return nil, err
		}
		if answer == "" {
			_, _ = fmt.Fprintln(out, "Error: the username must not be empty")
			continue
		}
		creds.Username = answer
	}

	if creds.Password == "" {
		_, _ = fmt.Fprint(out, "Password: ")
		pw, err := readPassword()
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read password")
		}
		creds.Password = string(pw)
	}
	return &creds, nil
}
