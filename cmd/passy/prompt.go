package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// readPassword reads without echo from a terminal, or one line from a
// pipe so scripts can feed passwords.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, prompt)

	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func readNewPassword() (string, error) {
	password, err := readPassword("New password: ")
	if err != nil {
		return "", err
	}
	confirm, err := readPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

func success(format string, args ...any) {
	fmt.Println(color.GreenString("✓ ") + fmt.Sprintf(format, args...))
}

func warn(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.YellowString("! ")+fmt.Sprintf(format, args...))
}
