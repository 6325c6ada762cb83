package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const composePrompt = "> "

// composeMessage reads the message from stdin. A terminal gets line editing
// and the message ends at the first empty line; piped input is read whole.
func composeMessage() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return readMessage(os.Stdin)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:                 composePrompt,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		// Fall back to plain input when the terminal cannot be set up.
		return readMessage(os.Stdin)
	}
	defer rl.Close()

	fmt.Fprintln(os.Stderr, "Type your message, finish with an empty line:")

	var lines []string
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return "", context.Canceled
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read message: %w", err)
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// readMessage returns everything r holds without the trailing newlines.
func readMessage(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
