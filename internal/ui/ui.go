// Package ui provides the small terminal prompts the CLI is built from: a
// filterable list picker, a line input, a yes/no confirm and a password
// prompt. Prompts draw on stderr so stdout stays clean for piping.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user backs out of a prompt.
var ErrCancelled = errors.New("selection cancelled")

// Interactive reports whether stdin and stderr are terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// Select presents items and returns the chosen index.
func Select(prompt string, items []Item) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}
	if !Interactive() {
		return -1, fmt.Errorf("selection needs a terminal")
	}

	width, height := 80, 20
	if w, h, err := term.GetSize(int(os.Stderr.Fd())); err == nil {
		width, height = w, h*2/3
	}

	final, err := tea.NewProgram(newSelectModel(prompt, items, width, height), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return -1, fmt.Errorf("running picker: %w", err)
	}
	m := final.(selectModel)
	if m.chosen < 0 {
		return -1, ErrCancelled
	}
	return m.chosen, nil
}

// SelectStrings is Select over plain labels.
func SelectStrings(prompt string, labels []string) (int, error) {
	items := make([]Item, len(labels))
	for i, l := range labels {
		items[i] = Item{Label: l}
	}
	return Select(prompt, items)
}

// Confirm asks a yes/no question.
func Confirm(prompt string) (bool, error) {
	idx, err := SelectStrings(prompt, []string{"Yes", "No"})
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

// Input prompts for one line of text. Without a terminal it reads a line
// from stdin so commands can be scripted.
func Input(prompt, placeholder string) (string, error) {
	if !Interactive() {
		return readLine(os.Stdin)
	}

	final, err := tea.NewProgram(newInputModel(prompt, placeholder), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return "", fmt.Errorf("running prompt: %w", err)
	}
	m := final.(inputModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return strings.TrimSpace(m.input.Value()), nil
}

// Password prompts for a secret without echoing it.
func Password(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}

	fmt.Fprint(os.Stderr, Prompt.Render(prompt+": "))
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
