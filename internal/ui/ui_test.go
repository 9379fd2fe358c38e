package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSelectModel(t *testing.T) {
	items := []Item{{Label: "The Matrix"}, {Label: "Breaking Bad"}, {Label: "Dune"}}
	var m tea.Model = newSelectModel("Pick", items, 80, 20)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should quit the program")
	}

	got := m.(selectModel)
	if got.chosen != 1 {
		t.Errorf("chosen = %d, want 1", got.chosen)
	}
	if got.View() != "" {
		t.Error("finished picker should render nothing")
	}
}

func TestSelectModelCancel(t *testing.T) {
	var m tea.Model = newSelectModel("Pick", []Item{{Label: "a"}}, 80, 20)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if got := m.(selectModel).chosen; got != -1 {
		t.Errorf("cancelled picker chose %d", got)
	}
}

func TestInputModel(t *testing.T) {
	var m tea.Model = newInputModel("Search", "title")
	for _, r := range "dune" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	got := m.(inputModel)
	if got.cancelled {
		t.Fatal("enter should not cancel")
	}
	if got.input.Value() != "dune" {
		t.Errorf("value = %q, want dune", got.input.Value())
	}

	m = newInputModel("Search", "")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !m.(inputModel).cancelled {
		t.Error("esc should cancel")
	}
}

func TestReadLine(t *testing.T) {
	got, err := readLine(strings.NewReader("secret123\nignored\n"))
	if err != nil || got != "secret123" {
		t.Errorf("readLine = %q, %v", got, err)
	}

	got, err = readLine(strings.NewReader("no newline"))
	if err != nil || got != "no newline" {
		t.Errorf("readLine = %q, %v", got, err)
	}

	if _, err := readLine(strings.NewReader("")); !errors.Is(err, ErrCancelled) {
		t.Errorf("empty input error = %v, want ErrCancelled", err)
	}
}

func TestStars(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "☆☆☆☆☆"},
		{3.5, "★★★½☆"},
		{5, "★★★★★"},
		{0.5, "½☆☆☆☆"},
	}
	for _, tt := range tests {
		if got := stars(tt.v); got != tt.want {
			t.Errorf("stars(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
