package ui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// Item is one row of a picker.
type Item struct {
	Label  string
	Detail string
}

func (i Item) Title() string       { return i.Label }
func (i Item) Description() string { return i.Detail }
func (i Item) FilterValue() string { return i.Label }

type selectModel struct {
	list   list.Model
	chosen int
	done   bool
}

func newSelectModel(prompt string, items []Item, width, height int) selectModel {
	rows := make([]list.Item, len(items))
	hasDetail := false
	for i, it := range items {
		rows[i] = it
		if it.Detail != "" {
			hasDetail = true
		}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = hasDetail
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(Accent).BorderForeground(Accent)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.BorderForeground(Accent)

	l := list.New(rows, delegate, width, height)
	l.Title = prompt
	l.Styles.Title = Heading
	l.SetShowStatusBar(len(items) > 10)

	return selectModel{list: l, chosen: -1}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height*2/3)
		return m, nil

	case tea.KeyMsg:
		// While filtering, keys belong to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if _, ok := m.list.SelectedItem().(Item); ok {
				m.chosen = m.list.GlobalIndex()
			}
			m.done = true
			return m, tea.Quit
		case "esc", "q", "ctrl+c":
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectModel) View() string {
	if m.done {
		return ""
	}
	return m.list.View()
}
