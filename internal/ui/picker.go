package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/goveectl/internal/catalog"
)

// ErrPickerCancelled is returned when the user leaves the picker without
// choosing an effect
var ErrPickerCancelled = errors.New("no effect selected")

// effectItem adapts a catalog entry to the list component
type effectItem struct {
	entry catalog.EffectEntry
}

func (i effectItem) Title() string       { return i.entry.Name }
func (i effectItem) Description() string { return "index " + i.entry.Index.String() }
func (i effectItem) FilterValue() string { return i.entry.Name }

var pickerDocStyle = lipgloss.NewStyle().Margin(1, 2)

// PickerModel is a filterable list of a model's effects
type PickerModel struct {
	list     list.Model
	selected *catalog.EffectEntry
	quitting bool
}

// NewPickerModel builds a picker over the effects of d
func NewPickerModel(d *catalog.Descriptor) PickerModel {
	entries := d.Effects()
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = effectItem{entry: e}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(PrimaryColor).
		BorderLeftForeground(PrimaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(MutedColor).
		BorderLeftForeground(PrimaryColor)

	width, height := GetTerminalSize()
	l := list.New(items, delegate, width-4, height-2)
	l.Title = fmt.Sprintf("%s effects", d.Model)
	l.Styles.Title = l.Styles.Title.Background(PrimaryColor)

	return PickerModel{list: l}
}

// Init implements tea.Model
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Keys go to the filter input while the user is typing
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(effectItem); ok {
				entry := item.entry
				m.selected = &entry
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		h, v := pickerDocStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m PickerModel) View() string {
	if m.selected != nil || m.quitting {
		return ""
	}
	return pickerDocStyle.Render(m.list.View())
}

// Selected returns the chosen effect, if any
func (m PickerModel) Selected() (catalog.EffectEntry, bool) {
	if m.selected == nil {
		return catalog.EffectEntry{}, false
	}
	return *m.selected, true
}

// PickEffect runs the interactive picker on the terminal
func PickEffect(d *catalog.Descriptor) (catalog.EffectEntry, error) {
	if d.EffectCount() == 0 {
		return catalog.EffectEntry{}, fmt.Errorf("model %s has no effects: %w", d.Model, catalog.ErrUnknownEffect)
	}

	final, err := tea.NewProgram(NewPickerModel(d), tea.WithAltScreen()).Run()
	if err != nil {
		return catalog.EffectEntry{}, fmt.Errorf("effect picker failed: %w", err)
	}

	entry, ok := final.(PickerModel).Selected()
	if !ok {
		return catalog.EffectEntry{}, ErrPickerCancelled
	}
	return entry, nil
}
