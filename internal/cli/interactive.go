package cli

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apresai/mulmoprep/internal/script"
)

// menuItem represents a single configurable option in the wizard.
type menuItem struct {
	label   string
	value   string
	options []menuOption
	editing bool
	cursor  int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

// menuState tracks which phase the wizard is in.
type menuState int

const (
	stateMenu menuState = iota
	stateEditing
	stateTagPicker
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	menuLabelStyle = lipgloss.NewStyle().
			Width(12).
			Align(lipgloss.Right).
			MarginRight(2)

	menuValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	menuValueDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)
)

const (
	idxProfile = 0
	idxSection = 1
	idxTags    = 2
	idxOutput  = 3
	idxRun     = 4
)

// wizardChoices is what the wizard hands back to the process command.
type wizardChoices struct {
	Profile string
	Section string
	Tags    []string
	Output  string
}

var errWizardCancelled = errors.New("cancelled")

type wizardModel struct {
	title     string
	items     []menuItem
	tags      []string
	selected  map[string]bool
	tagCursor int
	cursor    int
	state     menuState
	confirmed bool
	cancelled bool
}

func newWizardModel(s *script.Script, initial wizardChoices) wizardModel {
	profiles := make([]menuOption, 0)
	for _, p := range script.ListProfiles(s) {
		label := p.Name
		if p.DisplayName != "" {
			label += " - " + p.DisplayName
		}
		label += fmt.Sprintf(" (%d beats", p.BeatCount)
		if p.SkippedCount > 0 {
			label += fmt.Sprintf(", %d skipped", p.SkippedCount)
		}
		label += ")"
		profiles = append(profiles, menuOption{label: label, value: p.Name})
	}

	sections := []menuOption{{label: "All sections", value: ""}}
	for _, sec := range script.Sections(s) {
		sections = append(sections, menuOption{label: sec, value: sec})
	}

	profile := initial.Profile
	if profile == "" {
		profile = script.DefaultProfile
	}

	m := wizardModel{
		title: s.TitleOrDefault(),
		items: []menuItem{
			{label: "Profile", value: profile, options: profiles},
			{label: "Section", value: initial.Section, options: sections},
			{label: "Tags", value: strings.Join(initial.Tags, ", ")},
			{label: "Output", value: initial.Output},
			{label: ">>> Process <<<"},
		},
		tags:     script.Tags(s),
		selected: map[string]bool{},
	}
	for _, t := range initial.Tags {
		m.selected[t] = true
	}
	for i := range m.items {
		for j, opt := range m.items[i].options {
			if opt.value == m.items[i].value {
				m.items[i].cursor = j
				break
			}
		}
	}
	return m
}

func (m wizardModel) choices() wizardChoices {
	c := wizardChoices{
		Profile: m.items[idxProfile].value,
		Section: m.items[idxSection].value,
		Output:  strings.TrimSpace(m.items[idxOutput].value),
	}
	for _, t := range m.tags {
		if m.selected[t] {
			c.Tags = append(c.Tags, t)
		}
	}
	return c
}

func (m wizardModel) Init() tea.Cmd {
	return nil
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch m.state {
	case stateEditing:
		return m.updateEditing(key)
	case stateTagPicker:
		return m.updateTagPicker(key)
	default:
		return m.updateMenu(key)
	}
}

func (m wizardModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "enter", " ":
		switch {
		case m.cursor == idxRun:
			m.confirmed = true
			return m, tea.Quit
		case m.cursor == idxTags:
			if len(m.tags) > 0 {
				m.state = stateTagPicker
				m.tagCursor = 0
			}
		default:
			m.state = stateEditing
			m.items[m.cursor].editing = true
		}
	}
	return m, nil
}

func (m wizardModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := &m.items[m.cursor]

	if m.cursor == idxOutput {
		switch msg.String() {
		case "enter":
			item.editing = false
			m.state = stateMenu
			m.cursor++
		case "esc":
			item.editing = false
			m.state = stateMenu
		case "backspace":
			if r := []rune(item.value); len(r) > 0 {
				item.value = string(r[:len(r)-1])
			}
		case "ctrl+u":
			item.value = ""
		default:
			if msg.Type == tea.KeyRunes {
				item.value += string(msg.Runes)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter", " ":
		if item.cursor >= 0 && item.cursor < len(item.options) {
			item.value = item.options[item.cursor].value
		}
		item.editing = false
		m.state = stateMenu
		m.cursor++

	case "esc":
		item.editing = false
		m.state = stateMenu

	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}

	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

func (m wizardModel) updateTagPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.items[idxTags].value = strings.Join(m.choices().Tags, ", ")
		m.state = stateMenu
		m.cursor++

	case "esc":
		m.state = stateMenu

	case " ", "x":
		tag := m.tags[m.tagCursor]
		m.selected[tag] = !m.selected[tag]

	case "up", "k":
		if m.tagCursor > 0 {
			m.tagCursor--
		}

	case "down", "j":
		if m.tagCursor < len(m.tags)-1 {
			m.tagCursor++
		}
	}
	return m, nil
}

func (m wizardModel) View() string {
	var b strings.Builder

	b.WriteString(headerBorder.Render(titleStyle.Render("Process: " + m.title)))
	b.WriteString("\n")

	for i, item := range m.items {
		isActive := m.cursor == i

		if i == idxRun {
			b.WriteString("\n")
			if isActive {
				b.WriteString("  " + buttonStyle.Render(" Process "))
			} else {
				b.WriteString("  " + buttonDimStyle.Render(" Process "))
			}
			b.WriteString("\n")
			continue
		}

		cursor := "  "
		if isActive {
			cursor = cursorStyle.Render("> ")
		}

		var value string
		switch {
		case item.editing && i == idxOutput:
			value = menuValueStyle.Render(item.value + "_")
		case item.value == "":
			placeholder := "(none)"
			switch i {
			case idxSection:
				placeholder = "(all sections)"
			case idxOutput:
				placeholder = "(stdout)"
			}
			value = menuValueDimStyle.Render(placeholder)
		default:
			display := item.value
			for _, opt := range item.options {
				if opt.value == item.value {
					display = opt.label
					break
				}
			}
			value = menuValueStyle.Render(display)
		}
		b.WriteString(cursor + menuLabelStyle.Render(item.label) + " " + value + "\n")

		if item.editing && len(item.options) > 0 {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	if m.state == stateTagPicker {
		b.WriteString("\n")
		for j, tag := range m.tags {
			checked := " "
			if m.selected[tag] {
				checked = "x"
			}
			prefix := "  "
			if j == m.tagCursor {
				prefix = cursorStyle.Render("> ")
			}
			b.WriteString(fmt.Sprintf("  %s[%s] %s\n", prefix, checked, tag))
		}
	}

	switch m.state {
	case stateMenu:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit | q to quit"))
	case stateEditing:
		if m.cursor == idxOutput {
			b.WriteString(helpStyle.Render("  type a path or s3:// URL | enter to confirm | esc to cancel | ctrl+u to clear"))
		} else {
			b.WriteString(helpStyle.Render("  j/k or arrows to pick | enter to select | esc to cancel"))
		}
	case stateTagPicker:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | space to toggle | enter to confirm | esc to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

// runWizard lets the user pick profile, filters and output for s.
func runWizard(s *script.Script, initial wizardChoices) (wizardChoices, error) {
	p := tea.NewProgram(newWizardModel(s, initial), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return wizardChoices{}, fmt.Errorf("TUI error: %w", err)
	}

	final := result.(wizardModel)
	if final.cancelled || !final.confirmed {
		return wizardChoices{}, errWizardCancelled
	}
	return final.choices(), nil
}
