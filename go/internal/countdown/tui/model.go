// Package tui renders a running countdown in the terminal.
package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mcdev12/countdown/go/internal/countdown"
	"github.com/mcdev12/countdown/go/internal/countdown/render"
)

// Feed hands engine updates to the program. It holds only the latest value,
// so a slow terminal never blocks the engine.
type Feed struct {
	ch   chan countdown.RemainingTime
	done chan struct{}
	once sync.Once
}

func NewFeed() *Feed {
	return &Feed{
		ch:   make(chan countdown.RemainingTime, 1),
		done: make(chan struct{}),
	}
}

// Close releases any command still waiting for an update. It is safe to call
// more than once.
func (f *Feed) Close() {
	f.once.Do(func() { close(f.done) })
}

// Publish is the engine subscriber. It replaces any value not yet consumed.
func (f *Feed) Publish(rt countdown.RemainingTime) {
	for {
		select {
		case f.ch <- rt:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// updateMsg carries one published RemainingTime.
type updateMsg countdown.RemainingTime

// InvalidMsg reports a rejected reconfiguration.
type InvalidMsg struct {
	Raw string
	Err error
}

func waitForUpdate(f *Feed) tea.Cmd {
	return func() tea.Msg {
		select {
		case rt := <-f.ch:
			return updateMsg(rt)
		case <-f.done:
			return nil
		}
	}
}

type keyMap struct {
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

type styles struct {
	title    lipgloss.Style
	box      lipgloss.Style
	value    lipgloss.Style
	label    lipgloss.Style
	complete lipgloss.Style
	invalid  lipgloss.Style
	help     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true).
			MarginBottom(1),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 2).
			MarginRight(1).
			Align(lipgloss.Center),
		value: lipgloss.NewStyle().Bold(true),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		complete: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Foreground(lipgloss.Color("#10B981")).
			Bold(true).
			Padding(0, 2),
		invalid: lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).MarginTop(1),
	}
}

// Model is the bubbletea model for a single countdown.
type Model struct {
	engine       *countdown.Engine
	feed         *Feed
	keys         keyMap
	styles       styles
	completeText string

	latest   countdown.RemainingTime
	received bool
	invalid  string
	quitting bool
}

// New builds a model around an engine whose subscriber is feed.Publish. The
// engine is started by Init and stopped when the user quits.
func New(engine *countdown.Engine, feed *Feed, completeText string) Model {
	if completeText == "" {
		completeText = render.DefaultCompleteText
	}
	return Model{
		engine:       engine,
		feed:         feed,
		keys:         defaultKeyMap(),
		styles:       defaultStyles(),
		completeText: completeText,
	}
}

func (m Model) Init() tea.Cmd {
	m.engine.Start()
	return waitForUpdate(m.feed)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.engine.Stop()
			m.feed.Close()
			m.quitting = true
			return m, tea.Quit
		}

	case updateMsg:
		m.latest = countdown.RemainingTime(msg)
		m.received = true
		m.invalid = ""
		return m, waitForUpdate(m.feed)

	case InvalidMsg:
		m.invalid = msg.Raw
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.styles.title.Render("Countdown to " + m.engine.Target().String()))
	sb.WriteString("\n")

	switch {
	case m.invalid != "":
		sb.WriteString(m.styles.invalid.Render("Invalid date: " + m.invalid))
	case !m.received:
		sb.WriteString(m.styles.label.Render("Starting..."))
	case m.latest.IsComplete:
		sb.WriteString(m.styles.complete.Render(m.completeText))
	default:
		fields := render.Fields(m.latest, m.engine.Config().ShowSeconds)
		boxes := make([]string, 0, len(fields))
		for _, f := range fields {
			boxes = append(boxes, m.styles.box.Render(
				m.styles.value.Render(f.Value)+"\n"+m.styles.label.Render(f.Label)))
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}

	sb.WriteString("\n")
	help := m.keys.Quit.Help()
	sb.WriteString(m.styles.help.Render(help.Key + " " + help.Desc))
	return sb.String()
}
