// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/parleyhq/parley/chat"
)

// RefreshMsg tells the model to re-read engine state. The notification
// stream wiring sends one after every reconciled event; local actions
// produce one when their transport call completes.
type RefreshMsg struct{}

// actionDoneMsg reports a completed engine action (send, retry,
// reaction). ok mirrors the engine's boolean result.
type actionDoneMsg struct {
	ok bool
}

// statusFadeMsg clears the transient status notice.
type statusFadeMsg struct{}

// FocusRegion identifies which pane has keyboard focus.
type FocusRegion int

const (
	// FocusMessages means navigation keys move the message cursor.
	FocusMessages FocusRegion = iota
	// FocusComposer means keystrokes go to the input line.
	FocusComposer
)

const (
	sidebarWidth = 24

	// defaultReaction is what the +/- bindings toggle. A reaction
	// picker is deliberately out of scope for the first cut.
	defaultReaction = "thumbs_up"

	// actionTimeout bounds each engine transport call driven from the
	// UI, so a hung gateway cannot wedge the command goroutine forever.
	actionTimeout = 15 * time.Second

	statusFadeDelay = 3 * time.Second
)

// Model is the bubbletea model for the chat UI. It owns no chat state:
// every Update re-reads conversations and messages from the engine.
type Model struct {
	engine *chat.Engine
	keys   KeyMap
	theme  Theme

	input textinput.Model

	width  int
	height int

	conversations []chat.ConversationKey
	active        int
	messages      []chat.Message
	selected      int // index into messages; -1 follows the newest
	focus         FocusRegion

	// replyTo holds the ID of the message the composer is replying
	// to. Empty means a plain send.
	replyTo string

	status string
}

// NewModel creates a chat UI over the given engine.
func NewModel(engine *chat.Engine) Model {
	input := textinput.New()
	input.Placeholder = "message"
	input.Prompt = "> "
	input.CharLimit = 4000

	model := Model{
		engine:   engine,
		keys:     DefaultKeyMap,
		theme:    DefaultTheme,
		input:    input,
		selected: -1,
		focus:    FocusComposer,
	}
	model.input.Focus()
	model.refresh()
	return model
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.messageWidth() - len(m.input.Prompt) - 1
		return m, nil

	case RefreshMsg:
		m.refresh()
		return m, nil

	case actionDoneMsg:
		m.refresh()
		if !msg.ok {
			m.status = "action failed"
			return m, tea.Tick(statusFadeDelay, func(time.Time) tea.Msg { return statusFadeMsg{} })
		}
		return m, nil

	case statusFadeMsg:
		m.status = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.focus == FocusComposer {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C quits regardless of focus.
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.focus == FocusComposer {
		switch {
		case key.Matches(msg, m.keys.FocusMessages):
			m.focus = FocusMessages
			m.input.Blur()
			m.replyTo = ""
			return m, nil
		case msg.Type == tea.KeyEnter:
			content := strings.TrimSpace(m.input.Value())
			if content == "" {
				return m, nil
			}
			m.input.Reset()
			cmd := m.sendCmd(content, m.replyTo)
			m.replyTo = ""
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.NextConversation):
		m.switchConversation(1)
	case key.Matches(msg, m.keys.PrevConversation):
		m.switchConversation(-1)
	case key.Matches(msg, m.keys.FocusComposer):
		m.focus = FocusComposer
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Retry):
		if selected, ok := m.selectedMessage(); ok && selected.Status == chat.StatusFailed {
			return m, m.retryCmd(selected.ID)
		}
	case key.Matches(msg, m.keys.Reply):
		if selected, ok := m.selectedMessage(); ok && !m.activeKey().IsDirect() {
			m.replyTo = selected.ID
			m.focus = FocusComposer
			m.input.Focus()
			return m, textinput.Blink
		}
	case key.Matches(msg, m.keys.AddReaction):
		if selected, ok := m.selectedMessage(); ok {
			return m, m.reactCmd(selected.ID, true)
		}
	case key.Matches(msg, m.keys.RemoveReaction):
		if selected, ok := m.selectedMessage(); ok {
			return m, m.reactCmd(selected.ID, false)
		}
	}
	return m, nil
}

// refresh re-reads conversations and the active conversation's
// messages from the engine.
func (m *Model) refresh() {
	m.conversations = m.engine.Conversations()
	if m.active >= len(m.conversations) {
		m.active = 0
	}
	m.messages = m.engine.Conversation(m.activeKey())
	if m.selected >= len(m.messages) {
		m.selected = -1
	}
}

func (m *Model) activeKey() chat.ConversationKey {
	if m.active < len(m.conversations) {
		return m.conversations[m.active]
	}
	return chat.ConversationKey{}
}

func (m *Model) selectedMessage() (chat.Message, bool) {
	index := m.selected
	if index < 0 {
		index = len(m.messages) - 1
	}
	if index < 0 || index >= len(m.messages) {
		return chat.Message{}, false
	}
	return m.messages[index], true
}

func (m *Model) moveSelection(delta int) {
	if len(m.messages) == 0 {
		return
	}
	index := m.selected
	if index < 0 {
		index = len(m.messages) - 1
	}
	index += delta
	if index < 0 {
		index = 0
	}
	if index >= len(m.messages)-1 {
		// Back at the tail: resume following new arrivals.
		m.selected = -1
		return
	}
	m.selected = index
}

func (m *Model) switchConversation(delta int) {
	if len(m.conversations) == 0 {
		return
	}
	m.active = (m.active + delta + len(m.conversations)) % len(m.conversations)
	m.selected = -1
	m.refresh()
}

// sendCmd drives one send through the engine off the UI goroutine.
func (m Model) sendCmd(content, replyTo string) tea.Cmd {
	engine := m.engine
	conversation := m.activeKey()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		var ok bool
		switch {
		case conversation.IsDirect():
			ok = engine.SendDirectMessage(ctx, conversation.Peer, content)
		case replyTo != "":
			ok = engine.SendReply(ctx, conversation.Channel, content, replyTo)
		default:
			ok = engine.SendChannelMessage(ctx, conversation.Channel, content)
		}
		return actionDoneMsg{ok: ok}
	}
}

func (m Model) retryCmd(id string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{ok: engine.Retry(ctx, id)}
	}
}

func (m Model) reactCmd(id string, add bool) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		var ok bool
		if add {
			ok = engine.AddReaction(ctx, id, defaultReaction)
		} else {
			ok = engine.RemoveReaction(ctx, id, defaultReaction)
		}
		return actionDoneMsg{ok: ok}
	}
}

func (m Model) messageWidth() int {
	width := m.width - sidebarWidth - 3
	if width < 20 {
		width = 20
	}
	return width
}

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	sidebar := m.renderSidebar()
	messages := m.renderMessages()
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", messages)

	composer := m.renderComposer()
	status := m.renderStatus()

	return lipgloss.JoinVertical(lipgloss.Left, body, composer, status)
}

func (m Model) renderSidebar() string {
	normal := lipgloss.NewStyle().Foreground(m.theme.NormalText).Width(sidebarWidth)
	selected := lipgloss.NewStyle().
		Foreground(m.theme.SelectedForeground).
		Background(m.theme.SelectedBackground).
		Width(sidebarWidth)
	header := lipgloss.NewStyle().Foreground(m.theme.FaintText).Width(sidebarWidth)

	lines := []string{header.Render("conversations")}
	for i, conversation := range m.conversations {
		style := normal
		if i == m.active {
			style = selected
		}
		lines = append(lines, style.Render(conversation.String()))
	}
	if len(m.conversations) == 0 {
		lines = append(lines, header.Render("(none yet)"))
	}

	height := m.bodyHeight()
	for len(lines) < height {
		lines = append(lines, normal.Render(""))
	}
	return strings.Join(lines[:height], "\n")
}

func (m Model) renderMessages() string {
	width := m.messageWidth()
	height := m.bodyHeight()

	lines := make([]string, 0, len(m.messages))
	selectedIndex := m.selected
	if selectedIndex < 0 {
		selectedIndex = len(m.messages) - 1
	}
	for i, message := range m.messages {
		lines = append(lines, m.renderMessage(message, width, i == selectedIndex && m.focus == FocusMessages))
	}

	// Keep the tail visible: drop lines from the top when the
	// conversation outgrows the pane.
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMessage(message chat.Message, width int, selected bool) string {
	senderStyle := lipgloss.NewStyle().Foreground(m.theme.RemoteSender)
	if message.Sender == m.engine.LocalAgent() {
		senderStyle = lipgloss.NewStyle().Foreground(m.theme.LocalSender)
	}

	var parts []string
	parts = append(parts,
		lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(message.Timestamp.Format("15:04")),
		senderStyle.Render(message.Sender.String()+":"),
	)
	if message.Kind == chat.KindReply {
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("↳"))
	}
	parts = append(parts, message.Content)

	if len(message.Reactions) > 0 {
		reactionStyle := lipgloss.NewStyle().Foreground(m.theme.ReactionText)
		for _, reaction := range sortedReactions(message.Reactions) {
			parts = append(parts, reactionStyle.Render(fmt.Sprintf("[%s×%d]", reaction, message.Reactions[reaction])))
		}
	}

	switch message.Status {
	case chat.StatusSending:
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.StatusSending).Render("…"))
	case chat.StatusFailed:
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.StatusFailed).Render("✗ failed (r to retry)"))
	}

	line := strings.Join(parts, " ")
	style := lipgloss.NewStyle().Width(width).MaxWidth(width)
	if selected {
		style = style.Background(m.theme.SelectedBackground)
	}
	return style.Render(line)
}

func (m Model) renderComposer() string {
	prefix := ""
	if m.replyTo != "" {
		prefix = lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("replying ")
	}
	borderStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(m.theme.BorderColor).
		Width(m.width)
	return borderStyle.Render(prefix + m.input.View())
}

func (m Model) renderStatus() string {
	if m.status != "" {
		return lipgloss.NewStyle().Foreground(m.theme.ErrorText).Render(m.status)
	}
	if err := m.engine.ConversationError(m.activeKey()); err != "" {
		return lipgloss.NewStyle().Foreground(m.theme.ErrorText).Render(err)
	}
	help := "tab: switch · i: compose · esc: messages · r: retry · +/-: react · q: quit"
	return lipgloss.NewStyle().Foreground(m.theme.HelpText).Render(help)
}

// bodyHeight is the vertical space for the sidebar and message pane:
// total height minus the composer (two lines with its border) and the
// status bar.
func (m Model) bodyHeight() int {
	height := m.height - 3
	if height < 3 {
		height = 3
	}
	return height
}

func sortedReactions(reactions map[string]int) []string {
	names := make([]string, 0, len(reactions))
	for reaction := range reactions {
		names = append(names, reaction)
	}
	sort.Strings(names)
	return names
}
