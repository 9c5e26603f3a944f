// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the chat TUI. Navigation keys
// apply when the message pane has focus; the composer swallows
// character input while focused.
type KeyMap struct {
	// Message selection.
	Up   key.Binding
	Down key.Binding

	// Conversation switching.
	NextConversation key.Binding
	PrevConversation key.Binding

	// Focus switching between message pane and composer.
	FocusComposer key.Binding
	FocusMessages key.Binding

	// Actions on the selected message.
	Retry          key.Binding
	Reply          key.Binding
	AddReaction    key.Binding
	RemoveReaction key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// alongside arrow keys, matching the other Parley terminal tools.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "older"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "newer"),
	),
	NextConversation: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next conversation"),
	),
	PrevConversation: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-tab", "previous conversation"),
	),
	FocusComposer: key.NewBinding(
		key.WithKeys("i", "enter"),
		key.WithHelp("i", "compose"),
	),
	FocusMessages: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "messages"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry failed send"),
	),
	Reply: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "reply in thread"),
	),
	AddReaction: key.NewBinding(
		key.WithKeys("+"),
		key.WithHelp("+", "react"),
	),
	RemoveReaction: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "unreact"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
}
