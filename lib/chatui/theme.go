// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the chat UI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected conversation row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Message authorship.
	LocalSender  lipgloss.Color
	RemoteSender lipgloss.Color

	// Delivery status markers.
	StatusSending lipgloss.Color
	StatusFailed  lipgloss.Color

	// Reactions.
	ReactionText lipgloss.Color

	// UI chrome.
	BorderColor lipgloss.Color
	HelpText    lipgloss.Color
	ErrorText   lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("243"),
	SelectedBackground: lipgloss.Color("237"),
	SelectedForeground: lipgloss.Color("255"),
	LocalSender:        lipgloss.Color("117"),
	RemoteSender:       lipgloss.Color("150"),
	StatusSending:      lipgloss.Color("214"),
	StatusFailed:       lipgloss.Color("203"),
	ReactionText:       lipgloss.Color("222"),
	BorderColor:        lipgloss.Color("240"),
	HelpText:           lipgloss.Color("243"),
	ErrorText:          lipgloss.Color("203"),
}
