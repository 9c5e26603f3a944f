// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui implements the terminal UI for Parley: a
// conversation list pane, a message pane with per-message delivery
// status, and a composer input. The model is a thin view over a
// chat.Engine: all state lives in the engine, and the UI re-reads it
// whenever a RefreshMsg arrives from the notification stream or a
// local action completes.
package chatui
