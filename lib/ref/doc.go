// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated identifier value types for the chat
// engine: [AgentID] for users and peer agents, [ChannelName] for named
// channels.
//
// Both types are immutable values validated at construction. The zero
// value is never valid; use IsZero to check. Parse functions return
// errors for malformed input, Must* variants panic and are intended for
// tests and static initialization. Both types implement
// encoding.TextMarshaler and TextUnmarshaler, so they validate
// automatically when used as JSON or CBOR struct fields and as map keys.
package ref
