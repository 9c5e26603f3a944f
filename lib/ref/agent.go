// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// AgentID is a validated agent (user) identifier. Agent IDs are opaque
// server-assigned strings ("agent-7", "maren"). The engine never parses
// structure out of them; validation only rejects input that would
// corrupt conversation keys: empty strings, whitespace, and the '#'
// prefix reserved for channel display forms.
//
// AgentID is an immutable value type. The zero value is not valid; use
// IsZero to check.
type AgentID struct {
	id string
}

// ParseAgentID validates and wraps a raw agent identifier.
func ParseAgentID(raw string) (AgentID, error) {
	if raw == "" {
		return AgentID{}, fmt.Errorf("empty agent ID")
	}
	if strings.ContainsAny(raw, " \t\n") {
		return AgentID{}, fmt.Errorf("agent ID contains whitespace: %q", raw)
	}
	if raw[0] == '#' {
		return AgentID{}, fmt.Errorf("agent ID must not start with '#': %q", raw)
	}
	return AgentID{id: raw}, nil
}

// MustParseAgentID is like ParseAgentID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseAgentID(raw string) AgentID {
	a, err := ParseAgentID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseAgentID(%q): %v", raw, err))
	}
	return a
}

// String returns the raw agent identifier.
func (a AgentID) String() string { return a.id }

// IsZero reports whether the AgentID is the zero value (uninitialized).
func (a AgentID) IsZero() bool { return a.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (a AgentID) MarshalText() ([]byte, error) {
	if a.id == "" {
		return nil, nil
	}
	return []byte(a.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value (unset agent ID).
func (a *AgentID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = AgentID{}
		return nil
	}
	parsed, err := ParseAgentID(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
