// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// ChannelName is a validated channel name ("general", "eng/infra").
// Names are stored bare, without the '#' display prefix. ParseChannelName
// strips a single leading '#' so user-typed forms round-trip cleanly.
//
// ChannelName is an immutable value type. The zero value is not valid;
// use IsZero to check.
type ChannelName struct {
	name string
}

// ParseChannelName validates and wraps a raw channel name. A single
// leading '#' is stripped; the remainder must be non-empty and free of
// whitespace.
func ParseChannelName(raw string) (ChannelName, error) {
	name := strings.TrimPrefix(raw, "#")
	if name == "" {
		return ChannelName{}, fmt.Errorf("empty channel name")
	}
	if strings.ContainsAny(name, " \t\n") {
		return ChannelName{}, fmt.Errorf("channel name contains whitespace: %q", raw)
	}
	if name[0] == '#' {
		return ChannelName{}, fmt.Errorf("channel name has repeated '#' prefix: %q", raw)
	}
	return ChannelName{name: name}, nil
}

// MustParseChannelName is like ParseChannelName but panics on error.
func MustParseChannelName(raw string) ChannelName {
	c, err := ParseChannelName(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseChannelName(%q): %v", raw, err))
	}
	return c
}

// String returns the bare channel name, without the '#' prefix.
func (c ChannelName) String() string { return c.name }

// Display returns the channel name with the '#' prefix for UI surfaces.
func (c ChannelName) Display() string {
	if c.name == "" {
		return ""
	}
	return "#" + c.name
}

// IsZero reports whether the ChannelName is the zero value.
func (c ChannelName) IsZero() bool { return c.name == "" }

// MarshalText implements encoding.TextMarshaler.
func (c ChannelName) MarshalText() ([]byte, error) {
	if c.name == "" {
		return nil, nil
	}
	return []byte(c.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value (unset channel name).
func (c *ChannelName) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*c = ChannelName{}
		return nil
	}
	parsed, err := ParseChannelName(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
