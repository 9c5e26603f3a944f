// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for parley clients.
//
// Configuration is loaded from a single YAML file specified by:
//   - the PARLEY_CONFIG environment variable, or
//   - the --config flag passed to the command.
//
// There are no fallbacks or automatic discovery. This keeps
// configuration deterministic and auditable with no hidden overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/parleyhq/parley/lib/ref"
)

// EnvVar is the environment variable naming the config file.
const EnvVar = "PARLEY_CONFIG"

// DefaultDedupWindow is the reconciliation time window inside which a
// same-content, same-sender message counts as a duplicate of an
// existing entry.
const DefaultDedupWindow = 2 * time.Second

// Config is the client configuration.
type Config struct {
	// GatewayURL is the base URL of the chat gateway
	// (e.g., "http://localhost:8480").
	GatewayURL string

	// StreamURL is the websocket URL of the notification stream
	// (e.g., "ws://localhost:8480/v1/stream"). If empty, it is derived
	// from GatewayURL by swapping the scheme and appending /v1/stream.
	StreamURL string

	// AgentID identifies the local user on the gateway.
	AgentID ref.AgentID

	// DedupWindowMS overrides the duplicate-detection window for the
	// content heuristic, in milliseconds. Zero means the default
	// (2000 ms).
	DedupWindowMS int

	// AdoptSelfEcho enables ID adoption from self-echo notifications:
	// when the notification stream delivers the server's copy of a
	// message this client sent optimistically, the local entry takes
	// on the server's event ID instead of the echo being dropped.
	AdoptSelfEcho bool

	// SnapshotPath is where the engine persists its conversation
	// snapshot. Empty disables snapshots.
	SnapshotPath string
}

// rawConfig is the YAML wire form. The agent ID arrives as a plain
// string and is validated into a ref.AgentID during Parse; yaml.v3
// cannot decode into opaque value types directly.
type rawConfig struct {
	GatewayURL    string `yaml:"gateway_url"`
	StreamURL     string `yaml:"stream_url"`
	AgentID       string `yaml:"agent_id"`
	DedupWindowMS int    `yaml:"dedup_window_ms"`
	AdoptSelfEcho bool   `yaml:"adopt_self_echo"`
	SnapshotPath  string `yaml:"snapshot_path"`
}

// ResolvedStreamURL returns StreamURL, deriving it from GatewayURL
// when unset: http becomes ws, https becomes wss, and the stream path
// is appended.
func (c *Config) ResolvedStreamURL() (string, error) {
	if c.StreamURL != "" {
		return c.StreamURL, nil
	}
	parsed, err := url.Parse(c.GatewayURL)
	if err != nil {
		return "", fmt.Errorf("config: parsing gateway_url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("config: cannot derive stream URL from gateway scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/v1/stream"
	return parsed.String(), nil
}

// DedupWindow returns the configured dedup window as a Duration.
func (c *Config) DedupWindow() time.Duration {
	if c.DedupWindowMS <= 0 {
		return DefaultDedupWindow
	}
	return time.Duration(c.DedupWindowMS) * time.Millisecond
}

// Load reads and validates the config file at path. If path is empty,
// the PARLEY_CONFIG environment variable is consulted.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file: pass --config or set %s", EnvVar)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing YAML: %w", err)
	}
	if raw.GatewayURL == "" {
		return nil, fmt.Errorf("config: gateway_url is required")
	}
	if raw.AgentID == "" {
		return nil, fmt.Errorf("config: agent_id is required")
	}
	agentID, err := ref.ParseAgentID(raw.AgentID)
	if err != nil {
		return nil, fmt.Errorf("config: invalid agent_id: %w", err)
	}
	if raw.DedupWindowMS < 0 {
		return nil, fmt.Errorf("config: dedup_window_ms must not be negative, got %d", raw.DedupWindowMS)
	}
	return &Config{
		GatewayURL:    raw.GatewayURL,
		StreamURL:     raw.StreamURL,
		AgentID:       agentID,
		DedupWindowMS: raw.DedupWindowMS,
		AdoptSelfEcho: raw.AdoptSelfEcho,
		SnapshotPath:  raw.SnapshotPath,
	}, nil
}
