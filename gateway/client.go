// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/parleyhq/parley/chat"
)

// eventsPath is the gateway's event submission endpoint.
const eventsPath = "/v1/events"

// maxResponseBytes caps how much of a gateway response is read. Event
// responses are small; anything past this is a misbehaving server.
const maxResponseBytes = 1 << 20

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the gateway's HTTP base URL (e.g., "http://localhost:8400").
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client submits chat events to a Parley gateway over HTTP. It
// implements chat.Transport.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("gateway: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("gateway: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's pool. Call after a network disruption to force fresh TCP
// connections instead of reusing a poisoned pooled one.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// SendEvent submits one event descriptor and returns the gateway's
// verdict. A non-2xx response with the gateway's structured error
// shape comes back as a *GatewayError; callers extract it with
// errors.As. The chat engine treats any non-nil error as a transport
// failure and marks the entry failed.
func (c *Client) SendEvent(ctx context.Context, descriptor chat.EventDescriptor) (*chat.SendResult, error) {
	encoded, err := json.Marshal(descriptor)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to encode event: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+eventsPath, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("gateway: event submission failed: %w", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to read response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		var gatewayErr GatewayError
		if jsonErr := json.Unmarshal(responseBody, &gatewayErr); jsonErr != nil || gatewayErr.Message == "" {
			return nil, fmt.Errorf("gateway: unexpected %d response from %s: %s",
				response.StatusCode, eventsPath, string(responseBody))
		}
		gatewayErr.StatusCode = response.StatusCode
		return nil, &gatewayErr
	}

	var result chat.SendResult
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return nil, fmt.Errorf("gateway: failed to parse event response: %w", err)
	}
	return &result, nil
}
