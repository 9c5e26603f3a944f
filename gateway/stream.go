// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleyhq/parley/chat"
	"github.com/parleyhq/parley/lib/clock"
)

// Reconnect backoff bounds. The delay doubles on each consecutive
// failure and resets after a successful dial.
const (
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
)

// StreamConfig holds configuration for creating a Stream.
type StreamConfig struct {
	// URL is the gateway's websocket notification endpoint
	// (e.g., "ws://localhost:8400/v1/stream").
	URL string
	// Handler receives every decoded notification, in arrival order,
	// from a single goroutine. Required.
	Handler func(chat.Notification)
	// Dialer is used to establish connections. If nil,
	// websocket.DefaultDialer is used.
	Dialer *websocket.Dialer
	// Header is sent with the websocket handshake (authentication).
	Header http.Header
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Clock paces reconnect backoff. If nil, the real clock is used.
	Clock clock.Clock
}

// Stream is a long-lived websocket subscription to the gateway's
// notification feed. Run owns the connection: it dials, decodes
// frames, hands them to the handler, and redials with capped
// exponential backoff when the connection drops. Dropped frames are
// never replayed; the engine's dedup and history reconciliation
// absorb the gaps.
type Stream struct {
	url     string
	handler func(chat.Notification)
	dialer  *websocket.Dialer
	header  http.Header
	logger  *slog.Logger
	clock   clock.Clock

	done chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewStream creates a notification stream. Call Run to start it.
func NewStream(config StreamConfig) (*Stream, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("gateway: stream URL is required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("gateway: stream Handler is required")
	}

	dialer := config.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Stream{
		url:     config.URL,
		handler: config.Handler,
		dialer:  dialer,
		header:  config.Header,
		logger:  logger,
		clock:   clk,
		done:    make(chan struct{}),
	}, nil
}

// Run connects and consumes notifications until ctx is cancelled or
// Close is called. Connection failures are not fatal: Run logs them
// and redials with backoff. The only returned errors are ctx's, or
// nil after Close.
func (s *Stream) Run(ctx context.Context) error {
	delay := initialReconnectDelay
	for {
		connected, err := s.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.isClosed() {
			return nil
		}
		if connected {
			// The connection was live before it dropped; start the
			// backoff ladder over.
			delay = initialReconnectDelay
		}
		s.logger.Warn("notification stream disconnected",
			"url", s.url,
			"retry_in", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-s.clock.After(delay):
		}
		if delay *= 2; delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// consume dials once and decodes frames until the connection drops.
// Returns whether the dial succeeded, and the terminal read or dial
// error.
func (s *Stream) consume(ctx context.Context) (connected bool, err error) {
	conn, response, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if response != nil {
			return false, fmt.Errorf("dial failed with status %d: %w", response.StatusCode, err)
		}
		return false, fmt.Errorf("dial failed: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return true, nil
	}
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()

	s.logger.Info("notification stream connected", "url", s.url)

	for {
		var notification chat.Notification
		if err := conn.ReadJSON(&notification); err != nil {
			// Close frames and decode failures both end the
			// connection; the redial loop sorts out which ones matter.
			return true, err
		}
		s.handler(notification)
	}
}

// Close shuts the stream down. Safe to call more than once and from
// any goroutine; a blocked Run returns promptly.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
