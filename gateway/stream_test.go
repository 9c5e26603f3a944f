// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleyhq/parley/chat"
	"github.com/parleyhq/parley/lib/clock"
	"github.com/parleyhq/parley/lib/testutil"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamServer upgrades every request and hands the connection to
// serve. The returned URL uses the ws scheme.
func streamServer(t *testing.T, serve func(conn *websocket.Conn, connection int)) string {
	t.Helper()
	var connections atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		serve(conn, int(connections.Add(1)))
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestNewStream(t *testing.T) {
	handler := func(chat.Notification) {}
	if _, err := NewStream(StreamConfig{Handler: handler}); err == nil {
		t.Error("NewStream accepted an empty URL")
	}
	if _, err := NewStream(StreamConfig{URL: "ws://localhost:8400/v1/stream"}); err == nil {
		t.Error("NewStream accepted a nil Handler")
	}
}

func TestStreamDeliversNotifications(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn, _ int) {
		for _, id := range []string{"m1", "m2"} {
			err := conn.WriteJSON(chat.Notification{
				EventName: chat.NotifyChannelMessage,
				SourceID:  "peer-agent",
				Payload:   map[string]any{"channel": "general", "message_id": id, "content": "hello"},
			})
			if err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	received := make(chan chat.Notification, 2)
	stream, err := NewStream(StreamConfig{
		URL:     url,
		Handler: func(n chat.Notification) { received <- n },
	})
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- stream.Run(context.Background()) }()

	first := testutil.RequireReceive(t, received, 5*time.Second, "first notification")
	if first.Payload["message_id"] != "m1" {
		t.Errorf("first frame = %v", first.Payload)
	}
	second := testutil.RequireReceive(t, received, 5*time.Second, "second notification")
	if second.Payload["message_id"] != "m2" {
		t.Errorf("second frame = %v", second.Payload)
	}

	if err := stream.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run return"); err != nil {
		t.Errorf("Run returned %v after Close, want nil", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestStreamReconnects(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn, connection int) {
		if connection == 1 {
			// Drop the first connection immediately after one frame.
			conn.WriteJSON(chat.Notification{EventName: "notify.first", SourceID: "peer-agent"})
			return
		}
		conn.WriteJSON(chat.Notification{EventName: "notify.second", SourceID: "peer-agent"})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	received := make(chan chat.Notification, 4)
	stream, err := NewStream(StreamConfig{
		URL:     url,
		Handler: func(n chat.Notification) { received <- n },
		Clock:   fake,
	})
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- stream.Run(context.Background()) }()

	first := testutil.RequireReceive(t, received, 5*time.Second, "frame before the drop")
	if first.EventName != "notify.first" {
		t.Errorf("first frame = %q", first.EventName)
	}

	// The drop parks Run on the backoff timer; release it.
	fake.WaitForWaiters(1)
	fake.Advance(initialReconnectDelay)

	second := testutil.RequireReceive(t, received, 5*time.Second, "frame after the reconnect")
	if second.EventName != "notify.second" {
		t.Errorf("second frame = %q", second.EventName)
	}

	stream.Close()
	testutil.RequireReceive(t, done, 5*time.Second, "Run return")
}

func TestStreamContextCancel(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn, _ int) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	stream, err := NewStream(StreamConfig{
		URL:     url,
		Handler: func(chat.Notification) {},
	})
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	// Let the dial land, then cancel. Closing the stream's side of the
	// connection is what unblocks the read.
	time.Sleep(50 * time.Millisecond)
	cancel()
	stream.Close()

	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run return"); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
}
