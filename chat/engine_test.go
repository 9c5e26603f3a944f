// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"testing"
	"time"
)

func TestNewEngine(t *testing.T) {
	t.Run("requires local agent", func(t *testing.T) {
		if _, err := NewEngine(Options{}); err == nil {
			t.Fatal("NewEngine accepted a zero LocalAgent")
		}
	})

	t.Run("defaults", func(t *testing.T) {
		engine, err := NewEngine(Options{LocalAgent: localAgent})
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		if engine.LocalAgent() != localAgent {
			t.Errorf("LocalAgent() = %q", engine.LocalAgent())
		}
		if engine.store.window != DefaultDedupWindow {
			t.Errorf("dedup window = %v, want %v", engine.store.window, DefaultDedupWindow)
		}
	})

	t.Run("custom window", func(t *testing.T) {
		engine, err := NewEngine(Options{LocalAgent: localAgent, DedupWindow: 5 * time.Second})
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		if engine.store.window != 5*time.Second {
			t.Errorf("dedup window = %v, want 5s", engine.store.window)
		}
	})
}

func TestResetConversation(t *testing.T) {
	ctx := context.Background()
	key := ChannelConversation(general)

	transport := &scriptedTransport{script: confirmWith("srv-1")}
	engine, _ := newTestEngine(t, transport)

	engine.SendChannelMessage(ctx, general, "hello")
	engine.ResetConversation(key)

	if got := len(engine.Conversation(key)); got != 0 {
		t.Errorf("conversation has %d entries after reset", got)
	}
	if _, ok := engine.Message("srv-1"); ok {
		t.Error("entry still resolvable after reset")
	}
}

func TestMessageReturnsCopy(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	seedMessage(t, engine, "m1", "hello")

	first, _ := engine.Message("m1")
	first.Content = "mutated by the caller"

	second, _ := engine.Message("m1")
	if second.Content != "hello" {
		t.Error("caller mutation leaked into engine state")
	}
}
