// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/parleyhq/parley/lib/codec"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parley.snap")

	transport := &scriptedTransport{script: confirmWith("srv-1")}
	engine, _ := newTestEngine(t, transport)

	engine.SendChannelMessage(ctx, general, "hello")
	engine.AddReaction(ctx, "srv-1", "thumbs_up")
	engine.HandleNotification(Notification{
		EventName: NotifyDirectMessage,
		SourceID:  peerAgent.String(),
		Payload: map[string]any{
			"message_id": "dm-1",
			"content":    "hey",
		},
	})

	if err := engine.SaveSnapshot(path); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	restored, _ := newTestEngine(t, nil)
	if err := restored.LoadSnapshot(path); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if got := len(restored.Conversations()); got != 2 {
		t.Fatalf("restored %d conversations, want 2", got)
	}

	channelMessages := restored.Conversation(ChannelConversation(general))
	if len(channelMessages) != 1 {
		t.Fatalf("restored channel has %d entries, want 1", len(channelMessages))
	}
	sent := channelMessages[0]
	if sent.ID != "srv-1" || sent.Content != "hello" || sent.Sender != localAgent {
		t.Errorf("unexpected restored entry: %+v", sent)
	}
	if got := sent.Reactions["thumbs_up"]; got != 1 {
		t.Errorf("restored reaction count = %d, want 1", got)
	}

	// The remap survives, so old temporary references still resolve.
	if confirmed, ok := restored.Remap(sent.TempID); !ok || confirmed != "srv-1" {
		t.Errorf("restored Remap(%q) = %q, %v", sent.TempID, confirmed, ok)
	}
	if _, ok := restored.Message(sent.TempID); !ok {
		t.Error("temporary ID no longer resolves after restore")
	}

	direct := restored.Conversation(DirectConversation(peerAgent))
	if len(direct) != 1 || direct[0].ID != "dm-1" {
		t.Errorf("unexpected restored direct conversation: %+v", direct)
	}
}

func TestSnapshotFailsInFlightSends(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parley.snap")

	// Save from inside the transport call, while the entry is still in
	// status sending. This is what a crash mid-send leaves on disk.
	var engine *Engine
	transport := &scriptedTransport{}
	transport.script = func(EventDescriptor) (*SendResult, error) {
		if err := engine.SaveSnapshot(path); err != nil {
			t.Errorf("SaveSnapshot failed: %v", err)
		}
		return nil, errors.New("process killed")
	}
	engine, _ = newTestEngine(t, transport)
	engine.SendChannelMessage(ctx, general, "hello")

	restored, _ := newTestEngine(t, nil)
	if err := restored.LoadSnapshot(path); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	messages := restored.Conversation(ChannelConversation(general))
	if len(messages) != 1 {
		t.Fatalf("restored %d entries, want 1", len(messages))
	}
	if messages[0].Status != StatusFailed {
		t.Errorf("in-flight entry restored as %q, want failed", messages[0].Status)
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	err := engine.LoadSnapshot(filepath.Join(t.TempDir(), "absent.snap"))
	if err == nil {
		t.Fatal("LoadSnapshot succeeded on a missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error does not wrap os.ErrNotExist: %v", err)
	}
}

func TestLoadSnapshotRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.snap")

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating snapshot: %v", err)
	}
	compressor, err := zstd.NewWriter(file)
	if err != nil {
		t.Fatalf("initializing compressor: %v", err)
	}
	if err := codec.NewEncoder(compressor).Encode(snapshotFile{Version: snapshotVersion + 1}); err != nil {
		t.Fatalf("encoding snapshot: %v", err)
	}
	if err := compressor.Close(); err != nil {
		t.Fatalf("flushing: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	engine, _ := newTestEngine(t, nil)
	if err := engine.LoadSnapshot(path); err == nil {
		t.Fatal("LoadSnapshot accepted an unknown version")
	}
}
