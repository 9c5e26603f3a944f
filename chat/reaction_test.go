// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"testing"
	"time"
)

// seedMessage inserts a confirmed inbound message via the notification
// path so reaction tests start from reconciled state.
func seedMessage(t *testing.T, engine *Engine, id, content string) {
	t.Helper()
	engine.HandleNotification(Notification{
		EventName: NotifyChannelMessage,
		SourceID:  peerAgent.String(),
		Payload: map[string]any{
			"channel":    general.String(),
			"message_id": id,
			"content":    content,
		},
		Timestamp: testEpoch.Format(time.RFC3339Nano),
	})
	if _, ok := engine.Message(id); !ok {
		t.Fatalf("seed message %q not inserted", id)
	}
}

func TestAddReaction(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		transport := &scriptedTransport{}
		engine, _ := newTestEngine(t, transport)
		seedMessage(t, engine, "m1", "hello")

		if !engine.AddReaction(ctx, "m1", "thumbs_up") {
			t.Fatal("reaction reported failure")
		}

		message, _ := engine.Message("m1")
		if got := message.Reactions["thumbs_up"]; got != 1 {
			t.Errorf("count = %d, want 1", got)
		}

		call := transport.lastCall(t)
		if call.EventName != EventReactionAdd {
			t.Errorf("event name = %q", call.EventName)
		}
		if call.Payload["target_message_id"] != "m1" || call.Payload["reaction_type"] != "thumbs_up" {
			t.Errorf("unexpected payload %v", call.Payload)
		}
	})

	t.Run("rolled back on error", func(t *testing.T) {
		transport := &scriptedTransport{script: func(EventDescriptor) (*SendResult, error) {
			return nil, errors.New("connection reset")
		}}
		engine, _ := newTestEngine(t, transport)
		seedMessage(t, engine, "m1", "hello")

		if engine.AddReaction(ctx, "m1", "thumbs_up") {
			t.Fatal("reaction reported success on transport error")
		}
		message, _ := engine.Message("m1")
		if _, present := message.Reactions["thumbs_up"]; present {
			t.Errorf("optimistic increment survived rollback: %v", message.Reactions)
		}
	})

	t.Run("rollback restores prior count", func(t *testing.T) {
		transport := &scriptedTransport{}
		engine, _ := newTestEngine(t, transport)
		seedMessage(t, engine, "m1", "hello")

		// Two confirmed reactions, then one refused on top.
		engine.AddReaction(ctx, "m1", "thumbs_up")
		engine.AddReaction(ctx, "m1", "thumbs_up")
		transport.script = func(EventDescriptor) (*SendResult, error) {
			return &SendResult{Success: false, Message: "reaction limit"}, nil
		}
		if engine.AddReaction(ctx, "m1", "thumbs_up") {
			t.Fatal("third reaction reported success")
		}

		message, _ := engine.Message("m1")
		if got := message.Reactions["thumbs_up"]; got != 2 {
			t.Errorf("count = %d, want 2 after rollback", got)
		}
	})

	t.Run("nested rejection rolls back", func(t *testing.T) {
		transport := &scriptedTransport{script: func(EventDescriptor) (*SendResult, error) {
			return &SendResult{Success: true, Data: map[string]any{"success": false}}, nil
		}}
		engine, _ := newTestEngine(t, transport)
		seedMessage(t, engine, "m1", "hello")

		if engine.AddReaction(ctx, "m1", "thumbs_up") {
			t.Fatal("reaction reported success on nested rejection")
		}
		message, _ := engine.Message("m1")
		if len(message.Reactions) != 0 {
			t.Errorf("reactions not rolled back: %v", message.Reactions)
		}
	})

	t.Run("authoritative counts adopted", func(t *testing.T) {
		transport := &scriptedTransport{script: func(EventDescriptor) (*SendResult, error) {
			return &SendResult{Success: true, Data: map[string]any{
				"reactions": map[string]any{"thumbs_up": float64(7)},
			}}, nil
		}}
		engine, _ := newTestEngine(t, transport)
		seedMessage(t, engine, "m1", "hello")

		if !engine.AddReaction(ctx, "m1", "thumbs_up") {
			t.Fatal("reaction reported failure")
		}
		message, _ := engine.Message("m1")
		if got := message.Reactions["thumbs_up"]; got != 7 {
			t.Errorf("count = %d, want the authoritative 7", got)
		}
	})

	t.Run("unknown message", func(t *testing.T) {
		transport := &scriptedTransport{}
		engine, _ := newTestEngine(t, transport)

		if engine.AddReaction(ctx, "nope", "thumbs_up") {
			t.Fatal("reaction on unknown message reported success")
		}
		if transport.callCount() != 0 {
			t.Error("transport was called for an unknown message")
		}
	})

	t.Run("temporary id resolves on the wire", func(t *testing.T) {
		transport := &scriptedTransport{script: confirmWith("srv-1")}
		engine, _ := newTestEngine(t, transport)
		engine.SendChannelMessage(ctx, general, "hello")
		sent := engine.Conversation(ChannelConversation(general))[0]

		transport.script = nil
		if !engine.AddReaction(ctx, sent.TempID, "thumbs_up") {
			t.Fatal("reaction via temporary ID reported failure")
		}
		if got := transport.lastCall(t).Payload["target_message_id"]; got != "srv-1" {
			t.Errorf("wire target = %v, want srv-1", got)
		}
	})
}

func TestRemoveReaction(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes key at zero", func(t *testing.T) {
		transport := &scriptedTransport{}
		engine, _ := newTestEngine(t, transport)
		seedMessage(t, engine, "m1", "hello")
		engine.AddReaction(ctx, "m1", "thumbs_up")

		if !engine.RemoveReaction(ctx, "m1", "thumbs_up") {
			t.Fatal("removal reported failure")
		}
		message, _ := engine.Message("m1")
		if _, present := message.Reactions["thumbs_up"]; present {
			t.Errorf("key survived removal at zero: %v", message.Reactions)
		}
		if got := transport.lastCall(t).EventName; got != EventReactionRemove {
			t.Errorf("event name = %q", got)
		}
	})

	t.Run("decrements above one", func(t *testing.T) {
		transport := &scriptedTransport{}
		engine, _ := newTestEngine(t, transport)
		seedMessage(t, engine, "m1", "hello")
		engine.AddReaction(ctx, "m1", "thumbs_up")
		engine.AddReaction(ctx, "m1", "thumbs_up")

		if !engine.RemoveReaction(ctx, "m1", "thumbs_up") {
			t.Fatal("removal reported failure")
		}
		message, _ := engine.Message("m1")
		if got := message.Reactions["thumbs_up"]; got != 1 {
			t.Errorf("count = %d, want 1", got)
		}
	})

	t.Run("nothing to remove", func(t *testing.T) {
		transport := &scriptedTransport{}
		engine, _ := newTestEngine(t, transport)
		seedMessage(t, engine, "m1", "hello")

		if engine.RemoveReaction(ctx, "m1", "thumbs_up") {
			t.Fatal("removal of an absent reaction reported success")
		}
		if transport.callCount() != 0 {
			t.Error("transport was called with nothing to remove")
		}
	})

	t.Run("rollback restores deleted key", func(t *testing.T) {
		transport := &scriptedTransport{}
		engine, _ := newTestEngine(t, transport)
		seedMessage(t, engine, "m1", "hello")
		engine.AddReaction(ctx, "m1", "thumbs_up")

		transport.script = func(EventDescriptor) (*SendResult, error) {
			return nil, errors.New("connection reset")
		}
		if engine.RemoveReaction(ctx, "m1", "thumbs_up") {
			t.Fatal("removal reported success on transport error")
		}
		message, _ := engine.Message("m1")
		if got := message.Reactions["thumbs_up"]; got != 1 {
			t.Errorf("count = %d, want the restored 1", got)
		}
	})
}

// TestConcurrentReactionIsolation drives two mutations on the same
// message at once, fails the first, and checks that rolling it back
// leaves the second mutation's delta alone.
func TestConcurrentReactionIsolation(t *testing.T) {
	ctx := context.Background()

	release := make(chan struct{})
	transport := &scriptedTransport{}
	firstSeen := make(chan struct{})
	transport.script = func(descriptor EventDescriptor) (*SendResult, error) {
		if descriptor.Payload["reaction_type"] == "fire" {
			close(firstSeen)
			<-release
			return nil, errors.New("connection reset")
		}
		return &SendResult{Success: true}, nil
	}
	engine, _ := newTestEngine(t, transport)
	seedMessage(t, engine, "m1", "hello")

	done := make(chan bool, 1)
	go func() {
		done <- engine.AddReaction(ctx, "m1", "fire")
	}()
	<-firstSeen

	// Second mutation lands while the first is parked in the transport.
	if !engine.AddReaction(ctx, "m1", "heart") {
		t.Fatal("second reaction reported failure")
	}

	close(release)
	if ok := <-done; ok {
		t.Fatal("first reaction reported success")
	}

	message, _ := engine.Message("m1")
	if _, present := message.Reactions["fire"]; present {
		t.Errorf("failed mutation not rolled back: %v", message.Reactions)
	}
	if got := message.Reactions["heart"]; got != 1 {
		t.Errorf("concurrent mutation disturbed by rollback: %v", message.Reactions)
	}
}

// TestLateRejectionAfterNotification checks that an authoritative
// reaction notification clears the in-flight record, so the late
// failure response cannot roll back state the stream already settled.
func TestLateRejectionAfterNotification(t *testing.T) {
	ctx := context.Background()

	release := make(chan struct{})
	inTransport := make(chan struct{})
	transport := &scriptedTransport{script: func(EventDescriptor) (*SendResult, error) {
		close(inTransport)
		<-release
		return nil, errors.New("timeout")
	}}
	engine, _ := newTestEngine(t, transport)
	seedMessage(t, engine, "m1", "hello")

	done := make(chan bool, 1)
	go func() {
		done <- engine.AddReaction(ctx, "m1", "thumbs_up")
	}()
	<-inTransport

	// The stream settles the count while the response is still pending.
	engine.HandleNotification(Notification{
		EventName: NotifyReaction,
		SourceID:  peerAgent.String(),
		Payload: map[string]any{
			"target_message_id": "m1",
			"reaction_type":     "thumbs_up",
			"action":            ReactionAdded,
			"total_reactions":   float64(3),
		},
	})

	close(release)
	if ok := <-done; ok {
		t.Fatal("reaction reported success")
	}

	message, _ := engine.Message("m1")
	if got := message.Reactions["thumbs_up"]; got != 3 {
		t.Errorf("count = %d, want the notification's 3", got)
	}
}

// TestNotificationClearsPendingAcrossRename reacts to a message that is
// still sending, lets the commit rename it, and settles the count from
// the stream under the confirmed ID. The in-flight record was issued
// under the provisional ID; the late failure response must still find
// it cleared instead of rolling back the settled total.
func TestNotificationClearsPendingAcrossRename(t *testing.T) {
	ctx := context.Background()

	sendRelease := make(chan struct{})
	sendInFlight := make(chan struct{})
	reactionRelease := make(chan struct{})
	reactionInFlight := make(chan struct{})
	transport := &scriptedTransport{script: func(descriptor EventDescriptor) (*SendResult, error) {
		switch descriptor.EventName {
		case EventChannelPost:
			close(sendInFlight)
			<-sendRelease
			return &SendResult{Success: true, Data: map[string]any{"message_id": "srv-1"}}, nil
		default:
			close(reactionInFlight)
			<-reactionRelease
			return nil, errors.New("timeout")
		}
	}}
	engine, _ := newTestEngine(t, transport)

	sendDone := make(chan bool, 1)
	go func() {
		sendDone <- engine.SendChannelMessage(ctx, general, "hello")
	}()
	<-sendInFlight

	tempID := engine.Conversation(ChannelConversation(general))[0].ID
	if !IsTempID(tempID) {
		t.Fatalf("in-flight entry carries %q, want a temporary ID", tempID)
	}

	reactionDone := make(chan bool, 1)
	go func() {
		reactionDone <- engine.AddReaction(ctx, tempID, "thumbs_up")
	}()
	<-reactionInFlight

	// Commit renames the entry while the reaction call is outstanding.
	close(sendRelease)
	if !<-sendDone {
		t.Fatal("send reported failure")
	}
	if _, ok := engine.Message("srv-1"); !ok {
		t.Fatal("commit did not rename the entry to srv-1")
	}

	engine.HandleNotification(Notification{
		EventName: NotifyReaction,
		SourceID:  peerAgent.String(),
		Payload: map[string]any{
			"target_message_id": "srv-1",
			"reaction_type":     "thumbs_up",
			"action":            ReactionAdded,
			"total_reactions":   float64(3),
		},
	})

	close(reactionRelease)
	if ok := <-reactionDone; ok {
		t.Fatal("reaction reported success")
	}

	message, _ := engine.Message("srv-1")
	if got := message.Reactions["thumbs_up"]; got != 3 {
		t.Errorf("count = %d, want the notification's 3", got)
	}
}
