// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"strings"

	"github.com/parleyhq/parley/lib/ref"
)

// SendChannelMessage posts a message to a channel. The entry appears
// immediately with status sending; the return value reports whether
// the gateway confirmed it. On false the entry remains, marked failed,
// and ConversationError carries the detail.
func (e *Engine) SendChannelMessage(ctx context.Context, channel ref.ChannelName, content string) bool {
	return e.send(ctx, ChannelConversation(channel), KindChannel, content, "")
}

// SendReply posts a threaded reply to an earlier channel message.
// replyToID may be a temporary ID; the wire payload carries its
// confirmed form when the mapping is known.
func (e *Engine) SendReply(ctx context.Context, channel ref.ChannelName, content, replyToID string) bool {
	return e.send(ctx, ChannelConversation(channel), KindReply, content, replyToID)
}

// SendDirectMessage sends a 1:1 message to peer.
func (e *Engine) SendDirectMessage(ctx context.Context, peer ref.AgentID, content string) bool {
	return e.send(ctx, DirectConversation(peer), KindDirect, content, "")
}

// send is the optimistic send pipeline: validate, insert provisional,
// deliver, commit or fail.
func (e *Engine) send(ctx context.Context, key ConversationKey, kind Kind, content, replyToID string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	if e.transport == nil {
		e.logger.Debug("send rejected, no transport bound", "conversation", key.String())
		return false
	}

	tempID := NewTempID()
	message := &Message{
		ID:           tempID,
		TempID:       tempID,
		Sender:       e.localAgent,
		Timestamp:    e.clock.Now(),
		Content:      content,
		Kind:         kind,
		Conversation: key,
		Status:       StatusSending,
		Optimistic:   true,
	}
	if kind == KindReply {
		message.ReplyToID = replyToID
		message.ThreadLevel = 1
	}

	e.mu.Lock()
	// The shared append path runs full dedup even for local inserts,
	// guarding against re-entrant calls inserting the same send twice.
	entry, appended := e.store.Append(message)
	e.mu.Unlock()
	if !appended {
		e.logger.Warn("optimistic insert deduplicated",
			"conversation", key.String(),
			"existing_id", entry.ID,
		)
		return false
	}

	return e.deliver(ctx, tempID, key, kind, content, replyToID)
}

// Retry re-drives a previously failed send through the pipeline with
// its original content, conversation, and reply target. id may be the
// temporary or the confirmed ID. Strictly user-triggered: no backoff,
// no retry cap, at most one delivery attempt per call.
func (e *Engine) Retry(ctx context.Context, id string) bool {
	if e.transport == nil {
		e.logger.Debug("retry rejected, no transport bound", "message_id", id)
		return false
	}

	e.mu.Lock()
	message, ok := e.store.Get(id)
	if !ok {
		e.mu.Unlock()
		e.logger.Warn("retry target not found", "message_id", id)
		return false
	}
	if message.Status != StatusFailed {
		e.mu.Unlock()
		e.logger.Warn("retry target is not a failed send",
			"message_id", id,
			"status", message.Status,
		)
		return false
	}
	currentID := message.ID
	key := message.Conversation
	kind := message.Kind
	content := message.Content
	replyToID := message.ReplyToID
	e.store.MarkSending(currentID)
	e.mu.Unlock()

	return e.deliver(ctx, currentID, key, kind, content, replyToID)
}

// deliver invokes the Transport for the entry identified by id and
// applies the outcome: commit with ID replacement, plain sent, or
// failed. The engine mutex is released across the transport call; the
// call is a suspension point and further user actions must not block
// on it.
func (e *Engine) deliver(ctx context.Context, id string, key ConversationKey, kind Kind, content, replyToID string) bool {
	e.mu.Lock()
	descriptor := e.buildDescriptor(key, kind, content, replyToID)
	e.mu.Unlock()

	result, err := e.transport.SendEvent(ctx, descriptor)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.store.MarkFailed(id)
		e.store.SetError(key, "message could not be sent: "+err.Error())
		e.logger.Warn("send failed",
			"conversation", key.String(),
			"message_id", id,
			"error", err,
		)
		return false
	}
	if result.Rejected() {
		e.store.MarkFailed(id)
		reason := result.Message
		if reason == "" {
			reason = "rejected by gateway"
		}
		e.store.SetError(key, "message could not be sent: "+reason)
		e.logger.Warn("send rejected",
			"conversation", key.String(),
			"message_id", id,
			"reason", reason,
		)
		return false
	}

	if confirmedID := result.ConfirmedID(); confirmedID != "" {
		if committed := e.store.Commit(id, confirmedID); committed != nil && committed.TempID != "" {
			e.remap.Record(committed.TempID, confirmedID)
		}
	} else {
		// No ID in the response: mark sent but keep the temporary ID.
		// Reconciliation picks up the confirmed ID later, if ever, via
		// the content heuristic.
		e.store.MarkSent(id)
	}
	e.store.ClearError(key)
	return true
}

// buildDescriptor assembles the wire envelope for one send. Message
// references travel in confirmed form when the remap table knows one.
func (e *Engine) buildDescriptor(key ConversationKey, kind Kind, content, replyToID string) EventDescriptor {
	descriptor := EventDescriptor{
		SourceID: e.localAgent,
		Payload:  map[string]any{"content": content},
	}
	switch kind {
	case KindDirect:
		descriptor.EventName = EventDirectSend
		descriptor.DestinationID = key.Peer.String()
	case KindReply:
		descriptor.EventName = EventReplyPost
		descriptor.DestinationID = key.Channel.String()
		descriptor.Payload["channel"] = key.Channel.String()
		descriptor.Payload["reply_to_id"] = e.remap.Resolve(replyToID)
		descriptor.Payload["thread_level"] = 1
	default:
		descriptor.EventName = EventChannelPost
		descriptor.DestinationID = key.Channel.String()
		descriptor.Payload["channel"] = key.Channel.String()
	}
	return descriptor
}
