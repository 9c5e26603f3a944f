// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"time"

	"github.com/parleyhq/parley/lib/ref"
)

// HandleNotification consumes one event from the notification stream
// and reconciles it with local state. Unknown event names are logged
// and dropped; nothing here returns an error. The stream is
// fire-and-forget and every malformed notification degrades to a
// logged no-op.
func (e *Engine) HandleNotification(notification Notification) {
	switch notification.EventName {
	case NotifyChannelMessage:
		e.reconcileChannelMessage(notification, KindChannel)
	case NotifyReply:
		e.reconcileChannelMessage(notification, KindReply)
	case NotifyDirectMessage:
		e.reconcileDirectMessage(notification)
	case NotifyReaction:
		e.reconcileReaction(notification)
	case NotifyChannelList:
		e.reconcileChannelList(notification)
	case NotifyMessages:
		e.reconcileHistory(notification, false)
	case NotifyDirectHistory:
		e.reconcileHistory(notification, true)
	default:
		e.logger.Debug("unhandled notification", "event_name", notification.EventName)
	}
}

// reconcileChannelMessage appends an inbound channel message or reply
// through the shared dedup path.
func (e *Engine) reconcileChannelMessage(notification Notification, kind Kind) {
	channel, err := ref.ParseChannelName(payloadString(notification.Payload, "channel"))
	if err != nil {
		e.logger.Warn("channel notification without channel", "error", err)
		return
	}
	message, ok := e.messageFromNotification(notification, kind, ChannelConversation(channel))
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appendInbound(message)
}

// reconcileDirectMessage appends an inbound 1:1 message. Both legs of
// a conversation share one sequence keyed by the peer: when the local
// agent authored the message (an echo of its own send from another
// device or the stream), the key is the notified destination; for a
// message from someone else, the key is the sender.
func (e *Engine) reconcileDirectMessage(notification Notification) {
	sender := notification.Sender()
	peerRaw := sender
	if sender == e.localAgent.String() {
		peerRaw = payloadString(notification.Payload, "destination_id")
		if peerRaw == "" {
			peerRaw = payloadString(notification.Payload, "peer_id")
		}
	}
	peer, err := ref.ParseAgentID(peerRaw)
	if err != nil {
		e.logger.Warn("direct notification without peer", "error", err)
		return
	}
	message, ok := e.messageFromNotification(notification, KindDirect, DirectConversation(peer))
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appendInbound(message)
}

// reconcileReaction applies an authoritative reaction total from the
// stream. The target is searched under the notified ID and, through
// the remap table, under the temporary ID it may have replaced. A
// target that is not locally loaded is dropped; reactions on
// messages outside the local window are accepted as lossy.
func (e *Engine) reconcileReaction(notification Notification) {
	targetID := payloadString(notification.Payload, "target_message_id")
	reaction := payloadString(notification.Payload, "reaction_type")
	action := payloadString(notification.Payload, "action")
	if targetID == "" || reaction == "" {
		e.logger.Warn("reaction notification missing fields")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	candidates := []string{targetID}
	if provisional, ok := e.remap.Provisional(targetID); ok {
		candidates = append(candidates, provisional)
	}
	message, found := e.store.FindByAnyID(candidates...)
	if !found {
		e.logger.Info("reaction for unknown message dropped",
			"target_message_id", targetID,
			"reaction", reaction,
		)
		return
	}

	total, hasTotal := payloadInt(notification.Payload, "total_reactions")
	switch action {
	case ReactionRemoved:
		if !hasTotal || total <= 0 {
			delete(message.Reactions, reaction)
		} else {
			setReaction(message, reaction, total)
		}
	default:
		// Added. Without a total there is nothing authoritative to
		// apply; the optimistic count (if any) stands.
		if hasTotal {
			setReaction(message, reaction, total)
		}
	}

	// The notified total supersedes any in-flight local mutation on
	// this message; a late failure response must not roll it back.
	e.clearPendingFor(message)
}

// reconcileChannelList registers conversations for every channel in a
// list response, so the UI can show channels before any message flows.
func (e *Engine) reconcileChannelList(notification Notification) {
	channels, ok := notification.Payload["channels"].([]any)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, raw := range channels {
		name := ""
		switch v := raw.(type) {
		case string:
			name = v
		case map[string]any:
			name, _ = v["name"].(string)
		}
		channel, err := ref.ParseChannelName(name)
		if err != nil {
			continue
		}
		e.store.EnsureConversation(ChannelConversation(channel))
	}
}

// reconcileHistory appends a retrieved message batch through the
// shared dedup path, preserving the server's order.
func (e *Engine) reconcileHistory(notification Notification, direct bool) {
	var key ConversationKey
	if direct {
		peer, err := ref.ParseAgentID(payloadString(notification.Payload, "peer_id"))
		if err != nil {
			e.logger.Warn("direct history without peer", "error", err)
			return
		}
		key = DirectConversation(peer)
	} else {
		channel, err := ref.ParseChannelName(payloadString(notification.Payload, "channel"))
		if err != nil {
			e.logger.Warn("channel history without channel", "error", err)
			return
		}
		key = ChannelConversation(channel)
	}

	batch, ok := notification.Payload["messages"].([]any)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.EnsureConversation(key)
	for _, raw := range batch {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		embedded := Notification{
			EventName: notification.EventName,
			SourceID:  payloadString(fields, "source_id"),
			SenderID:  payloadString(fields, "sender_id"),
			Payload:   fields,
			Timestamp: payloadString(fields, "timestamp"),
			EventID:   payloadString(fields, "message_id"),
		}
		kind := KindChannel
		if direct {
			kind = KindDirect
		} else if payloadString(fields, "reply_to_id") != "" {
			kind = KindReply
		}
		if message, built := e.messageFromNotification(embedded, kind, key); built {
			e.appendInbound(message)
		}
	}
}

// messageFromNotification normalizes an inbound event into a Message.
// Returns false when the sender is missing or malformed.
func (e *Engine) messageFromNotification(notification Notification, kind Kind, key ConversationKey) (*Message, bool) {
	sender, err := ref.ParseAgentID(notification.Sender())
	if err != nil {
		e.logger.Warn("notification without sender", "event_name", notification.EventName, "error", err)
		return nil, false
	}

	id := payloadString(notification.Payload, "message_id")
	if id == "" {
		id = notification.EventID
	}
	if id == "" {
		// No server ID at all: issue a local one. Dedup against an
		// optimistic twin still works through the content tier.
		id = NewTempID()
	}

	message := &Message{
		ID:           id,
		Sender:       sender,
		Timestamp:    e.notificationTime(notification.Timestamp),
		Content:      contentText(notification.Payload["content"]),
		Kind:         kind,
		Conversation: key,
		Status:       StatusSent,
	}
	if kind == KindReply {
		message.ReplyToID = payloadString(notification.Payload, "reply_to_id")
		message.ThreadLevel = payloadIntOr(notification.Payload, "thread_level", 1)
	}
	if counts, ok := reactionCounts(notification.Payload["reactions"]); ok && len(counts) > 0 {
		message.Reactions = counts
	}
	return message, true
}

// appendInbound runs the shared dedup append for a notification-built
// message and, when self-echo adoption is enabled, confers the
// server's ID onto the optimistic twin the dedup matched. Callers hold
// the engine mutex.
func (e *Engine) appendInbound(message *Message) {
	entry, appended := e.store.Append(message)
	if appended {
		return
	}
	if !e.adoptSelfEcho {
		return
	}
	// Adoption: the echo matched an existing entry. Only a still
	// optimistic entry of our own, matched by an echo carrying a real
	// server ID, has anything to adopt.
	if !entry.Optimistic || entry.Sender != e.localAgent || IsTempID(message.ID) || message.ID == entry.ID {
		return
	}
	if committed := e.store.Commit(entry.ID, message.ID); committed != nil && committed.TempID != "" {
		e.remap.Record(committed.TempID, committed.ID)
	}
}

// notificationTime parses an RFC 3339 timestamp, falling back to the
// local clock so a missing timestamp still lands inside the dedup
// window of its optimistic twin.
func (e *Engine) notificationTime(timestamp string) time.Time {
	if timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, timestamp); err == nil {
			return parsed
		}
	}
	return e.clock.Now()
}

// contentText extracts a message body from a payload field that may be
// a plain string or an object with a text/body field.
func contentText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
		if body, ok := v["body"].(string); ok {
			return body
		}
	}
	return ""
}

func payloadString(payload map[string]any, field string) string {
	value, _ := payload[field].(string)
	return value
}

func payloadInt(payload map[string]any, field string) (int, bool) {
	switch v := payload[field].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	}
	return 0, false
}

func payloadIntOr(payload map[string]any, field string, fallback int) int {
	if value, ok := payloadInt(payload, field); ok {
		return value
	}
	return fallback
}

func setReaction(message *Message, reaction string, total int) {
	if total <= 0 {
		delete(message.Reactions, reaction)
		return
	}
	if message.Reactions == nil {
		message.Reactions = make(map[string]int)
	}
	message.Reactions[reaction] = total
}
