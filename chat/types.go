// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"time"

	"github.com/parleyhq/parley/lib/ref"
)

// Kind classifies a message within its conversation.
type Kind string

const (
	// KindChannel is a plain message posted to a channel.
	KindChannel Kind = "channel"
	// KindDirect is a 1:1 message between two agents.
	KindDirect Kind = "direct"
	// KindReply is a threaded reply to an earlier channel message.
	KindReply Kind = "reply"
)

// Status is the delivery state of a message.
type Status string

const (
	// StatusSending means the transport call is outstanding (or was
	// never answered). A sending message stays sending indefinitely if
	// no response arrives; timeouts are a transport concern.
	StatusSending Status = "sending"
	// StatusSent means the gateway accepted the message.
	StatusSent Status = "sent"
	// StatusFailed means the send was rejected or errored. The entry
	// stays visible, marked failed, for user-initiated retry.
	StatusFailed Status = "failed"
)

// Message is one entry in a conversation. Messages are created either
// locally by the send pipeline (optimistic, status sending) or by the
// reconciliation engine from an inbound notification (status sent).
// They are mutated in place by commit, failure, retry, and reaction
// updates, and never deleted except by full conversation reset.
type Message struct {
	// ID is the message identifier: a temporary "local-" ID until the
	// gateway confirms, then the confirmed server ID.
	ID string `json:"id"`

	// TempID is the original provisional ID, retained after
	// confirmation so later references to either ID resolve to this
	// entry. Empty for messages that arrived via notification.
	TempID string `json:"temp_id,omitempty"`

	// Sender is the authoring agent.
	Sender ref.AgentID `json:"sender_id"`

	// Timestamp is the message creation time (local clock for
	// optimistic entries, notification timestamp for inbound ones).
	Timestamp time.Time `json:"timestamp"`

	// Content is the plain-text body.
	Content string `json:"content"`

	// Kind classifies the message (channel, direct, reply).
	Kind Kind `json:"kind"`

	// Conversation is the key of the conversation holding the message.
	Conversation ConversationKey `json:"conversation"`

	// ReplyToID is the ID of the message this one replies to. Only set
	// for KindReply.
	ReplyToID string `json:"reply_to_id,omitempty"`

	// ThreadLevel is the reply nesting depth. Zero for top-level
	// messages, one for replies.
	ThreadLevel int `json:"thread_level,omitempty"`

	// Reactions maps reaction type to count. An absent key means zero;
	// counts are never negative.
	Reactions map[string]int `json:"reactions,omitempty"`

	// Status is the delivery state.
	Status Status `json:"status"`

	// Optimistic is true while the entry exists only by local
	// assertion, not yet confirmed by the gateway under a
	// server-assigned ID.
	Optimistic bool `json:"optimistic,omitempty"`
}

// ConversationKey identifies one ordered message sequence: a named
// channel, or a 1:1 conversation keyed by the peer agent. Direct
// conversations are keyed by the peer regardless of which side
// authored a given message, so both legs of a 1:1 share one sequence.
//
// Exactly one of Channel or Peer is set. The zero value is not a valid
// key.
type ConversationKey struct {
	Channel ref.ChannelName `json:"channel,omitzero"`
	Peer    ref.AgentID     `json:"peer,omitzero"`
}

// ChannelConversation returns the key for a named channel.
func ChannelConversation(name ref.ChannelName) ConversationKey {
	return ConversationKey{Channel: name}
}

// DirectConversation returns the key for a 1:1 conversation with peer.
func DirectConversation(peer ref.AgentID) ConversationKey {
	return ConversationKey{Peer: peer}
}

// IsDirect reports whether the key names a 1:1 conversation.
func (k ConversationKey) IsDirect() bool { return !k.Peer.IsZero() }

// IsZero reports whether the key is unset.
func (k ConversationKey) IsZero() bool {
	return k.Channel.IsZero() && k.Peer.IsZero()
}

// String returns "#channel" or "@peer" for logging and display.
func (k ConversationKey) String() string {
	if k.IsDirect() {
		return "@" + k.Peer.String()
	}
	return k.Channel.Display()
}

// Event names sent through the Transport.
const (
	EventChannelPost     = "channel.message.post"
	EventReplyPost       = "channel.reply.post"
	EventDirectSend      = "direct.message.send"
	EventReactionAdd     = "reaction.add"
	EventReactionRemove  = "reaction.remove"
	EventChannelList     = "channel.list"
	EventMessagesGet     = "channel.messages.retrieve"
	EventDirectMessages  = "direct.messages.retrieve"
)

// Notification names delivered by the event stream.
const (
	NotifyChannelMessage = "notify.channel.message"
	NotifyReply          = "notify.channel.reply"
	NotifyDirectMessage  = "notify.direct.message"
	NotifyReaction       = "notify.reaction"
	NotifyChannelList    = "notify.channel.list"
	NotifyMessages       = "notify.channel.messages"
	NotifyDirectHistory  = "notify.direct.messages"
)

// Reaction notification actions.
const (
	ReactionAdded   = "added"
	ReactionRemoved = "removed"
)

// EventDescriptor is the outbound wire envelope the Transport accepts.
type EventDescriptor struct {
	EventName     string         `json:"event_name"`
	SourceID      ref.AgentID    `json:"source_id"`
	DestinationID string         `json:"destination_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// SendResult is the Transport's response envelope.
type SendResult struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	EventID string         `json:"event_id,omitempty"`
}

// ConfirmedID extracts the server-assigned message ID from a result.
// The priority order is fixed: the explicit message ID in the data
// payload, then the top-level event ID, then an event ID nested in the
// data payload. Returns "" when the response carries none; the caller
// keeps the temporary ID and relies on later reconciliation.
func (r *SendResult) ConfirmedID() string {
	if id, ok := r.Data["message_id"].(string); ok && id != "" {
		return id
	}
	if r.EventID != "" {
		return r.EventID
	}
	if id, ok := r.Data["event_id"].(string); ok && id != "" {
		return id
	}
	return ""
}

// Rejected reports whether the result indicates failure, including the
// double-layer shape where the envelope says success but the embedded
// data payload carries success=false.
func (r *SendResult) Rejected() bool {
	if !r.Success {
		return true
	}
	if embedded, ok := r.Data["success"].(bool); ok && !embedded {
		return true
	}
	return false
}

// AuthoritativeReactions extracts a server-provided reaction count map
// from the result data, if present.
func (r *SendResult) AuthoritativeReactions() (map[string]int, bool) {
	raw, ok := r.Data["reactions"]
	if !ok {
		return nil, false
	}
	return reactionCounts(raw)
}

// Transport is the outbound gateway contract. Implementations send one
// event descriptor and report the gateway's verdict. A nil error with
// Rejected()==true means the gateway processed and refused the event;
// a non-nil error means the call itself failed.
type Transport interface {
	SendEvent(ctx context.Context, descriptor EventDescriptor) (*SendResult, error)
}

// Notification is one event delivered by the notification stream.
type Notification struct {
	EventName string         `json:"event_name"`
	SourceID  string         `json:"source_id,omitempty"`
	SenderID  string         `json:"sender_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	EventID   string         `json:"event_id,omitempty"`
}

// Sender returns the authoring agent of the notification, preferring
// source_id and falling back to sender_id. Gateways differ on which
// field they populate.
func (n *Notification) Sender() string {
	if n.SourceID != "" {
		return n.SourceID
	}
	return n.SenderID
}

// reactionCounts coerces a decoded JSON reactions value into a typed
// count map. Non-numeric or negative entries are dropped.
func reactionCounts(raw any) (map[string]int, bool) {
	object, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	counts := make(map[string]int, len(object))
	for reaction, value := range object {
		var count int
		switch v := value.(type) {
		case float64:
			count = int(v)
		case int:
			count = v
		case int64:
			count = int(v)
		case uint64:
			count = int(v)
		default:
			continue
		}
		if count > 0 {
			counts[reaction] = count
		}
	}
	return counts, true
}
