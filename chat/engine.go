// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parleyhq/parley/lib/clock"
	"github.com/parleyhq/parley/lib/ref"
)

// DefaultDedupWindow is the time span inside which the content
// heuristic treats a same-origin, same-content message as a duplicate.
// Two seconds covers the gap between an optimistic insert and the
// stream echoing the same message back.
const DefaultDedupWindow = 2 * time.Second

// Options configures an Engine.
type Options struct {
	// LocalAgent is the local user's identity. Required: direct-message
	// reconciliation keys conversations by comparing the notification
	// sender against it.
	LocalAgent ref.AgentID

	// Transport is the outbound gateway contract. May be nil, in which
	// case every send and reaction is rejected without mutating state.
	Transport Transport

	// Clock supplies time for optimistic timestamps and the dedup
	// window. Nil means the real clock.
	Clock clock.Clock

	// Logger receives structured engine logs. Nil means slog.Default().
	Logger *slog.Logger

	// DedupWindow overrides DefaultDedupWindow when positive.
	DedupWindow time.Duration

	// AdoptSelfEcho enables ID adoption: when an inbound notification
	// dedup-matches an optimistic entry authored by LocalAgent, the
	// entry takes on the notification's server ID (and the mapping is
	// recorded) instead of the echo being dropped outright. Off by
	// default; the shipped behavior relies on dedup alone.
	AdoptSelfEcho bool
}

// Engine is the chat state engine. All mutation goes through its
// methods; the UI reads snapshots via Conversation, Conversations, and
// ConversationError.
type Engine struct {
	localAgent    ref.AgentID
	transport     Transport
	clock         clock.Clock
	logger        *slog.Logger
	adoptSelfEcho bool

	mu      sync.Mutex
	store   *Store
	remap   *RemapTable
	pending map[string]*pendingReaction // mutation ID → in-flight reaction op
}

// NewEngine constructs an Engine. The Transport is injected here;
// the engine holds no global connection state.
func NewEngine(options Options) (*Engine, error) {
	if options.LocalAgent.IsZero() {
		return nil, fmt.Errorf("chat: LocalAgent is required")
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := options.DedupWindow
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Engine{
		localAgent:    options.LocalAgent,
		transport:     options.Transport,
		clock:         clk,
		logger:        logger,
		adoptSelfEcho: options.AdoptSelfEcho,
		store:         NewStore(window),
		remap:         NewRemapTable(),
		pending:       make(map[string]*pendingReaction),
	}, nil
}

// LocalAgent returns the local user's identity.
func (e *Engine) LocalAgent() ref.AgentID { return e.localAgent }

// Conversation returns a copy of the conversation's messages in
// insertion order.
func (e *Engine) Conversation(key ConversationKey) []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Messages(key)
}

// Conversations returns all known conversation keys, channels first.
func (e *Engine) Conversations() []ConversationKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Conversations()
}

// ConversationError returns the conversation's most recent failure
// message, or "" when the last send succeeded.
func (e *Engine) ConversationError(key ConversationKey) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Error(key)
}

// Message returns a copy of the entry matching id (temporary or
// confirmed).
func (e *Engine) Message(id string) (Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if message, ok := e.store.Get(id); ok {
		return copyMessage(message), true
	}
	return Message{}, false
}

// Remap returns the confirmed ID recorded for a provisional ID.
// Exposed for UI code that needs to follow a reference it captured
// before confirmation.
func (e *Engine) Remap(tempID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remap.Confirmed(tempID)
}

// ResetConversation drops a conversation and all its messages. The
// only path that deletes messages.
func (e *Engine) ResetConversation(key ConversationKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Reset(key)
}
