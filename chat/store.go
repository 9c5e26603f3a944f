// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"sort"
	"time"
)

// Store holds every conversation's message sequence. Messages live in
// an arena keyed by their current ID; each conversation is an ordered
// list of IDs into the arena, so ID lookup is O(1) instead of a scan
// across conversations. An alias table maps superseded IDs (the
// provisional ID after a commit) to current IDs, so references created
// before confirmation keep resolving.
//
// Store is not safe for concurrent use. The Engine serializes access
// behind its mutex; readers get copies, never arena pointers.
type Store struct {
	window time.Duration

	arena map[string]*Message          // current ID → entry
	order map[ConversationKey][]string // insertion-ordered current IDs
	alias map[string]string            // superseded ID → current ID
	print map[string]fingerprint       // current ID → dedup fingerprint

	// lastError holds the most recent conversation-scoped failure
	// message, cleared by the next successful send.
	lastError map[ConversationKey]string
}

// NewStore creates an empty store. window is the time span inside
// which the content-heuristic dedup tier treats same-origin,
// same-content messages as duplicates.
func NewStore(window time.Duration) *Store {
	return &Store{
		window:    window,
		arena:     make(map[string]*Message),
		order:     make(map[ConversationKey][]string),
		alias:     make(map[string]string),
		print:     make(map[string]fingerprint),
		lastError: make(map[ConversationKey]string),
	}
}

// Append inserts message into its conversation after running the
// three-tier idempotence check against that conversation's existing
// entries:
//
//  1. exact ID match (current or superseded ID),
//  2. temp-ID match (both non-empty and equal),
//  3. same content fingerprint (kind, sender, content) with
//     timestamps inside the dedup window.
//
// On a match the insertion is a no-op and the existing entry is
// returned with appended=false. Otherwise the message is appended at
// the conversation tail. Every insertion path, optimistic send and
// inbound notification alike, goes through Append, so re-entrant
// sends and stream echoes cannot double-insert.
func (s *Store) Append(message *Message) (entry *Message, appended bool) {
	key := message.Conversation

	// IDs are unique across the arena, not just per conversation, so an
	// exact match anywhere is a duplicate. This also protects the arena
	// from an entry overwrite if a misbehaving gateway reuses an ID
	// across conversations.
	if existing := s.lookup(message.ID); existing != nil {
		return existing, false
	}

	incoming := messageFingerprint(message.Kind, message.Sender, message.Content)
	for _, id := range s.order[key] {
		existing := s.arena[id]
		if message.TempID != "" && existing.TempID != "" && message.TempID == existing.TempID {
			return existing, false
		}
		if s.print[id] == incoming && withinWindow(existing.Timestamp, message.Timestamp, s.window) {
			return existing, false
		}
	}

	s.arena[message.ID] = message
	s.order[key] = append(s.order[key], message.ID)
	s.print[message.ID] = incoming
	return message, true
}

// Commit replaces a provisional entry's ID with the confirmed ID and
// marks it sent. The provisional ID remains resolvable as an alias and
// is retained in TempID for back-reference. Returns the entry, or nil
// if id is unknown.
func (s *Store) Commit(id, confirmedID string) *Message {
	message := s.lookup(id)
	if message == nil {
		return nil
	}
	if confirmedID != "" && confirmedID != message.ID {
		previous := message.ID
		delete(s.arena, previous)
		s.arena[confirmedID] = message
		s.print[confirmedID] = s.print[previous]
		delete(s.print, previous)
		s.alias[previous] = confirmedID

		ids := s.order[message.Conversation]
		for i, existing := range ids {
			if existing == previous {
				ids[i] = confirmedID
				break
			}
		}
		if message.TempID == "" {
			message.TempID = previous
		}
		message.ID = confirmedID
	}
	message.Status = StatusSent
	message.Optimistic = false
	return message
}

// MarkSent transitions an entry to sent without an ID replacement,
// the accepted edge case where the gateway confirmed the send but
// returned no ID. The entry keeps its temporary ID (and stays
// optimistic) until reconciliation, if ever, supplies one.
func (s *Store) MarkSent(id string) *Message {
	message := s.lookup(id)
	if message == nil {
		return nil
	}
	message.Status = StatusSent
	return message
}

// MarkFailed transitions an entry to failed. The entry is not removed;
// it stays visible for user-initiated retry.
func (s *Store) MarkFailed(id string) *Message {
	message := s.lookup(id)
	if message == nil {
		return nil
	}
	message.Status = StatusFailed
	return message
}

// MarkSending resets an entry to sending ahead of a retry.
func (s *Store) MarkSending(id string) *Message {
	message := s.lookup(id)
	if message == nil {
		return nil
	}
	message.Status = StatusSending
	return message
}

// Get returns the entry for id, resolving superseded IDs through the
// alias table. The returned pointer is live arena state; callers
// mutate it only under the engine mutex.
func (s *Store) Get(id string) (*Message, bool) {
	message := s.lookup(id)
	return message, message != nil
}

// FindByAnyID locates an entry matching any of the candidate IDs, in
// order. Channel conversations are not privileged here: IDs are unique
// across the arena, so the first candidate with an entry wins.
func (s *Store) FindByAnyID(candidates ...string) (*Message, bool) {
	for _, id := range candidates {
		if id == "" {
			continue
		}
		if message := s.lookup(id); message != nil {
			return message, true
		}
	}
	return nil, false
}

// Messages returns a copy of the conversation's entries in insertion
// order. The copies are safe to hand to UI code.
func (s *Store) Messages(key ConversationKey) []Message {
	ids := s.order[key]
	messages := make([]Message, 0, len(ids))
	for _, id := range ids {
		messages = append(messages, copyMessage(s.arena[id]))
	}
	return messages
}

// Conversations returns all conversation keys, channels first, each
// group sorted by name for stable display.
func (s *Store) Conversations() []ConversationKey {
	var channels, direct []ConversationKey
	for key := range s.order {
		if key.IsDirect() {
			direct = append(direct, key)
		} else {
			channels = append(channels, key)
		}
	}
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].Channel.String() < channels[j].Channel.String()
	})
	sort.Slice(direct, func(i, j int) bool {
		return direct[i].Peer.String() < direct[j].Peer.String()
	})
	return append(channels, direct...)
}

// EnsureConversation registers an empty conversation so it appears in
// Conversations before any message arrives (channel list responses).
func (s *Store) EnsureConversation(key ConversationKey) {
	if _, ok := s.order[key]; !ok {
		s.order[key] = nil
	}
}

// Reset removes a conversation and all its entries.
func (s *Store) Reset(key ConversationKey) {
	for _, id := range s.order[key] {
		delete(s.arena, id)
		delete(s.print, id)
	}
	for superseded, current := range s.alias {
		if _, ok := s.arena[current]; !ok {
			delete(s.alias, superseded)
		}
	}
	delete(s.order, key)
	delete(s.lastError, key)
}

// SetError records a conversation-scoped failure message.
func (s *Store) SetError(key ConversationKey, message string) {
	s.lastError[key] = message
}

// ClearError removes the conversation's failure message.
func (s *Store) ClearError(key ConversationKey) {
	delete(s.lastError, key)
}

// Error returns the conversation's most recent failure message, or "".
func (s *Store) Error(key ConversationKey) string {
	return s.lastError[key]
}

// lookup resolves id through the alias table to the live entry.
func (s *Store) lookup(id string) *Message {
	if id == "" {
		return nil
	}
	if message, ok := s.arena[id]; ok {
		return message
	}
	if current, ok := s.alias[id]; ok {
		return s.arena[current]
	}
	return nil
}

// restore inserts an entry without dedup, used by snapshot loading
// where order and IDs are already authoritative.
func (s *Store) restore(message *Message) {
	s.arena[message.ID] = message
	s.order[message.Conversation] = append(s.order[message.Conversation], message.ID)
	s.print[message.ID] = messageFingerprint(message.Kind, message.Sender, message.Content)
	if message.TempID != "" && message.TempID != message.ID {
		s.alias[message.TempID] = message.ID
	}
}

func withinWindow(a, b time.Time, window time.Duration) bool {
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	return delta <= window
}

func copyMessage(message *Message) Message {
	duplicate := *message
	if message.Reactions != nil {
		duplicate.Reactions = make(map[string]int, len(message.Reactions))
		for reaction, count := range message.Reactions {
			duplicate.Reactions[reaction] = count
		}
	}
	return duplicate
}
