// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
)

// pendingReaction records one in-flight reaction mutation, keyed by a
// mutation ID issued at the moment the optimistic delta was applied.
// Rollback is matched by mutation ID, never by message ID alone: two
// mutations on the same message can be in flight at once, and undoing
// "the last delta" when the first one fails would corrupt the second.
// The record carries the pre-mutation snapshot, so rollback restores
// exactly the state the failed mutation saw.
type pendingReaction struct {
	mutationID string
	messageID  string // current ID at issue time
	reaction   string
	action     string // ReactionAdded or ReactionRemoved
	prevCount  int    // count before the delta
	hadKey     bool   // whether the reaction key existed before
}

// AddReaction applies an optimistic +1 for reaction on the message and
// asks the gateway to record it. messageID may be temporary or
// confirmed. Returns false when the message is unknown, no transport
// is bound, or the gateway refuses. In the last case the delta is
// rolled back exactly.
func (e *Engine) AddReaction(ctx context.Context, messageID, reaction string) bool {
	return e.react(ctx, messageID, reaction, ReactionAdded)
}

// RemoveReaction is the inverse of AddReaction: optimistic decrement
// (deleting the key at zero), gateway call, rollback on refusal. A
// removal for a reaction the message does not carry returns false
// without touching the wire.
func (e *Engine) RemoveReaction(ctx context.Context, messageID, reaction string) bool {
	return e.react(ctx, messageID, reaction, ReactionRemoved)
}

func (e *Engine) react(ctx context.Context, messageID, reaction, action string) bool {
	if reaction == "" {
		return false
	}
	if e.transport == nil {
		e.logger.Debug("reaction rejected, no transport bound", "message_id", messageID)
		return false
	}

	e.mu.Lock()
	// The wire only understands confirmed IDs; a temporary ID with a
	// known mapping resolves, an unmapped one passes through unchanged.
	wireID := e.remap.Resolve(messageID)
	message, ok := e.store.FindByAnyID(messageID, wireID)
	if !ok {
		e.mu.Unlock()
		e.logger.Warn("reaction target not found", "message_id", messageID, "reaction", reaction)
		return false
	}

	var prevCount int
	var hadKey bool
	if message.Reactions != nil {
		prevCount, hadKey = message.Reactions[reaction]
	}
	if action == ReactionRemoved && !hadKey {
		e.mu.Unlock()
		e.logger.Debug("reaction removal with nothing to remove",
			"message_id", messageID,
			"reaction", reaction,
		)
		return false
	}

	switch action {
	case ReactionAdded:
		if message.Reactions == nil {
			message.Reactions = make(map[string]int)
		}
		message.Reactions[reaction]++
	case ReactionRemoved:
		if hadKey {
			if prevCount <= 1 {
				delete(message.Reactions, reaction)
			} else {
				message.Reactions[reaction] = prevCount - 1
			}
		}
	}

	op := &pendingReaction{
		mutationID: newMutationID(),
		messageID:  message.ID,
		reaction:   reaction,
		action:     action,
		prevCount:  prevCount,
		hadKey:     hadKey,
	}
	e.pending[op.mutationID] = op

	descriptor := EventDescriptor{
		EventName: EventReactionAdd,
		SourceID:  e.localAgent,
		Payload: map[string]any{
			"target_message_id": wireID,
			"reaction_type":     reaction,
			"action":            action,
		},
	}
	if action == ReactionRemoved {
		descriptor.EventName = EventReactionRemove
	}
	e.mu.Unlock()

	result, err := e.transport.SendEvent(ctx, descriptor)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil || result.Rejected() {
		e.rollbackReaction(op)
		e.logger.Warn("reaction rejected, rolled back",
			"message_id", messageID,
			"reaction", reaction,
			"action", action,
			"error", err,
		)
		return false
	}

	// The op may already be gone: a reaction notification that raced
	// the response has authoritative state, and this response must not
	// disturb it.
	if _, inFlight := e.pending[op.mutationID]; inFlight {
		delete(e.pending, op.mutationID)
		if counts, ok := result.AuthoritativeReactions(); ok {
			if target, found := e.store.Get(op.messageID); found {
				target.Reactions = counts
			}
		}
		// No authoritative map in the response: the optimistic state
		// stands uncorrected.
	}
	return true
}

// rollbackReaction restores the pre-mutation count for exactly the
// mutation that failed. A no-op when the registry entry was already
// cleared by an authoritative reaction notification.
func (e *Engine) rollbackReaction(op *pendingReaction) {
	if _, inFlight := e.pending[op.mutationID]; !inFlight {
		return
	}
	delete(e.pending, op.mutationID)

	message, ok := e.store.Get(op.messageID)
	if !ok {
		return
	}
	if op.hadKey {
		if message.Reactions == nil {
			message.Reactions = make(map[string]int)
		}
		message.Reactions[op.reaction] = op.prevCount
	} else if message.Reactions != nil {
		delete(message.Reactions, op.reaction)
	}
}

// clearPendingFor drops every in-flight mutation record targeting the
// message. Called when a reaction notification lands: the notification
// total is authoritative, and a late failure response for a superseded
// mutation must not roll it back. Ops are matched against the current
// ID and the temporary ID both; an op recorded before a commit renamed
// the entry still carries the provisional ID.
func (e *Engine) clearPendingFor(message *Message) {
	for mutationID, op := range e.pending {
		if op.messageID == message.ID || (message.TempID != "" && op.messageID == message.TempID) {
			delete(e.pending, mutationID)
		}
	}
}
