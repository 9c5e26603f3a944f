// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"

	"github.com/parleyhq/parley/lib/ref"
)

// RequestChannelList asks the gateway for the channels visible to the
// local agent. The reply arrives on the notification stream as a
// channel list and is reconciled there; the return value only reports
// whether the request was accepted.
func (e *Engine) RequestChannelList(ctx context.Context) bool {
	return e.request(ctx, EventDescriptor{
		EventName: EventChannelList,
		SourceID:  e.localAgent,
	})
}

// RequestChannelHistory asks the gateway for the recent message batch
// of one channel. Messages arrive on the notification stream.
func (e *Engine) RequestChannelHistory(ctx context.Context, channel ref.ChannelName) bool {
	return e.request(ctx, EventDescriptor{
		EventName:     EventMessagesGet,
		SourceID:      e.localAgent,
		DestinationID: channel.String(),
		Payload:       map[string]any{"channel": channel.String()},
	})
}

// RequestDirectHistory asks the gateway for the recent 1:1 batch with
// peer. Messages arrive on the notification stream.
func (e *Engine) RequestDirectHistory(ctx context.Context, peer ref.AgentID) bool {
	return e.request(ctx, EventDescriptor{
		EventName:     EventDirectMessages,
		SourceID:      e.localAgent,
		DestinationID: peer.String(),
	})
}

// request fires a retrieval event. Unlike sends these never touch the
// store: there is nothing to insert optimistically, and the response
// lands through reconciliation like any other notification.
func (e *Engine) request(ctx context.Context, descriptor EventDescriptor) bool {
	if e.transport == nil {
		e.logger.Debug("request rejected, no transport bound", "event", descriptor.EventName)
		return false
	}
	result, err := e.transport.SendEvent(ctx, descriptor)
	if err != nil {
		e.logger.Warn("request failed", "event", descriptor.EventName, "error", err)
		return false
	}
	if result.Rejected() {
		e.logger.Warn("request rejected", "event", descriptor.EventName, "reason", result.Message)
		return false
	}
	return true
}
