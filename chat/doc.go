// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat is the client-side state engine for a multi-channel and
// direct-message chat surface with reactions.
//
// The engine applies every user action optimistically (a sent message
// or a reaction delta appears in local state before the gateway
// confirms it) and reconciles that provisional state against the
// asynchronous notification stream. The hard parts all live here:
// temporary-ID issuance, provisional insertion, deduplication of
// server echoes against optimistic entries, temp-to-confirmed ID
// remapping, reaction rollback scoped to the exact mutation that
// failed, and user-triggered retry of failed sends.
//
// [Engine] is the single entry point. Construct one with [NewEngine],
// injecting a [Transport] (the gateway send path) and feeding
// [Engine.HandleNotification] from the notification stream. Outbound
// flow: user action → provisional insert → Transport → commit or fail.
// Inbound flow: notification → reconciliation → conversation store.
// The [RemapTable] and the three-tier dedup in [Store.Append] bridge
// the two flows.
//
// Engine operations that correspond to user actions (send, retry, add
// or remove reaction) return a boolean: nothing at this layer is fatal,
// every failure recovers local state to a retriable or pre-mutation
// form, and the UI consumes the conversation-scoped error string for
// detail. The failure taxonomy:
//
//   - no transport bound: rejected immediately, no state mutated
//   - transport reports failure, or the call errors: provisional
//     message marked failed, conversation error set
//   - reaction rejected (including success=true responses carrying
//     data.success=false): rollback of exactly the failed mutation
//   - unknown message or conversation: logged, operation is a no-op
//
// Concurrency: the engine serializes all state transitions behind one
// mutex. Transport calls are made with the mutex released, the only
// suspension points, so further sends and reactions proceed
// while a call is outstanding. Readers receive copied snapshots.
// Within one conversation, insertion order is the only ordering
// guarantee; nothing reorders by timestamp.
package chat
