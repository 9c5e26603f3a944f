// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway connects the chat engine to a Parley gateway: an
// HTTP client for outbound event submission and a websocket stream
// for inbound notifications.
//
// The Client satisfies chat.Transport and is the production
// implementation injected into chat.NewEngine. The Stream reads
// notification frames and hands each one to a caller-supplied
// handler, reconnecting with backoff when the connection drops.
package gateway
