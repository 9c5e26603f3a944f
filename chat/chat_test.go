// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/parleyhq/parley/lib/clock"
	"github.com/parleyhq/parley/lib/ref"
)

// testEpoch is the fake clock's starting point for all engine tests.
var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	localAgent = ref.MustParseAgentID("local-agent")
	peerAgent  = ref.MustParseAgentID("peer-agent")
	general    = ref.MustParseChannelName("general")
)

// scriptedTransport records every descriptor and answers from a
// caller-supplied script. A nil script accepts everything with a bare
// success envelope.
type scriptedTransport struct {
	mu     sync.Mutex
	calls  []EventDescriptor
	script func(EventDescriptor) (*SendResult, error)
}

func (t *scriptedTransport) SendEvent(_ context.Context, descriptor EventDescriptor) (*SendResult, error) {
	t.mu.Lock()
	t.calls = append(t.calls, descriptor)
	script := t.script
	t.mu.Unlock()
	if script == nil {
		return &SendResult{Success: true}, nil
	}
	return script(descriptor)
}

func (t *scriptedTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

func (t *scriptedTransport) lastCall(test *testing.T) EventDescriptor {
	test.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.calls) == 0 {
		test.Fatal("no transport calls recorded")
	}
	return t.calls[len(t.calls)-1]
}

// newTestEngine builds an engine on a fake clock with the given
// transport. Extra options mutate the defaults before construction.
func newTestEngine(t *testing.T, transport Transport, adjust ...func(*Options)) (*Engine, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(testEpoch)
	options := Options{
		LocalAgent: localAgent,
		Transport:  transport,
		Clock:      fake,
	}
	for _, fn := range adjust {
		fn(&options)
	}
	engine, err := NewEngine(options)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine, fake
}

// confirmWith returns a script that accepts every send and confirms it
// under the given ID via the data payload.
func confirmWith(id string) func(EventDescriptor) (*SendResult, error) {
	return func(EventDescriptor) (*SendResult, error) {
		return &SendResult{Success: true, Data: map[string]any{"message_id": id}}, nil
	}
}
