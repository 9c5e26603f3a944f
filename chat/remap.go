// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

// RemapTable associates provisional message IDs with their confirmed
// server IDs, in both directions. Entries are recorded exactly once
// per confirmed send and never removed: a reaction issued against a
// temporary ID must keep resolving for as long as the session lives,
// and an inbound notification addressed by confirmed ID must find a
// message that was inserted under its temporary ID.
type RemapTable struct {
	forward map[string]string // provisional → confirmed
	reverse map[string]string // confirmed → provisional
}

// NewRemapTable creates an empty table.
func NewRemapTable() *RemapTable {
	return &RemapTable{
		forward: make(map[string]string),
		reverse: make(map[string]string),
	}
}

// Record associates tempID with confirmedID. The first recording wins;
// later calls with the same tempID are ignored rather than rewriting
// history.
func (t *RemapTable) Record(tempID, confirmedID string) {
	if tempID == "" || confirmedID == "" || tempID == confirmedID {
		return
	}
	if _, exists := t.forward[tempID]; exists {
		return
	}
	t.forward[tempID] = confirmedID
	t.reverse[confirmedID] = tempID
}

// Confirmed returns the confirmed ID recorded for a provisional ID.
func (t *RemapTable) Confirmed(tempID string) (string, bool) {
	confirmed, ok := t.forward[tempID]
	return confirmed, ok
}

// Provisional returns the provisional ID that a confirmed ID replaced.
func (t *RemapTable) Provisional(confirmedID string) (string, bool) {
	temp, ok := t.reverse[confirmedID]
	return temp, ok
}

// Resolve returns the confirmed form of id when a mapping exists,
// otherwise id unchanged. Use before putting a message reference on
// the wire: the gateway only knows confirmed IDs.
func (t *RemapTable) Resolve(id string) string {
	if confirmed, ok := t.forward[id]; ok {
		return confirmed
	}
	return id
}

// snapshotForward returns a copy of the forward mapping for snapshots.
func (t *RemapTable) snapshotForward() map[string]string {
	forward := make(map[string]string, len(t.forward))
	for temp, confirmed := range t.forward {
		forward[temp] = confirmed
	}
	return forward
}
