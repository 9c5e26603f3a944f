// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/parleyhq/parley/lib/codec"
)

// snapshotVersion is the on-disk format version. Bump on any breaking
// change to the snapshot layout; Load rejects unknown versions.
const snapshotVersion = 1

// snapshotFile is the on-disk snapshot layout: zstd-compressed
// deterministic CBOR. CBOR is the engine's internal format (the wire
// stays JSON); zstd because the payload is uniform text-like data.
type snapshotFile struct {
	Version       int                    `json:"version"`
	SavedAt       time.Time              `json:"saved_at"`
	Conversations []snapshotConversation `json:"conversations"`
	Remap         map[string]string      `json:"remap"`
}

type snapshotConversation struct {
	Key      ConversationKey `json:"key"`
	Messages []Message       `json:"messages"`
}

// SaveSnapshot persists all conversations and the ID remap table to
// path, so a restarted client renders immediately without refetching
// history. The write goes through a temp file and rename, so a crash
// mid-write never leaves a truncated snapshot.
func (e *Engine) SaveSnapshot(path string) error {
	e.mu.Lock()
	snapshot := snapshotFile{
		Version: snapshotVersion,
		SavedAt: e.clock.Now(),
		Remap:   e.remap.snapshotForward(),
	}
	for _, key := range e.store.Conversations() {
		snapshot.Conversations = append(snapshot.Conversations, snapshotConversation{
			Key:      key,
			Messages: e.store.Messages(key),
		})
	}
	e.mu.Unlock()

	temp, err := os.CreateTemp(filepath.Dir(path), ".parley-snapshot-*")
	if err != nil {
		return fmt.Errorf("chat: creating snapshot temp file: %w", err)
	}
	defer os.Remove(temp.Name())

	compressor, err := zstd.NewWriter(temp)
	if err != nil {
		temp.Close()
		return fmt.Errorf("chat: initializing snapshot compressor: %w", err)
	}
	if err := codec.NewEncoder(compressor).Encode(snapshot); err != nil {
		compressor.Close()
		temp.Close()
		return fmt.Errorf("chat: encoding snapshot: %w", err)
	}
	if err := compressor.Close(); err != nil {
		temp.Close()
		return fmt.Errorf("chat: flushing snapshot: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("chat: closing snapshot temp file: %w", err)
	}
	if err := os.Rename(temp.Name(), path); err != nil {
		return fmt.Errorf("chat: replacing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores conversations and the remap table from a
// snapshot written by SaveSnapshot. Meant for a fresh engine at
// startup: entries are restored verbatim, except that messages caught
// mid-send are marked failed. Their transport call cannot still be
// outstanding across a restart, and failed entries offer the user a
// retry.
func (e *Engine) LoadSnapshot(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("chat: opening snapshot: %w", err)
	}
	defer file.Close()

	decompressor, err := zstd.NewReader(file)
	if err != nil {
		return fmt.Errorf("chat: initializing snapshot decompressor: %w", err)
	}
	defer decompressor.Close()

	var snapshot snapshotFile
	if err := codec.NewDecoder(decompressor.IOReadCloser()).Decode(&snapshot); err != nil {
		return fmt.Errorf("chat: decoding snapshot: %w", err)
	}
	if snapshot.Version != snapshotVersion {
		return fmt.Errorf("chat: unsupported snapshot version %d", snapshot.Version)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, conversation := range snapshot.Conversations {
		e.store.EnsureConversation(conversation.Key)
		for _, message := range conversation.Messages {
			restored := message
			if restored.Status == StatusSending {
				restored.Status = StatusFailed
			}
			e.store.restore(&restored)
		}
	}
	for tempID, confirmedID := range snapshot.Remap {
		e.remap.Record(tempID, confirmedID)
	}
	return nil
}
