// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"github.com/zeebo/blake3"

	"github.com/parleyhq/parley/lib/ref"
)

// fingerprint is a 32-byte BLAKE3 digest over a message's origin and
// content, used by the third dedup tier: a self-sent message echoed
// back by the stream carries no shared ID with the optimistic entry,
// so same-origin, same-content entries within the dedup window are
// treated as one message. Comparing fixed-size digests keeps the
// conversation scan cheap and avoids holding message bodies twice.
type fingerprint [32]byte

// dedupDomainKey is the BLAKE3 keyed-hash domain for dedup
// fingerprints. A fixed key separates these digests from any other
// BLAKE3 use of the same bytes. The value is the ASCII domain name,
// zero-padded to 32 bytes, so it is inspectable in a debugger.
var dedupDomainKey = [32]byte{
	'p', 'a', 'r', 'l', 'e', 'y', '.', 'c', 'h', 'a', 't', '.',
	'd', 'e', 'd', 'u', 'p', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// messageFingerprint digests kind, sender, and content with
// NUL separators so field boundaries cannot collide ("ab"+"c" vs
// "a"+"bc").
func messageFingerprint(kind Kind, sender ref.AgentID, content string) fingerprint {
	hasher, err := blake3.NewKeyed(dedupDomainKey[:])
	if err != nil {
		panic("chat: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.WriteString(string(kind))
	hasher.Write([]byte{0})
	hasher.WriteString(sender.String())
	hasher.Write([]byte{0})
	hasher.WriteString(content)

	var digest fingerprint
	hasher.Digest().Read(digest[:])
	return digest
}
