// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"strings"

	"github.com/google/uuid"
)

// tempIDPrefix marks locally issued provisional message IDs. The
// gateway never assigns IDs with this prefix, so a prefixed ID always
// identifies a not-yet-confirmed entry.
const tempIDPrefix = "local-"

// mutationIDPrefix marks reaction mutation IDs. These never appear on
// the wire as message IDs; they only key the pending-mutation registry.
const mutationIDPrefix = "rx-"

// NewTempID issues a collision-resistant temporary message ID.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id is a locally issued provisional ID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// newMutationID issues an ID for one in-flight reaction mutation.
func newMutationID() string {
	return mutationIDPrefix + uuid.NewString()
}
