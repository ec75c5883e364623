// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package streamid

import (
	"crypto/sha256"

	"github.com/luxfi/ids"
)

// Hash returns the stream's identity hash: SHA256 of the canonical URN
// string, as a 32-byte luxfi/ids.ID. This is the TopologyStreamHash used
// to scope derived-artifact cache invalidation (spec section 4.G,
// scenario E6).
func (id Identity) Hash() ids.ID {
	return ids.ID(sha256.Sum256([]byte(id.URN())))
}

