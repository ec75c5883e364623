// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package topology

import (
	"github.com/luxfi/fantasim-core/codec"
)

// DefaultSnapshotInterval is how often the materializer opportunistically
// snapshots a stream: every 64th append. Spec section 9 leaves snapshot
// cadence as an open question ("implementations may snapshot on every
// Nth append"); 64 is this implementation's chosen constant.
const DefaultSnapshotInterval = 64

// snapshotRecord is the canonical encoding of {Sequence, State} persisted
// at a stream's snapshot key (spec section 4.E).
type snapshotRecord struct {
	Sequence int64
	State    State
}

func encodeSnapshot(sequence int64, state State) ([]byte, error) {
	return codec.Encode(snapshotRecord{Sequence: sequence, State: state})
}

func decodeSnapshot(data []byte) (int64, State, error) {
	var rec snapshotRecord
	if err := codec.Decode(data, &rec); err != nil {
		return 0, State{}, err
	}
	return rec.Sequence, rec.State, nil
}
