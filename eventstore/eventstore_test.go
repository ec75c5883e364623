// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package eventstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/fantasim-core/eventstore"
	"github.com/luxfi/fantasim-core/faults"
	"github.com/luxfi/fantasim-core/identity"
	"github.com/luxfi/fantasim-core/kv/memkv"
	"github.com/luxfi/fantasim-core/streamid"
)

func testStream(t *testing.T) streamid.Identity {
	t.Helper()
	id, err := streamid.New("V1", "main", 0, "geo.plates", "0")
	require.NoError(t, err)
	return id
}

func draft(seed uint64, eventType string, tick int64) eventstore.Draft {
	return eventstore.Draft{
		EventID:   identity.New(fixedSource(seed)),
		EventType: eventType,
		Tick:      tick,
		Payload:   []byte(eventType),
	}
}

// fixedSource is a trivial identity.Source that returns its seed on every
// call, avoiding a math/rand dependency in the test itself.
type fixedSource uint64

func (s fixedSource) Uint64() uint64 {
	return uint64(s)
}

func TestAppendGenesisAssignsSequenceZero(t *testing.T) {
	store := eventstore.New(memkv.New())
	stream := testStream(t)

	result, err := store.Append(stream, []eventstore.Draft{draft(1, "PlateCreated", 0)}, eventstore.AppendOptions{})
	require.NoError(t, err)
	require.Equal(t, uint64(0), result.FirstSequence)
	require.Equal(t, uint64(0), result.LastSequence)

	last, found, err := store.LastSequence(stream)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(0), last)
}

func TestAppendRejectsEmptyBatch(t *testing.T) {
	store := eventstore.New(memkv.New())
	stream := testStream(t)

	_, err := store.Append(stream, nil, eventstore.AppendOptions{})
	require.Error(t, err)
}

func TestAppendMultiDraftBatchChainsHashes(t *testing.T) {
	store := eventstore.New(memkv.New())
	stream := testStream(t)

	drafts := []eventstore.Draft{
		draft(1, "PlateCreated", 0),
		draft(2, "PlateCreated", 1),
		draft(3, "BoundaryCreated", 2),
	}
	result, err := store.Append(stream, drafts, eventstore.AppendOptions{})
	require.NoError(t, err)
	require.Equal(t, uint64(0), result.FirstSequence)
	require.Equal(t, uint64(2), result.LastSequence)

	records, err := store.Read(stream, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, eventstore.ZeroHash, records[0].PreviousHash)
	for i := 1; i < len(records); i++ {
		require.Equal(t, records[i-1].Hash, records[i].PreviousHash)
		require.Equal(t, records[i-1].Sequence+1, records[i].Sequence)
	}
}

func TestAppendAcrossCallsContinuesSequence(t *testing.T) {
	store := eventstore.New(memkv.New())
	stream := testStream(t)

	_, err := store.Append(stream, []eventstore.Draft{draft(1, "PlateCreated", 0)}, eventstore.AppendOptions{})
	require.NoError(t, err)

	result, err := store.Append(stream, []eventstore.Draft{draft(2, "PlateCreated", 1)}, eventstore.AppendOptions{})
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.FirstSequence)
	require.Equal(t, uint64(1), result.LastSequence)
}

func TestReadDetectsTamperedRecord(t *testing.T) {
	backing := memkv.New()
	store := eventstore.New(backing)
	stream := testStream(t)

	_, err := store.Append(stream, []eventstore.Draft{
		draft(1, "PlateCreated", 0),
		draft(2, "PlateCreated", 1),
	}, eventstore.AppendOptions{})
	require.NoError(t, err)

	key := stream.EventKey(1)
	raw, found, err := backing.Get(key)
	require.NoError(t, err)
	require.True(t, found)

	tampered := append([]byte(nil), raw...)
	tampered[len(tampered)-1] ^= 0xFF
	require.NoError(t, backing.Put(key, tampered))

	_, err = store.Read(stream, 0)
	require.Error(t, err)
	kind, ok := faults.KindOf(err)
	require.True(t, ok)
	require.Equal(t, faults.HashChainBroken, kind)
}

func TestTickMonotonicityDowngradesByDefault(t *testing.T) {
	store := eventstore.New(memkv.New())
	stream := testStream(t)

	_, err := store.Append(stream, []eventstore.Draft{draft(1, "PlateCreated", 10)}, eventstore.AppendOptions{})
	require.NoError(t, err)

	caps, err := store.Capabilities(stream)
	require.NoError(t, err)
	require.True(t, caps.TickMonotone())

	_, err = store.Append(stream, []eventstore.Draft{draft(2, "PlateCreated", 5)}, eventstore.AppendOptions{})
	require.NoError(t, err, "out-of-order ticks downgrade monotonicity rather than fail")

	caps, err = store.Capabilities(stream)
	require.NoError(t, err)
	require.False(t, caps.TickMonotone())
}

func TestTickMonotonicityRejectModeSetAtGenesis(t *testing.T) {
	store := eventstore.New(memkv.New())
	stream := testStream(t)

	_, err := store.Append(stream, []eventstore.Draft{draft(1, "PlateCreated", 10)},
		eventstore.AppendOptions{RejectNonMonotoneTicks: true})
	require.NoError(t, err)

	_, err = store.Append(stream, []eventstore.Draft{draft(2, "PlateCreated", 5)}, eventstore.AppendOptions{})
	require.Error(t, err)
	kind, ok := faults.KindOf(err)
	require.True(t, ok)
	require.Equal(t, faults.TickMonotonicityViolation, kind)
}

func TestTickMonotonicityRejectOptionIgnoredAfterGenesis(t *testing.T) {
	store := eventstore.New(memkv.New())
	stream := testStream(t)

	_, err := store.Append(stream, []eventstore.Draft{draft(1, "PlateCreated", 10)}, eventstore.AppendOptions{})
	require.NoError(t, err)

	// Setting RejectNonMonotoneTicks on a non-genesis append has no effect:
	// the stream's policy was already fixed at genesis (non-rejecting).
	_, err = store.Append(stream, []eventstore.Draft{draft(2, "PlateCreated", 5)},
		eventstore.AppendOptions{RejectNonMonotoneTicks: true})
	require.NoError(t, err)
}

func TestCapabilitiesRoundTrip(t *testing.T) {
	store := eventstore.New(memkv.New())
	stream := testStream(t)

	caps, err := store.Capabilities(stream)
	require.NoError(t, err)
	require.True(t, caps.TickMonotone())
	require.False(t, caps.TickPolicyReject())

	_, err = store.Append(stream, []eventstore.Draft{draft(1, "PlateCreated", 0)},
		eventstore.AppendOptions{RejectNonMonotoneTicks: true})
	require.NoError(t, err)

	caps, err = store.Capabilities(stream)
	require.NoError(t, err)
	require.True(t, caps.TickPolicyReject())
}

func TestReadFromSequenceVerifiesLinkToPriorRecord(t *testing.T) {
	store := eventstore.New(memkv.New())
	stream := testStream(t)

	_, err := store.Append(stream, []eventstore.Draft{
		draft(1, "PlateCreated", 0),
		draft(2, "PlateCreated", 1),
		draft(3, "PlateCreated", 2),
	}, eventstore.AppendOptions{})
	require.NoError(t, err)

	suffix, err := store.Read(stream, 1)
	require.NoError(t, err)
	require.Len(t, suffix, 2)
	require.Equal(t, uint64(1), suffix[0].Sequence)
}
