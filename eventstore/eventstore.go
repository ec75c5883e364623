// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package eventstore implements the truth event store (spec section 4.D):
// an append-only, hash-chained event log keyed by stream identity, with
// monotonic sequencing and a tick-monotonicity policy enforced at append
// time.
package eventstore

import (
	"crypto/sha256"
	"fmt"
	"time"

	luxlog "github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/fantasim-core/codec"
	"github.com/luxfi/fantasim-core/faults"
	"github.com/luxfi/fantasim-core/identity"
	"github.com/luxfi/fantasim-core/kv"
	"github.com/luxfi/fantasim-core/streamid"
)

// ZeroHash is the all-zero 32-byte value used as PreviousHash at genesis.
var ZeroHash [32]byte

// Record is a single persisted, hash-chained event.
type Record struct {
	EventID      identity.ID
	EventType    string
	Tick         int64
	Sequence     uint64
	StreamURN    string
	PreviousHash [32]byte
	Hash         [32]byte
	// Payload is the canonically pre-encoded event payload; its structure
	// is interpreted by the topology materializer according to EventType.
	Payload []byte
}

// hashable is the wire shape hashed to produce Record.Hash: identical to
// Record but with Hash always zero, so the hash never depends on itself.
type hashable struct {
	EventID      identity.ID
	EventType    string
	Tick         int64
	Sequence     uint64
	StreamURN    string
	PreviousHash [32]byte
	Hash         [32]byte
	Payload      []byte
}

func (r Record) computeHash() ([32]byte, error) {
	h := hashable{
		EventID:      r.EventID,
		EventType:    r.EventType,
		Tick:         r.Tick,
		Sequence:     r.Sequence,
		StreamURN:    r.StreamURN,
		PreviousHash: r.PreviousHash,
		Payload:      r.Payload,
	}
	b, err := codec.Encode(h)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// Draft is a not-yet-sequenced event, as emitted by a DES trigger.
type Draft struct {
	EventID   identity.ID
	EventType string
	Tick      int64
	Payload   []byte
}

// AppendOptions controls the tick policy adopted by a stream. Only the
// first Append call to a stream (genesis) can set RejectNonMonotoneTicks;
// once a stream's capabilities record exists, its policy is read from
// storage and further AppendOptions on that stream are ignored for policy
// purposes.
type AppendOptions struct {
	// RejectNonMonotoneTicks, if true on a stream's genesis append, sets
	// capabilities bit FlagTickPolicyRejectFromGenesis: any later event
	// with Tick < the previous event's Tick fails the whole batch instead
	// of clearing the monotone flag.
	RejectNonMonotoneTicks bool
}

// AppendResult reports the sequence range assigned to a successful append.
type AppendResult struct {
	FirstSequence uint64
	LastSequence  uint64
}

// Store is the truth event store for one kv.Store-backed database, serving
// any number of independent streams (they share nothing but the
// underlying kv.Store).
type Store struct {
	kv  kv.Store
	log luxlog.Logger

	appendLatency prometheus.Histogram
	appendTotal   prometheus.Counter
	readTotal     prometheus.Counter
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithLogger attaches a structured logger, mirroring the teacher's
// logger-as-constructor-argument idiom (engine/chain/poll.NewSet).
func WithLogger(l luxlog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithRegisterer registers this store's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		s.appendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "fantasim_eventstore_append_seconds",
			Help: "Latency of eventstore.Store.Append calls.",
		})
		s.appendTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fantasim_eventstore_append_total",
			Help: "Number of events appended.",
		})
		s.readTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fantasim_eventstore_read_total",
			Help: "Number of events read.",
		})
		if reg != nil {
			reg.MustRegister(s.appendLatency, s.appendTotal, s.readTotal)
		}
	}
}

// New constructs a Store over the given kv.Store.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, log: luxlog.NewNoOpLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LastSequence returns the highest sequence appended to stream, or false
// if the stream is empty.
func (s *Store) LastSequence(stream streamid.Identity) (uint64, bool, error) {
	last, found, err := s.lastRecord(stream)
	if err != nil || !found {
		return 0, false, err
	}
	return last.Sequence, true, nil
}

// Capabilities returns the stream's current capability flags.
func (s *Store) Capabilities(stream streamid.Identity) (streamid.Capabilities, error) {
	raw, found, err := s.kv.Get(stream.CapabilitiesKey())
	if err != nil {
		return streamid.Capabilities{}, faults.Wrap(faults.StorageFault, "read capabilities", err)
	}
	if !found {
		// A genesis stream implicitly starts tick-monotone.
		return streamid.Capabilities{Flags: streamid.FlagTickMonotoneFromGenesis}, nil
	}
	return streamid.DecodeCapabilities(raw), nil
}

// lastRecord scans every event key in stream and returns the one with the
// highest sequence. The core's scope guarantee is logical correctness, not
// wall-clock performance (spec section 1's Non-goals), so a full forward
// scan is an acceptable, spec-faithful implementation of "last sequence"
// without inventing an unspecified internal index key.
func (s *Store) lastRecord(stream streamid.Identity) (Record, bool, error) {
	it := s.kv.Iterate(stream.EventKeyPrefix())
	defer it.Release()

	prefix := stream.EventKeyPrefix()
	var (
		last  Record
		found bool
	)
	for it.Next() {
		key := it.Key()
		if len(key) < len(prefix) || string(key[:len(prefix)]) != string(prefix) {
			break
		}
		var rec Record
		if err := codec.Decode(it.Value(), &rec); err != nil {
			return Record{}, false, faults.Wrap(faults.StorageFault, "decode event record", err)
		}
		last = rec
		found = true
	}
	if err := it.Error(); err != nil {
		return Record{}, false, faults.Wrap(faults.StorageFault, "iterate event records", err)
	}
	return last, found, nil
}

// Append assigns sequence numbers and hash-chain fields to drafts in
// order, enforces the tick policy, and commits every record plus the
// updated capabilities atomically.
func (s *Store) Append(stream streamid.Identity, drafts []Draft, opts AppendOptions) (AppendResult, error) {
	if len(drafts) == 0 {
		return AppendResult{}, faults.New(faults.Validation, "append requires a non-empty batch")
	}
	start := time.Now()

	last, hasLast, err := s.lastRecord(stream)
	if err != nil {
		return AppendResult{}, err
	}

	caps, err := s.Capabilities(stream)
	if err != nil {
		return AppendResult{}, err
	}
	if !hasLast && opts.RejectNonMonotoneTicks {
		caps.Flags |= streamid.FlagTickPolicyRejectFromGenesis
	}

	nextSeq := uint64(0)
	prevHash := ZeroHash
	lastTick := int64(0)
	hasTick := false
	if hasLast {
		nextSeq = last.Sequence + 1
		prevHash = last.Hash
		lastTick = last.Tick
		hasTick = true
	}

	records := make([]Record, 0, len(drafts))
	for i, d := range drafts {
		if hasTick && d.Tick < lastTick {
			if caps.TickPolicyReject() {
				return AppendResult{}, faults.New(faults.TickMonotonicityViolation,
					fmt.Sprintf("event %d has tick %d < previous tick %d", i, d.Tick, lastTick))
			}
			caps.Flags &^= streamid.FlagTickMonotoneFromGenesis
		}

		rec := Record{
			EventID:      d.EventID,
			EventType:    d.EventType,
			Tick:         d.Tick,
			Sequence:     nextSeq,
			StreamURN:    stream.URN(),
			PreviousHash: prevHash,
			Payload:      d.Payload,
		}
		hash, err := rec.computeHash()
		if err != nil {
			return AppendResult{}, faults.Wrap(faults.StorageFault, "compute record hash", err)
		}
		rec.Hash = hash

		records = append(records, rec)
		prevHash = hash
		lastTick = d.Tick
		hasTick = true
		nextSeq++
	}

	batch := s.kv.NewBatch()
	for _, rec := range records {
		encoded, err := codec.Encode(rec)
		if err != nil {
			return AppendResult{}, faults.Wrap(faults.StorageFault, "encode event record", err)
		}
		if err := batch.Put(stream.EventKey(rec.Sequence), encoded); err != nil {
			return AppendResult{}, faults.Wrap(faults.StorageFault, "stage event record", err)
		}
	}
	if err := batch.Put(stream.CapabilitiesKey(), streamid.EncodeCapabilities(caps)); err != nil {
		return AppendResult{}, faults.Wrap(faults.StorageFault, "stage capabilities", err)
	}
	if err := batch.Write(); err != nil {
		return AppendResult{}, faults.Wrap(faults.StorageFault, "commit append batch", err)
	}

	if s.appendTotal != nil {
		s.appendTotal.Add(float64(len(records)))
	}
	if s.appendLatency != nil {
		s.appendLatency.Observe(time.Since(start).Seconds())
	}
	s.log.Debug("appended events", "stream", stream.URN(), "count", len(records), "first", records[0].Sequence, "last", records[len(records)-1].Sequence)

	return AppendResult{FirstSequence: records[0].Sequence, LastSequence: records[len(records)-1].Sequence}, nil
}

// Read returns every event in stream with Sequence >= fromSequence, in
// sequence order, verifying the hash chain as it goes. Any mismatch
// returns a HashChainBroken fault; there is no partial/best-effort
// fallback.
func (s *Store) Read(stream streamid.Identity, fromSequence uint64) ([]Record, error) {
	it := s.kv.Iterate(stream.EventKey(fromSequence))
	defer it.Release()

	prefix := stream.EventKeyPrefix()
	var (
		records  []Record
		prevHash = ZeroHash
		havePrev bool
	)

	// If fromSequence > 0, the caller is reading a suffix of the stream;
	// we still need the preceding record's Hash to verify the first
	// record's PreviousHash link.
	if fromSequence > 0 {
		prior, found, err := s.recordAt(stream, fromSequence-1)
		if err != nil {
			return nil, err
		}
		if found {
			prevHash = prior.Hash
			havePrev = true
		}
	}

	for it.Next() {
		key := it.Key()
		if len(key) < len(prefix) || string(key[:len(prefix)]) != string(prefix) {
			break
		}
		var rec Record
		if err := codec.Decode(it.Value(), &rec); err != nil {
			return nil, faults.Wrap(faults.StorageFault, "decode event record", err)
		}

		recomputed, err := rec.computeHash()
		if err != nil {
			return nil, faults.Wrap(faults.StorageFault, "recompute event hash", err)
		}
		if recomputed != rec.Hash {
			return nil, faults.New(faults.HashChainBroken,
				fmt.Sprintf("record at sequence %d: stored hash does not match recomputed hash", rec.Sequence))
		}
		if havePrev && rec.PreviousHash != prevHash {
			return nil, faults.New(faults.HashChainBroken,
				fmt.Sprintf("record at sequence %d: previous_hash does not match prior record's hash", rec.Sequence))
		}
		if !havePrev && rec.Sequence == 0 && rec.PreviousHash != ZeroHash {
			return nil, faults.New(faults.HashChainBroken, "genesis record must have all-zero previous_hash")
		}

		records = append(records, rec)
		prevHash = rec.Hash
		havePrev = true
	}
	if err := it.Error(); err != nil {
		return nil, faults.Wrap(faults.StorageFault, "iterate event records", err)
	}

	if s.readTotal != nil {
		s.readTotal.Add(float64(len(records)))
	}
	return records, nil
}

func (s *Store) recordAt(stream streamid.Identity, sequence uint64) (Record, bool, error) {
	raw, found, err := s.kv.Get(stream.EventKey(sequence))
	if err != nil {
		return Record{}, false, faults.Wrap(faults.StorageFault, "get event record", err)
	}
	if !found {
		return Record{}, false, nil
	}
	var rec Record
	if err := codec.Decode(raw, &rec); err != nil {
		return Record{}, false, faults.Wrap(faults.StorageFault, "decode event record", err)
	}
	return rec, true, nil
}
