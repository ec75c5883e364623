// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kv defines the ordered byte-keyed key-value substrate that backs
// event records, snapshots, capabilities, and derived-artifact cache
// entries (spec section 4.B). The substrate does not interpret keys; all
// key structure lives in package streamid.
package kv

// Reader reads from a store.
type Reader interface {
	// Has returns true if key exists.
	Has(key []byte) (bool, error)
	// Get returns the value for key and whether it exists.
	Get(key []byte) (value []byte, found bool, err error)
}

// Writer writes to a store.
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Iterator walks keys in byte-wise ascending order starting at (or after)
// a seek key. Call Next() before the first Key()/Value() access.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Batch stages a sequence of Put/Delete operations for atomic commit.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Len() int
	// Write commits every staged operation atomically; on return, every
	// operation is durable.
	Write() error
	Reset()
}

// Store is the full key-value substrate contract: point reads, writes,
// ordered iteration, and atomic batches.
type Store interface {
	Reader
	Writer

	// Iterate returns an Iterator over keys >= seek (or all keys, if seek
	// is nil), in byte-wise ascending order.
	Iterate(seek []byte) Iterator

	NewBatch() Batch

	Close() error
}
