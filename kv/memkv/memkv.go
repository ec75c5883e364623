// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memkv is a dependency-free, in-process implementation of
// kv.Store backed by a sorted slice of keys. It exists so the core's test
// suite (and any host that does not need cross-process persistence) can
// exercise the full kv.Store contract without a real storage engine
// attached, mirroring the role the teacher's in-memory test doubles play.
package memkv

import (
	"bytes"
	"sort"
	"sync"

	"github.com/luxfi/fantasim-core/kv"
)

// Store is an in-memory, mutex-guarded implementation of kv.Store.
type Store struct {
	mu   sync.RWMutex
	keys [][]byte
	vals map[string][]byte
}

var _ kv.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{vals: make(map[string][]byte)}
}

func (s *Store) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vals[string(key)]
	return ok, nil
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vals[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(key, value)
	return nil
}

func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(key)
	return nil
}

func (s *Store) putLocked(key, value []byte) {
	k := string(key)
	if _, exists := s.vals[k]; !exists {
		idx := sort.Search(len(s.keys), func(i int) bool {
			return bytes.Compare(s.keys[i], key) >= 0
		})
		s.keys = append(s.keys, nil)
		copy(s.keys[idx+1:], s.keys[idx:])
		keyCopy := make([]byte, len(key))
		copy(keyCopy, key)
		s.keys[idx] = keyCopy
	}
	valCopy := make([]byte, len(value))
	copy(valCopy, value)
	s.vals[k] = valCopy
}

func (s *Store) deleteLocked(key []byte) {
	k := string(key)
	if _, exists := s.vals[k]; !exists {
		return
	}
	delete(s.vals, k)
	idx := sort.Search(len(s.keys), func(i int) bool {
		return bytes.Compare(s.keys[i], key) >= 0
	})
	if idx < len(s.keys) && bytes.Equal(s.keys[idx], key) {
		s.keys = append(s.keys[:idx], s.keys[idx+1:]...)
	}
}

func (s *Store) Iterate(seek []byte) kv.Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if seek != nil {
		start = sort.Search(len(s.keys), func(i int) bool {
			return bytes.Compare(s.keys[i], seek) >= 0
		})
	}

	snapshot := make([][]byte, len(s.keys)-start)
	copy(snapshot, s.keys[start:])
	values := make([][]byte, len(snapshot))
	for i, k := range snapshot {
		values[i] = s.vals[string(k)]
	}

	return &iterator{keys: snapshot, values: values, pos: -1}
}

type iterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
}

func (it *iterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *iterator) Key() []byte   { return it.keys[it.pos] }
func (it *iterator) Value() []byte { return it.values[it.pos] }
func (it *iterator) Error() error  { return nil }
func (it *iterator) Release()      {}

type batchOp struct {
	key      []byte
	value    []byte
	isDelete bool
}

type batch struct {
	store *Store
	ops   []batchOp
}

func (s *Store) NewBatch() kv.Batch {
	return &batch{store: s}
}

func (b *batch) Put(key, value []byte) error {
	keyCopy := append([]byte(nil), key...)
	valCopy := append([]byte(nil), value...)
	b.ops = append(b.ops, batchOp{key: keyCopy, value: valCopy})
	return nil
}

func (b *batch) Delete(key []byte) error {
	keyCopy := append([]byte(nil), key...)
	b.ops = append(b.ops, batchOp{key: keyCopy, isDelete: true})
	return nil
}

func (b *batch) Len() int { return len(b.ops) }

func (b *batch) Write() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		if op.isDelete {
			b.store.deleteLocked(op.key)
		} else {
			b.store.putLocked(op.key, op.value)
		}
	}
	return nil
}

func (b *batch) Reset() { b.ops = b.ops[:0] }

func (s *Store) Close() error { return nil }
