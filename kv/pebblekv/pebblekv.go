// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pebblekv adapts the teacher's real storage dependency,
// github.com/luxfi/database (a Pebble-backed key-value engine), to the
// kv.Store contract (spec section 4.B), demonstrating that the
// component-B interface is backend-agnostic: memkv and pebblekv are
// interchangeable behind every other subsystem.
package pebblekv

import (
	luxdb "github.com/luxfi/database"

	"github.com/luxfi/fantasim-core/kv"
)

// Store adapts a luxfi/database.Database to kv.Store.
type Store struct {
	db luxdb.Database
}

var _ kv.Store = (*Store)(nil)

// New wraps an already-opened luxfi/database.Database.
func New(db luxdb.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Has(key []byte) (bool, error) { return s.db.Has(key) }

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	v, err := s.db.Get(key)
	if err != nil {
		if err == luxdb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (s *Store) Put(key, value []byte) error { return s.db.Put(key, value) }

func (s *Store) Delete(key []byte) error { return s.db.Delete(key) }

func (s *Store) Iterate(seek []byte) kv.Iterator {
	return &iterator{it: s.db.NewIteratorWithStart(seek)}
}

type iterator struct {
	it luxdb.Iterator
}

func (i *iterator) Next() bool    { return i.it.Next() }
func (i *iterator) Key() []byte   { return i.it.Key() }
func (i *iterator) Value() []byte { return i.it.Value() }
func (i *iterator) Error() error  { return i.it.Error() }
func (i *iterator) Release()      { i.it.Release() }

type batch struct {
	b luxdb.Batch
}

func (s *Store) NewBatch() kv.Batch { return &batch{b: s.db.NewBatch()} }

func (b *batch) Put(key, value []byte) error { return b.b.Put(key, value) }
func (b *batch) Delete(key []byte) error     { return b.b.Delete(key) }
func (b *batch) Len() int                    { return b.b.Size() }
func (b *batch) Write() error                { return b.b.Write() }
func (b *batch) Reset()                      { b.b.Reset() }

func (s *Store) Close() error { return s.db.Close() }
