// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/fantasim-core/kv"
	"github.com/luxfi/fantasim-core/kv/memkv"
)

// implementations lists every kv.Store implementation this suite verifies.
// pebblekv is not included: it requires a real on-disk pebble instance,
// and no test in this module opens one.
func implementations(t *testing.T) map[string]func() kv.Store {
	return map[string]func() kv.Store{
		"memkv": func() kv.Store { return memkv.New() },
	}
}

func TestConformance(t *testing.T) {
	for name, newStore := range implementations(t) {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			t.Run("GetMissing", func(t *testing.T) {
				s := newStore()
				defer s.Close()
				_, found, err := s.Get([]byte("missing"))
				require.NoError(t, err)
				require.False(t, found)
			})

			t.Run("PutGetDelete", func(t *testing.T) {
				s := newStore()
				defer s.Close()
				require.NoError(t, s.Put([]byte("a"), []byte("1")))
				v, found, err := s.Get([]byte("a"))
				require.NoError(t, err)
				require.True(t, found)
				require.Equal(t, []byte("1"), v)

				has, err := s.Has([]byte("a"))
				require.NoError(t, err)
				require.True(t, has)

				require.NoError(t, s.Delete([]byte("a")))
				_, found, err = s.Get([]byte("a"))
				require.NoError(t, err)
				require.False(t, found)
			})

			t.Run("OrderedIteration", func(t *testing.T) {
				s := newStore()
				defer s.Close()
				for _, k := range []string{"c", "a", "e", "b", "d"} {
					require.NoError(t, s.Put([]byte(k), []byte(k)))
				}
				var got []string
				it := s.Iterate(nil)
				defer it.Release()
				for it.Next() {
					got = append(got, string(it.Key()))
				}
				require.NoError(t, it.Error())
				require.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
			})

			t.Run("IterateFromSeek", func(t *testing.T) {
				s := newStore()
				defer s.Close()
				for _, k := range []string{"a", "b", "c", "d"} {
					require.NoError(t, s.Put([]byte(k), []byte(k)))
				}
				var got []string
				it := s.Iterate([]byte("b"))
				defer it.Release()
				for it.Next() {
					got = append(got, string(it.Key()))
				}
				require.Equal(t, []string{"b", "c", "d"}, got)
			})

			t.Run("AtomicBatch", func(t *testing.T) {
				s := newStore()
				defer s.Close()
				require.NoError(t, s.Put([]byte("x"), []byte("old")))

				b := s.NewBatch()
				require.NoError(t, b.Put([]byte("x"), []byte("new")))
				require.NoError(t, b.Put([]byte("y"), []byte("1")))
				require.NoError(t, b.Delete([]byte("missing-is-fine")))
				require.Equal(t, 3, b.Len())
				require.NoError(t, b.Write())

				v, found, err := s.Get([]byte("x"))
				require.NoError(t, err)
				require.True(t, found)
				require.Equal(t, []byte("new"), v)

				v, found, err = s.Get([]byte("y"))
				require.NoError(t, err)
				require.True(t, found)
				require.Equal(t, []byte("1"), v)
			})
		})
	}
}
